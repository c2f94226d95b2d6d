package model

// GroundStation represents a ground antenna site the spacecraft can contact.
type GroundStation struct {
	Code string
	Name string

	LatitudeDeg  float64
	LongitudeDeg float64
	ElevationM   float64

	// MinElevationDeg is the minimum look elevation for a usable contact.
	// Zero means "use the schedule default".
	MinElevationDeg float64

	// ScheduleProbability is the chance a geometrically possible contact is
	// actually granted by the network (1.0 = always).
	ScheduleProbability float64
}

// Target is a science pointing the scheduler may ask the ACS to observe.
type Target struct {
	ID       int
	Name     string
	Pointing RaDec
	Merit    float64
}
