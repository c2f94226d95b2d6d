package model

import "fmt"

// Mode is the spacecraft operating state derived by the ACS each tick.
type Mode int

const (
	ModeScience Mode = iota
	ModeSlewing
	ModeSAA
	ModePass
	ModeCharging
)

func (m Mode) String() string {
	switch m {
	case ModeScience:
		return "SCIENCE"
	case ModeSlewing:
		return "SLEWING"
	case ModeSAA:
		return "SAA"
	case ModePass:
		return "PASS"
	case ModeCharging:
		return "CHARGING"
	default:
		return fmt.Sprintf("MODE(%d)", int(m))
	}
}

// ObservingType tags what kind of pointing a maneuver is heading toward.
type ObservingType int

const (
	// ObservingScience is a pre-planned science target pointing.
	ObservingScience ObservingType = iota
	// ObservingGroundContact is the pointing held during a ground station pass.
	ObservingGroundContact
	// ObservingCharge is a sun-favourable pointing for battery charging.
	ObservingCharge
)

func (o ObservingType) String() string {
	switch o {
	case ObservingScience:
		return "PPT"
	case ObservingGroundContact:
		return "GSP"
	case ObservingCharge:
		return "CHARGE"
	default:
		return fmt.Sprintf("OBSTYPE(%d)", int(o))
	}
}

// RaDec is a celestial pointing direction in degrees.
// RA is right ascension in [0, 360), Dec is declination in [-90, 90].
type RaDec struct {
	RA  float64
	Dec float64
}

// IsZero reports whether both components are exactly zero. A zero pointing is
// treated as "not yet initialized" by the ACS bootstrap logic.
func (p RaDec) IsZero() bool {
	return p.RA == 0 && p.Dec == 0
}

func (p RaDec) String() string {
	return fmt.Sprintf("RA=%.3f Dec=%.3f", p.RA, p.Dec)
}

// SentinelTargetID is returned by the ACS before any maneuver has started.
const SentinelTargetID = 1
