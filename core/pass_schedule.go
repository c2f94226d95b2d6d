// core/pass_schedule.go
package core

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/signalsfoundry/conops-simulator/internal/logging"
	"github.com/signalsfoundry/conops-simulator/model"
)

// PassSchedule owns the ground contact list: requested passes ordered by
// begin time, plus the per-tick decision of when the next contact's
// pre-slew must start.
type PassSchedule struct {
	cfg AttitudeControl
	log logging.Logger

	passes  []*Pass
	current *Pass

	// MinElevationDeg is the look elevation below which a station cannot
	// close the link.
	MinElevationDeg float64
	// MinLength drops geometric contacts too short to be worth scheduling.
	MinLength time.Duration
	// ScheduleChance is the base probability a geometric contact is granted.
	ScheduleChance float64

	rng *rand.Rand
}

// NewPassSchedule builds an empty schedule with typical network defaults.
func NewPassSchedule(cfg AttitudeControl, log logging.Logger) *PassSchedule {
	if log == nil {
		log = logging.Noop()
	}
	return &PassSchedule{
		cfg:             cfg,
		log:             log,
		MinElevationDeg: 10.0,
		MinLength:       8 * time.Minute,
		ScheduleChance:  1.0,
		rng:             rand.New(rand.NewSource(1)),
	}
}

// Seed reseeds the scheduling-probability source, for reproducible runs.
func (ps *PassSchedule) Seed(seed int64) {
	ps.rng = rand.New(rand.NewSource(seed))
}

// Passes returns the requested contacts in begin order.
func (ps *PassSchedule) Passes() []*Pass {
	return ps.passes
}

// Current returns the contact being tracked this tick, if any.
func (ps *PassSchedule) Current() *Pass {
	return ps.current
}

// Request adds a contact to the schedule. A contact whose window overlaps
// an already-requested one is rejected: the schedule is left unchanged and
// the reason is logged.
func (ps *PassSchedule) Request(p *Pass) bool {
	for _, existing := range ps.passes {
		if p.Overlaps(existing) {
			ps.log.Error(context.Background(), "pass overlap detected, request rejected",
				logging.String("station", p.Station),
				logging.Any("begin", p.Begin),
				logging.String("conflicts_with", existing.Station),
			)
			return false
		}
	}
	ps.passes = append(ps.passes, p)
	sort.SliceStable(ps.passes, func(i, j int) bool {
		return ps.passes[i].Begin.Before(ps.passes[j].Begin)
	})
	ps.log.Info(context.Background(), "pass requested",
		logging.String("station", p.Station),
		logging.Any("begin", p.Begin),
		logging.Any("length", p.Length),
	)
	return true
}

// NextPass returns the first still-possible contact beginning after now,
// or nil. Abandoned contacts are never selected again.
func (ps *PassSchedule) NextPass(now time.Time) *Pass {
	for _, p := range ps.passes {
		if !p.Possible || p.State() == PassAbandoned {
			continue
		}
		if now.Before(p.Begin) {
			return p
		}
	}
	return nil
}

// PassActions is what the simulation loop must do about contacts this tick.
type PassActions struct {
	// Start, when non-nil, is a contact whose pre-slew must begin now.
	Start *Pass
	// End reports that the tracked contact's window has closed.
	End bool
	// Abandoned, when non-nil, is a contact dropped for missing its
	// pre-slew window.
	Abandoned *Pass
}

// CheckTiming advances contact tracking by one tick. It reports the end of
// the tracked contact, selects the next upcoming one, refreshes its slew
// start pointing from the current attitude, and asks the pass whether its
// pre-slew must start now.
func (ps *PassSchedule) CheckTiming(now time.Time, pointing model.RaDec) PassActions {
	var actions PassActions

	if ps.current != nil && now.After(ps.current.End()) {
		ps.current = nil
		actions.End = true
		return actions
	}
	if ps.current != nil && ps.current.State() == PassAbandoned {
		ps.log.Warn(context.Background(), "tracked pass abandoned",
			logging.String("station", ps.current.Station),
			logging.Any("lateness", ps.current.Lateness),
		)
		actions.Abandoned = ps.current
		ps.current = nil
	}

	if ps.current == nil {
		ps.current = ps.NextPass(now)
	}
	if ps.current == nil {
		return actions
	}

	if !pointing.IsZero() {
		ps.current.PreSlew.Start = pointing
	}

	if ps.current.ShouldStartSlew(now) {
		ps.log.Info(context.Background(), "pass pre-slew due",
			logging.String("station", ps.current.Station),
			logging.Any("required_start", ps.current.RequiredStart),
			logging.Any("lateness", ps.current.Lateness),
		)
		actions.Start = ps.current
	}
	return actions
}

// Generate computes geometric contacts for every station across the whole
// ephemeris window and requests each one (subject to schedule probability).
// Returns how many passes were added.
func (ps *PassSchedule) Generate(ephem *TLEEphemeris, stations []model.GroundStation) int {
	added := 0
	for _, station := range stations {
		added += ps.generateForStation(ephem, station)
	}
	sort.SliceStable(ps.passes, func(i, j int) bool {
		return ps.passes[i].Begin.Before(ps.passes[j].Begin)
	})
	return added
}

func (ps *PassSchedule) generateForStation(ephem *TLEEphemeris, station model.GroundStation) int {
	minElev := station.MinElevationDeg
	if minElev == 0 {
		minElev = ps.MinElevationDeg
	}
	prob := ps.ScheduleChance
	if station.ScheduleProbability > 0 {
		prob *= station.ScheduleProbability
	}

	added := 0
	runStart := -1
	for i := 0; i < ephem.Len(); i++ {
		gs := stationECI(station, ephem.GMSTAt(i))
		elev := ElevationDegrees(gs, ephem.PositionAt(i))

		above := elev > minElev
		switch {
		case above && runStart < 0:
			runStart = i
		case !above && runStart >= 0:
			if ps.buildPass(ephem, station, runStart, i, prob) {
				added++
			}
			runStart = -1
		}
	}
	if runStart >= 0 {
		if ps.buildPass(ephem, station, runStart, ephem.Len(), prob) {
			added++
		}
	}
	return added
}

// buildPass turns the sample run [start, end) into a Pass and requests it.
func (ps *PassSchedule) buildPass(ephem *TLEEphemeris, station model.GroundStation, start, end int, prob float64) bool {
	begin := ephem.TimeAt(start)
	length := time.Duration(end-start) * ephem.StepSize()
	if length < ps.MinLength {
		return false
	}
	if prob < 1.0 && ps.rng.Float64() > prob {
		return false
	}

	last := end - 1
	contactStart := stationPointing(ephem, station, start)
	contactEnd := stationPointing(ephem, station, last)

	p := NewPass(ps.cfg, station.Code, begin, length, contactStart, contactEnd, ephem.StepSize())
	for i := start; i < end; i++ {
		p.Times = append(p.Times, ephem.TimeAt(i))
		p.Track = append(p.Track, stationPointing(ephem, station, i))
	}
	return ps.Request(p)
}

// stationPointing is the spacecraft-to-station celestial direction at
// sample i.
func stationPointing(ephem *TLEEphemeris, station model.GroundStation, i int) model.RaDec {
	gs := stationECI(station, ephem.GMSTAt(i))
	return RaDecFromVector(gs.Sub(ephem.PositionAt(i)))
}

// stationECI converts a ground site to ECI kilometres given the sidereal
// angle. A spherical Earth is adequate for contact geometry here.
func stationECI(station model.GroundStation, gmst float64) Vec3 {
	lat := station.LatitudeDeg * degToRad
	lon := station.LongitudeDeg * degToRad
	r := EarthRadiusKm + station.ElevationM/1000.0

	// ECEF, then rotate east by GMST into ECI.
	x := r * math.Cos(lat) * math.Cos(lon)
	y := r * math.Cos(lat) * math.Sin(lon)
	z := r * math.Sin(lat)

	sin, cos := math.Sin(gmst), math.Cos(gmst)
	return Vec3{
		X: x*cos - y*sin,
		Y: x*sin + y*cos,
		Z: z,
	}
}
