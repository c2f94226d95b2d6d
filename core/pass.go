// core/pass.go
package core

import (
	"fmt"
	"math"
	"time"

	"github.com/signalsfoundry/conops-simulator/model"
)

// PassState tracks the pre-slew decision for a contact. Abandoned is
// terminal.
type PassState int

const (
	PassPending PassState = iota
	PassStarted
	PassAbandoned
)

func (s PassState) String() string {
	switch s {
	case PassPending:
		return "PENDING"
	case PassStarted:
		return "STARTED"
	case PassAbandoned:
		return "ABANDONED"
	default:
		return fmt.Sprintf("PASSSTATE(%d)", int(s))
	}
}

// Pass is a ground station contact window: the maneuver to the contact
// pointing plus the dwell phase in which the spacecraft tracks the station.
// A pass contains its pre-slew rather than being one.
type Pass struct {
	PreSlew *Slew

	Station string
	Begin   time.Time
	Length  time.Duration

	// Station pointing at contact start and end.
	ContactStart model.RaDec
	ContactEnd   model.RaDec

	// Recorded pointing profile during the dwell, one entry per ephemeris
	// sample inside the contact.
	Times []time.Time
	Track []model.RaDec

	// Possible flips false at most once (abandonment) and never reverts.
	Possible bool

	RequiredStart time.Time
	Lateness      time.Duration

	Target int

	state        PassState
	grace        time.Duration
	stepSize     time.Duration
	cachedInputs [4]float64
	haveCached   bool
}

// NewPass builds a pass whose pre-slew ends at the contact-start pointing.
// stepSize is the ephemeris sample step; it becomes the pre-slew grace
// window.
func NewPass(cfg AttitudeControl, station string, begin time.Time, length time.Duration, contactStart, contactEnd model.RaDec, stepSize time.Duration) *Pass {
	return &Pass{
		PreSlew:      NewSlew(cfg, model.RaDec{}, contactStart, time.Time{}, model.ObservingGroundContact, 0xFFFF),
		Station:      station,
		Begin:        begin,
		Length:       length,
		ContactStart: contactStart,
		ContactEnd:   contactEnd,
		Possible:     true,
		Target:       0xFFFF,
		stepSize:     stepSize,
	}
}

// End is when the contact finishes: begin + length, always.
func (p *Pass) End() time.Time {
	return p.Begin.Add(p.Length)
}

// DwellStart is when the pre-slew settles, i.e. when tracking begins.
func (p *Pass) DwellStart() time.Time {
	return p.PreSlew.EndTime()
}

// State reports the pre-slew decision state.
func (p *Pass) State() PassState {
	return p.state
}

// InContact reports whether t falls inside the tracked dwell window, from
// pre-slew settle until the contact closes.
func (p *Pass) InContact(t time.Time) bool {
	return p.Possible && !t.Before(p.DwellStart()) && t.Before(p.End())
}

func (p *Pass) StartPointing() model.RaDec { return p.PreSlew.Start }
func (p *Pass) EndPointing() model.RaDec   { return p.ContactStart }
func (p *Pass) ScheduledStart() time.Time  { return p.PreSlew.StartTime }
func (p *Pass) Duration() time.Duration    { return p.PreSlew.SlewDuration }
func (p *Pass) Distance() float64          { return p.PreSlew.Dist }
func (p *Pass) Tag() model.ObservingType   { return model.ObservingGroundContact }
func (p *Pass) TargetID() int              { return p.Target }

// InProgress reports whether the pre-contact maneuver is mid-flight at t.
// The dwell phase is covered separately by InContact.
func (p *Pass) InProgress(t time.Time) bool {
	return p.PreSlew.InProgress(t)
}

// Pointing returns the boresight at t: the pre-slew arc before the contact
// begins, the recorded station track during (and, clamped, after) it.
func (p *Pass) Pointing(t time.Time) model.RaDec {
	if t.Before(p.Begin) {
		return p.PreSlew.Pointing(t)
	}
	return p.trackPointing(t)
}

// trackPointing linearly interpolates the recorded dwell samples. RA values
// are unwrapped first so interpolation never takes the long way around the
// 360/0 boundary.
func (p *Pass) trackPointing(t time.Time) model.RaDec {
	if len(p.Times) == 0 {
		return p.ContactStart
	}
	if !t.After(p.Times[0]) {
		return p.Track[0]
	}
	last := len(p.Times) - 1
	if !t.Before(p.Times[last]) {
		return p.Track[last]
	}

	i := 1
	for i < len(p.Times) && p.Times[i].Before(t) {
		i++
	}
	t0, t1 := p.Times[i-1], p.Times[i]
	f := t.Sub(t0).Seconds() / t1.Sub(t0).Seconds()

	ra0 := p.Track[i-1].RA
	ra1 := unwrapNear(p.Track[i].RA, ra0)
	ra := math.Mod(ra0+f*(ra1-ra0), 360)
	if ra < 0 {
		ra += 360
	}
	dec := p.Track[i-1].Dec + f*(p.Track[i].Dec-p.Track[i-1].Dec)
	return model.RaDec{RA: ra, Dec: dec}
}

// ShouldStartSlew decides whether the pre-contact slew must start now.
// Pending passes start on time or within the grace window after the
// required start; later than that the pass is abandoned for good. The
// decision memoizes the (start, end) pointing pair on exact equality:
// any change, however small, forces a kinematics recompute, which also
// rederives the grace window as one ephemeris sample step.
func (p *Pass) ShouldStartSlew(now time.Time) bool {
	if p.state == PassAbandoned || !p.Possible {
		return false
	}
	if p.state == PassStarted {
		return false
	}

	// Current pointing unknown while the target is known: cannot decide yet.
	if p.PreSlew.Start.IsZero() && !p.ContactStart.IsZero() {
		return false
	}

	p.PreSlew.End = p.ContactStart
	inputs := [4]float64{p.PreSlew.Start.RA, p.PreSlew.Start.Dec, p.PreSlew.End.RA, p.PreSlew.End.Dec}
	if !p.haveCached || inputs != p.cachedInputs {
		p.PreSlew.Recompute()
		p.cachedInputs = inputs
		p.haveCached = true
		p.grace = p.stepSize
	}

	p.RequiredStart = p.Begin.Add(-p.PreSlew.SlewDuration)
	delta := now.Sub(p.RequiredStart)

	switch {
	case delta < -p.grace:
		// Too early.
		return false
	case delta <= p.grace:
		p.Lateness = delta
		p.state = PassStarted
		p.PreSlew.StartTime = now
		return true
	default:
		p.state = PassAbandoned
		p.Possible = false
		return false
	}
}

// Overlaps reports whether two contact windows intersect.
func (p *Pass) Overlaps(other *Pass) bool {
	return p.Begin.Before(other.End()) && other.Begin.Before(p.End())
}

func (p *Pass) String() string {
	return fmt.Sprintf("%s  %-3s  %.1f mins", p.Begin.UTC().Format("2006-002-15:04:05"), p.Station, p.Length.Minutes())
}

// unwrapNear shifts angle by whole turns until it is within half a turn of
// ref.
func unwrapNear(angle, ref float64) float64 {
	for angle-ref > 180 {
		angle -= 360
	}
	for angle-ref < -180 {
		angle += 360
	}
	return angle
}
