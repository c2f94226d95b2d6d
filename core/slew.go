// core/slew.go
package core

import (
	"fmt"
	"math"
	"time"

	"github.com/signalsfoundry/conops-simulator/model"
)

// slewPathSteps is the number of interior great-circle samples kept on a
// predicted slew path.
const slewPathSteps = 20

// Slew is a commanded pointing change with bang-bang kinematics. Start may
// be rewritten once (to the actual current pointing) before activation;
// derived fields recompute whenever the endpoints change.
type Slew struct {
	cfg AttitudeControl

	Start model.RaDec
	End   model.RaDec

	// StartTime is the scheduled start of the maneuver.
	StartTime time.Time
	// Requested is when the slew was asked for, for bookkeeping.
	Requested time.Time

	// Derived by Recompute.
	SlewDuration time.Duration
	Dist         float64
	Path         []model.RaDec

	ObsType model.ObservingType
	Target  int
}

// NewSlew builds a slew with derived duration, distance, and path.
func NewSlew(cfg AttitudeControl, start, end model.RaDec, startTime time.Time, obsType model.ObservingType, targetID int) *Slew {
	s := &Slew{
		cfg:       cfg,
		Start:     start,
		End:       end,
		StartTime: startTime,
		ObsType:   obsType,
		Target:    targetID,
	}
	s.Recompute()
	return s
}

// Recompute rederives distance, path, and duration from the current
// endpoints. Duration is rounded to whole seconds, matching command timing
// granularity.
func (s *Slew) Recompute() {
	s.Dist, s.Path = s.cfg.PredictPath(s.Start, s.End, slewPathSteps)
	secs := math.Round(s.cfg.SlewTime(s.Dist))
	s.SlewDuration = time.Duration(secs) * time.Second
}

// SetStart rewrites the start pointing and rederives everything that
// depends on it.
func (s *Slew) SetStart(p model.RaDec) {
	s.Start = p
	s.Recompute()
}

func (s *Slew) StartPointing() model.RaDec { return s.Start }
func (s *Slew) EndPointing() model.RaDec   { return s.End }
func (s *Slew) ScheduledStart() time.Time  { return s.StartTime }
func (s *Slew) Duration() time.Duration    { return s.SlewDuration }
func (s *Slew) Distance() float64          { return s.Dist }
func (s *Slew) Tag() model.ObservingType   { return s.ObsType }
func (s *Slew) TargetID() int              { return s.Target }

// EndTime is when the maneuver (including settle) completes.
func (s *Slew) EndTime() time.Time {
	return s.StartTime.Add(s.SlewDuration)
}

// InProgress reports whether t falls inside [start, start+duration).
func (s *Slew) InProgress(t time.Time) bool {
	return !t.Before(s.StartTime) && t.Before(s.EndTime())
}

// Pointing returns the boresight at t: the start pointing before the
// maneuver, the end pointing after it, and the great-circle position given
// by the inverse bang-bang profile in between. Never linear RA/Dec
// interpolation, which misbehaves near the RA wrap and the poles.
func (s *Slew) Pointing(t time.Time) model.RaDec {
	if t.Before(s.StartTime) {
		return s.Start
	}
	if s.Dist <= 0 || !t.Before(s.EndTime()) {
		return s.End
	}
	elapsed := t.Sub(s.StartTime).Seconds()
	covered := s.cfg.DistanceAt(s.Dist, elapsed)
	return greatCirclePoint(s.Start, s.End, covered/s.Dist)
}

func (s *Slew) String() string {
	return fmt.Sprintf("Slew from %.3f,%.3f to %.3f,%.3f (%.1f deg, %s, %s)",
		s.Start.RA, s.Start.Dec, s.End.RA, s.End.Dec, s.Dist, s.SlewDuration, s.ObsType)
}

// greatCirclePoint returns the point a fraction f along the shorter
// great-circle arc from a to b, f clamped to [0, 1].
func greatCirclePoint(a, b model.RaDec, f float64) model.RaDec {
	if f <= 0 {
		return a
	}
	if f >= 1 {
		return b
	}
	va := UnitVector(a)
	vb := UnitVector(b)

	cosSep := va.Dot(vb)
	if cosSep > 1 {
		cosSep = 1
	} else if cosSep < -1 {
		cosSep = -1
	}
	sep := math.Acos(cosSep)
	sinSep := math.Sin(sep)
	if sinSep < 1e-12 {
		return a
	}

	wa := math.Sin((1-f)*sep) / sinSep
	wb := math.Sin(f*sep) / sinSep
	return RaDecFromVector(Vec3{
		X: wa*va.X + wb*vb.X,
		Y: wa*va.Y + wb*vb.Y,
		Z: wa*va.Z + wb*vb.Z,
	})
}
