// core/kinematics.go
package core

import (
	"math"

	"github.com/signalsfoundry/conops-simulator/model"
)

// AttitudeControl holds the spacecraft attitude-control performance
// parameters used for all slew kinematics. Angles are degrees, rates deg/s,
// accelerations deg/s².
type AttitudeControl struct {
	SlewAcceleration float64 `json:"slew_acceleration"`
	MaxSlewRate      float64 `json:"max_slew_rate"`
	SlewAccuracy     float64 `json:"slew_accuracy"`
	SettleTime       float64 `json:"settle_time"`
}

// DefaultAttitudeControl returns a typical small-observatory reaction wheel
// performance profile.
func DefaultAttitudeControl() AttitudeControl {
	return AttitudeControl{
		SlewAcceleration: 0.5,
		MaxSlewRate:      0.25,
		SlewAccuracy:     0.01,
		SettleTime:       120.0,
	}
}

// MotionTime returns the time in seconds to traverse dist degrees using a
// bang-bang profile: constant acceleration up to MaxSlewRate, cruise,
// constant deceleration. Small angles never reach the rate cap and use the
// triangular form. Non-positive distance or invalid parameters give zero.
func (ac AttitudeControl) MotionTime(dist float64) float64 {
	if dist <= 0 || ac.SlewAcceleration <= 0 || ac.MaxSlewRate <= 0 {
		return 0
	}

	accelTime := ac.MaxSlewRate / ac.SlewAcceleration
	accelDist := 0.5 * ac.SlewAcceleration * accelTime * accelTime

	if dist < 2*accelDist {
		// Triangular profile: peak rate below MaxSlewRate.
		return 2 * math.Sqrt(dist/ac.SlewAcceleration)
	}

	cruiseDist := dist - 2*accelDist
	return 2*accelTime + cruiseDist/ac.MaxSlewRate
}

// SlewTime returns the full maneuver time in seconds: motion plus the fixed
// settle time. Zero for non-positive distances.
func (ac AttitudeControl) SlewTime(dist float64) float64 {
	if dist <= 0 {
		return 0
	}
	return ac.MotionTime(dist) + ac.SettleTime
}

// DistanceAt returns the arc length in degrees covered elapsed seconds into
// a maneuver of total length dist. It is the inverse of the bang-bang
// profile: 0 before motion starts, dist at or after motion completes.
// Invalid parameters fall back to a rate-capped linear estimate.
func (ac AttitudeControl) DistanceAt(dist, elapsed float64) float64 {
	if dist <= 0 || elapsed <= 0 {
		return 0
	}
	if ac.SlewAcceleration <= 0 || ac.MaxSlewRate <= 0 {
		return math.Min(math.Max(0, elapsed*ac.MaxSlewRate), dist)
	}

	a := ac.SlewAcceleration
	vmax := ac.MaxSlewRate
	accelTime := vmax / a
	accelDist := 0.5 * a * accelTime * accelTime

	if dist < 2*accelDist {
		// Triangular profile.
		peakTime := math.Sqrt(dist / a)
		total := 2 * peakTime
		switch {
		case elapsed >= total:
			return dist
		case elapsed <= peakTime:
			return 0.5 * a * elapsed * elapsed
		default:
			remain := total - elapsed
			return dist - 0.5*a*remain*remain
		}
	}

	// Trapezoidal profile.
	cruiseDist := dist - 2*accelDist
	cruiseTime := cruiseDist / vmax
	total := 2*accelTime + cruiseTime
	switch {
	case elapsed >= total:
		return dist
	case elapsed <= accelTime:
		return 0.5 * a * elapsed * elapsed
	case elapsed <= accelTime+cruiseTime:
		return accelDist + vmax*(elapsed-accelTime)
	default:
		decel := elapsed - (accelTime + cruiseTime)
		return accelDist + cruiseDist + vmax*decel - 0.5*a*decel*decel
	}
}

// PredictPath computes the great-circle distance in degrees between two
// pointings and a path of steps+2 samples evenly spaced in arc length,
// including both endpoints. The shorter arc is always taken, including
// across the RA wrap boundary. A non-finite or negative distance is clamped
// to zero rather than propagated.
func (ac AttitudeControl) PredictPath(start, end model.RaDec, steps int) (float64, []model.RaDec) {
	dist := AngularSeparation(start, end)
	if math.IsNaN(dist) || math.IsInf(dist, 0) || dist < 0 {
		dist = 0
	}
	return dist, GreatCircle(start, end, steps)
}
