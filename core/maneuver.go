// core/maneuver.go
package core

import (
	"time"

	"github.com/signalsfoundry/conops-simulator/model"
)

// Maneuver is the shared capability of anything that moves the spacecraft
// boresight: a plain slew or the pre-contact slew of a ground station pass.
// Implementations are *Slew and *Pass; dispatch on the concrete type is done
// with exhaustive switches in the ACS.
type Maneuver interface {
	// StartPointing is where the maneuver begins.
	StartPointing() model.RaDec
	// EndPointing is where the maneuver settles.
	EndPointing() model.RaDec
	// ScheduledStart is when the maneuver begins executing.
	ScheduledStart() time.Time
	// Duration is the full maneuver time including settle.
	Duration() time.Duration
	// Distance is the great-circle arc length in degrees.
	Distance() float64
	// InProgress reports whether the maneuver is mid-flight at t.
	InProgress(t time.Time) bool
	// Tag classifies the pointing the maneuver heads toward.
	Tag() model.ObservingType
	// TargetID identifies the observation or contact being served.
	TargetID() int
	// Pointing returns the boresight direction at t.
	Pointing(t time.Time) model.RaDec
}

// ManeuverID indexes a maneuver in the arena. The zero value means "none".
type ManeuverID int

// NoManeuver is the null maneuver reference.
const NoManeuver ManeuverID = 0

// ManeuverArena owns every maneuver the ACS has activated. Holders keep
// stable ids rather than pointers, so a logically retired maneuver can still
// be inspected (for in-flight timing fields) without dangling references.
// Single-owner, not safe for concurrent use.
type ManeuverArena struct {
	items []Maneuver
}

// Add stores m and returns its id. Ids start at 1 and are never reused.
func (a *ManeuverArena) Add(m Maneuver) ManeuverID {
	a.items = append(a.items, m)
	return ManeuverID(len(a.items))
}

// Get returns the maneuver for id, or nil for NoManeuver or an unknown id.
func (a *ManeuverArena) Get(id ManeuverID) Maneuver {
	if id <= 0 || int(id) > len(a.items) {
		return nil
	}
	return a.items[id-1]
}

// Len returns how many maneuvers have been stored.
func (a *ManeuverArena) Len() int {
	return len(a.items)
}
