// core/fault.go
package core

import (
	"context"
	"time"

	"github.com/signalsfoundry/conops-simulator/internal/logging"
)

// FaultCondition classifies a monitored parameter.
type FaultCondition string

const (
	FaultNominal FaultCondition = "nominal"
	FaultYellow  FaultCondition = "yellow"
	FaultRed     FaultCondition = "red"
)

// ThresholdDirection states which side of the thresholds is bad.
type ThresholdDirection string

const (
	// DirectionBelow alarms when the value drops under the thresholds
	// (battery state of charge).
	DirectionBelow ThresholdDirection = "below"
	// DirectionAbove alarms when the value exceeds them (temperatures,
	// recorder fill).
	DirectionAbove ThresholdDirection = "above"
)

// FaultThreshold is the yellow/red limit pair for one parameter.
type FaultThreshold struct {
	Name      string             `json:"name"`
	Yellow    float64            `json:"yellow"`
	Red       float64            `json:"red"`
	Direction ThresholdDirection `json:"direction"`
}

// Classify maps a value to a condition.
func (t FaultThreshold) Classify(value float64) FaultCondition {
	if t.Direction == DirectionAbove {
		switch {
		case value >= t.Red:
			return FaultRed
		case value >= t.Yellow:
			return FaultYellow
		default:
			return FaultNominal
		}
	}
	switch {
	case value <= t.Red:
		return FaultRed
	case value <= t.Yellow:
		return FaultYellow
	default:
		return FaultNominal
	}
}

// FaultState accumulates how long a parameter has spent out of limits.
type FaultState struct {
	YellowTime time.Duration
	RedTime    time.Duration
	Current    FaultCondition
}

// FaultManagement monitors configured parameters each tick, classifies them
// into nominal/yellow/red, and latches a safe-mode request on the first red
// condition where the policy asks for it. The simulation loop consumes the
// request by enqueueing an EnterSafeMode command.
type FaultManagement struct {
	log logging.Logger

	thresholds map[string]FaultThreshold
	states     map[string]*FaultState

	// SafeModeOnRed enters safe mode for any red condition.
	SafeModeOnRed bool

	safeModeRequested bool
}

// NewFaultManagement builds an empty monitor with the safe-mode-on-red
// policy enabled.
func NewFaultManagement(log logging.Logger) *FaultManagement {
	if log == nil {
		log = logging.Noop()
	}
	return &FaultManagement{
		log:           log,
		thresholds:    make(map[string]FaultThreshold),
		states:        make(map[string]*FaultState),
		SafeModeOnRed: true,
	}
}

// AddThreshold registers or replaces the limits for a parameter.
func (fm *FaultManagement) AddThreshold(name string, yellow, red float64, direction ThresholdDirection) {
	fm.thresholds[name] = FaultThreshold{
		Name:      name,
		Yellow:    yellow,
		Red:       red,
		Direction: direction,
	}
}

// Check evaluates all monitored parameters at now. Unmonitored values are
// ignored. The acs argument suppresses re-requests once safe mode is
// already latched; nil is allowed.
func (fm *FaultManagement) Check(values map[string]float64, now time.Time, step time.Duration, acs *ACS) map[string]FaultCondition {
	classifications := make(map[string]FaultCondition, len(values))
	for name, value := range values {
		threshold, ok := fm.thresholds[name]
		if !ok {
			continue
		}
		condition := threshold.Classify(value)
		classifications[name] = condition

		st := fm.ensureState(name)
		switch condition {
		case FaultYellow:
			st.YellowTime += step
		case FaultRed:
			st.RedTime += step
		}
		if condition != st.Current {
			fm.log.Warn(context.Background(), "fault condition changed",
				logging.String("parameter", name),
				logging.String("condition", string(condition)),
				logging.Float64("value", value),
			)
		}
		st.Current = condition

		if condition == FaultRed && fm.SafeModeOnRed {
			if acs == nil || !acs.InSafeMode() {
				fm.safeModeRequested = true
			}
		}
	}
	return classifications
}

// SafeModeRequested reports and clears the latched request.
func (fm *FaultManagement) SafeModeRequested() bool {
	requested := fm.safeModeRequested
	fm.safeModeRequested = false
	return requested
}

// States returns the accumulated per-parameter statistics.
func (fm *FaultManagement) States() map[string]*FaultState {
	return fm.states
}

func (fm *FaultManagement) ensureState(name string) *FaultState {
	st, ok := fm.states[name]
	if !ok {
		st = &FaultState{Current: FaultNominal}
		fm.states[name] = st
	}
	return st
}
