package core

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/conops-simulator/internal/logging"
	"github.com/signalsfoundry/conops-simulator/model"
)

// SimulationEngine advances the whole spacecraft one tick at a time: it
// turns contact timing and fault state into ACS commands, ticks the ACS,
// and updates the battery from the resulting mode. It stands in for the
// external schedulers as the ACS's command producer.
type SimulationEngine struct {
	ACS     *ACS
	Battery *Battery
	Faults  *FaultManagement

	// ChargePointing picks the emergency-charging attitude for a given
	// time. Charging management is disabled while nil; the selection
	// algorithm is a collaborator, not something the engine invents.
	ChargePointing func(time.Time) model.RaDec
	// ChargeTargetID labels charge maneuvers in the execution log.
	ChargeTargetID int

	// OnPassStart, when set, is invoked with each contact whose pre-slew
	// just started.
	OnPassStart func(*Pass)

	// LoadPower is the bus consumption in watts per mode name. Missing
	// modes fall back to NominalPower.
	LoadPower    map[string]float64
	NominalPower float64
	// SolarPower is the panel output in sunlight at the charging attitude.
	// Off-pointed modes harvest PassiveFraction of it.
	SolarPower      float64
	PassiveFraction float64

	log           logging.Logger
	step          time.Duration
	charging      bool
	tickListeners []func(time.Time)
}

// NewSimulationEngine wires an engine around an ACS. The battery and fault
// monitor are optional; without them the engine only manages contacts.
func NewSimulationEngine(acs *ACS, battery *Battery, faults *FaultManagement, step time.Duration, log logging.Logger) *SimulationEngine {
	if log == nil {
		log = logging.Noop()
	}
	return &SimulationEngine{
		ACS:             acs,
		Battery:         battery,
		Faults:          faults,
		ChargeTargetID:  0xFFFE,
		NominalPower:    253,
		SolarPower:      800,
		PassiveFraction: 0.3,
		log:             log,
		step:            step,
	}
}

// RegisterTickListener adds a callback invoked after every tick.
func (se *SimulationEngine) RegisterTickListener(fn func(time.Time)) {
	se.tickListeners = append(se.tickListeners, fn)
}

// Run executes ticks steps starting at start, spacing them by the engine
// step. The run is wrapped in a trace span.
func (se *SimulationEngine) Run(ctx context.Context, start time.Time, ticks int) {
	tracer := otel.Tracer("conops-simulator/engine")
	ctx, span := tracer.Start(ctx, "simulation.run")
	span.SetAttributes(
		attribute.Int("ticks", ticks),
		attribute.String("start", start.UTC().Format(time.RFC3339)),
		attribute.Float64("step_seconds", se.step.Seconds()),
	)
	defer span.End()

	for i := 0; i < ticks; i++ {
		if ctx.Err() != nil {
			se.log.Warn(ctx, "simulation cancelled", logging.Int("tick", i))
			return
		}
		se.Step(start.Add(time.Duration(i) * se.step))
	}
}

// Step advances the simulation to now.
func (se *SimulationEngine) Step(now time.Time) {
	se.managePasses(now)
	se.manageCharging(now)

	se.ACS.Tick(now)

	se.updateBattery(now)
	se.checkFaults(now)

	for _, fn := range se.tickListeners {
		fn(now)
	}
}

// managePasses translates contact timing into StartPass and EndPass
// commands.
func (se *SimulationEngine) managePasses(now time.Time) {
	actions := se.ACS.CheckContacts(now)

	if actions.End {
		se.ACS.Enqueue(&Command{Type: CommandEndPass, ExecutionTime: now})
	}
	if actions.Start != nil {
		// Contacts only pre-empt science and slewing. Charging and safe
		// mode keep the spacecraft where it is.
		mode := se.ACS.Mode()
		if (mode == model.ModeScience || mode == model.ModeSlewing || mode == model.ModeSAA) && !se.ACS.InSafeMode() {
			actions.Start.Target = se.lastScienceTarget()
			se.ACS.Enqueue(NewStartPassCommand(actions.Start, now))
			if se.OnPassStart != nil {
				se.OnPassStart(actions.Start)
			}
		}
	}
}

// manageCharging requests emergency charging on a battery alert and ends it
// once the battery recovers.
func (se *SimulationEngine) manageCharging(now time.Time) {
	if se.Battery == nil || se.ChargePointing == nil || se.ACS.InSafeMode() {
		return
	}

	alert := se.Battery.Alert()
	switch {
	case alert && !se.charging:
		pointing := se.ChargePointing(now)
		se.log.Warn(context.Background(), "battery alert, requesting emergency charge",
			logging.Float64("soc", se.Battery.Level()),
			logging.Float64("ra", pointing.RA),
			logging.Float64("dec", pointing.Dec),
		)
		se.ACS.RequestCharge(now, pointing, se.ChargeTargetID)
		se.charging = true
	case !alert && se.charging:
		se.log.Info(context.Background(), "battery recovered, ending emergency charge",
			logging.Float64("soc", se.Battery.Level()),
		)
		se.ACS.RequestEndCharge(now)
		se.charging = false
	}
}

// updateBattery applies one tick of the power budget: mode-dependent load
// against solar input that depends on eclipse state and whether the
// spacecraft is at a charging attitude.
func (se *SimulationEngine) updateBattery(now time.Time) {
	if se.Battery == nil {
		return
	}

	mode := se.ACS.Mode()
	load := se.NominalPower
	if p, ok := se.LoadPower[mode.String()]; ok {
		load = p
	}

	solar := 0.0
	if !se.ACS.Eclipsed() {
		if mode == model.ModeCharging {
			solar = se.SolarPower
		} else {
			solar = se.SolarPower * se.PassiveFraction
		}
	}

	if net := solar - load; net >= 0 {
		se.Battery.Charge(net, se.step)
	} else {
		se.Battery.Drain(-net, se.step)
	}
}

// checkFaults feeds the monitor and converts a latched safe-mode request
// into an EnterSafeMode command.
func (se *SimulationEngine) checkFaults(now time.Time) {
	if se.Faults == nil {
		return
	}

	values := map[string]float64{}
	if se.Battery != nil {
		values["battery_soc"] = se.Battery.Level()
	}
	se.Faults.Check(values, now, se.step, se.ACS)

	if se.Faults.SafeModeRequested() {
		se.ACS.Enqueue(&Command{Type: CommandEnterSafeMode, ExecutionTime: now})
	}
}

func (se *SimulationEngine) lastScienceTarget() int {
	if last := se.ACS.arena.Get(se.ACS.lastScienceID); last != nil {
		return last.TargetID()
	}
	return 0xFFFF
}
