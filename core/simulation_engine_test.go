package core

import (
	"testing"
	"time"

	"github.com/signalsfoundry/conops-simulator/model"
)

const engineStep = 10 * time.Second

func executedTypes(acs *ACS) map[CommandType]int {
	counts := make(map[CommandType]int)
	for _, cmd := range acs.ExecutedCommands() {
		counts[cmd.Type]++
	}
	return counts
}

func TestEngineEmergencyChargeCycle(t *testing.T) {
	orbit := &stubOrbit{earth: pointing(30, 10), step: engineStep}
	acs := newTestACS(t, orbit)
	battery := NewBattery(1, 10) // 10 Wh, small enough to cycle quickly

	// Pull the battery down to half charge to trip the alert.
	battery.Drain(1800, engineStep)
	if !battery.Alert() {
		t.Fatalf("battery at %v not alerting", battery.Level())
	}

	engine := NewSimulationEngine(acs, battery, nil, engineStep, nil)
	engine.ChargePointing = func(time.Time) model.RaDec { return pointing(180, 0) }

	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	engine.Step(now)

	counts := executedTypes(acs)
	if counts[CommandStartBatteryCharge] != 1 {
		t.Fatalf("charge commands executed = %d, want 1", counts[CommandStartBatteryCharge])
	}
	if acs.Mode() != model.ModeCharging {
		t.Fatalf("mode = %v, want CHARGING in sunlight", acs.Mode())
	}

	before := battery.Level()
	for i := 1; i <= 20; i++ {
		engine.Step(now.Add(time.Duration(i) * engineStep))
	}
	if battery.Level() <= before {
		t.Fatalf("battery level %v did not rise while charging (was %v)", battery.Level(), before)
	}

	counts = executedTypes(acs)
	if counts[CommandEndBatteryCharge] != 1 {
		t.Fatalf("end-charge commands executed = %d, want 1 after recovery", counts[CommandEndBatteryCharge])
	}
	if counts[CommandStartBatteryCharge] != 1 {
		t.Fatalf("charge re-requested during a single alert cycle")
	}
}

func TestEngineRedFaultEntersSafeModeOnce(t *testing.T) {
	orbit := &stubOrbit{earth: pointing(30, 10), step: engineStep, eclipsed: true}
	acs := newTestACS(t, orbit)
	battery := NewBattery(1, 10)
	battery.Drain(2520, engineStep) // down to 0.3

	faults := NewFaultManagement(nil)
	faults.AddThreshold("battery_soc", 0.6, 0.4, DirectionBelow)

	engine := NewSimulationEngine(acs, battery, faults, engineStep, nil)

	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	engine.Step(now)
	if acs.InSafeMode() {
		t.Fatalf("safe mode latched before the command could execute")
	}

	engine.Step(now.Add(engineStep))
	if !acs.InSafeMode() {
		t.Fatalf("red battery fault did not reach safe mode")
	}

	// Once latched, the monitor must not keep re-requesting.
	for i := 2; i <= 6; i++ {
		engine.Step(now.Add(time.Duration(i) * engineStep))
	}
	if got := executedTypes(acs)[CommandEnterSafeMode]; got != 1 {
		t.Fatalf("EnterSafeMode executed %d times, want 1", got)
	}
}

func TestEngineBatteryBudget(t *testing.T) {
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

	t.Run("sunlit science drains net of passive solar", func(t *testing.T) {
		orbit := &stubOrbit{earth: pointing(30, 10), step: engineStep}
		acs := newTestACS(t, orbit)
		battery := NewBattery(40, 28)
		engine := NewSimulationEngine(acs, battery, nil, engineStep, nil)
		engine.LoadPower = map[string]float64{"SCIENCE": 253}

		engine.Step(now)

		// Load 253 W against 800*0.3 = 240 W passive solar for 10 s.
		wantDrop := (253 - 240) * engineStep.Seconds() / 3600 / battery.WattHour
		got := 1 - battery.Level()
		if !almostEqual(got, wantDrop, 1e-9) {
			t.Fatalf("level drop = %v, want %v", got, wantDrop)
		}
	})

	t.Run("eclipse gets no solar input", func(t *testing.T) {
		orbit := &stubOrbit{earth: pointing(30, 10), step: engineStep, eclipsed: true}
		acs := newTestACS(t, orbit)
		battery := NewBattery(40, 28)
		engine := NewSimulationEngine(acs, battery, nil, engineStep, nil)

		engine.Step(now)

		wantDrop := 253 * engineStep.Seconds() / 3600 / battery.WattHour
		got := 1 - battery.Level()
		if !almostEqual(got, wantDrop, 1e-9) {
			t.Fatalf("level drop = %v, want %v", got, wantDrop)
		}
	})
}

func TestEngineRunsContactLifecycle(t *testing.T) {
	orbit := &stubOrbit{earth: pointing(30, 10), step: engineStep}
	acs := newTestACS(t, orbit)
	engine := NewSimulationEngine(acs, nil, nil, engineStep, nil)

	start := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	begin := start.Add(20 * time.Minute)
	p := NewPass(DefaultAttitudeControl(), "SGS", begin, 10*time.Minute, pointing(120, 30), pointing(140, 35), engineStep)
	if !acs.RequestGroundContact(p) {
		t.Fatalf("contact rejected")
	}

	var started []*Pass
	engine.OnPassStart = func(p *Pass) { started = append(started, p) }

	sawPass := false
	end := p.End().Add(2 * engineStep)
	for now := start; !now.After(end); now = now.Add(engineStep) {
		engine.Step(now)
		if acs.Mode() == model.ModePass {
			sawPass = true
		}
	}

	if len(started) != 1 || started[0] != p {
		t.Fatalf("pass start hook fired %d times, want once with the pass", len(started))
	}
	if p.Target != 0xFFFF {
		t.Fatalf("pass target = %#x, want the no-science placeholder", p.Target)
	}
	if !sawPass {
		t.Fatalf("mode never reached PASS during the window")
	}
	if acs.Mode() != model.ModeScience {
		t.Fatalf("mode after the window = %v, want SCIENCE", acs.Mode())
	}
	if executedTypes(acs)[CommandEndPass] != 1 {
		t.Fatalf("EndPass not executed exactly once")
	}
}

func TestEngineSafeModeBlocksContacts(t *testing.T) {
	orbit := &stubOrbit{earth: pointing(30, 10), step: engineStep}
	acs := newTestACS(t, orbit)
	engine := NewSimulationEngine(acs, nil, nil, engineStep, nil)

	start := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	begin := start.Add(20 * time.Minute)
	p := NewPass(DefaultAttitudeControl(), "SGS", begin, 10*time.Minute, pointing(120, 30), pointing(140, 35), engineStep)
	acs.RequestGroundContact(p)

	acs.Enqueue(&Command{Type: CommandEnterSafeMode, ExecutionTime: start})

	var started int
	engine.OnPassStart = func(*Pass) { started++ }

	for now := start; now.Before(p.End()); now = now.Add(engineStep) {
		engine.Step(now)
	}
	if started != 0 {
		t.Fatalf("contact pre-slew started %d times in safe mode, want 0", started)
	}
	if executedTypes(acs)[CommandStartPass] != 0 {
		t.Fatalf("StartPass executed in safe mode")
	}
}

func TestEngineTickListeners(t *testing.T) {
	orbit := &stubOrbit{earth: pointing(30, 10), step: engineStep}
	acs := newTestACS(t, orbit)
	engine := NewSimulationEngine(acs, nil, nil, engineStep, nil)

	var seen []time.Time
	engine.RegisterTickListener(func(now time.Time) { seen = append(seen, now) })

	start := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	engine.Run(t.Context(), start, 3)

	if len(seen) != 3 {
		t.Fatalf("listener fired %d times, want 3", len(seen))
	}
	if !seen[2].Equal(start.Add(2 * engineStep)) {
		t.Fatalf("last tick = %v, want start+2 steps", seen[2])
	}
}
