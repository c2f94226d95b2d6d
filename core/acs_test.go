package core

import (
	"testing"
	"time"

	"github.com/signalsfoundry/conops-simulator/model"
)

// stubOrbit is a fixed-answer Ephemeris, Constraint, and SAAPredicate for
// driving the ACS without a real orbit.
type stubOrbit struct {
	earth    model.RaDec
	step     time.Duration
	eclipsed bool
	occulted bool
	inSAA    bool
}

func (s *stubOrbit) EarthPointing(time.Time) model.RaDec { return s.earth }
func (s *stubOrbit) StepSize() time.Duration { return s.step }
func (s *stubOrbit) InEclipse(ra, dec float64, t time.Time) bool { return s.eclipsed }
func (s *stubOrbit) InOccultation(ra, dec float64, t time.Time) bool { return s.occulted }
func (s *stubOrbit) InSAA(t time.Time) bool { return s.inSAA }

func newTestACS(t *testing.T, orbit *stubOrbit) *ACS {
	t.Helper()
	cfg := ACSConfig{
		AttitudeControl: DefaultAttitudeControl(),
		SafePointing:    pointing(260, -23.5),
		SafeTargetID:    9000,
	}
	acs, err := NewACS(orbit, orbit, cfg, nil)
	if err != nil {
		t.Fatalf("NewACS: %v", err)
	}
	acs.SetSAA(orbit)
	return acs
}

func TestNewACSRequiresCollaborators(t *testing.T) {
	cfg := ACSConfig{AttitudeControl: DefaultAttitudeControl()}
	if _, err := NewACS(nil, &stubOrbit{}, cfg, nil); err == nil {
		t.Fatalf("expected error for nil ephemeris")
	}
	if _, err := NewACS(&stubOrbit{}, nil, cfg, nil); err == nil {
		t.Fatalf("expected error for nil constraint")
	}
}

func TestTickSentinelBeforeAnyManeuver(t *testing.T) {
	orbit := &stubOrbit{earth: pointing(45, -10), step: 10 * time.Second}
	acs := newTestACS(t, orbit)

	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	ra, dec, _, target := acs.Tick(now)

	if target != model.SentinelTargetID {
		t.Fatalf("target = %d, want sentinel %d", target, model.SentinelTargetID)
	}
	if !almostEqual(ra, 45, 1e-9) || !almostEqual(dec, -10, 1e-9) {
		t.Fatalf("pointing = (%v, %v), want sub-spacecraft point", ra, dec)
	}
	if acs.Mode() != model.ModeScience {
		t.Fatalf("mode = %v, want SCIENCE", acs.Mode())
	}
}

func TestScienceSlewLifecycle(t *testing.T) {
	orbit := &stubOrbit{earth: pointing(0, 0), step: 10 * time.Second}
	acs := newTestACS(t, orbit)
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

	if !acs.RequestSlew(pointing(90, 0), 42, now) {
		t.Fatalf("slew request rejected")
	}

	_, _, _, target := acs.Tick(now)
	if target != 42 {
		t.Fatalf("target after start = %d, want 42", target)
	}
	if acs.Mode() != model.ModeSlewing {
		t.Fatalf("mode mid-slew = %v, want SLEWING", acs.Mode())
	}

	// Mid-flight the boresight has left the start but not arrived.
	acs.Tick(now.Add(3 * time.Minute))
	p := acs.Pointing()
	if p.RA <= 0 || p.RA >= 90 {
		t.Fatalf("mid-flight RA = %v, want inside (0, 90)", p.RA)
	}

	// 90 deg at defaults takes 481s; after that the slew is done.
	ra, dec, _, target := acs.Tick(now.Add(482 * time.Second))
	if acs.Mode() != model.ModeScience {
		t.Fatalf("mode after slew = %v, want SCIENCE", acs.Mode())
	}
	if !almostEqual(ra, 90, 1e-6) || !almostEqual(dec, 0, 1e-6) {
		t.Fatalf("pointing after slew = (%v, %v), want (90, 0)", ra, dec)
	}
	if target != 42 {
		t.Fatalf("target after slew = %d, want 42", target)
	}
}

func TestRequestSlewRejectsOccultedTarget(t *testing.T) {
	orbit := &stubOrbit{earth: pointing(0, 0), step: 10 * time.Second, occulted: true}
	acs := newTestACS(t, orbit)
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

	if acs.RequestSlew(pointing(90, 0), 42, now) {
		t.Fatalf("occulted science target accepted")
	}
	if acs.QueueLen() != 0 {
		t.Fatalf("rejected request left a queued command")
	}
}

func TestChargeRequestChainsSlewSameTick(t *testing.T) {
	orbit := &stubOrbit{earth: pointing(0, 0), step: 10 * time.Second}
	acs := newTestACS(t, orbit)
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

	acs.RequestCharge(now, pointing(180, 0), 7)
	acs.Tick(now)

	// The charge command enqueues the slew for the same instant; both must
	// have executed in one tick.
	if got := len(acs.ExecutedCommands()); got != 2 {
		t.Fatalf("executed %d commands, want 2 (charge + chained slew)", got)
	}
	if acs.Mode() != model.ModeCharging {
		t.Fatalf("mode = %v, want CHARGING in sunlight", acs.Mode())
	}
}

func TestChargeManeuverInEclipseIsSlewing(t *testing.T) {
	orbit := &stubOrbit{earth: pointing(0, 0), step: 10 * time.Second, eclipsed: true}
	acs := newTestACS(t, orbit)
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

	acs.RequestCharge(now, pointing(180, 0), 7)
	acs.Tick(now)

	if acs.Mode() != model.ModeSlewing {
		t.Fatalf("mode = %v, want SLEWING for an eclipsed charge maneuver", acs.Mode())
	}
}

func TestChargeDwellHoldsUntilCommandedAway(t *testing.T) {
	orbit := &stubOrbit{earth: pointing(0, 0), step: 10 * time.Second}
	acs := newTestACS(t, orbit)
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

	acs.RequestCharge(now, pointing(90, 0), 7)
	acs.Tick(now)

	// Long after the maneuver settles the spacecraft is still charging.
	acs.Tick(now.Add(2 * time.Hour))
	if acs.Mode() != model.ModeCharging {
		t.Fatalf("mode during charge dwell = %v, want CHARGING", acs.Mode())
	}
}

func TestEndChargeReturnsToLastScience(t *testing.T) {
	orbit := &stubOrbit{earth: pointing(0, 0), step: 10 * time.Second}
	acs := newTestACS(t, orbit)
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

	acs.RequestSlew(pointing(90, 0), 42, now)
	acs.Tick(now)
	settled := now.Add(482 * time.Second)
	acs.Tick(settled)

	acs.RequestCharge(settled, pointing(180, 0), 7)
	acs.Tick(settled)
	chargeDone := settled.Add(time.Hour)
	acs.Tick(chargeDone)

	acs.RequestEndCharge(chargeDone)
	acs.Tick(chargeDone)

	last := acs.ExecutedCommands()[len(acs.ExecutedCommands())-1]
	if last.Type != CommandSlewToTarget {
		t.Fatalf("last executed = %v, want the return slew", last.Type)
	}
	if s, ok := last.Maneuver.(*Slew); !ok || s.End != pointing(90, 0) || s.Target != 42 {
		t.Fatalf("return slew = %+v, want back to target 42 at (90, 0)", last.Maneuver)
	}
}

func TestEndChargeWithoutScienceIsNoop(t *testing.T) {
	orbit := &stubOrbit{earth: pointing(0, 0), step: 10 * time.Second}
	acs := newTestACS(t, orbit)
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

	acs.RequestEndCharge(now)
	acs.Tick(now)

	// Only the end-charge command itself: no slew was produced.
	if got := len(acs.ExecutedCommands()); got != 1 {
		t.Fatalf("executed %d commands, want 1", got)
	}
	if got := len(acs.SlewDistances()); got != 0 {
		t.Fatalf("slews built = %d, want 0", got)
	}
}

func TestSAAModeWhenIdle(t *testing.T) {
	orbit := &stubOrbit{earth: pointing(0, 0), step: 10 * time.Second, inSAA: true}
	acs := newTestACS(t, orbit)
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

	acs.Tick(now)
	if acs.Mode() != model.ModeSAA {
		t.Fatalf("mode = %v, want SAA", acs.Mode())
	}

	// An active maneuver outranks the SAA region.
	acs.RequestSlew(pointing(90, 0), 42, now)
	acs.Tick(now)
	if acs.Mode() != model.ModeSlewing {
		t.Fatalf("mode = %v, want SLEWING while a maneuver is active", acs.Mode())
	}
}

func TestGroundContactLifecycle(t *testing.T) {
	orbit := &stubOrbit{earth: pointing(0, 0), step: 10 * time.Second}
	acs := newTestACS(t, orbit)
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

	// Aim the spacecraft somewhere definite first.
	acs.RequestSlew(pointing(10, 0), 42, now)
	acs.Tick(now)
	settled := now.Add(200 * time.Second)
	acs.Tick(settled)

	begin := settled.Add(30 * time.Minute)
	p := NewPass(DefaultAttitudeControl(), "SGS", begin, 10*time.Minute, pointing(120, 30), pointing(140, 35), orbit.step)
	if !acs.RequestGroundContact(p) {
		t.Fatalf("contact rejected")
	}

	// Walk the schedule until the pre-slew is due.
	var started bool
	for tick := settled; tick.Before(begin); tick = tick.Add(orbit.step) {
		actions := acs.CheckContacts(tick)
		if actions.Start != nil {
			acs.Enqueue(NewStartPassCommand(actions.Start, tick))
			acs.Tick(tick)
			started = true
			break
		}
		acs.Tick(tick)
	}
	if !started {
		t.Fatalf("pre-slew never became due")
	}
	if acs.Mode() != model.ModePass {
		t.Fatalf("mode during pre-slew = %v, want PASS", acs.Mode())
	}

	// The dwell keeps PASS mode after the pre-slew settles.
	acs.Tick(begin.Add(time.Minute))
	if acs.Mode() != model.ModePass {
		t.Fatalf("mode during dwell = %v, want PASS", acs.Mode())
	}

	// Window closed: end the contact.
	after := p.End().Add(orbit.step)
	acs.Enqueue(&Command{Type: CommandEndPass, ExecutionTime: after})
	acs.Tick(after)
	if acs.Mode() != model.ModeScience {
		t.Fatalf("mode after contact = %v, want SCIENCE", acs.Mode())
	}
}

func TestOverlappingContactRejected(t *testing.T) {
	orbit := &stubOrbit{earth: pointing(0, 0), step: 10 * time.Second}
	acs := newTestACS(t, orbit)
	begin := time.Date(2026, time.June, 1, 6, 0, 0, 0, time.UTC)

	first := NewPass(DefaultAttitudeControl(), "SGS", begin, 10*time.Minute, pointing(120, 30), pointing(140, 35), orbit.step)
	second := NewPass(DefaultAttitudeControl(), "WPS", begin.Add(5*time.Minute), 10*time.Minute, pointing(200, 10), pointing(210, 12), orbit.step)

	if !acs.RequestGroundContact(first) {
		t.Fatalf("first contact rejected")
	}
	if acs.RequestGroundContact(second) {
		t.Fatalf("overlapping contact accepted")
	}
	if got := len(acs.Schedule().Passes()); got != 1 {
		t.Fatalf("schedule holds %d passes, want 1", got)
	}
}

func TestEnterSafeModeLatches(t *testing.T) {
	orbit := &stubOrbit{earth: pointing(0, 0), step: 10 * time.Second}
	acs := newTestACS(t, orbit)
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

	acs.Enqueue(&Command{Type: CommandEnterSafeMode, ExecutionTime: now})
	acs.Tick(now)

	if !acs.InSafeMode() {
		t.Fatalf("safe mode not latched")
	}
	// Safe attitude is a charge-tagged maneuver: charging in sunlight.
	if acs.Mode() != model.ModeCharging {
		t.Fatalf("mode = %v, want CHARGING at the safe attitude", acs.Mode())
	}

	// The safe slew heads for the configured attitude.
	_, _, _, target := acs.Tick(now.Add(time.Hour))
	if target != 9000 {
		t.Fatalf("target = %d, want safe target id 9000", target)
	}
	p := acs.Pointing()
	if !almostEqual(p.RA, 260, 1e-6) || !almostEqual(p.Dec, -23.5, 1e-6) {
		t.Fatalf("settled pointing = %v, want the safe attitude", p)
	}

	// Re-entry is a no-op.
	acs.Enqueue(&Command{Type: CommandEnterSafeMode, ExecutionTime: now.Add(time.Hour)})
	acs.Tick(now.Add(time.Hour))
	if !acs.InSafeMode() {
		t.Fatalf("safe mode flag lost on re-entry")
	}
}

func TestQueuedSlewWaitsForInFlightManeuver(t *testing.T) {
	orbit := &stubOrbit{earth: pointing(0, 0), step: 10 * time.Second}
	acs := newTestACS(t, orbit)
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

	acs.RequestSlew(pointing(90, 0), 11, now)
	acs.Tick(now)

	// A second request mid-flight is deferred until the first completes.
	mid := now.Add(time.Minute)
	acs.RequestSlew(pointing(180, 0), 22, mid)
	acs.Tick(mid)

	_, _, _, target := acs.Tick(mid.Add(time.Second))
	if target != 11 {
		t.Fatalf("target mid-flight = %d, want 11 (second slew not yet started)", target)
	}

	// After the first slew's end time the deferred command runs.
	_, _, _, target = acs.Tick(now.Add(482 * time.Second))
	if target != 22 {
		t.Fatalf("target after deferral = %d, want 22", target)
	}
}
