package core

import (
	"testing"
	"time"

	"github.com/signalsfoundry/conops-simulator/model"
)

func pointing(ra, dec float64) model.RaDec {
	return model.RaDec{RA: ra, Dec: dec}
}

func TestNewSlewDerivedFields(t *testing.T) {
	cfg := DefaultAttitudeControl()
	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	s := NewSlew(cfg, pointing(0, 0), pointing(90, 0), start, model.ObservingScience, 42)

	if !almostEqual(s.Dist, 90, 1e-9) {
		t.Fatalf("Dist = %v, want 90", s.Dist)
	}
	if len(s.Path) != slewPathSteps+2 {
		t.Fatalf("path length = %d, want %d", len(s.Path), slewPathSteps+2)
	}
	// 90 deg at defaults: 2*(0.25/0.5) + (90-0.125)/0.25 = 360.5s motion,
	// plus 120s settle, rounded to whole seconds.
	want := 481 * time.Second
	if s.SlewDuration != want {
		t.Fatalf("SlewDuration = %v, want %v", s.SlewDuration, want)
	}
	if s.TargetID() != 42 || s.Tag() != model.ObservingScience {
		t.Fatalf("target/tag = %d/%v, want 42/%v", s.TargetID(), s.Tag(), model.ObservingScience)
	}
}

func TestSlewDurationRoundsToWholeSeconds(t *testing.T) {
	cfg := DefaultAttitudeControl()
	s := NewSlew(cfg, pointing(0, 0), pointing(0.1, 0), time.Time{}, model.ObservingScience, 1)
	if s.SlewDuration%time.Second != 0 {
		t.Fatalf("SlewDuration = %v, want whole seconds", s.SlewDuration)
	}
}

func TestSlewInProgressWindow(t *testing.T) {
	cfg := DefaultAttitudeControl()
	start := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	s := NewSlew(cfg, pointing(0, 0), pointing(30, 0), start, model.ObservingScience, 1)

	if s.InProgress(start.Add(-time.Second)) {
		t.Fatalf("in progress before start")
	}
	if !s.InProgress(start) {
		t.Fatalf("not in progress at start (window is inclusive at start)")
	}
	if !s.InProgress(s.EndTime().Add(-time.Second)) {
		t.Fatalf("not in progress just before end")
	}
	if s.InProgress(s.EndTime()) {
		t.Fatalf("in progress at end (window is exclusive at end)")
	}
}

func TestSlewPointingFollowsGreatCircle(t *testing.T) {
	cfg := DefaultAttitudeControl()
	start := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	s := NewSlew(cfg, pointing(350, 0), pointing(10, 0), start, model.ObservingScience, 1)

	if got := s.Pointing(start.Add(-time.Minute)); got != s.Start {
		t.Fatalf("pointing before start = %v, want start %v", got, s.Start)
	}
	if got := s.Pointing(s.EndTime()); got != s.End {
		t.Fatalf("pointing at end = %v, want end %v", got, s.End)
	}

	// Mid-flight, the boresight must be on the short arc across the wrap.
	mid := s.Pointing(start.Add(s.SlewDuration / 2))
	if mid.RA > 20 && mid.RA < 340 {
		t.Fatalf("mid-flight RA %v took the long way around", mid.RA)
	}
	if !almostEqual(mid.Dec, 0, 1e-9) {
		t.Fatalf("mid-flight Dec = %v, want 0 on the equatorial arc", mid.Dec)
	}
}

func TestSlewPointingZeroDistance(t *testing.T) {
	cfg := DefaultAttitudeControl()
	start := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	p := pointing(42, 7)
	s := NewSlew(cfg, p, p, start, model.ObservingScience, 1)

	if s.Dist != 0 {
		t.Fatalf("Dist = %v, want 0", s.Dist)
	}
	if got := s.Pointing(start.Add(time.Second)); got != p {
		t.Fatalf("zero-distance pointing = %v, want held at %v", got, p)
	}
}

func TestSlewSetStartRecomputes(t *testing.T) {
	cfg := DefaultAttitudeControl()
	s := NewSlew(cfg, pointing(0, 0), pointing(90, 0), time.Time{}, model.ObservingScience, 1)
	before := s.SlewDuration

	s.SetStart(pointing(80, 0))
	if !almostEqual(s.Dist, 10, 1e-9) {
		t.Fatalf("Dist after SetStart = %v, want 10", s.Dist)
	}
	if s.SlewDuration >= before {
		t.Fatalf("duration did not shrink after moving start closer: %v >= %v", s.SlewDuration, before)
	}
	if s.Path[0] != pointing(80, 0) {
		t.Fatalf("path start = %v, want rewritten start", s.Path[0])
	}
}
