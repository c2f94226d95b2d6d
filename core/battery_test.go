package core

import (
	"testing"
	"time"
)

func TestBatteryStartsFull(t *testing.T) {
	b := NewBattery(40, 28)
	if b.WattHour != 1120 {
		t.Fatalf("WattHour = %v, want 1120", b.WattHour)
	}
	if b.Level() != 1 {
		t.Fatalf("Level = %v, want 1", b.Level())
	}
}

func TestBatteryDrainAndCharge(t *testing.T) {
	b := NewBattery(40, 28)

	// 1120 W for an hour empties a 1120 Wh battery exactly.
	b.Drain(1120, time.Hour)
	if b.Level() != 0 {
		t.Fatalf("Level after full drain = %v, want 0", b.Level())
	}

	// Further drain clamps at empty.
	b.Drain(500, time.Hour)
	if b.Level() != 0 {
		t.Fatalf("Level after over-drain = %v, want 0", b.Level())
	}

	b.Charge(560, time.Hour)
	if !almostEqual(b.Level(), 0.5, 1e-9) {
		t.Fatalf("Level after half charge = %v, want 0.5", b.Level())
	}

	// Overcharge clamps at capacity.
	b.Charge(5000, time.Hour)
	if b.Level() != 1 {
		t.Fatalf("Level after overcharge = %v, want 1", b.Level())
	}
}

func TestBatteryAlertLatches(t *testing.T) {
	b := NewBattery(40, 28)

	if b.Alert() {
		t.Fatalf("full battery should not alert")
	}

	// Drop just below the discharge floor.
	b.Drain(1120*0.35, time.Hour)
	if !b.Alert() {
		t.Fatalf("battery below discharge floor should alert")
	}

	// Recharging above the floor but below the recharge threshold keeps the
	// alert latched.
	b.Charge(1120*0.2, time.Hour)
	if !b.Alert() {
		t.Fatalf("alert must hold until the recharge threshold")
	}

	// Crossing the recharge threshold clears it.
	b.Charge(1120*0.2, time.Hour)
	if b.Alert() {
		t.Fatalf("alert should clear above the recharge threshold")
	}
}
