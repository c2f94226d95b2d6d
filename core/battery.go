// core/battery.go
package core

import "time"

// Battery is a simple watt-hour bucket model of the spacecraft battery.
type Battery struct {
	Name string `json:"name"`

	AmpHour  float64 `json:"amp_hour"`
	Voltage  float64 `json:"voltage"`
	WattHour float64 `json:"watt_hour"`

	// MaxDepthOfDischarge is the state-of-charge fraction below which an
	// emergency recharge begins.
	MaxDepthOfDischarge float64 `json:"max_depth_of_discharge"`
	// RechargeThreshold is the fraction at which an emergency recharge ends.
	RechargeThreshold float64 `json:"recharge_threshold"`

	chargeLevel       float64
	emergencyRecharge bool
}

// NewBattery builds a fully charged battery. WattHour derives from
// amp-hours and voltage when not given.
func NewBattery(ampHour, voltage float64) *Battery {
	b := &Battery{
		Name:                "Default Battery",
		AmpHour:             ampHour,
		Voltage:             voltage,
		WattHour:            ampHour * voltage,
		MaxDepthOfDischarge: 0.7,
		RechargeThreshold:   0.95,
	}
	b.chargeLevel = b.WattHour
	return b
}

// Level returns the state of charge as a fraction of capacity.
func (b *Battery) Level() float64 {
	if b.WattHour == 0 {
		return 0
	}
	return b.chargeLevel / b.WattHour
}

// Charge adds power watts for the period, clamped at capacity.
func (b *Battery) Charge(power float64, period time.Duration) {
	b.chargeLevel += power * period.Seconds() / 3600
	if b.chargeLevel > b.WattHour {
		b.chargeLevel = b.WattHour
	}
}

// Drain removes power watts for the period, clamped at empty.
func (b *Battery) Drain(power float64, period time.Duration) {
	b.chargeLevel -= power * period.Seconds() / 3600
	if b.chargeLevel < 0 {
		b.chargeLevel = 0
	}
}

// Alert reports whether the battery needs an emergency recharge. The alert
// latches when the state of charge drops below the depth-of-discharge
// floor and holds until the recharge threshold is reached again.
func (b *Battery) Alert() bool {
	level := b.Level()
	switch {
	case level < b.MaxDepthOfDischarge:
		b.emergencyRecharge = true
		return true
	case b.emergencyRecharge && level < b.RechargeThreshold:
		return true
	default:
		b.emergencyRecharge = false
		return false
	}
}
