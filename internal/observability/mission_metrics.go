package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MissionCollector exposes mission-level Prometheus metrics driven by the
// simulation engine: battery state, contact schedule depth and how late
// pre-slews start relative to their required time.
type MissionCollector struct {
	gatherer prometheus.Gatherer

	PassGenerationDuration prometheus.Histogram
	PassesScheduled        prometheus.Gauge
	PassLateness           prometheus.Histogram
	BatterySOC             prometheus.Gauge
}

// NewMissionCollector registers mission metrics against the provided registerer.
func NewMissionCollector(reg prometheus.Registerer) (*MissionCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	generation := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mission_pass_generation_duration_seconds",
		Help:    "Duration of contact window sweeps over the ephemeris.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})
	generation, err := registerHistogram(reg, generation, "mission_pass_generation_duration_seconds")
	if err != nil {
		return nil, err
	}

	scheduled := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mission_passes_scheduled",
		Help: "Number of ground contacts currently scheduled.",
	})
	scheduled, err = registerGauge(reg, scheduled, "mission_passes_scheduled")
	if err != nil {
		return nil, err
	}

	lateness := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mission_pass_lateness_seconds",
		Help:    "How late contact pre-slews started relative to their required start.",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
	})
	lateness, err = registerHistogram(reg, lateness, "mission_pass_lateness_seconds")
	if err != nil {
		return nil, err
	}

	soc := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mission_battery_soc",
		Help: "Battery state of charge as a fraction of capacity.",
	})
	soc, err = registerGauge(reg, soc, "mission_battery_soc")
	if err != nil {
		return nil, err
	}

	return &MissionCollector{
		gatherer:               gatherer,
		PassGenerationDuration: generation,
		PassesScheduled:        scheduled,
		PassLateness:           lateness,
		BatterySOC:             soc,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *MissionCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObservePassGeneration records a contact window sweep duration.
func (c *MissionCollector) ObservePassGeneration(d time.Duration) {
	if c == nil || c.PassGenerationDuration == nil {
		return
	}
	c.PassGenerationDuration.Observe(d.Seconds())
}

// SetPassesScheduled updates the scheduled contact gauge.
func (c *MissionCollector) SetPassesScheduled(count int) {
	if c == nil || c.PassesScheduled == nil {
		return
	}
	c.PassesScheduled.Set(float64(count))
}

// ObservePassLateness records how late a pre-slew started.
func (c *MissionCollector) ObservePassLateness(d time.Duration) {
	if c == nil || c.PassLateness == nil {
		return
	}
	c.PassLateness.Observe(d.Seconds())
}

// SetBatterySOC publishes the battery state of charge.
func (c *MissionCollector) SetBatterySOC(level float64) {
	if c == nil || c.BatterySOC == nil {
		return
	}
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	c.BatterySOC.Set(level)
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
