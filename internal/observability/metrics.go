package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ACSCollector bundles Prometheus metrics for the attitude control system
// and provides a ready-to-use /metrics handler.
type ACSCollector struct {
	gatherer prometheus.Gatherer

	CommandsExecuted *prometheus.CounterVec
	SlewDistances    *prometheus.HistogramVec
	SlewDurations    *prometheus.HistogramVec
	PassesRequested  *prometheus.CounterVec
	PassesAbandoned  prometheus.Counter
	Modes            *prometheus.GaugeVec
	QueueDepth       prometheus.Gauge

	mu       sync.Mutex
	lastMode string
}

// NewACSCollector registers ACS Prometheus metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewACSCollector(reg prometheus.Registerer) (*ACSCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "acs_commands_executed_total",
		Help: "Total number of executed ACS commands, labeled by command type.",
	}, []string{"type"})
	commands, err := registerCounterVec(reg, commands, "acs_commands_executed_total")
	if err != nil {
		return nil, err
	}

	distances := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "acs_slew_distance_degrees",
		Help:    "Angular distance of started slews in degrees.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 90, 120, 180},
	}, []string{"observing_type"})
	distances, err = registerHistogramVec(reg, distances, "acs_slew_distance_degrees")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "acs_slew_duration_seconds",
		Help:    "Predicted duration of started slews in seconds.",
		Buckets: []float64{30, 60, 120, 180, 300, 600, 900, 1800},
	}, []string{"observing_type"})
	durations, err = registerHistogramVec(reg, durations, "acs_slew_duration_seconds")
	if err != nil {
		return nil, err
	}

	requested := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "acs_passes_requested_total",
		Help: "Total number of ground contact requests, labeled by acceptance.",
	}, []string{"accepted"})
	requested, err = registerCounterVec(reg, requested, "acs_passes_requested_total")
	if err != nil {
		return nil, err
	}

	abandoned, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "acs_passes_abandoned_total",
		Help: "Total number of ground contacts abandoned for missed pre-slews.",
	}), "acs_passes_abandoned_total")
	if err != nil {
		return nil, err
	}

	modes := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "acs_mode",
		Help: "Current operating mode as a one-hot gauge per mode name.",
	}, []string{"mode"})
	modes, err = registerGaugeVec(reg, modes, "acs_mode")
	if err != nil {
		return nil, err
	}

	depth, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "acs_command_queue_depth",
		Help: "Number of commands waiting in the ACS queue.",
	}), "acs_command_queue_depth")
	if err != nil {
		return nil, err
	}

	return &ACSCollector{
		gatherer:         gatherer,
		CommandsExecuted: commands,
		SlewDistances:    distances,
		SlewDurations:    durations,
		PassesRequested:  requested,
		PassesAbandoned:  abandoned,
		Modes:            modes,
		QueueDepth:       depth,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *ACSCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// CommandExecuted counts an executed command by type name.
func (c *ACSCollector) CommandExecuted(commandType string) {
	if c == nil || c.CommandsExecuted == nil {
		return
	}
	c.CommandsExecuted.WithLabelValues(commandType).Inc()
}

// SlewStarted records the distance and predicted duration of a started slew.
func (c *ACSCollector) SlewStarted(obsType string, distanceDeg, durationSec float64) {
	if c == nil {
		return
	}
	if c.SlewDistances != nil {
		c.SlewDistances.WithLabelValues(obsType).Observe(distanceDeg)
	}
	if c.SlewDurations != nil {
		c.SlewDurations.WithLabelValues(obsType).Observe(durationSec)
	}
}

// PassRequested counts a contact request and whether it was accepted.
func (c *ACSCollector) PassRequested(accepted bool) {
	if c == nil || c.PassesRequested == nil {
		return
	}
	c.PassesRequested.WithLabelValues(strconv.FormatBool(accepted)).Inc()
}

// PassAbandoned counts a contact dropped for missing its pre-slew window.
func (c *ACSCollector) PassAbandoned() {
	if c == nil || c.PassesAbandoned == nil {
		return
	}
	c.PassesAbandoned.Inc()
}

// SetMode flips the one-hot mode gauge to the given mode name.
func (c *ACSCollector) SetMode(mode string) {
	if c == nil || c.Modes == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastMode != "" && c.lastMode != mode {
		c.Modes.WithLabelValues(c.lastMode).Set(0)
	}
	c.Modes.WithLabelValues(mode).Set(1)
	c.lastMode = mode
}

// SetQueueDepth publishes the current command queue length.
func (c *ACSCollector) SetQueueDepth(depth int) {
	if c == nil || c.QueueDepth == nil {
		return
	}
	c.QueueDepth.Set(float64(depth))
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
