// Package metrics provides the Prometheus metrics of the alarm clock daemon.
//
// Every recording method is safe on a nil *Metrics, so components built
// without metrics (the CLI, most tests) need no special casing.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fire kinds recorded by TriggerFired.
const (
	KindRecurring = "recurring"
	KindOneShot   = "one_shot"
	KindMissing   = "missing"
	KindDisabled  = "disabled"
	KindManual    = "manual"
)

// Prepare outcomes recorded by ObservePrepare.
const (
	OutcomeReady   = "ready"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)

// Metrics contains all Prometheus metrics of the daemon.
type Metrics struct {
	TriggersFired      *prometheus.CounterVec
	Fallbacks          prometheus.Counter
	SchedulingFailures prometheus.Counter
	PrepareDuration    *prometheus.HistogramVec
	ArmedAlarms        prometheus.Gauge
	PlaybackState      prometheus.Gauge

	registry prometheus.Registerer
}

// New creates the metrics and registers them with the registerer.
func New(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()

	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register alarm clock metrics: %w", err)
	}

	return m, nil
}

func (m *Metrics) initMetrics() {
	m.TriggersFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alarmclock_triggers_fired_total",
			Help: "Total number of wake-ups delivered to the scheduler, partitioned by alarm kind.",
		},
		[]string{"kind"},
	)
	m.Fallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "alarmclock_fallbacks_total",
			Help: "Total number of streaming preferences that fell back to a local tone.",
		},
	)
	m.SchedulingFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "alarmclock_scheduling_failures_total",
			Help: "Total number of alarms that could not be armed after retries.",
		},
	)
	m.PrepareDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alarmclock_prepare_duration_seconds",
			Help:    "Time taken by a music source to become ready.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"source", "outcome"},
	)
	m.ArmedAlarms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "alarmclock_armed_alarms",
			Help: "Number of alarms with a live wake-up registration.",
		},
	)
	m.PlaybackState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "alarmclock_playback_state",
			Help: "Current playback phase: 0 idle, 1 preparing, 2 playing, 3 error.",
		},
	)
}

// Describe implements the prometheus.Collector interface.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.TriggersFired.Describe(ch)
	ch <- m.Fallbacks.Desc()
	ch <- m.SchedulingFailures.Desc()
	m.PrepareDuration.Describe(ch)
	ch <- m.ArmedAlarms.Desc()
	ch <- m.PlaybackState.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.TriggersFired.Collect(ch)
	ch <- m.Fallbacks
	ch <- m.SchedulingFailures
	m.PrepareDuration.Collect(ch)
	ch <- m.ArmedAlarms
	ch <- m.PlaybackState
}

// TriggerFired counts a wake-up of the given kind.
func (m *Metrics) TriggerFired(kind string) {
	if m == nil {
		return
	}

	m.TriggersFired.WithLabelValues(kind).Inc()
}

// FallbackUsed counts a fallback to the local tone.
func (m *Metrics) FallbackUsed() {
	if m == nil {
		return
	}

	m.Fallbacks.Inc()
}

// SchedulingFailed counts an alarm that could not be armed.
func (m *Metrics) SchedulingFailed() {
	if m == nil {
		return
	}

	m.SchedulingFailures.Inc()
}

// ObservePrepare records how long a source took to prepare.
func (m *Metrics) ObservePrepare(source, outcome string, d time.Duration) {
	if m == nil {
		return
	}

	m.PrepareDuration.WithLabelValues(source, outcome).Observe(d.Seconds())
}

// SetArmed records the number of live registrations.
func (m *Metrics) SetArmed(n int) {
	if m == nil {
		return
	}

	m.ArmedAlarms.Set(float64(n))
}

// SetPlaybackPhase records the current playback phase.
func (m *Metrics) SetPlaybackPhase(phase int) {
	if m == nil {
		return
	}

	m.PlaybackState.Set(float64(phase))
}

// Handler serves the metrics of the gatherer in the text exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NewServer builds the /metrics HTTP server.
func NewServer(address string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))

	return &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
