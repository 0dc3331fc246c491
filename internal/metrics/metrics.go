// Package metrics exposes Prometheus instrumentation for the engine.
// All recording methods are nil-safe so the hub can run unmetered
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "agentos"

// Metrics holds the engine's Prometheus collectors
type Metrics struct {
	runsStarted       prometheus.Counter
	runsFinished      *prometheus.CounterVec
	attempts          *prometheus.CounterVec
	attemptDuration   *prometheus.HistogramVec
	iterationCapTrips prometheus.Counter
}

// New creates engine metrics registered against the provided registerer
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Total number of workflow runs started",
		}),
		runsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_finished_total",
			Help:      "Total number of workflow runs reaching a terminal state",
		}, []string{"status"}),
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_attempts_total",
			Help:      "Total number of worker attempts",
		}, []string{"worker_type", "status"}),
		attemptDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "worker_attempt_duration_seconds",
			Help:      "Duration of worker attempts in seconds",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60, 120},
		}, []string{"worker_type"}),
		iterationCapTrips: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "iteration_cap_trips_total",
			Help:      "Total number of runs failed by the iteration cap",
		}),
	}
}

// RunStarted records the start of a workflow run
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.runsStarted.Inc()
}

// RunFinished records a run reaching a terminal state
func (m *Metrics) RunFinished(completed bool) {
	if m == nil {
		return
	}
	m.runsFinished.WithLabelValues(statusLabel(completed)).Inc()
}

// ObserveAttempt records the outcome and duration of one worker attempt
func (m *Metrics) ObserveAttempt(
	workerType string, d time.Duration, success bool,
) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(workerType, statusLabel(success)).Inc()
	m.attemptDuration.WithLabelValues(workerType).Observe(d.Seconds())
}

// IterationCapTripped records a run forcibly failed by the iteration cap
func (m *Metrics) IterationCapTripped() {
	if m == nil {
		return
	}
	m.iterationCapTrips.Inc()
}

func statusLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
