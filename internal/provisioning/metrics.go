package provisioning

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects per-step outcomes and durations. All methods are
// nil-safe so a Runner without a registry pays nothing.
type Metrics struct {
	stepOutcomes    *prometheus.CounterVec
	stepDuration    *prometheus.HistogramVec
	rollbackActions prometheus.Counter
}

// NewMetrics builds and registers the saga collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		stepOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lparvol",
			Name:      "saga_step_outcomes_total",
			Help:      "Saga step outcomes by state and classification.",
		}, []string{"state", "outcome"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lparvol",
			Name:      "saga_step_duration_seconds",
			Help:      "Wall time spent in each saga state.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"state"}),
		rollbackActions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lparvol",
			Name:      "saga_rollback_actions_total",
			Help:      "Compensating actions attempted across all runs.",
		}),
	}
	reg.MustRegister(m.stepOutcomes, m.stepDuration, m.rollbackActions)
	return m
}

func (m *Metrics) observeStep(state State, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.stepOutcomes.WithLabelValues(string(state), outcome).Inc()
	m.stepDuration.WithLabelValues(string(state)).Observe(d.Seconds())
}

func (m *Metrics) observeRollbackAction() {
	if m == nil {
		return
	}
	m.rollbackActions.Inc()
}
