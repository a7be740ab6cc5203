package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the rationing engine.
type Metrics struct {
	// Purchase attempts by outcome ("committed", "rejected", "error") and reason
	AttemptOutcome *prometheus.CounterVec

	// End-to-end attempt latency including lock wait
	AttemptLatency prometheus.Histogram

	// Time spent waiting for the per-key exclusivity section
	LockWait prometheus.Histogram

	// Storage conflicts retried by the coordinator
	ConflictRetries prometheus.Counter

	// Eligibility decisions by reason ("allowed" when granted)
	EligibilityOutcome *prometheus.CounterVec

	// Reference data lookups by source
	GatherLatency *prometheus.HistogramVec

	// Compensating adjustments appended
	Compensations prometheus.Counter
}

// New registers the rationing metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AttemptOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "prs_purchase_attempts_total",
			Help: "Total purchase attempts by outcome and reason",
		}, []string{"outcome", "reason"}),

		AttemptLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "prs_purchase_attempt_duration_seconds",
			Help:    "Duration of purchase attempts including lock wait and retries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		LockWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "prs_lock_wait_duration_seconds",
			Help:    "Time spent acquiring the per-key exclusivity section",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),

		ConflictRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "prs_storage_conflict_retries_total",
			Help: "Storage conflicts retried by the purchase coordinator",
		}),

		EligibilityOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "prs_eligibility_decisions_total",
			Help: "Eligibility decisions by reason",
		}, []string{"reason"}),

		GatherLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "prs_eligibility_gather_duration_seconds",
			Help:    "Duration of reference data lookups by source",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"source"}), // source: "individual", "item", "schedule", "limits", "vaccinations"

		Compensations: f.NewCounter(prometheus.CounterOpts{
			Name: "prs_compensations_total",
			Help: "Compensating ledger adjustments appended",
		}),
	}
}

func (m *Metrics) IncrementAttempt(outcome, reason string) {
	if m != nil {
		m.AttemptOutcome.WithLabelValues(outcome, reason).Inc()
	}
}

func (m *Metrics) ObserveAttemptLatency(d time.Duration) {
	if m != nil {
		m.AttemptLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveLockWait(d time.Duration) {
	if m != nil {
		m.LockWait.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementConflictRetry() {
	if m != nil {
		m.ConflictRetries.Inc()
	}
}

func (m *Metrics) IncrementEligibility(reason string) {
	if m != nil {
		m.EligibilityOutcome.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) ObserveGatherLatency(source string, d time.Duration) {
	if m != nil {
		m.GatherLatency.WithLabelValues(source).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementCompensation() {
	if m != nil {
		m.Compensations.Inc()
	}
}
