package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"enrollment/internal/enrollment/models"
)

// Metrics holds the admission service collectors.
type Metrics struct {
	Decisions            *prometheus.CounterVec
	DecisionLatency      *prometheus.HistogramVec
	Compensations        prometheus.Counter
	CompensationFailures prometheus.Counter
	ReleaseFailures      prometheus.Counter
	ReleaseAnomalies     prometheus.Counter
	JournalPending       prometheus.Gauge
	Reconciled           *prometheus.CounterVec
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer in
// main and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enrollment_admission_decisions_total",
			Help: "Admission decisions by intent, outcome and reject reason",
		}, []string{"intent", "outcome", "reason"}),
		DecisionLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "enrollment_admission_decision_duration_seconds",
			Help:    "Time to decide an admission intent",
			Buckets: prometheus.DefBuckets,
		}, []string{"intent"}),
		Compensations: factory.NewCounter(prometheus.CounterOpts{
			Name: "enrollment_admission_compensations_total",
			Help: "Registrations reverted after a seat could not be reserved",
		}),
		CompensationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "enrollment_admission_compensation_failures_total",
			Help: "Reverts that exhausted their retries and were left to the reconciler",
		}),
		ReleaseFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "enrollment_admission_release_failures_total",
			Help: "Seat releases that exhausted their retries and were left to the reconciler",
		}),
		ReleaseAnomalies: factory.NewCounter(prometheus.CounterOpts{
			Name: "enrollment_admission_release_anomalies_total",
			Help: "Cancels whose seat release found the course already empty",
		}),
		JournalPending: factory.NewGauge(prometheus.GaugeOpts{
			Name: "enrollment_admission_journal_pending",
			Help: "Unresolved admission journal entries seen by the last reconcile pass",
		}),
		Reconciled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enrollment_admission_reconciled_total",
			Help: "Journal entries resolved by the reconciler by stage",
		}, []string{"stage"}),
	}
}

// ObserveDecision records one decided intent.
func (m *Metrics) ObserveDecision(d *models.Decision, elapsed time.Duration) {
	if d == nil {
		return
	}
	m.Decisions.WithLabelValues(string(d.Intent.Kind), string(d.Outcome), string(d.Reason)).Inc()
	m.DecisionLatency.WithLabelValues(string(d.Intent.Kind)).Observe(elapsed.Seconds())
}

func (m *Metrics) IncrementCompensations() {
	m.Compensations.Inc()
}

func (m *Metrics) IncrementCompensationFailures() {
	m.CompensationFailures.Inc()
}

func (m *Metrics) IncrementReleaseFailures() {
	m.ReleaseFailures.Inc()
}

func (m *Metrics) IncrementReleaseAnomalies() {
	m.ReleaseAnomalies.Inc()
}

func (m *Metrics) SetJournalPending(n int) {
	m.JournalPending.Set(float64(n))
}

func (m *Metrics) IncrementReconciled(stage models.JournalStage) {
	m.Reconciled.WithLabelValues(string(stage)).Inc()
}
