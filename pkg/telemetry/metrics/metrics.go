package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the governance engine.
type Metrics struct {
	// Quota admissions
	admissions *prometheus.CounterVec

	// Session lifecycle
	sessionTransitions *prometheus.CounterVec
	activeSessions     prometheus.Gauge

	// Cleanup
	cleanupRuns     *prometheus.CounterVec
	cleanupRecords  *prometheus.CounterVec
	cleanupDuration prometheus.Histogram

	// Expiry sweeps
	expiredSessions prometheus.Counter
}

// New creates a new Metrics instance with Prometheus collectors registered
// on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a Metrics instance registered on the given
// registerer. Tests use a fresh registry to avoid duplicate registration.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		admissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callisto_quota_admissions_total",
				Help: "Total number of quota admission decisions",
			},
			[]string{"result"},
		),

		sessionTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callisto_session_transitions_total",
				Help: "Total number of session lifecycle transitions",
			},
			[]string{"transition"},
		),

		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "callisto_sessions_active",
				Help: "Current number of tracked sessions",
			},
		),

		cleanupRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callisto_cleanup_runs_total",
				Help: "Total number of cleanup runs by terminal status",
			},
			[]string{"status"},
		),

		cleanupRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callisto_cleanup_records_total",
				Help: "Total number of records processed by cleanup runs",
			},
			[]string{"outcome"},
		),

		cleanupDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "callisto_cleanup_duration_seconds",
				Help:    "Duration of cleanup runs in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~82s
			},
		),

		expiredSessions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "callisto_sessions_expired_total",
				Help: "Total number of sessions removed by expiry sweeps",
			},
		),
	}
}

// RecordAdmission records a quota admission decision.
func (m *Metrics) RecordAdmission(allowed bool) {
	result := "allowed"
	if !allowed {
		result = "denied"
	}
	m.admissions.WithLabelValues(result).Inc()
}

// RecordTransition records a session lifecycle transition
// ("created", "extended", "grace_started", "wiped").
func (m *Metrics) RecordTransition(transition string) {
	m.sessionTransitions.WithLabelValues(transition).Inc()
}

// SetActiveSessions updates the active session gauge.
func (m *Metrics) SetActiveSessions(count int) {
	m.activeSessions.Set(float64(count))
}

// RecordCleanupRun records a completed cleanup run with its terminal status
// ("completed", "aborted", "timed_out", "failed") and duration in seconds.
func (m *Metrics) RecordCleanupRun(status string, seconds float64) {
	m.cleanupRuns.WithLabelValues(status).Inc()
	m.cleanupDuration.Observe(seconds)
}

// RecordCleanupRecords adds processed record counts by outcome
// ("deleted", "archived", "failed").
func (m *Metrics) RecordCleanupRecords(outcome string, count int) {
	if count <= 0 {
		return
	}
	m.cleanupRecords.WithLabelValues(outcome).Add(float64(count))
}

// RecordExpiredSessions adds to the expiry sweep counter.
func (m *Metrics) RecordExpiredSessions(count int) {
	if count <= 0 {
		return
	}
	m.expiredSessions.Add(float64(count))
}
