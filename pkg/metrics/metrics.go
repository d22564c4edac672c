package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodmate_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// ActiveSessions tracks sessions that are neither expired nor rotated away.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "moodmate_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// VerificationEmails counts verification and reset emails by kind and result.
	VerificationEmails = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodmate_verification_emails_total",
			Help: "Total number of verification emails dispatched",
		},
		[]string{"kind", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moodmate_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
