package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration module.
type Metrics struct {
	// Registration outcomes: success, pending, failure
	RegistrationOutcome *prometheus.CounterVec

	// Full registration latency including visibility polling and upsert retries
	RegisterLatency prometheus.Histogram

	// Login outcomes
	LoginOutcome *prometheus.CounterVec
}

// New creates a Metrics instance registered on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers all registration metrics on reg, so tests can use a
// fresh registry.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RegistrationOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "keeply_registration_outcomes_total",
			Help: "Total registration outcomes by result and error code",
		}, []string{"outcome", "code"}),

		RegisterLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "keeply_registration_duration_seconds",
			Help:    "Duration of full registration including profile persistence",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		LoginOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "keeply_login_outcomes_total",
			Help: "Total login outcomes by result",
		}, []string{"outcome"}),
	}
}

// IncrementRegistration records a registration outcome.
func (m *Metrics) IncrementRegistration(outcome, code string) {
	if m != nil {
		m.RegistrationOutcome.WithLabelValues(outcome, code).Inc()
	}
}

// ObserveRegisterLatency records the total registration duration.
func (m *Metrics) ObserveRegisterLatency(d time.Duration) {
	if m != nil {
		m.RegisterLatency.Observe(d.Seconds())
	}
}

// IncrementLogin records a login outcome.
func (m *Metrics) IncrementLogin(outcome string) {
	if m != nil {
		m.LoginOutcome.WithLabelValues(outcome).Inc()
	}
}
