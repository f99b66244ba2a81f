package frontendmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the frontend-reported series.
type Metrics struct {
	Events *prometheus.CounterVec
	Values *prometheus.HistogramVec
}

// New registers the frontend series on the default registry. Label
// cardinality is bounded by the handler's name and tag sanitization.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the series on reg, so tests can use a fresh registry.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "keeply_frontend_events_total",
			Help: "Total frontend events by metric name, path, and source",
		}, []string{"metric", "path", "source"}),

		Values: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "keeply_frontend_metric_value_milliseconds",
			Help:    "Numeric metric values reported by the frontend",
			Buckets: []float64{1, 5, 10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"metric", "path", "source"}),
	}
}

// Record increments the event counter and observes the value.
func (m *Metrics) Record(metric, path, source string, value float64) {
	if m != nil {
		m.Events.WithLabelValues(metric, path, source).Inc()
		m.Values.WithLabelValues(metric, path, source).Observe(value)
	}
}
