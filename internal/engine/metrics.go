package engine

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/recordupdate/internal/result"
)

// Metrics holds the Prometheus metrics recorded per executed action.
//
// Each Metrics owns its registry, so several engines (and tests) can
// coexist without duplicate registration.
type Metrics struct {
	registry *prometheus.Registry

	ActionDuration *prometheus.HistogramVec
	ActionResults  *prometheus.CounterVec
	ActionErrors   *prometheus.CounterVec
}

// NewMetrics creates metrics under the given namespace.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_action_duration_seconds",
			Help:      "Time spent in an update action's own Perform call",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	results := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "update_action_results_total",
			Help:      "Update actions performed, by resulting status",
		},
		[]string{"action", "status"},
	)

	errs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "update_action_errors_total",
			Help:      "Update actions that aborted the request with an error",
		},
		[]string{"action"},
	)

	registry.MustRegister(duration, results, errs)

	return &Metrics{
		registry:       registry,
		ActionDuration: duration,
		ActionResults:  results,
		ActionErrors:   errs,
	}
}

// Registry returns the metrics registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observe(action string, elapsed time.Duration, res *result.Result) {
	if m == nil {
		return
	}
	m.ActionDuration.WithLabelValues(action).Observe(elapsed.Seconds())
	if res != nil {
		m.ActionResults.WithLabelValues(action, string(res.Status)).Inc()
	}
}

func (m *Metrics) failed(action string) {
	if m == nil {
		return
	}
	m.ActionErrors.WithLabelValues(action).Inc()
}
