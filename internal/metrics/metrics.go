package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of the service. A nil *Metrics records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	Requests    *prometheus.CounterVec
	LatencyMS   *prometheus.HistogramVec
	Rejections  *prometheus.CounterVec
	Transitions *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deliverus",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "deliverus",
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deliverus",
			Subsystem: "orders",
			Name:      "rejections_total",
			Help:      "Orders rejected by validation, by operation.",
		}, []string{"operation"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deliverus",
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Order lifecycle actions, by action and outcome.",
		}, []string{"action", "outcome"}),
	}

	registry.MustRegister(
		m.Requests,
		m.LatencyMS,
		m.Rejections,
		m.Transitions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Rejected counts a validation rejection for operation (create or update)
func (m *Metrics) Rejected(operation string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(operation).Inc()
}

// Transitioned counts a lifecycle action with its outcome
func (m *Metrics) Transitioned(action, outcome string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(action, outcome).Inc()
}
