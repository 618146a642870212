package handler

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus metrics. It implements service.MetricsRecorder.
type Metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	dispatchesTotal     *prometheus.CounterVec
	dispatchDuration    prometheus.Histogram
	sendsTotal          *prometheus.CounterVec
}

// NewMetrics creates new Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		dispatchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confirmation_dispatches_total",
				Help: "Total number of order-confirmation dispatches by overall result",
			},
			[]string{"result"},
		),
		dispatchDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "confirmation_dispatch_duration_seconds",
				Help:    "End-to-end duration of one dispatch across both channels",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		),
		sendsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confirmation_sends_total",
				Help: "Total number of individual send attempts by channel, recipient class and result",
			},
			[]string{"channel", "recipient", "result"},
		),
	}
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveDispatch records one finished dispatch
func (m *Metrics) ObserveDispatch(success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.dispatchesTotal.WithLabelValues(result).Inc()
	m.dispatchDuration.Observe(duration.Seconds())
}

// CountSend records one sub-send attempt
func (m *Metrics) CountSend(channel, recipient, result string) {
	m.sendsTotal.WithLabelValues(channel, recipient, result).Inc()
}

// MetricsHandler exposes the Prometheus scrape endpoint
type MetricsHandler struct {
	metrics *Metrics
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler(metrics *Metrics) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Handler returns the Prometheus HTTP handler
func (h *MetricsHandler) Handler() http.Handler {
	return promhttp.Handler()
}
