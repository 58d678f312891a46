// Package metrics provides Prometheus-based implementations of transport metrics reporting.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sufield/courier/internal/core/ports"
)

var (
	// Outbound delivery metrics
	sendCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courier_send_total",
		Help: "Total number of outbound deliveries by result",
	}, []string{"result"}) // result: ok, invalid, status, connection

	sendDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "courier_send_duration_seconds",
		Help:    "Duration of outbound deliveries",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	// Inbound delivery metrics
	deliveryCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courier_deliveries_total",
		Help: "Total number of inbound deliveries handed to the handler",
	})

	rejectedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courier_rejected_requests_total",
		Help: "Total number of inbound requests rejected for their method",
	}, []string{"method"})

	// Receiver state
	listeningGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "courier_receiver_listening",
		Help: "1 while the receiver holds a listening socket, 0 otherwise",
	})
)

// PrometheusMetrics implements ports.MetricsReporter using Prometheus.
type PrometheusMetrics struct{}

// NewPrometheusMetrics creates a new Prometheus metrics reporter.
func NewPrometheusMetrics() ports.MetricsReporter {
	return &PrometheusMetrics{}
}

// RecordSend records the outcome of one outbound delivery.
func (m *PrometheusMetrics) RecordSend(result string, duration time.Duration) {
	sendCounter.WithLabelValues(result).Inc()
	sendDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordDelivery records an inbound delivery.
func (m *PrometheusMetrics) RecordDelivery() {
	deliveryCounter.Inc()
}

// RecordRejected records an inbound request refused for its method.
func (m *PrometheusMetrics) RecordRejected(method string) {
	rejectedCounter.WithLabelValues(method).Inc()
}

// SetListening updates the receiver state gauge.
func (m *PrometheusMetrics) SetListening(listening bool) {
	if listening {
		listeningGauge.Set(1)
		return
	}
	listeningGauge.Set(0)
}
