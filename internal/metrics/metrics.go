// Package metrics exposes Prometheus collectors for the collection service and
// the capture relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Relay outcome labels.
const (
	OutcomeRemote   = "remote"
	OutcomeFallback = "fallback"
	OutcomeFailed   = "failed"
)

// Metrics holds all CherThat Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	ImagesCreated  prometheus.Counter
	ImagesDeleted  prometheus.Counter
	ImagesRejected *prometheus.CounterVec
	ImagesStored   prometheus.Gauge

	RelaySubmissions *prometheus.CounterVec
	RelayDuration    prometheus.Histogram
	BridgeCalls      *prometheus.CounterVec
}

// New registers every collector on a dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	m := &Metrics{registry: reg}

	m.ImagesCreated = factory.NewCounter(prometheus.CounterOpts{
		Name: "cherthat_images_created_total",
		Help: "Total images created in the collection service",
	})
	m.ImagesDeleted = factory.NewCounter(prometheus.CounterOpts{
		Name: "cherthat_images_deleted_total",
		Help: "Total images deleted from the collection service",
	})
	m.ImagesRejected = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "cherthat_images_rejected_total",
		Help: "Collection requests rejected, by reason",
	}, []string{"reason"})
	m.ImagesStored = factory.NewGauge(prometheus.GaugeOpts{
		Name: "cherthat_images_stored",
		Help: "Images currently held by the collection service",
	})

	m.RelaySubmissions = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "cherthat_relay_submissions_total",
		Help: "Capture submissions handled by the relay, by outcome",
	}, []string{"outcome"})
	m.RelayDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "cherthat_relay_submission_duration_seconds",
		Help:    "Time to resolve a capture submission",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
	m.BridgeCalls = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "cherthat_bridge_calls_total",
		Help: "Bridge messages received by the relay daemon, by type",
	}, []string{"type"})

	return m
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the underlying registry for tests and exporters.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// RecordCreated counts a created image and updates the stored gauge.
func (m *Metrics) RecordCreated(stored int) {
	if m == nil {
		return
	}
	m.ImagesCreated.Inc()
	m.ImagesStored.Set(float64(stored))
}

// RecordDeleted counts a deleted image and updates the stored gauge.
func (m *Metrics) RecordDeleted(stored int) {
	if m == nil {
		return
	}
	m.ImagesDeleted.Inc()
	m.ImagesStored.Set(float64(stored))
}

// RecordRejected counts a rejected collection request.
func (m *Metrics) RecordRejected(reason string) {
	if m == nil {
		return
	}
	m.ImagesRejected.WithLabelValues(reason).Inc()
}

// RecordSubmission records one relay outcome and its duration in seconds.
func (m *Metrics) RecordSubmission(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.RelaySubmissions.WithLabelValues(outcome).Inc()
	m.RelayDuration.Observe(seconds)
}

// RecordBridgeCall counts a bridge message by type.
func (m *Metrics) RecordBridgeCall(messageType string) {
	if m == nil {
		return
	}
	m.BridgeCalls.WithLabelValues(messageType).Inc()
}
