package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agentforge"

// MetricsCollector handles Prometheus metrics collection and reporting
type MetricsCollector struct {
	registry *prometheus.Registry
	metrics  map[string]prometheus.Collector
}

// NewMetricsCollector creates a collector with its own registry.
func NewMetricsCollector() *MetricsCollector {
	registry := prometheus.NewRegistry()

	generated := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agents_generated_total",
			Help:      "Agent profiles composed, by template and content source",
		},
		[]string{"template_type", "source"},
	)

	failures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failures_total",
			Help:      "Failed generation requests, by reason",
		},
		[]string{"reason"},
	)

	deployments := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deployments_total",
			Help:      "Deployment descriptor requests, by outcome",
		},
		[]string{"status"},
	)

	latency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Time taken to compose an agent profile",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		},
		[]string{"source"},
	)

	batchSize := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Specifications per batch request",
			Buckets:   prometheus.LinearBuckets(1, 5, 10),
		},
	)

	eventClients := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_stream_clients",
			Help:      "Connected event stream clients",
		},
	)

	metrics := map[string]prometheus.Collector{
		"generated":     generated,
		"failures":      failures,
		"deployments":   deployments,
		"latency":       latency,
		"batch_size":    batchSize,
		"event_clients": eventClients,
	}

	for _, metric := range metrics {
		registry.MustRegister(metric)
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &MetricsCollector{
		registry: registry,
		metrics:  metrics,
	}
}

// RecordGeneration records a composed profile and how long it took.
func (mc *MetricsCollector) RecordGeneration(templateType, source string, elapsed time.Duration) {
	if counter, ok := mc.metrics["generated"].(*prometheus.CounterVec); ok {
		counter.WithLabelValues(templateType, source).Inc()
	}
	if histogram, ok := mc.metrics["latency"].(*prometheus.HistogramVec); ok {
		histogram.WithLabelValues(source).Observe(elapsed.Seconds())
	}
}

// RecordFailure records a failed generation request.
func (mc *MetricsCollector) RecordFailure(reason string) {
	if counter, ok := mc.metrics["failures"].(*prometheus.CounterVec); ok {
		counter.WithLabelValues(reason).Inc()
	}
}

// RecordDeployment records a deployment request outcome.
func (mc *MetricsCollector) RecordDeployment(status string) {
	if counter, ok := mc.metrics["deployments"].(*prometheus.CounterVec); ok {
		counter.WithLabelValues(status).Inc()
	}
}

// RecordBatch records the size of a batch request.
func (mc *MetricsCollector) RecordBatch(size int) {
	if histogram, ok := mc.metrics["batch_size"].(prometheus.Histogram); ok {
		histogram.Observe(float64(size))
	}
}

// SetEventClients records the number of connected event stream clients.
func (mc *MetricsCollector) SetEventClients(n int) {
	if gauge, ok := mc.metrics["event_clients"].(prometheus.Gauge); ok {
		gauge.Set(float64(n))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{Registry: mc.registry})
}
