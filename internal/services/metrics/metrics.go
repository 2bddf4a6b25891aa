package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mm"

var (
	// HTTP request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "route"},
	)

	// Cache operations by outcome (hit, miss, stored, deleted, error)
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total cache operations by result",
		},
		[]string{"operation", "result"},
	)

	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total upstream AI provider calls",
		},
		[]string{"provider", "operation", "status"},
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_duration_seconds",
			Help:      "Upstream AI provider call duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "operation"},
	)

	PipelineTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_tasks_total",
			Help:      "Total multimodal pipeline tasks by type and status",
		},
		[]string{"type", "status"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, route, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, route, status).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(durationSec)
}

// RecordCacheOperation records a cache operation outcome
func RecordCacheOperation(operation, result string) {
	CacheOperationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordProviderCall records an upstream provider call
func RecordProviderCall(provider, operation, status string, durationSec float64) {
	ProviderRequestsTotal.WithLabelValues(provider, operation, status).Inc()
	ProviderDuration.WithLabelValues(provider, operation).Observe(durationSec)
}

// RecordPipelineTask records the outcome of one pipeline task
func RecordPipelineTask(taskType, status string) {
	PipelineTasksTotal.WithLabelValues(taskType, status).Inc()
}
