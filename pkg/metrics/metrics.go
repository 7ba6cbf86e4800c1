// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// TripGenerationsTotal tracks finished trip generations by outcome.
	TripGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trip_generations_total",
			Help: "Finished trip generations by outcome",
		},
		[]string{"outcome"},
	)

	// TripGenerationDuration tracks successful generation duration.
	TripGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trip_generation_duration_seconds",
			Help:    "Successful trip generation duration",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120, 180},
		},
	)

	// LLMTokensTotal tracks LLM tokens by backend, operation and direction.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"backend", "operation", "direction"},
	)

	// LLMCallsTotal tracks LLM calls by backend and operation.
	LLMCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_calls_total",
			Help: "Total LLM calls",
		},
		[]string{"backend", "operation"},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// ExploreBufferDepth tracks the prefetch buffer depth per tab.
	ExploreBufferDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "explore_buffer_depth",
			Help: "Recommendation prefetch buffer depth",
		},
		[]string{"tab"},
	)

	// ExplorePrefetchesTotal tracks background refills started per tab.
	ExplorePrefetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explore_prefetches_total",
			Help: "Background recommendation refills started",
		},
		[]string{"tab"},
	)

	// ExplorePrefetchFailuresTotal tracks silently dropped refill failures.
	ExplorePrefetchFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explore_prefetch_failures_total",
			Help: "Background recommendation refills that failed",
		},
		[]string{"tab"},
	)

	// MessagesTotal tracks chat turns journaled by role.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total chat messages journaled",
		},
		[]string{"role"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordLLMCall records one completed LLM call.
func RecordLLMCall(backend, operation string, tokensIn, tokensOut int) {
	LLMCallsTotal.WithLabelValues(backend, operation).Inc()
	LLMTokensTotal.WithLabelValues(backend, operation, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(backend, operation, "out").Add(float64(tokensOut))
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
