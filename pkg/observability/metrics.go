// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the proxy.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, status class, and model.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respproxy_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "model"},
	)

	// RequestDuration records HTTP request duration in seconds by method and model.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "respproxy_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "model"},
	)

	// StreamingConnections tracks the number of active SSE streaming connections.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "respproxy_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// BackendRequestsTotal counts requests sent to the Chat Completions backend.
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respproxy_backend_requests_total",
			Help: "Backend requests",
		},
		[]string{"model", "status"},
	)

	// BackendLatency records backend request latency in seconds.
	BackendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "respproxy_backend_latency_seconds",
			Help:    "Backend latency",
			Buckets: LLMBuckets,
		},
		[]string{"model"},
	)

	// BreakerState reports the circuit breaker's current state as a gauge:
	// 0 = closed, 1 = half-open, 2 = open.
	BreakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "respproxy_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// XMLSalvageTotal counts tool-call argument salvage attempts performed on
	// malformed streamed XML, by outcome.
	XMLSalvageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respproxy_xml_salvage_total",
			Help: "XML tool-call argument salvage attempts",
		},
		[]string{"outcome"},
	)

	// ModelCacheRefreshTotal counts background model-cache refresh attempts by outcome.
	ModelCacheRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respproxy_model_cache_refresh_total",
			Help: "Model cache refresh attempts",
		},
		[]string{"outcome"},
	)

	// DumpDroppedTotal counts dump-sink writes dropped because the channel was full.
	DumpDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "respproxy_dump_dropped_total",
			Help: "Dump sink writes dropped due to a full channel",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		BackendRequestsTotal,
		BackendLatency,
		BreakerState,
		XMLSalvageTotal,
		ModelCacheRefreshTotal,
		DumpDroppedTotal,
	)
}
