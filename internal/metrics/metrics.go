// Package metrics defines Prometheus metrics for waymark.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waymark_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waymark_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waymark_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	ModelCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waymark_model_calls_total",
			Help: "Total language model calls by schema and outcome",
		},
		[]string{"schema", "outcome"},
	)

	ModelCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waymark_model_call_duration_seconds",
			Help:    "Language model call duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"schema"},
	)

	GroundingRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "waymark_grounding_retries_total",
			Help: "Total grounding correction retries across extraction stages",
		},
	)

	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waymark_pipeline_runs_total",
			Help: "Total pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	PipelineStepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waymark_pipeline_step_duration_seconds",
			Help:    "Pipeline step duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"step"},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "waymark_websocket_connections",
			Help: "Active WebSocket connections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		ModelCallsTotal, ModelCallDuration, GroundingRetriesTotal,
		PipelineRunsTotal, PipelineStepDuration,
		WSConnections,
	)
}
