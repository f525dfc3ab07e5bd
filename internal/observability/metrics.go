// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the gpuhub service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// ExecBuckets covers executor wall-clock latencies from fast prints to the
// 5-minute timeout ceiling.
var ExecBuckets = []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpuhub_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "gpuhub_request_duration_seconds",
			Help: "Request duration",
		},
		[]string{"method"},
	)

	// ExecutionsTotal counts completed executor runs by terminal status.
	ExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpuhub_executions_total",
			Help: "Completed code executions",
		},
		[]string{"status"},
	)

	// ExecutionDuration records executor wall-clock duration in seconds.
	ExecutionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gpuhub_execution_duration_seconds",
			Help:    "Executor wall-clock duration",
			Buckets: ExecBuckets,
		},
	)

	// PendingInputsActive tracks sessions currently suspended on input.
	PendingInputsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gpuhub_pending_inputs_active",
			Help: "Sessions awaiting interactive input",
		},
	)

	// QuotaMinutesCharged counts quota minutes charged across all users.
	QuotaMinutesCharged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gpuhub_quota_minutes_charged_total",
			Help: "Quota minutes charged",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		ExecutionsTotal,
		ExecutionDuration,
		PendingInputsActive,
		QuotaMinutesCharged,
	)
}
