// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the service desk.
package observability

import "github.com/prometheus/client_golang/prometheus"

// OracleBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var OracleBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, status class, and route.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "servicedesk_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "status", "route"},
	)

	// RequestDuration records HTTP request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "servicedesk_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: OracleBuckets,
		},
		[]string{"method", "route"},
	)

	// ActiveSessions tracks the number of open sessions.
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "servicedesk_sessions_active",
			Help: "Open sessions",
		},
	)

	// ActiveRuns tracks orchestration runs in flight.
	ActiveRuns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "servicedesk_runs_active",
			Help: "Orchestration runs in flight",
		},
	)

	// OracleRequestsTotal counts oracle calls by oracle and outcome.
	OracleRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "servicedesk_oracle_requests_total",
			Help: "Oracle requests",
		},
		[]string{"oracle", "status"},
	)

	// OracleLatency records oracle latency in seconds.
	OracleLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "servicedesk_oracle_latency_seconds",
			Help:    "Oracle latency",
			Buckets: OracleBuckets,
		},
		[]string{"oracle"},
	)

	// OracleRetriesTotal counts retried oracle calls.
	OracleRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "servicedesk_oracle_retries_total",
			Help: "Oracle retries",
		},
		[]string{"oracle"},
	)

	// RunsTotal counts finished orchestration runs by outcome
	// (final, budget_exceeded, unknown_capability, oracle_unavailable, cancelled, error).
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "servicedesk_runs_total",
			Help: "Orchestration runs",
		},
		[]string{"outcome"},
	)

	// RunIterations records the number of oracle calls per run.
	RunIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "servicedesk_run_iterations",
			Help:    "Oracle calls per orchestration run",
			Buckets: []float64{1, 2, 3, 4, 5, 7, 10, 15, 20},
		},
	)

	// DispatchBatchSize records how many capability requests one oracle
	// turn asked for.
	DispatchBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "servicedesk_dispatch_batch_size",
			Help:    "Capability requests per deferral",
			Buckets: []float64{1, 2, 3, 4, 5, 8},
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		ActiveSessions,
		ActiveRuns,
		OracleRequestsTotal,
		OracleLatency,
		OracleRetriesTotal,
		RunsTotal,
		RunIterations,
		DispatchBatchSize,
	)
}
