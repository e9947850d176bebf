// Package metrics defines the Prometheus instrumentation for the gateway.
// All collectors are registered at init via promauto and shared through
// package-level vars.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "triage_gateway"

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path and status code",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and path",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_exceeded_total",
			Help:      "Requests rejected by the per-user rate limit",
		},
	)
)

// Pipeline metrics
var (
	WebhookOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_outcomes_total",
			Help:      "Webhook pipeline outcomes (executed, pending, deduplicated)",
		},
		[]string{"outcome"},
	)

	GuardRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_rejections_total",
			Help:      "Requests stopped by a guard (input or output)",
		},
		[]string{"guard"},
	)

	PendingCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pending_created_total",
			Help:      "Decisions deferred for human approval",
		},
	)

	PendingResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pending_resolved_total",
			Help:      "Pending decisions resolved by resolution (approved, rejected)",
		},
		[]string{"resolution"},
	)

	ActionExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_execution_duration_seconds",
			Help:      "Tool handler latency by tool name",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tool"},
	)
)

// LLM metrics
var (
	LLMTokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "LLM tokens consumed by direction (input, output)",
		},
		[]string{"direction"},
	)

	LLMCostUSD = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_cost_usd_total",
			Help:      "Accumulated LLM spend in USD",
		},
	)
)

// Audit pipeline metrics
var (
	AuditQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "audit_queue_depth",
			Help:      "Entries currently waiting in the audit queue",
		},
	)

	AuditEntriesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_entries_written_total",
			Help:      "Audit entries persisted to the sink",
		},
	)

	AuditEntriesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_entries_dropped_total",
			Help:      "Audit entries dropped (queue full or write failed)",
		},
	)
)

// Storage metrics
var (
	DatabaseCircuitState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "database_circuit_state",
			Help:      "Database circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	RedisOperationErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redis_operation_errors_total",
			Help:      "Redis command failures observed by the stores",
		},
	)
)
