package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total MCP tool invocations per tool name and outcome
	ToolCallCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcp_tool_calls_total",
			Help: "Total AdCP tool invocations",
		},
		[]string{"tool", "tenant", "status"},
	)

	// tool call latency in seconds
	ToolCallLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adcp_tool_call_duration_seconds",
			Help:    "Histogram of AdCP tool call latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	// adapter dispatch calls per adapter type, operation and outcome
	AdapterCallCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcp_adapter_calls_total",
			Help: "Total adapter dispatch calls",
		},
		[]string{"adapter", "operation", "status"},
	)

	AdapterCallLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adcp_adapter_call_duration_seconds",
			Help:    "Histogram of adapter dispatch latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"adapter", "operation"},
	)

	// circuit breaker state transitions per adapter
	AdapterBreakerTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcp_adapter_breaker_trips_total",
			Help: "Total circuit breaker trips per adapter",
		},
		[]string{"adapter"},
	)

	// media buy status transitions recorded by the status scheduler
	MediaBuyStatusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcp_media_buy_status_transitions_total",
			Help: "Total media buy status transitions",
		},
		[]string{"from", "to"},
	)

	// inventory sync rows processed, by type and action
	InventorySyncRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcp_inventory_sync_rows_total",
			Help: "Total inventory rows processed during sync",
		},
		[]string{"inventory_type", "action"},
	)

	InventorySyncDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adcp_inventory_sync_duration_seconds",
			Help:    "Duration of an inventory sync run, by sync mode",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sync_type"},
	)

	// webhook deliveries attempted, by result
	WebhookDeliveryCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcp_webhook_deliveries_total",
			Help: "Total webhook delivery attempts",
		},
		[]string{"notification_type", "status"},
	)

	WebhookDeliverySkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcp_webhook_deliveries_skipped_total",
			Help: "Total webhook deliveries skipped (already delivered for the period, or unsupported frequency)",
		},
		[]string{"reason"},
	)

	// scheduler tick counters
	SchedulerTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcp_scheduler_ticks_total",
			Help: "Total scheduler ticks executed",
		},
		[]string{"scheduler"},
	)

	SchedulerTickErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcp_scheduler_tick_errors_total",
			Help: "Total scheduler ticks that raised an error",
		},
		[]string{"scheduler"},
	)

	// workflow steps created, by status
	WorkflowStepsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcp_workflow_steps_created_total",
			Help: "Total workflow steps created",
		},
		[]string{"step_type", "status"},
	)

	// outbound throttling requests, by limited key (adapter or tenant)
	RateLimitRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcp_rate_limit_requests_total",
			Help: "Total requests evaluated against an outbound rate limit bucket",
		},
		[]string{"key"},
	)

	RateLimitHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcp_rate_limit_hits_total",
			Help: "Total requests rejected by an outbound rate limit bucket",
		},
		[]string{"key"},
	)
)

func init() {
	prometheus.MustRegister(
		ToolCallCount,
		ToolCallLatency,
		AdapterCallCount,
		AdapterCallLatency,
		AdapterBreakerTrips,
		MediaBuyStatusTransitions,
		InventorySyncRows,
		InventorySyncDuration,
		WebhookDeliveryCount,
		WebhookDeliverySkipped,
		SchedulerTicks,
		SchedulerTickErrors,
		WorkflowStepsCreated,
		RateLimitRequests,
		RateLimitHits,
	)
}
