package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics.
// Handlers and background schedulers depend on this interface rather than
// the global Prometheus collectors directly, so tests can inject a no-op.
type MetricsRegistry interface {
	IncrementToolCall(tool, tenant, status string)
	RecordToolCallLatency(tool string, duration time.Duration)

	IncrementAdapterCall(adapter, operation, status string)
	RecordAdapterCallLatency(adapter, operation string, duration time.Duration)
	IncrementAdapterBreakerTrip(adapter string)

	IncrementMediaBuyStatusTransition(from, to string)

	IncrementInventorySyncRows(inventoryType, action string, n int)
	RecordInventorySyncDuration(syncType string, duration time.Duration)

	IncrementWebhookDelivery(notificationType, status string)
	IncrementWebhookSkipped(reason string)

	IncrementSchedulerTick(scheduler string)
	IncrementSchedulerTickError(scheduler string)

	IncrementWorkflowStepCreated(stepType, status string)

	IncrementRateLimitRequest(key string)
	IncrementRateLimitHit(key string)
}

// PrometheusRegistry implements MetricsRegistry using the package-level
// Prometheus collectors.
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry.
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

func (r *PrometheusRegistry) IncrementToolCall(tool, tenant, status string) {
	ToolCallCount.WithLabelValues(tool, tenant, status).Inc()
}

func (r *PrometheusRegistry) RecordToolCallLatency(tool string, duration time.Duration) {
	ToolCallLatency.WithLabelValues(tool).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementAdapterCall(adapter, operation, status string) {
	AdapterCallCount.WithLabelValues(adapter, operation, status).Inc()
}

func (r *PrometheusRegistry) RecordAdapterCallLatency(adapter, operation string, duration time.Duration) {
	AdapterCallLatency.WithLabelValues(adapter, operation).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementAdapterBreakerTrip(adapter string) {
	AdapterBreakerTrips.WithLabelValues(adapter).Inc()
}

func (r *PrometheusRegistry) IncrementMediaBuyStatusTransition(from, to string) {
	MediaBuyStatusTransitions.WithLabelValues(from, to).Inc()
}

func (r *PrometheusRegistry) IncrementInventorySyncRows(inventoryType, action string, n int) {
	InventorySyncRows.WithLabelValues(inventoryType, action).Add(float64(n))
}

func (r *PrometheusRegistry) RecordInventorySyncDuration(syncType string, duration time.Duration) {
	InventorySyncDuration.WithLabelValues(syncType).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementWebhookDelivery(notificationType, status string) {
	WebhookDeliveryCount.WithLabelValues(notificationType, status).Inc()
}

func (r *PrometheusRegistry) IncrementWebhookSkipped(reason string) {
	WebhookDeliverySkipped.WithLabelValues(reason).Inc()
}

func (r *PrometheusRegistry) IncrementSchedulerTick(scheduler string) {
	SchedulerTicks.WithLabelValues(scheduler).Inc()
}

func (r *PrometheusRegistry) IncrementSchedulerTickError(scheduler string) {
	SchedulerTickErrors.WithLabelValues(scheduler).Inc()
}

func (r *PrometheusRegistry) IncrementWorkflowStepCreated(stepType, status string) {
	WorkflowStepsCreated.WithLabelValues(stepType, status).Inc()
}

func (r *PrometheusRegistry) IncrementRateLimitRequest(key string) {
	RateLimitRequests.WithLabelValues(key).Inc()
}

func (r *PrometheusRegistry) IncrementRateLimitHit(key string) {
	RateLimitHits.WithLabelValues(key).Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods, for tests.
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry.
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

func (r *NoOpRegistry) IncrementToolCall(tool, tenant, status string)                             {}
func (r *NoOpRegistry) RecordToolCallLatency(tool string, duration time.Duration)                 {}
func (r *NoOpRegistry) IncrementAdapterCall(adapter, operation, status string)                    {}
func (r *NoOpRegistry) RecordAdapterCallLatency(a, o string, d time.Duration)                     {}
func (r *NoOpRegistry) IncrementAdapterBreakerTrip(adapter string)                                {}
func (r *NoOpRegistry) IncrementMediaBuyStatusTransition(from, to string)                          {}
func (r *NoOpRegistry) IncrementInventorySyncRows(inventoryType, action string, n int)             {}
func (r *NoOpRegistry) RecordInventorySyncDuration(syncType string, duration time.Duration)        {}
func (r *NoOpRegistry) IncrementWebhookDelivery(notificationType, status string)                   {}
func (r *NoOpRegistry) IncrementWebhookSkipped(reason string)                                      {}
func (r *NoOpRegistry) IncrementSchedulerTick(scheduler string)                                    {}
func (r *NoOpRegistry) IncrementSchedulerTickError(scheduler string)                               {}
func (r *NoOpRegistry) IncrementWorkflowStepCreated(stepType, status string)                       {}
func (r *NoOpRegistry) IncrementRateLimitRequest(key string)                                       {}
func (r *NoOpRegistry) IncrementRateLimitHit(key string)                                           {}
