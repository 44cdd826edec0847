// Package tenant resolves the tenant and principal for an inbound tool
// call and carries the resulting ambient per-request context.
package tenant

import "time"

// RequestContext is an ambient per-request value for a tool call or a
// scheduler step; NewSchedulerContext builds one with TestingContext.DryRun
// set for simulated ticks. The MCP tool handlers and the schedulers do not
// construct or pass one.
type RequestContext struct {
	TenantID        string
	PrincipalID     string
	ToolName        string
	Timestamp       time.Time
	TestingContext  TestingContext
}

// TestingContext marks a request as part of a dry-run simulation rather
// than a live call. Adapter dispatch takes its dry-run flag from
// adapter.DispatchOptions, not from this value.
type TestingContext struct {
	DryRun bool
}

// NewRequestContext builds a RequestContext for a live inbound call.
func NewRequestContext(tenantID, principalID, toolName string, now time.Time) RequestContext {
	return RequestContext{TenantID: tenantID, PrincipalID: principalID, ToolName: toolName, Timestamp: now}
}

// NewSchedulerContext builds a RequestContext for a scheduler tick acting
// on behalf of a tenant with no specific principal, marked dry_run when the
// scheduler is simulating rather than executing.
func NewSchedulerContext(tenantID, toolName string, now time.Time, dryRun bool) RequestContext {
	return RequestContext{TenantID: tenantID, ToolName: toolName, Timestamp: now, TestingContext: TestingContext{DryRun: dryRun}}
}
