package models

import "time"

// SyncJob sync_type and status values.
const (
	SyncTypeInventory = "inventory"
	SyncTypeOrders    = "orders"
	SyncTypeFull      = "full"
	SyncTypeSelective = "selective"

	SyncStatusRunning   = "running"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

// SyncJob is a record of one inventory sync run against an adapter.
type SyncJob struct {
	SyncID      string     `json:"sync_id"`
	TenantID    string     `json:"tenant_id"`
	AdapterType string     `json:"adapter_type"`
	SyncType    string     `json:"sync_type"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Summary     []byte     `json:"summary,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Inventory row types. AdUnit rows are exempt from the stale-marking policy
// applied by full-sync reconciliation; all other types may be marked Stale.
const (
	InventoryTypeAdUnit              = "ad_unit"
	InventoryTypePlacement           = "placement"
	InventoryTypeLabel               = "label"
	InventoryTypeCustomTargetingKey  = "custom_targeting_key"
	InventoryTypeCustomTargetingValue = "custom_targeting_value"
	InventoryTypeAudienceSegment     = "audience_segment"

	InventoryStatusActive = "ACTIVE"
	InventoryStatusStale  = "STALE"
)

// InventoryRow is the canonical local projection of one remote inventory
// object, unique on (TenantID, InventoryType, InventoryID).
type InventoryRow struct {
	TenantID        string    `json:"tenant_id"`
	InventoryType   string    `json:"inventory_type"`
	InventoryID     string    `json:"inventory_id"`
	Name            string    `json:"name"`
	Path            []string  `json:"path,omitempty"`
	Status          string    `json:"status"`
	InventoryMetadata []byte  `json:"inventory_metadata,omitempty"`
	LastSynced      time.Time `json:"last_synced"`
}

// IsStaleExempt reports whether this row's inventory type is exempt from
// being auto-marked stale by full-sync reconciliation.
func (r InventoryRow) IsStaleExempt() bool {
	return r.InventoryType == InventoryTypeAdUnit
}
