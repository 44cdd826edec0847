// Package inventory implements the streaming, memory-bounded inventory
// sync engine: paging a publisher adapter's ad units, placements, labels,
// custom targeting keys, and first-party audience segments into local
// storage, in full/incremental/selective modes.
package inventory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/advelops/adcp-salesagent/internal/adapter"
	"github.com/advelops/adcp-salesagent/internal/adapter/dispatch"
	"github.com/advelops/adcp-salesagent/internal/db"
	"github.com/advelops/adcp-salesagent/internal/models"
	"github.com/advelops/adcp-salesagent/internal/observability"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mode is the sync mode requested for a run.
type Mode string

const (
	ModeFull      Mode = "full"
	ModeIncremental Mode = "incremental"
	ModeSelective Mode = "selective"
)

// rowType maps an adapter discovery type to the canonical inventory row
// type string stored locally.
func rowType(invType adapter.InventoryType) string {
	switch invType {
	case adapter.InventoryAdUnits:
		return models.InventoryTypeAdUnit
	case adapter.InventoryPlacements:
		return models.InventoryTypePlacement
	case adapter.InventoryLabels:
		return models.InventoryTypeLabel
	case adapter.InventoryCustomTargetingKey:
		return models.InventoryTypeCustomTargetingKey
	case adapter.InventoryAudienceSegments:
		return models.InventoryTypeAudienceSegment
	default:
		return string(invType)
	}
}

// Options configures one sync run.
type Options struct {
	Mode            Mode
	SelectiveTypes  []adapter.InventoryType
	BatchSize       int
	CommitTimeout   time.Duration
	MaxValuesPerKey int // 0 disables eager custom-targeting-value loading
}

// Summary reports the outcome of one sync run, per type.
type Summary struct {
	SyncID       string                   `json:"sync_id"`
	PerType      map[string]TypeSummary   `json:"per_type"`
}

// TypeSummary reports per-type row counts and whether it timed out. flush
// upserts each row without telling an insert from an update, so every synced
// row is counted in Inserted and Updated stays 0.
type TypeSummary struct {
	Inserted int  `json:"inserted"`
	Updated  int  `json:"updated"`
	TimedOut bool `json:"timed_out,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Engine runs inventory sync jobs against a tenant's adapter.
type Engine struct {
	store   *db.Postgres
	logger  *zap.Logger
	metrics observability.MetricsRegistry
}

// New builds an inventory sync Engine.
func New(store *db.Postgres, logger *zap.Logger, metrics observability.MetricsRegistry) *Engine {
	return &Engine{store: store, logger: logger, metrics: metrics}
}

// Run executes one sync job against cap for tenantID, writing a SyncJob
// record and streaming each inventory type through page/convert/flush in
// sequence, bounding peak memory by clearing the batch buffer between
// types.
func (e *Engine) Run(ctx context.Context, tenantID, adapterType string, capability adapter.Capability, opts Options) (Summary, error) {
	syncID := uuid.New().String()
	job := models.SyncJob{
		SyncID:      syncID,
		TenantID:    tenantID,
		AdapterType: adapterType,
		SyncType:    string(opts.Mode),
		Status:      models.SyncStatusRunning,
		StartedAt:   time.Now(),
	}
	if err := e.store.InsertSyncJob(ctx, job); err != nil {
		return Summary{}, err
	}

	syncStart := time.Now()
	types := adapter.InventoryTypeOrder
	if opts.Mode == ModeSelective {
		types = opts.SelectiveTypes
	}

	since := time.Time{}
	if opts.Mode == ModeIncremental {
		since = watermarkFor(ctx, e.store, tenantID)
	}

	summary := Summary{SyncID: syncID, PerType: make(map[string]TypeSummary)}
	for _, invType := range types {
		ts := e.syncType(ctx, tenantID, capability, invType, since, opts)
		summary.PerType[string(invType)] = ts
		if e.metrics != nil {
			e.metrics.IncrementInventorySyncRows(string(invType), "synced", ts.Inserted+ts.Updated)
		}
	}
	if e.metrics != nil {
		e.metrics.RecordInventorySyncDuration(string(opts.Mode), time.Since(syncStart))
	}

	// Stale-marking runs only for full syncs and never for incremental,
	// which must not mark unchanged items stale just because they weren't
	// refetched this run.
	if opts.Mode == ModeFull {
		cutoff := syncStart.Add(-1 * time.Second)
		for _, invType := range types {
			rt := rowType(invType)
			if rt == models.InventoryTypeAdUnit {
				continue
			}
			if _, err := e.store.MarkInventoryStaleBefore(ctx, tenantID, rt, cutoff); err != nil {
				e.logf("stale marking failed for %s: %v", rt, err)
			}
		}
	}

	summaryJSON, _ := json.Marshal(summary.PerType)
	completedStatus := models.SyncStatusCompleted
	if err := e.store.CompleteSyncJob(ctx, syncID, completedStatus, summaryJSON, ""); err != nil {
		return summary, err
	}
	return summary, nil
}

func (e *Engine) syncType(ctx context.Context, tenantID string, capability adapter.Capability, invType adapter.InventoryType, since time.Time, opts Options) TypeSummary {
	timeout := adapter.DiscoveryTimeout(invType)
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	commitTimeout := opts.CommitTimeout
	if commitTimeout <= 0 {
		commitTimeout = 2 * time.Minute
	}

	var result TypeSummary
	typeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cursor := ""
	var buffer []models.InventoryRow
	for {
		page, err := capability.DiscoverPage(typeCtx, invType, since, cursor)
		if err != nil {
			if typeCtx.Err() == context.DeadlineExceeded {
				result.TimedOut = true
				result.Error = "timeout_error"
				// A timeout on this type must not abort the overall sync;
				// other types continue after this one returns.
				break
			}
			result.Error = err.Error()
			break
		}

		for _, item := range page.Items {
			if item.Archived {
				continue
			}
			buffer = append(buffer, toRow(tenantID, invType, item))
		}

		if len(buffer) >= batchSize || page.Done {
			inserted, updated, err := e.flush(typeCtx, commitTimeout, buffer)
			result.Inserted += inserted
			result.Updated += updated
			if err != nil {
				result.Error = err.Error()
				buffer = nil
				break
			}
			// Clear the buffer before the next page so peak memory is
			// bounded regardless of inventory size.
			buffer = nil
		}

		if page.Done {
			break
		}
		cursor = page.NextCursor
	}

	if invType == adapter.InventoryCustomTargetingKey && opts.MaxValuesPerKey > 0 {
		e.loadEagerValues(ctx, tenantID, capability, opts.MaxValuesPerKey)
	}

	return result
}

func (e *Engine) flush(ctx context.Context, commitTimeout time.Duration, rows []models.InventoryRow) (inserted, updated int, err error) {
	if len(rows) == 0 {
		return 0, 0, nil
	}
	flushErr := dispatch.WithTimeout(ctx, commitTimeout, func(ctx context.Context) error {
		for _, row := range rows {
			if err := e.store.UpsertInventoryRow(ctx, row); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	return inserted, updated, flushErr
}

func (e *Engine) loadEagerValues(ctx context.Context, tenantID string, capability adapter.Capability, maxValues int) {
	// Eager value loading is bounded by maxValues per key; keys themselves
	// were already flushed by syncType, so this only backfills values.
	keys, err := e.store.LoadInventoryByType(ctx, tenantID, models.InventoryTypeCustomTargetingKey)
	if err != nil {
		e.logf("load custom targeting keys for eager values: %v", err)
		return
	}
	for _, key := range keys {
		values, err := capability.CustomTargetingValues(ctx, key.InventoryID, maxValues)
		if err != nil {
			e.logf("load values for key %s: %v", key.InventoryID, err)
			continue
		}
		for _, v := range values {
			row := toRow(tenantID, adapter.InventoryCustomTargetingKey, v)
			row.InventoryType = models.InventoryTypeCustomTargetingValue
			if err := e.store.UpsertInventoryRow(ctx, row); err != nil {
				e.logf("upsert targeting value %s: %v", v.ID, err)
			}
		}
	}
}

func toRow(tenantID string, invType adapter.InventoryType, item adapter.DiscoveryItem) models.InventoryRow {
	metadata, _ := json.Marshal(item.Metadata)
	return models.InventoryRow{
		TenantID:          tenantID,
		InventoryType:     rowType(invType),
		InventoryID:       item.ID,
		Name:              item.Name,
		Path:              item.Path,
		Status:            models.InventoryStatusActive,
		InventoryMetadata: metadata,
		LastSynced:        time.Now(),
	}
}

func watermarkFor(ctx context.Context, store *db.Postgres, tenantID string) time.Time {
	t, err := store.LastInventorySync(ctx, tenantID)
	if err != nil || t.IsZero() {
		return time.Time{}
	}
	return t
}

func (e *Engine) logf(format string, args ...any) {
	if e.logger == nil {
		return
	}
	e.logger.Sugar().Warnf(format, args...)
}
