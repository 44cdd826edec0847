package adapter

import (
	"context"
	"time"
)

// InventoryType enumerates the remote inventory kinds the sync engine pages
// through, in the fixed order it processes them.
type InventoryType string

const (
	InventoryAdUnits            InventoryType = "ad_units"
	InventoryPlacements         InventoryType = "placements"
	InventoryLabels             InventoryType = "labels"
	InventoryCustomTargetingKey InventoryType = "custom_targeting_keys"
	InventoryAudienceSegments   InventoryType = "audience_segments"
)

// Orders the stale-marking and discovery pipeline walk types in.
var InventoryTypeOrder = []InventoryType{
	InventoryAdUnits,
	InventoryPlacements,
	InventoryLabels,
	InventoryCustomTargetingKey,
	InventoryAudienceSegments,
}

// DiscoveryPage is one page of raw inventory items for a given type,
// already filtered to non-archived and (for incremental syncs) to items
// modified since the watermark.
type DiscoveryPage struct {
	Items      []DiscoveryItem
	NextCursor string
	Done       bool
}

// DiscoveryItem is a single remote inventory item in its adapter-native
// shape, ready for conversion into the canonical inventory row.
type DiscoveryItem struct {
	ID           string
	Name         string
	Path         []string
	Metadata     map[string]any
	LastModified time.Time
	Archived     bool
}

// Discovery is the subset of the adapter contract used by the inventory
// sync engine.
type Discovery interface {
	// DiscoverPage fetches one page of items of the given type. since is
	// the incremental watermark; zero means fetch all. cursor is the
	// opaque pagination token from a prior call; empty starts from the
	// beginning.
	DiscoverPage(ctx context.Context, invType InventoryType, since time.Time, cursor string) (DiscoveryPage, error)

	// CustomTargetingValues lazily loads the values for a single
	// custom-targeting key, used both on-demand and by the eager
	// max_values_per_key mode.
	CustomTargetingValues(ctx context.Context, keyID string, maxValues int) ([]DiscoveryItem, error)
}

// DiscoveryTimeout returns the per-operation timeout for a given inventory
// type per the fixed schedule: ad_units/placements/custom_targeting get 10
// minutes, labels/audience_segments get 5.
func DiscoveryTimeout(invType InventoryType) time.Duration {
	switch invType {
	case InventoryLabels, InventoryAudienceSegments:
		return 5 * time.Minute
	default:
		return 10 * time.Minute
	}
}
