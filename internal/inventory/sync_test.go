package inventory

import (
	"testing"
	"time"

	"github.com/advelops/adcp-salesagent/internal/adapter"
	"github.com/advelops/adcp-salesagent/internal/models"
)

func TestRowType_MapsAdapterTypesToModelTypes(t *testing.T) {
	cases := map[adapter.InventoryType]string{
		adapter.InventoryAdUnits:            models.InventoryTypeAdUnit,
		adapter.InventoryPlacements:         models.InventoryTypePlacement,
		adapter.InventoryLabels:             models.InventoryTypeLabel,
		adapter.InventoryCustomTargetingKey: models.InventoryTypeCustomTargetingKey,
		adapter.InventoryAudienceSegments:   models.InventoryTypeAudienceSegment,
	}
	for in, want := range cases {
		if got := rowType(in); got != want {
			t.Errorf("rowType(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestToRow_ConvertsDiscoveryItem(t *testing.T) {
	item := adapter.DiscoveryItem{
		ID:       "au-1",
		Name:     "Homepage Top",
		Path:     []string{"Homepage", "Top"},
		Metadata: map[string]any{"size": "300x250"},
	}
	row := toRow("tenant-1", adapter.InventoryAdUnits, item)

	if row.TenantID != "tenant-1" {
		t.Errorf("expected tenant-1, got %s", row.TenantID)
	}
	if row.InventoryType != models.InventoryTypeAdUnit {
		t.Errorf("expected ad_unit row type, got %s", row.InventoryType)
	}
	if row.InventoryID != "au-1" || row.Name != "Homepage Top" {
		t.Errorf("unexpected row identity: %+v", row)
	}
	if row.Status != models.InventoryStatusActive {
		t.Errorf("expected new rows to be active, got %s", row.Status)
	}
	if len(row.Path) != 2 {
		t.Errorf("expected path to carry through, got %v", row.Path)
	}
	if row.LastSynced.IsZero() {
		t.Error("expected last_synced to be stamped")
	}
}

func TestDiscoveryTimeout_MatchesFixedSchedule(t *testing.T) {
	if adapter.DiscoveryTimeout(adapter.InventoryLabels) != 5*time.Minute {
		t.Error("expected labels to use the 5 minute timeout")
	}
	if adapter.DiscoveryTimeout(adapter.InventoryAudienceSegments) != 5*time.Minute {
		t.Error("expected audience_segments to use the 5 minute timeout")
	}
	if adapter.DiscoveryTimeout(adapter.InventoryAdUnits) != 10*time.Minute {
		t.Error("expected ad_units to use the 10 minute timeout")
	}
	if adapter.DiscoveryTimeout(adapter.InventoryCustomTargetingKey) != 10*time.Minute {
		t.Error("expected custom_targeting_keys to use the 10 minute timeout")
	}
}
