package gam

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/advelops/adcp-salesagent/internal/adapter"
)

// gamEndpoint maps a canonical inventory type to GAM's own resource path.
func gamEndpoint(invType adapter.InventoryType) (string, bool) {
	switch invType {
	case adapter.InventoryAdUnits:
		return "/inventory/ad_units", true
	case adapter.InventoryPlacements:
		return "/inventory/placements", true
	case adapter.InventoryLabels:
		return "/inventory/labels", true
	case adapter.InventoryCustomTargetingKey:
		return "/inventory/custom_targeting_keys", true
	case adapter.InventoryAudienceSegments:
		// First-party audience segments only; third-party segments are
		// never synced (the upstream set is enormous and not
		// tenant-specific).
		return "/inventory/audience_segments?scope=first_party", true
	default:
		return "", false
	}
}

// DiscoverPage fetches one page of GAM inventory items of the given type,
// filtered server-side to non-archived items and, for incremental syncs,
// to items modified since the watermark.
func (a *Adapter) DiscoverPage(ctx context.Context, invType adapter.InventoryType, since time.Time, cursor string) (adapter.DiscoveryPage, error) {
	endpoint, ok := gamEndpoint(invType)
	if !ok {
		return adapter.DiscoveryPage{}, fmt.Errorf("gam: unsupported inventory type %s", invType)
	}

	q := url.Values{}
	q.Set("archived", "false")
	if !since.IsZero() {
		q.Set("modified_since", since.UTC().Format(time.RFC3339))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	sep := "?"
	if len(q) > 0 {
		if containsQuery(endpoint) {
			sep = "&"
		}
		endpoint += sep + q.Encode()
	}

	var out struct {
		Items []struct {
			ID           string            `json:"id"`
			Name         string            `json:"name"`
			Path         []string          `json:"path"`
			Metadata     map[string]any    `json:"metadata"`
			LastModified time.Time         `json:"last_modified"`
			Archived     bool              `json:"archived"`
		} `json:"items"`
		NextCursor string `json:"next_cursor"`
	}
	if err := a.call(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return adapter.DiscoveryPage{}, err
	}

	page := adapter.DiscoveryPage{NextCursor: out.NextCursor, Done: out.NextCursor == ""}
	for _, item := range out.Items {
		page.Items = append(page.Items, adapter.DiscoveryItem{
			ID:           item.ID,
			Name:         item.Name,
			Path:         item.Path,
			Metadata:     item.Metadata,
			LastModified: item.LastModified,
			Archived:     item.Archived,
		})
	}
	return page, nil
}

// CustomTargetingValues lazily loads the values for a single custom
// targeting key. maxValues bounds the eager mode; zero means unbounded.
func (a *Adapter) CustomTargetingValues(ctx context.Context, keyID string, maxValues int) ([]adapter.DiscoveryItem, error) {
	path := fmt.Sprintf("/inventory/custom_targeting_keys/%s/values", keyID)
	if maxValues > 0 {
		path += "?limit=" + strconv.Itoa(maxValues)
	}

	var out struct {
		Items []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"items"`
	}
	if err := a.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	items := make([]adapter.DiscoveryItem, 0, len(out.Items))
	for _, v := range out.Items {
		items = append(items, adapter.DiscoveryItem{ID: v.ID, Name: v.Name})
	}
	return items, nil
}

func containsQuery(endpoint string) bool {
	for _, c := range endpoint {
		if c == '?' {
			return true
		}
	}
	return false
}
