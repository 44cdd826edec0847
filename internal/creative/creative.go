// Package creative implements the creative library: sync_creatives,
// list_creatives, and the validation chain run before a creative can be
// dispatched to an adapter.
package creative

import (
	"context"
	"sort"
	"time"

	"github.com/advelops/adcp-salesagent/internal/apperr"
	"github.com/advelops/adcp-salesagent/internal/catalog"
	"github.com/advelops/adcp-salesagent/internal/db"
	"github.com/advelops/adcp-salesagent/internal/models"
)

// Service manages the creative library for a tenant.
type Service struct {
	store    *db.Postgres
	formats  *catalog.FormatRegistry
}

// New builds a creative Service.
func New(store *db.Postgres, formats *catalog.FormatRegistry) *Service {
	return &Service{store: store, formats: formats}
}

// SyncCreatives upserts the given creatives into a principal's library.
// CreatedAt/UpdatedAt are stamped by the database; callers need not set
// timestamps.
func (s *Service) SyncCreatives(ctx context.Context, tenantID, principalID string, creatives []models.Creative) ([]models.Creative, error) {
	out := make([]models.Creative, 0, len(creatives))
	for _, c := range creatives {
		c.TenantID = tenantID
		c.PrincipalID = principalID
		if c.Status == "" {
			c.Status = models.CreativeStatusPendingReview
		}
		if err := s.store.InsertOrUpdateCreative(ctx, c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// ListCreatives returns every creative a principal has synced.
func (s *Service) ListCreatives(ctx context.Context, tenantID, principalID string) ([]models.Creative, error) {
	return s.store.LoadCreatives(ctx, tenantID, principalID)
}

// Validate runs the pre-dispatch validation chain on a creative: its
// format must resolve via the registry, every asset the format flags
// required must be present, and each required asset must carry either an
// explicit URL or a format-defined fallback.
func (s *Service) Validate(ctx context.Context, tenantID string, c models.Creative) error {
	spec, err := s.formats.Resolve(ctx, tenantID, c.FormatID)
	if err != nil {
		return apperr.Validation("creative %s format could not be resolved: %v", c.CreativeID, err)
	}

	renderAssets := c.RenderAssets()
	for _, role := range spec.RequiredAssets {
		asset, ok := renderAssets[role]
		if !ok {
			return apperr.Validation("creative %s is missing required asset %q for format %s", c.CreativeID, role, spec.FormatID.ID)
		}
		if asset.URL == "" {
			if _, hasFallback := spec.FallbackURLs[role]; !hasFallback {
				return apperr.Validation("creative %s asset %q has no URL and no format fallback", c.CreativeID, role)
			}
		}
	}
	return nil
}

// ResolvedURL returns the URL to use for a rendered asset: the asset's own
// URL if set, otherwise the format's fallback for that role.
func ResolvedURL(asset models.Asset, role string, spec catalog.FormatSpec) string {
	if asset.URL != "" {
		return asset.URL
	}
	return spec.FallbackURLs[role]
}

// DeliverySettings is the adapter-facing view of a creative's tracking
// pixels, lifted out of assets per the tracking-pixel invariant.
type DeliverySettings struct {
	TrackingURLs TrackingURLs `json:"tracking_urls,omitempty"`
}

// TrackingURLs carries the impression tracking pixel URL(s) lifted from a
// creative's impression_tracker_* assets.
type TrackingURLs struct {
	Impression []string `json:"impression,omitempty"`
}

// BuildDeliverySettings lifts a creative's impression_tracker_* assets into
// the adapter-facing delivery_settings.tracking_urls.impression list, in
// ascending asset-key order so the result is deterministic regardless of Go's
// randomized map iteration.
func BuildDeliverySettings(c models.Creative) DeliverySettings {
	tracking := c.TrackingAssets()
	keys := make([]string, 0, len(tracking))
	for k := range tracking {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var urls []string
	for _, k := range keys {
		if asset := tracking[k]; asset.URL != "" {
			urls = append(urls, asset.URL)
		}
	}
	return DeliverySettings{TrackingURLs: TrackingURLs{Impression: urls}}
}

// reviewDeadline is the review SLA IsOverdue applies when deciding whether a
// pending_review creative has aged out; kept here so the review SLA lives
// alongside the status constants it interprets.
const reviewDeadline = 24 * time.Hour

// IsOverdue reports whether a pending_review creative has exceeded the
// review SLA.
func IsOverdue(c models.Creative, now time.Time) bool {
	return c.Status == models.CreativeStatusPendingReview && now.Sub(c.CreatedAt) > reviewDeadline
}
