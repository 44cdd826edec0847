package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/advelops/adcp-salesagent/internal/apperr"
	"github.com/advelops/adcp-salesagent/internal/db"
	"github.com/advelops/adcp-salesagent/internal/models"
)

// FormatSpec is the creative-agent's description of a format: the required
// and optional asset roles a creative must populate to satisfy it, plus the
// descriptive metadata list_creative_formats filters on.
type FormatSpec struct {
	FormatID       models.FormatID   `json:"format_id"`
	Name           string            `json:"name"`
	Type           string            `json:"type,omitempty"`
	IsStandard     bool              `json:"is_standard,omitempty"`
	Width          *int              `json:"width,omitempty"`
	Height         *int              `json:"height,omitempty"`
	IsResponsive   bool              `json:"is_responsive,omitempty"`
	AssetTypes     []string          `json:"asset_types,omitempty"`
	RequiredAssets []string          `json:"required_assets"`
	FallbackURLs   map[string]string `json:"fallback_urls,omitempty"`
}

// FormatFilter narrows ListAll to formats matching every set criterion. A
// zero-valued field imposes no constraint.
type FormatFilter struct {
	Type         string
	FormatIDs    []models.FormatID
	IsResponsive *bool
	NameSearch   string
	MinWidth     *int
	MaxWidth     *int
	MinHeight    *int
	MaxHeight    *int
	AssetTypes   []string
}

func (f FormatSpec) matches(filter FormatFilter) bool {
	if filter.Type != "" && f.Type != filter.Type {
		return false
	}
	if len(filter.FormatIDs) > 0 {
		found := false
		for _, id := range filter.FormatIDs {
			if f.FormatID.Equal(id) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.IsResponsive != nil && f.IsResponsive != *filter.IsResponsive {
		return false
	}
	if filter.NameSearch != "" && !strings.Contains(strings.ToLower(f.Name), strings.ToLower(filter.NameSearch)) {
		return false
	}
	if (filter.MinWidth != nil || filter.MaxWidth != nil) && f.Width == nil {
		return false
	}
	if filter.MinWidth != nil && f.Width != nil && *f.Width < *filter.MinWidth {
		return false
	}
	if filter.MaxWidth != nil && f.Width != nil && *f.Width > *filter.MaxWidth {
		return false
	}
	if (filter.MinHeight != nil || filter.MaxHeight != nil) && f.Height == nil {
		return false
	}
	if filter.MinHeight != nil && f.Height != nil && *f.Height < *filter.MinHeight {
		return false
	}
	if filter.MaxHeight != nil && f.Height != nil && *f.Height > *filter.MaxHeight {
		return false
	}
	if len(filter.AssetTypes) > 0 {
		if !hasAnyAssetType(f.AssetTypes, filter.AssetTypes) {
			return false
		}
	}
	return true
}

func hasAnyAssetType(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, t := range have {
		set[t] = true
	}
	for _, t := range want {
		if set[t] {
			return true
		}
	}
	return false
}

// FormatRegistry resolves format specs from a remote creative agent by
// (agent_url, format_id), caching results in Redis per tenant so repeated
// sync_creatives/list_creative_formats calls don't round-trip on every request.
type FormatRegistry struct {
	redis  *db.RedisStore
	client *http.Client
	ttl    time.Duration
}

// NewFormatRegistry builds a FormatRegistry with the given HTTP timeout and
// cache TTL.
func NewFormatRegistry(redis *db.RedisStore, httpTimeout, cacheTTL time.Duration) *FormatRegistry {
	return &FormatRegistry{
		redis:  redis,
		client: &http.Client{Timeout: httpTimeout},
		ttl:    cacheTTL,
	}
}

// Resolve returns the format spec for (agentURL, formatID), scoped to a
// tenant for caching purposes. It checks the Redis cache first, falling
// back to an HTTP GET against the creative agent.
func (r *FormatRegistry) Resolve(ctx context.Context, tenantID string, formatID models.FormatID) (FormatSpec, error) {
	normalized := formatID.Normalize()

	if r.redis != nil {
		var cached FormatSpec
		if ok, err := r.redis.GetCachedFormat(tenantID, normalized.AgentURL, normalized.ID, &cached); err == nil && ok {
			return cached, nil
		}
	}

	spec, err := r.fetch(ctx, normalized)
	if err != nil {
		return FormatSpec{}, err
	}

	if r.redis != nil {
		_ = r.redis.CacheFormat(tenantID, normalized.AgentURL, normalized.ID, spec, r.ttl)
	}
	return spec, nil
}

func (r *FormatRegistry) fetch(ctx context.Context, formatID models.FormatID) (FormatSpec, error) {
	url := fmt.Sprintf("%s/formats/%s", formatID.AgentURL, formatID.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return FormatSpec{}, fmt.Errorf("build format request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return FormatSpec{}, apperr.Unavailable("format agent unreachable: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return FormatSpec{}, apperr.NotFound("format %s not found at %s", formatID.ID, formatID.AgentURL)
	}
	if resp.StatusCode != http.StatusOK {
		return FormatSpec{}, apperr.Adapter("format agent returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FormatSpec{}, fmt.Errorf("read format response: %w", err)
	}
	var spec FormatSpec
	if err := json.Unmarshal(body, &spec); err != nil {
		return FormatSpec{}, fmt.Errorf("parse format response: %w", err)
	}
	spec.FormatID = formatID
	return spec, nil
}

// ListAll resolves every format in candidates and returns the ones matching
// filter, sorted by name. A format that fails to resolve (creative agent
// unreachable, 404) is skipped rather than failing the whole call, since
// list_creative_formats is a best-effort discovery surface over possibly
// many third-party creative agents.
func (r *FormatRegistry) ListAll(ctx context.Context, tenantID string, candidates []models.FormatID, filter FormatFilter) []FormatSpec {
	out := make([]FormatSpec, 0, len(candidates))
	for _, id := range candidates {
		spec, err := r.Resolve(ctx, tenantID, id)
		if err != nil {
			continue
		}
		if spec.matches(filter) {
			out = append(out, spec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
