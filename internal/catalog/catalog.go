// Package catalog implements product discovery (get_products) and the
// format registry that resolves creative-agent format specs.
package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/advelops/adcp-salesagent/internal/apperr"
	"github.com/advelops/adcp-salesagent/internal/db"
	"github.com/advelops/adcp-salesagent/internal/models"
)

// Filters narrows get_products results beyond tenant scoping. Only
// DeliveryType and NameSubstring are applied (see matchesFilters); MinWidth,
// MinHeight, AssetTypes and Responsive are accepted but not matched against
// products.
type Filters struct {
	DeliveryType  string
	MinWidth      int
	MinHeight     int
	AssetTypes    []string
	Responsive    *bool
	NameSubstring string
}

// Catalog resolves products for a tenant and validates them before they're
// returned on the wire.
type Catalog struct {
	store   *db.Postgres
	matcher *ProductMatcher
}

// New builds a Catalog backed by Postgres. matcher may be nil, in which case
// a brief passed to GetProducts has no effect on result ordering.
func New(store *db.Postgres, matcher *ProductMatcher) *Catalog {
	return &Catalog{store: store, matcher: matcher}
}

// GetProducts returns the tenant's product catalog filtered by delivery type
// and name substring. A stored product with no format_ids fails loudly rather than
// being silently dropped, since creative compatibility depends on it. When
// brief is non-empty and a matcher is configured, results are ranked by
// relevance to the brief rather than returned in storage order.
func (c *Catalog) GetProducts(ctx context.Context, tenantID, brief string, filters Filters) ([]models.Product, error) {
	products, err := c.store.LoadProducts(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if err := p.Validate(); err != nil {
			return nil, apperr.DataIntegrity("catalog misconfiguration: %v", err)
		}
		if !matchesFilters(p, filters) {
			continue
		}
		out = append(out, p)
	}

	if brief != "" && c.matcher != nil {
		c.rankByBrief(ctx, out, brief)
	}
	return out, nil
}

// rankByBrief sorts products in place by descending relevance score against
// brief, breaking ties by confidence. Scoring degrades to neutral per-product
// on matcher failure, so a scorer outage reorders rather than fails the call.
func (c *Catalog) rankByBrief(ctx context.Context, products []models.Product, brief string) {
	scores := make(map[string]MatchResponse, len(products))
	for _, p := range products {
		scores[p.ProductID] = c.matcher.Score(ctx, p, brief)
	}
	sort.SliceStable(products, func(i, j int) bool {
		si, sj := scores[products[i].ProductID], scores[products[j].ProductID]
		if si.Score != sj.Score {
			return si.Score > sj.Score
		}
		return si.Confidence > sj.Confidence
	})
}

// DistinctFormatIDs returns every format_id referenced by the tenant's
// products, deduplicated, for list_creative_formats to resolve against.
func (c *Catalog) DistinctFormatIDs(ctx context.Context, tenantID string) ([]models.FormatID, error) {
	products, err := c.store.LoadProducts(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	seen := make(map[models.FormatID]bool)
	var out []models.FormatID
	for _, p := range products {
		for _, id := range p.FormatIDs {
			normalized := id.Normalize()
			if seen[normalized] {
				continue
			}
			seen[normalized] = true
			out = append(out, normalized)
		}
	}
	return out, nil
}

// AuthorizedProperties is the response to list_authorized_properties: the
// publisher domains a tenant has published, independent of its product
// catalog. When publisherDomains is non-empty the result is narrowed to the
// intersection with the tenant's authorized domains.
type AuthorizedProperties struct {
	PublisherDomains []string `json:"publisher_domains"`
}

// ListAuthorizedProperties filters tenant's authorized domains by the
// optional publisherDomains request filter.
func ListAuthorizedProperties(tenant models.Tenant, publisherDomains []string) AuthorizedProperties {
	if len(publisherDomains) == 0 {
		return AuthorizedProperties{PublisherDomains: tenant.AuthorizedDomains}
	}
	want := make(map[string]bool, len(publisherDomains))
	for _, d := range publisherDomains {
		want[d] = true
	}
	var out []string
	for _, d := range tenant.AuthorizedDomains {
		if want[d] {
			out = append(out, d)
		}
	}
	return AuthorizedProperties{PublisherDomains: out}
}

func matchesFilters(p models.Product, f Filters) bool {
	if f.DeliveryType != "" && p.DeliveryType != f.DeliveryType {
		return false
	}
	if f.NameSubstring != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.NameSubstring)) {
		return false
	}
	return true
}
