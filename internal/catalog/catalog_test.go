package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/advelops/adcp-salesagent/internal/models"
)

func TestMatchesFilters_DeliveryType(t *testing.T) {
	p := models.Product{DeliveryType: models.DeliveryTypeGuaranteed, Name: "Homepage Takeover"}

	if !matchesFilters(p, Filters{DeliveryType: models.DeliveryTypeGuaranteed}) {
		t.Fatal("expected product to match its own delivery type")
	}
	if matchesFilters(p, Filters{DeliveryType: models.DeliveryTypeNonGuaranteed}) {
		t.Fatal("expected product not to match a different delivery type")
	}
}

func TestMatchesFilters_NameSubstringCaseInsensitive(t *testing.T) {
	p := models.Product{Name: "Homepage Takeover"}
	if !matchesFilters(p, Filters{NameSubstring: "homepage"}) {
		t.Fatal("expected case-insensitive substring match")
	}
	if matchesFilters(p, Filters{NameSubstring: "sidebar"}) {
		t.Fatal("expected no match for unrelated substring")
	}
}

func TestRankByBrief_OrdersByScoreDescending(t *testing.T) {
	matcher := NewProductMatcher("http://unused.invalid", time.Second, time.Minute, nil, nil)
	low := models.Product{ProductID: "p_low"}
	high := models.Product{ProductID: "p_high"}
	matcher.cache[matcher.cacheKey(low.ProductID, "sports")] = cachedMatch{
		response: MatchResponse{ProductID: low.ProductID, Score: 0.2, Confidence: 1},
		timestamp: time.Now(), ttl: time.Minute,
	}
	matcher.cache[matcher.cacheKey(high.ProductID, "sports")] = cachedMatch{
		response: MatchResponse{ProductID: high.ProductID, Score: 0.9, Confidence: 1},
		timestamp: time.Now(), ttl: time.Minute,
	}

	c := &Catalog{matcher: matcher}
	products := []models.Product{low, high}
	c.rankByBrief(context.Background(), products, "sports")

	if products[0].ProductID != "p_high" || products[1].ProductID != "p_low" {
		t.Fatalf("expected high-scoring product first, got %v", products)
	}
}
