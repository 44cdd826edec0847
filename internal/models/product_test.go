package models

import "testing"

func TestFormatID_NormalizeTrimsTrailingSlash(t *testing.T) {
	f := FormatID{AgentURL: "https://creatives.example.com/", ID: "display_300x250"}
	norm := f.Normalize()
	if norm.AgentURL != "https://creatives.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", norm.AgentURL)
	}
}

func TestFormatID_EqualIgnoresTrailingSlash(t *testing.T) {
	a := FormatID{AgentURL: "https://creatives.example.com/", ID: "display_300x250"}
	b := FormatID{AgentURL: "https://creatives.example.com", ID: "display_300x250"}
	if !a.Equal(b) {
		t.Fatal("expected format IDs to be equal modulo trailing slash")
	}
}

func TestProduct_ValidateRequiresFormatIDs(t *testing.T) {
	p := Product{
		ProductID:           "prod_1",
		PublisherProperties: []PublisherProperty{{PropertyType: "site", PropertyID: "p1"}},
		PricingOptions:      []PricingOption{{PricingOptionID: "po_1", Currency: "USD", IsFixed: true}},
	}
	if err := p.Validate(); err == nil {
		t.Fatal("expected validation error for missing format_ids")
	}
}
