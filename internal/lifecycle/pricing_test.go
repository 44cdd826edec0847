package lifecycle

import (
	"encoding/json"
	"testing"

	"github.com/advelops/adcp-salesagent/internal/models"
)

func TestWritePricing_RoundTrips(t *testing.T) {
	rate := 12.5
	opt := models.PricingOption{PricingOptionID: "po_1", PricingModel: models.PricingModelCPM, Rate: &rate}
	pacing := "even"

	raw, err := WritePricing(opt, nil, 500.0, "USD", &pacing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded legacyPackageConfig
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}
	if decoded.PricingOptionID != "po_1" || decoded.Budget != 500.0 || decoded.Currency != "USD" {
		t.Fatalf("unexpected decoded config: %+v", decoded)
	}
	if decoded.Rate == nil || *decoded.Rate != rate {
		t.Fatalf("expected rate to round-trip, got %+v", decoded.Rate)
	}
}
