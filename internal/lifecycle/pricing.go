package lifecycle

import (
	"encoding/json"

	"github.com/advelops/adcp-salesagent/internal/models"
)

// legacyPackageConfig is the backward-compatible JSON projection of a
// package's pricing terms, carried alongside the typed MediaPackage
// columns so older readers that expect the pre-typed-columns shape keep
// working (dual-write).
type legacyPackageConfig struct {
	PricingOptionID string   `json:"pricing_option_id"`
	PricingModel    string   `json:"pricing_model"`
	Rate            *float64 `json:"rate,omitempty"`
	BidPrice        *float64 `json:"bid_price,omitempty"`
	Budget          float64  `json:"budget"`
	Currency        string   `json:"currency"`
	Pacing          *string  `json:"pacing,omitempty"`
}

// WritePricing builds the legacy package_config JSON projection for a
// resolved pricing option, to be dual-written alongside the typed
// MediaPackage columns. Callers must keep both in sync on every pricing
// mutation.
func WritePricing(opt models.PricingOption, bidPrice *float64, budget float64, currency string, pacing *string) ([]byte, error) {
	cfg := legacyPackageConfig{
		PricingOptionID: opt.PricingOptionID,
		PricingModel:    opt.PricingModel,
		Rate:            opt.Rate,
		BidPrice:        bidPrice,
		Budget:          budget,
		Currency:        currency,
		Pacing:          pacing,
	}
	return json.Marshal(cfg)
}

// UpdatePricingConfig rewrites the mutable fields of an existing
// package_config blob for an update_media_buy budget/pacing change,
// preserving the pricing_option_id/pricing_model/rate recorded at create
// time. A missing or malformed existing blob degrades to a blank base
// rather than failing the update.
func UpdatePricingConfig(existing []byte, bidPrice *float64, budget float64, currency string, pacing *string) ([]byte, error) {
	var cfg legacyPackageConfig
	if len(existing) > 0 {
		_ = json.Unmarshal(existing, &cfg)
	}
	cfg.BidPrice = bidPrice
	cfg.Budget = budget
	cfg.Currency = currency
	cfg.Pacing = pacing
	return json.Marshal(cfg)
}
