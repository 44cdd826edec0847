package models

import "fmt"

// DeliveryType distinguishes guaranteed (reserved) inventory from
// non-guaranteed (auction) inventory.
const (
	DeliveryTypeGuaranteed    = "guaranteed"
	DeliveryTypeNonGuaranteed = "non_guaranteed"
)

// Pricing models supported by PricingOption.PricingModel.
const (
	PricingModelCPM  = "CPM"
	PricingModelCPCV = "CPCV"
	PricingModelCPC  = "CPC"
	PricingModelCPP  = "CPP"
	PricingModelCPV  = "CPV"
)

// FormatID identifies a creative format hosted by a (possibly third-party)
// creative agent. Equality between two FormatIDs must compare the
// normalized form of AgentURL: stringified and right-trimmed of a trailing
// slash.
type FormatID struct {
	AgentURL string `json:"agent_url"`
	ID       string `json:"id"`
}

// Normalize returns a copy of f with AgentURL right-trimmed of trailing
// slashes, the canonical form used for FormatID comparisons and cache keys.
func (f FormatID) Normalize() FormatID {
	trimmed := f.AgentURL
	for len(trimmed) > 0 && trimmed[len(trimmed)-1] == '/' {
		trimmed = trimmed[:len(trimmed)-1]
	}
	return FormatID{AgentURL: trimmed, ID: f.ID}
}

// Equal reports whether f and other refer to the same format, comparing
// normalized agent URLs.
func (f FormatID) Equal(other FormatID) bool {
	a, b := f.Normalize(), other.Normalize()
	return a.AgentURL == b.AgentURL && a.ID == b.ID
}

// PriceGuidance bounds an auction-priced PricingOption.
type PriceGuidance struct {
	Floor float64  `json:"floor"`
	P25   *float64 `json:"p25,omitempty"`
	P50   *float64 `json:"p50,omitempty"`
	P75   *float64 `json:"p75,omitempty"`
	P90   *float64 `json:"p90,omitempty"`
}

// PricingOption is one pricing contract a Product can be sold under.
// Exactly one of Rate (when IsFixed) or PriceGuidance (when auction-priced)
// is populated; IsFixed itself is internal and stripped before the product
// is serialized on the wire.
type PricingOption struct {
	PricingOptionID    string         `json:"pricing_option_id"`
	PricingModel       string         `json:"pricing_model"`
	Currency           string         `json:"currency"`
	IsFixed            bool           `json:"-"`
	Rate               *float64       `json:"rate,omitempty"`
	PriceGuidance      *PriceGuidance `json:"price_guidance,omitempty"`
	MinSpendPerPackage *float64       `json:"min_spend_per_package,omitempty"`
}

// PublisherProperty names the inventory surface (site, app, network) the
// product draws from.
type PublisherProperty struct {
	PropertyType string `json:"property_type"`
	PropertyID   string `json:"property_id"`
	Name         string `json:"name,omitempty"`
}

// DeliveryMeasurement describes how delivery is reported for this product.
type DeliveryMeasurement struct {
	Methodology string `json:"methodology"`
	Source      string `json:"source,omitempty"`
}

// Product is a sellable bundle of inventory offered to buyers via
// get_products. FormatIDs must be non-empty: creative compatibility
// validation during media-buy creation depends on it, and conversion to the
// wire representation must fail loudly rather than silently advertise a
// product no creative could ever satisfy.
type Product struct {
	ProductID            string               `json:"product_id"`
	TenantID             string               `json:"-"`
	Name                 string               `json:"name"`
	Description          string               `json:"description"`
	FormatIDs            []FormatID           `json:"format_ids"`
	DeliveryType         string               `json:"delivery_type"`
	PublisherProperties  []PublisherProperty  `json:"publisher_properties"`
	PricingOptions       []PricingOption      `json:"pricing_options"`
	DeliveryMeasurement  DeliveryMeasurement  `json:"delivery_measurement"`
}

// Validate checks the required-non-empty invariants on Product that must
// hold before it can be converted to a wire response.
func (p Product) Validate() error {
	if len(p.FormatIDs) == 0 {
		return fmt.Errorf("product %s has no format_ids", p.ProductID)
	}
	if len(p.PublisherProperties) == 0 {
		return fmt.Errorf("product %s has no publisher_properties", p.ProductID)
	}
	if len(p.PricingOptions) == 0 {
		return fmt.Errorf("product %s has no pricing_options", p.ProductID)
	}
	return nil
}

// PricingOptionByID returns the pricing option with the given ID, if present.
func (p Product) PricingOptionByID(id string) (PricingOption, bool) {
	for _, po := range p.PricingOptions {
		if po.PricingOptionID == id {
			return po, true
		}
	}
	return PricingOption{}, false
}

// PricingOptionByModel returns the first pricing option offering the given
// pricing model, if present.
func (p Product) PricingOptionByModel(model string) (PricingOption, bool) {
	for _, po := range p.PricingOptions {
		if po.PricingModel == model {
			return po, true
		}
	}
	return PricingOption{}, false
}
