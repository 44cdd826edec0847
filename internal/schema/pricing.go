package schema

import (
	"github.com/advelops/adcp-salesagent/internal/apperr"
	"github.com/advelops/adcp-salesagent/internal/models"
)

// SelectPricing resolves the PricingOption a package should use, enforcing
// the validation rules from the pricing-selection contract:
//
//   - a product with no pricing_options is a data integrity error, not a
//     validation error, since it should never have been configured that way
//   - a requested pricing_option_id that doesn't exist on the product, or a
//     pricing_model the product doesn't offer, is a validation error
//   - a fixed option with no rate configured is a data integrity error
//   - an auction option requires bidPrice >= its price guidance floor
//   - when campaignCurrency is set, the chosen option's currency must match
//     it; when absent (a scalar budget with no request-level currency),
//     currency is inherited from the selected pricing option
//   - budget below the option's min_spend_per_package is a validation error
func SelectPricing(product models.Product, pricingOptionID, pricingModel string, bidPrice *float64, budget float64, campaignCurrency string) (models.PricingOption, error) {
	if len(product.PricingOptions) == 0 {
		return models.PricingOption{}, apperr.DataIntegrity("product %s has no pricing_options configured", product.ProductID)
	}

	var opt models.PricingOption
	var found bool
	if pricingOptionID != "" {
		opt, found = product.PricingOptionByID(pricingOptionID)
		if !found {
			return models.PricingOption{}, apperr.Validation("pricing_option_id %q not found on product %s", pricingOptionID, product.ProductID)
		}
	} else if pricingModel != "" {
		opt, found = product.PricingOptionByModel(pricingModel)
		if !found {
			return models.PricingOption{}, apperr.Validation("pricing_model %q not offered by product %s", pricingModel, product.ProductID)
		}
	} else {
		return models.PricingOption{}, apperr.Validation("package must specify pricing_option_id or pricing_model")
	}

	if opt.IsFixed {
		if opt.Rate == nil {
			return models.PricingOption{}, apperr.DataIntegrity("fixed pricing option %s on product %s has no rate", opt.PricingOptionID, product.ProductID)
		}
	} else {
		if opt.PriceGuidance == nil {
			return models.PricingOption{}, apperr.DataIntegrity("auction pricing option %s on product %s has no price_guidance", opt.PricingOptionID, product.ProductID)
		}
		if bidPrice == nil || *bidPrice < opt.PriceGuidance.Floor {
			return models.PricingOption{}, apperr.Validation("bid_price must be >= price_guidance.floor (%.4f) for pricing option %s", opt.PriceGuidance.Floor, opt.PricingOptionID)
		}
	}

	if campaignCurrency != "" && opt.Currency != campaignCurrency {
		return models.PricingOption{}, apperr.Validation("pricing option %s currency %s does not match campaign currency %s", opt.PricingOptionID, opt.Currency, campaignCurrency)
	}

	if opt.MinSpendPerPackage != nil && budget < *opt.MinSpendPerPackage {
		return models.PricingOption{}, apperr.Validation("package budget %.2f is below min_spend_per_package %.2f for pricing option %s", budget, *opt.MinSpendPerPackage, opt.PricingOptionID)
	}

	return opt, nil
}
