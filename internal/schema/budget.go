package schema

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// BudgetObject is the structured form a budget value may take on the wire:
// {"total": 500, "currency": "USD", "pacing": "even"}.
type BudgetObject struct {
	Total    float64 `json:"total"`
	Currency string  `json:"currency,omitempty"`
	Pacing   string  `json:"pacing,omitempty"`
}

// Budget is the sum type `Number | BudgetObject | None` accepted at the
// schema boundary for legacy compatibility. It must never leak past
// Extract: every internal consumer works with (amount, currency) pairs.
type Budget struct {
	raw json.RawMessage
}

// UnmarshalJSON stores the raw bytes; discrimination happens in Extract so
// callers can supply the request-level default currency at extraction time.
func (b *Budget) UnmarshalJSON(data []byte) error {
	b.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON round-trips the stored raw value, or null if unset.
func (b Budget) MarshalJSON() ([]byte, error) {
	if b.raw == nil {
		return []byte("null"), nil
	}
	return b.raw, nil
}

// Extract discriminates the three accepted shapes and returns (amount,
// currency). A null/absent budget yields (0.0, defaultCurrency). A plain
// number yields (value, defaultCurrency). An object's own currency, when
// present, wins over defaultCurrency.
func (b Budget) Extract(defaultCurrency string) (amount float64, currency string, err error) {
	if len(b.raw) == 0 || string(b.raw) == "null" {
		return 0.0, defaultCurrency, nil
	}

	var num float64
	if err := json.Unmarshal(b.raw, &num); err == nil {
		return num, defaultCurrency, nil
	}

	var obj BudgetObject
	if err := json.Unmarshal(b.raw, &obj); err == nil {
		cur := obj.Currency
		if cur == "" {
			cur = defaultCurrency
		}
		return obj.Total, cur, nil
	}

	return 0, "", fmt.Errorf("budget value is neither a number nor an object: %s", string(b.raw))
}

// ValidateCurrencyAmount rejects negative amounts and amounts carrying
// sub-cent precision. Buyer-supplied budgets arrive as float64 over JSON,
// which can smuggle in a value like 499.999999999 that looks like a rounding
// artifact rather than an intentional price; decimal makes that check exact
// instead of comparing floats against an epsilon.
func ValidateCurrencyAmount(amount float64) error {
	if amount < 0 {
		return fmt.Errorf("amount %v must not be negative", amount)
	}
	d := decimal.NewFromFloat(amount)
	if !d.Equal(d.Round(2)) {
		return fmt.Errorf("amount %v must not carry sub-cent precision", amount)
	}
	return nil
}
