package schema

import (
	"encoding/json"
	"testing"
)

func TestBudget_ExtractNumber(t *testing.T) {
	var b Budget
	if err := json.Unmarshal([]byte("1500.5"), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	amount, currency, err := b.Extract("USD")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if amount != 1500.5 || currency != "USD" {
		t.Fatalf("expected (1500.5, USD), got (%v, %v)", amount, currency)
	}
}

func TestBudget_ExtractObjectOwnCurrencyWins(t *testing.T) {
	var b Budget
	if err := json.Unmarshal([]byte(`{"total": 2000, "currency": "EUR"}`), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	amount, currency, err := b.Extract("USD")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if amount != 2000 || currency != "EUR" {
		t.Fatalf("expected (2000, EUR), got (%v, %v)", amount, currency)
	}
}

func TestBudget_ExtractNullUsesDefault(t *testing.T) {
	var b Budget
	if err := json.Unmarshal([]byte("null"), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	amount, currency, err := b.Extract("USD")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if amount != 0.0 || currency != "USD" {
		t.Fatalf("expected (0.0, USD), got (%v, %v)", amount, currency)
	}
}

func TestBudget_ExtractUnsetUsesDefault(t *testing.T) {
	var b Budget
	amount, currency, err := b.Extract("GBP")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if amount != 0.0 || currency != "GBP" {
		t.Fatalf("expected (0.0, GBP), got (%v, %v)", amount, currency)
	}
}

func TestValidateCurrencyAmount_RejectsNegative(t *testing.T) {
	if err := ValidateCurrencyAmount(-5); err == nil {
		t.Fatal("expected an error for a negative amount")
	}
}

func TestValidateCurrencyAmount_RejectsSubCentPrecision(t *testing.T) {
	if err := ValidateCurrencyAmount(499.999); err == nil {
		t.Fatal("expected an error for sub-cent precision")
	}
}

func TestValidateCurrencyAmount_AcceptsWholeCents(t *testing.T) {
	if err := ValidateCurrencyAmount(1500.50); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := ValidateCurrencyAmount(0); err != nil {
		t.Fatalf("expected no error for zero, got %v", err)
	}
}
