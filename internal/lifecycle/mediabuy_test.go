package lifecycle

import "testing"

func TestGenerateMediaBuyID_IncorporatesPONumber(t *testing.T) {
	id := GenerateMediaBuyID("buyer-1", "PO-42")
	if len(id) == 0 {
		t.Fatal("expected non-empty media_buy_id")
	}
	if id[:8] != "mb-PO-42" {
		t.Fatalf("expected id to incorporate po_number, got %s", id)
	}
}

func TestGenerateMediaBuyID_WithoutPONumber(t *testing.T) {
	id := GenerateMediaBuyID("buyer-1", "")
	if id[:3] != "mb-" {
		t.Fatalf("expected mb- prefix, got %s", id)
	}
}
