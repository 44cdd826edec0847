package schema

import (
	"encoding/json"
	"testing"
)

type successPayload struct {
	MediaBuyID string `json:"media_buy_id"`
}

func TestResult_SuccessMarshalsValueDirectly(t *testing.T) {
	r := Ok(successPayload{MediaBuyID: "mb_1"})

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, hasErrors := decoded["errors"]; hasErrors {
		t.Fatal("success result must not carry an errors field")
	}
	if decoded["media_buy_id"] != "mb_1" {
		t.Fatalf("expected media_buy_id mb_1, got %v", decoded["media_buy_id"])
	}
}

func TestResult_FailureMarshalsErrorsArray(t *testing.T) {
	r := Err[successPayload]("validation_error", "buyer_ref is required")

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded struct {
		Errors []Error `json:"errors"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.Errors) != 1 || decoded.Errors[0].Code != "validation_error" {
		t.Fatalf("unexpected errors payload: %+v", decoded.Errors)
	}

	if _, ok := r.Value(); ok {
		t.Fatal("expected Value() ok=false for a failure result")
	}
}

func TestResult_IsSuccess(t *testing.T) {
	ok := Ok(1)
	if !ok.IsSuccess() {
		t.Fatal("expected success result to report IsSuccess")
	}
	fail := Err[int]("not_found", "missing")
	if fail.IsSuccess() {
		t.Fatal("expected failure result to report !IsSuccess")
	}
}
