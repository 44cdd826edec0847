package main

import (
	"testing"

	"github.com/advelops/adcp-salesagent/internal/apperr"
	"github.com/advelops/adcp-salesagent/internal/config"
	"github.com/advelops/adcp-salesagent/internal/lifecycle"
	"github.com/advelops/adcp-salesagent/internal/schema"
)

func TestErrorResult_WrapsAppError(t *testing.T) {
	result := errorResult(apperr.NotFound("media buy %s not found", "mb_1"))
	if !result.IsError {
		t.Fatal("expected IsError true")
	}
}

func TestMediaBuyResultError_ExtractsFailureBranch(t *testing.T) {
	failed := schema.Err[lifecycle.CreateMediaBuyResponse](apperr.CodeValidationError, "budget must be positive")
	result := mediaBuyResultError(failed)
	if !result.IsError {
		t.Fatal("expected IsError true")
	}
}

func TestBuildAdapterResolver_SelectsByAdServer(t *testing.T) {
	resolve := buildAdapterResolver(config.Config{})

	for _, name := range []string{"mock", "", "gam", "kevel", "triton"} {
		cap, err := resolve("tenant_1", name)
		if err != nil {
			t.Fatalf("ad_server %q: unexpected error %v", name, err)
		}
		if cap == nil {
			t.Fatalf("ad_server %q: expected a capability", name)
		}
	}

	if _, err := resolve("tenant_1", "unknown_server"); err == nil {
		t.Fatal("expected an error for an unsupported ad_server")
	}
}
