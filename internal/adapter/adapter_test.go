package adapter

import "testing"

func TestNegotiateTargeting_ManagedOnlyViolation(t *testing.T) {
	caps := TargetingCapabilities{"device": AccessManagedOnly, "geo": AccessOverlay}
	violations := NegotiateTargeting(caps, map[string]any{"device": "mobile", "geo": "US"})
	if len(violations) != 1 || violations[0] != "device" {
		t.Fatalf("expected exactly [device], got %v", violations)
	}
}

func TestNegotiateTargeting_AEEAlwaysManagedOnly(t *testing.T) {
	caps := TargetingCapabilities{}
	violations := NegotiateTargeting(caps, map[string]any{"aee_segment": "x"})
	if len(violations) != 1 || violations[0] != "aee_segment" {
		t.Fatalf("expected aee_segment to violate regardless of adapter caps, got %v", violations)
	}
}

func TestShouldAutoActivate(t *testing.T) {
	cases := []struct {
		lineItemType string
		automation   string
		want         bool
	}{
		{LineItemTypeNetwork, AutomationAutomatic, true},
		{LineItemTypeNetwork, AutomationManual, false},
		{LineItemTypeStandard, AutomationAutomatic, false},
		{LineItemTypeBulk, AutomationConfirmationRequired, false},
	}
	for _, c := range cases {
		if got := ShouldAutoActivate(c.lineItemType, c.automation); got != c.want {
			t.Errorf("ShouldAutoActivate(%s, %s) = %v, want %v", c.lineItemType, c.automation, got, c.want)
		}
	}
}
