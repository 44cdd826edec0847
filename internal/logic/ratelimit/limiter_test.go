package ratelimit

import (
	"testing"

	"github.com/advelops/adcp-salesagent/internal/observability"
)

func TestKeyedLimiter_AllowAndStats(t *testing.T) {
	limiter := NewKeyedLimiter(Config{Capacity: 2, RefillRate: 0, Enabled: true}, observability.NewNoOpRegistry())

	if !limiter.Allow("adapter:gam") {
		t.Fatal("expected first request to be allowed")
	}
	if !limiter.Allow("adapter:gam") {
		t.Fatal("expected second request to be allowed")
	}
	if limiter.Allow("adapter:gam") {
		t.Fatal("expected third request to be rate limited")
	}

	stats := limiter.GetStats()
	s, ok := stats["adapter:gam"]
	if !ok {
		t.Fatal("expected stats entry for adapter:gam")
	}
	if s.Hits != 1 || s.Total != 3 {
		t.Errorf("expected 1 hit / 3 total, got %d/%d", s.Hits, s.Total)
	}
}

func TestKeyedLimiter_Disabled(t *testing.T) {
	limiter := NewKeyedLimiter(Config{Capacity: 1, RefillRate: 0, Enabled: false}, observability.NewNoOpRegistry())

	for i := 0; i < 5; i++ {
		if !limiter.Allow("adapter:kevel") {
			t.Fatal("expected all requests to be allowed when rate limiting is disabled")
		}
	}
}

func TestKeyedLimiter_IsolatesKeys(t *testing.T) {
	limiter := NewKeyedLimiter(Config{Capacity: 1, RefillRate: 0, Enabled: true}, observability.NewNoOpRegistry())

	if !limiter.Allow("adapter:gam") {
		t.Fatal("expected adapter:gam to be allowed")
	}
	if !limiter.Allow("adapter:kevel") {
		t.Fatal("expected adapter:kevel to have its own bucket")
	}
	if limiter.Allow("adapter:gam") {
		t.Fatal("expected adapter:gam bucket to be exhausted")
	}
}
