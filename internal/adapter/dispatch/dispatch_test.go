package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/advelops/adcp-salesagent/internal/observability"
)

func testConfig() Config {
	return Config{
		BreakerMaxRequests:  3,
		BreakerInterval:     time.Minute,
		BreakerTimeout:      time.Minute,
		BreakerFailureRatio: 0.6,
		CallTimeout:         50 * time.Millisecond,
		RateLimitEnabled:    true,
		RateLimitCapacity:   5,
		RateLimitRefillRate: 5,
	}
}

func TestDispatcher_DoSuccess(t *testing.T) {
	d := New(testConfig(), observability.NewNoOpRegistry())
	result, err := d.Do(context.Background(), "mock", "create_media_buy", func(ctx context.Context) (any, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Fatalf("expected ok, got %v", result)
	}
}

func TestDispatcher_DoTimesOut(t *testing.T) {
	d := New(testConfig(), observability.NewNoOpRegistry())
	_, err := d.Do(context.Background(), "mock", "create_media_buy", func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestDispatcher_RateLimitExceeded(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitCapacity = 1
	cfg.RateLimitRefillRate = 1
	d := New(cfg, observability.NewNoOpRegistry())

	calls := 0
	call := func(ctx context.Context) (any, error) {
		calls++
		return "ok", nil
	}

	if _, err := d.Do(context.Background(), "mock", "op", call); err != nil {
		t.Fatalf("first call should succeed: %v", err)
	}
	if _, err := d.Do(context.Background(), "mock", "op", call); err == nil {
		t.Fatal("expected second call to be rate limited")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call to reach fn, got %d", calls)
	}
}

func TestDispatcher_BreakerTripsAfterFailures(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitEnabled = false
	cfg.BreakerMaxRequests = 2
	cfg.BreakerFailureRatio = 0.5
	d := New(cfg, observability.NewNoOpRegistry())

	failing := func(ctx context.Context) (any, error) { return nil, errors.New("boom") }

	for i := 0; i < 2; i++ {
		if _, err := d.Do(context.Background(), "mock", "op", failing); err == nil {
			t.Fatal("expected failure")
		}
	}

	_, err := d.Do(context.Background(), "mock", "op", func(ctx context.Context) (any, error) {
		t.Fatal("breaker should be open, fn must not be called")
		return nil, nil
	})
	if err == nil {
		t.Fatal("expected breaker-open error")
	}
}
