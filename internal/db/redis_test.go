package db

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis spins up an in-memory Redis and points a RedisStore at it.
func setupTestRedis(t *testing.T) *RedisStore {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(s.Close)
	return &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: s.Addr()}),
		Ctx:    context.Background(),
	}
}

func TestAcquireWebhookTick_FirstCallerWins(t *testing.T) {
	store := setupTestRedis(t)
	tick := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	claimed, err := store.AcquireWebhookTick("mb_1", "media_buy_delivery", tick, time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !claimed {
		t.Fatal("expected the first caller to win the claim")
	}
}

func TestAcquireWebhookTick_SecondCallerLoses(t *testing.T) {
	store := setupTestRedis(t)
	tick := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	if _, err := store.AcquireWebhookTick("mb_1", "media_buy_delivery", tick, time.Minute); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	claimed, err := store.AcquireWebhookTick("mb_1", "media_buy_delivery", tick, time.Minute)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if claimed {
		t.Fatal("expected the second caller to lose the claim")
	}
}

func TestAcquireWebhookTick_DistinctTicksDoNotCollide(t *testing.T) {
	store := setupTestRedis(t)
	first := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	second := first.AddDate(0, 0, 1)

	if _, err := store.AcquireWebhookTick("mb_1", "media_buy_delivery", first, time.Minute); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	claimed, err := store.AcquireWebhookTick("mb_1", "media_buy_delivery", second, time.Minute)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if !claimed {
		t.Fatal("expected a distinct tick to be claimable independently")
	}
}
