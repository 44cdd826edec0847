package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore wraps a redis client and context for operations.
type RedisStore struct {
	Client *redis.Client
	Ctx    context.Context
}

// InitRedis initializes a Redis client and returns a RedisStore.
func InitRedis(addr string) (*RedisStore, error) {
	rs := &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: addr}),
		Ctx:    context.Background(),
	}

	// Add OpenTelemetry instrumentation to Redis client
	if err := redisotel.InstrumentTracing(rs.Client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}

	if err := rs.Client.Ping(rs.Ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	zap.L().Info("Connected to Redis", zap.String("addr", addr))
	return rs, nil
}

// formatCacheKey builds the cache key for a creative-agent format lookup,
// scoped per tenant since format specs may be tenant-overridden.
func formatCacheKey(tenantID, agentURL, formatID string) string {
	return fmt.Sprintf("format:%s:%s:%s", tenantID, agentURL, formatID)
}

// CacheFormat stores a format spec document for (tenant, agent_url, format_id)
// with the given TTL. Used by the format registry to avoid round-tripping to
// the remote creative-agent on every get_products/sync_creatives call.
func (r *RedisStore) CacheFormat(tenantID, agentURL, formatID string, spec any, ttl time.Duration) error {
	payload, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("marshal format spec: %w", err)
	}
	key := formatCacheKey(tenantID, agentURL, formatID)
	return r.Client.Set(r.Ctx, key, payload, ttl).Err()
}

// GetCachedFormat retrieves a previously cached format spec, decoding it into
// dest. Returns ok=false on a cache miss.
func (r *RedisStore) GetCachedFormat(tenantID, agentURL, formatID string, dest any) (ok bool, err error) {
	key := formatCacheKey(tenantID, agentURL, formatID)
	raw, err := r.Client.Get(r.Ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get cached format: %w", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("unmarshal cached format: %w", err)
	}
	return true, nil
}

// webhookLockKey builds the dedup lock key for a scheduled webhook delivery
// attempt, keyed by media buy, task type and the scheduler tick boundary.
func webhookLockKey(mediaBuyID, taskType string, tick time.Time) string {
	return fmt.Sprintf("webhook:lock:%s:%s:%s", mediaBuyID, taskType, tick.UTC().Format("2006-01-02T15:04"))
}

// AcquireWebhookTick attempts to claim the delivery slot for a given media
// buy, task type and scheduler tick. Returns true if this caller won the
// claim; a second concurrent scheduler instance gets false and skips
// delivery. The lock self-expires so a crashed holder doesn't wedge future
// ticks.
func (r *RedisStore) AcquireWebhookTick(mediaBuyID, taskType string, tick time.Time, ttl time.Duration) (bool, error) {
	key := webhookLockKey(mediaBuyID, taskType, tick)
	ok, err := r.Client.SetNX(r.Ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire webhook tick lock: %w", err)
	}
	return ok, nil
}

// Close shuts down the Redis client.
func (r *RedisStore) Close() {
	if r != nil && r.Client != nil {
		if err := r.Client.Close(); err != nil {
			zap.L().Error("redis close", zap.Error(err))
		}
	}
}
