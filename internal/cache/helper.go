package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// GetJSON fetches a cached value and unmarshals it into dest.
// Returns false when the cache is unavailable or the key is missing.
func GetJSON(ctx context.Context, key string, dest any) bool {
	if client == nil {
		return false
	}
	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		// Stale or corrupt entry, drop it.
		client.Del(ctx, key)
		return false
	}
	return true
}

// SetJSON marshals value and stores it under key with the given TTL.
// Failures are silent: the cache is best-effort.
func SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	if client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	client.Set(ctx, key, raw, ttl)
}

// GetOrLoad implements the cache-aside pattern: return the cached value if
// present, otherwise call load, cache the result, and return it.
func GetOrLoad[T any](ctx context.Context, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	var out T
	if GetJSON(ctx, key, &out) {
		return out, nil
	}
	out, err := load()
	if err != nil {
		return out, err
	}
	SetJSON(ctx, key, out, ttl)
	return out, nil
}

// Healthy reports whether the Redis connection is usable.
func Healthy(ctx context.Context) error {
	if client == nil {
		return errors.New("redis client not initialized")
	}
	if err := client.Ping(ctx).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}
