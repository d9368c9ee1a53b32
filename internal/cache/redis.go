// Package cache provides the Redis client and JSON cache-aside helpers.
// Every entry point tolerates a nil client: the store is an accelerator,
// never a dependency.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"atelier/internal/observability"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// errorHook feeds Redis command failures into the error-rate counter so
// cache trouble is visible before it becomes latency.
type errorHook struct{}

func (errorHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (errorHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (errorHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// InitRedis connects the package client. addr may be a plain host:port or a
// redis:// URL. A failed connection leaves the client nil and the API
// degrades to uncached operation.
func InitRedis(addr string) {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			slog.Warn("invalid redis URL, running without cache", "addr", addr, "error", err)
			client = nil
			return
		}
		opts = parsed
	}

	c := redis.NewClient(opts)
	c.AddHook(errorHook{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unreachable, running without cache", "error", err)
		client = nil
		return
	}

	slog.Info("redis connected", "addr", opts.Addr)
	client = c
}

// SetClient replaces the package client. Used by tests with miniredis.
func SetClient(c *redis.Client) {
	client = c
}

// GetClient returns the current Redis client, possibly nil.
func GetClient() *redis.Client {
	return client
}
