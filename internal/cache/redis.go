// Package cache holds the Redis client used for rate limiting and token
// revocation. Domain data is never cached.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"poetportal/internal/observability"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

type metricsHook struct{}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// NewClient parses addr (a redis:// URL or host:port) and returns a client
// with the metrics hook installed. It does not contact the server.
func NewClient(addr string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	c := redis.NewClient(opts)
	c.AddHook(metricsHook{})
	return c, nil
}

// InitRedis initializes the Redis client with the given address. Failure
// leaves the client nil and the application runs without Redis.
func InitRedis(addr string) *redis.Client {
	if addr == "" {
		observability.L().Warn().Msg("REDIS_URL not set, continuing without redis")
		client = nil
		return nil
	}

	c, err := NewClient(addr)
	if err != nil {
		observability.L().Warn().Err(err).Msg("invalid REDIS_URL, continuing without redis")
		client = nil
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		observability.L().Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = c.Close()
		client = nil
		return nil
	}

	observability.L().Info().Msg("redis connected successfully")
	client = c
	return client
}

// GetClient returns the current Redis client instance.
func GetClient() *redis.Client {
	return client
}
