package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter enforces a fixed window per key across instances. The first
// hit in a window sets the expiry; the counter and the window expire
// together.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	logger *slog.Logger
}

// NewRedisLimiter creates a cross-instance limiter: at most limit requests
// per key per window.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration, logger *slog.Logger) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window, logger: logger}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := "tiller:ratelimit:" + key

	pipe := l.client.TxPipeline()
	countCmd := pipe.Incr(ctx, redisKey)
	ttlCmd := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		// Fail open: a limiter outage must not take down traffic.
		l.logger.WarnContext(ctx, "rate limiter unavailable, allowing request",
			slog.String("error", err.Error()))
		return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit}, fmt.Errorf("ratelimit: %w", err)
	}

	count := int(countCmd.Val())
	ttl := ttlCmd.Val()
	if ttl < 0 {
		// First hit in this window: start the clock.
		ttl = l.window
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			l.logger.WarnContext(ctx, "rate limiter expire failed",
				slog.String("error", err.Error()))
		}
	}

	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= l.limit,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   time.Now().Add(ttl),
	}, nil
}

// Close is a no-op; the redis client is owned by the caller.
func (l *RedisLimiter) Close() error { return nil }
