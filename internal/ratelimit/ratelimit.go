// Package ratelimit provides a pluggable request throttle.
//
// Single-instance deployments use the in-memory token bucket
// (MemoryLimiter); multi-instance deployments use the Redis fixed-window
// limiter so cooldowns hold across replicas. The Limiter interface is the
// contract.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// CooldownSeconds is the whole-second wait a denied caller should observe,
// never less than 1.
func (d Decision) CooldownSeconds() int {
	secs := int(time.Until(d.ResetAt).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Limiter decides whether a request identified by key should proceed.
// Implementations must be safe for concurrent use. A limiter malfunction is
// fail-open: callers permit the request rather than blocking traffic.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)

	// Close releases resources (cleanup goroutines, connections).
	Close() error
}

// NoopLimiter permits every request. Used when rate limiting is disabled.
type NoopLimiter struct{}

func (NoopLimiter) Allow(context.Context, string) (Decision, error) {
	return Decision{Allowed: true}, nil
}

func (NoopLimiter) Close() error { return nil }
