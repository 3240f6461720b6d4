// Package session persists the small cross-turn state a session carries:
// the proximity floor, the closure latch, and the externally visible ux
// state. No user text is ever stored.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tillerhq/tiller/internal/model"
)

// Snapshot is everything a later turn may inherit from an earlier one.
type Snapshot struct {
	ProximityFloor model.ProximityState `json:"proximity_floor"`
	Closure        model.ClosureState   `json:"closure"`
	UXState        model.UXState        `json:"ux_state"`
}

// Store loads and saves session snapshots.
type Store interface {
	Load(ctx context.Context, sessionID string) (Snapshot, bool, error)
	Save(ctx context.Context, sessionID string, snap Snapshot) error
	Close() error
}

// RedisStore keeps each snapshot field under its own TTL-bounded key,
// session:{id}:{field}. Writes are per-field and idempotent: saving the
// same snapshot twice leaves the keys unchanged, and an empty field never
// clobbers a previously stored value.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

const (
	keyPrefix = "session:"

	fieldProximityFloor = "proximity_floor"
	fieldClosure        = "closure"
	fieldUXState        = "ux_state"
)

func fieldKey(sessionID, field string) string {
	return keyPrefix + sessionID + ":" + field
}

// NewRedisStore connects to the given redis URL. TTL bounds how long an idle
// session survives; zero means 24 hours.
func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("session: parse redis url: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: redis.NewClient(opts), ttl: ttl}, nil
}

// Ping verifies connectivity at startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Client exposes the underlying connection so other components, like the
// rate limiter, can share it instead of opening a second one.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (Snapshot, bool, error) {
	vals, err := s.client.MGet(ctx,
		fieldKey(sessionID, fieldProximityFloor),
		fieldKey(sessionID, fieldClosure),
		fieldKey(sessionID, fieldUXState),
	).Result()
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("session: load: %w", err)
	}

	str := func(i int) string {
		if s, ok := vals[i].(string); ok {
			return s
		}
		return ""
	}

	var snap Snapshot
	found := false
	// A value outside its enum is treated as absent; the session restarts
	// that field from its default rather than failing the request.
	if v := model.ProximityState(str(0)); v.Valid() {
		snap.ProximityFloor = v
		found = true
	}
	if v := model.ClosureState(str(1)); v.Valid() {
		snap.Closure = v
		found = true
	}
	if v := model.UXState(str(2)); v.Valid() {
		snap.UXState = v
		found = true
	}
	return snap, found, nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, snap Snapshot) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if snap.ProximityFloor != "" {
			pipe.Set(ctx, fieldKey(sessionID, fieldProximityFloor), string(snap.ProximityFloor), s.ttl)
		}
		if snap.Closure != "" {
			pipe.Set(ctx, fieldKey(sessionID, fieldClosure), string(snap.Closure), s.ttl)
		}
		if snap.UXState != "" {
			pipe.Set(ctx, fieldKey(sessionID, fieldUXState), string(snap.UXState), s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// NoopStore is used when no session backend is configured. Every turn then
// stands alone.
type NoopStore struct{}

func (NoopStore) Load(ctx context.Context, sessionID string) (Snapshot, bool, error) {
	return Snapshot{}, false, nil
}

func (NoopStore) Save(ctx context.Context, sessionID string, snap Snapshot) error {
	return nil
}

func (NoopStore) Close() error { return nil }
