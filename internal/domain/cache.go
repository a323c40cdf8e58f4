package domain

import (
	"context"
	"time"
)

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// TokenRevoker remembers revoked session token IDs until they expire.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// StatsCache stores serialised statistics per user. Invalidate drops every
// cached entry of the user. Get reports the cache version it read, including
// on a miss; Set only stores under that version, so a value computed before
// an Invalidate is never served afterwards.
type StatsCache interface {
	Get(ctx context.Context, userID, key string) ([]byte, int64, error)
	Set(ctx context.Context, userID, key string, version int64, data []byte) error
	Invalidate(ctx context.Context, userID string) error
}

// SignalBus provides pub/sub for live events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan Message, error)
}

// Message is a payload received on a SignalBus channel.
type Message struct {
	Channel string
	Payload []byte
}

// UserChannel is the pub/sub channel carrying a user's live events.
func UserChannel(userID string) string {
	return "user:" + userID
}
