package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// versionTTL bounds how long an idle user's version counter is kept. Losing
// it only means the next read starts from version 0 again.
const versionTTL = 30 * 24 * time.Hour

// StatsCache implements domain.StatsCache. Entries are namespaced by a
// per-user version counter; Invalidate bumps the counter so every older
// entry becomes unreachable and expires on its own.
//
// Key schema:
//
//	stats:ver:{userID}              - integer version
//	stats:{userID}:v{version}:{key} - serialised summary
type StatsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStatsCache creates a StatsCache whose entries live for ttl.
func NewStatsCache(c *Client, ttl time.Duration) *StatsCache {
	return &StatsCache{rdb: c.Underlying(), ttl: ttl}
}

func statsVersionKey(userID string) string { return "stats:ver:" + userID }

func statsEntryKey(userID string, version int64, key string) string {
	return "stats:" + userID + ":v" + strconv.FormatInt(version, 10) + ":" + key
}

func (sc *StatsCache) version(ctx context.Context, userID string) (int64, error) {
	v, err := sc.rdb.Get(ctx, statsVersionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Get returns the cached bytes for key together with the version they were
// looked up under. On a miss it returns domain.ErrNotFound and that version,
// which the caller hands back to Set.
func (sc *StatsCache) Get(ctx context.Context, userID, key string) ([]byte, int64, error) {
	v, err := sc.version(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("redis: stats version %s: %w", userID, err)
	}
	data, err := sc.rdb.Get(ctx, statsEntryKey(userID, v, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, v, domain.ErrNotFound
		}
		return nil, v, fmt.Errorf("redis: get stats %s: %w", userID, err)
	}
	return data, v, nil
}

// Set stores data under version. A summary computed before an Invalidate
// carries the old version and lands in an unreachable namespace.
func (sc *StatsCache) Set(ctx context.Context, userID, key string, version int64, data []byte) error {
	if err := sc.rdb.Set(ctx, statsEntryKey(userID, version, key), data, sc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set stats %s: %w", userID, err)
	}
	return nil
}

// Invalidate drops every cached entry of the user.
func (sc *StatsCache) Invalidate(ctx context.Context, userID string) error {
	key := statsVersionKey(userID)
	pipe := sc.rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, versionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: invalidate stats %s: %w", userID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.StatsCache = (*StatsCache)(nil)
