package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

func newTestStatsCache(t *testing.T) (*StatsCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStatsCache(&Client{rdb: rdb}, time.Minute), mr
}

func TestStatsCacheRoundTrip(t *testing.T) {
	sc, mr := newTestStatsCache(t)
	ctx := context.Background()

	_, v, err := sc.Get(ctx, "u1", "all")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, v)

	require.NoError(t, sc.Set(ctx, "u1", "all", v, []byte(`{"n":1}`)))
	data, got, err := sc.Get(ctx, "u1", "all")
	require.NoError(t, err)
	assert.Equal(t, `{"n":1}`, string(data))
	assert.Zero(t, got)
	assert.Equal(t, time.Minute, mr.TTL(statsEntryKey("u1", 0, "all")))

	_, _, err = sc.Get(ctx, "u2", "all")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStatsCacheInvalidateDropsEntries(t *testing.T) {
	sc, mr := newTestStatsCache(t)
	ctx := context.Background()

	require.NoError(t, sc.Set(ctx, "u1", "all", 0, []byte("old")))
	require.NoError(t, sc.Invalidate(ctx, "u1"))

	_, v, err := sc.Get(ctx, "u1", "all")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, int64(1), v)
	assert.Equal(t, versionTTL, mr.TTL(statsVersionKey("u1")))
}

func TestStatsCacheStaleSetAfterInvalidate(t *testing.T) {
	sc, _ := newTestStatsCache(t)
	ctx := context.Background()

	// A reader misses, a writer invalidates, then the reader stores the
	// summary it computed from the pre-write trades.
	_, v, err := sc.Get(ctx, "u1", "all")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, sc.Invalidate(ctx, "u1"))
	require.NoError(t, sc.Set(ctx, "u1", "all", v, []byte("stale")))

	_, cur, err := sc.Get(ctx, "u1", "all")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, v+1, cur)

	require.NoError(t, sc.Set(ctx, "u1", "all", cur, []byte("fresh")))
	data, _, err := sc.Get(ctx, "u1", "all")
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))
}
