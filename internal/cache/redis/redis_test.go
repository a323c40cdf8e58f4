package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsFromURL(t *testing.T) {
	opts, err := Options(ClientConfig{URL: "rediss://:secret@cache:6380/2", PoolSize: 7})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)
	assert.NotNil(t, opts.TLSConfig)
}

func TestOptionsFromFields(t *testing.T) {
	opts, err := Options(ClientConfig{Addr: "localhost:6379", DB: 1, TLSEnabled: true})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 1, opts.DB)
	require.NotNil(t, opts.TLSConfig)

	_, err = Options(ClientConfig{URL: "http://not-redis"})
	assert.Error(t, err)
}

func TestKeySchema(t *testing.T) {
	assert.Equal(t, "stats:ver:u1", statsVersionKey("u1"))
	assert.Equal(t, "stats:u1:v3:all|acc|from|to", statsEntryKey("u1", 3, "all|acc|from|to"))
	assert.Equal(t, "revoked:jti", revokedKey("jti"))
	assert.Equal(t, "lock:import:a1", lockKey("import:a1"))
	assert.Equal(t, "ratelimit:login:1.2.3.4", rateLimitKey("login:1.2.3.4"))
}

func TestHasPattern(t *testing.T) {
	assert.True(t, hasPattern("user:*"))
	assert.True(t, hasPattern("user:?"))
	assert.False(t, hasPattern("user:42"))
}
