package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// TokenRevoker implements domain.TokenRevoker with one expiring key per
// revoked token ID.
type TokenRevoker struct {
	rdb *redis.Client
	now func() time.Time
}

// NewTokenRevoker creates a TokenRevoker backed by the given Client.
func NewTokenRevoker(c *Client) *TokenRevoker {
	return &TokenRevoker{rdb: c.Underlying(), now: time.Now}
}

func revokedKey(tokenID string) string { return "revoked:" + tokenID }

// Revoke marks tokenID as revoked until the token would have expired anyway.
func (tr *TokenRevoker) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(tr.now())
	if ttl <= 0 {
		return nil
	}
	if err := tr.rdb.Set(ctx, revokedKey(tokenID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis: revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID was revoked.
func (tr *TokenRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := tr.rdb.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: check revoked token: %w", err)
	}
	return n > 0, nil
}

// Compile-time interface check.
var _ domain.TokenRevoker = (*TokenRevoker)(nil)
