package cache

import (
	"context"
	"fmt"
	"time"
)

const blacklistPrefix = "token_blacklist:"

// TokenBlacklist keeps revoked token ids in Redis until the tokens would have
// expired on their own.
type TokenBlacklist struct {
	cache *Cache
}

func NewTokenBlacklist(cache *Cache) *TokenBlacklist {
	return &TokenBlacklist{cache: cache}
}

// Revoke stores jti. Already expired tokens need no entry.
func (b *TokenBlacklist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := b.cache.Set(ctx, blacklistPrefix+jti, "1", ttl); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

func (b *TokenBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	revoked, err := b.cache.Exists(ctx, blacklistPrefix+jti)
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return revoked, nil
}
