package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "blacklist:"

// TokenBlacklist records revoked token ids until they would have expired.
// A nil client makes every operation a no-op.
type TokenBlacklist struct {
	client *redis.Client
}

func NewTokenBlacklist(c *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{client: c}
}

// Enabled reports whether revocations are persisted.
func (b *TokenBlacklist) Enabled() bool {
	return b != nil && b.client != nil
}

// Revoke blacklists jti until expiresAt.
func (b *TokenBlacklist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if !b.Enabled() || jti == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsRevoked reports whether jti was revoked.
func (b *TokenBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if !b.Enabled() || jti == "" {
		return false, nil
	}
	n, err := b.client.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
