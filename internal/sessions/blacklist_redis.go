package sessions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "blacklist:access:"

var (
	blacklistMu     sync.RWMutex
	blacklistClient *redis.Client
)

// SetBlacklistClient configures the Redis client holding revoked access
// tokens. nil disables the blacklist.
func SetBlacklistClient(c *redis.Client) {
	blacklistMu.Lock()
	blacklistClient = c
	blacklistMu.Unlock()
}

func blacklist() *redis.Client {
	blacklistMu.RLock()
	defer blacklistMu.RUnlock()
	return blacklistClient
}

// BlacklistKey is the Redis key marking token as revoked. Only a digest of
// the token is stored.
func BlacklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return blacklistPrefix + hex.EncodeToString(sum[:])
}

// BlacklistAccessToken revokes token until ttl elapses. No-op without a client.
func BlacklistAccessToken(ctx context.Context, token string, ttl time.Duration) error {
	c := blacklist()
	if c == nil {
		return nil
	}
	return c.Set(ctx, BlacklistKey(token), "1", ttl).Err()
}

// IsAccessTokenBlacklisted reports whether token was revoked. Without a
// client nothing is ever revoked.
func IsAccessTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	c := blacklist()
	if c == nil {
		return false, nil
	}
	n, err := c.Exists(ctx, BlacklistKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
