package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// urlKeyPrefix is prepended to short codes to build cache keys.
const urlKeyPrefix = "url:"

// ErrCacheMiss means the key is not cached. It is distinct from transport
// errors so callers can tell "not cached" from "cache unreachable"; both
// degrade to the store, but only the latter is worth logging.
var ErrCacheMiss = errors.New("cache miss")

// URLKey builds the cache key for a short code.
func URLKey(shortCode string) string {
	return urlKeyPrefix + shortCode
}

// GetURL retrieves the original URL cached for a short code.
// Returns ErrCacheMiss if not present.
func (c *Cache) GetURL(ctx context.Context, shortCode string) (string, error) {
	result, err := c.client.Get(ctx, URLKey(shortCode)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", fmt.Errorf("redis get failed: %w", err)
	}

	return result, nil
}

// SetURL caches the original URL for a short code.
// A zero ttl uses the configured default. Population is idempotent: the same
// key always maps to the same immutable value, so concurrent writers are safe.
func (c *Cache) SetURL(ctx context.Context, shortCode, originalURL string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	if err := c.client.Set(ctx, URLKey(shortCode), originalURL, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

// DeleteURL evicts the cache entry for a short code.
func (c *Cache) DeleteURL(ctx context.Context, shortCode string) error {
	if err := c.client.Del(ctx, URLKey(shortCode)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}

	return nil
}
