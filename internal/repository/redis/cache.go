package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const settingsKeyPrefix = "settings:"

// SettingsCache implements domain.SettingsCache on top of Redis. Expiry is
// enforced by the server-side TTL set on write.
type SettingsCache struct {
	client *Client
	logger *slog.Logger
}

// NewSettingsCache creates a new SettingsCache
func NewSettingsCache(client *Client, logger *slog.Logger) *SettingsCache {
	return &SettingsCache{client: client, logger: logger}
}

func settingsKey(key string) string {
	return settingsKeyPrefix + key
}

// GetOrCompute returns the cached value for key, or runs compute and caches
// the result with the given TTL. Cache transport failures are logged and
// degrade to a direct compute, they never fail the lookup.
func (c *SettingsCache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (string, error)) (string, error) {
	cached, err := c.client.client.Get(ctx, settingsKey(key)).Result()
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, redis.Nil) {
		c.logger.Warn("settings cache read failed",
			"key", key,
			"error", err,
		)
	}

	value, err := compute(ctx)
	if err != nil {
		return "", err
	}

	if err := c.client.client.Set(ctx, settingsKey(key), value, ttl).Err(); err != nil {
		c.logger.Warn("settings cache write failed",
			"key", key,
			"error", err,
		)
	}

	return value, nil
}

// Invalidate drops the cached value for key
func (c *SettingsCache) Invalidate(ctx context.Context, key string) error {
	if err := c.client.client.Del(ctx, settingsKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate setting %q: %w", key, err)
	}
	return nil
}
