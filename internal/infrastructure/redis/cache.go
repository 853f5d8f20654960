package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sp3dr4/shortener/internal/domain"
)

const (
	keyPrefix     = "link:"
	versionPrefix = "linkver:"

	// versionTTL only has to outlive a store read that started before the
	// invalidation. Store timeouts bound those well below this.
	versionTTL = 5 * time.Minute
)

// setIfCurrent writes KEYS[1] unless KEYS[2] records an invalidation newer
// than ARGV[2] (UnixMicro of the copy's UpdatedAt).
var setIfCurrent = redis.NewScript(`
local v = redis.call('GET', KEYS[2])
if v and tonumber(v) > tonumber(ARGV[2]) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// RedisCache is a read-through cache for redirects. Entries never outlive the
// link's own expiry, so a cached hit is at most TTL stale.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

func NewRedisCache(client *redis.Client, logger *slog.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// NewClient parses a redis:// URL into a client.
func NewClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (c *RedisCache) Get(ctx context.Context, shortCode string) (*domain.ShortLink, error) {
	key := c.buildKey(shortCode)

	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		c.logger.Error("Failed to get from cache", "key", key, "error", err)
		return nil, fmt.Errorf("cache get failed: %w", err)
	}

	var link domain.ShortLink
	if err := json.Unmarshal(val, &link); err != nil {
		c.logger.Error("Failed to unmarshal cached value", "key", key, "error", err)
		return nil, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	return &link, nil
}

func (c *RedisCache) Set(ctx context.Context, link *domain.ShortLink, ttl time.Duration) error {
	key := c.buildKey(link.ShortCode)

	if link.ExpiresAt != nil {
		remaining := link.ExpiresAt.Sub(c.now())
		if remaining <= 0 {
			return nil
		}
		ttl = min(ttl, remaining)
	}

	data, err := json.Marshal(link)
	if err != nil {
		c.logger.Error("Failed to marshal link for cache", "short_code", link.ShortCode, "error", err)
		return fmt.Errorf("failed to marshal link: %w", err)
	}

	keys := []string{key, c.buildVersionKey(link.ShortCode)}
	written, err := setIfCurrent.Run(ctx, c.client, keys, data, link.UpdatedAt.UnixMicro(), max(ttl.Milliseconds(), 1)).Int()
	if err != nil {
		c.logger.Error("Failed to set cache", "key", key, "error", err)
		return fmt.Errorf("cache set failed: %w", err)
	}
	if written == 0 {
		c.logger.Debug("Skipped stale cache write", "key", key, "updated_at", link.UpdatedAt)
	}

	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, shortCode string, version time.Time) error {
	key := c.buildKey(shortCode)

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.Set(ctx, c.buildVersionKey(shortCode), version.UnixMicro(), versionTTL)
		return nil
	})
	if err != nil {
		c.logger.Error("Failed to invalidate cache", "key", key, "error", err)
		return fmt.Errorf("cache invalidate failed: %w", err)
	}

	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		c.logger.Error("Failed to ping Redis", "error", err)
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) buildKey(shortCode string) string {
	return keyPrefix + shortCode
}

func (c *RedisCache) buildVersionKey(shortCode string) string {
	return versionPrefix + shortCode
}

var _ domain.Cache = (*RedisCache)(nil)
