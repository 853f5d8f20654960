package cache

import (
	"context"
	"time"

	"github.com/sp3dr4/shortener/internal/domain"
)

// NoOpCache always misses. It stands in when cache.enabled is false.
type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) Get(context.Context, string) (*domain.ShortLink, error) { return nil, nil }

func (c *NoOpCache) Set(context.Context, *domain.ShortLink, time.Duration) error { return nil }

func (c *NoOpCache) Invalidate(context.Context, string, time.Time) error { return nil }

func (c *NoOpCache) Ping(context.Context) error { return nil }

func (c *NoOpCache) Close() error { return nil }

var _ domain.Cache = (*NoOpCache)(nil)
