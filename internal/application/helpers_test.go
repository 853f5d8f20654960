package application

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sp3dr4/shortener/config"
	"github.com/sp3dr4/shortener/internal/domain"
	"github.com/sp3dr4/shortener/internal/infrastructure/cache"
	"github.com/sp3dr4/shortener/internal/infrastructure/memory"
	"github.com/sp3dr4/shortener/internal/pkg/metrics"
)

const testBaseURL = "http://localhost:8080"

func newTestConfig() *config.Config {
	retry := config.RetryConfig{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
	return &config.Config{
		Store: config.StoreConfig{Timeout: time.Second, Retry: retry},
		Cache: config.CacheConfig{TTL: time.Minute},
		App: config.AppConfig{
			BaseURL:             testBaseURL,
			ShortCodeLength:     7,
			MaxGenerateAttempts: 5,
			AllowAnonymous:      true,
			CustomSlug:          config.CustomSlugConfig{MinLength: 3, MaxLength: 32},
			List:                config.ListConfig{DefaultLimit: 20, MaxLimit: 100},
		},
		Clicks: config.ClicksConfig{Timeout: time.Second, Retry: retry},
	}
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// countingMetrics records the counters tests assert on.
type countingMetrics struct {
	metrics.NoOpRegistry
	clickFailures atomic.Int32
	collisions    atomic.Int32
}

func (m *countingMetrics) IncClickRecordFailures() { m.clickFailures.Add(1) }
func (m *countingMetrics) IncCodeCollisions()      { m.collisions.Add(1) }

// mapCache is an in-process domain.Cache used to observe invalidation.
type mapCache struct {
	mu       sync.Mutex
	links    map[string]*domain.ShortLink
	versions map[string]time.Time
}

func newMapCache() *mapCache {
	return &mapCache{
		links:    make(map[string]*domain.ShortLink),
		versions: make(map[string]time.Time),
	}
}

func (c *mapCache) Get(_ context.Context, shortCode string) (*domain.ShortLink, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.links[shortCode]; ok {
		return l.Clone(), nil
	}
	return nil, nil
}

func (c *mapCache) Set(_ context.Context, link *domain.ShortLink, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[link.ShortCode].After(link.UpdatedAt) {
		return nil
	}
	c.links[link.ShortCode] = link.Clone()
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, shortCode string, version time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.links, shortCode)
	c.versions[shortCode] = version
	return nil
}

func (c *mapCache) Ping(context.Context) error { return nil }
func (c *mapCache) Close() error               { return nil }

type fixture struct {
	cfg      *config.Config
	clock    *testClock
	repo     domain.LinkRepository
	cache    domain.Cache
	metrics  *countingMetrics
	clicks   *ClickRecorder
	service  *LinkService
	resolver *Resolver
}

type fixtureOption func(*fixture)

func withRepository(repo domain.LinkRepository) fixtureOption {
	return func(f *fixture) { f.repo = repo }
}

func withCache(c domain.Cache) fixtureOption {
	return func(f *fixture) { f.cache = c }
}

func withConfig(mutate func(*config.Config)) fixtureOption {
	return func(f *fixture) { mutate(f.cfg) }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	f := &fixture{
		cfg:     newTestConfig(),
		clock:   newTestClock(),
		repo:    memory.NewURLRepository(),
		cache:   cache.NewNoOpCache(),
		metrics: &countingMetrics{},
	}
	for _, opt := range opts {
		opt(f)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	generator := NewCodeGenerator(f.repo, f.cfg)
	f.clicks = NewClickRecorder(f.repo, f.cfg, f.metrics, logger)
	f.service = NewLinkService(f.repo, generator, f.cache, f.cfg, f.metrics, WithClock(f.clock.Now))
	f.resolver = NewResolver(f.repo, f.cache, f.clicks, f.cfg, f.metrics, WithClock(f.clock.Now))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = f.clicks.Wait(ctx)
	})
	return f
}

// drain waits for every scheduled click increment.
func (f *fixture) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.clicks.Wait(ctx); err != nil {
		t.Fatalf("click increments did not drain: %v", err)
	}
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
