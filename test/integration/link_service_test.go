//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp3dr4/shortener/internal/application"
	"github.com/sp3dr4/shortener/internal/domain"
)

func TestLinkService_CreateURL_IntegrationFlow(t *testing.T) {
	forEachDriver(t, func(t *testing.T, env *TestEnvironment) {
		ctx := context.Background()
		owner := "user-1"
		expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond)

		generated, err := env.Service.CreateURL(ctx, application.CreateURLRequest{OriginalURL: "https://example.com"}, nil)
		require.NoError(t, err)
		assert.Len(t, generated.ShortCode, 7)
		assert.Equal(t, testBaseURL+"/"+generated.ShortCode, generated.ShortURL)
		assert.False(t, generated.CustomSlug)
		assert.Nil(t, generated.OwnerID)

		custom, err := env.Service.CreateURL(ctx, application.CreateURLRequest{
			OriginalURL: "https://google.com",
			CustomSlug:  "google",
			ExpiresAt:   &expiry,
		}, &owner)
		require.NoError(t, err)
		assert.Equal(t, "google", custom.ShortCode)
		assert.True(t, custom.CustomSlug)
		require.NotNil(t, custom.ExpiresAt)
		assert.True(t, expiry.Equal(*custom.ExpiresAt))

		got, err := env.Service.GetURL(ctx, "google")
		require.NoError(t, err)
		assert.Equal(t, "https://google.com", got.OriginalURL)
		require.NotNil(t, got.OwnerID)
		assert.Equal(t, owner, *got.OwnerID)
		assert.Equal(t, time.UTC, got.CreatedAt.Location())
	})
}

func TestLinkService_DuplicateSlug_Integration(t *testing.T) {
	forEachDriver(t, func(t *testing.T, env *TestEnvironment) {
		ctx := context.Background()
		req := application.CreateURLRequest{OriginalURL: "https://example.com", CustomSlug: "taken"}

		_, err := env.Service.CreateURL(ctx, req, nil)
		require.NoError(t, err)

		_, err = env.Service.CreateURL(ctx, req, nil)
		assert.ErrorIs(t, err, domain.ErrShortCodeExists)
	})
}

func TestLinkService_ConcurrentCustomSlug_Integration(t *testing.T) {
	forEachDriver(t, func(t *testing.T, env *TestEnvironment) {
		ctx := context.Background()
		const workers = 20

		var (
			wg        sync.WaitGroup
			succeeded atomic.Int32
			conflicts atomic.Int32
		)
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := env.Service.CreateURL(ctx, application.CreateURLRequest{
					OriginalURL: fmt.Sprintf("https://example.com/%d", i),
					CustomSlug:  "race",
				}, nil)
				switch {
				case err == nil:
					succeeded.Add(1)
				case domain.IsConflict(err):
					conflicts.Add(1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), succeeded.Load())
		assert.Equal(t, int32(workers-1), conflicts.Load())
	})
}

func TestResolver_ClickTracking_Integration(t *testing.T) {
	forEachDriver(t, func(t *testing.T, env *TestEnvironment) {
		ctx := context.Background()
		_, err := env.Service.CreateURL(ctx, application.CreateURLRequest{OriginalURL: "https://example.com", CustomSlug: "clicky"}, nil)
		require.NoError(t, err)

		const redirects = 50
		var wg sync.WaitGroup
		for range redirects {
			wg.Add(1)
			go func() {
				defer wg.Done()
				target, err := env.Resolver.Resolve(ctx, "clicky")
				assert.NoError(t, err)
				assert.Equal(t, "https://example.com", target)
			}()
		}
		wg.Wait()
		env.Drain(t)

		link, err := env.Repo.FindByShortCode(ctx, "clicky")
		require.NoError(t, err)
		assert.Equal(t, int64(redirects), link.Clicks)
	})
}

func TestResolver_NonExistentAndInactive_Integration(t *testing.T) {
	forEachDriver(t, func(t *testing.T, env *TestEnvironment) {
		ctx := context.Background()
		owner := "user-1"

		_, err := env.Resolver.Resolve(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrURLNotFound)

		_, err = env.Service.CreateURL(ctx, application.CreateURLRequest{OriginalURL: "https://example.com", CustomSlug: "paused"}, &owner)
		require.NoError(t, err)

		inactive := false
		_, err = env.Service.UpdateURL(ctx, "paused", application.UpdateURLRequest{IsActive: &inactive}, owner)
		require.NoError(t, err)

		_, err = env.Resolver.Resolve(ctx, "paused")
		assert.ErrorIs(t, err, domain.ErrLinkInactive)
		env.Drain(t)

		link, err := env.Repo.FindByShortCode(ctx, "paused")
		require.NoError(t, err)
		assert.Zero(t, link.Clicks)
	})
}

func TestLinkService_ListByOwner_Integration(t *testing.T) {
	forEachDriver(t, func(t *testing.T, env *TestEnvironment) {
		ctx := context.Background()
		owner, other := "owner", "someone-else"

		for i := range 5 {
			_, err := env.Service.CreateURL(ctx, application.CreateURLRequest{
				OriginalURL: fmt.Sprintf("https://example.com/%d", i),
				CustomSlug:  fmt.Sprintf("page-%d", i),
			}, &owner)
			require.NoError(t, err)
		}
		_, err := env.Service.CreateURL(ctx, application.CreateURLRequest{OriginalURL: "https://example.com/x", CustomSlug: "foreign"}, &other)
		require.NoError(t, err)

		var (
			seen   []string
			sizes  []int
			cursor string
		)
		for {
			page, err := env.Service.ListURLs(ctx, owner, 2, cursor)
			require.NoError(t, err)
			sizes = append(sizes, len(page.URLs))
			for _, u := range page.URLs {
				seen = append(seen, u.ShortCode)
			}
			if page.Cursor == "" {
				break
			}
			cursor = page.Cursor
		}

		assert.Equal(t, []int{2, 2, 1}, sizes)
		assert.Equal(t, []string{"page-4", "page-3", "page-2", "page-1", "page-0"}, seen)
	})
}

func TestLinkService_CacheBehavior_Integration(t *testing.T) {
	forEachDriver(t, func(t *testing.T, env *TestEnvironment) {
		ctx := context.Background()
		_, err := env.Service.CreateURL(ctx, application.CreateURLRequest{OriginalURL: "https://example.com", CustomSlug: "cachetest"}, nil)
		require.NoError(t, err)

		err = env.RedisClient.Get(ctx, "link:cachetest").Err()
		assert.Equal(t, redis.Nil, err)

		_, err = env.Resolver.Resolve(ctx, "cachetest")
		require.NoError(t, err)

		cached, err := env.RedisClient.Get(ctx, "link:cachetest").Result()
		require.NoError(t, err)
		var link domain.ShortLink
		require.NoError(t, json.Unmarshal([]byte(cached), &link))
		assert.Equal(t, "https://example.com", link.OriginalURL)

		ttl, err := env.RedisClient.TTL(ctx, "link:cachetest").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, time.Minute)

		// A cached entry still counts clicks in the store.
		_, err = env.Resolver.Resolve(ctx, "cachetest")
		require.NoError(t, err)
		env.Drain(t)

		stored, err := env.Repo.FindByShortCode(ctx, "cachetest")
		require.NoError(t, err)
		assert.Equal(t, int64(2), stored.Clicks)
	})
}

func TestLinkService_CacheInvalidation_Integration(t *testing.T) {
	forEachDriver(t, func(t *testing.T, env *TestEnvironment) {
		ctx := context.Background()
		owner := "user-1"

		_, err := env.Service.CreateURL(ctx, application.CreateURLRequest{OriginalURL: "https://example.com/old", CustomSlug: "moving"}, &owner)
		require.NoError(t, err)

		_, err = env.Resolver.Resolve(ctx, "moving")
		require.NoError(t, err)
		require.NoError(t, env.RedisClient.Get(ctx, "link:moving").Err())

		target := "https://example.com/new"
		_, err = env.Service.UpdateURL(ctx, "moving", application.UpdateURLRequest{OriginalURL: &target}, owner)
		require.NoError(t, err)
		assert.Equal(t, redis.Nil, env.RedisClient.Get(ctx, "link:moving").Err())

		resolved, err := env.Resolver.Resolve(ctx, "moving")
		require.NoError(t, err)
		assert.Equal(t, target, resolved)

		require.NoError(t, env.Service.DeleteURL(ctx, "moving", owner))
		assert.Equal(t, redis.Nil, env.RedisClient.Get(ctx, "link:moving").Err())

		_, err = env.Resolver.Resolve(ctx, "moving")
		assert.ErrorIs(t, err, domain.ErrURLNotFound)

		require.NoError(t, env.Service.DeleteURL(ctx, "moving", owner))
		env.Drain(t)
	})
}

func TestRedisCache_ExpiryCapsTTL_Integration(t *testing.T) {
	env := SetupTestEnvironment(t, postgresDrivers[0])
	ctx := context.Background()

	soon := time.Now().Add(5 * time.Second)
	link := &domain.ShortLink{ShortCode: "shortlived", OriginalURL: "https://example.com", IsActive: true, ExpiresAt: &soon}
	require.NoError(t, env.Cache.Set(ctx, link, time.Hour))

	ttl, err := env.RedisClient.TTL(ctx, "link:shortlived").Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, 5*time.Second)

	past := time.Now().Add(-time.Second)
	link.ShortCode, link.ExpiresAt = "gone", &past
	require.NoError(t, env.Cache.Set(ctx, link, time.Hour))
	assert.Equal(t, redis.Nil, env.RedisClient.Get(ctx, "link:gone").Err())

	require.NoError(t, env.Cache.Ping(ctx))
}

func TestRedisCache_InvalidateFencesStaleWrites_Integration(t *testing.T) {
	env := SetupTestEnvironment(t, postgresDrivers[0])
	ctx := context.Background()

	readAt := time.Now().UTC().Truncate(time.Microsecond)
	stale := &domain.ShortLink{ShortCode: "fenced", OriginalURL: "https://example.com/old", IsActive: true, UpdatedAt: readAt}
	require.NoError(t, env.Cache.Set(ctx, stale, time.Hour))

	version := readAt.Add(time.Millisecond)
	require.NoError(t, env.Cache.Invalidate(ctx, "fenced", version))
	assert.Equal(t, redis.Nil, env.RedisClient.Get(ctx, "link:fenced").Err())

	require.NoError(t, env.Cache.Set(ctx, stale, time.Hour))
	assert.Equal(t, redis.Nil, env.RedisClient.Get(ctx, "link:fenced").Err(), "older copy must not be cached")

	current := &domain.ShortLink{ShortCode: "fenced", OriginalURL: "https://example.com/old", IsActive: false, UpdatedAt: version}
	require.NoError(t, env.Cache.Set(ctx, current, time.Hour))
	cached, err := env.Cache.Get(ctx, "fenced")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.False(t, cached.IsActive)
}

func TestPostgresRepository_HealthCheck_Integration(t *testing.T) {
	forEachDriver(t, func(t *testing.T, env *TestEnvironment) {
		assert.NoError(t, env.Repo.HealthCheck(context.Background()))
	})
}
