package resilient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp3dr4/shortener/config"
	"github.com/sp3dr4/shortener/internal/domain"
	"github.com/sp3dr4/shortener/internal/infrastructure/memory"
	"github.com/sp3dr4/shortener/internal/pkg/metrics"
)

// flakyRepository fails FindByShortCode with failErr while set, and blocks
// until the context ends while hang is set.
type flakyRepository struct {
	*memory.URLRepository
	calls   atomic.Int32
	failErr error
	hang    bool
}

func (f *flakyRepository) FindByShortCode(ctx context.Context, shortCode string) (*domain.ShortLink, error) {
	f.calls.Add(1)
	if f.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.failErr != nil {
		return nil, f.failErr
	}
	return f.URLRepository.FindByShortCode(ctx, shortCode)
}

func storeConfig(breaker bool) config.StoreConfig {
	return config.StoreConfig{
		Timeout: 50 * time.Millisecond,
		Breaker: config.BreakerConfig{
			Enabled:             breaker,
			ConsecutiveFailures: 2,
			OpenTimeout:         time.Minute,
			HalfOpenRequests:    1,
		},
	}
}

func newTestRepository(next domain.LinkRepository, cfg config.StoreConfig) *Repository {
	return NewRepository(next, cfg, metrics.NewNoOpRegistry(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRepository_DomainErrorsDoNotTripBreaker(t *testing.T) {
	flaky := &flakyRepository{URLRepository: memory.NewURLRepository()}
	repo := newTestRepository(flaky, storeConfig(true))
	ctx := context.Background()

	for range 5 {
		_, err := repo.FindByShortCode(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrURLNotFound)
	}
	assert.Equal(t, int32(5), flaky.calls.Load())
}

func TestRepository_InfrastructureFailuresOpenBreaker(t *testing.T) {
	flaky := &flakyRepository{URLRepository: memory.NewURLRepository(), failErr: errors.New("connection refused")}
	repo := newTestRepository(flaky, storeConfig(true))
	ctx := context.Background()

	for range 2 {
		_, err := repo.FindByShortCode(ctx, "abc1234")
		require.Error(t, err)
		assert.False(t, domain.IsTransient(err))
	}

	_, err := repo.FindByShortCode(ctx, "abc1234")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.True(t, domain.IsTransient(err))
	assert.Equal(t, int32(2), flaky.calls.Load(), "open breaker must not reach the store")
}

func TestRepository_Timeout(t *testing.T) {
	flaky := &flakyRepository{URLRepository: memory.NewURLRepository(), hang: true}
	repo := newTestRepository(flaky, storeConfig(false))

	start := time.Now()
	_, err := repo.FindByShortCode(context.Background(), "abc1234")

	assert.ErrorIs(t, err, domain.ErrStoreTimeout)
	assert.True(t, domain.IsTransient(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestRepository_PassesThrough(t *testing.T) {
	repo := newTestRepository(memory.NewURLRepository(), storeConfig(true))
	ctx := context.Background()

	link, err := domain.NewShortLink("abc1234", "https://example.com", nil, false, nil, time.Now())
	require.NoError(t, err)

	_, err = repo.Create(ctx, link)
	require.NoError(t, err)
	_, err = repo.Create(ctx, link)
	assert.ErrorIs(t, err, domain.ErrShortCodeExists)

	require.NoError(t, repo.IncrementClicks(ctx, "abc1234"))
	found, err := repo.FindByShortCode(ctx, "abc1234")
	require.NoError(t, err)
	assert.Equal(t, int64(1), found.Clicks)

	exists, err := repo.Exists(ctx, "abc1234")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.Delete(ctx, "abc1234"))
	assert.NoError(t, repo.HealthCheck(ctx))
}
