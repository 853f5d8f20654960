package application

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sp3dr4/shortener/config"
	"github.com/sp3dr4/shortener/internal/domain"
	"github.com/sp3dr4/shortener/internal/pkg/logging"
	"github.com/sp3dr4/shortener/internal/pkg/metrics"
)

// Resolver turns a short code into its redirect target and counts the click.
type Resolver struct {
	repo     domain.LinkRepository
	cache    domain.Cache
	cacheTTL time.Duration
	clicks   *ClickRecorder
	retry    RetryPolicy
	metrics  metrics.Registry
	now      func() time.Time

	// lookups collapses concurrent cache misses for the same code into one
	// store read. The read is detached from every caller and bounded by
	// lookupTimeout instead.
	lookups       singleflight.Group
	lookupTimeout time.Duration
}

func NewResolver(
	repo domain.LinkRepository,
	cache domain.Cache,
	clicks *ClickRecorder,
	cfg *config.Config,
	registry metrics.Registry,
	opts ...Option,
) *Resolver {
	o := buildOptions(opts)
	retry := NewRetryPolicy(cfg.Store.Retry)
	return &Resolver{
		repo:          repo,
		cache:         cache,
		cacheTTL:      cfg.Cache.TTL,
		clicks:        clicks,
		retry:         retry,
		metrics:       registry,
		now:           o.now,
		lookupTimeout: lookupBudget(cfg.Store.Timeout, retry),
	}
}

// lookupBudget covers every retry attempt plus the waits between them.
func lookupBudget(storeTimeout time.Duration, retry RetryPolicy) time.Duration {
	if storeTimeout <= 0 {
		storeTimeout = 2 * time.Second
	}
	attempts := max(retry.MaxAttempts, 1)
	return time.Duration(attempts) * (storeTimeout + retry.MaxInterval)
}

// Resolve returns the original URL for shortCode and schedules a click
// increment. Inactive, expired and unknown codes fail with an ErrNotFound
// error and are never counted.
func (r *Resolver) Resolve(ctx context.Context, shortCode string) (string, error) {
	if err := domain.ValidateShortCode(shortCode); err != nil {
		r.metrics.IncRedirects(metrics.OutcomeNotFound)
		return "", err
	}

	link, err := r.lookup(ctx, shortCode)
	if err != nil {
		if domain.IsNotFound(err) {
			r.metrics.IncRedirects(metrics.OutcomeNotFound)
		} else {
			r.metrics.IncRedirects(metrics.OutcomeError)
		}
		return "", err
	}

	if err := link.CheckLiveness(r.now()); err != nil {
		switch {
		case errors.Is(err, domain.ErrLinkInactive):
			r.metrics.IncRedirects(metrics.OutcomeInactive)
		case errors.Is(err, domain.ErrLinkExpired):
			r.metrics.IncRedirects(metrics.OutcomeExpired)
		}
		return "", err
	}

	r.clicks.Record(ctx, shortCode)
	r.metrics.IncRedirects(metrics.OutcomeFound)

	return link.OriginalURL, nil
}

func (r *Resolver) lookup(ctx context.Context, shortCode string) (*domain.ShortLink, error) {
	logger := logging.FromContext(ctx)

	cached, err := r.cache.Get(ctx, shortCode)
	switch {
	case err != nil:
		r.metrics.IncCacheLookups(metrics.CacheError)
		logger.Warn("Cache lookup failed, falling back to store", "short_code", shortCode, "error", err)
	case cached != nil:
		r.metrics.IncCacheLookups(metrics.CacheHit)
		return cached, nil
	default:
		r.metrics.IncCacheLookups(metrics.CacheMiss)
	}

	// Waiters share this read, so one caller going away must not fail the rest.
	results := r.lookups.DoChan(shortCode, func() (any, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.lookupTimeout)
		defer cancel()

		link, err := retryTransient(readCtx, r.retry, func() (*domain.ShortLink, error) {
			return r.repo.FindByShortCode(readCtx, shortCode)
		})
		if err != nil {
			return nil, err
		}

		if err := r.cache.Set(readCtx, link, r.cacheTTL); err != nil {
			logger.Warn("Failed to populate cache", "short_code", shortCode, "error", err)
		}
		return link, nil
	})

	select {
	case res := <-results:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.ShortLink).Clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
