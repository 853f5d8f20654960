// Package resilient decorates a LinkRepository with a per-call timeout, a
// circuit breaker and store metrics.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/sp3dr4/shortener/config"
	"github.com/sp3dr4/shortener/internal/domain"
	"github.com/sp3dr4/shortener/internal/pkg/metrics"
)

// Repository bounds every store call. Business outcomes (not found, conflict)
// count as successes for the breaker; only infrastructure failures trip it.
type Repository struct {
	next    domain.LinkRepository
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
	metrics metrics.Registry
	logger  *slog.Logger
}

const defaultTimeout = 2 * time.Second

func NewRepository(next domain.LinkRepository, cfg config.StoreConfig, registry metrics.Registry, logger *slog.Logger) *Repository {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	r := &Repository{
		next:    next,
		timeout: timeout,
		metrics: registry,
		logger:  logger,
	}

	if cfg.Breaker.Enabled {
		threshold := cfg.Breaker.ConsecutiveFailures
		r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "link-store",
			MaxRequests: cfg.Breaker.HalfOpenRequests,
			Timeout:     cfg.Breaker.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			IsSuccessful: func(err error) bool {
				return err == nil || domain.IsDomainError(err) || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("Store circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
				registry.SetBreakerState(breakerState(to))
			},
		})
	}

	return r
}

func (r *Repository) Create(ctx context.Context, link *domain.ShortLink) (*domain.ShortLink, error) {
	return call(ctx, r, "create", func(ctx context.Context) (*domain.ShortLink, error) {
		return r.next.Create(ctx, link)
	})
}

func (r *Repository) FindByShortCode(ctx context.Context, shortCode string) (*domain.ShortLink, error) {
	return call(ctx, r, "find", func(ctx context.Context) (*domain.ShortLink, error) {
		return r.next.FindByShortCode(ctx, shortCode)
	})
}

func (r *Repository) Exists(ctx context.Context, shortCode string) (bool, error) {
	return call(ctx, r, "exists", func(ctx context.Context) (bool, error) {
		return r.next.Exists(ctx, shortCode)
	})
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID string, limit int, cursor *domain.Cursor) (*domain.Page, error) {
	return call(ctx, r, "list", func(ctx context.Context) (*domain.Page, error) {
		return r.next.ListByOwner(ctx, ownerID, limit, cursor)
	})
}

func (r *Repository) IncrementClicks(ctx context.Context, shortCode string) error {
	_, err := call(ctx, r, "increment_clicks", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.next.IncrementClicks(ctx, shortCode)
	})
	return err
}

func (r *Repository) Update(ctx context.Context, shortCode string, update domain.LinkUpdate) (*domain.ShortLink, error) {
	return call(ctx, r, "update", func(ctx context.Context) (*domain.ShortLink, error) {
		return r.next.Update(ctx, shortCode, update)
	})
}

func (r *Repository) Delete(ctx context.Context, shortCode string) error {
	_, err := call(ctx, r, "delete", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.next.Delete(ctx, shortCode)
	})
	return err
}

// HealthCheck bypasses the breaker so readiness reports the store itself.
func (r *Repository) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.next.HealthCheck(ctx)
}

func (r *Repository) Close() error {
	return r.next.Close()
}

func call[T any](ctx context.Context, r *Repository, operation string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()

	var (
		result T
		err    error
	)
	if r.breaker == nil {
		result, err = fn(ctx)
	} else {
		var out any
		out, err = r.breaker.Execute(func() (any, error) {
			return fn(ctx)
		})
		if v, ok := out.(T); ok {
			result = v
		}
	}

	err = r.translate(ctx, operation, err)

	status := metrics.StatusOK
	if err != nil && !domain.IsDomainError(err) {
		status = metrics.StatusError
	}
	r.metrics.RecordStoreOperation(operation, status, time.Since(start).Seconds())

	return result, err
}

func (r *Repository) translate(ctx context.Context, operation string, err error) error {
	switch {
	case err == nil, domain.IsDomainError(err), domain.IsTransient(err):
		return err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, operation, err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		r.logger.Warn("Store call timed out", "operation", operation, "timeout", r.timeout, "error", err)
		return fmt.Errorf("%w: %s after %s", domain.ErrStoreTimeout, operation, r.timeout)
	default:
		return err
	}
}

func breakerState(s gobreaker.State) metrics.BreakerState {
	switch s {
	case gobreaker.StateOpen:
		return metrics.BreakerOpen
	case gobreaker.StateHalfOpen:
		return metrics.BreakerHalfOpen
	default:
		return metrics.BreakerClosed
	}
}

var _ domain.LinkRepository = (*Repository)(nil)
