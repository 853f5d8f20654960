package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sp3dr4/shortener/config"
	"github.com/sp3dr4/shortener/internal/domain"
	"github.com/sp3dr4/shortener/internal/pkg/logging"
	"github.com/sp3dr4/shortener/internal/pkg/metrics"
)

// ClickRecorder increments click counters off the request path. Each increment
// runs in its own goroutine with its own deadline so a slow store never delays
// a redirect, and a cancelled request never drops a counted click.
type ClickRecorder struct {
	repo    domain.LinkRepository
	timeout time.Duration
	retry   RetryPolicy
	metrics metrics.Registry
	logger  *slog.Logger

	wg sync.WaitGroup
}

const defaultClickTimeout = 5 * time.Second

func NewClickRecorder(repo domain.LinkRepository, cfg *config.Config, registry metrics.Registry, logger *slog.Logger) *ClickRecorder {
	timeout := cfg.Clicks.Timeout
	if timeout <= 0 {
		timeout = defaultClickTimeout
	}
	return &ClickRecorder{
		repo:    repo,
		timeout: timeout,
		retry:   NewRetryPolicy(cfg.Clicks.Retry),
		metrics: registry,
		logger:  logger,
	}
}

// Record schedules one click for shortCode. ctx only contributes its values
// (request logger, trace id); its cancellation is ignored.
func (c *ClickRecorder) Record(ctx context.Context, shortCode string) {
	detached := context.WithoutCancel(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(detached, c.timeout)
		defer cancel()

		_, err := retryTransient(ctx, c.retry, func() (struct{}, error) {
			return struct{}{}, c.repo.IncrementClicks(ctx, shortCode)
		})
		if err != nil {
			c.metrics.IncClickRecordFailures()
			logging.FromContext(ctx).Warn("Failed to record click", "short_code", shortCode, "error", err)
		}
	}()
}

// Wait blocks until every scheduled increment has finished or ctx ends.
func (c *ClickRecorder) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Pending click increments drained")
		return nil
	case <-ctx.Done():
		c.logger.Warn("Gave up waiting for pending click increments", "error", ctx.Err())
		return ctx.Err()
	}
}
