package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations
type Cache interface {
	// Get retrieves a link from cache by its short code. A miss returns (nil, nil).
	Get(ctx context.Context, shortCode string) (*ShortLink, error)

	// Set stores a link in cache with the specified TTL. The write is skipped
	// when an invalidation newer than link.UpdatedAt has been recorded, so a
	// copy read before an update can never replace it.
	Set(ctx context.Context, link *ShortLink, ttl time.Duration) error

	// Invalidate removes the cached link and fences out later Set calls for
	// copies whose UpdatedAt is before version.
	Invalidate(ctx context.Context, shortCode string, version time.Time) error

	// Ping checks if the cache is available
	Ping(ctx context.Context) error

	Close() error
}
