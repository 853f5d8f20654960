package domain

import "context"

// LinkRepository is the record store. Implementations must make Create a
// conditional insert, IncrementClicks an atomic increment, and Update a single
// conditional write.
type LinkRepository interface {
	// Create inserts link, failing with ErrShortCodeExists instead of overwriting.
	Create(ctx context.Context, link *ShortLink) (*ShortLink, error)
	FindByShortCode(ctx context.Context, shortCode string) (*ShortLink, error)
	Exists(ctx context.Context, shortCode string) (bool, error)
	// ListByOwner returns at most limit links created after cursor (nil for the first page).
	ListByOwner(ctx context.Context, ownerID string, limit int, cursor *Cursor) (*Page, error)
	IncrementClicks(ctx context.Context, shortCode string) error
	Update(ctx context.Context, shortCode string, update LinkUpdate) (*ShortLink, error)
	// Delete is idempotent: removing a missing code is not an error.
	Delete(ctx context.Context, shortCode string) error
	Close() error
	HealthCheck(ctx context.Context) error
}
