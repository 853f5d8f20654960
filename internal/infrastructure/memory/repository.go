package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sp3dr4/shortener/internal/domain"
)

// URLRepository keeps links in process memory. Every read hands out a copy so
// callers never alias a stored row.
type URLRepository struct {
	links   map[string]*domain.ShortLink
	byOwner map[string][]*domain.ShortLink // listing order: newest first
	now     func() time.Time
	mu      sync.RWMutex
}

func NewURLRepository() *URLRepository {
	return &URLRepository{
		links:   make(map[string]*domain.ShortLink),
		byOwner: make(map[string][]*domain.ShortLink),
		now:     time.Now,
	}
}

func (r *URLRepository) Create(_ context.Context, link *domain.ShortLink) (*domain.ShortLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.links[link.ShortCode]; exists {
		return nil, domain.ErrShortCodeExists
	}

	stored := link.Clone()
	r.links[stored.ShortCode] = stored
	if stored.OwnerID != nil {
		r.insertOwned(*stored.OwnerID, stored)
	}

	return stored.Clone(), nil
}

func (r *URLRepository) FindByShortCode(_ context.Context, shortCode string) (*domain.ShortLink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	link, exists := r.links[shortCode]
	if !exists {
		return nil, domain.ErrURLNotFound
	}

	return link.Clone(), nil
}

func (r *URLRepository) Exists(_ context.Context, shortCode string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.links[shortCode]
	return exists, nil
}

func (r *URLRepository) ListByOwner(_ context.Context, ownerID string, limit int, cursor *domain.Cursor) (*domain.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owned := r.byOwner[ownerID]
	start := 0
	if cursor != nil {
		start = sort.Search(len(owned), func(i int) bool {
			return cursor.Precedes(owned[i])
		})
	}

	end := min(start+limit, len(owned))
	page := &domain.Page{Links: make([]*domain.ShortLink, 0, end-start)}
	for _, link := range owned[start:end] {
		page.Links = append(page.Links, link.Clone())
	}
	if end < len(owned) && len(page.Links) > 0 {
		page.NextCursor = domain.CursorAfter(page.Links[len(page.Links)-1])
	}

	return page, nil
}

func (r *URLRepository) IncrementClicks(_ context.Context, shortCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, exists := r.links[shortCode]
	if !exists {
		return domain.ErrURLNotFound
	}

	link.Clicks++
	return nil
}

func (r *URLRepository) Update(_ context.Context, shortCode string, update domain.LinkUpdate) (*domain.ShortLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, exists := r.links[shortCode]
	if !exists {
		return nil, domain.ErrURLNotFound
	}

	if update.OriginalURL != nil {
		link.OriginalURL = *update.OriginalURL
	}
	if update.IsActive != nil {
		link.IsActive = *update.IsActive
	}
	link.UpdatedAt = r.now().UTC().Truncate(time.Microsecond)

	return link.Clone(), nil
}

func (r *URLRepository) Delete(_ context.Context, shortCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, exists := r.links[shortCode]
	if !exists {
		return nil
	}

	delete(r.links, shortCode)
	if link.OwnerID != nil {
		r.removeOwned(*link.OwnerID, link)
	}

	return nil
}

func (r *URLRepository) Close() error {
	return nil
}

func (r *URLRepository) HealthCheck(_ context.Context) error {
	return nil
}

// listsBefore reports whether a sorts ahead of b in listing order.
func listsBefore(a, b *domain.ShortLink) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ShortCode > b.ShortCode
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func (r *URLRepository) insertOwned(ownerID string, link *domain.ShortLink) {
	owned := r.byOwner[ownerID]
	i := sort.Search(len(owned), func(i int) bool {
		return !listsBefore(owned[i], link)
	})
	owned = append(owned, nil)
	copy(owned[i+1:], owned[i:])
	owned[i] = link
	r.byOwner[ownerID] = owned
}

func (r *URLRepository) removeOwned(ownerID string, link *domain.ShortLink) {
	owned := r.byOwner[ownerID]
	for i, l := range owned {
		if l == link {
			owned = append(owned[:i], owned[i+1:]...)
			break
		}
	}
	if len(owned) == 0 {
		delete(r.byOwner, ownerID)
		return
	}
	r.byOwner[ownerID] = owned
}

var _ domain.LinkRepository = (*URLRepository)(nil)
