package application

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sp3dr4/shortener/config"
	"github.com/sp3dr4/shortener/internal/domain"
	"github.com/sp3dr4/shortener/internal/pkg/logging"
	"github.com/sp3dr4/shortener/internal/pkg/metrics"
)

// ErrNothingToUpdate rejects an update that names no field.
var ErrNothingToUpdate = fmt.Errorf("%w: at least one of originalUrl or isActive is required", domain.ErrValidation)

// LinkService is the CRUD façade over short links. The caller's identity
// arrives as a plain owner id; verifying it is the transport's job.
type LinkService struct {
	repo      domain.LinkRepository
	generator *CodeGenerator
	cache     domain.Cache
	validate  *validator.Validate
	retry     RetryPolicy
	metrics   metrics.Registry
	now       func() time.Time

	baseURL        string
	maxAttempts    int
	allowAnonymous bool
	defaultLimit   int
	maxLimit       int
}

func NewLinkService(
	repo domain.LinkRepository,
	generator *CodeGenerator,
	cache domain.Cache,
	cfg *config.Config,
	registry metrics.Registry,
	opts ...Option,
) *LinkService {
	o := buildOptions(opts)

	s := &LinkService{
		repo:           repo,
		generator:      generator,
		cache:          cache,
		validate:       newValidator(generator),
		retry:          NewRetryPolicy(cfg.Store.Retry),
		metrics:        registry,
		now:            o.now,
		baseURL:        strings.TrimRight(cfg.App.BaseURL, "/"),
		maxAttempts:    cfg.App.MaxGenerateAttempts,
		allowAnonymous: cfg.App.AllowAnonymous,
		defaultLimit:   cfg.App.List.DefaultLimit,
		maxLimit:       cfg.App.List.MaxLimit,
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = 5
	}
	if s.defaultLimit <= 0 {
		s.defaultLimit = 20
	}
	if s.maxLimit < s.defaultLimit {
		s.maxLimit = max(s.defaultLimit, 100)
	}
	return s
}

// newValidator reports fields by their JSON names and knows the "slug" tag.
func newValidator(generator *CodeGenerator) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return generator.CheckSlug(fl.Field().String()) == nil
	})
	return v
}

type CreateURLRequest struct {
	OriginalURL string     `json:"originalUrl" validate:"required,http_url,max=2048" example:"https://example.com/some/long/path"`
	CustomSlug  string     `json:"customSlug,omitempty" validate:"omitempty,slug" example:"my-link"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty" example:"2030-01-01T00:00:00Z"`
}

type UpdateURLRequest struct {
	OriginalURL *string `json:"originalUrl,omitempty" validate:"omitempty,http_url,max=2048" example:"https://example.org/new"`
	IsActive    *bool   `json:"isActive,omitempty" example:"false"`
}

type LinkResponse struct {
	ShortCode   string     `json:"shortCode" example:"aB3xY9z"`
	ShortURL    string     `json:"shortUrl" example:"http://localhost:8080/aB3xY9z"`
	OriginalURL string     `json:"originalUrl" example:"https://example.com/some/long/path"`
	OwnerID     *string    `json:"ownerId,omitempty" example:"user-42"`
	CustomSlug  bool       `json:"customSlug"`
	Clicks      int64      `json:"clicks"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

type ListResponse struct {
	URLs   []LinkResponse `json:"urls"`
	Cursor string         `json:"cursor,omitempty"`
}

// CreateURL stores a new link. A custom slug that is taken fails with
// ErrShortCodeExists; generated codes are retried on collision and fail with
// ErrGenerationExhausted once every attempt collided.
func (s *LinkService) CreateURL(ctx context.Context, req CreateURLRequest, ownerID *string) (*LinkResponse, error) {
	if ownerID == nil && !s.allowAnonymous {
		return nil, domain.ErrAnonymousNotAllowed
	}

	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	now := s.now()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, domain.ErrInvalidExpiry
	}

	var (
		link *domain.ShortLink
		err  error
	)
	if req.CustomSlug != "" {
		link, err = s.createCustom(ctx, req, ownerID, now)
	} else {
		link, err = s.createGenerated(ctx, req, ownerID, now)
	}
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("Created short URL",
		"short_code", link.ShortCode,
		"original_url", link.OriginalURL,
		"custom_slug", link.CustomSlug,
	)
	return s.toResponse(link), nil
}

func (s *LinkService) createCustom(ctx context.Context, req CreateURLRequest, ownerID *string, now time.Time) (*domain.ShortLink, error) {
	code, err := s.generator.ValidateCustom(ctx, req.CustomSlug)
	if err != nil {
		return nil, err
	}

	link, err := domain.NewShortLink(code, req.OriginalURL, ownerID, true, req.ExpiresAt, now)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, link)
	if err != nil {
		return nil, err
	}

	s.metrics.IncLinksCreated(metrics.KindCustom)
	return created, nil
}

func (s *LinkService) createGenerated(ctx context.Context, req CreateURLRequest, ownerID *string, now time.Time) (*domain.ShortLink, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		code, err := s.generator.Generate()
		if err != nil {
			return nil, err
		}

		link, err := domain.NewShortLink(code, req.OriginalURL, ownerID, false, req.ExpiresAt, now)
		if err != nil {
			return nil, err
		}

		created, err := s.repo.Create(ctx, link)
		if err == nil {
			s.metrics.IncLinksCreated(metrics.KindGenerated)
			return created, nil
		}
		if !errors.Is(err, domain.ErrShortCodeExists) {
			return nil, err
		}

		s.metrics.IncCodeCollisions()
		logging.FromContext(ctx).Warn("Generated short code collided", "short_code", code, "attempt", attempt)
	}

	return nil, domain.ErrGenerationExhausted
}

// GetURL returns the stored link including inactive and expired ones.
func (s *LinkService) GetURL(ctx context.Context, shortCode string) (*LinkResponse, error) {
	link, err := s.find(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	return s.toResponse(link), nil
}

// ListURLs pages through ownerID's links, newest first. cursor is the opaque
// token from a previous page, or empty for the first page.
func (s *LinkService) ListURLs(ctx context.Context, ownerID string, limit int, cursor string) (*ListResponse, error) {
	after, err := domain.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	switch {
	case limit <= 0:
		limit = s.defaultLimit
	case limit > s.maxLimit:
		limit = s.maxLimit
	}

	page, err := retryTransient(ctx, s.retry, func() (*domain.Page, error) {
		return s.repo.ListByOwner(ctx, ownerID, limit, after)
	})
	if err != nil {
		return nil, err
	}

	resp := &ListResponse{URLs: make([]LinkResponse, 0, len(page.Links))}
	for _, link := range page.Links {
		resp.URLs = append(resp.URLs, *s.toResponse(link))
	}
	if page.NextCursor != nil {
		resp.Cursor = page.NextCursor.Encode()
	}

	return resp, nil
}

// UpdateURL changes the target and/or active flag of a link owned by ownerID.
func (s *LinkService) UpdateURL(ctx context.Context, shortCode string, req UpdateURLRequest, ownerID string) (*LinkResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	update := domain.LinkUpdate{OriginalURL: req.OriginalURL, IsActive: req.IsActive}
	if update.IsEmpty() {
		return nil, ErrNothingToUpdate
	}

	link, err := s.find(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	if !link.OwnedBy(ownerID) {
		return nil, domain.ErrNotOwner
	}

	updated, err := s.repo.Update(ctx, shortCode, update)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, shortCode, updated.UpdatedAt)

	logging.FromContext(ctx).Info("Updated short URL", "short_code", shortCode)
	return s.toResponse(updated), nil
}

// DeleteURL removes a link owned by ownerID. Deleting a code that does not
// exist succeeds.
func (s *LinkService) DeleteURL(ctx context.Context, shortCode string, ownerID string) error {
	link, err := s.find(ctx, shortCode)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil
		}
		return err
	}
	if !link.OwnedBy(ownerID) {
		return domain.ErrNotOwner
	}

	if err := s.repo.Delete(ctx, shortCode); err != nil {
		return err
	}
	// Any copy still in flight carries link.UpdatedAt or older.
	s.invalidate(ctx, shortCode, latest(s.now(), link.UpdatedAt.Add(time.Microsecond)))

	logging.FromContext(ctx).Info("Deleted short URL", "short_code", shortCode)
	return nil
}

func (s *LinkService) find(ctx context.Context, shortCode string) (*domain.ShortLink, error) {
	if err := domain.ValidateShortCode(shortCode); err != nil {
		return nil, domain.ErrURLNotFound
	}
	return retryTransient(ctx, s.retry, func() (*domain.ShortLink, error) {
		return s.repo.FindByShortCode(ctx, shortCode)
	})
}

// invalidate drops the cached redirect and refuses cache writes of copies
// older than version, so a resolve that read the store before the write
// cannot put the old link back.
func (s *LinkService) invalidate(ctx context.Context, shortCode string, version time.Time) {
	if err := s.cache.Invalidate(ctx, shortCode, version); err != nil {
		logging.FromContext(ctx).Warn("Failed to invalidate cache", "short_code", shortCode, "error", err)
	}
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func (s *LinkService) toResponse(link *domain.ShortLink) *LinkResponse {
	return &LinkResponse{
		ShortCode:   link.ShortCode,
		ShortURL:    s.baseURL + "/" + link.ShortCode,
		OriginalURL: link.OriginalURL,
		OwnerID:     link.OwnerID,
		CustomSlug:  link.CustomSlug,
		Clicks:      link.Clicks,
		IsActive:    link.IsActive,
		CreatedAt:   link.CreatedAt,
		UpdatedAt:   link.UpdatedAt,
		ExpiresAt:   link.ExpiresAt,
	}
}
