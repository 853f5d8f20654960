package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp3dr4/shortener/config"
	"github.com/sp3dr4/shortener/internal/domain"
	"github.com/sp3dr4/shortener/internal/infrastructure/memory"
)

func TestLinkService_CreateURL_Generated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.service.CreateURL(ctx, CreateURLRequest{OriginalURL: "https://example.com/a"}, nil)
	require.NoError(t, err)

	assert.Len(t, resp.ShortCode, 7)
	assert.Equal(t, testBaseURL+"/"+resp.ShortCode, resp.ShortURL)
	assert.Equal(t, "https://example.com/a", resp.OriginalURL)
	assert.Nil(t, resp.OwnerID)
	assert.False(t, resp.CustomSlug)
	assert.True(t, resp.IsActive)
	assert.Zero(t, resp.Clicks)
	assert.Equal(t, f.clock.Now(), resp.CreatedAt)

	got, err := f.service.GetURL(ctx, resp.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, resp, got)
}

func TestLinkService_CreateURL_CustomSlugAndOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	expires := f.clock.Now().Add(time.Hour)
	resp, err := f.service.CreateURL(ctx, CreateURLRequest{
		OriginalURL: "https://example.com",
		CustomSlug:  "my-link_1",
		ExpiresAt:   &expires,
	}, strPtr("alice"))
	require.NoError(t, err)

	assert.Equal(t, "my-link_1", resp.ShortCode)
	assert.True(t, resp.CustomSlug)
	assert.Equal(t, strPtr("alice"), resp.OwnerID)
	require.NotNil(t, resp.ExpiresAt)
	assert.True(t, expires.Equal(*resp.ExpiresAt))

	_, err = f.service.CreateURL(ctx, CreateURLRequest{OriginalURL: "https://other.example", CustomSlug: "my-link_1"}, nil)
	assert.ErrorIs(t, err, domain.ErrShortCodeExists)
	assert.False(t, domain.IsTransient(err), "custom slug conflicts are not retryable")
}

func TestLinkService_CreateURL_Validation(t *testing.T) {
	f := newFixture(t)
	past := f.clock.Now().Add(-time.Minute)
	now := f.clock.Now()

	tests := []struct {
		name    string
		request CreateURLRequest
		field   string
		wantErr error
	}{
		{"missing url", CreateURLRequest{}, "originalUrl", nil},
		{"relative url", CreateURLRequest{OriginalURL: "not-a-url"}, "originalUrl", nil},
		{"unsupported scheme", CreateURLRequest{OriginalURL: "ftp://example.com/file"}, "originalUrl", nil},
		{"slug too short", CreateURLRequest{OriginalURL: "https://example.com", CustomSlug: "ab"}, "customSlug", nil},
		{"slug bad characters", CreateURLRequest{OriginalURL: "https://example.com", CustomSlug: "has space"}, "customSlug", nil},
		{"reserved slug", CreateURLRequest{OriginalURL: "https://example.com", CustomSlug: "API"}, "customSlug", nil},
		{"expiry in the past", CreateURLRequest{OriginalURL: "https://example.com", ExpiresAt: &past}, "", domain.ErrInvalidExpiry},
		{"expiry equal to now", CreateURLRequest{OriginalURL: "https://example.com", ExpiresAt: &now}, "", domain.ErrInvalidExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CreateURL(context.Background(), tt.request, nil)
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err), "expected validation error, got %v", err)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.field != "" {
				var verrs validator.ValidationErrors
				require.ErrorAs(t, err, &verrs)
				assert.Equal(t, tt.field, verrs[0].Field())
			}
		})
	}
}

func TestLinkService_CreateURL_AnonymousDisabled(t *testing.T) {
	f := newFixture(t, withConfig(func(c *config.Config) { c.App.AllowAnonymous = false }))

	_, err := f.service.CreateURL(context.Background(), CreateURLRequest{OriginalURL: "https://example.com"}, nil)
	assert.ErrorIs(t, err, domain.ErrAnonymousNotAllowed)

	_, err = f.service.CreateURL(context.Background(), CreateURLRequest{OriginalURL: "https://example.com"}, strPtr("alice"))
	assert.NoError(t, err)
}

func TestLinkService_CreateURL_ConcurrentCustomSlug(t *testing.T) {
	f := newFixture(t)
	const workers = 20

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.CreateURL(context.Background(), CreateURLRequest{
				OriginalURL: fmt.Sprintf("https://example.com/%d", i),
				CustomSlug:  "contested",
			}, nil)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrShortCodeExists):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
}

// collidingRepository reports every insert as a duplicate.
type collidingRepository struct {
	*memory.URLRepository
}

func (collidingRepository) Create(context.Context, *domain.ShortLink) (*domain.ShortLink, error) {
	return nil, domain.ErrShortCodeExists
}

func TestLinkService_CreateURL_GenerationExhausted(t *testing.T) {
	f := newFixture(t, withRepository(collidingRepository{memory.NewURLRepository()}))

	_, err := f.service.CreateURL(context.Background(), CreateURLRequest{OriginalURL: "https://example.com"}, nil)

	assert.ErrorIs(t, err, domain.ErrGenerationExhausted)
	assert.True(t, domain.IsConflict(err))
	assert.True(t, domain.IsTransient(err))
	assert.Equal(t, int32(5), f.metrics.collisions.Load())
}

func TestLinkService_GetURL_NotFound(t *testing.T) {
	f := newFixture(t)

	for _, code := range []string{"missing", "", "bad code!"} {
		_, err := f.service.GetURL(context.Background(), code)
		assert.ErrorIs(t, err, domain.ErrURLNotFound, code)
	}
}

func TestLinkService_ListURLs_Pagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := strPtr("alice")

	var created []string
	for i := range 5 {
		resp, err := f.service.CreateURL(ctx, CreateURLRequest{OriginalURL: fmt.Sprintf("https://example.com/%d", i)}, owner)
		require.NoError(t, err)
		created = append(created, resp.ShortCode)
		f.clock.Advance(time.Second)
	}
	_, err := f.service.CreateURL(ctx, CreateURLRequest{OriginalURL: "https://example.com/bob"}, strPtr("bob"))
	require.NoError(t, err)

	var (
		got    []string
		sizes  []int
		cursor string
	)
	for {
		page, err := f.service.ListURLs(ctx, "alice", 2, cursor)
		require.NoError(t, err)
		sizes = append(sizes, len(page.URLs))
		for _, u := range page.URLs {
			got = append(got, u.ShortCode)
		}
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}

	want := []string{created[4], created[3], created[2], created[1], created[0]}
	assert.Equal(t, want, got)
	assert.Equal(t, []int{2, 2, 1}, sizes)

	all, err := f.service.ListURLs(ctx, "alice", 0, "")
	require.NoError(t, err)
	assert.Len(t, all.URLs, 5)
	assert.Empty(t, all.Cursor)

	empty, err := f.service.ListURLs(ctx, "nobody", 10, "")
	require.NoError(t, err)
	assert.NotNil(t, empty.URLs)
	assert.Empty(t, empty.URLs)

	_, err = f.service.ListURLs(ctx, "alice", 2, "!!!")
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)
}

func TestLinkService_UpdateURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owned, err := f.service.CreateURL(ctx, CreateURLRequest{OriginalURL: "https://example.com/old"}, strPtr("alice"))
	require.NoError(t, err)
	anonymous, err := f.service.CreateURL(ctx, CreateURLRequest{OriginalURL: "https://example.com/anon"}, nil)
	require.NoError(t, err)

	updated, err := f.service.UpdateURL(ctx, owned.ShortCode, UpdateURLRequest{OriginalURL: strPtr("https://example.com/new")}, "alice")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/new", updated.OriginalURL)
	assert.True(t, updated.IsActive)

	updated, err = f.service.UpdateURL(ctx, owned.ShortCode, UpdateURLRequest{IsActive: boolPtr(false)}, "alice")
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "https://example.com/new", updated.OriginalURL)

	_, err = f.service.UpdateURL(ctx, owned.ShortCode, UpdateURLRequest{IsActive: boolPtr(true)}, "mallory")
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	_, err = f.service.UpdateURL(ctx, anonymous.ShortCode, UpdateURLRequest{IsActive: boolPtr(false)}, "alice")
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	_, err = f.service.UpdateURL(ctx, owned.ShortCode, UpdateURLRequest{}, "alice")
	assert.ErrorIs(t, err, ErrNothingToUpdate)

	_, err = f.service.UpdateURL(ctx, owned.ShortCode, UpdateURLRequest{OriginalURL: strPtr("javascript:alert(1)")}, "alice")
	assert.True(t, domain.IsValidation(err))

	_, err = f.service.UpdateURL(ctx, "missing", UpdateURLRequest{IsActive: boolPtr(true)}, "alice")
	assert.ErrorIs(t, err, domain.ErrURLNotFound)
}

func TestLinkService_DeleteURL_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.service.CreateURL(ctx, CreateURLRequest{OriginalURL: "https://example.com"}, strPtr("alice"))
	require.NoError(t, err)

	assert.ErrorIs(t, f.service.DeleteURL(ctx, resp.ShortCode, "mallory"), domain.ErrNotOwner)

	require.NoError(t, f.service.DeleteURL(ctx, resp.ShortCode, "alice"))
	require.NoError(t, f.service.DeleteURL(ctx, resp.ShortCode, "alice"))
	require.NoError(t, f.service.DeleteURL(ctx, "neverexisted", "alice"))

	_, err = f.service.GetURL(ctx, resp.ShortCode)
	assert.ErrorIs(t, err, domain.ErrURLNotFound)

	_, err = f.resolver.Resolve(ctx, resp.ShortCode)
	assert.ErrorIs(t, err, domain.ErrURLNotFound)
}
