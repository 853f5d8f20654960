package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sp3dr4/shortener/internal/domain"
)

const linkColumns = `short_code, original_url, owner_id, custom_slug, clicks, is_active, created_at, updated_at, expires_at`

type URLRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewURLRepository works with either the lib/pq or the pgx stdlib driver behind db.
func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{db: db, now: time.Now}
}

func (r *URLRepository) Create(ctx context.Context, link *domain.ShortLink) (*domain.ShortLink, error) {
	query := `
		INSERT INTO links (` + linkColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (short_code) DO NOTHING
		RETURNING ` + linkColumns

	var ownerID sql.NullString
	if link.OwnerID != nil {
		ownerID = sql.NullString{String: *link.OwnerID, Valid: true}
	}
	var expiresAt sql.NullTime
	if link.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: *link.ExpiresAt, Valid: true}
	}

	var result domain.ShortLink
	err := r.db.QueryRowxContext(ctx, query,
		link.ShortCode, link.OriginalURL, ownerID, link.CustomSlug, link.Clicks,
		link.IsActive, link.CreatedAt, link.UpdatedAt, expiresAt,
	).StructScan(&result)
	if err != nil {
		// DO NOTHING returns no row when the code is taken.
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrShortCodeExists
		}
		return nil, r.handlePostgreSQLError(err, "create link")
	}

	slog.Debug("Link created successfully", "short_code", result.ShortCode)
	return normalize(&result), nil
}

func (r *URLRepository) FindByShortCode(ctx context.Context, shortCode string) (*domain.ShortLink, error) {
	var link domain.ShortLink
	query := `SELECT ` + linkColumns + ` FROM links WHERE short_code = $1`

	if err := r.db.GetContext(ctx, &link, query, shortCode); err != nil {
		return nil, r.handlePostgreSQLError(err, "find link by short code")
	}

	return normalize(&link), nil
}

func (r *URLRepository) Exists(ctx context.Context, shortCode string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM links WHERE short_code = $1)`

	if err := r.db.GetContext(ctx, &exists, query, shortCode); err != nil {
		return false, r.handlePostgreSQLError(err, "check link existence")
	}

	return exists, nil
}

func (r *URLRepository) ListByOwner(ctx context.Context, ownerID string, limit int, cursor *domain.Cursor) (*domain.Page, error) {
	var (
		links []*domain.ShortLink
		err   error
	)

	if cursor == nil {
		query := `
			SELECT ` + linkColumns + ` FROM links
			WHERE owner_id = $1
			ORDER BY created_at DESC, short_code DESC
			LIMIT $2
		`
		err = r.db.SelectContext(ctx, &links, query, ownerID, limit+1)
	} else {
		query := `
			SELECT ` + linkColumns + ` FROM links
			WHERE owner_id = $1 AND (created_at, short_code) < ($2, $3)
			ORDER BY created_at DESC, short_code DESC
			LIMIT $4
		`
		err = r.db.SelectContext(ctx, &links, query, ownerID, cursor.CreatedAt, cursor.ShortCode, limit+1)
	}
	if err != nil {
		return nil, r.handlePostgreSQLError(err, "list links by owner")
	}

	page := &domain.Page{}
	if len(links) > limit {
		links = links[:limit]
		page.NextCursor = domain.CursorAfter(links[limit-1])
	}
	for _, l := range links {
		normalize(l)
	}
	page.Links = links
	if page.Links == nil {
		page.Links = []*domain.ShortLink{}
	}

	return page, nil
}

func (r *URLRepository) IncrementClicks(ctx context.Context, shortCode string) error {
	query := `UPDATE links SET clicks = clicks + 1 WHERE short_code = $1`

	result, err := r.db.ExecContext(ctx, query, shortCode)
	if err != nil {
		return r.handlePostgreSQLError(err, "increment clicks")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return r.handlePostgreSQLError(err, "increment clicks")
	}
	if rowsAffected == 0 {
		return domain.ErrURLNotFound
	}

	return nil
}

func (r *URLRepository) Update(ctx context.Context, shortCode string, update domain.LinkUpdate) (*domain.ShortLink, error) {
	query := `
		UPDATE links
		SET original_url = COALESCE($1, original_url),
		    is_active = COALESCE($2, is_active),
		    updated_at = $3
		WHERE short_code = $4
		RETURNING ` + linkColumns

	var originalURL sql.NullString
	if update.OriginalURL != nil {
		originalURL = sql.NullString{String: *update.OriginalURL, Valid: true}
	}
	var isActive sql.NullBool
	if update.IsActive != nil {
		isActive = sql.NullBool{Bool: *update.IsActive, Valid: true}
	}

	var link domain.ShortLink
	err := r.db.GetContext(ctx, &link, query,
		originalURL, isActive, r.now().UTC().Truncate(time.Microsecond), shortCode,
	)
	if err != nil {
		return nil, r.handlePostgreSQLError(err, "update link")
	}

	return normalize(&link), nil
}

func (r *URLRepository) Delete(ctx context.Context, shortCode string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM links WHERE short_code = $1`, shortCode); err != nil {
		return r.handlePostgreSQLError(err, "delete link")
	}
	return nil
}

// handlePostgreSQLError converts PostgreSQL-specific errors from either driver to domain errors
func (r *URLRepository) handlePostgreSQLError(err error, operation string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrURLNotFound
	}

	var code, message string
	var pqErr *pq.Error
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pqErr):
		code, message = string(pqErr.Code), pqErr.Message
	case errors.As(err, &pgErr):
		code, message = pgErr.Code, pgErr.Message
	case errors.Is(err, driver.ErrBadConn), pgconn.SafeToRetry(err):
		return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, operation, err)
	default:
		return err
	}

	slog.Error("PostgreSQL error", "operation", operation, "code", code, "message", message)

	switch {
	case code == "23505": // unique_violation
		return domain.ErrShortCodeExists
	case code == "23502": // not_null_violation
		return fmt.Errorf("required field missing: %s", message)
	case code == "23514": // check_violation
		return fmt.Errorf("check constraint violation: %s", message)
	case isTransientCode(code):
		return fmt.Errorf("%w: %s: [%s] %s", domain.ErrStoreUnavailable, operation, code, message)
	default:
		return fmt.Errorf("database error [%s]: %s", code, message)
	}
}

// isTransientCode matches SQLSTATEs worth retrying: connection exceptions,
// serialization failures, deadlocks, and server shutdown or overload.
func isTransientCode(code string) bool {
	if len(code) == 5 && code[:2] == "08" {
		return true
	}
	switch code {
	case "40001", "40P01", "53300", "57P01", "57P02", "57P03":
		return true
	}
	return false
}

// normalize pins scanned timestamps to UTC; lib/pq returns them in the session zone.
func normalize(link *domain.ShortLink) *domain.ShortLink {
	link.CreatedAt = link.CreatedAt.UTC()
	link.UpdatedAt = link.UpdatedAt.UTC()
	if link.ExpiresAt != nil {
		exp := link.ExpiresAt.UTC()
		link.ExpiresAt = &exp
	}
	return link
}

func (r *URLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *URLRepository) HealthCheck(ctx context.Context) error {
	if r.db == nil {
		return errors.New("database connection is nil")
	}
	return r.db.PingContext(ctx)
}

var _ domain.LinkRepository = (*URLRepository)(nil)
