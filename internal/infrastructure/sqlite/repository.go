package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	mattn "github.com/mattn/go-sqlite3"
	modernc "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/sp3dr4/shortener/internal/domain"
)

const linkColumns = `short_code, original_url, owner_id, custom_slug, clicks, is_active, created_at, updated_at, expires_at`

// linkRow is the on-disk shape: timestamps are unix microseconds.
type linkRow struct {
	ShortCode   string         `db:"short_code"`
	OriginalURL string         `db:"original_url"`
	OwnerID     sql.NullString `db:"owner_id"`
	CustomSlug  bool           `db:"custom_slug"`
	Clicks      int64          `db:"clicks"`
	IsActive    bool           `db:"is_active"`
	CreatedAt   int64          `db:"created_at"`
	UpdatedAt   int64          `db:"updated_at"`
	ExpiresAt   sql.NullInt64  `db:"expires_at"`
}

func (r linkRow) toDomain() *domain.ShortLink {
	link := &domain.ShortLink{
		ShortCode:   r.ShortCode,
		OriginalURL: r.OriginalURL,
		CustomSlug:  r.CustomSlug,
		Clicks:      r.Clicks,
		IsActive:    r.IsActive,
		CreatedAt:   time.UnixMicro(r.CreatedAt).UTC(),
		UpdatedAt:   time.UnixMicro(r.UpdatedAt).UTC(),
	}
	if r.OwnerID.Valid {
		owner := r.OwnerID.String
		link.OwnerID = &owner
	}
	if r.ExpiresAt.Valid {
		exp := time.UnixMicro(r.ExpiresAt.Int64).UTC()
		link.ExpiresAt = &exp
	}
	return link
}

type URLRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{db: db, now: time.Now}
}

func (r *URLRepository) Create(ctx context.Context, link *domain.ShortLink) (*domain.ShortLink, error) {
	query := `
		INSERT INTO links (` + linkColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (short_code) DO NOTHING
	`

	var expiresAt sql.NullInt64
	if link.ExpiresAt != nil {
		expiresAt = sql.NullInt64{Int64: link.ExpiresAt.UnixMicro(), Valid: true}
	}
	var ownerID sql.NullString
	if link.OwnerID != nil {
		ownerID = sql.NullString{String: *link.OwnerID, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		link.ShortCode, link.OriginalURL, ownerID, link.CustomSlug, link.Clicks,
		link.IsActive, link.CreatedAt.UnixMicro(), link.UpdatedAt.UnixMicro(), expiresAt,
	)
	if err != nil {
		return nil, r.handleSQLiteError(err, "create link")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, r.handleSQLiteError(err, "create link")
	}
	if rowsAffected == 0 {
		return nil, domain.ErrShortCodeExists
	}

	slog.Debug("Link created successfully", "short_code", link.ShortCode)
	return link.Clone(), nil
}

func (r *URLRepository) FindByShortCode(ctx context.Context, shortCode string) (*domain.ShortLink, error) {
	var row linkRow
	query := `SELECT ` + linkColumns + ` FROM links WHERE short_code = ?`

	if err := r.db.GetContext(ctx, &row, query, shortCode); err != nil {
		return nil, r.handleSQLiteError(err, "find link by short code")
	}

	return row.toDomain(), nil
}

func (r *URLRepository) Exists(ctx context.Context, shortCode string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM links WHERE short_code = ?)`

	if err := r.db.GetContext(ctx, &exists, query, shortCode); err != nil {
		return false, r.handleSQLiteError(err, "check link existence")
	}

	return exists, nil
}

func (r *URLRepository) ListByOwner(ctx context.Context, ownerID string, limit int, cursor *domain.Cursor) (*domain.Page, error) {
	var (
		rows []linkRow
		err  error
	)

	if cursor == nil {
		query := `
			SELECT ` + linkColumns + ` FROM links
			WHERE owner_id = ?
			ORDER BY created_at DESC, short_code DESC
			LIMIT ?
		`
		err = r.db.SelectContext(ctx, &rows, query, ownerID, limit+1)
	} else {
		after := cursor.CreatedAt.UnixMicro()
		query := `
			SELECT ` + linkColumns + ` FROM links
			WHERE owner_id = ?
			  AND (created_at < ? OR (created_at = ? AND short_code < ?))
			ORDER BY created_at DESC, short_code DESC
			LIMIT ?
		`
		err = r.db.SelectContext(ctx, &rows, query, ownerID, after, after, cursor.ShortCode, limit+1)
	}
	if err != nil {
		return nil, r.handleSQLiteError(err, "list links by owner")
	}

	page := &domain.Page{Links: make([]*domain.ShortLink, 0, min(len(rows), limit))}
	for i, row := range rows {
		if i == limit {
			page.NextCursor = domain.CursorAfter(page.Links[limit-1])
			break
		}
		page.Links = append(page.Links, row.toDomain())
	}

	return page, nil
}

func (r *URLRepository) IncrementClicks(ctx context.Context, shortCode string) error {
	query := `UPDATE links SET clicks = clicks + 1 WHERE short_code = ?`

	result, err := r.db.ExecContext(ctx, query, shortCode)
	if err != nil {
		return r.handleSQLiteError(err, "increment clicks")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return r.handleSQLiteError(err, "increment clicks")
	}

	if rowsAffected == 0 {
		return domain.ErrURLNotFound
	}

	return nil
}

func (r *URLRepository) Update(ctx context.Context, shortCode string, update domain.LinkUpdate) (*domain.ShortLink, error) {
	query := `
		UPDATE links
		SET original_url = COALESCE(?, original_url),
		    is_active = COALESCE(?, is_active),
		    updated_at = ?
		WHERE short_code = ?
		RETURNING ` + linkColumns

	var originalURL sql.NullString
	if update.OriginalURL != nil {
		originalURL = sql.NullString{String: *update.OriginalURL, Valid: true}
	}
	var isActive sql.NullBool
	if update.IsActive != nil {
		isActive = sql.NullBool{Bool: *update.IsActive, Valid: true}
	}

	var row linkRow
	err := r.db.GetContext(ctx, &row, query,
		originalURL, isActive, r.now().UTC().UnixMicro(), shortCode,
	)
	if err != nil {
		return nil, r.handleSQLiteError(err, "update link")
	}

	return row.toDomain(), nil
}

func (r *URLRepository) Delete(ctx context.Context, shortCode string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM links WHERE short_code = ?`, shortCode); err != nil {
		return r.handleSQLiteError(err, "delete link")
	}
	return nil
}

// handleSQLiteError converts driver errors from either SQLite driver to domain errors.
func (r *URLRepository) handleSQLiteError(err error, operation string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrURLNotFound
	}

	var mattnErr mattn.Error
	if errors.As(err, &mattnErr) {
		slog.Error("SQLite error", "operation", operation, "code", int(mattnErr.Code), "extended_code", int(mattnErr.ExtendedCode))
		switch mattnErr.Code {
		case mattn.ErrConstraint:
			if mattnErr.ExtendedCode == mattn.ErrConstraintPrimaryKey || mattnErr.ExtendedCode == mattn.ErrConstraintUnique {
				return domain.ErrShortCodeExists
			}
		case mattn.ErrBusy, mattn.ErrLocked:
			return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, operation, err)
		}
		return fmt.Errorf("database error during %s: %w", operation, err)
	}

	var moderncErr *modernc.Error
	if errors.As(err, &moderncErr) {
		code := moderncErr.Code()
		slog.Error("SQLite error", "operation", operation, "extended_code", code)
		switch code {
		case sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlitelib.SQLITE_CONSTRAINT_UNIQUE:
			return domain.ErrShortCodeExists
		}
		switch code & 0xff {
		case sqlitelib.SQLITE_BUSY, sqlitelib.SQLITE_LOCKED:
			return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, operation, err)
		}
		return fmt.Errorf("database error during %s: %w", operation, err)
	}

	return err
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
