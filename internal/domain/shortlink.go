package domain

import (
	"regexp"
	"time"
)

// MaxShortCodeLength bounds any short code, generated or custom.
const MaxShortCodeLength = 64

var shortCodeRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ShortLink maps a short code to its redirect target.
type ShortLink struct {
	ShortCode   string     `db:"short_code" json:"shortCode"`
	OriginalURL string     `db:"original_url" json:"originalUrl"`
	OwnerID     *string    `db:"owner_id" json:"ownerId,omitempty"`
	CustomSlug  bool       `db:"custom_slug" json:"customSlug"`
	Clicks      int64      `db:"clicks" json:"clicks"`
	IsActive    bool       `db:"is_active" json:"isActive"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
	ExpiresAt   *time.Time `db:"expires_at" json:"expiresAt,omitempty"`
}

// NewShortLink builds an active link with zero clicks. Timestamps are
// truncated to microseconds so every store round-trips them unchanged.
func NewShortLink(shortCode, originalURL string, ownerID *string, customSlug bool, expiresAt *time.Time, now time.Time) (*ShortLink, error) {
	if err := ValidateShortCode(shortCode); err != nil {
		return nil, err
	}
	if originalURL == "" {
		return nil, ErrInvalidURL
	}

	now = now.UTC().Truncate(time.Microsecond)
	var exp *time.Time
	if expiresAt != nil {
		t := expiresAt.UTC().Truncate(time.Microsecond)
		exp = &t
	}

	return &ShortLink{
		ShortCode:   shortCode,
		OriginalURL: originalURL,
		OwnerID:     ownerID,
		CustomSlug:  customSlug,
		Clicks:      0,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   exp,
	}, nil
}

// IsExpired reports whether the link's expiry has been reached at now.
func (l *ShortLink) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

// CheckLiveness returns nil when the link may be redirected to.
func (l *ShortLink) CheckLiveness(now time.Time) error {
	if !l.IsActive {
		return ErrLinkInactive
	}
	if l.IsExpired(now) {
		return ErrLinkExpired
	}
	return nil
}

// OwnedBy reports whether ownerID created the link. Anonymous links have no owner.
func (l *ShortLink) OwnedBy(ownerID string) bool {
	return l.OwnerID != nil && *l.OwnerID == ownerID
}

// Clone returns a deep copy so callers never share a row with a store.
func (l *ShortLink) Clone() *ShortLink {
	c := *l
	if l.OwnerID != nil {
		owner := *l.OwnerID
		c.OwnerID = &owner
	}
	if l.ExpiresAt != nil {
		exp := *l.ExpiresAt
		c.ExpiresAt = &exp
	}
	return &c
}

// ValidateShortCode checks the syntactic shape of a short code without touching a store.
func ValidateShortCode(code string) error {
	if code == "" || len(code) > MaxShortCodeLength || !shortCodeRe.MatchString(code) {
		return ErrInvalidShortCode
	}
	return nil
}

// LinkUpdate carries a partial update. Nil fields are left untouched.
type LinkUpdate struct {
	OriginalURL *string
	IsActive    *bool
}

// IsEmpty reports whether the update would change nothing.
func (u LinkUpdate) IsEmpty() bool {
	return u.OriginalURL == nil && u.IsActive == nil
}
