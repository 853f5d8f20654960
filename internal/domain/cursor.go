package domain

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// Cursor is the resume position of an owner listing: the sort key of the last
// link returned. Listings are ordered by CreatedAt then ShortCode, both descending.
type Cursor struct {
	CreatedAt time.Time `json:"t"`
	ShortCode string    `json:"c"`
}

// CursorAfter builds the cursor that resumes right after link.
func CursorAfter(link *ShortLink) *Cursor {
	return &Cursor{CreatedAt: link.CreatedAt, ShortCode: link.ShortCode}
}

// Encode renders the cursor as an opaque URL-safe token.
func (c *Cursor) Encode() string {
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor parses a token produced by Encode. An empty token means "from the start".
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, ErrInvalidCursor
	}
	if c.CreatedAt.IsZero() || ValidateShortCode(c.ShortCode) != nil {
		return nil, ErrInvalidCursor
	}
	return &c, nil
}

// Precedes reports whether the cursor position comes strictly before link in
// listing order, i.e. whether link belongs to a later page.
func (c *Cursor) Precedes(link *ShortLink) bool {
	if link.CreatedAt.Equal(c.CreatedAt) {
		return link.ShortCode < c.ShortCode
	}
	return link.CreatedAt.Before(c.CreatedAt)
}

// Page is one slice of an owner listing. NextCursor is nil on the last page.
type Page struct {
	Links      []*ShortLink
	NextCursor *Cursor
}
