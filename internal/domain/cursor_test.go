package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_RoundTrip(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 6000, time.UTC)
	c := CursorAfter(&ShortLink{ShortCode: "abc123", CreatedAt: created})

	decoded, err := DecodeCursor(c.Encode())
	require.NoError(t, err)
	assert.True(t, created.Equal(decoded.CreatedAt))
	assert.Equal(t, "abc123", decoded.ShortCode)
}

func TestDecodeCursor(t *testing.T) {
	c, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, c, "empty token starts from the beginning")

	for _, token := range []string{"!!!", "bm90LWpzb24", "e30"} {
		_, err := DecodeCursor(token)
		assert.ErrorIs(t, err, ErrInvalidCursor, token)
		assert.True(t, IsValidation(err))
	}
}

func TestCursor_Precedes(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &Cursor{CreatedAt: base, ShortCode: "m"}

	assert.True(t, c.Precedes(&ShortLink{ShortCode: "z", CreatedAt: base.Add(-time.Second)}))
	assert.True(t, c.Precedes(&ShortLink{ShortCode: "a", CreatedAt: base}))
	assert.False(t, c.Precedes(&ShortLink{ShortCode: "m", CreatedAt: base}))
	assert.False(t, c.Precedes(&ShortLink{ShortCode: "z", CreatedAt: base}))
	assert.False(t, c.Precedes(&ShortLink{ShortCode: "a", CreatedAt: base.Add(time.Second)}))
}
