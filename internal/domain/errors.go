package domain

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by the service wraps exactly one of
// these (ErrGenerationExhausted wraps two) so the transport layer can map them
// without knowing the specific cause.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrTransient  = errors.New("temporarily unavailable")
)

var (
	ErrInvalidURL          = fmt.Errorf("%w: invalid url", ErrValidation)
	ErrInvalidShortCode    = fmt.Errorf("%w: invalid short code", ErrValidation)
	ErrInvalidCursor       = fmt.Errorf("%w: invalid cursor", ErrValidation)
	ErrInvalidExpiry       = fmt.Errorf("%w: expiry must be in the future", ErrValidation)
	ErrAnonymousNotAllowed = fmt.Errorf("%w: authentication required", ErrForbidden)

	ErrShortCodeExists     = fmt.Errorf("%w: short code already exists", ErrConflict)
	ErrGenerationExhausted = fmt.Errorf("%w: %w: short code generation exhausted", ErrConflict, ErrTransient)

	ErrURLNotFound  = fmt.Errorf("%w: url not found", ErrNotFound)
	ErrLinkInactive = fmt.Errorf("%w: link is inactive", ErrNotFound)
	ErrLinkExpired  = fmt.Errorf("%w: link has expired", ErrNotFound)

	ErrNotOwner = fmt.Errorf("%w: link belongs to another owner", ErrForbidden)

	ErrStoreTimeout     = fmt.Errorf("%w: store call timed out", ErrTransient)
	ErrStoreUnavailable = fmt.Errorf("%w: store unavailable", ErrTransient)
)

// IsTransient reports whether err may succeed if retried.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

// IsValidation reports whether err was caused by malformed input.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsConflict reports whether err is a uniqueness conflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsNotFound reports whether err means the link does not exist or is not live.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsDomainError reports whether err belongs to one of the categories above.
// Repository decorators use it to tell business outcomes from infrastructure failures.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden)
}
