package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sp3dr4/shortener/config"
	"github.com/sp3dr4/shortener/internal/pkg/logging"
)

type ownerKey struct{}

var (
	errMissingToken = errors.New("missing bearer token")
	errAuthDisabled = errors.New("token verification is not configured")
)

// Authenticator turns an HS256 bearer token into the request's owner id (the
// "sub" claim). It only verifies tokens; issuing them is someone else's job.
type Authenticator struct {
	secret []byte
	issuer string
}

func NewAuthenticator(cfg config.AuthConfig) *Authenticator {
	return &Authenticator{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
	}
}

// OwnerFromContext returns the authenticated owner id, if any.
func OwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ownerKey{}).(string)
	return owner, ok && owner != ""
}

// Optional authenticates requests that carry a token and lets anonymous ones through.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}
		a.authenticate(w, r, next)
	})
}

// Required rejects requests without a valid token.
func (a *Authenticator) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.authenticate(w, r, next)
	})
}

func (a *Authenticator) authenticate(w http.ResponseWriter, r *http.Request, next http.Handler) {
	owner, err := a.ownerFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		logging.FromContext(r.Context()).Info("Rejected request credentials", "error", err)
		w.Header().Set("WWW-Authenticate", `Bearer realm="shortener"`)
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	ctx := context.WithValue(r.Context(), ownerKey{}, owner)
	next.ServeHTTP(w, r.WithContext(ctx))
}

func (a *Authenticator) ownerFromHeader(header string) (string, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", errMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), &claims, func(*jwt.Token) (any, error) {
		if len(a.secret) == 0 {
			return nil, errAuthDisabled
		}
		return a.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}
