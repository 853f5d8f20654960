package metrics

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// GetRoutePath extracts the route pattern from the request context
// This helps group metrics by route pattern rather than specific values
func GetRoutePath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	return NormalizePath(r.URL.Path)
}

// NormalizePath collapses dynamic path segments so short codes never become label values.
func NormalizePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}

	switch {
	case path == "/health", path == "/ready", path == "/metrics", path == "/redoc":
		return path
	case path == "/api/urls" || path == "/api/urls/":
		return "/api/urls"
	case strings.HasPrefix(path, "/api/urls/"):
		return "/api/urls/{shortCode}"
	case strings.HasPrefix(path, "/swagger"):
		return "/swagger/*"
	default:
		segments := strings.Split(strings.Trim(path, "/"), "/")
		if len(segments) == 1 && segments[0] != "" {
			return "/{shortCode}"
		}
	}

	return "other"
}

// FormatStatusCode converts an integer status code to string
func FormatStatusCode(statusCode int) string {
	return strconv.Itoa(statusCode)
}
