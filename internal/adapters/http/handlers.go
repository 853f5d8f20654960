package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/sp3dr4/shortener/internal/application"
	"github.com/sp3dr4/shortener/internal/domain"
	"github.com/sp3dr4/shortener/internal/pkg/logging"
)

const maxBodyBytes = 1 << 20

type Handlers struct {
	service  *application.LinkService
	resolver *application.Resolver
	repo     domain.LinkRepository
	cache    domain.Cache
}

func NewHandlers(service *application.LinkService, resolver *application.Resolver, repo domain.LinkRepository, cache domain.Cache) *Handlers {
	return &Handlers{
		service:  service,
		resolver: resolver,
		repo:     repo,
		cache:    cache,
	}
}

// HandleHealth handles the health check endpoint.
//
//	@Summary		Health check endpoint
//	@Description	Check if the service is running
//	@Tags			health
//	@Produce		plain
//	@Success		200	{string}	string	"OK"
//	@Router			/health [get]
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// HandleReady handles the readiness check endpoint.
//
//	@Summary		Readiness check endpoint
//	@Description	Check that the record store and the cache answer
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	object{status=string,timestamp=string}	"Service is ready"
//	@Failure		503	{object}	ErrorResponse							"Service is not ready"
//	@Router			/ready [get]
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := h.repo.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database unavailable: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := h.cache.Ping(ctx); err != nil {
			return fmt.Errorf("cache unavailable: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logging.FromContext(r.Context()).Error("Readiness check failed", "error", err)
		respondWithError(w, http.StatusServiceUnavailable, "Service not ready: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":    "ready",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleCreateURL handles the URL shortening endpoint.
//
//	@Summary		Create a short URL
//	@Description	Create a short link, optionally with a custom slug and an expiry. Anonymous creation can be disabled.
//	@Tags			urls
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		application.CreateURLRequest	true	"URL to shorten"
//	@Success		201		{object}	application.LinkResponse		"Successfully created short URL"
//	@Failure		400		{object}	ValidationErrorResponse			"Invalid request or validation error"
//	@Failure		401		{object}	ErrorResponse					"Authentication required"
//	@Failure		409		{object}	ErrorResponse					"Short code already exists or could not be allocated"
//	@Failure		503		{object}	ErrorResponse					"Temporarily unavailable"
//	@Router			/api/urls [post]
func (h *Handlers) HandleCreateURL(w http.ResponseWriter, r *http.Request) {
	var req application.CreateURLRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var ownerID *string
	if owner, ok := OwnerFromContext(r.Context()); ok {
		ownerID = &owner
	}

	resp, err := h.service.CreateURL(r.Context(), req, ownerID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to create short URL")
		return
	}

	w.Header().Set("Location", "/api/urls/"+resp.ShortCode)
	respondWithJSON(w, http.StatusCreated, resp)
}

// HandleListURLs lists the caller's links.
//
//	@Summary		List my short URLs
//	@Description	Page through the authenticated owner's links, newest first
//	@Tags			urls
//	@Produce		json
//	@Security		BearerAuth
//	@Param			limit	query		int		false	"Page size (default 20, max 100)"
//	@Param			cursor	query		string	false	"Cursor from the previous page"
//	@Success		200		{object}	application.ListResponse
//	@Failure		400		{object}	ErrorResponse	"Invalid limit or cursor"
//	@Failure		401		{object}	ErrorResponse	"Authentication required"
//	@Router			/api/urls [get]
func (h *Handlers) HandleListURLs(w http.ResponseWriter, r *http.Request) {
	owner, _ := OwnerFromContext(r.Context())

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	resp, err := h.service.ListURLs(r.Context(), owner, limit, r.URL.Query().Get("cursor"))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list URLs")
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// HandleGetURL returns a link's metadata.
//
//	@Summary		Get a short URL
//	@Description	Return a link's metadata, including inactive and expired links
//	@Tags			urls
//	@Produce		json
//	@Param			shortCode	path		string	true	"Short code"
//	@Success		200			{object}	application.LinkResponse
//	@Failure		404			{object}	ErrorResponse	"Short URL not found"
//	@Router			/api/urls/{shortCode} [get]
func (h *Handlers) HandleGetURL(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.GetURL(r.Context(), chi.URLParam(r, "shortCode"))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get URL")
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// HandleUpdateURL changes a link's target or active flag.
//
//	@Summary		Update a short URL
//	@Description	Change the target and/or active flag of a link the caller owns
//	@Tags			urls
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			shortCode	path		string						true	"Short code"
//	@Param			request		body		application.UpdateURLRequest	true	"Fields to change"
//	@Success		200			{object}	application.LinkResponse
//	@Failure		400			{object}	ValidationErrorResponse	"Validation error"
//	@Failure		401			{object}	ErrorResponse			"Authentication required"
//	@Failure		403			{object}	ErrorResponse			"Not the owner"
//	@Failure		404			{object}	ErrorResponse			"Short URL not found"
//	@Router			/api/urls/{shortCode} [put]
func (h *Handlers) HandleUpdateURL(w http.ResponseWriter, r *http.Request) {
	var req application.UpdateURLRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	owner, _ := OwnerFromContext(r.Context())
	resp, err := h.service.UpdateURL(r.Context(), chi.URLParam(r, "shortCode"), req, owner)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to update URL")
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// HandleDeleteURL removes a link.
//
//	@Summary		Delete a short URL
//	@Description	Delete a link the caller owns. Deleting an unknown code succeeds.
//	@Tags			urls
//	@Produce		json
//	@Security		BearerAuth
//	@Param			shortCode	path		string	true	"Short code"
//	@Success		200			{object}	DeleteResponse
//	@Failure		401			{object}	ErrorResponse	"Authentication required"
//	@Failure		403			{object}	ErrorResponse	"Not the owner"
//	@Router			/api/urls/{shortCode} [delete]
func (h *Handlers) HandleDeleteURL(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")
	owner, _ := OwnerFromContext(r.Context())

	if err := h.service.DeleteURL(r.Context(), shortCode, owner); err != nil {
		respondWithServiceError(w, r, err, "Failed to delete URL")
		return
	}

	respondWithJSON(w, http.StatusOK, DeleteResponse{Message: "URL deleted", ShortCode: shortCode})
}

// HandleRedirect handles the redirect endpoint.
//
//	@Summary		Redirect to original URL
//	@Description	Redirect to the original URL using the short code and count the click
//	@Tags			urls
//	@Param			shortCode	path	string	true	"Short code"
//	@Success		302			"Redirect to original URL"
//	@Failure		404			{object}	ErrorResponse	"Short URL not found, inactive or expired"
//	@Failure		503			{object}	ErrorResponse	"Temporarily unavailable"
//	@Router			/{shortCode} [get]
func (h *Handlers) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	target, err := h.resolver.Resolve(r.Context(), shortCode)
	if err != nil {
		// malformed codes are indistinguishable from unknown ones here
		if domain.IsValidation(err) {
			err = domain.ErrURLNotFound
		}
		respondWithServiceError(w, r, err, "Failed to resolve URL")
		return
	}

	logging.FromContext(r.Context()).Debug("Redirecting", "short_code", shortCode, "original_url", target)
	http.Redirect(w, r, target, http.StatusFound)
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error" example:"URL not found"`
}

// ValidationErrorResponse represents a validation error response.
type ValidationErrorResponse struct {
	Details map[string]string `json:"details"`
	Error   string            `json:"error" example:"Validation failed"`
}

// DeleteResponse confirms a deletion.
type DeleteResponse struct {
	Message   string `json:"message" example:"URL deleted"`
	ShortCode string `json:"shortCode" example:"aB3xY9z"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logging.FromContext(r.Context()).Info("Failed to decode request", "error", err)
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

// respondWithServiceError maps the domain error categories onto status codes.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrors):
		handleValidationError(w, validationErrors)
	case errors.Is(err, domain.ErrInvalidExpiry):
		respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Error:   "Validation failed",
			Details: map[string]string{"expiresAt": "expiresAt must be in the future"},
		})
	case errors.Is(err, domain.ErrAnonymousNotAllowed):
		w.Header().Set("WWW-Authenticate", `Bearer realm="shortener"`)
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, domain.ErrGenerationExhausted):
		logging.FromContext(r.Context()).Error("Short code generation exhausted", "error", err)
		w.Header().Set("Retry-After", "1")
		respondWithError(w, http.StatusConflict, "Could not allocate a short code, please retry")
	case errors.Is(err, domain.ErrInvalidCursor):
		respondWithError(w, http.StatusBadRequest, "Invalid cursor")
	case domain.IsValidation(err):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case domain.IsConflict(err):
		respondWithError(w, http.StatusConflict, "Short code already exists")
	case domain.IsNotFound(err):
		respondWithError(w, http.StatusNotFound, "URL not found")
	case errors.Is(err, domain.ErrForbidden):
		respondWithError(w, http.StatusForbidden, "You do not own this URL")
	case domain.IsTransient(err):
		logging.FromContext(r.Context()).Warn("Store temporarily unavailable", "error", err)
		w.Header().Set("Retry-After", "1")
		respondWithError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		logging.FromContext(r.Context()).Error(fallback, "error", err)
		respondWithError(w, http.StatusInternalServerError, fallback)
	}
}

func handleValidationError(w http.ResponseWriter, validationErrors validator.ValidationErrors) {
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		// Field() is already the JSON name; the validator is built with a tag name func.
		field := e.Field()
		switch e.Tag() {
		case "required":
			errorMessages[field] = fmt.Sprintf("%s is required", field)
		case "url", "http_url":
			errorMessages[field] = fmt.Sprintf("%s must be a valid http or https URL", field)
		case "slug":
			errorMessages[field] = fmt.Sprintf("%s must use letters, digits, '-' or '_', fit the allowed length and not be a reserved word", field)
		case "min":
			errorMessages[field] = fmt.Sprintf("%s must be at least %s characters long", field, e.Param())
		case "max":
			errorMessages[field] = fmt.Sprintf("%s must be at most %s characters long", field, e.Param())
		default:
			errorMessages[field] = fmt.Sprintf("%s is invalid", field)
		}
	}

	respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
		Error:   "Validation failed",
		Details: errorMessages,
	})
}
