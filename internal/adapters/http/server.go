package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpswagger "github.com/swaggo/http-swagger"

	"github.com/sp3dr4/shortener/config"
	"github.com/sp3dr4/shortener/internal/pkg/metrics"
)

func NewRouter(handlers *Handlers, auth *Authenticator, logger *slog.Logger, cfg *config.Config, metricsRegistry metrics.Registry) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(logger))
	r.Use(metrics.PrometheusMiddleware(metricsRegistry, cfg.Metrics.Path))
	r.Use(middleware.Recoverer)

	r.Get("/health", handlers.HandleHealth)
	r.Get("/ready", handlers.HandleReady)

	if cfg.Metrics.Enabled && metricsRegistry.GetHandler() != nil {
		r.Handle(cfg.Metrics.Path, metricsRegistry.GetHandler())
	}

	r.Get("/swagger/*", httpswagger.Handler(
		httpswagger.URL(cfg.App.BaseURL+"/swagger/doc.json"),
	))
	r.Get("/redoc", handleRedoc)

	r.Route("/api/urls", func(r chi.Router) {
		r.With(auth.Optional).Post("/", handlers.HandleCreateURL)
		r.Get("/{shortCode}", handlers.HandleGetURL)

		r.Group(func(r chi.Router) {
			r.Use(auth.Required)
			r.Get("/", handlers.HandleListURLs)
			r.Put("/{shortCode}", handlers.HandleUpdateURL)
			r.Delete("/{shortCode}", handlers.HandleDeleteURL)
		})
	})

	r.Get("/{shortCode}", handlers.HandleRedirect)

	return r
}

func handleRedoc(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	redocHTML := `<!DOCTYPE html>
<html>
<head>
    <title>Shortener API Documentation - Redoc</title>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <style>
        body {
            margin: 0;
            padding: 0;
        }
    </style>
</head>
<body>
    <redoc spec-url='/swagger/doc.json'></redoc>
    <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
</body>
</html>`
	_, _ = w.Write([]byte(redocHTML))
}
