package metrics

import (
	"net/http"
	"time"
)

// MetricsPath is the default path for the metrics endpoint
const MetricsPath = "/metrics"

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(data []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(data)
}

// PrometheusMiddleware records request count, latency and in-flight gauge.
// Requests to skipPath (the scrape endpoint) are not measured.
func PrometheusMiddleware(registry Registry, skipPath string) func(http.Handler) http.Handler {
	if skipPath == "" {
		skipPath = MetricsPath
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == skipPath {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			registry.IncHTTPRequestsInFlight()
			defer registry.DecHTTPRequestsInFlight()

			ww := newResponseWriter(w)
			next.ServeHTTP(ww, r)

			registry.RecordHTTPRequest(r.Method, GetRoutePath(r), FormatStatusCode(ww.statusCode), time.Since(start).Seconds())
		})
	}
}
