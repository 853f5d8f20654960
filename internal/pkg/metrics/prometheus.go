package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sp3dr4/shortener/config"
)

// PrometheusRegistry implements the Registry interface using Prometheus metrics
type PrometheusRegistry struct {
	registry *prometheus.Registry
	config   config.MetricsConfig

	// HTTP Metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business Metrics
	linksCreatedTotal   *prometheus.CounterVec
	redirectsTotal      *prometheus.CounterVec
	codeCollisionsTotal prometheus.Counter
	clickFailuresTotal  prometheus.Counter

	// Infrastructure Metrics
	storeOperationDuration *prometheus.HistogramVec
	breakerState           prometheus.Gauge
	cacheLookupsTotal      *prometheus.CounterVec
}

// NewPrometheusRegistry creates a new Prometheus metrics registry
func NewPrometheusRegistry(cfg config.MetricsConfig) (Registry, error) {
	registry := prometheus.NewRegistry()

	httpRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{LabelMethod, LabelPath, LabelStatusCode},
	)

	httpRequestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod, LabelPath, LabelStatusCode},
	)

	httpRequestsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	linksCreatedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "links_created_total",
			Help:      "Total number of short links created, by generated or custom code",
		},
		[]string{LabelKind},
	)

	redirectsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "redirects_total",
			Help:      "Total number of redirect resolutions by outcome",
		},
		[]string{LabelOutcome},
	)

	codeCollisionsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "code_collisions_total",
			Help:      "Generated short codes rejected because they were already taken",
		},
	)

	clickFailuresTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "click_record_failures_total",
			Help:      "Click increments abandoned after retries",
		},
	)

	storeOperationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "store_operation_duration_seconds",
			Help:      "Record store call duration in seconds",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{LabelOperation, LabelStatus},
	)

	breakerState := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "store_breaker_state",
			Help:      "Record store circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
	)

	cacheLookupsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_lookups_total",
			Help:      "Redirect cache lookups by result",
		},
		[]string{LabelResult},
	)

	metricsCollectors := []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDuration,
		httpRequestsInFlight,
		linksCreatedTotal,
		redirectsTotal,
		codeCollisionsTotal,
		clickFailuresTotal,
		storeOperationDuration,
		breakerState,
		cacheLookupsTotal,
	}

	for _, collector := range metricsCollectors {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}

	if cfg.CollectRuntime {
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	return &PrometheusRegistry{
		registry:               registry,
		config:                 cfg,
		httpRequestsTotal:      httpRequestsTotal,
		httpRequestDuration:    httpRequestDuration,
		httpRequestsInFlight:   httpRequestsInFlight,
		linksCreatedTotal:      linksCreatedTotal,
		redirectsTotal:         redirectsTotal,
		codeCollisionsTotal:    codeCollisionsTotal,
		clickFailuresTotal:     clickFailuresTotal,
		storeOperationDuration: storeOperationDuration,
		breakerState:           breakerState,
		cacheLookupsTotal:      cacheLookupsTotal,
	}, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration
func (p *PrometheusRegistry) RecordHTTPRequest(method, path, statusCode string, duration float64) {
	labels := prometheus.Labels{
		LabelMethod:     method,
		LabelPath:       path,
		LabelStatusCode: statusCode,
	}
	p.httpRequestsTotal.With(labels).Inc()
	p.httpRequestDuration.With(labels).Observe(duration)
}

func (p *PrometheusRegistry) IncHTTPRequestsInFlight() {
	p.httpRequestsInFlight.Inc()
}

func (p *PrometheusRegistry) DecHTTPRequestsInFlight() {
	p.httpRequestsInFlight.Dec()
}

// IncLinksCreated counts a created link; kind is KindGenerated or KindCustom.
func (p *PrometheusRegistry) IncLinksCreated(kind string) {
	p.linksCreatedTotal.WithLabelValues(kind).Inc()
}

// IncRedirects counts a resolution attempt by its Outcome* value.
func (p *PrometheusRegistry) IncRedirects(outcome string) {
	p.redirectsTotal.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRegistry) IncCodeCollisions() {
	p.codeCollisionsTotal.Inc()
}

func (p *PrometheusRegistry) IncClickRecordFailures() {
	p.clickFailuresTotal.Inc()
}

// RecordStoreOperation observes one record store call.
func (p *PrometheusRegistry) RecordStoreOperation(operation, status string, duration float64) {
	p.storeOperationDuration.WithLabelValues(operation, status).Observe(duration)
}

func (p *PrometheusRegistry) SetBreakerState(state BreakerState) {
	p.breakerState.Set(float64(state))
}

func (p *PrometheusRegistry) IncCacheLookups(result string) {
	p.cacheLookupsTotal.WithLabelValues(result).Inc()
}

// GetRegistry returns the underlying Prometheus registry
func (p *PrometheusRegistry) GetRegistry() *prometheus.Registry {
	return p.registry
}

// GetHandler returns an HTTP handler for the metrics endpoint
func (p *PrometheusRegistry) GetHandler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
