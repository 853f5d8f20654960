package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry defines the interface for metrics collection
type Registry interface {
	// HTTP Metrics
	RecordHTTPRequest(method, path, statusCode string, duration float64)
	IncHTTPRequestsInFlight()
	DecHTTPRequestsInFlight()

	// Business Metrics
	IncLinksCreated(kind string)
	IncRedirects(outcome string)
	IncCodeCollisions()
	IncClickRecordFailures()

	// Infrastructure Metrics
	RecordStoreOperation(operation, status string, duration float64)
	SetBreakerState(state BreakerState)
	IncCacheLookups(result string)

	// Prometheus-specific methods
	GetRegistry() *prometheus.Registry
	GetHandler() http.Handler
}

// NoOpRegistry provides a no-op implementation for when metrics are disabled
type NoOpRegistry struct{}

func NewNoOpRegistry() Registry {
	return &NoOpRegistry{}
}

func (n *NoOpRegistry) RecordHTTPRequest(method, path, statusCode string, duration float64) {}
func (n *NoOpRegistry) IncHTTPRequestsInFlight()                                            {}
func (n *NoOpRegistry) DecHTTPRequestsInFlight()                                            {}
func (n *NoOpRegistry) IncLinksCreated(kind string)                                         {}
func (n *NoOpRegistry) IncRedirects(outcome string)                                         {}
func (n *NoOpRegistry) IncCodeCollisions()                                                  {}
func (n *NoOpRegistry) IncClickRecordFailures()                                             {}
func (n *NoOpRegistry) RecordStoreOperation(operation, status string, duration float64)     {}
func (n *NoOpRegistry) SetBreakerState(state BreakerState)                                  {}
func (n *NoOpRegistry) IncCacheLookups(result string)                                       {}
func (n *NoOpRegistry) GetRegistry() *prometheus.Registry                                   { return nil }
func (n *NoOpRegistry) GetHandler() http.Handler                                            { return nil }

// BreakerState mirrors the circuit breaker states as gauge values.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerHalfOpen
	BreakerOpen
)

// Common label names as constants
const (
	LabelMethod     = "method"
	LabelPath       = "path"
	LabelStatusCode = "status_code"
	LabelOperation  = "operation"
	LabelStatus     = "status"
	LabelKind       = "kind"
	LabelOutcome    = "outcome"
	LabelResult     = "result"
)

// Label values shared by the service and its adapters.
const (
	KindGenerated = "generated"
	KindCustom    = "custom"

	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeInactive = "inactive"
	OutcomeExpired  = "expired"
	OutcomeError    = "error"

	StatusOK    = "ok"
	StatusError = "error"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)
