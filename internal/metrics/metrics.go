// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "holly_cache_lookups_total",
		Help: "Cache lookups by result (hit, miss, corrupt)",
	}, []string{"result"})

	CacheWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "holly_cache_write_failures_total",
		Help: "Cache entries that could not be written",
	})

	SynthesisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "holly_synthesis_duration_seconds",
		Help:    "Backend synthesis latency",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 20.0, 30.0},
	}, []string{"engine"})

	SynthesisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "holly_synthesis_errors_total",
		Help: "Synthesis errors by engine and error code",
	}, []string{"engine", "code"})

	Fallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "holly_fallback_total",
		Help: "Placeholder audio returned instead of speech",
	}, []string{"engine"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "holly_http_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"route", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "holly_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	}, []string{"route"})
)

// Cache lookup results.
const (
	LookupHit     = "hit"
	LookupMiss    = "miss"
	LookupCorrupt = "corrupt"
)
