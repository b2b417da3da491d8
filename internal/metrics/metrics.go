// Cinefeed - Movie Recommendation Cache and Aggregation Service
// Copyright 2026 Cinefeed contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinefeed/cinefeed

// Package metrics provides Prometheus instrumentation for:
//   - API endpoint latency and throughput
//   - Upstream movie-info API calls, retries, and failures
//   - Cache efficiency (hits, misses, best-effort write outcomes)
//   - Circuit breaker state
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinefeed_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinefeed_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cinefeed_api_active_requests",
			Help: "Number of API requests currently in flight",
		},
	)

	// Upstream Metrics
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinefeed_upstream_request_duration_seconds",
			Help:    "Duration of upstream movie-info API fetches in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
		},
		[]string{"category", "outcome"}, // outcome: "success", "timeout", "unavailable"
	)

	UpstreamRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinefeed_upstream_retries_total",
			Help: "Total number of upstream request retry attempts",
		},
	)

	UpstreamFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinefeed_upstream_failures_total",
			Help: "Total number of failed upstream fetches by reason",
		},
		[]string{"reason"}, // "timeout", "unavailable"
	)

	// Cache Metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinefeed_cache_hits_total",
			Help: "Total number of cache hits on the movie snapshot",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinefeed_cache_misses_total",
			Help: "Total number of cache misses on the movie snapshot",
		},
	)

	// Cache writes are best-effort; failures never surface to callers,
	// so this counter is the only place they become visible.
	CacheWriteFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinefeed_cache_write_failures_total",
			Help: "Total number of failed best-effort cache writes",
		},
	)

	CacheWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinefeed_cache_writes_total",
			Help: "Total number of conditional cache writes by outcome",
		},
		[]string{"outcome"}, // "stored", "lost_race"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cinefeed_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinefeed_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinefeed_circuit_breaker_requests_total",
			Help: "Total number of requests through the circuit breaker by result",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)
)

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, path, status string, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	APIRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(active bool) {
	if active {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordUpstreamRequest records one upstream fetch with its outcome.
func RecordUpstreamRequest(category, outcome string, duration time.Duration) {
	if category == "" {
		category = "all"
	}
	UpstreamRequestDuration.WithLabelValues(category, outcome).Observe(duration.Seconds())
}
