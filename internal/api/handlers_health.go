// Cinefeed - Movie Recommendation Cache and Aggregation Service
// Copyright 2026 Cinefeed contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinefeed/cinefeed

package api

import (
	"net/http"
	"time"

	"github.com/cinefeed/cinefeed/internal/models"
)

// Health handles health check requests.
// Reports connectivity of both backing dependencies; the service is
// degraded, not down, when either is unreachable, because the genre path
// still works without the cache and cached data still serves without the
// upstream.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := newResponseWriter(w, r)

	upstreamConnected := h.upstream != nil && h.upstream.Ping(r.Context()) == nil
	cacheConnected := h.cache != nil && h.cache.Ping(r.Context()) == nil

	status := "healthy"
	if !upstreamConnected || !cacheConnected {
		status = "degraded"
	}

	health := models.HealthStatus{
		Status:            status,
		Version:           h.version,
		UpstreamConnected: upstreamConnected,
		CacheConnected:    cacheConnected,
		Uptime:            time.Since(h.startTime).Seconds(),
	}

	rw.Success(health, false)
}

// HealthLive handles liveness probe requests (Kubernetes-style).
// Returns 200 OK if the process is alive, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	rw := newResponseWriter(w, r)
	rw.Success(map[string]string{"status": "alive"}, false)
}

// HealthReady handles readiness probe requests (Kubernetes-style).
// Ready requires the movie-info API to be reachable; the cache is
// optional since the service degrades gracefully without it.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := newResponseWriter(w, r)

	if h.upstream == nil || h.upstream.Ping(r.Context()) != nil {
		rw.Error(http.StatusServiceUnavailable, ErrCodeUpstreamUnavailable, "movie information service is unreachable")
		return
	}

	rw.Success(map[string]string{"status": "ready"}, false)
}
