// Cinefeed - Movie Recommendation Cache and Aggregation Service
// Copyright 2026 Cinefeed contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinefeed/cinefeed

package models

import "time"

// APIResponse is the uniform envelope for all JSON endpoints.
//
// Success:
//
//	{
//	  "status": "success",
//	  "data": [...],
//	  "metadata": {"timestamp": "2026-09-01T12:00:00Z", "cached": true}
//	}
//
// Error:
//
//	{
//	  "status": "error",
//	  "error": {"code": "INVALID_CATEGORY", "message": "unknown genre"},
//	  "metadata": {"timestamp": "2026-09-01T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries per-response observability fields.
//
// Cached is set when the genre endpoint served the movie snapshot from the
// cache store rather than a fresh upstream fetch; QueryTimeMS is the
// end-to-end service time for the request in milliseconds.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError is a structured error payload.
//
// Codes used by this service:
//   - INVALID_CATEGORY: path parameter is not a known genre/country
//   - UPSTREAM_TIMEOUT: upstream fetch exceeded its time budget
//   - UPSTREAM_UNAVAILABLE: upstream retries exhausted
//   - METHOD_NOT_ALLOWED, SERVER_ERROR: transport-level conditions
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus reports service health for the readiness endpoint.
type HealthStatus struct {
	Status            string  `json:"status"`
	Version           string  `json:"version"`
	UpstreamConnected bool    `json:"upstream_connected"`
	CacheConnected    bool    `json:"cache_connected"`
	Uptime            float64 `json:"uptime_seconds"`
}
