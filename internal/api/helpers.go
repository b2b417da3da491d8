// Cinefeed - Movie Recommendation Cache and Aggregation Service
// Copyright 2026 Cinefeed contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinefeed/cinefeed

// Package api provides the HTTP surface of the service: routing, handlers,
// and the standardized response envelope.
package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/cinefeed/cinefeed/internal/logging"
	"github.com/cinefeed/cinefeed/internal/models"
)

// Error codes returned by the API.
const (
	ErrCodeInvalidCategory     = "INVALID_CATEGORY"
	ErrCodeUpstreamTimeout     = "UPSTREAM_TIMEOUT"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeServerError         = "SERVER_ERROR"
)

// responseWriter writes envelope responses and tracks service time.
type responseWriter struct {
	w         http.ResponseWriter
	r         *http.Request
	startTime time.Time
}

func newResponseWriter(w http.ResponseWriter, r *http.Request) *responseWriter {
	return &responseWriter{
		w:         w,
		r:         r,
		startTime: time.Now(),
	}
}

// Success writes a 200 envelope. cached marks data served from the cache
// store rather than a fresh upstream fetch.
func (rw *responseWriter) Success(data interface{}, cached bool) {
	response := models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(rw.startTime).Milliseconds(),
			Cached:      cached,
		},
	}
	rw.writeJSON(http.StatusOK, response)
}

// Error writes an error envelope with the given status code.
func (rw *responseWriter) Error(statusCode int, code, message string) {
	response := models.APIResponse{
		Status: "error",
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(rw.startTime).Milliseconds(),
		},
	}
	rw.writeJSON(statusCode, response)
}

// writeJSON serializes and writes the response.
func (rw *responseWriter) writeJSON(statusCode int, response models.APIResponse) {
	rw.w.Header().Set("Content-Type", "application/json")
	rw.w.WriteHeader(statusCode)

	if err := json.NewEncoder(rw.w).Encode(response); err != nil {
		// Headers are gone at this point; log only.
		logging.Ctx(rw.r.Context()).Error().Err(err).Str("path", rw.r.URL.Path).Msg("Failed to encode API response")
	}
}
