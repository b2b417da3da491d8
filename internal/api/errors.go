// Cinefeed - Movie Recommendation Cache and Aggregation Service
// Copyright 2026 Cinefeed contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinefeed/cinefeed

package api

import (
	"errors"
	"net/http"

	"github.com/cinefeed/cinefeed/internal/taxonomy"
	"github.com/cinefeed/cinefeed/internal/upstream"
)

// mapError translates a domain error into an HTTP status, error code and
// client-safe message.
func mapError(err error) (int, string, string) {
	var invalid *taxonomy.InvalidCategoryError

	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest, ErrCodeInvalidCategory, invalid.Error()
	case errors.Is(err, upstream.ErrTimeout):
		return http.StatusGatewayTimeout, ErrCodeUpstreamTimeout, "movie information service did not respond in time"
	case errors.Is(err, upstream.ErrUnavailable):
		return http.StatusBadGateway, ErrCodeUpstreamUnavailable, "movie information service is unavailable"
	default:
		return http.StatusInternalServerError, ErrCodeServerError, "internal server error"
	}
}
