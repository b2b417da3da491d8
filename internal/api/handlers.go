// Cinefeed - Movie Recommendation Cache and Aggregation Service
// Copyright 2026 Cinefeed contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinefeed/cinefeed

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/cinefeed/cinefeed/internal/logging"
	"github.com/cinefeed/cinefeed/internal/models"
	"github.com/cinefeed/cinefeed/internal/taxonomy"
	"github.com/cinefeed/cinefeed/internal/upstream"
)

// Recommender answers the two recommendation queries.
// Satisfied by *recommend.Service; mocked in handler tests.
type Recommender interface {
	MoviesByGenre(ctx context.Context, genre taxonomy.Genre) ([]models.Movie, bool, error)
	MoviesByCountry(ctx context.Context, country taxonomy.Country) <-chan upstream.StreamItem
}

// Pinger reports connectivity of a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for all HTTP handlers.
type Handler struct {
	recommender Recommender
	upstream    Pinger
	cache       Pinger
	version     string
	startTime   time.Time
}

// NewHandler creates the API handler set.
func NewHandler(recommender Recommender, upstreamPing, cachePing Pinger, version string) *Handler {
	return &Handler{
		recommender: recommender,
		upstream:    upstreamPing,
		cache:       cachePing,
		version:     version,
		startTime:   time.Now(),
	}
}

// MoviesByGenre handles GET /api/v1/movies/genre/{genre}.
// Responds with the full filtered list in one envelope; the cached flag in
// the metadata tells the client whether a fresh upstream fetch happened.
func (h *Handler) MoviesByGenre(w http.ResponseWriter, r *http.Request) {
	rw := newResponseWriter(w, r)

	genre, err := taxonomy.ParseGenre(chi.URLParam(r, "genre"))
	if err != nil {
		status, code, msg := mapError(err)
		rw.Error(status, code, msg)
		return
	}

	movies, cached, err := h.recommender.MoviesByGenre(r.Context(), genre)
	if err != nil {
		status, code, msg := mapError(err)
		logging.Ctx(r.Context()).Error().Err(err).Str("genre", genre.String()).Msg("Genre query failed")
		rw.Error(status, code, msg)
		return
	}

	logging.Ctx(r.Context()).Debug().Str("genre", genre.String()).Int("count", len(movies)).Bool("cached", cached).Msg("Genre query served")
	rw.Success(movies, cached)
}

// streamRecord is one line of the country NDJSON stream. Exactly one of
// Movie or Error is set per line.
type streamRecord struct {
	Movie *models.Movie    `json:"movie,omitempty"`
	Error *models.APIError `json:"error,omitempty"`
}

// MoviesByCountry handles GET /api/v1/movies/country/{country}.
// The response is application/x-ndjson: one movie per line, flushed as
// produced, so the client sees elements before the upstream response is
// fully consumed. A failure after the stream has started is reported as a
// terminal error line, since the status code is already committed.
func (h *Handler) MoviesByCountry(w http.ResponseWriter, r *http.Request) {
	rw := newResponseWriter(w, r)

	country, err := taxonomy.ParseCountry(chi.URLParam(r, "country"))
	if err != nil {
		status, code, msg := mapError(err)
		rw.Error(status, code, msg)
		return
	}

	items := h.recommender.MoviesByCountry(r.Context(), country)

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	headerWritten := false
	count := 0

	for item := range items {
		if item.Err != nil {
			if !headerWritten {
				// Nothing sent yet; a clean error status is still possible.
				status, code, msg := mapError(item.Err)
				logging.Ctx(r.Context()).Error().Err(item.Err).Str("country", country.String()).Msg("Country stream failed before first element")
				rw.Error(status, code, msg)
				return
			}
			_, code, msg := mapError(item.Err)
			logging.Ctx(r.Context()).Error().Err(item.Err).Str("country", country.String()).Int("streamed", count).Msg("Country stream terminated")
			_ = enc.Encode(streamRecord{Error: &models.APIError{Code: code, Message: msg}})
			if flusher != nil {
				flusher.Flush()
			}
			return
		}

		if !headerWritten {
			w.Header().Set("Content-Type", "application/x-ndjson")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.WriteHeader(http.StatusOK)
			headerWritten = true
		}

		movie := item.Movie
		if err := enc.Encode(streamRecord{Movie: &movie}); err != nil {
			// Client is gone; stop consuming.
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Country stream write failed, client disconnected")
			return
		}
		count++
		if flusher != nil {
			flusher.Flush()
		}
	}

	if !headerWritten {
		// Empty result still delivers a valid, empty NDJSON body.
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.WriteHeader(http.StatusOK)
	}
	logging.Ctx(r.Context()).Debug().Str("country", country.String()).Int("count", count).Msg("Country stream served")
}
