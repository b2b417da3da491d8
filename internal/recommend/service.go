// Cinefeed - Movie Recommendation Cache and Aggregation Service
// Copyright 2026 Cinefeed contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinefeed/cinefeed

// Package recommend implements the two movie recommendation flows.
//
// The genre flow is cache-backed: the full movie list is served from Redis
// when present, fetched from the movie-info API and cached on a miss, then
// filtered in memory. The country flow bypasses the cache entirely and
// forwards a lazily filtered stream from the API.
package recommend

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/cinefeed/cinefeed/internal/cache"
	"github.com/cinefeed/cinefeed/internal/logging"
	"github.com/cinefeed/cinefeed/internal/metrics"
	"github.com/cinefeed/cinefeed/internal/models"
	"github.com/cinefeed/cinefeed/internal/taxonomy"
	"github.com/cinefeed/cinefeed/internal/upstream"
)

// CacheKey is the single cache entry the genre flow reads and writes.
// Every genre query shares it: the cached value is the unfiltered movie
// list, and filtering happens per request after the lookup.
const CacheKey = "movies:"

// Service answers movie recommendation queries.
//
// Thread Safety: safe for concurrent use.
type Service struct {
	fetcher upstream.Fetcher
	store   cache.Store
	ttl     time.Duration

	// group deduplicates concurrent fetches on a cache miss when
	// single-flight mode is enabled. Nil means every miss fetches
	// independently.
	group *singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithSingleFlight collapses concurrent cache-miss fetches into one
// upstream request whose result all waiters share.
func WithSingleFlight() Option {
	return func(s *Service) {
		s.group = &singleflight.Group{}
	}
}

// New creates a recommendation service. ttl bounds the lifetime of the
// cached movie list.
func New(fetcher upstream.Fetcher, store cache.Store, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		fetcher: fetcher,
		store:   store,
		ttl:     ttl,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MoviesByGenre returns the movies matching genre, in upstream order.
// The full list comes from the cache when possible; a miss triggers a
// blocking fetch of all movies, a best-effort cache fill, then filtering.
// The boolean reports whether the response was served from cache.
func (s *Service) MoviesByGenre(ctx context.Context, genre taxonomy.Genre) ([]models.Movie, bool, error) {
	movies, found, err := s.store.Get(ctx, CacheKey)
	if err != nil {
		// A broken cache degrades to a fetch, never to a failed query.
		logging.Ctx(ctx).Warn().Err(err).Msg("Cache read failed, falling back to upstream")
	}
	if found {
		metrics.CacheHitsTotal.Inc()
		return filterByGenre(movies, genre), true, nil
	}
	metrics.CacheMissesTotal.Inc()

	movies, err = s.fetchAll(ctx)
	if err != nil {
		return nil, false, err
	}

	s.fillCache(ctx, movies)

	return filterByGenre(movies, genre), false, nil
}

// fetchAll retrieves the full movie list, deduplicating concurrent callers
// when single-flight mode is enabled.
func (s *Service) fetchAll(ctx context.Context) ([]models.Movie, error) {
	if s.group == nil {
		return s.fetcher.FetchMovies(ctx, "")
	}

	result, err, shared := s.group.Do(CacheKey, func() (interface{}, error) {
		return s.fetcher.FetchMovies(ctx, "")
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logging.Ctx(ctx).Debug().Msg("Shared in-flight upstream fetch")
	}
	return result.([]models.Movie), nil
}

// fillCache writes the fetched list with an absent-only set so concurrent
// fillers cannot extend the TTL of an existing entry. Failures are logged
// and counted but never surfaced: the caller already holds the data.
func (s *Service) fillCache(ctx context.Context, movies []models.Movie) {
	stored, err := s.store.SetIfAbsent(ctx, CacheKey, movies, s.ttl)
	switch {
	case err != nil:
		metrics.CacheWriteFailuresTotal.Inc()
		logging.Ctx(ctx).Warn().Err(err).Msg("Cache write failed, serving fetched data uncached")
	case stored:
		metrics.CacheWritesTotal.WithLabelValues("stored").Inc()
	default:
		metrics.CacheWritesTotal.WithLabelValues("lost_race").Inc()
	}
}

// filterByGenre keeps the movies tagged with the genre's matching token,
// preserving their relative order.
func filterByGenre(movies []models.Movie, genre taxonomy.Genre) []models.Movie {
	token := genre.MatchToken()
	filtered := make([]models.Movie, 0, len(movies))
	for _, m := range movies {
		if m.HasGenre(token) {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// MoviesByCountry returns a lazily produced stream of movies tagged with
// the country's display token. Nothing is fetched until the consumer
// starts receiving, and the cache is never consulted.
func (s *Service) MoviesByCountry(ctx context.Context, country taxonomy.Country) <-chan upstream.StreamItem {
	token := country.MatchToken()
	return s.fetcher.StreamMovies(ctx, string(country), func(m models.Movie) bool {
		return m.HasCountry(token)
	})
}
