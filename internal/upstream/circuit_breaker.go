// Cinefeed - Movie Recommendation Cache and Aggregation Service
// Copyright 2026 Cinefeed contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinefeed/cinefeed

package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/cinefeed/cinefeed/internal/config"
	"github.com/cinefeed/cinefeed/internal/logging"
	"github.com/cinefeed/cinefeed/internal/metrics"
	"github.com/cinefeed/cinefeed/internal/models"
)

// CircuitBreakerClient wraps Client with circuit breaker protection.
// The breaker guards response acquisition: when the movie-info API is down
// or slow, requests fail fast instead of piling up on retries.
//
// DETERMINISM NOTE: The circuit breaker uses real time (via sony/gobreaker)
// for its interval and timeout calculations. Tests should exercise the
// wrapped client directly rather than the breaker timing.
type CircuitBreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

var _ Fetcher = (*CircuitBreakerClient)(nil)

// NewCircuitBreakerClient creates a movie-info client with circuit breaker.
// Circuit breaker configuration:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 30 second timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
func NewCircuitBreakerClient(cfg *config.UpstreamConfig) *CircuitBreakerClient {
	client := NewClient(cfg)
	cbName := "movie-info-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}

			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &CircuitBreakerClient{
		client: client,
		cb:     cb,
		name:   cbName,
	}
}

// execute wraps a movie-info API call with circuit breaker protection.
func (cbc *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbc.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	return result, nil
}

// FetchMovies collects the full movie list with circuit breaker protection.
func (cbc *CircuitBreakerClient) FetchMovies(ctx context.Context, category string) ([]models.Movie, error) {
	result, err := cbc.execute(func() (interface{}, error) {
		return cbc.client.FetchMovies(ctx, category)
	})
	if err != nil {
		return nil, err
	}
	movies, ok := result.([]models.Movie)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return movies, nil
}

// StreamMovies lazily produces movies with breaker-guarded acquisition.
// The breaker observes the response acquisition only; a decode failure
// mid-stream terminates that stream without feeding the failure counters,
// since by then the API has already proven reachable.
func (cbc *CircuitBreakerClient) StreamMovies(ctx context.Context, category string, keep func(models.Movie) bool) <-chan StreamItem {
	out := make(chan StreamItem)

	go func() {
		defer close(out)
		start := time.Now()

		sctx, cancel := context.WithTimeout(ctx, cbc.client.timeout)
		defer cancel()

		result, err := cbc.execute(func() (interface{}, error) {
			return cbc.client.doRequestWithRetry(sctx, cbc.client.moviesURL(category))
		})
		if err != nil {
			err = cbc.client.classify(err)
			recordOutcome(category, start, err)
			emitErr(ctx, out, err)
			return
		}
		resp, ok := result.(*http.Response)
		if !ok {
			emitErr(ctx, out, fmt.Errorf("circuit breaker: unexpected result type %T", result))
			return
		}
		defer resp.Body.Close()

		err = cbc.client.streamBody(ctx, sctx, resp.Body, keep, out)
		recordOutcome(category, start, err)
	}()

	return out
}

// Ping verifies connectivity with circuit breaker protection.
func (cbc *CircuitBreakerClient) Ping(ctx context.Context) error {
	_, err := cbc.execute(func() (interface{}, error) {
		return nil, cbc.client.Ping(ctx)
	})
	return err
}

// stateToFloat converts circuit breaker state to numeric value for metrics.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging.
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
