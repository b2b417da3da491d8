// Cinefeed - Movie Recommendation Cache and Aggregation Service
// Copyright 2026 Cinefeed contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinefeed/cinefeed

// Package upstream provides the HTTP client for the movie-info API.
//
// Client Features:
//   - Exponential backoff retry around response acquisition
//   - Overall time budget per logical fetch (not per attempt)
//   - Two delivery shapes: blocking collect and lazy filtered stream
//   - Context support for cancellation
//   - Optional circuit breaker protection (see circuit_breaker.go)
//
// The retry policy covers transport failures and non-2xx statuses while
// obtaining a response; once a streaming body is being consumed, a failure
// terminates the stream with an error item instead of retrying, so the
// consumer never observes duplicated elements.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/cinefeed/cinefeed/internal/config"
	"github.com/cinefeed/cinefeed/internal/metrics"
	"github.com/cinefeed/cinefeed/internal/models"
)

// Sentinel errors for the two terminal upstream failure modes.
var (
	// ErrTimeout indicates the overall fetch exceeded its time budget,
	// regardless of retries remaining.
	ErrTimeout = errors.New("upstream fetch exceeded its time budget")

	// ErrUnavailable indicates retries were exhausted without a usable
	// response.
	ErrUnavailable = errors.New("upstream unavailable")
)

// maxErrorBodySize limits the response body read for error reporting.
// Prevents unbounded memory allocation on large error responses.
const maxErrorBodySize = 64 * 1024 // 64KB

// readBodyForError reads the response body for error reporting (max 64KB).
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// StreamItem is one element of a lazily produced movie sequence.
// A terminal failure arrives as the final item with Err set, after zero or
// more successful elements, then the channel closes.
type StreamItem struct {
	Movie models.Movie
	Err   error
}

// Fetcher defines the movie-info API operations the service consumes.
// Implemented by Client for production use, by CircuitBreakerClient when
// breaker protection is enabled, and by mocks in tests.
//
// Thread Safety: all methods are safe for concurrent use.
type Fetcher interface {
	// FetchMovies collects the full movie list for a category path segment
	// into memory before returning. An empty category fetches all movies.
	FetchMovies(ctx context.Context, category string) ([]models.Movie, error)

	// StreamMovies lazily produces movies for a category path segment.
	// Elements are decoded incrementally from the response and pass the
	// keep predicate (nil keeps everything) before the consumer observes
	// them. Production is driven by the consumer's receive.
	StreamMovies(ctx context.Context, category string, keep func(models.Movie) bool) <-chan StreamItem

	// Ping verifies connectivity to the movie-info API.
	Ping(ctx context.Context) error
}

// Client handles communication with the movie-info HTTP API.
//
// Example:
//
//	client := upstream.NewClient(&cfg.Upstream)
//	movies, err := client.FetchMovies(ctx, "")
type Client struct {
	baseURL        string
	client         *http.Client
	timeout        time.Duration // overall budget per logical fetch
	maxRetries     int           // retries after the first attempt
	retryBaseDelay time.Duration // base delay for exponential backoff
}

var _ Fetcher = (*Client)(nil)

// NewClient creates a movie-info API client from configuration.
// The overall timeout is enforced through the request context rather than
// http.Client.Timeout so it covers streamed body consumption too.
func NewClient(cfg *config.UpstreamConfig) *Client {
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		client:         &http.Client{},
		timeout:        cfg.Timeout,
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
	}
}

// moviesURL builds the request URI for a category path segment.
// An empty category yields the all-movies collection.
func (c *Client) moviesURL(category string) string {
	if category == "" {
		return c.baseURL + "/movies"
	}
	return c.baseURL + "/movies/" + url.PathEscape(category)
}

// doRequestWithRetry obtains an HTTP response, retrying transport errors
// and non-2xx statuses with exponential backoff (base, 2*base, 4*base...).
// Backoff waits are cancellable through ctx; the caller's overall deadline
// therefore caps the number of reachable attempts.
func (c *Client) doRequestWithRetry(ctx context.Context, reqURL string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if attempt > 0 {
			metrics.UpstreamRetriesTotal.Inc()
			delay := c.retryBaseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			return resp, nil
		}

		body := readBodyForError(resp.Body)
		_ = resp.Body.Close()
		lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrUnavailable, c.maxRetries+1, lastErr)
}

// classify maps low-level failures onto the sentinel error taxonomy.
// The caller's own cancellation passes through untouched so a client
// disconnect is not misreported as an upstream timeout.
func (c *Client) classify(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w (%s)", ErrTimeout, c.timeout)
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

// outcomeOf labels an error for metrics.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "unavailable"
	}
}

func recordOutcome(category string, start time.Time, err error) {
	outcome := outcomeOf(err)
	metrics.RecordUpstreamRequest(category, outcome, time.Since(start))
	if outcome == "timeout" || outcome == "unavailable" {
		metrics.UpstreamFailuresTotal.WithLabelValues(outcome).Inc()
	}
}

// FetchMovies collects the full movie list for a category into memory.
// Used by the genre path, which must materialize the list to cache it.
func (c *Client) FetchMovies(ctx context.Context, category string) ([]models.Movie, error) {
	start := time.Now()
	fctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.doRequestWithRetry(fctx, c.moviesURL(category))
	if err != nil {
		err = c.classify(err)
		recordOutcome(category, start, err)
		return nil, err
	}
	defer resp.Body.Close()

	var movies []models.Movie
	if err := json.NewDecoder(resp.Body).Decode(&movies); err != nil {
		err = c.classify(fmt.Errorf("decode response: %w", err))
		recordOutcome(category, start, err)
		return nil, err
	}

	recordOutcome(category, start, nil)
	return movies, nil
}

// StreamMovies lazily produces filtered movies for a category.
// Used by the country path: consumption and filtering happen as the caller
// receives, not eagerly, and a mid-stream failure is signaled as a terminal
// error item rather than a failure before any data is seen.
func (c *Client) StreamMovies(ctx context.Context, category string, keep func(models.Movie) bool) <-chan StreamItem {
	out := make(chan StreamItem)

	go func() {
		defer close(out)
		start := time.Now()

		sctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.doRequestWithRetry(sctx, c.moviesURL(category))
		if err != nil {
			err = c.classify(err)
			recordOutcome(category, start, err)
			emitErr(ctx, out, err)
			return
		}
		defer resp.Body.Close()

		err = c.streamBody(ctx, sctx, resp.Body, keep, out)
		recordOutcome(category, start, err)
	}()

	return out
}

// streamBody decodes a JSON array of movies incrementally and delivers the
// elements passing keep. sctx carries the overall time budget; parent is
// the caller's context, used to deliver the terminal error even after the
// budget has expired.
func (c *Client) streamBody(parent, sctx context.Context, body io.Reader, keep func(models.Movie) bool, out chan<- StreamItem) error {
	dec := json.NewDecoder(body)

	// Opening bracket of the array.
	if _, err := dec.Token(); err != nil {
		err = c.classify(fmt.Errorf("decode response: %w", err))
		emitErr(parent, out, err)
		return err
	}

	for dec.More() {
		var m models.Movie
		if err := dec.Decode(&m); err != nil {
			if sctx.Err() != nil {
				err = sctx.Err()
			}
			err = c.classify(fmt.Errorf("decode response: %w", err))
			emitErr(parent, out, err)
			return err
		}
		if keep != nil && !keep(m) {
			continue
		}
		select {
		case out <- StreamItem{Movie: m}:
		case <-sctx.Done():
			err := c.classify(sctx.Err())
			emitErr(parent, out, err)
			return err
		}
	}

	// Closing bracket. A missing one means the body was cut off and the
	// consumer must hear about it, not see a clean end of stream.
	if _, err := dec.Token(); err != nil {
		err = c.classify(fmt.Errorf("decode response: %w", err))
		emitErr(parent, out, err)
		return err
	}

	return nil
}

// emitErr delivers a terminal error item unless the consumer is gone.
func emitErr(ctx context.Context, out chan<- StreamItem, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	select {
	case out <- StreamItem{Err: err}:
	case <-ctx.Done():
	}
}

// Ping verifies connectivity to the movie-info API with a single attempt.
func (c *Client) Ping(ctx context.Context) error {
	pctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(pctx, http.MethodGet, c.moviesURL(""), http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to ping movie-info API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("movie-info API ping failed with status: %d", resp.StatusCode)
	}
	return nil
}
