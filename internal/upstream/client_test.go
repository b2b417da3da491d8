// Cinefeed - Movie Recommendation Cache and Aggregation Service
// Copyright 2026 Cinefeed contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinefeed/cinefeed

package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cinefeed/cinefeed/internal/config"
	"github.com/cinefeed/cinefeed/internal/models"
)

const moviesJSON = `[
	{"title":"올드보이","genre":["드라마","액션"],"country":["대한민국"]},
	{"title":"다크 나이트","genre":["액션"],"country":["미국"]},
	{"title":"장화, 홍련","genre":["공포"],"country":["대한민국"]}
]`

func testConfig(baseURL string) *config.UpstreamConfig {
	return &config.UpstreamConfig{
		BaseURL:        baseURL,
		Timeout:        2 * time.Second,
		MaxRetries:     3,
		RetryBaseDelay: 5 * time.Millisecond,
	}
}

func TestFetchMoviesSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movies" {
			t.Errorf("path = %q, want /movies", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(moviesJSON))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	movies, err := client.FetchMovies(context.Background(), "")
	if err != nil {
		t.Fatalf("FetchMovies: %v", err)
	}
	if len(movies) != 3 {
		t.Fatalf("got %d movies, want 3", len(movies))
	}
	if movies[0].Title != "올드보이" {
		t.Errorf("first title = %q, want 올드보이 (order must be preserved)", movies[0].Title)
	}
}

func TestFetchMoviesCategoryPath(t *testing.T) {
	t.Parallel()

	var gotPath atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		_, _ = w.Write([]byte("[]"))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	if _, err := client.FetchMovies(context.Background(), "KOREA"); err != nil {
		t.Fatalf("FetchMovies: %v", err)
	}
	if p := gotPath.Load(); p != "/movies/KOREA" {
		t.Errorf("path = %q, want /movies/KOREA", p)
	}
}

func TestFetchMoviesRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "temporarily broken", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(moviesJSON))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	movies, err := client.FetchMovies(context.Background(), "")
	if err != nil {
		t.Fatalf("FetchMovies after transient failures: %v", err)
	}
	if len(movies) != 3 {
		t.Errorf("got %d movies, want 3", len(movies))
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("upstream called %d times, want 3", n)
	}
}

func TestFetchMoviesExhaustsRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	client := NewClient(cfg)

	_, err := client.FetchMovies(context.Background(), "")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if n := calls.Load(); n != int32(cfg.MaxRetries)+1 {
		t.Errorf("upstream called %d times, want %d", n, cfg.MaxRetries+1)
	}
}

func TestFetchMoviesOverallTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	cfg := testConfig(server.URL)
	cfg.Timeout = 100 * time.Millisecond
	client := NewClient(cfg)

	start := time.Now()
	_, err := client.FetchMovies(context.Background(), "")
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	// The budget covers the whole fetch including retries, not per attempt.
	if elapsed > time.Second {
		t.Errorf("fetch took %s, should abort near the %s budget", elapsed, cfg.Timeout)
	}
}

func TestFetchMoviesCallerCancellation(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(testConfig(server.URL))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := client.FetchMovies(ctx, "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled (not an upstream timeout)", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("caller cancellation misreported as upstream timeout")
	}
}

func TestStreamMoviesFilters(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movies/KOREA" {
			t.Errorf("path = %q, want /movies/KOREA", r.URL.Path)
		}
		_, _ = w.Write([]byte(moviesJSON))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	var got []models.Movie
	for item := range client.StreamMovies(context.Background(), "KOREA", func(m models.Movie) bool {
		return m.HasCountry("대한민국")
	}) {
		if item.Err != nil {
			t.Fatalf("unexpected stream error: %v", item.Err)
		}
		got = append(got, item.Movie)
	}

	if len(got) != 2 {
		t.Fatalf("got %d movies, want 2 Korean titles", len(got))
	}
	if got[0].Title != "올드보이" || got[1].Title != "장화, 홍련" {
		t.Errorf("filtered stream out of order: %q, %q", got[0].Title, got[1].Title)
	}
}

func TestStreamMoviesNilPredicateKeepsAll(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(moviesJSON))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	count := 0
	for item := range client.StreamMovies(context.Background(), "", nil) {
		if item.Err != nil {
			t.Fatalf("unexpected stream error: %v", item.Err)
		}
		count++
	}
	if count != 3 {
		t.Errorf("got %d movies, want 3", count)
	}
}

func TestStreamMoviesUnavailableDeliversTerminalError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	var items []StreamItem
	for item := range client.StreamMovies(context.Background(), "KOREA", nil) {
		items = append(items, item)
	}

	if len(items) != 1 {
		t.Fatalf("got %d items, want exactly one terminal error item", len(items))
	}
	if !errors.Is(items[0].Err, ErrUnavailable) {
		t.Errorf("terminal err = %v, want ErrUnavailable", items[0].Err)
	}
}

func TestStreamMoviesTruncatedBody(t *testing.T) {
	t.Parallel()

	// Valid elements followed by a cut-off stream: the consumer sees the
	// complete elements, then one terminal error.
	truncated := strings.TrimSuffix(moviesJSON, "]")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(truncated))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	var movies int
	var terminalErr error
	for item := range client.StreamMovies(context.Background(), "", nil) {
		if item.Err != nil {
			terminalErr = item.Err
			continue
		}
		if terminalErr != nil {
			t.Error("movie delivered after terminal error")
		}
		movies++
	}

	if movies != 3 {
		t.Errorf("got %d complete movies before failure, want 3", movies)
	}
	if terminalErr == nil {
		t.Error("truncated stream ended without a terminal error")
	}
}

func TestStreamMoviesConsumerCancellation(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(moviesJSON))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	ctx, cancel := context.WithCancel(context.Background())
	items := client.StreamMovies(ctx, "", nil)

	// Take one element, then walk away.
	first, ok := <-items
	if !ok || first.Err != nil {
		t.Fatalf("first item = (%+v, %v)", first, ok)
	}
	cancel()

	// The producer must close the channel rather than leak.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, open := <-items:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("stream channel never closed after cancellation")
		}
	}
}

func TestReadBodyForError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "normal body", input: "error message body", want: "error message body"},
		{name: "empty body", input: "", want: ""},
		{name: "json error", input: `{"error":"broken"}`, want: `{"error":"broken"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := readBodyForError(strings.NewReader(tt.input))
			if string(got) != tt.want {
				t.Errorf("readBodyForError = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("oversized body is truncated", func(t *testing.T) {
		t.Parallel()

		got := readBodyForError(strings.NewReader(strings.Repeat("x", maxErrorBodySize*2)))
		if !strings.HasSuffix(string(got), "(truncated)") {
			t.Error("oversized body missing truncation marker")
		}
	})
}

func TestPing(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}

	server.Close()
	if err := client.Ping(context.Background()); err == nil {
		t.Error("Ping against closed server returned nil error")
	}
}
