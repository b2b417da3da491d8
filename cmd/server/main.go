// Cinefeed - Movie Recommendation Cache and Aggregation Service
// Copyright 2026 Cinefeed contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinefeed/cinefeed

// Package main is the entry point for the Cinefeed server.
//
// Cinefeed sits in front of a movie-information API and answers two kinds
// of recommendation queries: genre queries served through a short-lived
// shared Redis cache, and country queries streamed straight from the API
// without caching.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Load settings from environment variables and config files (Koanf v2)
//  2. Cache store: Connect to Redis (best-effort; the service degrades
//     to uncached operation when Redis is down)
//  3. Upstream client: Movie-info API client, optionally wrapped in a
//     circuit breaker
//  4. Recommendation service: cache orchestration and filtering
//  5. HTTP Server: REST API with Prometheus metrics
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables
//   - Config file (config.yaml)
//   - Built-in defaults
//
// Required:
//   - MOVIE_INFO_API_URL: Base URL of the movie-info API
//
// Common options:
//   - REDIS_ADDR: Redis server address (default: localhost:6379)
//   - CACHE_TTL: Lifetime of the shared movie snapshot (default: 10s)
//   - UPSTREAM_TIMEOUT: Per-fetch time budget (default: 3s)
//   - UPSTREAM_CIRCUIT_BREAKER=true: Enable the circuit breaker
//   - RECOMMEND_SINGLE_FLIGHT=true: Coalesce concurrent cache misses
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (10s timeout)
//   - Closes the Redis connection
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cinefeed/cinefeed/internal/api"
	"github.com/cinefeed/cinefeed/internal/cache"
	"github.com/cinefeed/cinefeed/internal/config"
	"github.com/cinefeed/cinefeed/internal/logging"
	"github.com/cinefeed/cinefeed/internal/recommend"
	"github.com/cinefeed/cinefeed/internal/upstream"
)

// version is set at build time via -ldflags.
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Str("version", version).Msg("Starting Cinefeed")
	logging.Info().
		Str("upstream_url", cfg.Upstream.BaseURL).
		Str("redis_addr", cfg.Redis.Addr).
		Dur("cache_ttl", cfg.Cache.TTL).
		Bool("circuit_breaker", cfg.Upstream.CircuitBreaker).
		Bool("single_flight", cfg.Recommend.SingleFlight).
		Msg("Configuration loaded")

	// Redis client for the shared movie cache. A failed ping is not fatal:
	// every cache error downgrades to a miss, so the service keeps working
	// uncached until Redis comes back.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing Redis connection")
		}
	}()

	store := cache.NewRedisStore(redisClient,
		cache.WithPrefix(cfg.Redis.KeyPrefix),
		cache.WithOpTimeout(cfg.Redis.OpTimeout),
	)
	if err := store.Ping(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Failed to connect to Redis, running uncached until it recovers")
	} else {
		logging.Info().Msg("Connected to Redis successfully")
	}

	// Movie-info API client, with circuit breaker when enabled.
	var fetcher upstream.Fetcher
	if cfg.Upstream.CircuitBreaker {
		fetcher = upstream.NewCircuitBreakerClient(&cfg.Upstream)
	} else {
		fetcher = upstream.NewClient(&cfg.Upstream)
	}
	if err := fetcher.Ping(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Failed to connect to movie-info API (will retry per request)")
	} else {
		logging.Info().Msg("Connected to movie-info API successfully")
	}

	var opts []recommend.Option
	if cfg.Recommend.SingleFlight {
		opts = append(opts, recommend.WithSingleFlight())
	}
	service := recommend.New(fetcher, store, cfg.Cache.TTL, opts...)

	handler := api.NewHandler(service, fetcher, store, version)
	router := api.NewRouter(cfg, handler)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		// WriteTimeout stays above the upstream budget so a streamed
		// country response is never cut off mid-flight by the server.
		WriteTimeout: cfg.Server.Timeout + cfg.Upstream.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("HTTP server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logging.Info().Msg("Application stopped gracefully")
}
