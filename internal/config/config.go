// Cinefeed - Movie Recommendation Cache and Aggregation Service
// Copyright 2026 Cinefeed contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinefeed/cinefeed

// Package config provides layered configuration for Cinefeed.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting
//
// The only required setting is the upstream movie-info API base URL
// (MOVIE_INFO_API_URL). Everything else has working defaults.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds all application configuration.
// Immutable after Load() and safe for concurrent read access.
type Config struct {
	Upstream  UpstreamConfig  `koanf:"upstream"`
	Redis     RedisConfig     `koanf:"redis"`
	Cache     CacheConfig     `koanf:"cache"`
	Recommend RecommendConfig `koanf:"recommend"`
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// UpstreamConfig holds the movie-info API connection and resilience settings.
//
// Environment Variables:
//   - MOVIE_INFO_API_URL: Base URL of the movie-info API (required)
//   - UPSTREAM_TIMEOUT: Overall per-fetch time budget (default: 3s)
//   - UPSTREAM_MAX_RETRIES: Retry attempts after the first try (default: 3)
//   - UPSTREAM_RETRY_BASE_DELAY: Exponential backoff base (default: 200ms)
//   - UPSTREAM_CIRCUIT_BREAKER: Wrap the client in a circuit breaker (default: false)
//
// The retry base delay must stay below the overall timeout, otherwise the
// second attempt could never start within budget; Validate enforces this.
type UpstreamConfig struct {
	BaseURL        string        `koanf:"base_url"`
	Timeout        time.Duration `koanf:"timeout"`
	MaxRetries     int           `koanf:"max_retries"`
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`
	CircuitBreaker bool          `koanf:"circuit_breaker"`
}

// RedisConfig holds the shared cache store connection settings.
//
// Environment Variables:
//   - REDIS_ADDR: host:port of the Redis server (default: localhost:6379)
//   - REDIS_PASSWORD, REDIS_DB, REDIS_KEY_PREFIX
//   - REDIS_OP_TIMEOUT: Per-operation timeout; a slow cache degrades to a
//     miss instead of blocking the request (default: 2s)
type RedisConfig struct {
	Addr      string        `koanf:"addr"`
	Password  string        `koanf:"password"`
	DB        int           `koanf:"db"`
	KeyPrefix string        `koanf:"key_prefix"`
	OpTimeout time.Duration `koanf:"op_timeout"`
}

// CacheConfig holds cache entry behavior.
//
// Environment Variables:
//   - CACHE_TTL: Time-to-live for the shared movie snapshot (default: 10s)
type CacheConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

// RecommendConfig holds orchestration options.
//
// Environment Variables:
//   - RECOMMEND_SINGLE_FLIGHT: Coalesce concurrent cache misses into one
//     upstream call (default: false; concurrent misses each fetch
//     independently, matching the original behavior)
type RecommendConfig struct {
	SingleFlight bool `koanf:"single_flight"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port    int           `koanf:"port"`
	Host    string        `koanf:"host"`
	Timeout time.Duration `koanf:"timeout"`
}

// SecurityConfig holds rate limiting and CORS settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for missing or inconsistent values.
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream base URL is required (set MOVIE_INFO_API_URL)")
	}
	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("upstream base URL %q is not a valid absolute URL", c.Upstream.BaseURL)
	}
	if c.Upstream.MaxRetries < 0 {
		return fmt.Errorf("upstream max retries must be >= 0, got %d", c.Upstream.MaxRetries)
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive, got %s", c.Upstream.Timeout)
	}
	if c.Upstream.RetryBaseDelay >= c.Upstream.Timeout {
		return fmt.Errorf("upstream retry base delay %s must be below the overall timeout %s",
			c.Upstream.RetryBaseDelay, c.Upstream.Timeout)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive, got %s", c.Cache.TTL)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d is out of range", c.Server.Port)
	}
	return nil
}
