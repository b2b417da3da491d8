// Cinefeed - Movie Recommendation Cache and Aggregation Service
// Copyright 2026 Cinefeed contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinefeed/cinefeed

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/cinefeed/cinefeed/internal/models"
)

// DefaultOpTimeout bounds every Redis operation so a slow or unresponsive
// cache degrades to a miss instead of stalling the request.
const DefaultOpTimeout = 2 * time.Second

// RedisStore implements Store on a shared Redis server.
//
// Values are msgpack-encoded movie slices; the conditional write maps to
// SETNX with TTL, so Redis owns both the at-most-one-writer guarantee and
// expiry. The caller owns the redis.Client lifecycle.
type RedisStore struct {
	client    *redis.Client
	prefix    string
	opTimeout time.Duration
}

var _ Store = (*RedisStore)(nil)

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithPrefix sets a key prefix for namespacing, e.g. one prefix per
// deployment sharing a Redis server.
func WithPrefix(p string) RedisOption {
	return func(s *RedisStore) { s.prefix = p }
}

// WithOpTimeout overrides the per-operation timeout.
func WithOpTimeout(d time.Duration) RedisOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

// NewRedisStore returns a Store backed by the given Redis client.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client:    client,
		opTimeout: DefaultOpTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) opCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.opTimeout)
}

func (s *RedisStore) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

// Get retrieves a movie snapshot. An absent or expired key is a miss.
func (s *RedisStore) Get(ctx context.Context, key string) ([]models.Movie, bool, error) {
	qctx, cancel := s.opCtx(ctx)
	defer cancel()

	data, err := s.client.Get(qctx, s.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}

	var movies []models.Movie
	if err := msgpack.Unmarshal(data, &movies); err != nil {
		// A corrupt entry is unreadable until it expires; treat as a miss
		// so the caller refetches, and report the decode failure.
		return nil, false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return movies, true, nil
}

// SetIfAbsent stores the snapshot only when the key is absent.
// Returns whether this writer won the race.
func (s *RedisStore) SetIfAbsent(ctx context.Context, key string, movies []models.Movie, ttl time.Duration) (bool, error) {
	data, err := msgpack.Marshal(movies)
	if err != nil {
		return false, fmt.Errorf("cache encode %s: %w", key, err)
	}

	qctx, cancel := s.opCtx(ctx)
	defer cancel()

	stored, err := s.client.SetNX(qctx, s.key(key), data, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cache setnx %s: %w", key, err)
	}
	return stored, nil
}

// Ping verifies connectivity to the cache server. Used by readiness checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	qctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.client.Ping(qctx).Err()
}
