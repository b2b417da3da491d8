// Cinefeed - Movie Recommendation Cache and Aggregation Service
// Copyright 2026 Cinefeed contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinefeed/cinefeed

// Package cache provides the shared key-value store used for movie
// snapshots.
//
// The store is a performance optimization, never a correctness
// requirement: callers treat any Get failure as a miss and any SetIfAbsent
// failure as a no-op. The backing store (Redis, shared across service
// instances) owns atomicity of the conditional write and TTL expiry.
package cache

import (
	"context"
	"time"

	"github.com/cinefeed/cinefeed/internal/models"
)

// Store is the contract the core consumes.
//
// Get returns (movies, true, nil) on a hit and (nil, false, nil) on a
// miss; an expired entry is a miss. SetIfAbsent stores the value only if
// the key is currently absent and reports whether the write won. During
// a race window at most one writer wins per key, but the winner is not
// guaranteed to be the caller that reads its own value back.
type Store interface {
	Get(ctx context.Context, key string) ([]models.Movie, bool, error)
	SetIfAbsent(ctx context.Context, key string, movies []models.Movie, ttl time.Duration) (bool, error)
}
