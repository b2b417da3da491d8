// Cinefeed - Movie Recommendation Cache and Aggregation Service
// Copyright 2026 Cinefeed contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinefeed/cinefeed

package models

// Movie is a single record returned by the upstream movie-info API.
//
// A movie may carry several genre and country tags; matching is plain
// membership against the canonical taxonomy token. Records are immutable
// once fetched: the upstream client creates them, the recommend service
// filters them, and the API layer hands them to the caller. There is no
// identity beyond structural equality and records are never persisted
// individually (the cache stores whole response snapshots).
type Movie struct {
	Title   string   `json:"title" msgpack:"title"`
	Genre   []string `json:"genre" msgpack:"genre"`
	Country []string `json:"country" msgpack:"country"`
}

// HasGenre reports whether the movie carries the given genre token.
func (m Movie) HasGenre(token string) bool {
	return contains(m.Genre, token)
}

// HasCountry reports whether the movie carries the given country token.
func (m Movie) HasCountry(token string) bool {
	return contains(m.Country, token)
}

func contains(tags []string, token string) bool {
	for _, t := range tags {
		if t == token {
			return true
		}
	}
	return false
}
