// Cinefeed - Movie Recommendation Cache and Aggregation Service
// Copyright 2026 Cinefeed contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinefeed/cinefeed

// Package taxonomy defines the closed category enumerations used to filter
// upstream movie data.
//
// Each category value carries one canonical localized match token, the
// string the upstream API uses to tag movies. The enumerations are
// exhaustive and fixed at build time; unrecognized values are rejected at
// the API boundary by ParseGenre/ParseCountry and never reach the core.
package taxonomy

import (
	"fmt"
	"strings"
)

// InvalidCategoryError reports a boundary parse failure so handlers can
// map it to a 400 without inspecting message text.
type InvalidCategoryError struct {
	Kind  string // "genre" or "country"
	Value string
}

func (e *InvalidCategoryError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Kind, e.Value)
}

// Genre is a closed enumeration of supported movie genres.
type Genre string

const (
	GenreAction  Genre = "ACTION"
	GenreDrama   Genre = "DRAMA"
	GenreComedy  Genre = "COMEDY"
	GenreRomance Genre = "ROMANCE"
	GenreHorror  Genre = "HORROR"
)

// genreTokens maps each genre to the canonical token the upstream API uses
// in movie genre tags.
var genreTokens = map[Genre]string{
	GenreAction:  "액션",
	GenreDrama:   "드라마",
	GenreComedy:  "코미디",
	GenreRomance: "로맨스",
	GenreHorror:  "공포",
}

// MatchToken returns the canonical matching token for the genre.
// Pure and total over the enumeration; an invalid Genre value is
// unrepresentable once validated at the boundary and yields "".
func (g Genre) MatchToken() string {
	return genreTokens[g]
}

// String returns the enumeration name, which is also the upstream path
// segment form of the genre.
func (g Genre) String() string {
	return string(g)
}

// ParseGenre decodes a path parameter into a Genre, case-insensitively.
func ParseGenre(s string) (Genre, error) {
	g := Genre(strings.ToUpper(s))
	if _, ok := genreTokens[g]; !ok {
		return "", &InvalidCategoryError{Kind: "genre", Value: s}
	}
	return g, nil
}

// Genres returns all supported genres.
func Genres() []Genre {
	return []Genre{GenreAction, GenreDrama, GenreComedy, GenreRomance, GenreHorror}
}

// Country is a closed enumeration of supported production countries.
type Country string

const (
	CountryAmerica Country = "AMERICA"
	CountryKorea   Country = "KOREA"
	CountryJapan   Country = "JAPAN"
)

var countryTokens = map[Country]string{
	CountryAmerica: "미국",
	CountryKorea:   "대한민국",
	CountryJapan:   "일본",
}

// MatchToken returns the canonical matching token for the country.
func (c Country) MatchToken() string {
	return countryTokens[c]
}

// String returns the enumeration name, which is also the upstream path
// segment form of the country.
func (c Country) String() string {
	return string(c)
}

// ParseCountry decodes a path parameter into a Country, case-insensitively.
func ParseCountry(s string) (Country, error) {
	c := Country(strings.ToUpper(s))
	if _, ok := countryTokens[c]; !ok {
		return "", &InvalidCategoryError{Kind: "country", Value: s}
	}
	return c, nil
}

// Countries returns all supported countries.
func Countries() []Country {
	return []Country{CountryAmerica, CountryKorea, CountryJapan}
}
