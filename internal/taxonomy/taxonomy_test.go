// Cinefeed - Movie Recommendation Cache and Aggregation Service
// Copyright 2026 Cinefeed contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinefeed/cinefeed

package taxonomy

import (
	"errors"
	"testing"
)

func TestParseGenre(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Genre
		wantErr bool
	}{
		{name: "uppercase action", input: "ACTION", want: GenreAction},
		{name: "lowercase drama", input: "drama", want: GenreDrama},
		{name: "mixed case comedy", input: "Comedy", want: GenreComedy},
		{name: "romance", input: "ROMANCE", want: GenreRomance},
		{name: "horror", input: "horror", want: GenreHorror},
		{name: "unknown genre", input: "WESTERN", wantErr: true},
		{name: "empty string", input: "", wantErr: true},
		{name: "korean token is not an identifier", input: "액션", wantErr: true},
		{name: "country is not a genre", input: "KOREA", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseGenre(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseGenre(%q) expected error, got %v", tt.input, got)
				}
				var invalid *InvalidCategoryError
				if !errors.As(err, &invalid) {
					t.Errorf("ParseGenre(%q) error type = %T, want *InvalidCategoryError", tt.input, err)
				} else if invalid.Kind != "genre" {
					t.Errorf("InvalidCategoryError.Kind = %q, want %q", invalid.Kind, "genre")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseGenre(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseGenre(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseCountry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Country
		wantErr bool
	}{
		{name: "uppercase america", input: "AMERICA", want: CountryAmerica},
		{name: "lowercase korea", input: "korea", want: CountryKorea},
		{name: "mixed case japan", input: "Japan", want: CountryJapan},
		{name: "unknown country", input: "FRANCE", wantErr: true},
		{name: "empty string", input: "", wantErr: true},
		{name: "genre is not a country", input: "ACTION", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseCountry(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseCountry(%q) expected error, got %v", tt.input, got)
				}
				var invalid *InvalidCategoryError
				if !errors.As(err, &invalid) {
					t.Errorf("ParseCountry(%q) error type = %T, want *InvalidCategoryError", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCountry(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseCountry(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestMatchTokens(t *testing.T) {
	t.Parallel()

	// Every enumerated value must map to a non-empty matching token, and
	// tokens must be distinct or filtering would conflate categories.
	seen := make(map[string]string)
	for _, g := range Genres() {
		token := g.MatchToken()
		if token == "" {
			t.Errorf("genre %v has empty match token", g)
		}
		if prev, dup := seen[token]; dup {
			t.Errorf("token %q reused by %v and %s", token, g, prev)
		}
		seen[token] = g.String()
	}
	for _, c := range Countries() {
		token := c.MatchToken()
		if token == "" {
			t.Errorf("country %v has empty match token", c)
		}
		if prev, dup := seen[token]; dup {
			t.Errorf("token %q reused by %v and %s", token, c, prev)
		}
		seen[token] = c.String()
	}
}

func TestInvalidCategoryErrorMessage(t *testing.T) {
	t.Parallel()

	err := &InvalidCategoryError{Kind: "genre", Value: "WESTERN"}
	if msg := err.Error(); msg == "" {
		t.Error("InvalidCategoryError.Error() returned empty message")
	}
}
