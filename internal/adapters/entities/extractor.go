// Package entities tags genres and artists in free text against a fixed
// vocabulary.
package entities

import (
	"strings"
	"unicode"

	"github.com/ewilliams-labs/song-bot/internal/core/domain"
	"github.com/ewilliams-labs/song-bot/internal/core/ports"
)

// DefaultGenres is the built-in genre vocabulary.
var DefaultGenres = []string{
	"acoustic", "afrobeat", "alternative", "ambient", "blues", "bossa nova",
	"classical", "country", "dance", "disco", "drum and bass", "dubstep",
	"edm", "electronic", "folk", "funk", "gospel", "grunge", "hip hop",
	"house", "indie", "jazz", "k-pop", "latin", "lo-fi", "metal", "opera",
	"pop", "punk", "r&b", "rap", "reggae", "reggaeton", "rock", "salsa",
	"soul", "synthwave", "techno", "trance",
}

// Vocabulary is a ports.EntityExtractor matching whole words only, so "pop"
// is found in "some pop songs" but not in "popular".
type Vocabulary struct {
	genres  []string
	artists []string
}

var _ ports.EntityExtractor = (*Vocabulary)(nil)

// New builds an extractor. Terms are matched case-insensitively.
func New(genres, artists []string) *Vocabulary {
	return &Vocabulary{genres: normalizeTerms(genres), artists: normalizeTerms(artists)}
}

// FromTracks builds an extractor over DefaultGenres and every primary artist
// in tracks.
func FromTracks(tracks []domain.Track) *Vocabulary {
	artists := make([]string, 0, len(tracks))
	for _, t := range tracks {
		artists = append(artists, t.Artist)
	}
	return New(DefaultGenres, artists)
}

// Extract implements ports.EntityExtractor. Results are lowercased and in
// vocabulary order.
func (v *Vocabulary) Extract(message string) ([]string, []string) {
	text := " " + fold(message) + " "
	return match(text, v.genres), match(text, v.artists)
}

func match(text string, terms []string) []string {
	var out []string
	for _, term := range terms {
		if strings.Contains(text, " "+term+" ") {
			out = append(out, term)
		}
	}
	return out
}

func normalizeTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = fold(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// fold lowercases s and collapses every run of separators into one space.
// '&' and '-' are kept so "r&b" and "k-pop" survive.
func fold(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '&' && r != '-'
	})
	return strings.Join(fields, " ")
}
