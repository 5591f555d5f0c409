// Package similarity ranks catalog tracks by cosine similarity of their
// standardized audio feature vectors.
package similarity

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/ewilliams-labs/song-bot/internal/catalog"
	"github.com/ewilliams-labs/song-bot/internal/core/domain"
)

// Match is a ranked catalog track.
type Match struct {
	Track domain.Track
	Score float64
}

// Ranker returns the topN catalog tracks closest to query, best first.
// exclude may be nil. Implementations other than Linear (an ANN index, for
// example) must keep the same ordering contract.
type Ranker interface {
	Rank(query domain.Vector, topN int, exclude func(domain.Track) bool) []Match
}

// Cosine returns dot(a, b) / (|a| * |b|). Zero-norm or mismatched vectors
// score 0.
func Cosine(a, b domain.Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	return cosineFromParts(dot, math.Sqrt(normA), math.Sqrt(normB))
}

func cosineFromParts(dot, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	score := dot / (normA * normB)
	if math.IsNaN(score) {
		return 0
	}
	return score
}

// Rank scores every track's Features against query and returns the first
// topN by descending score. Ties keep input order.
func Rank(query domain.Vector, tracks []domain.Track, topN int) []Match {
	vectors := make([]domain.Vector, len(tracks))
	for i, t := range tracks {
		vectors[i] = t.Features
	}
	return rank(query, tracks, vectors, norms(vectors), topN, nil)
}

// Linear is an exhaustive Ranker over a catalog. Catalog vectors are
// standardized once at construction; queries must already be standardized
// with the same catalog's scaler.
type Linear struct {
	tracks  []domain.Track
	vectors []domain.Vector
	norms   []float64
}

var _ Ranker = (*Linear)(nil)

// NewLinear standardizes every catalog vector with the catalog's scaler.
func NewLinear(c *catalog.Catalog) (*Linear, error) {
	tracks := c.Tracks()
	vectors := make([]domain.Vector, len(tracks))
	for i, t := range tracks {
		v, err := c.Normalize(t.Features)
		if err != nil {
			return nil, fmt.Errorf("similarity: normalize track %s: %w", t.ID, err)
		}
		vectors[i] = v
	}
	return &Linear{tracks: tracks, vectors: vectors, norms: norms(vectors)}, nil
}

// Len returns the number of indexed tracks.
func (l *Linear) Len() int { return len(l.tracks) }

// Rank implements Ranker.
func (l *Linear) Rank(query domain.Vector, topN int, exclude func(domain.Track) bool) []Match {
	return rank(query, l.tracks, l.vectors, l.norms, topN, exclude)
}

func rank(query domain.Vector, tracks []domain.Track, vectors []domain.Vector, vnorms []float64, topN int, exclude func(domain.Track) bool) []Match {
	if topN <= 0 || len(tracks) == 0 {
		return nil
	}

	qnorm := norm(query)
	matches := make([]Match, 0, len(tracks))
	for i, t := range tracks {
		if exclude != nil && exclude(t) {
			continue
		}
		score := 0.0
		if len(vectors[i]) == len(query) {
			score = cosineFromParts(dot(query, vectors[i]), qnorm, vnorms[i])
		}
		matches = append(matches, Match{Track: t, Score: score})
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if len(matches) > topN {
		matches = matches[:topN]
	}
	return matches
}

func dot(a, b domain.Vector) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func norm(v domain.Vector) float64 {
	return math.Sqrt(dot(v, v))
}

func norms(vectors []domain.Vector) []float64 {
	out := make([]float64, len(vectors))
	for i, v := range vectors {
		out[i] = norm(v)
	}
	return out
}
