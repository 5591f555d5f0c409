package ports

import (
	"context"
	"errors"
	"fmt"

	"github.com/ewilliams-labs/song-bot/internal/core/domain"
)

// ErrLookupFailure indicates the music lookup API could not serve a request.
var ErrLookupFailure = errors.New("lookup failure")

// ErrFeaturesUnavailable indicates the upstream has no audio analysis for a
// track. It is not a LookupFailure: callers are expected to degrade.
var ErrFeaturesUnavailable = errors.New("audio features unavailable")

// LookupError provides context for a failed lookup call.
type LookupError struct {
	Op     string // e.g. "search tracks"
	Status int    // upstream HTTP status, 0 for transport errors
	Err    error
}

func (e *LookupError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": " + ErrLookupFailure.Error()
	}
}

func (e *LookupError) Unwrap() error { return e.Err }

func (e *LookupError) Is(target error) bool {
	return target == ErrLookupFailure
}

// MusicLookup is the query side of the music service.
type MusicLookup interface {
	SearchTracks(ctx context.Context, query string, limit int) ([]domain.Track, error)
	SearchArtists(ctx context.Context, query string, limit int) ([]domain.Artist, error)
	RelatedArtists(ctx context.Context, artistID string) ([]domain.Artist, error)
	RecommendationsBySeed(ctx context.Context, trackID string, limit int) ([]domain.Track, error)
	SearchByGenre(ctx context.Context, genre string, limit int) ([]domain.Track, error)
	AudioFeatures(ctx context.Context, trackID string) (domain.AudioFeatures, error)
}

// CatalogSource is what the catalog collector needs from the music service.
type CatalogSource interface {
	SearchArtists(ctx context.Context, query string, limit int) ([]domain.Artist, error)
	RelatedArtists(ctx context.Context, artistID string) ([]domain.Artist, error)
	ArtistTopTracks(ctx context.Context, artistID string) ([]domain.Track, error)
	AudioFeaturesBatch(ctx context.Context, trackIDs []string) (map[string]domain.AudioFeatures, error)
}
