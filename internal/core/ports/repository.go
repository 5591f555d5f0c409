package ports

import (
	"context"

	"github.com/ewilliams-labs/song-bot/internal/core/domain"
)

// CatalogRepository persists the local track catalog. ListTracks returns
// tracks in insertion order, which is the catalog order used for ranking.
type CatalogRepository interface {
	ListTracks(ctx context.Context) ([]domain.Track, error)
	SaveTracks(ctx context.Context, tracks []domain.Track) error
	CountTracks(ctx context.Context) (int, error)
}
