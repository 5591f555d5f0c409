// Package catalog holds the immutable local track catalog and the feature
// scaler fitted on it.
package catalog

import (
	"context"
	"fmt"

	"github.com/ewilliams-labs/song-bot/internal/core/domain"
	"github.com/ewilliams-labs/song-bot/internal/core/ports"
)

// Catalog is an ordered, immutable sequence of tracks with feature vectors of
// identical dimensionality. The scaler is fitted exactly once, in New.
type Catalog struct {
	tracks []domain.Track
	byID   map[string]int
	params ScalerParams
	dims   int
}

// New validates tracks, copies them and fits the scaler. An empty input yields
// an empty catalog with unfitted params.
func New(tracks []domain.Track) (*Catalog, error) {
	c := &Catalog{
		tracks: make([]domain.Track, len(tracks)),
		byID:   make(map[string]int, len(tracks)),
	}
	if len(tracks) == 0 {
		return c, nil
	}

	c.dims = len(tracks[0].Features)
	vectors := make([]domain.Vector, len(tracks))
	for i, t := range tracks {
		if len(t.Features) == 0 {
			return nil, fmt.Errorf("catalog: track %s has no features", t.ID)
		}
		if len(t.Features) != c.dims {
			return nil, fmt.Errorf("catalog: track %s has %d dims, want %d", t.ID, len(t.Features), c.dims)
		}
		t.Features = t.Features.Clone()
		c.tracks[i] = t
		vectors[i] = t.Features
		if _, dup := c.byID[t.ID]; !dup {
			c.byID[t.ID] = i
		}
	}

	params, err := Fit(vectors)
	if err != nil {
		return nil, err
	}
	c.params = params
	return c, nil
}

// Load reads every track from repo and builds the catalog.
func Load(ctx context.Context, repo ports.CatalogRepository) (*Catalog, error) {
	tracks, err := repo.ListTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: load: %w", err)
	}
	return New(tracks)
}

// Len returns the number of tracks.
func (c *Catalog) Len() int { return len(c.tracks) }

// Dims returns the feature dimensionality, 0 for an empty catalog.
func (c *Catalog) Dims() int { return c.dims }

// Tracks returns the tracks in catalog order. Callers must not modify the
// returned slice.
func (c *Catalog) Tracks() []domain.Track { return c.tracks }

// Lookup finds a track by id.
func (c *Catalog) Lookup(id string) (domain.Track, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Track{}, false
	}
	return c.tracks[i], true
}

// Params returns the scaler fitted at construction.
func (c *Catalog) Params() ScalerParams { return c.params }

// Normalize standardizes v with the catalog's scaler.
func (c *Catalog) Normalize(v domain.Vector) (domain.Vector, error) {
	return c.params.Transform(v)
}
