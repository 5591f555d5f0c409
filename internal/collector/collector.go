// Package collector builds the local catalog by crawling the music service
// from seed artists to their related artists.
package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ewilliams-labs/song-bot/internal/core/domain"
	"github.com/ewilliams-labs/song-bot/internal/core/ports"
	"github.com/ewilliams-labs/song-bot/internal/worker"
)

const defaultParallelism = 4

// Enqueuer accepts tracks that still need features.
type Enqueuer interface {
	Submit(ctx context.Context, job worker.Job) error
}

// Report summarizes one collection run.
type Report struct {
	Artists  int      // artists whose top tracks were fetched
	Saved    int      // tracks stored with upstream features
	Known    int      // tracks already in the catalog, not fetched again
	Deferred int      // tracks handed to the enrichment pool
	Dropped  int      // tracks without features and no pool to enrich them
	Errors   []string // per-artist failures, the run continues past them
}

// trackIndex is implemented by repositories that can tell whether a track
// is already stored, such as the sqlite adapter.
type trackIndex interface {
	HasTrack(ctx context.Context, id string) (bool, error)
}

// Collector crawls a CatalogSource into a CatalogRepository.
type Collector struct {
	source      ports.CatalogSource
	repo        ports.CatalogRepository
	pool        Enqueuer
	logger      *zap.Logger
	parallelism int
}

// Option configures a Collector.
type Option func(*Collector)

// WithEnqueuer sends featureless tracks to the enrichment pool.
func WithEnqueuer(e Enqueuer) Option {
	return func(c *Collector) { c.pool = e }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Collector) { c.logger = l }
}

// WithParallelism bounds how many related artists are fetched at once.
func WithParallelism(n int) Option {
	return func(c *Collector) { c.parallelism = n }
}

// New constructs a Collector.
func New(source ports.CatalogSource, repo ports.CatalogRepository, opts ...Option) *Collector {
	c := &Collector{
		source:      source,
		repo:        repo,
		logger:      zap.NewNop(),
		parallelism: defaultParallelism,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.parallelism < 1 {
		c.parallelism = 1
	}
	return c
}

// run is the mutable state of one Collect call.
type run struct {
	mu        sync.Mutex
	processed map[string]struct{}
	report    Report
}

// claim marks an artist as processed and reports whether it was new.
func (r *run) claim(artistID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.processed[artistID]; ok {
		return false
	}
	r.processed[artistID] = struct{}{}
	return true
}

func (r *run) fail(format string, args ...any) {
	r.mu.Lock()
	r.report.Errors = append(r.report.Errors, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

// Collect processes each seed artist and then every related artist not seen
// before in this run. Per-artist failures are recorded in the report; only
// context cancellation aborts the run.
func (c *Collector) Collect(ctx context.Context, artistNames []string) (Report, error) {
	r := &run{processed: make(map[string]struct{})}

	for _, name := range artistNames {
		if err := ctx.Err(); err != nil {
			return r.report, err
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		found, err := c.source.SearchArtists(ctx, name, 1)
		if err != nil {
			c.logger.Warn("collector: artist search failed", zap.String("artist", name), zap.Error(err))
			r.fail("search %q: %v", name, err)
			continue
		}
		if len(found) == 0 {
			r.fail("search %q: no artist found", name)
			continue
		}
		seed := found[0]
		if !r.claim(seed.ID) {
			continue
		}

		if err := c.collectArtist(ctx, r, seed); err != nil {
			if ctx.Err() != nil {
				return r.report, ctx.Err()
			}
			r.fail("artist %s: %v", seed.Name, err)
		}

		related, err := c.source.RelatedArtists(ctx, seed.ID)
		if err != nil {
			c.logger.Warn("collector: related artists failed", zap.String("artist", seed.Name), zap.Error(err))
			r.fail("related %s: %v", seed.Name, err)
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.parallelism)
		for _, a := range related {
			if !r.claim(a.ID) {
				continue
			}
			g.Go(func() error {
				if err := c.collectArtist(gctx, r, a); err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					r.fail("artist %s: %v", a.Name, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return r.report, err
		}

		c.logger.Info("collector: seed done", zap.String("artist", seed.Name), zap.Int("related", len(related)))
	}

	return r.report, nil
}

func (c *Collector) collectArtist(ctx context.Context, r *run, artist domain.Artist) error {
	tracks, err := c.source.ArtistTopTracks(ctx, artist.ID)
	if err != nil {
		return fmt.Errorf("collector: top tracks: %w", err)
	}
	tracks, known := c.dropKnown(ctx, tracks)

	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	features := map[string]domain.AudioFeatures{}
	if len(ids) > 0 {
		features, err = c.source.AudioFeaturesBatch(ctx, ids)
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Keep going: the tracks are enriched by the pool instead.
		c.logger.Warn("collector: batch features failed", zap.String("artist", artist.Name), zap.Error(err))
		features = map[string]domain.AudioFeatures{}
	}

	var ready, pending []domain.Track
	for _, t := range tracks {
		if t.Artist == "" {
			t.Artist = artist.Name
		}
		if f, ok := features[t.ID]; ok && !f.IsZero() {
			t.Features = f.Vector()
			ready = append(ready, t)
		} else {
			pending = append(pending, t)
		}
	}

	if len(ready) > 0 {
		if err := c.repo.SaveTracks(ctx, ready); err != nil {
			return fmt.Errorf("collector: save: %w", err)
		}
	}

	deferred, dropped := 0, 0
	for _, t := range pending {
		if c.pool == nil {
			dropped++
			continue
		}
		if err := c.pool.Submit(ctx, worker.Job{Track: t}); err != nil {
			if errors.Is(err, worker.ErrPoolStopped) {
				dropped++
				continue
			}
			return fmt.Errorf("collector: enqueue %s: %w", t.ID, err)
		}
		deferred++
	}

	r.mu.Lock()
	r.report.Artists++
	r.report.Saved += len(ready)
	r.report.Known += known
	r.report.Deferred += deferred
	r.report.Dropped += dropped
	r.mu.Unlock()

	c.logger.Debug("collector: artist done",
		zap.String("artist", artist.Name), zap.Int("saved", len(ready)), zap.Int("deferred", deferred))
	return nil
}

// dropKnown removes tracks the repository already holds. A failed check keeps
// the track.
func (c *Collector) dropKnown(ctx context.Context, tracks []domain.Track) ([]domain.Track, int) {
	idx, ok := c.repo.(trackIndex)
	if !ok {
		return tracks, 0
	}
	fresh := tracks[:0:0]
	for _, t := range tracks {
		stored, err := idx.HasTrack(ctx, t.ID)
		if err != nil {
			c.logger.Warn("collector: catalog check failed", zap.String("track", t.ID), zap.Error(err))
		}
		if stored {
			continue
		}
		fresh = append(fresh, t)
	}
	return fresh, len(tracks) - len(fresh)
}
