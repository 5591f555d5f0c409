// Package worker provides background feature enrichment for catalog tracks
// that the music service has no analysis for.
package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/song-bot/internal/core/domain"
	"github.com/ewilliams-labs/song-bot/internal/core/ports"
)

// ErrPoolStopped is returned by Submit after Stop.
var ErrPoolStopped = errors.New("worker: pool stopped")

const jobTimeout = 30 * time.Second

// Job represents a track that needs features before it can join the catalog.
type Job struct {
	Track domain.Track
}

// Pool manages background workers for enrichment jobs.
type Pool struct {
	repo    ports.CatalogRepository
	analyze AnalyzeFunc
	logger  *zap.Logger
	jobs    chan Job
	wg      sync.WaitGroup

	mu      sync.RWMutex
	stopped bool

	saved  atomic.Int64
	failed atomic.Int64
}

// Option configures a Pool.
type Option func(*Pool)

// WithAnalyzer replaces the preview analyzer.
func WithAnalyzer(fn AnalyzeFunc) Option {
	return func(p *Pool) { p.analyze = fn }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pool) { p.logger = l }
}

// NewPool creates a worker pool with the given queue size.
func NewPool(repo ports.CatalogRepository, queueSize int, opts ...Option) *Pool {
	if queueSize < 1 {
		queueSize = 1
	}
	p := &Pool{
		repo:    repo,
		analyze: AnalyzePreview,
		logger:  zap.NewNop(),
		jobs:    make(chan Job, queueSize),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the worker goroutines.
func (p *Pool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.processJob(job)
			}
		}()
	}
}

// Stop closes the queue and waits for workers to drain it. It is safe to
// call more than once.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// Submit queues a job, blocking until there is room or ctx is done.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns how many jobs were saved and how many failed.
func (p *Pool) Stats() (saved, failed int64) {
	return p.saved.Load(), p.failed.Load()
}

func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	track := job.Track
	features := DeterministicFeatures(track.ID)

	if track.PreviewURL == "" {
		p.logger.Debug("worker: no preview, using derived features", zap.String("track", track.ID))
	} else if energy, err := p.analyze(ctx, track.PreviewURL); err != nil {
		p.logger.Warn("worker: preview analysis failed, using derived energy",
			zap.String("track", track.ID), zap.Error(err))
	} else {
		features.Energy = energy
	}

	track.Features = features.Vector()
	if err := p.repo.SaveTracks(ctx, []domain.Track{track}); err != nil {
		p.failed.Add(1)
		p.logger.Warn("worker: failed to save track", zap.String("track", track.ID), zap.Error(err))
		return
	}
	p.saved.Add(1)
	p.logger.Debug("worker: saved analyzed track",
		zap.String("track", track.ID), zap.Float64("energy", features.Energy))
}
