package cli

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/song-bot/internal/adapters/entities"
	"github.com/ewilliams-labs/song-bot/internal/adapters/ollama"
	"github.com/ewilliams-labs/song-bot/internal/adapters/openai"
	"github.com/ewilliams-labs/song-bot/internal/adapters/spotify"
	"github.com/ewilliams-labs/song-bot/internal/adapters/sqlite"
	"github.com/ewilliams-labs/song-bot/internal/catalog"
	"github.com/ewilliams-labs/song-bot/internal/config"
	"github.com/ewilliams-labs/song-bot/internal/core/ports"
	"github.com/ewilliams-labs/song-bot/internal/core/services"
	"github.com/ewilliams-labs/song-bot/internal/memory"
	"github.com/ewilliams-labs/song-bot/internal/metrics"
	"github.com/ewilliams-labs/song-bot/internal/similarity"
)

func (o *rootOptions) openRepo() (*sqlite.Adapter, error) {
	repo, err := sqlite.NewAdapter(o.cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", o.cfg.Storage.Path, err)
	}
	return repo, nil
}

func (o *rootOptions) newSpotify(ctx context.Context, m *metrics.Metrics) (*spotify.Client, error) {
	s := o.cfg.Spotify
	return spotify.New(ctx, spotify.Config{
		ClientID:          s.ClientID,
		ClientSecret:      s.ClientSecret,
		Timeout:           s.Timeout,
		MaxRetries:        s.MaxRetries,
		RetryBackoff:      s.RetryBackoff(),
		RequestsPerSecond: s.RequestsPerSecond,
		Burst:             s.Burst,
	}, spotify.WithMetrics(m), spotify.WithLogger(o.logger.Named("spotify")))
}

// newResponder returns nil for config.ResponderNone; the dispatcher then
// answers unrecognized messages with usage help.
func newResponder(cfg config.ResponderConfig, logger *zap.Logger) (ports.Responder, error) {
	switch kind := cfg.Resolved(); kind {
	case config.ResponderOpenAI:
		c, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.ResponderOllama:
		return ollama.NewClient(cfg.OllamaHost, cfg.OllamaModel), nil
	case config.ResponderNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown responder %q", kind)
	}
}

// stack is everything a conversation needs.
type stack struct {
	assistant *services.Assistant
	prefs     *memory.Preferences
	catalog   *catalog.Catalog
}

func buildStack(ctx context.Context, cfg config.Config, logger *zap.Logger, m *metrics.Metrics, lookup ports.MusicLookup, repo ports.CatalogRepository) (*stack, error) {
	cat, err := catalog.Load(ctx, repo)
	if err != nil {
		return nil, err
	}

	responder, err := newResponder(cfg.Responder, logger.Named("responder"))
	if err != nil {
		return nil, err
	}

	seed := cfg.Dialogue.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	prefs := memory.NewPreferences()
	opts := []services.DispatcherOption{
		services.WithExtractor(entities.FromTracks(cat.Tracks())),
		services.WithRand(rand.New(rand.NewSource(seed))),
		services.WithDispatcherMetrics(m),
		services.WithDispatcherLogger(logger.Named("dispatcher")),
	}
	if responder != nil {
		opts = append(opts, services.WithResponder(responder))
	}

	if cfg.Dialogue.Mode == config.ModeContent {
		if cat.Len() == 0 {
			logger.Warn("cli: content mode requested but the catalog is empty, using seed recommendations",
				zap.String("storage", cfg.Storage.Path))
		} else {
			ranker, err := similarity.NewLinear(cat)
			if err != nil {
				return nil, err
			}
			opts = append(opts, services.WithContentSimilarity(cat, ranker))
		}
	}

	dispatcher := services.NewDispatcher(lookup, prefs, memory.NewRecommendations(), opts...)
	controller := services.NewController(dispatcher, prefs,
		services.WithTurnTimeout(cfg.Dialogue.TurnTimeout),
		services.WithMaxClarifications(cfg.Dialogue.MaxClarifications),
		services.WithControllerMetrics(m),
		services.WithControllerLogger(logger.Named("dialogue")),
	)

	logger.Info("cli: assistant ready",
		zap.String("mode", cfg.Dialogue.Mode),
		zap.String("responder", cfg.Responder.Resolved()),
		zap.Int("catalog_tracks", cat.Len()))

	return &stack{assistant: services.NewAssistant(controller), prefs: prefs, catalog: cat}, nil
}
