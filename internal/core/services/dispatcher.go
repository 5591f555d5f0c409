// Package services holds the recommendation and dialogue core: the strategy
// dispatcher, the per-session state machine and the session store.
package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/song-bot/internal/catalog"
	"github.com/ewilliams-labs/song-bot/internal/core/domain"
	"github.com/ewilliams-labs/song-bot/internal/core/ports"
	"github.com/ewilliams-labs/song-bot/internal/intent"
	"github.com/ewilliams-labs/song-bot/internal/memory"
	"github.com/ewilliams-labs/song-bot/internal/metrics"
	"github.com/ewilliams-labs/song-bot/internal/similarity"
)

// ErrEmptyQuery is returned by a strategy when the intent keyword had no argument.
var ErrEmptyQuery = errors.New("service: empty query")

var errNotFound = errors.New("service: no match")

const (
	trackSearchLimit  = 5
	artistSearchLimit = 10
	seedLimit         = 10
	genreSearchLimit  = 50
	genreReplySize    = 5
	contentTopN       = 10
)

// Outcome is the result of dispatching one message in the initial state.
type Outcome struct {
	Reply  string
	Intent domain.Intent
	// Kind is the feedback the reply asks for. FeedbackNone means the session
	// must stay in the initial state.
	Kind domain.FeedbackKind
	// Seed is the seed track id of a recommendation reply.
	Seed string
}

// Strategy handles messages received in the initial state.
type Strategy interface {
	Dispatch(ctx context.Context, message string) Outcome
}

// Dispatcher classifies a message and runs the matching strategy.
type Dispatcher struct {
	lookup     ports.MusicLookup
	responder  ports.Responder
	extractor  ports.EntityExtractor
	catalog    *catalog.Catalog
	ranker     similarity.Ranker
	prefs      *memory.Preferences
	history    *memory.Recommendations
	classifier intent.Classifier
	metrics    *metrics.Metrics
	logger     *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

var _ Strategy = (*Dispatcher)(nil)

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithResponder sets the free-text fallback responder.
func WithResponder(r ports.Responder) DispatcherOption {
	return func(d *Dispatcher) { d.responder = r }
}

// WithExtractor sets the entity extractor feeding the preference profile.
func WithExtractor(e ports.EntityExtractor) DispatcherOption {
	return func(d *Dispatcher) { d.extractor = e }
}

// WithContentSimilarity makes "recommend" rank the local catalog instead of
// asking the lookup API for seed recommendations.
func WithContentSimilarity(c *catalog.Catalog, r similarity.Ranker) DispatcherOption {
	return func(d *Dispatcher) {
		d.catalog = c
		d.ranker = r
	}
}

// WithRand sets the random source used to shuffle genre results.
func WithRand(r *rand.Rand) DispatcherOption {
	return func(d *Dispatcher) { d.rng = r }
}

// WithClassifier replaces the lenient keyword classifier.
func WithClassifier(c intent.Classifier) DispatcherOption {
	return func(d *Dispatcher) { d.classifier = c }
}

// WithDispatcherMetrics sets the metrics sink.
func WithDispatcherMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithDispatcherLogger sets the logger.
func WithDispatcherLogger(l *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(lookup ports.MusicLookup, prefs *memory.Preferences, history *memory.Recommendations, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		lookup:     lookup,
		prefs:      prefs,
		history:    history,
		classifier: intent.Lenient{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.rng == nil {
		// #nosec G404 -- shuffling for variety, not security-sensitive
		d.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return d
}

// Dispatch implements Strategy. It never returns an error: every failure is
// turned into a reply with Kind FeedbackNone.
func (d *Dispatcher) Dispatch(ctx context.Context, message string) Outcome {
	res := d.classifier.Classify(message)

	var (
		out Outcome
		err error
	)
	switch res.Intent {
	case domain.IntentRecommend:
		out, err = d.recommend(ctx, res.Query)
	case domain.IntentSimilarArtist:
		out, err = d.similarArtists(ctx, res.Query)
	case domain.IntentGenre:
		out, err = d.genre(ctx, res.Query)
	default:
		return d.fallback(ctx, message)
	}
	out.Intent = res.Intent

	if err != nil {
		return d.degrade(res.Intent, err)
	}
	if out.Kind != domain.FeedbackNone {
		d.rememberPreferences(message, res)
	}
	return out
}

func (d *Dispatcher) degrade(in domain.Intent, err error) Outcome {
	out := Outcome{Intent: in}
	switch {
	case errors.Is(err, ErrEmptyQuery):
		d.metrics.ObserveStrategyFailure(in.String(), "empty_query")
		switch in {
		case domain.IntentRecommend:
			out.Reply = ReplySpecifySong
		case domain.IntentSimilarArtist:
			out.Reply = ReplySpecifyArtist
		default:
			out.Reply = ReplySpecifyGenre
		}
	case errors.Is(err, errNotFound):
		d.metrics.ObserveStrategyFailure(in.String(), "not_found")
		if in == domain.IntentSimilarArtist {
			out.Reply = ReplyArtistNotFound
		} else {
			out.Reply = ReplySongNotFound
		}
	case errors.Is(err, ports.ErrLookupFailure):
		d.metrics.ObserveStrategyFailure(in.String(), "lookup")
		d.logger.Warn("service: lookup failed", zap.Stringer("intent", in), zap.Error(err))
		out.Reply = ReplyProcessingError
	default:
		d.metrics.ObserveStrategyFailure(in.String(), "error")
		d.logger.Error("service: strategy failed", zap.Stringer("intent", in), zap.Error(err))
		out.Reply = ReplyProcessingError
	}
	return out
}

func (d *Dispatcher) recommend(ctx context.Context, query string) (Outcome, error) {
	if query == "" {
		return Outcome{}, ErrEmptyQuery
	}

	found, err := d.lookup.SearchTracks(ctx, query, trackSearchLimit)
	if err != nil {
		return Outcome{}, fmt.Errorf("service: search track %q: %w", query, err)
	}
	if len(found) == 0 {
		return Outcome{}, errNotFound
	}
	seed := found[0]

	if out, ok := d.recommendFromCatalog(ctx, seed); ok {
		return out, nil
	}

	recs, err := d.lookup.RecommendationsBySeed(ctx, seed.ID, seedLimit)
	if err != nil {
		return Outcome{}, fmt.Errorf("service: recommendations for %s: %w", seed.ID, err)
	}

	return Outcome{
		Reply: formatReply(
			fmt.Sprintf("Here are some songs you might like based on %s:", seed.Label()),
			trackLines(recs),
			promptRecommendations,
		),
		Kind: domain.FeedbackRecommendation,
		Seed: seed.ID,
	}, nil
}

// recommendFromCatalog ranks the local catalog against the seed's features.
// It reports false when content similarity is not configured or the seed has
// no usable features, in which case the caller uses seed recommendations.
func (d *Dispatcher) recommendFromCatalog(ctx context.Context, seed domain.Track) (Outcome, bool) {
	if d.ranker == nil || d.catalog == nil || d.catalog.Len() == 0 {
		return Outcome{}, false
	}

	raw, err := d.seedFeatures(ctx, seed)
	if err != nil {
		d.logger.Debug("service: no features for seed, using seed recommendations",
			zap.String("track", seed.ID), zap.Error(err))
		return Outcome{}, false
	}
	query, err := d.catalog.Normalize(raw)
	if err != nil {
		d.logger.Warn("service: cannot normalize seed features", zap.String("track", seed.ID), zap.Error(err))
		return Outcome{}, false
	}

	matches := d.ranker.Rank(query, contentTopN, func(t domain.Track) bool { return t.ID == seed.ID })
	if len(matches) == 0 {
		return Outcome{}, false
	}
	tracks := make([]domain.Track, len(matches))
	for i, m := range matches {
		tracks[i] = m.Track
	}

	return Outcome{
		Reply: formatReply(
			fmt.Sprintf("Here are some songs you might like based on %s:", seed.Label()),
			trackLines(tracks),
			promptRecommendations,
		),
		Kind: domain.FeedbackRecommendation,
		Seed: seed.ID,
	}, true
}

func (d *Dispatcher) seedFeatures(ctx context.Context, seed domain.Track) (domain.Vector, error) {
	if t, ok := d.catalog.Lookup(seed.ID); ok {
		return t.Features, nil
	}
	if len(seed.Features) > 0 {
		return seed.Features, nil
	}
	f, err := d.lookup.AudioFeatures(ctx, seed.ID)
	if err != nil {
		return nil, err
	}
	if f.IsZero() {
		return nil, ports.ErrFeaturesUnavailable
	}
	return f.Vector(), nil
}

func (d *Dispatcher) similarArtists(ctx context.Context, query string) (Outcome, error) {
	if query == "" {
		return Outcome{}, ErrEmptyQuery
	}

	found, err := d.lookup.SearchArtists(ctx, query, artistSearchLimit)
	if err != nil {
		return Outcome{}, fmt.Errorf("service: search artist %q: %w", query, err)
	}
	if len(found) == 0 {
		return Outcome{}, errNotFound
	}
	artist := found[0]

	related, err := d.lookup.RelatedArtists(ctx, artist.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("service: related artists for %s: %w", artist.ID, err)
	}
	names := make([]string, len(related))
	for i, a := range related {
		names[i] = a.Name
	}

	return Outcome{
		Reply: formatReply(
			fmt.Sprintf("Here are some artists you might like based on %s:", artist.Name),
			names,
			promptArtists,
		),
		Kind: domain.FeedbackArtist,
	}, nil
}

func (d *Dispatcher) genre(ctx context.Context, genre string) (Outcome, error) {
	if genre == "" {
		return Outcome{}, ErrEmptyQuery
	}

	results, err := d.lookup.SearchByGenre(ctx, genre, genreSearchLimit)
	if err != nil {
		return Outcome{}, fmt.Errorf("service: genre search %q: %w", genre, err)
	}

	picked := d.pickGenreTracks(genre, d.shuffle(results))
	if picked.Len() == 0 {
		return Outcome{Reply: replyGenreExhausted(genre)}, nil
	}

	return Outcome{
		Reply: formatReply(
			fmt.Sprintf("Here are some songs in the %s genre:", genre),
			trackLines(picked.Tracks),
			promptGenre,
		),
		Kind: domain.FeedbackGenre,
	}, nil
}

// pickGenreTracks selects up to genreReplySize tracks with distinct primary
// artists whose ids were never shown for genre, recording them as shown. The
// check and the record happen under the genre's lock.
func (d *Dispatcher) pickGenreTracks(genre string, candidates []domain.Track) *domain.Selection {
	picked, _ := domain.NewSelection(genreReplySize)
	d.history.WithGenre(genre, func(l memory.Ledger) {
		for _, t := range candidates {
			if picked.Full() {
				return
			}
			if t.ID == "" || l.Seen(t.ID) {
				continue
			}
			if err := picked.Add(t); err != nil {
				continue
			}
			l.Record(t.ID)
		}
	})
	return picked
}

// shuffle returns a permuted copy of tracks.
func (d *Dispatcher) shuffle(tracks []domain.Track) []domain.Track {
	out := make([]domain.Track, len(tracks))
	copy(out, tracks)

	d.rngMu.Lock()
	defer d.rngMu.Unlock()
	d.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func (d *Dispatcher) fallback(ctx context.Context, message string) Outcome {
	out := Outcome{Intent: domain.IntentFallback}
	if d.responder == nil {
		out.Reply = ReplyUsage
		return out
	}

	answer, err := d.responder.Answer(ctx, message)
	if err == nil {
		out.Reply = answer
		return out
	}

	kind := ports.ResponderOther
	var rerr *ports.ResponderError
	if errors.As(err, &rerr) {
		kind = rerr.Kind
	}
	d.metrics.ObserveStrategyFailure(domain.IntentFallback.String(), kind.String())
	d.logger.Error("service: responder failed", zap.Stringer("kind", kind), zap.Error(err))

	switch kind {
	case ports.ResponderRateLimited:
		out.Reply = ReplyRateLimited
	case ports.ResponderQuotaExceeded:
		out.Reply = ReplyQuotaExceeded
	default:
		out.Reply = ReplyResponderDown
	}
	return out
}

func (d *Dispatcher) rememberPreferences(message string, res intent.Result) {
	if d.prefs == nil {
		return
	}
	if d.extractor != nil {
		genres, _ := d.extractor.Extract(message)
		d.prefs.AddGenres(genres...)
	}
	if res.Intent == domain.IntentGenre {
		d.prefs.AddGenres(res.Query)
	}
}

func trackLines(tracks []domain.Track) []string {
	lines := make([]string, len(tracks))
	for i, t := range tracks {
		lines[i] = t.Label()
	}
	return lines
}

func formatReply(header string, lines []string, prompt string) string {
	var b strings.Builder
	b.WriteString(header)
	for _, l := range lines {
		b.WriteByte('\n')
		b.WriteString(l)
	}
	b.WriteByte('\n')
	b.WriteString(prompt)
	return b.String()
}
