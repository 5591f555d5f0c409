package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/ewilliams-labs/song-bot/internal/core/domain"
)

// --- Mocks ---

// mockLookup is a canned ports.MusicLookup that records which operations ran.
type mockLookup struct {
	mu sync.Mutex

	tracks      []domain.Track
	tracksErr   error
	artists     []domain.Artist
	artistsErr  error
	related     []domain.Artist
	relatedErr  error
	recs        []domain.Track
	recsErr     error
	genre       []domain.Track
	genreErr    error
	features    map[string]domain.AudioFeatures
	featuresErr error

	calls      []string
	recLimit   int
	genreLimit int
	genreQuery string
}

func (m *mockLookup) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, op)
}

func (m *mockLookup) called(op string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.calls {
		if c == op {
			return true
		}
	}
	return false
}

func (m *mockLookup) SearchTracks(ctx context.Context, query string, limit int) ([]domain.Track, error) {
	m.record("search_tracks")
	return m.tracks, m.tracksErr
}

func (m *mockLookup) SearchArtists(ctx context.Context, query string, limit int) ([]domain.Artist, error) {
	m.record("search_artists")
	return m.artists, m.artistsErr
}

func (m *mockLookup) RelatedArtists(ctx context.Context, artistID string) ([]domain.Artist, error) {
	m.record("related_artists")
	return m.related, m.relatedErr
}

func (m *mockLookup) RecommendationsBySeed(ctx context.Context, trackID string, limit int) ([]domain.Track, error) {
	m.record("recommendations")
	m.mu.Lock()
	m.recLimit = limit
	m.mu.Unlock()
	return m.recs, m.recsErr
}

func (m *mockLookup) SearchByGenre(ctx context.Context, genre string, limit int) ([]domain.Track, error) {
	m.record("search_genre")
	m.mu.Lock()
	m.genreLimit = limit
	m.genreQuery = genre
	m.mu.Unlock()
	return m.genre, m.genreErr
}

func (m *mockLookup) AudioFeatures(ctx context.Context, trackID string) (domain.AudioFeatures, error) {
	m.record("audio_features")
	if m.featuresErr != nil {
		return domain.AudioFeatures{}, m.featuresErr
	}
	return m.features[trackID], nil
}

// mockResponder returns a canned answer or error.
type mockResponder struct {
	answer string
	err    error
	got    string
}

func (m *mockResponder) Answer(ctx context.Context, message string) (string, error) {
	m.got = message
	return m.answer, m.err
}

// mockExtractor tags fixed genres.
type mockExtractor struct {
	genres []string
}

func (m mockExtractor) Extract(message string) ([]string, []string) {
	return m.genres, nil
}

// panicStrategy blows up on every dispatch.
type panicStrategy struct{}

func (panicStrategy) Dispatch(ctx context.Context, message string) Outcome {
	panic("boom")
}

func numberedTracks(prefix string, n int, artistOf func(i int) string) []domain.Track {
	out := make([]domain.Track, n)
	for i := range out {
		out[i] = domain.Track{
			ID:     fmt.Sprintf("%s%02d", prefix, i),
			Title:  fmt.Sprintf("Song %s%02d", prefix, i),
			Artist: artistOf(i),
		}
	}
	return out
}
