package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ewilliams-labs/song-bot/internal/core/domain"
	"github.com/ewilliams-labs/song-bot/internal/core/services"
	"github.com/ewilliams-labs/song-bot/internal/memory"
	"github.com/ewilliams-labs/song-bot/internal/metrics"
)

// --- Mocks ---

// mockLookup answers every search with one canned track or artist.
type mockLookup struct{}

func (mockLookup) SearchTracks(ctx context.Context, q string, limit int) ([]domain.Track, error) {
	return []domain.Track{{ID: "seed", Title: "Thriller", Artist: "Michael Jackson"}}, nil
}

func (mockLookup) SearchArtists(ctx context.Context, q string, limit int) ([]domain.Artist, error) {
	return nil, nil
}

func (mockLookup) RelatedArtists(ctx context.Context, id string) ([]domain.Artist, error) {
	return nil, nil
}

func (mockLookup) RecommendationsBySeed(ctx context.Context, id string, limit int) ([]domain.Track, error) {
	return []domain.Track{{ID: "r1", Title: "Billie Jean", Artist: "Michael Jackson"}}, nil
}

func (mockLookup) SearchByGenre(ctx context.Context, g string, limit int) ([]domain.Track, error) {
	return []domain.Track{{ID: "g1", Title: "Song", Artist: "Band"}}, nil
}

func (mockLookup) AudioFeatures(ctx context.Context, id string) (domain.AudioFeatures, error) {
	return domain.AudioFeatures{}, nil
}

func newTestHandler(t *testing.T) (*Handler, *memory.Preferences) {
	t.Helper()
	prefs := memory.NewPreferences()
	m := metrics.New()
	d := services.NewDispatcher(mockLookup{}, prefs, memory.NewRecommendations(),
		services.WithRand(rand.New(rand.NewSource(1))), services.WithDispatcherMetrics(m))
	c := services.NewController(d, prefs, services.WithControllerMetrics(m))
	return NewHandler(services.NewAssistant(c), WithPreferences(prefs), WithMetricsHandler(m.Handler())), prefs
}

func postChat(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestHealthCheck(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestChat_Validation(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
	}{
		{name: "wrong content type", contentType: "text/plain", body: `{"message":"hi"}`, wantStatus: http.StatusUnsupportedMediaType},
		{name: "invalid json", contentType: "application/json", body: `{`, wantStatus: http.StatusBadRequest},
		{name: "empty message", contentType: "application/json", body: `{"message":"   "}`, wantStatus: http.StatusBadRequest},
		{name: "charset is fine", contentType: "application/json; charset=utf-8", body: `{"message":"hi"}`, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t)
			req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestChat_Conversation(t *testing.T) {
	h, prefs := newTestHandler(t)

	rec := postChat(t, h, `{"message":"recommend thriller"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var first services.TurnResult
	if err := json.NewDecoder(rec.Body).Decode(&first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.SessionID == "" {
		t.Fatal("expected a generated session id")
	}
	if first.State != "awaiting_feedback:recommendation" {
		t.Fatalf("state: got %q", first.State)
	}
	if !strings.Contains(first.Reply, "Michael Jackson - Billie Jean") {
		t.Fatalf("reply: %q", first.Reply)
	}

	rec = postChat(t, h, `{"session_id":"`+first.SessionID+`","message":"yes"}`)
	var second services.TurnResult
	if err := json.NewDecoder(rec.Body).Decode(&second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if second.Reply != services.ReplyContinuePrompt || second.State != "awaiting_continue" {
		t.Fatalf("unexpected second turn: %+v", second)
	}
	if got := prefs.Snapshot().LikedSongs; len(got) != 1 || got[0] != "seed" {
		t.Fatalf("liked songs: %v", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat/"+first.SessionID, nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "awaiting_continue") {
		t.Fatalf("get session: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/chat/"+first.SessionID, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/chat/"+first.SessionID, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", rec.Code)
	}
}

func TestPreferencesAndMetrics(t *testing.T) {
	h, _ := newTestHandler(t)
	postChat(t, h, `{"message":"genre Disco"}`)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/preferences", nil))
	if !strings.Contains(rec.Body.String(), `"disco"`) {
		t.Fatalf("preferences: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `songbot_turns_total{intent="genre"} 1`) {
		t.Fatalf("metrics body missing turn counter")
	}
}
