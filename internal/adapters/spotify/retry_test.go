package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/ewilliams-labs/song-bot/internal/core/ports"
)

// statusServer answers with statuses in order, repeating the last one.
func statusServer(t *testing.T, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(hits.Add(1))
		if n > len(statuses) {
			n = len(statuses)
		}
		w.WriteHeader(statuses[n-1])
	}))
	t.Cleanup(ts.Close)
	return ts, &hits
}

func TestFetch(t *testing.T) {
	tests := []struct {
		name       string
		statuses   []int
		attempts   int
		wantStatus int // response status on success
		wantErr    int // LookupError.Status on failure
		wantHits   int32
	}{
		{name: "recovers from 503", statuses: []int{503, 503, 200}, attempts: 3, wantStatus: 200, wantHits: 3},
		{name: "429 until exhausted", statuses: []int{429}, attempts: 2, wantErr: 429, wantHits: 2},
		{name: "500 until exhausted", statuses: []int{500}, attempts: 3, wantErr: 500, wantHits: 3},
		{name: "404 is final", statuses: []int{404}, attempts: 3, wantStatus: 404, wantHits: 1},
		{name: "single attempt", statuses: []int{502, 200}, attempts: 1, wantErr: 502, wantHits: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, hits := statusServer(t, tt.statuses...)
			client := NewClientWithBaseURL(http.DefaultClient, ts.URL, WithRetry(tt.attempts, time.Millisecond))

			resp, err := client.fetch(context.Background(), "search tracks", ts.URL)
			if tt.wantErr != 0 {
				var lerr *ports.LookupError
				if !errors.As(err, &lerr) {
					t.Fatalf("expected *ports.LookupError, got %v", err)
				}
				if lerr.Status != tt.wantErr || lerr.Op != "search tracks" {
					t.Fatalf("error: got op %q status %d, want status %d", lerr.Op, lerr.Status, tt.wantErr)
				}
				if resp != nil {
					t.Fatal("expected no response on failure")
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				resp.Body.Close()
				if resp.StatusCode != tt.wantStatus {
					t.Fatalf("status: got %d, want %d", resp.StatusCode, tt.wantStatus)
				}
			}
			if got := hits.Load(); got != tt.wantHits {
				t.Fatalf("hits: got %d, want %d", got, tt.wantHits)
			}
		})
	}
}

func TestFetch_RateLimitAppliesToRetries(t *testing.T) {
	ts, hits := statusServer(t, 503, 503, 200)
	// One token every 50ms: the two retries must each wait for a fresh token.
	client := NewClientWithBaseURL(http.DefaultClient, ts.URL,
		WithRetry(3, time.Millisecond), WithRateLimit(20, 1))

	start := time.Now()
	resp, err := client.fetch(context.Background(), "search tracks", ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if hits.Load() != 3 {
		t.Fatalf("hits: got %d, want 3", hits.Load())
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Fatalf("retries bypassed the limiter: finished in %v", elapsed)
	}
}

func TestFetch_CanceledContext(t *testing.T) {
	ts, hits := statusServer(t, 200)
	client := NewClientWithBaseURL(http.DefaultClient, ts.URL, WithRetry(3, time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.fetch(ctx, "search tracks", ts.URL)
	if !errors.Is(err, context.Canceled) || !errors.Is(err, ports.ErrLookupFailure) {
		t.Fatalf("expected canceled lookup failure, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("hits: got %d, want 0", hits.Load())
	}
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		name    string
		base    time.Duration
		attempt int
		hint    time.Duration
		want    time.Duration
	}{
		{name: "first retry", base: 100 * time.Millisecond, attempt: 1, want: 100 * time.Millisecond},
		{name: "doubles", base: 100 * time.Millisecond, attempt: 3, want: 400 * time.Millisecond},
		{name: "default base", attempt: 2, want: time.Second},
		{name: "capped", base: time.Second, attempt: 8, want: maxRetryDelay},
		{name: "overflow", base: time.Second, attempt: 70, want: maxRetryDelay},
		{name: "hint wins", base: time.Millisecond, attempt: 1, hint: 2 * time.Second, want: 2 * time.Second},
		{name: "hint capped", base: time.Millisecond, attempt: 1, hint: time.Hour, want: maxRetryDelay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := backoffDelay(tt.base, tt.attempt, tt.hint); got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{"-4", 0},
		{"soon", 0},
		{"Mon, 02 Jan 2006 15:04:05 GMT", 0},
	}
	for _, tt := range tests {
		h := http.Header{}
		if tt.value != "" {
			h.Set("Retry-After", tt.value)
		}
		if got := retryAfter(h); got != tt.want {
			t.Fatalf("Retry-After %q: got %v, want %v", tt.value, got, tt.want)
		}
	}

	h := http.Header{"Retry-After": {time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)}}
	if got := retryAfter(h); got <= 0 || got > time.Minute {
		t.Fatalf("future date: got %v", got)
	}
}

func TestRetryFromEnv(t *testing.T) {
	t.Setenv("SPOTIFY_MAX_RETRIES", "5")
	t.Setenv("SPOTIFY_RETRY_BACKOFF_MS", "nope")
	attempts, backoff := retryFromEnv()
	if attempts != 5 || backoff != defaultBackoffMs*time.Millisecond {
		t.Fatalf("got %d attempts, %v backoff", attempts, backoff)
	}
}

func TestSearchTracks_KeepsUpstreamStatus(t *testing.T) {
	ts, _ := statusServer(t, http.StatusTooManyRequests)
	client := NewClientWithBaseURL(http.DefaultClient, ts.URL, WithRetry(2, time.Millisecond))

	_, err := client.SearchTracks(context.Background(), "x", 1)
	var lerr *ports.LookupError
	if !errors.As(err, &lerr) || lerr.Status != http.StatusTooManyRequests {
		t.Fatalf("expected status 429 in lookup error, got %v", err)
	}
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	ts, hits := statusServer(t, http.StatusBadGateway)
	client := NewClientWithBaseURL(http.DefaultClient, ts.URL, WithRetry(1, time.Millisecond))

	for i := 0; i < 5; i++ {
		if _, err := client.SearchTracks(context.Background(), "x", 1); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}

	_, err := client.SearchTracks(context.Background(), "x", 1)
	if !errors.Is(err, gobreaker.ErrOpenState) || !errors.Is(err, ports.ErrLookupFailure) {
		t.Fatalf("expected open breaker, got %v", err)
	}
	if hits.Load() != 5 {
		t.Fatalf("hits: got %d, want 5", hits.Load())
	}
}

func TestCircuitBreakerIgnoresCanceledCalls(t *testing.T) {
	ts, hits := statusServer(t, http.StatusBadGateway)
	client := NewClientWithBaseURL(http.DefaultClient, ts.URL, WithRetry(1, time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 10; i++ {
		_, _ = client.SearchTracks(ctx, "x", 1)
	}

	_, err := client.SearchTracks(context.Background(), "x", 1)
	if errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatal("breaker opened on caller cancellations")
	}
	if hits.Load() != 1 {
		t.Fatalf("hits: got %d, want 1", hits.Load())
	}
}
