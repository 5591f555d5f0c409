package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/song-bot/internal/core/domain"
)

func TestAssistant_NewSession(t *testing.T) {
	a := NewAssistant(NewController(&stubStrategy{out: Outcome{Reply: "ok", Kind: domain.FeedbackArtist}}, nil))

	res := a.HandleTurn(context.Background(), "", "similar artist abba")

	_, err := uuid.Parse(res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Reply)
	assert.Equal(t, "awaiting_feedback:artist", res.State)

	res = a.HandleTurn(context.Background(), res.SessionID, "yes")
	assert.Equal(t, ReplyContinuePrompt, res.Reply)
	assert.Equal(t, "awaiting_continue", res.State)
	assert.Equal(t, 1, a.Len())
}

func TestAssistant_SessionsAreIndependent(t *testing.T) {
	a := NewAssistant(NewController(&stubStrategy{out: Outcome{Reply: "ok", Kind: domain.FeedbackGenre}}, nil))
	ctx := context.Background()

	a.HandleTurn(ctx, "a", "genre pop")

	// b has no pending prompt, so its "yes" is dispatched as a new request
	// rather than read as feedback.
	res := a.HandleTurn(ctx, "b", "yes")
	assert.Equal(t, "ok", res.Reply)
	assert.Equal(t, "awaiting_feedback:genre", res.State)

	sa, ok := a.Session("a")
	require.True(t, ok)
	assert.Equal(t, domain.StateAwaitingFeedback, sa.State)
	assert.Equal(t, domain.FeedbackGenre, sa.Kind)
	assert.Zero(t, sa.Clarifications)

	res = a.HandleTurn(ctx, "a", "yes")
	assert.Equal(t, ReplyContinuePrompt, res.Reply)
	sb, ok := a.Session("b")
	require.True(t, ok)
	assert.Equal(t, domain.StateAwaitingFeedback, sb.State, "a's answer leaves b untouched")

	assert.True(t, a.End("a"))
	assert.False(t, a.End("a"))
	_, ok = a.Session("a")
	assert.False(t, ok)
}

// countingStrategy is safe for concurrent dispatch.
type countingStrategy struct {
	mu    sync.Mutex
	calls int
}

func (s *countingStrategy) Dispatch(ctx context.Context, message string) Outcome {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return Outcome{Reply: "ok", Kind: domain.FeedbackGenre}
}

func TestAssistant_ConcurrentTurnsSerializePerSession(t *testing.T) {
	strategy := &countingStrategy{}
	a := NewAssistant(NewController(strategy, nil))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.HandleTurn(context.Background(), "shared", "genre pop")
		}()
	}
	wg.Wait()

	// The first turn moves the session to awaiting feedback, and the rest
	// read "genre pop" as an unclear answer.
	assert.Equal(t, 1, strategy.calls)
	sess, ok := a.Session("shared")
	require.True(t, ok)
	assert.Equal(t, 19, sess.Clarifications)
}

func TestAssistant_Prune(t *testing.T) {
	a := NewAssistant(NewController(&stubStrategy{}, nil))
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	a.HandleTurn(context.Background(), "old", "hi")
	now = now.Add(time.Hour)
	a.HandleTurn(context.Background(), "fresh", "hi")

	assert.Equal(t, 1, a.Prune(30*time.Minute))
	assert.Equal(t, 1, a.Len())
	_, ok := a.Session("fresh")
	assert.True(t, ok)
}

func TestAssistant_PruneSkipsClaimedSession(t *testing.T) {
	a := NewAssistant(NewController(&stubStrategy{}, nil))
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	a.HandleTurn(context.Background(), "idle", "hi")
	now = now.Add(time.Hour)

	// A turn has looked the entry up but not yet locked it.
	e := a.entry("idle")
	assert.Zero(t, a.Prune(30*time.Minute))
	_, ok := a.Session("idle")
	assert.True(t, ok)

	a.release(e)
	assert.Equal(t, 1, a.Prune(30*time.Minute))
	assert.Zero(t, a.Len())
}
