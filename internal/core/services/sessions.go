package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ewilliams-labs/song-bot/internal/core/domain"
)

// TurnResult is what Assistant.HandleTurn returns to a driving adapter.
type TurnResult struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"message"`
	State     string `json:"state"`
}

type sessionEntry struct {
	mu       sync.Mutex // serializes turns of one session
	sess     *domain.Session
	lastSeen time.Time

	active int // turns holding or waiting for mu, guarded by Assistant.mu
}

// Assistant keeps sessions keyed by id and runs one turn at a time per
// session. Different sessions proceed concurrently.
type Assistant struct {
	controller *Controller
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

// NewAssistant constructs an Assistant around controller.
func NewAssistant(controller *Controller) *Assistant {
	return &Assistant{
		controller: controller,
		now:        time.Now,
		sessions:   make(map[string]*sessionEntry),
	}
}

// HandleTurn processes message for sessionID. An empty id starts a new session
// whose generated id is returned in the result.
func (a *Assistant) HandleTurn(ctx context.Context, sessionID, message string) TurnResult {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	e := a.entry(sessionID)
	defer a.release(e)

	e.mu.Lock()
	defer e.mu.Unlock()

	reply := a.controller.Turn(ctx, e.sess, message)
	e.lastSeen = a.now()
	return TurnResult{SessionID: sessionID, Reply: reply, State: e.sess.Label()}
}

// Session returns a copy of the stored session.
func (a *Assistant) Session(sessionID string) (domain.Session, bool) {
	a.mu.Lock()
	e, ok := a.sessions[sessionID]
	a.mu.Unlock()
	if !ok {
		return domain.Session{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.sess, true
}

// End forgets a session. It reports whether the session existed.
func (a *Assistant) End(sessionID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.sessions[sessionID]
	delete(a.sessions, sessionID)
	return ok
}

// Prune forgets sessions idle for longer than ttl and returns how many.
func (a *Assistant) Prune(ttl time.Duration) int {
	cutoff := a.now().Add(-ttl)

	a.mu.Lock()
	defer a.mu.Unlock()

	pruned := 0
	for id, e := range a.sessions {
		if e.active > 0 || !e.mu.TryLock() {
			continue // mid-turn
		}
		idle := e.lastSeen.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(a.sessions, id)
			pruned++
		}
	}
	return pruned
}

// Len returns the number of live sessions.
func (a *Assistant) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sessions)
}

// entry returns the session's entry, creating it if needed, and claims it so
// Prune leaves it alone until release.
func (a *Assistant) entry(sessionID string) *sessionEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.sessions[sessionID]
	if !ok {
		e = &sessionEntry{sess: domain.NewSession(sessionID), lastSeen: a.now()}
		a.sessions[sessionID] = e
	}
	e.active++
	return e
}

func (a *Assistant) release(e *sessionEntry) {
	a.mu.Lock()
	e.active--
	a.mu.Unlock()
}
