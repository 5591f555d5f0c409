package domain

import "fmt"

// State is a dialogue state.
type State int

const (
	StateInitial State = iota
	StateAwaitingFeedback
	StateAwaitingContinue
)

func (s State) String() string {
	switch s {
	case StateAwaitingFeedback:
		return "awaiting_feedback"
	case StateAwaitingContinue:
		return "awaiting_continue"
	default:
		return "initial"
	}
}

// FeedbackKind says which kind of suggestion a feedback prompt refers to.
type FeedbackKind int

const (
	FeedbackNone FeedbackKind = iota
	FeedbackRecommendation
	FeedbackArtist
	FeedbackGenre
)

func (k FeedbackKind) String() string {
	switch k {
	case FeedbackRecommendation:
		return "recommendation"
	case FeedbackArtist:
		return "artist"
	case FeedbackGenre:
		return "genre"
	default:
		return "none"
	}
}

// Session is the conversational state of one user. It is owned by exactly
// one conversation and must not be shared between concurrent turns.
type Session struct {
	ID    string
	State State
	Kind  FeedbackKind // set while State is StateAwaitingFeedback

	// LastSeed is the seed track id of the most recent recommendation reply.
	LastSeed string
	// Clarifications counts consecutive replies that were neither yes nor no.
	Clarifications int
}

// NewSession returns a session in the initial state.
func NewSession(id string) *Session {
	return &Session{ID: id, State: StateInitial}
}

// Label renders the state the way the REST adapter reports it, e.g.
// "awaiting_feedback:genre".
func (s Session) Label() string {
	if s.State == StateAwaitingFeedback {
		return fmt.Sprintf("%s:%s", s.State, s.Kind)
	}
	return s.State.String()
}

// AwaitFeedback moves the session to AwaitingFeedback(kind).
func (s *Session) AwaitFeedback(kind FeedbackKind) {
	s.State = StateAwaitingFeedback
	s.Kind = kind
	s.Clarifications = 0
}

// AwaitContinue moves the session to AwaitingContinue.
func (s *Session) AwaitContinue() {
	s.State = StateAwaitingContinue
	s.Kind = FeedbackNone
	s.Clarifications = 0
}

// Reset returns the session to the initial state.
func (s *Session) Reset() {
	s.State = StateInitial
	s.Kind = FeedbackNone
	s.Clarifications = 0
}
