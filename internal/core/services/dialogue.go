package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/song-bot/internal/core/domain"
	"github.com/ewilliams-labs/song-bot/internal/intent"
	"github.com/ewilliams-labs/song-bot/internal/memory"
	"github.com/ewilliams-labs/song-bot/internal/metrics"
)

const defaultTurnTimeout = 20 * time.Second

// Controller is the dialogue state machine. It holds no per-session data: the
// session is passed into every Turn and the caller persists it.
type Controller struct {
	strategy          Strategy
	classifier        intent.Classifier
	prefs             *memory.Preferences
	metrics           *metrics.Metrics
	logger            *zap.Logger
	turnTimeout       time.Duration
	maxClarifications int
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithTurnTimeout bounds every turn. Zero disables the bound.
func WithTurnTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) { c.turnTimeout = d }
}

// WithMaxClarifications resets a session to the initial state after n
// consecutive replies that were neither yes nor no. Zero means unbounded.
func WithMaxClarifications(n int) ControllerOption {
	return func(c *Controller) { c.maxClarifications = n }
}

// WithFeedbackClassifier replaces the lenient yes/no reading.
func WithFeedbackClassifier(cl intent.Classifier) ControllerOption {
	return func(c *Controller) { c.classifier = cl }
}

// WithControllerMetrics sets the metrics sink.
func WithControllerMetrics(m *metrics.Metrics) ControllerOption {
	return func(c *Controller) { c.metrics = m }
}

// WithControllerLogger sets the logger.
func WithControllerLogger(l *zap.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// NewController constructs a Controller. prefs may be nil.
func NewController(strategy Strategy, prefs *memory.Preferences, opts ...ControllerOption) *Controller {
	c := &Controller{
		strategy:    strategy,
		classifier:  intent.Lenient{},
		prefs:       prefs,
		logger:      zap.NewNop(),
		turnTimeout: defaultTurnTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Turn processes one message for sess, advances its state and returns the
// reply. Turn never fails: a panic anywhere below restores sess to its
// pre-turn value and yields the generic error reply.
func (c *Controller) Turn(ctx context.Context, sess *domain.Session, message string) (reply string) {
	before := *sess
	defer func() {
		if r := recover(); r != nil {
			*sess = before
			c.metrics.ObserveTurn("panic")
			c.logger.Error("service: turn panicked", zap.String("session", sess.ID), zap.Any("panic", r))
			reply = ReplyProcessingError
		}
	}()

	if c.turnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.turnTimeout)
		defer cancel()
	}

	switch sess.State {
	case domain.StateInitial:
		return c.listen(ctx, sess, message)
	case domain.StateAwaitingFeedback:
		c.metrics.ObserveTurn("feedback")
		return c.feedback(sess, message)
	case domain.StateAwaitingContinue:
		c.metrics.ObserveTurn("continue")
		return c.continuePrompt(sess, message)
	default:
		c.logger.Warn("service: unknown session state, resetting", zap.String("session", sess.ID), zap.Int("state", int(sess.State)))
		sess.Reset()
		return ReplyProcessingError
	}
}

func (c *Controller) listen(ctx context.Context, sess *domain.Session, message string) string {
	if strings.TrimSpace(message) == "" {
		c.metrics.ObserveTurn("empty")
		return ReplyUsage
	}

	out := c.strategy.Dispatch(ctx, message)
	c.metrics.ObserveTurn(out.Intent.String())
	c.logger.Debug("service: dispatched",
		zap.String("session", sess.ID),
		zap.Stringer("intent", out.Intent),
		zap.Stringer("awaiting", out.Kind))

	if out.Kind != domain.FeedbackNone {
		sess.AwaitFeedback(out.Kind)
		sess.LastSeed = out.Seed
	}
	return out.Reply
}

func (c *Controller) feedback(sess *domain.Session, message string) string {
	switch c.classifier.Feedback(message) {
	case intent.AnswerYes:
		if sess.Kind == domain.FeedbackRecommendation && c.prefs != nil {
			c.prefs.AddLikedSong(sess.LastSeed)
		}
		sess.AwaitContinue()
		return ReplyContinuePrompt
	case intent.AnswerNo:
		sess.Reset()
		return ReplyFeedbackClosing
	default:
		return c.clarify(sess)
	}
}

func (c *Controller) continuePrompt(sess *domain.Session, message string) string {
	switch c.classifier.Feedback(message) {
	case intent.AnswerYes:
		sess.Reset()
		return ReplyUsage
	case intent.AnswerNo:
		sess.Reset()
		return ReplyGoodbye
	default:
		return c.clarify(sess)
	}
}

func (c *Controller) clarify(sess *domain.Session) string {
	sess.Clarifications++
	if c.maxClarifications > 0 && sess.Clarifications >= c.maxClarifications {
		sess.Reset()
		return ReplyUsage
	}
	return ReplyAnswerYesNo
}
