// Package intent classifies user messages. All keyword and yes/no matching
// lives here so a stricter tokenizer can replace the lenient substring rules
// without touching the dialogue state machine.
package intent

import (
	"strings"

	"github.com/ewilliams-labs/song-bot/internal/core/domain"
)

// priority is the fixed evaluation order of intent keywords.
var priority = []domain.Intent{
	domain.IntentRecommend,
	domain.IntentSimilarArtist,
	domain.IntentGenre,
}

// Result is a classified message.
type Result struct {
	Intent domain.Intent
	// Query is the lowercased message with the keyword removed and trimmed.
	// For IntentFallback it is the original message.
	Query string
}

// Answer is the reading of a reply to a yes/no prompt.
type Answer int

const (
	AnswerNone Answer = iota
	AnswerYes
	AnswerNo
)

func (a Answer) String() string {
	switch a {
	case AnswerYes:
		return "yes"
	case AnswerNo:
		return "no"
	default:
		return "none"
	}
}

// Classifier turns raw text into intents and yes/no answers.
type Classifier interface {
	Classify(message string) Result
	Feedback(message string) Answer
}

// Lenient matches keywords as case-insensitive substrings. "nope" reads as no
// and "yesterday" as yes.
type Lenient struct{}

var _ Classifier = Lenient{}

// Classify implements Classifier.
func (Lenient) Classify(message string) Result {
	lowered := strings.ToLower(message)
	for _, in := range priority {
		kw := in.Keyword()
		if strings.Contains(lowered, kw) {
			return Result{
				Intent: in,
				Query:  strings.TrimSpace(strings.ReplaceAll(lowered, kw, "")),
			}
		}
	}
	return Result{Intent: domain.IntentFallback, Query: message}
}

// Feedback implements Classifier. "yes" wins when both substrings appear.
func (Lenient) Feedback(message string) Answer {
	lowered := strings.ToLower(message)
	switch {
	case strings.Contains(lowered, "yes"):
		return AnswerYes
	case strings.Contains(lowered, "no"):
		return AnswerNo
	default:
		return AnswerNone
	}
}

// Classify runs the default lenient classifier.
func Classify(message string) Result { return Lenient{}.Classify(message) }

// Feedback runs the default lenient yes/no reading.
func Feedback(message string) Answer { return Lenient{}.Feedback(message) }
