package ports

import (
	"context"
	"errors"
	"fmt"
)

// ErrResponderFailure indicates the free-text responder failed.
var ErrResponderFailure = errors.New("responder failure")

// ResponderFailureKind subdivides responder failures.
type ResponderFailureKind int

const (
	ResponderOther ResponderFailureKind = iota
	ResponderRateLimited
	ResponderQuotaExceeded
)

func (k ResponderFailureKind) String() string {
	switch k {
	case ResponderRateLimited:
		return "rate_limited"
	case ResponderQuotaExceeded:
		return "quota_exceeded"
	default:
		return "other"
	}
}

// ResponderError is returned by Responder implementations.
type ResponderError struct {
	Kind ResponderFailureKind
	Err  error
}

func (e *ResponderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s (%s)", ErrResponderFailure, e.Kind)
	}
	return fmt.Sprintf("%s (%s): %v", ErrResponderFailure, e.Kind, e.Err)
}

func (e *ResponderError) Unwrap() error { return e.Err }

func (e *ResponderError) Is(target error) bool {
	return target == ErrResponderFailure
}

// Responder answers free text that matched no intent.
type Responder interface {
	Answer(ctx context.Context, message string) (string, error)
}

// EntityExtractor tags genres and artists mentioned in a message.
type EntityExtractor interface {
	Extract(message string) (genres []string, artists []string)
}
