package llm

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an upstream failure. Adapters tag every error they return
// with one of these kinds; the retry policy only looks at the tag.
type Kind int

const (
	// KindFatal marks permanent failures: bad request, auth, unparseable response.
	KindFatal Kind = iota
	// KindTransient marks failures that may succeed on retry: connection errors, 429, 5xx.
	KindTransient
	// KindCanceled marks calls abandoned because the context ended.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindCanceled:
		return "canceled"
	default:
		return "fatal"
	}
}

// ErrRetriesExhausted is returned when every attempt failed with a transient error.
var ErrRetriesExhausted = errors.New("generation retries exhausted")

// Error is an upstream error tagged with its Kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s upstream error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &Error{Kind: KindTransient, Err: err}
}

// NewFatalError wraps an error as fatal (non-retryable).
func NewFatalError(err error) error {
	return &Error{Kind: KindFatal, Err: err}
}

// KindOf returns the kind of err. Untagged errors are fatal unless they come
// from context cancellation.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	return KindFatal
}

// IsTransient returns true if the error is transient and should be retried.
func IsTransient(err error) bool {
	return err != nil && KindOf(err) == KindTransient
}

// IsFatal returns true if the error is fatal and should not be retried.
func IsFatal(err error) bool {
	return err != nil && KindOf(err) == KindFatal
}
