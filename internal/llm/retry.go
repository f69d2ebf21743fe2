package llm

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy decides how often and how long the client retries a call.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// Base is the delay after the first failed attempt.
	Base time.Duration

	// Multiplier grows the delay between attempts.
	Multiplier float64

	// MaxBackoff caps a single delay. Zero means no cap.
	MaxBackoff time.Duration

	// Retryable reports whether err may succeed on another attempt.
	// Nil means IsTransient.
	Retryable func(err error) bool
}

// DefaultRetryPolicy returns three attempts with 1s, 2s backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Base:        time.Second,
		Multiplier:  2.0,
		MaxBackoff:  30 * time.Second,
		Retryable:   IsTransient,
	}
}

// Delay returns the wait after the failed attempt with 0-based index i:
// Base × Multiplier^i, capped at MaxBackoff.
func (p RetryPolicy) Delay(i int) time.Duration {
	mult := p.Multiplier
	if mult <= 0 {
		mult = 2.0
	}
	d := float64(p.Base)
	for n := 0; n < i; n++ {
		d *= mult
	}
	backoff := time.Duration(d)
	if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
		backoff = p.MaxBackoff
	}
	return backoff
}

func (p RetryPolicy) retryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return IsTransient(err)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// policy runs out of attempts. onRetry, if set, is called before each wait.
func Do[T any](ctx context.Context, p RetryPolicy, sleep SleepFunc, onRetry func(attempt int, delay time.Duration, err error), fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if sleep == nil {
		sleep = sleepContext
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return zero, &Error{Kind: KindCanceled, Err: err}
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if KindOf(err) == KindCanceled || !p.retryable(err) {
			return zero, err
		}
		if i == attempts-1 {
			break
		}

		delay := p.Delay(i)
		if onRetry != nil {
			onRetry(i+1, delay, err)
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, &Error{Kind: KindCanceled, Err: err}
		}
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, lastErr)
}
