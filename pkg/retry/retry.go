package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Class categorizes an error for retry purposes.
type Class int

const (
	// ClassTransient errors (timeouts, rate limits, 5xx) are retried with backoff.
	ClassTransient Class = iota
	// ClassPermanent errors (malformed input, unsupported format, auth) fail immediately.
	ClassPermanent
)

// Classifier maps a raw collaborator error to a retry class.
type Classifier func(err error) Class

// ErrAttemptsExhausted wraps the last error after all retry attempts failed.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Policy describes a bounded exponential backoff retry schedule.
// It is passed into each collaborator-calling component rather than
// re-implemented per call site.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Classify     Classifier
}

// DefaultPolicy returns the standard collaborator retry policy: 3 attempts,
// exponential backoff starting at 500ms, all errors treated as transient.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Classify:     func(error) Class { return ClassTransient },
	}
}

// WithClassifier returns a copy of the policy using the given classifier.
func (p Policy) WithClassifier(c Classifier) Policy {
	p.Classify = c
	return p
}

// Delay returns the backoff delay before the given attempt (0-based).
func (p Policy) Delay(attempt int) time.Duration {
	delay := p.InitialDelay * time.Duration(1<<uint(attempt))
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// Do runs fn under the policy. Transient errors are retried up to
// MaxAttempts with exponential backoff; permanent errors and context
// cancellation return immediately. After exhausting attempts the last
// error is returned wrapped in ErrAttemptsExhausted.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(p.Delay(attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if p.Classify != nil && p.Classify(lastErr) == ClassPermanent {
			return lastErr
		}
	}

	return fmt.Errorf("%s: %w: %w", op, ErrAttemptsExhausted, lastErr)
}

// IsExhausted reports whether err is the result of exhausting retry attempts.
func IsExhausted(err error) bool {
	return errors.Is(err, ErrAttemptsExhausted)
}
