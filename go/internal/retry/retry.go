package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Class tags an error as worth retrying or not.
type Class int

const (
	// ClassTransient errors are expected to succeed on a later attempt
	// (timeouts, connection resets, 5xx responses).
	ClassTransient Class = iota
	// ClassPermanent errors will not succeed on retry (validation,
	// constraint violations) and propagate immediately.
	ClassPermanent
)

// Classifier decides whether an error from the wrapped operation is
// transient or permanent.
type Classifier func(error) Class

// ExhaustedError wraps the last transient error after the retry budget
// is spent.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("exhausted %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Policy executes fallible operations with exponential backoff. Delays go
// through the injected clock so concurrent requests are never blocked at the
// process level and tests can drive time.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64

	clock clockwork.Clock
}

// NewPolicy builds a policy with explicit parameters.
func NewPolicy(maxAttempts int, initialDelay time.Duration, multiplier float64, clock clockwork.Clock) Policy {
	return Policy{
		MaxAttempts:  maxAttempts,
		InitialDelay: initialDelay,
		Multiplier:   multiplier,
		clock:        clock,
	}
}

// DefaultPolicy is the profile used around the registration transaction.
func DefaultPolicy(clock clockwork.Clock) Policy {
	return NewPolicy(3, 2*time.Second, 2.0, clock)
}

// UploadPolicy is the profile used around each individual file upload.
func UploadPolicy(clock clockwork.Clock) Policy {
	return NewPolicy(3, 500*time.Millisecond, 2.0, clock)
}

// Do runs fn up to MaxAttempts times. Permanent errors propagate without
// further attempts or delay. Transient errors sleep for the current backoff
// delay and retry; once the budget is spent the last error comes back
// wrapped in an ExhaustedError.
func (p Policy) Do(ctx context.Context, op string, classify Classifier, fn func(ctx context.Context) error) error {
	delay := p.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				log.Info().
					Str("op", op).
					Int("attempt", attempt).
					Msg("succeeded after retry")
			}
			return nil
		}

		if classify(err) == ClassPermanent {
			log.Warn().
				Str("op", op).
				Int("attempt", attempt).
				Err(err).
				Msg("permanent error, not retrying")
			return err
		}

		lastErr = err
		if attempt == p.MaxAttempts {
			break
		}

		log.Warn().
			Str("op", op).
			Int("attempt", attempt).
			Dur("delay", delay).
			Err(err).
			Msg("transient error, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.clock.After(delay):
		}
		delay = time.Duration(float64(delay) * p.Multiplier)
	}

	log.Error().
		Str("op", op).
		Int("attempts", p.MaxAttempts).
		Err(lastErr).
		Msg("retry budget exhausted")

	return &ExhaustedError{Attempts: p.MaxAttempts, Err: lastErr}
}
