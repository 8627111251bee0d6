package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryPolicy retries transient failures with a fixed delay. MaxAttempts
// is the TOTAL number of attempts: 3 means one try plus two retries.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy returns the stock policy of 3 attempts, 2s apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: 2 * time.Second}
}

// Do runs fn until it succeeds, fails terminally, or attempts run out.
// Non-transient errors are returned immediately without further attempts.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}

		if attempt < attempts {
			log.Debug().
				Str("op", op).
				Int("attempt", attempt).
				Int("max_attempts", attempts).
				Err(lastErr).
				Msg("Transient failure, retrying")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Delay):
			}
		}
	}

	return fmt.Errorf("%s: retries exhausted after %d attempts: %w", op, attempts, lastErr)
}
