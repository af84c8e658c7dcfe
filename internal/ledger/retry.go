package ledger

import (
	"context"
	"fmt"
	"log"
	"time"
)

// RetryPolicy bounds how persistently callers re-attempt transient ledger
// failures. Retries apply only to errors IsRetryable accepts; precondition
// and authorization failures pass through untouched on the first attempt.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// BaseDelay is the wait before the second attempt. Each further
	// attempt doubles the wait.
	BaseDelay time.Duration

	// MaxDelay caps the doubling.
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns the policy used when the caller does not
// configure one: three attempts, 100ms base, 2s cap.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// Do runs fn under the policy. The op string names the operation in logs
// and in the final error. Non-retryable errors return immediately; after
// the attempt budget is spent the last error is returned wrapped, never
// swallowed.
func (p RetryPolicy) Do(ctx context.Context, logger *log.Logger, op string, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := p.BaseDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !IsRetryable(lastErr) {
			return lastErr
		}

		if attempt == attempts {
			break
		}

		if logger != nil {
			logger.Printf("%s failed (attempt %d/%d), retrying in %v: %v", op, attempt, attempts, delay, lastErr)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s aborted: %w", op, ctx.Err())
		case <-time.After(delay):
		}

		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, lastErr)
}
