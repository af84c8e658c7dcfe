package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestRetryPolicyDoSucceedsFirstTry(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), nil, "test op", func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestRetryPolicyDoRetriesTransient(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), nil, "test op", func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("flaky: %w", ErrUnavailable)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() failed after recovery: %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestRetryPolicyDoExhaustsBudget(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), nil, "test op", func() error {
		calls++
		return fmt.Errorf("still down: %w", ErrUnavailable)
	})
	if err == nil {
		t.Fatal("Expected error after exhausting attempts")
	}
	if calls != 2 {
		t.Errorf("Expected 2 calls, got %d", calls)
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected wrapped ErrUnavailable, got: %v", err)
	}
}

func TestRetryPolicyDoStopsOnPermanentError(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond}
	permanent := errors.New("bad input")

	calls := 0
	err := policy.Do(context.Background(), nil, "test op", func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("Expected permanent error, got: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected no retries for permanent error, got %d calls", calls)
	}
}

func TestRetryPolicyDoHonorsCancellation(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 10, BaseDelay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := policy.Do(ctx, nil, "test op", func() error {
		return fmt.Errorf("down: %w", ErrUnavailable)
	})
	if err == nil {
		t.Fatal("Expected error after cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unavailable", ErrUnavailable, true},
		{"wrapped unavailable", fmt.Errorf("get: %w", ErrUnavailable), true},
		{"closed", ErrClosed, false},
		{"canceled", context.Canceled, false},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
