package workflow

import (
	"errors"
	"testing"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
)

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from    schema.Status
		to      schema.Status
		allowed bool
	}{
		{schema.StatusPending, schema.StatusAnalyzed, true},
		{schema.StatusAnalyzed, schema.StatusActioned, true},
		{schema.StatusPending, schema.StatusActioned, false},
		{schema.StatusAnalyzed, schema.StatusPending, false},
		{schema.StatusActioned, schema.StatusPending, false},
		{schema.StatusActioned, schema.StatusAnalyzed, false},
		{schema.StatusPending, schema.StatusPending, false},
		{schema.StatusActioned, schema.StatusActioned, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.allowed {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestTransitionTableIsExhaustive(t *testing.T) {
	// Every non-terminal status has exactly one outgoing edge and the
	// chain ends at actioned.
	if Next(schema.StatusPending) != schema.StatusAnalyzed {
		t.Error("Expected pending to lead to analyzed")
	}
	if Next(schema.StatusAnalyzed) != schema.StatusActioned {
		t.Error("Expected analyzed to lead to actioned")
	}
	if Next(schema.StatusActioned) != "" {
		t.Error("Expected actioned to be terminal")
	}

	for from := range transitions {
		if !from.IsValid() {
			t.Errorf("Transition table contains unknown status %q", from)
		}
		if to := transitions[from]; !to.IsValid() {
			t.Errorf("Transition table targets unknown status %q", to)
		}
	}
}

func TestValidateTransition(t *testing.T) {
	if err := ValidateTransition(schema.StatusPending, schema.StatusAnalyzed); err != nil {
		t.Errorf("Expected valid edge to pass, got: %v", err)
	}

	err := ValidateTransition(schema.StatusPending, schema.StatusActioned)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition for skipped state, got: %v", err)
	}

	err = ValidateTransition("archived", schema.StatusAnalyzed)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition for unknown status, got: %v", err)
	}
}

func TestIsDenied(t *testing.T) {
	if !IsDenied(ErrInvalidTransition) || !IsDenied(ErrUnauthorized) {
		t.Error("Expected transition and authorization failures to count as denied")
	}
	if IsDenied(ErrConflict) {
		t.Error("Conflicts are retryable by a human, not denied")
	}
	if IsDenied(nil) {
		t.Error("nil is not denied")
	}
}
