package workflow

import (
	"fmt"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
)

// transitions is the exhaustive edge table for the record lifecycle.
// The chain is linear and monotonic: pending → analyzed → actioned.
// Actioned is terminal and has no entry. Any (from, to) pair not in this
// table is rejected; there is no other path between states.
var transitions = map[schema.Status]schema.Status{
	schema.StatusPending:  schema.StatusAnalyzed,
	schema.StatusAnalyzed: schema.StatusActioned,
}

// Next returns the sole status reachable from s, or "" if s is terminal
// or unknown.
func Next(s schema.Status) schema.Status {
	return transitions[s]
}

// CanTransition reports whether the edge from → to exists in the table.
func CanTransition(from, to schema.Status) bool {
	return transitions[from] == to && to != ""
}

// ValidateTransition rejects any edge not in the table with
// ErrInvalidTransition. The message names both states so callers see
// exactly which precondition failed.
func ValidateTransition(from, to schema.Status) error {
	if !from.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, from)
	}
	if !to.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: cannot move %s to %s", ErrInvalidTransition, from, to)
	}
	return nil
}
