package workflow

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/schema"
)

// Policy names the authorization rule applied to each transition.
//
// Observed behavior in the field is asymmetric: analysis is restricted to
// the submitting agency, while actioning is open to any authenticated
// actor. That asymmetry is preserved as the default but is deliberately
// a setting, not a constant; deployments with stricter rules load their
// own policy file and the engine logs whichever rule is in force.
type Policy struct {
	// AnalyzeSubmitterOnly restricts the pending-to-analyzed transition
	// to the record's submitter.
	AnalyzeSubmitterOnly bool `toml:"analyze_submitter_only"`

	// ActionSubmitterOnly restricts the analyzed-to-actioned transition
	// to the record's submitter.
	ActionSubmitterOnly bool `toml:"action_submitter_only"`
}

// DefaultPolicy returns the rule matching observed behavior: analysis is
// submitter-only, actioning is unrestricted.
func DefaultPolicy() Policy {
	return Policy{
		AnalyzeSubmitterOnly: true,
		ActionSubmitterOnly:  false,
	}
}

// String renders the policy for the engine's startup log line.
func (p Policy) String() string {
	rule := func(restricted bool) string {
		if restricted {
			return "submitter-only"
		}
		return "any-actor"
	}
	return fmt.Sprintf("analyze=%s action=%s", rule(p.AnalyzeSubmitterOnly), rule(p.ActionSubmitterOnly))
}

// Authorize checks whether actor may move rec to target under this
// policy. A failure is ErrUnauthorized with the acting identity named;
// the submitter is not echoed, callers with access to the record can
// read it there.
func (p Policy) Authorize(rec *schema.Record, target schema.Status, actor string) error {
	if actor == "" {
		return fmt.Errorf("%w: no acting identity on context", ErrUnauthorized)
	}

	restricted := false
	switch target {
	case schema.StatusAnalyzed:
		restricted = p.AnalyzeSubmitterOnly
	case schema.StatusActioned:
		restricted = p.ActionSubmitterOnly
	}

	if restricted && actor != rec.Submitter {
		return fmt.Errorf("%w: %s transition is submitter-only, actor is %q", ErrUnauthorized, target, actor)
	}
	return nil
}

// LoadPolicyFile reads a TOML policy file:
//
//	analyze_submitter_only = true
//	action_submitter_only = false
//
// Keys left out keep their default values.
func LoadPolicyFile(path string) (Policy, error) {
	policy := DefaultPolicy()
	if _, err := toml.DecodeFile(path, &policy); err != nil {
		return Policy{}, fmt.Errorf("failed to load policy file %s: %w", path, err)
	}
	return policy, nil
}
