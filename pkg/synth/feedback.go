package synth

import (
	"strings"

	"clearpath-hq/sentinel/pkg/rules"
)

// ComposeFeedback turns a failed validation outcome into the corrective
// instruction handed back to the generator on the next attempt. The prefix
// steers the revision toward the failing layer; the validator's own message
// carries the specifics.
func ComposeFeedback(outcome rules.ValidationOutcome) string {
	if outcome.OK() {
		return ""
	}

	var b strings.Builder
	switch outcome.Kind {
	case rules.OutcomeSyntaxError:
		b.WriteString("Fix syntax issues: ")
	case rules.OutcomeRuntimeError:
		b.WriteString("Runtime failure: ")
	case rules.OutcomeContractViolation:
		b.WriteString("Logical/test failure: ")
	case rules.OutcomeSecurityRejected:
		b.WriteString("Security violation: ")
	default:
		b.WriteString("General validation error: ")
	}
	b.WriteString(outcome.Message())

	if outcome.Kind == rules.OutcomeContractViolation {
		b.WriteString(" The rule must return a dict with a boolean \"allowed\" key.")
	}
	return b.String()
}
