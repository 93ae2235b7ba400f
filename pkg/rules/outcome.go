package rules

// OutcomeKind discriminates the result of validating one draft rule.
type OutcomeKind string

const (
	// OutcomePassed means the rule parsed, ran, and honored the output
	// contract against the canonical fixture.
	OutcomePassed OutcomeKind = "passed"

	// OutcomeSecurityRejected means the static screener matched a
	// forbidden pattern; the sandbox was never invoked.
	OutcomeSecurityRejected OutcomeKind = "security_rejected"

	// OutcomeSyntaxError means the rule body failed to parse.
	OutcomeSyntaxError OutcomeKind = "syntax_error"

	// OutcomeRuntimeError means the rule raised during the functional run.
	OutcomeRuntimeError OutcomeKind = "runtime_error"

	// OutcomeContractViolation means the rule ran but returned malformed
	// output (missing sentinels, non-JSON, or no boolean "allowed").
	OutcomeContractViolation OutcomeKind = "contract_violation"

	// OutcomeInfraError means sandbox provisioning, transport, or
	// teardown failed; the rule itself was not exercised.
	OutcomeInfraError OutcomeKind = "infrastructure_error"
)

// ValidationOutcome is the typed result of one validator pass. Exactly one
// kind applies; the auxiliary fields are populated per kind.
type ValidationOutcome struct {
	Kind OutcomeKind `json:"kind"`

	// Pattern is the matched denylist substring (security_rejected only).
	Pattern string `json:"pattern,omitempty"`

	// Detail is the consolidated error text (failure kinds only).
	Detail string `json:"detail,omitempty"`

	// TestOutput is the captured stdout of the functional run, when the
	// run produced any.
	TestOutput string `json:"test_output,omitempty"`
}

// Passed constructs a passing outcome carrying the functional run's output.
func Passed(testOutput string) ValidationOutcome {
	return ValidationOutcome{Kind: OutcomePassed, TestOutput: testOutput}
}

// SecurityRejected constructs an outcome for a denylist match.
func SecurityRejected(pattern string) ValidationOutcome {
	return ValidationOutcome{Kind: OutcomeSecurityRejected, Pattern: pattern}
}

// SyntaxError constructs an outcome for a parse failure.
func SyntaxError(detail string) ValidationOutcome {
	return ValidationOutcome{Kind: OutcomeSyntaxError, Detail: detail}
}

// RuntimeError constructs an outcome for a functional-run failure.
func RuntimeError(detail string) ValidationOutcome {
	return ValidationOutcome{Kind: OutcomeRuntimeError, Detail: detail}
}

// ContractViolation constructs an outcome for malformed rule output.
func ContractViolation(detail string) ValidationOutcome {
	return ValidationOutcome{Kind: OutcomeContractViolation, Detail: detail}
}

// InfraError constructs an outcome for a sandbox infrastructure failure.
func InfraError(detail string) ValidationOutcome {
	return ValidationOutcome{Kind: OutcomeInfraError, Detail: detail}
}

// OK reports whether the outcome is a pass.
func (o ValidationOutcome) OK() bool {
	return o.Kind == OutcomePassed
}

// Message returns a single consolidated message suitable for a
// ValidationAttempt's error field. Empty for passing outcomes.
func (o ValidationOutcome) Message() string {
	switch o.Kind {
	case OutcomePassed:
		return ""
	case OutcomeSecurityRejected:
		return "forbidden pattern: " + o.Pattern
	default:
		return o.Detail
	}
}
