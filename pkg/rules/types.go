package rules

import (
	"fmt"
	"time"
)

// DraftRule is a rule as emitted by the generator, before validation.
type DraftRule struct {
	// RuleID is a stable snake_case identifier, unique within a bundle.
	RuleID string `json:"rule_id"`

	// RuleName is a short human-readable name.
	RuleName string `json:"rule_name"`

	// Description explains what the rule enforces.
	Description string `json:"description"`

	// PolicyReference cites the policy clause the rule was derived from.
	PolicyReference string `json:"policy_reference"`

	// AppliesToRoles restricts the rule to employees with one of these
	// roles. Empty means the rule applies to every role.
	AppliesToRoles []string `json:"applies_to_roles"`

	// Code is the executable rule body: source text defining a callable
	// taking (employee, security, trade_date) and returning a mapping
	// with a required boolean "allowed".
	Code string `json:"code"`
}

// Validate checks the draft's structural invariants.
func (d *DraftRule) Validate() error {
	if d.RuleID == "" {
		return fmt.Errorf("draft rule missing rule_id")
	}
	if d.Code == "" {
		return fmt.Errorf("draft rule %q has empty code", d.RuleID)
	}
	return nil
}

// ValidationAttempt is an immutable record of one validation pass over a
// draft. FeedbackToGenerator is present exactly when the attempt failed.
type ValidationAttempt struct {
	AttemptNumber       int       `json:"attempt_number"`
	Passed              bool      `json:"passed"`
	Error               string    `json:"error,omitempty"`
	TestOutput          string    `json:"test_output,omitempty"`
	FeedbackToGenerator string    `json:"feedback_to_generator,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
}

// Rule is a DraftRule that has been through the refinement loop. A Rule
// stored in a RulesBundle always has a final ValidationAttempt with
// Passed=true; a Rule returned from a failed refinement does not.
type Rule struct {
	DraftRule

	// Active gates evaluation; inactive rules are skipped. Defaults true.
	Active bool `json:"active"`

	// GenerationAttempt is how many draft iterations the rule took.
	GenerationAttempt int `json:"generation_attempt"`

	// ValidationHistory is ordered by attempt number, starting at 1.
	ValidationHistory []ValidationAttempt `json:"validation_history"`
}

// Validated reports whether the rule's last validation attempt passed.
func (r *Rule) Validated() bool {
	n := len(r.ValidationHistory)
	return n > 0 && r.ValidationHistory[n-1].Passed
}

// AppliesTo reports whether the rule applies to an employee with the given
// role. An empty role list means the rule is universal. Matching is exact.
func (r *Rule) AppliesTo(role string) bool {
	if len(r.AppliesToRoles) == 0 {
		return true
	}
	for _, allowed := range r.AppliesToRoles {
		if allowed == role {
			return true
		}
	}
	return false
}

// RulesBundle is the per-firm container of validated rules. A bundle may be
// empty (every draft failed validation), which is semantically "no
// restrictions".
type RulesBundle struct {
	FirmName string `json:"firm_name"`

	// PolicyVersion is a YYYY-MM stamp of the last ingestion.
	PolicyVersion string `json:"policy_version"`

	LastUpdated time.Time `json:"last_updated"`

	// TotalIterations is the sum of generation attempts across all rules
	// in the bundle, including iterations spent on drafts that were
	// ultimately dropped.
	TotalIterations int `json:"total_iterations"`

	Rules []Rule `json:"rules"`
}

// Validate checks the bundle's invariants: every contained rule must have
// passed validation.
func (b *RulesBundle) Validate() error {
	if b.FirmName == "" {
		return fmt.Errorf("bundle missing firm_name")
	}
	for i := range b.Rules {
		r := &b.Rules[i]
		if err := r.DraftRule.Validate(); err != nil {
			return err
		}
		if !r.Validated() {
			return fmt.Errorf("rule %q stored without a passing validation", r.RuleID)
		}
	}
	return nil
}
