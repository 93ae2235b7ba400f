package rules

import (
	"encoding/json"
	"fmt"
)

// Employee is the open record describing the person asking to trade. Rule
// code consumes it opaquely, so it is carried as a map: every field present
// at ingestion survives the round trip into the rule runtime unchanged.
// Required keys are "id" and "role"; everything else (division, tier,
// restricted_tickers, coverage_stocks, active_deals, firm_restrictions,
// quick_reference, ...) is passed through as-is.
type Employee map[string]any

// ID returns the employee's required identifier.
func (e Employee) ID() string { return stringField(e, "id") }

// Role returns the employee's required role string.
func (e Employee) Role() string { return stringField(e, "role") }

// Security is the open record describing the instrument being traded.
// Required keys are "ticker" and "requested_action" (buy|sell|trade); market
// data fields (earnings_date, market_cap, is_covered, ...) are optional and
// carried opaquely. Date fields are ISO-8601 strings at this boundary; the
// rule runtime does any parsing.
type Security map[string]any

// Ticker returns the security's required ticker symbol.
func (s Security) Ticker() string { return stringField(s, "ticker") }

// RequestedAction returns the requested trade action.
func (s Security) RequestedAction() string { return stringField(s, "requested_action") }

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// ExecutionResult is the output contract every rule must honor: a mapping
// with a required boolean "allowed" and optional justification fields.
type ExecutionResult struct {
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason,omitempty"`
	PolicyRef string `json:"policy_ref,omitempty"`
}

// ParseExecutionResult decodes a rule's JSON output and enforces the output
// contract. It fails if the payload is not a JSON object or if "allowed" is
// missing or not a boolean.
func ParseExecutionResult(raw []byte) (*ExecutionResult, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("rule output is not a JSON object: %w", err)
	}

	allowedRaw, ok := fields["allowed"]
	if !ok {
		return nil, fmt.Errorf("rule output missing required field %q", "allowed")
	}

	var result ExecutionResult
	if err := json.Unmarshal(allowedRaw, &result.Allowed); err != nil {
		return nil, fmt.Errorf("rule output field %q is not a boolean", "allowed")
	}
	if reason, ok := fields["reason"]; ok {
		_ = json.Unmarshal(reason, &result.Reason)
	}
	if ref, ok := fields["policy_ref"]; ok {
		_ = json.Unmarshal(ref, &result.PolicyRef)
	}

	return &result, nil
}

// ComplianceVerdict is the aggregated allow/deny decision for one trade
// question. Allowed is the AND across all applicable rules; Reasons and
// PolicyRefs are parallel lists contributed by blocking rules; RulesChecked
// names every rule that was applicable and invoked, passing or not.
type ComplianceVerdict struct {
	Allowed      bool     `json:"allowed"`
	Reasons      []string `json:"reasons"`
	PolicyRefs   []string `json:"policy_refs"`
	RulesChecked []string `json:"rules_checked"`
}

// NewVerdict returns the vacuously-permitting verdict used when a firm has
// no rules: absence of policy is not a denial.
func NewVerdict() *ComplianceVerdict {
	return &ComplianceVerdict{
		Allowed:      true,
		Reasons:      []string{},
		PolicyRefs:   []string{},
		RulesChecked: []string{},
	}
}

// Block records a blocking rule's justification and flips the verdict.
func (v *ComplianceVerdict) Block(reason, policyRef string) {
	v.Allowed = false
	v.Reasons = append(v.Reasons, reason)
	v.PolicyRefs = append(v.PolicyRefs, policyRef)
}
