package anthropic

import (
	"fmt"

	"clearpath-hq/sentinel/pkg/synth"
)

// systemPrompt communicates the data schema and enforcement conventions the
// generated rule code must honor. It is identical for generation and
// revision so the model's mental model of the payload never shifts between
// attempts.
const systemPrompt = `You are a compliance engineer converting written trading policies into executable Python rules.

Each rule's "code" field must define a single function taking (employee, security, trade_date) and returning a dict {"allowed": bool, "reason": str (optional), "policy_ref": str (optional)}. Use only the Python standard library. Define the rule function first, before any helpers.

The employee dict always has "id" and "role", and may have:
  - "division": org unit string
  - "tier": integer restriction level, 1 is MOST restricted
  - "restricted_tickers": list of tickers the employee may never trade (absolute prohibition)
  - "can_trade": bool master switch
  - "coverage_stocks": tickers the employee officially covers as an analyst; by convention these require pre-approval
  - "active_deals": list of live deals (e.g. IPOs) the employee works on
  - "firm_restrictions", "quick_reference": firm-injected context

The security dict always has "ticker" and "requested_action" ("buy", "sell", or "trade"), and may have "earnings_date", "next_earnings_date", "last_earnings_date" (ISO-8601 strings, parse them yourself), "market_cap", "is_covered", "requires_preapproval".

trade_date is an ISO-8601 date string (YYYY-MM-DD).

Conventions: restricted_tickers is an absolute block; coverage stocks require pre-approval; lower tier means stricter treatment. When the policy text is silent on a case, the rule allows the trade. Emit every rule through the emit_rules tool; give each a stable snake_case rule_id, a human-readable rule_name, a description, a policy_reference citing the clause, and applies_to_roles only when the clause names specific roles.`

// generationPrompt formats the initial-generation user message.
func generationPrompt(firmName, policyText string) string {
	return fmt.Sprintf(`Convert this compliance policy for %s into executable rules. Cover every restriction the policy states; do not invent restrictions it does not state.

POLICY:
%s`, firmName, policyText)
}

// revisionPrompt formats the revision user message for a single failing rule.
func revisionPrompt(firmName, policyText string, failure *synth.PriorFailure) string {
	msg := fmt.Sprintf(`A rule generated from %s's policy failed validation. Fix the rule while preserving its intent, and return exactly one revised rule through the emit_rules tool.

POLICY (for context):
%s

FAILING CODE:
%s

VALIDATION ERROR:
%s`, firmName, policyText, failure.Code, failure.Error)

	if failure.TestOutput != "" {
		msg += "\n\nTEST OUTPUT:\n" + failure.TestOutput
	}
	return msg
}

// emitRulesTool is the forced tool whose input schema mirrors the rule
// contract; the model's structured output arrives as this tool's input.
func emitRulesTool() tool {
	return tool{
		Name:        "emit_rules",
		Description: "Emit the executable compliance rules derived from the policy.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"rules": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"rule_id":          map[string]any{"type": "string", "description": "stable snake_case identifier, unique within the bundle"},
							"rule_name":        map[string]any{"type": "string"},
							"description":      map[string]any{"type": "string"},
							"policy_reference": map[string]any{"type": "string"},
							"applies_to_roles": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
							"code":             map[string]any{"type": "string", "description": "Python source defining the rule function"},
						},
						"required": []string{"rule_id", "rule_name", "description", "policy_reference", "code"},
					},
				},
			},
			"required": []string{"rules"},
		},
	}
}
