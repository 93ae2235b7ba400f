package synth

import (
	"context"

	"clearpath-hq/sentinel/pkg/rules"
)

// PriorFailure carries the context of a failed validation attempt back to
// the generator so it can revise the rule instead of starting over.
type PriorFailure struct {
	// Code is the rule body that failed.
	Code string

	// Error is the consolidated validator message.
	Error string

	// TestOutput is the captured stdout of the functional run, if any.
	TestOutput string
}

// Request asks the generator for rules.
type Request struct {
	// PolicyText is the free-form compliance policy prose.
	PolicyText string

	// FirmName identifies the tenant; used only for prompt context.
	FirmName string

	// PriorFailure, when present, switches the generator into revision
	// mode: it must fix the single failing rule while preserving intent,
	// and the caller uses only the first returned rule.
	PriorFailure *PriorFailure
}

// Generator produces structured draft rules from policy prose. Adapters are
// not required to be deterministic, but should pin sampling temperature to
// the minimum for reproducibility.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]rules.DraftRule, error)
}
