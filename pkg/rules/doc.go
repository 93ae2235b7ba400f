// Package rules defines the core data model for synthesized compliance rules:
// generator drafts, validation attempts and outcomes, validated rules, the
// per-firm bundle that persists them, and the open employee/security records
// that rule code consumes.
//
// The types in this package are shared by the synthesis pipeline
// (pkg/synth), the validator (pkg/validate), the store (pkg/store) and the
// evaluator (pkg/evaluate). They carry no behavior beyond construction and
// invariant checks so that every layer serializes them identically.
package rules
