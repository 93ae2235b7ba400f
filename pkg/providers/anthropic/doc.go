// Package anthropic adapts the Anthropic Messages API to the
// synth.Generator capability.
//
// The adapter asks the model to emit rules through a forced tool call whose
// input schema mirrors the rule contract, which keeps the structured output
// parseable without scraping JSON out of prose. Sampling temperature is
// pinned to zero so repeated ingestions of the same policy converge.
//
// Two prompt modes exist:
//
//   - initial generation: the full policy text plus the employee/security
//     schema and enforcement conventions
//   - revision: a single failing rule's code, validator error, and test
//     output; the model must fix the rule while preserving its intent
//
// Requests go through the shared providers.Client base, inheriting retry,
// backoff, and typed error classification.
package anthropic
