// Package validate decides whether a generated draft rule is safe and
// functionally correct.
//
// Validation is three gates in sequence:
//
//  1. Screener: a cheap case-insensitive denylist scan over the source
//     text. Obviously unsafe drafts are rejected before a sandbox is ever
//     provisioned. The screener is a coarse pre-filter, not a security
//     boundary; the sandbox is.
//  2. Syntax phase: an ephemeral sandbox compiles the rule body as source.
//  3. Functional phase: the sandbox executes the rule against a canonical
//     employee/security fixture and the rule's JSON output is checked
//     against the output contract.
//
// Every program ships its inputs as base64 literals so no rule text ever
// touches shell quoting. The sandbox is destroyed on every exit path.
package validate
