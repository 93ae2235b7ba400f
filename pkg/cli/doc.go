// Package cli holds shared plumbing for the sentinel command line:
// typed command errors, signal-aware contexts, and output formatting
// for the inspection subcommands.
package cli
