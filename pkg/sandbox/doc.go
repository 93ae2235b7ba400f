// Package sandbox defines the isolated execution capability used while
// validating untrusted generated rule code.
//
// An Executor provisions ephemeral, network-denied environments, runs short
// programs in them, and tears them down. Implementations must guarantee
// destruction on every exit path, including cancellation; a leaked sandbox
// is billable vendor state. The concrete adapter lives in
// pkg/providers/daytona; tests substitute in-memory fakes.
package sandbox
