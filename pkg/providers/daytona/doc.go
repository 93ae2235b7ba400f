// Package daytona adapts the Daytona sandbox API to the sandbox.Executor
// capability.
//
// Sandboxes are created with outbound network blocked and a short auto-stop
// interval, so an orphaned environment terminates itself even if teardown
// is missed. Commands run through the sandbox toolbox process endpoint; the
// API merges stderr into the command result, which downstream consumers
// already tolerate.
package daytona
