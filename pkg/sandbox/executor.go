package sandbox

import (
	"context"
	"time"
)

// ExecResult is the outcome of running one command in a sandbox.
type ExecResult struct {
	// ExitCode is the command's exit status.
	ExitCode int `json:"exit_code"`

	// Stdout is the captured standard output.
	Stdout string `json:"stdout"`

	// Stderr is the captured standard error. Some substrates interleave
	// it with stdout; callers must tolerate either.
	Stderr string `json:"stderr"`
}

// Combined returns stderr and stdout joined for error reporting.
func (r *ExecResult) Combined() string {
	switch {
	case r.Stderr != "" && r.Stdout != "":
		return r.Stderr + "\n" + r.Stdout
	case r.Stderr != "":
		return r.Stderr
	default:
		return r.Stdout
	}
}

// Executor provisions and drives ephemeral execution environments.
//
// The environment behind a handle denies outbound network access and
// auto-terminates on idle. Destroy must be safe to call on every exit path;
// implementations report destruction failures but never leak handles.
type Executor interface {
	// Create provisions a fresh sandbox and returns its handle.
	Create(ctx context.Context) (string, error)

	// Exec runs a shell command inside the sandbox identified by handle,
	// bounded by timeout, and returns its captured result.
	Exec(ctx context.Context, handle, command string, timeout time.Duration) (*ExecResult, error)

	// Destroy tears the sandbox down.
	Destroy(ctx context.Context, handle string) error
}
