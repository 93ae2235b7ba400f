package daytona

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clearpath-hq/sentinel/pkg/providers"
	"clearpath-hq/sentinel/pkg/sandbox"
)

const (
	// autoStopMinutes is the sandbox idle auto-stop interval. Short on
	// purpose: validation runs take seconds, and auto-stop is the
	// backstop against leaked handles.
	autoStopMinutes = 5

	// createPollInterval is how often we poll a starting sandbox.
	createPollInterval = 500 * time.Millisecond

	// createTimeout bounds sandbox provisioning end to end.
	createTimeout = 60 * time.Second
)

// Executor implements sandbox.Executor against the Daytona REST API.
type Executor struct {
	*providers.Client
	target string

	// preserve skips Destroy, leaving sandboxes alive for debugging.
	preserve bool
}

var _ sandbox.Executor = (*Executor)(nil)

// NewExecutor creates a Daytona-backed sandbox executor.
func NewExecutor(cfg providers.ClientConfig, target string, preserve bool) (*Executor, error) {
	if cfg.APIKey == "" {
		return nil, &providers.ConfigError{
			Adapter: "daytona",
			Field:   "api_key",
			Message: "API key is required",
		}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://app.daytona.io/api"
	}
	if cfg.Name == "" {
		cfg.Name = "daytona"
	}
	if target == "" {
		target = "us"
	}

	e := &Executor{
		Client:   providers.NewClient(cfg),
		target:   target,
		preserve: preserve,
	}

	slog.Info("daytona executor initialized",
		"base_url", cfg.BaseURL,
		"target", target,
		"preserve_sandboxes", preserve,
	)

	return e, nil
}

type createRequest struct {
	Language         string            `json:"language"`
	Target           string            `json:"target"`
	AutoStopInterval int               `json:"autoStopInterval"`
	NetworkBlockAll  bool              `json:"networkBlockAll"`
	Labels           map[string]string `json:"labels,omitempty"`
}

type sandboxInfo struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

type execRequest struct {
	Command string `json:"command"`
	Timeout int    `json:"timeout"` // seconds
}

type execResponse struct {
	ExitCode int    `json:"exitCode"`
	Result   string `json:"result"`
}

// Create provisions a network-denied Python sandbox and waits for it to
// reach the started state.
func (e *Executor) Create(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, createTimeout)
	defer cancel()

	req := &createRequest{
		Language:         "python",
		Target:           e.target,
		AutoStopInterval: autoStopMinutes,
		NetworkBlockAll:  true,
		Labels:           map[string]string{"purpose": "rule-validation"},
	}

	var info sandboxInfo
	url := fmt.Sprintf("%s/sandbox", e.Config().BaseURL)
	if err := e.DoJSONRequest(ctx, "POST", url, req, &info, e.headers()); err != nil {
		return "", fmt.Errorf("sandbox create: %w", err)
	}
	if info.ID == "" {
		return "", fmt.Errorf("sandbox create: response missing id")
	}

	// Provisioning is asynchronous; poll until the sandbox is usable.
	for info.State != "started" {
		select {
		case <-ctx.Done():
			// Best effort teardown of the half-provisioned sandbox.
			e.destroy(context.WithoutCancel(ctx), info.ID)
			return "", fmt.Errorf("sandbox create: timed out waiting for start (last state %q)", info.State)
		case <-time.After(createPollInterval):
		}

		statusURL := fmt.Sprintf("%s/sandbox/%s", e.Config().BaseURL, info.ID)
		if err := e.DoJSONRequest(ctx, "GET", statusURL, nil, &info, e.headers()); err != nil {
			e.destroy(context.WithoutCancel(ctx), info.ID)
			return "", fmt.Errorf("sandbox create: status poll: %w", err)
		}
		if info.State == "error" {
			e.destroy(context.WithoutCancel(ctx), info.ID)
			return "", fmt.Errorf("sandbox create: sandbox entered error state")
		}
	}

	slog.Debug("sandbox created", "sandbox_id", info.ID)
	return info.ID, nil
}

// Exec runs a shell command in the sandbox. The Daytona API merges stderr
// into the result stream, so Stderr is left empty.
func (e *Executor) Exec(ctx context.Context, handle, command string, timeout time.Duration) (*sandbox.ExecResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout+10*time.Second)
	defer cancel()

	req := &execRequest{
		Command: command,
		Timeout: int(timeout.Seconds()),
	}

	var resp execResponse
	url := fmt.Sprintf("%s/toolbox/%s/toolbox/process/execute", e.Config().BaseURL, handle)
	if err := e.DoJSONRequest(ctx, "POST", url, req, &resp, e.headers()); err != nil {
		return nil, fmt.Errorf("sandbox exec: %w", err)
	}

	return &sandbox.ExecResult{
		ExitCode: resp.ExitCode,
		Stdout:   resp.Result,
	}, nil
}

// Destroy tears the sandbox down. When sandbox preservation is enabled the
// call logs and returns without deleting, leaving auto-stop as the backstop.
func (e *Executor) Destroy(ctx context.Context, handle string) error {
	if e.preserve {
		slog.Info("preserving sandbox for debugging", "sandbox_id", handle)
		return nil
	}
	return e.destroy(ctx, handle)
}

func (e *Executor) destroy(ctx context.Context, handle string) error {
	if handle == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/sandbox/%s", e.Config().BaseURL, handle)
	if err := e.DoJSONRequest(ctx, "DELETE", url, nil, nil, e.headers()); err != nil {
		slog.Error("sandbox destroy failed", "sandbox_id", handle, "error", err)
		return fmt.Errorf("sandbox destroy: %w", err)
	}

	slog.Debug("sandbox destroyed", "sandbox_id", handle)
	return nil
}

func (e *Executor) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + e.Config().APIKey,
		"Content-Type":  "application/json",
	}
}
