// Package evaluate answers trade questions against a firm's stored rules.
//
// Stored rules have already been sandbox-validated at ingestion time, so
// evaluation runs them locally for latency: a short-lived interpreter per
// rule, JSON in on stdin, one JSON line out on stdout.
package evaluate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"clearpath-hq/sentinel/pkg/rules"
)

// DefaultRunTimeout is the hard kill budget for one rule execution.
const DefaultRunTimeout = 10 * time.Second

// RunInput is the argument triple handed to a rule.
type RunInput struct {
	Employee  rules.Employee `json:"employee"`
	Security  rules.Security `json:"security"`
	TradeDate string         `json:"trade_date"`
}

// Runner executes one rule body against one input and returns its verdict.
type Runner interface {
	Run(ctx context.Context, code string, input RunInput) (*rules.ExecutionResult, error)
}

// harness reads {code, employee, security, trade_date} from stdin, executes
// the rule body in a fresh namespace, and prints the verdict as one JSON
// line. Mirrors the sandbox functional program so local and sandboxed runs
// agree on rule calling conventions.
const harness = `import json, sys, textwrap
payload = json.load(sys.stdin)
namespace = {}
exec(textwrap.dedent(payload["code"]), namespace)
rule_fn = None
for name, value in namespace.items():
    if name.startswith("__"):
        continue
    if callable(value):
        rule_fn = value
        break
if rule_fn is None:
    raise SystemExit("rule code defines no callable")
result = rule_fn(payload["employee"], payload["security"], payload["trade_date"])
print(json.dumps(result))
`

// LocalRunner runs rule code in a local Python interpreter.
type LocalRunner struct {
	interpreter string
	fallback    string
	timeout     time.Duration
}

// NewLocalRunner creates a runner. Empty arguments select python3 with a
// python fallback and the default timeout.
func NewLocalRunner(interpreter, fallback string, timeout time.Duration) *LocalRunner {
	if interpreter == "" {
		interpreter = "python3"
	}
	if fallback == "" {
		fallback = "python"
	}
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	return &LocalRunner{interpreter: interpreter, fallback: fallback, timeout: timeout}
}

// Run executes the rule and parses its verdict. A missing primary
// interpreter falls through to the fallback; every other failure aborts.
func (r *LocalRunner) Run(ctx context.Context, code string, input RunInput) (*rules.ExecutionResult, error) {
	payload, err := json.Marshal(struct {
		Code string `json:"code"`
		RunInput
	}{Code: code, RunInput: input})
	if err != nil {
		return nil, fmt.Errorf("failed to encode rule input: %w", err)
	}

	stdout, err := r.exec(ctx, r.interpreter, payload)
	if errors.Is(err, exec.ErrNotFound) {
		stdout, err = r.exec(ctx, r.fallback, payload)
	}
	if err != nil {
		return nil, err
	}

	line := strings.TrimSpace(stdout)
	if i := strings.LastIndexByte(line, '\n'); i >= 0 {
		line = line[i+1:]
	}
	result, err := rules.ParseExecutionResult([]byte(line))
	if err != nil {
		return nil, fmt.Errorf("rule output contract: %w", err)
	}
	return result, nil
}

func (r *LocalRunner) exec(ctx context.Context, interpreter string, payload []byte) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, interpreter, "-c", harness)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", err
		}
		if runCtx.Err() != nil {
			return "", fmt.Errorf("rule execution timed out after %s", r.timeout)
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(stdout.String())
		}
		return "", fmt.Errorf("rule execution failed: %s", firstNonEmpty(detail, err.Error()))
	}
	return stdout.String(), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
