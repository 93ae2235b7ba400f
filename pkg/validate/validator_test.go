package validate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"clearpath-hq/sentinel/pkg/rules"
	"clearpath-hq/sentinel/pkg/sandbox"
)

// fakeExecutor scripts one ExecResult per Exec call, in order.
type fakeExecutor struct {
	createErr error
	results   []*sandbox.ExecResult
	execErrs  []error

	creates  int
	execs    int
	destroys int
}

func (f *fakeExecutor) Create(ctx context.Context) (string, error) {
	f.creates++
	if f.createErr != nil {
		return "", f.createErr
	}
	return fmt.Sprintf("sb-%d", f.creates), nil
}

func (f *fakeExecutor) Exec(ctx context.Context, handle, command string, timeout time.Duration) (*sandbox.ExecResult, error) {
	i := f.execs
	f.execs++
	if i < len(f.execErrs) && f.execErrs[i] != nil {
		return nil, f.execErrs[i]
	}
	if i >= len(f.results) {
		return nil, fmt.Errorf("unexpected exec call %d", i)
	}
	return f.results[i], nil
}

func (f *fakeExecutor) Destroy(ctx context.Context, handle string) error {
	f.destroys++
	return nil
}

func newTestValidator(f *fakeExecutor) *Validator {
	return NewValidator(f, slog.New(slog.DiscardHandler))
}

func cleanDraft() *rules.DraftRule {
	return &rules.DraftRule{
		RuleID:      "rule_restricted_list",
		RuleName:    "Restricted List Check",
		Description: "Blocks trades in tickers on the employee's restricted list.",
		Code: `def check(employee, security, trade_date):
    if security["ticker"] in employee.get("restricted_tickers", []):
        return {"allowed": False, "reason": "restricted"}
    return {"allowed": True}`,
	}
}

func TestValidate(t *testing.T) {
	t.Run("static rejection never touches the sandbox", func(t *testing.T) {
		f := &fakeExecutor{}
		draft := cleanDraft()
		draft.Code = "import os\n" + draft.Code

		outcome := newTestValidator(f).Validate(context.Background(), draft)
		if outcome.Kind != rules.OutcomeSecurityRejected {
			t.Fatalf("kind = %s, want security_rejected", outcome.Kind)
		}
		if outcome.Pattern != "import os" {
			t.Errorf("pattern = %q", outcome.Pattern)
		}
		if f.creates != 0 || f.execs != 0 || f.destroys != 0 {
			t.Errorf("sandbox touched: creates=%d execs=%d destroys=%d", f.creates, f.execs, f.destroys)
		}
	})

	t.Run("clean rule passes both phases", func(t *testing.T) {
		f := &fakeExecutor{results: []*sandbox.ExecResult{
			{ExitCode: 0, Stdout: "SYNTAX_OK\n"},
			{ExitCode: 0, Stdout: "__RULE_OUTPUT__\n{\"allowed\": true}\n__RULE_OUTPUT_END__\n"},
		}}

		outcome := newTestValidator(f).Validate(context.Background(), cleanDraft())
		if !outcome.OK() {
			t.Fatalf("outcome = %+v, want pass", outcome)
		}
		if f.execs != 2 {
			t.Errorf("execs = %d, want 2", f.execs)
		}
		if f.destroys != 1 {
			t.Errorf("destroys = %d, want 1", f.destroys)
		}
	})

	t.Run("syntax failure skips the functional phase", func(t *testing.T) {
		f := &fakeExecutor{results: []*sandbox.ExecResult{
			{ExitCode: 1, Stdout: "SYNTAX_ERROR line 2: invalid syntax\n"},
		}}

		outcome := newTestValidator(f).Validate(context.Background(), cleanDraft())
		if outcome.Kind != rules.OutcomeSyntaxError {
			t.Fatalf("kind = %s, want syntax_error", outcome.Kind)
		}
		if f.execs != 1 {
			t.Errorf("execs = %d, want 1", f.execs)
		}
		if f.destroys != 1 {
			t.Error("sandbox not destroyed after syntax failure")
		}
	})

	t.Run("rule raising at runtime is a runtime error", func(t *testing.T) {
		f := &fakeExecutor{results: []*sandbox.ExecResult{
			{ExitCode: 0, Stdout: "SYNTAX_OK\n"},
			{ExitCode: 1, Stderr: "KeyError: 'ticker'"},
		}}

		outcome := newTestValidator(f).Validate(context.Background(), cleanDraft())
		if outcome.Kind != rules.OutcomeRuntimeError {
			t.Fatalf("kind = %s, want runtime_error", outcome.Kind)
		}
		if outcome.Detail == "" {
			t.Error("runtime error carries no detail")
		}
	})

	t.Run("output missing allowed boolean violates the contract", func(t *testing.T) {
		f := &fakeExecutor{results: []*sandbox.ExecResult{
			{ExitCode: 0, Stdout: "SYNTAX_OK\n"},
			{ExitCode: 0, Stdout: "__RULE_OUTPUT__\n{\"reason\": \"no verdict\"}\n__RULE_OUTPUT_END__\n"},
		}}

		outcome := newTestValidator(f).Validate(context.Background(), cleanDraft())
		if outcome.Kind != rules.OutcomeContractViolation {
			t.Fatalf("kind = %s, want contract_violation", outcome.Kind)
		}
	})

	t.Run("missing sentinels violate the contract", func(t *testing.T) {
		f := &fakeExecutor{results: []*sandbox.ExecResult{
			{ExitCode: 0, Stdout: "SYNTAX_OK\n"},
			{ExitCode: 0, Stdout: "{\"allowed\": true}\n"},
		}}

		outcome := newTestValidator(f).Validate(context.Background(), cleanDraft())
		if outcome.Kind != rules.OutcomeContractViolation {
			t.Fatalf("kind = %s, want contract_violation", outcome.Kind)
		}
	})

	t.Run("provisioning failure is an infrastructure error", func(t *testing.T) {
		f := &fakeExecutor{createErr: errors.New("quota exceeded")}

		outcome := newTestValidator(f).Validate(context.Background(), cleanDraft())
		if outcome.Kind != rules.OutcomeInfraError {
			t.Fatalf("kind = %s, want infrastructure_error", outcome.Kind)
		}
		if f.destroys != 0 {
			t.Error("destroy called for sandbox that was never created")
		}
	})

	t.Run("transport failure mid-phase is an infrastructure error", func(t *testing.T) {
		f := &fakeExecutor{
			execErrs: []error{errors.New("connection reset")},
		}

		outcome := newTestValidator(f).Validate(context.Background(), cleanDraft())
		if outcome.Kind != rules.OutcomeInfraError {
			t.Fatalf("kind = %s, want infrastructure_error", outcome.Kind)
		}
		if f.destroys != 1 {
			t.Error("sandbox leaked after transport failure")
		}
	})
}

func TestProgramTransport(t *testing.T) {
	t.Run("rule code with quotes survives encoding", func(t *testing.T) {
		code := `def check(e, s, d):
    return {"allowed": s["ticker"] != 'TSLA', "reason": "it's fine"}`
		cmd := bootstrapCommand(buildSyntaxProgram(code))
		if len(cmd) == 0 {
			t.Fatal("empty command")
		}
		for _, ch := range []string{"'TSLA'", `"allowed"`} {
			if strings.Contains(cmd, ch) {
				t.Errorf("raw %q leaked into shell command", ch)
			}
		}
	})

	t.Run("extractRuleOutput finds delimited payload", func(t *testing.T) {
		stdout := "noise before\n__RULE_OUTPUT__\n{\"allowed\": false}\n__RULE_OUTPUT_END__\ntrailing"
		raw, ok := extractRuleOutput(stdout)
		if !ok {
			t.Fatal("sentinels not found")
		}
		if raw != "{\"allowed\": false}" {
			t.Errorf("raw = %q", raw)
		}
	})
}
