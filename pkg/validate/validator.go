package validate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"clearpath-hq/sentinel/pkg/rules"
	"clearpath-hq/sentinel/pkg/sandbox"
)

// Default phase timeouts. The functional phase gets more headroom because
// it pays interpreter startup plus rule execution.
const (
	DefaultSyntaxTimeout     = 60 * time.Second
	DefaultFunctionalTimeout = 120 * time.Second
)

// Validator runs a draft rule through the screener and a two-phase sandbox
// check. One Validate call provisions at most one sandbox and always tears
// it down.
type Validator struct {
	executor          sandbox.Executor
	screener          *Screener
	syntaxTimeout     time.Duration
	functionalTimeout time.Duration
	fixture           func() Fixture
	logger            *slog.Logger
}

// Option customizes a Validator.
type Option func(*Validator)

// WithTimeouts overrides the per-phase sandbox timeouts.
func WithTimeouts(syntax, functional time.Duration) Option {
	return func(v *Validator) {
		if syntax > 0 {
			v.syntaxTimeout = syntax
		}
		if functional > 0 {
			v.functionalTimeout = functional
		}
	}
}

// WithScreener replaces the canonical screener.
func WithScreener(s *Screener) Option {
	return func(v *Validator) { v.screener = s }
}

// WithFixture replaces the canonical functional fixture. Used by tests to
// pin the trade date.
func WithFixture(fn func() Fixture) Option {
	return func(v *Validator) { v.fixture = fn }
}

// NewValidator creates a validator backed by the given sandbox executor.
func NewValidator(executor sandbox.Executor, logger *slog.Logger, opts ...Option) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Validator{
		executor:          executor,
		screener:          NewScreener(),
		syntaxTimeout:     DefaultSyntaxTimeout,
		functionalTimeout: DefaultFunctionalTimeout,
		fixture:           CanonicalFixture,
		logger:            logger.With("component", "validator"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate runs the full gate sequence for one draft and reports a typed
// outcome. Infrastructure failures are reported as such and never disguised
// as rule defects.
func (v *Validator) Validate(ctx context.Context, draft *rules.DraftRule) rules.ValidationOutcome {
	log := v.logger.With("rule_id", draft.RuleID, "rule_name", draft.RuleName)

	if pattern, ok := v.screener.Screen(draft.Code); !ok {
		log.Warn("draft rejected by static screener", "pattern", pattern)
		return rules.SecurityRejected(pattern)
	}

	handle, err := v.executor.Create(ctx)
	if err != nil {
		log.Error("sandbox provisioning failed", "error", err)
		return rules.InfraError(fmt.Sprintf("sandbox provisioning failed: %v", err))
	}
	defer func() {
		cleanup, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := v.executor.Destroy(cleanup, handle); err != nil {
			log.Warn("sandbox teardown failed", "sandbox", handle, "error", err)
		}
	}()

	if outcome := v.runSyntaxPhase(ctx, handle, draft.Code); !outcome.OK() {
		return outcome
	}
	return v.runFunctionalPhase(ctx, handle, draft.Code)
}

func (v *Validator) runSyntaxPhase(ctx context.Context, handle, code string) rules.ValidationOutcome {
	res, err := v.executor.Exec(ctx, handle, bootstrapCommand(buildSyntaxProgram(code)), v.syntaxTimeout)
	if err != nil {
		return rules.InfraError(fmt.Sprintf("syntax phase execution failed: %v", err))
	}
	if res.ExitCode != 0 || !strings.Contains(res.Stdout, syntaxOKToken) {
		return rules.SyntaxError(strings.TrimSpace(res.Combined()))
	}
	return rules.Passed("")
}

func (v *Validator) runFunctionalPhase(ctx context.Context, handle, code string) rules.ValidationOutcome {
	program, err := buildFunctionalProgram(code, v.fixture())
	if err != nil {
		return rules.InfraError(err.Error())
	}

	res, err := v.executor.Exec(ctx, handle, bootstrapCommand(program), v.functionalTimeout)
	if err != nil {
		return rules.InfraError(fmt.Sprintf("functional phase execution failed: %v", err))
	}
	if res.ExitCode != 0 {
		return rules.RuntimeError(strings.TrimSpace(res.Combined()))
	}

	raw, ok := extractRuleOutput(res.Stdout)
	if !ok {
		return rules.ContractViolation("rule produced no delimited output")
	}
	result, err := rules.ParseExecutionResult([]byte(raw))
	if err != nil {
		out := rules.ContractViolation(err.Error())
		out.TestOutput = res.Stdout
		return out
	}

	v.logger.Debug("functional phase passed", "allowed", result.Allowed)
	return rules.Passed(res.Stdout)
}
