package evaluate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"clearpath-hq/sentinel/pkg/rules"
)

type staticLoader struct {
	bundle *rules.RulesBundle
	err    error
}

func (l *staticLoader) Load(ctx context.Context, firmName string) (*rules.RulesBundle, error) {
	return l.bundle, l.err
}

// mapRunner dispatches on the rule body, which tests use as a key.
type mapRunner struct {
	results map[string]*rules.ExecutionResult
	errs    map[string]error
	ran     []string
}

func (r *mapRunner) Run(ctx context.Context, code string, input RunInput) (*rules.ExecutionResult, error) {
	r.ran = append(r.ran, code)
	if err, ok := r.errs[code]; ok {
		return nil, err
	}
	if res, ok := r.results[code]; ok {
		return res, nil
	}
	return &rules.ExecutionResult{Allowed: true}, nil
}

func storedRule(id, name, code string, roles ...string) rules.Rule {
	return rules.Rule{
		DraftRule: rules.DraftRule{
			RuleID:          id,
			RuleName:        name,
			PolicyReference: "Section 1",
			AppliesToRoles:  roles,
			Code:            code,
		},
		Active:            true,
		GenerationAttempt: 1,
		ValidationHistory: []rules.ValidationAttempt{{AttemptNumber: 1, Passed: true}},
	}
}

func analystInput() RunInput {
	return RunInput{
		Employee:  rules.Employee{"id": "EMP001", "role": "analyst"},
		Security:  rules.Security{"ticker": "TSLA", "requested_action": "buy"},
		TradeDate: "2026-08-26",
	}
}

func newTestEvaluator(loader BundleLoader, runner Runner) *Evaluator {
	return NewEvaluator(loader, runner, nil, slog.New(slog.DiscardHandler))
}

func TestEvaluate(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown firm permits vacuously", func(t *testing.T) {
		e := newTestEvaluator(&staticLoader{bundle: nil}, &mapRunner{})

		v, err := e.Evaluate(ctx, "ghost", analystInput())
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if !v.Allowed || len(v.RulesChecked) != 0 {
			t.Errorf("verdict = %+v", v)
		}
		if v.Reasons == nil || v.PolicyRefs == nil || v.RulesChecked == nil {
			t.Error("verdict slices must be non-nil for JSON encoding")
		}
	})

	t.Run("all rules run even after a denial", func(t *testing.T) {
		bundle := &rules.RulesBundle{FirmName: "acme", Rules: []rules.Rule{
			storedRule("r1", "Restricted List", "code1"),
			storedRule("r2", "Blackout Window", "code2"),
			storedRule("r3", "Deal Conflict", "code3"),
		}}
		runner := &mapRunner{results: map[string]*rules.ExecutionResult{
			"code1": {Allowed: false, Reason: "restricted ticker", PolicyRef: "Section 2"},
			"code2": {Allowed: false, Reason: "earnings blackout"},
			"code3": {Allowed: true},
		}}
		e := newTestEvaluator(&staticLoader{bundle: bundle}, runner)

		v, err := e.Evaluate(ctx, "acme", analystInput())
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if v.Allowed {
			t.Fatal("expected denial")
		}
		if len(runner.ran) != 3 {
			t.Errorf("rules run = %d, want 3 (no short-circuit)", len(runner.ran))
		}
		if len(v.Reasons) != 2 || v.Reasons[0] != "restricted ticker" || v.Reasons[1] != "earnings blackout" {
			t.Errorf("reasons = %v", v.Reasons)
		}
		// A blocking rule without its own policy_ref inherits the rule's.
		if len(v.PolicyRefs) != 2 || v.PolicyRefs[0] != "Section 2" || v.PolicyRefs[1] != "Section 1" {
			t.Errorf("policy_refs = %v", v.PolicyRefs)
		}
		if len(v.RulesChecked) != 3 {
			t.Errorf("rules_checked = %v", v.RulesChecked)
		}
	})

	t.Run("role filter skips inapplicable rules", func(t *testing.T) {
		bundle := &rules.RulesBundle{FirmName: "acme", Rules: []rules.Rule{
			storedRule("r1", "Banker Only", "code1", "banker"),
			storedRule("r2", "Universal", "code2"),
		}}
		runner := &mapRunner{}
		e := newTestEvaluator(&staticLoader{bundle: bundle}, runner)

		v, err := e.Evaluate(ctx, "acme", analystInput())
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if len(v.RulesChecked) != 1 || v.RulesChecked[0] != "Universal" {
			t.Errorf("rules_checked = %v", v.RulesChecked)
		}
	})

	t.Run("inactive rules are skipped", func(t *testing.T) {
		inactive := storedRule("r1", "Retired", "code1")
		inactive.Active = false
		bundle := &rules.RulesBundle{FirmName: "acme", Rules: []rules.Rule{inactive}}
		runner := &mapRunner{}
		e := newTestEvaluator(&staticLoader{bundle: bundle}, runner)

		v, err := e.Evaluate(ctx, "acme", analystInput())
		if err != nil || !v.Allowed || len(runner.ran) != 0 {
			t.Errorf("verdict=%+v err=%v ran=%v", v, err, runner.ran)
		}
	})

	t.Run("execution failure denies conservatively", func(t *testing.T) {
		bundle := &rules.RulesBundle{FirmName: "acme", Rules: []rules.Rule{
			storedRule("r1", "Restricted List", "code1"),
		}}
		runner := &mapRunner{errs: map[string]error{
			"code1": errors.New("rule execution timed out after 10s"),
		}}
		e := newTestEvaluator(&staticLoader{bundle: bundle}, runner)

		v, err := e.Evaluate(ctx, "acme", analystInput())
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if v.Allowed {
			t.Fatal("execution failure must deny")
		}
		want := "Rule Restricted List execution failed: rule execution timed out after 10s"
		if len(v.Reasons) != 1 || v.Reasons[0] != want {
			t.Errorf("reasons = %v, want [%q]", v.Reasons, want)
		}
	})

	t.Run("denial without a reason gets a synthetic one", func(t *testing.T) {
		bundle := &rules.RulesBundle{FirmName: "acme", Rules: []rules.Rule{
			storedRule("r1", "Silent Rule", "code1"),
		}}
		runner := &mapRunner{results: map[string]*rules.ExecutionResult{
			"code1": {Allowed: false},
		}}
		e := newTestEvaluator(&staticLoader{bundle: bundle}, runner)

		v, _ := e.Evaluate(ctx, "acme", analystInput())
		if len(v.Reasons) != 1 || !strings.Contains(v.Reasons[0], "Silent Rule") {
			t.Errorf("reasons = %v", v.Reasons)
		}
	})

	t.Run("loader failure surfaces as an error", func(t *testing.T) {
		e := newTestEvaluator(&staticLoader{err: errors.New("disk gone")}, &mapRunner{})
		if _, err := e.Evaluate(ctx, "acme", analystInput()); err == nil {
			t.Fatal("expected error")
		}
	})
}
