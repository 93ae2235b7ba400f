package synth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"clearpath-hq/sentinel/pkg/rules"
)

// scriptedGenerator returns canned drafts per call.
type scriptedGenerator struct {
	batches  [][]rules.DraftRule
	err      error
	calls    int
	requests []Request
}

func (g *scriptedGenerator) Generate(ctx context.Context, req Request) ([]rules.DraftRule, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	i := g.calls
	g.calls++
	if i >= len(g.batches) {
		return nil, nil
	}
	return g.batches[i], nil
}

// scriptedValidator returns canned outcomes per call.
type scriptedValidator struct {
	outcomes []rules.ValidationOutcome
	calls    int
}

func (v *scriptedValidator) Validate(ctx context.Context, draft *rules.DraftRule) rules.ValidationOutcome {
	i := v.calls
	v.calls++
	if i >= len(v.outcomes) {
		return rules.Passed("")
	}
	return v.outcomes[i]
}

func draftNamed(id string) rules.DraftRule {
	return rules.DraftRule{
		RuleID:   id,
		RuleName: "Test Rule",
		Code:     "def check(e, s, d):\n    return {\"allowed\": True}",
	}
}

func TestRefine(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Run("first-attempt pass needs no regeneration", func(t *testing.T) {
		gen := &scriptedGenerator{}
		val := &scriptedValidator{outcomes: []rules.ValidationOutcome{rules.Passed("ok")}}
		r := NewRefiner(gen, val, nil, 5, logger)

		res := r.Refine(context.Background(), Request{FirmName: "acme"}, draftNamed("rule_a"))
		if !res.Validated {
			t.Fatal("expected validated result")
		}
		if res.Iterations != 1 {
			t.Errorf("iterations = %d, want 1", res.Iterations)
		}
		if gen.calls != 0 {
			t.Errorf("generator called %d times, want 0", gen.calls)
		}
		if !res.Rule.Active {
			t.Error("validated rule must be active")
		}
	})

	t.Run("failure feeds back and converges on second attempt", func(t *testing.T) {
		gen := &scriptedGenerator{batches: [][]rules.DraftRule{
			{{RuleID: "rule_a_v2", RuleName: "Test Rule", Code: "def check(e, s, d):\n    return {\"allowed\": False}"}},
		}}
		val := &scriptedValidator{outcomes: []rules.ValidationOutcome{
			rules.SyntaxError("SYNTAX_ERROR line 1: invalid syntax"),
			rules.Passed("ok"),
		}}
		r := NewRefiner(gen, val, nil, 5, logger)

		res := r.Refine(context.Background(), Request{FirmName: "acme"}, draftNamed("rule_a"))
		if !res.Validated {
			t.Fatal("expected convergence on attempt 2")
		}
		if res.Iterations != 2 {
			t.Errorf("iterations = %d, want 2", res.Iterations)
		}
		if res.Rule.RuleID != "rule_a" {
			t.Errorf("rule identity not pinned: %q", res.Rule.RuleID)
		}

		hist := res.Rule.ValidationHistory
		if len(hist) != 2 {
			t.Fatalf("history length = %d, want 2", len(hist))
		}
		if hist[0].Passed || hist[0].FeedbackToGenerator == "" {
			t.Errorf("first attempt record = %+v", hist[0])
		}
		if !strings.HasPrefix(hist[0].FeedbackToGenerator, "Fix syntax issues:") {
			t.Errorf("feedback = %q", hist[0].FeedbackToGenerator)
		}
		if !hist[1].Passed || hist[1].FeedbackToGenerator != "" {
			t.Errorf("second attempt record = %+v", hist[1])
		}

		// The revision request must carry the failed code and feedback.
		if len(gen.requests) != 1 {
			t.Fatalf("generator calls = %d, want 1", len(gen.requests))
		}
		pf := gen.requests[0].PriorFailure
		if pf == nil || pf.Code == "" || !strings.Contains(pf.Error, "invalid syntax") {
			t.Errorf("prior failure = %+v", pf)
		}
	})

	t.Run("attempt budget exhaustion yields unvalidated rule", func(t *testing.T) {
		gen := &scriptedGenerator{batches: [][]rules.DraftRule{
			{draftNamed("v2")}, {draftNamed("v3")},
		}}
		val := &scriptedValidator{outcomes: []rules.ValidationOutcome{
			rules.RuntimeError("boom"),
			rules.RuntimeError("boom"),
			rules.RuntimeError("boom"),
		}}
		r := NewRefiner(gen, val, nil, 3, logger)

		res := r.Refine(context.Background(), Request{FirmName: "acme"}, draftNamed("rule_a"))
		if res.Validated {
			t.Fatal("expected exhaustion")
		}
		if res.Iterations != 3 {
			t.Errorf("iterations = %d, want 3", res.Iterations)
		}
		if res.Rule.Active {
			t.Error("failed rule must not be active")
		}
		if gen.calls != 2 {
			t.Errorf("generator calls = %d, want 2 (no regeneration after final attempt)", gen.calls)
		}
	})

	t.Run("infrastructure failure aborts without regeneration", func(t *testing.T) {
		gen := &scriptedGenerator{}
		val := &scriptedValidator{outcomes: []rules.ValidationOutcome{
			rules.InfraError("sandbox provisioning failed"),
		}}
		r := NewRefiner(gen, val, nil, 5, logger)

		res := r.Refine(context.Background(), Request{FirmName: "acme"}, draftNamed("rule_a"))
		if res.Validated {
			t.Fatal("infra failure must not validate")
		}
		if res.Iterations != 1 {
			t.Errorf("iterations = %d, want 1", res.Iterations)
		}
		if gen.calls != 0 {
			t.Error("revising code cannot fix an infrastructure outage")
		}
	})

	t.Run("exhausted quota stops regeneration", func(t *testing.T) {
		gen := &scriptedGenerator{batches: [][]rules.DraftRule{{draftNamed("v2")}}}
		val := &scriptedValidator{outcomes: []rules.ValidationOutcome{
			rules.RuntimeError("boom"),
		}}
		meter := meterFunc(func(ctx context.Context, firm string) error {
			return errors.New("daily budget exhausted")
		})
		r := NewRefiner(gen, val, meter, 5, logger)

		res := r.Refine(context.Background(), Request{FirmName: "acme"}, draftNamed("rule_a"))
		if res.Validated || gen.calls != 0 {
			t.Errorf("validated=%v generator calls=%d, want false/0", res.Validated, gen.calls)
		}
	})
}

type meterFunc func(ctx context.Context, firm string) error

func (f meterFunc) Charge(ctx context.Context, firm string) error { return f(ctx, firm) }

func TestComposeFeedback(t *testing.T) {
	cases := []struct {
		outcome rules.ValidationOutcome
		prefix  string
	}{
		{rules.SyntaxError("bad indent"), "Fix syntax issues: bad indent"},
		{rules.RuntimeError("KeyError"), "Runtime failure: KeyError"},
		{rules.ContractViolation("missing allowed"), "Logical/test failure: missing allowed"},
		{rules.SecurityRejected("import os"), "Security violation: forbidden pattern: import os"},
		{rules.InfraError("timeout"), "General validation error: timeout"},
	}
	for _, c := range cases {
		got := ComposeFeedback(c.outcome)
		if !strings.HasPrefix(got, c.prefix) {
			t.Errorf("ComposeFeedback(%s) = %q, want prefix %q", c.outcome.Kind, got, c.prefix)
		}
	}
	if ComposeFeedback(rules.Passed("")) != "" {
		t.Error("passing outcome must produce no feedback")
	}
}
