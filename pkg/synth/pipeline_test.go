package synth

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"clearpath-hq/sentinel/pkg/rules"
)

type captureWriter struct {
	saved *rules.RulesBundle
	err   error
}

func (w *captureWriter) Save(ctx context.Context, bundle *rules.RulesBundle) error {
	if w.err != nil {
		return w.err
	}
	w.saved = bundle
	return nil
}

func TestIngest(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Run("persists only converged rules and sums iterations", func(t *testing.T) {
		gen := &scriptedGenerator{batches: [][]rules.DraftRule{
			{draftNamed("rule_a"), draftNamed("rule_b")},
		}}
		// rule_a passes immediately; rule_b fails all three attempts and no
		// revisions are offered after the scripted batch runs out.
		val := &scriptedValidator{outcomes: []rules.ValidationOutcome{
			rules.Passed("ok"),
			rules.RuntimeError("boom"),
		}}
		writer := &captureWriter{}
		refiner := NewRefiner(gen, val, nil, 3, logger)
		p := NewPipeline(gen, refiner, writer, nil, nil, logger)

		bundle, err := p.Ingest(context.Background(), "Acme Corp", "No trading restricted tickers.")
		if err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
		if writer.saved == nil {
			t.Fatal("bundle not persisted")
		}
		if len(bundle.Rules) != 1 || bundle.Rules[0].RuleID != "rule_a" {
			t.Fatalf("rules = %+v", bundle.Rules)
		}
		// rule_a took 1 iteration; rule_b consumed 1 before the generator
		// ran dry.
		if bundle.TotalIterations != 2 {
			t.Errorf("total_iterations = %d, want 2", bundle.TotalIterations)
		}
		if bundle.FirmName != "Acme Corp" {
			t.Errorf("firm_name = %q", bundle.FirmName)
		}
		if len(bundle.PolicyVersion) != 7 {
			t.Errorf("policy_version = %q, want YYYY-MM", bundle.PolicyVersion)
		}
		if err := bundle.Validate(); err != nil {
			t.Errorf("persisted bundle invalid: %v", err)
		}
	})

	t.Run("all drafts failing still persists an empty bundle", func(t *testing.T) {
		gen := &scriptedGenerator{batches: [][]rules.DraftRule{{draftNamed("rule_a")}}}
		val := &scriptedValidator{outcomes: []rules.ValidationOutcome{
			rules.InfraError("sandbox down"),
		}}
		writer := &captureWriter{}
		refiner := NewRefiner(gen, val, nil, 3, logger)
		p := NewPipeline(gen, refiner, writer, nil, nil, logger)

		bundle, err := p.Ingest(context.Background(), "acme", "policy")
		if err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
		if writer.saved == nil || len(bundle.Rules) != 0 {
			t.Errorf("want persisted empty bundle, got %+v", bundle)
		}
	})

	t.Run("generation failure aborts before persistence", func(t *testing.T) {
		gen := &scriptedGenerator{err: errors.New("api unavailable")}
		writer := &captureWriter{}
		refiner := NewRefiner(gen, &scriptedValidator{}, nil, 3, logger)
		p := NewPipeline(gen, refiner, writer, nil, nil, logger)

		if _, err := p.Ingest(context.Background(), "acme", "policy"); err == nil {
			t.Fatal("expected error")
		}
		if writer.saved != nil {
			t.Error("bundle persisted despite generation failure")
		}
	})

	t.Run("exhausted quota rejects the ingestion upfront", func(t *testing.T) {
		gen := &scriptedGenerator{batches: [][]rules.DraftRule{{draftNamed("rule_a")}}}
		meter := meterFunc(func(ctx context.Context, firm string) error {
			return errors.New("daily budget exhausted")
		})
		writer := &captureWriter{}
		refiner := NewRefiner(gen, &scriptedValidator{}, meter, 3, logger)
		p := NewPipeline(gen, refiner, writer, meter, nil, logger)

		if _, err := p.Ingest(context.Background(), "acme", "policy"); err == nil {
			t.Fatal("expected quota error")
		}
		if gen.calls != 0 {
			t.Error("generator called despite exhausted quota")
		}
	})
}
