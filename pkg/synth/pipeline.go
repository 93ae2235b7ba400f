package synth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clearpath-hq/sentinel/pkg/rules"
)

// BundleWriter persists a firm's finished bundle.
type BundleWriter interface {
	Save(ctx context.Context, bundle *rules.RulesBundle) error
}

// Observer receives synthesis outcomes for metrics. All methods must be
// cheap and non-blocking.
type Observer interface {
	RuleOutcome(firm string, validated bool, iterations int)
	IngestCompleted(firm string, ruleCount int, duration time.Duration)
}

// Pipeline converts policy prose into a persisted bundle of validated
// rules: one initial generation, then an independent refinement loop per
// draft. Drafts that never converge are dropped from the bundle but still
// counted in its iteration total.
type Pipeline struct {
	generator Generator
	refiner   *Refiner
	writer    BundleWriter
	meter     Meter
	observer  Observer
	logger    *slog.Logger
	now       func() time.Time
}

// NewPipeline creates a pipeline. meter and observer may be nil.
func NewPipeline(generator Generator, refiner *Refiner, writer BundleWriter, meter Meter, observer Observer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		generator: generator,
		refiner:   refiner,
		writer:    writer,
		meter:     meter,
		observer:  observer,
		logger:    logger.With("component", "synthesis"),
		now:       time.Now,
	}
}

// Ingest runs the full synthesis pass for one firm and persists the result.
// An ingestion where every draft fails still persists an empty bundle; for
// evaluation, no rules means no restrictions.
func (p *Pipeline) Ingest(ctx context.Context, firmName, policyText string) (*rules.RulesBundle, error) {
	start := p.now()
	log := p.logger.With("firm", firmName)

	if p.meter != nil {
		if err := p.meter.Charge(ctx, firmName); err != nil {
			return nil, fmt.Errorf("generation quota: %w", err)
		}
	}

	req := Request{PolicyText: policyText, FirmName: firmName}
	drafts, err := p.generator.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("rule generation failed: %w", err)
	}
	log.Info("initial generation complete", "drafts", len(drafts))

	bundle := &rules.RulesBundle{
		FirmName:      firmName,
		PolicyVersion: start.UTC().Format("2006-01"),
		LastUpdated:   p.now().UTC(),
		Rules:         []rules.Rule{},
	}

	for _, draft := range drafts {
		res := p.refiner.Refine(ctx, req, draft)
		bundle.TotalIterations += res.Iterations
		if p.observer != nil {
			p.observer.RuleOutcome(firmName, res.Validated, res.Iterations)
		}
		if !res.Validated {
			log.Warn("dropping rule that never converged",
				"rule_id", draft.RuleID, "iterations", res.Iterations)
			continue
		}
		bundle.Rules = append(bundle.Rules, res.Rule)
	}

	bundle.LastUpdated = p.now().UTC()
	if err := p.writer.Save(ctx, bundle); err != nil {
		return nil, fmt.Errorf("failed to persist bundle for %q: %w", firmName, err)
	}

	elapsed := p.now().Sub(start)
	if p.observer != nil {
		p.observer.IngestCompleted(firmName, len(bundle.Rules), elapsed)
	}
	log.Info("ingestion complete",
		"rules", len(bundle.Rules),
		"dropped", len(drafts)-len(bundle.Rules),
		"total_iterations", bundle.TotalIterations,
		"duration", elapsed.Round(time.Millisecond).String())
	return bundle, nil
}
