package evaluate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clearpath-hq/sentinel/pkg/rules"
)

// BundleLoader fetches a firm's stored rules. A nil bundle means the firm
// has never been ingested.
type BundleLoader interface {
	Load(ctx context.Context, firmName string) (*rules.RulesBundle, error)
}

// Observer receives evaluation outcomes for metrics.
type Observer interface {
	CheckCompleted(firm string, allowed bool, rulesChecked int, duration time.Duration)
}

// Evaluator aggregates per-rule verdicts into one compliance decision.
//
// Every applicable rule runs; there is no short-circuit on the first
// denial, so the verdict carries the complete set of reasons. A rule that
// fails to execute denies conservatively rather than being skipped.
type Evaluator struct {
	loader   BundleLoader
	runner   Runner
	observer Observer
	logger   *slog.Logger
	now      func() time.Time
}

// NewEvaluator creates an evaluator. observer may be nil.
func NewEvaluator(loader BundleLoader, runner Runner, observer Observer, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		loader:   loader,
		runner:   runner,
		observer: observer,
		logger:   logger.With("component", "evaluator"),
		now:      time.Now,
	}
}

// Evaluate answers one trade question for a firm. Rules run in stored
// order, filtered to active rules whose role list covers the employee.
// A firm with no stored rules permits vacuously.
func (e *Evaluator) Evaluate(ctx context.Context, firmName string, input RunInput) (*rules.ComplianceVerdict, error) {
	start := e.now()
	log := e.logger.With("firm", firmName, "employee", input.Employee.ID(), "ticker", input.Security.Ticker())

	bundle, err := e.loader.Load(ctx, firmName)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules for %q: %w", firmName, err)
	}

	verdict := rules.NewVerdict()
	if bundle == nil || len(bundle.Rules) == 0 {
		log.Info("no stored rules, permitting vacuously")
		return verdict, nil
	}

	role := input.Employee.Role()
	for i := range bundle.Rules {
		rule := &bundle.Rules[i]
		if !rule.Active || !rule.AppliesTo(role) {
			continue
		}
		verdict.RulesChecked = append(verdict.RulesChecked, rule.RuleName)

		result, err := e.runner.Run(ctx, rule.Code, input)
		if err != nil {
			log.Error("rule execution failed", "rule", rule.RuleName, "error", err)
			verdict.Block(
				fmt.Sprintf("Rule %s execution failed: %v", rule.RuleName, err),
				rule.PolicyReference)
			continue
		}
		if result.Allowed {
			continue
		}

		reason := result.Reason
		if reason == "" {
			reason = fmt.Sprintf("Blocked by rule %s", rule.RuleName)
		}
		policyRef := result.PolicyRef
		if policyRef == "" {
			policyRef = rule.PolicyReference
		}
		verdict.Block(reason, policyRef)
	}

	elapsed := e.now().Sub(start)
	if e.observer != nil {
		e.observer.CheckCompleted(firmName, verdict.Allowed, len(verdict.RulesChecked), elapsed)
	}
	log.Info("compliance check complete",
		"allowed", verdict.Allowed,
		"rules_checked", len(verdict.RulesChecked),
		"duration", elapsed.Round(time.Millisecond).String())
	return verdict, nil
}
