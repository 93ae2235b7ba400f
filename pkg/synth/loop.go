package synth

import (
	"context"
	"log/slog"
	"time"

	"clearpath-hq/sentinel/pkg/rules"
)

// DefaultMaxAttempts bounds the generate-validate-refine loop per rule.
const DefaultMaxAttempts = 5

// Validator is the gate a draft must clear before it is stored.
type Validator interface {
	Validate(ctx context.Context, draft *rules.DraftRule) rules.ValidationOutcome
}

// Meter charges one unit of generation quota for a firm. Implementations
// return an error when the firm's daily budget is exhausted.
type Meter interface {
	Charge(ctx context.Context, firm string) error
}

// RefineResult is the outcome of refining one draft to convergence or
// exhaustion.
type RefineResult struct {
	// Validated reports whether the final attempt passed.
	Validated bool

	// Rule carries the last draft plus its full validation history,
	// whether or not it converged.
	Rule rules.Rule

	// Iterations is the number of validation attempts consumed.
	Iterations int
}

// Refiner drives one draft through repeated validation, feeding each
// failure back to the generator as revision context.
type Refiner struct {
	generator   Generator
	validator   Validator
	meter       Meter
	maxAttempts int
	logger      *slog.Logger
	now         func() time.Time
}

// NewRefiner creates a refiner. meter may be nil when generation is not
// quota-limited.
func NewRefiner(generator Generator, validator Validator, meter Meter, maxAttempts int, logger *slog.Logger) *Refiner {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refiner{
		generator:   generator,
		validator:   validator,
		meter:       meter,
		maxAttempts: maxAttempts,
		logger:      logger.With("component", "refiner"),
		now:         time.Now,
	}
}

// Refine validates the draft and, on failure, asks the generator to revise
// it, up to the attempt budget. The rule's identity (rule_id) is pinned to
// the original draft across revisions; its history records every attempt.
func (r *Refiner) Refine(ctx context.Context, req Request, draft rules.DraftRule) RefineResult {
	log := r.logger.With("firm", req.FirmName, "rule_id", draft.RuleID)
	ruleID := draft.RuleID
	var history []rules.ValidationAttempt

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		outcome := r.validator.Validate(ctx, &draft)

		record := rules.ValidationAttempt{
			AttemptNumber: attempt,
			Passed:        outcome.OK(),
			Error:         outcome.Message(),
			TestOutput:    outcome.TestOutput,
			Timestamp:     r.now().UTC(),
		}

		if outcome.OK() {
			history = append(history, record)
			log.Info("rule validated", "attempt", attempt)
			return RefineResult{
				Validated: true,
				Rule: rules.Rule{
					DraftRule:         draft,
					Active:            true,
					GenerationAttempt: attempt,
					ValidationHistory: history,
				},
				Iterations: attempt,
			}
		}

		feedback := ComposeFeedback(outcome)
		record.FeedbackToGenerator = feedback
		history = append(history, record)
		log.Warn("validation attempt failed",
			"attempt", attempt, "kind", string(outcome.Kind), "error", outcome.Message())

		// Infrastructure failures say nothing about the rule; revising the
		// code cannot fix a sandbox outage.
		if outcome.Kind == rules.OutcomeInfraError {
			break
		}
		if attempt == r.maxAttempts {
			break
		}

		revised, ok := r.regenerate(ctx, req, draft, outcome, feedback, log)
		if !ok {
			break
		}
		revised.RuleID = ruleID
		draft = revised
	}

	return RefineResult{
		Validated: false,
		Rule: rules.Rule{
			DraftRule:         draft,
			Active:            false,
			GenerationAttempt: len(history),
			ValidationHistory: history,
		},
		Iterations: len(history),
	}
}

func (r *Refiner) regenerate(ctx context.Context, req Request, failed rules.DraftRule, outcome rules.ValidationOutcome, feedback string, log *slog.Logger) (rules.DraftRule, bool) {
	if r.meter != nil {
		if err := r.meter.Charge(ctx, req.FirmName); err != nil {
			log.Warn("generation quota exhausted mid-refinement", "error", err)
			return rules.DraftRule{}, false
		}
	}

	revision := req
	revision.PriorFailure = &PriorFailure{
		Code:       failed.Code,
		Error:      feedback,
		TestOutput: outcome.TestOutput,
	}

	drafts, err := r.generator.Generate(ctx, revision)
	if err != nil {
		log.Error("revision generation failed", "error", err)
		return rules.DraftRule{}, false
	}
	if len(drafts) == 0 {
		log.Warn("generator returned no revision")
		return rules.DraftRule{}, false
	}
	return drafts[0], true
}
