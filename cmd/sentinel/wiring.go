package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"clearpath-hq/sentinel/pkg/cli"
	"clearpath-hq/sentinel/pkg/config"
	"clearpath-hq/sentinel/pkg/directory"
	"clearpath-hq/sentinel/pkg/evaluate"
	"clearpath-hq/sentinel/pkg/providers"
	"clearpath-hq/sentinel/pkg/providers/anthropic"
	"clearpath-hq/sentinel/pkg/providers/daytona"
	"clearpath-hq/sentinel/pkg/quota"
	"clearpath-hq/sentinel/pkg/store"
	"clearpath-hq/sentinel/pkg/synth"
	"clearpath-hq/sentinel/pkg/telemetry/logging"
	"clearpath-hq/sentinel/pkg/validate"
)

// setupCommandLogger configures logging for one-shot subcommands. Command
// output goes to stdout, so logs go to stderr.
func setupCommandLogger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.Setup(logging.Config{
		Level:  cfg.Telemetry.Logging.Level,
		Format: cfg.Telemetry.Logging.Format,
		Writer: os.Stderr,
	})
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return logger, nil
}

// buildDirectory resolves the employee directory: a JSON roster file when
// configured, otherwise the built-in demo roster.
func buildDirectory(cfg *config.Config) (directory.Directory, error) {
	if cfg.Directory.Path != "" {
		return directory.LoadFile(cfg.Directory.Path)
	}
	return directory.NewDemo(), nil
}

// buildMeter creates the generation quota meter, or nil when quota
// enforcement is disabled.
func buildMeter(cfg *config.Config) (*quota.Meter, error) {
	if !cfg.Quota.Enabled {
		return nil, nil
	}
	return quota.NewMeter(cfg.Quota.DBPath, int(cfg.Quota.DailyGenerations))
}

// buildPipeline assembles the full synthesis chain: generator, sandbox
// validator, refinement loop, and bundle persistence.
func buildPipeline(cfg *config.Config, st *store.Store, meter synth.Meter, observer synth.Observer, logger *slog.Logger) (*synth.Pipeline, error) {
	generator, err := anthropic.NewGenerator(providers.ClientConfig{
		Name:       "anthropic",
		BaseURL:    cfg.Generator.BaseURL,
		APIKey:     cfg.Generator.APIKey,
		Timeout:    cfg.Generator.Timeout,
		MaxRetries: cfg.Generator.MaxRetries,
	}, cfg.Generator.Model, cfg.Generator.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}

	// The HTTP timeout must outlive the in-sandbox run it is waiting on.
	executor, err := daytona.NewExecutor(providers.ClientConfig{
		Name:       "daytona",
		BaseURL:    cfg.Sandbox.BaseURL,
		APIKey:     cfg.Sandbox.APIKey,
		Timeout:    cfg.Sandbox.FunctionalTimeout + 30*time.Second,
		MaxRetries: cfg.Sandbox.MaxRetries,
	}, cfg.Sandbox.Target, cfg.Sandbox.PreserveSandboxes)
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox executor: %w", err)
	}

	validator := validate.NewValidator(executor, logger,
		validate.WithTimeouts(cfg.Sandbox.SyntaxTimeout, cfg.Sandbox.FunctionalTimeout))
	refiner := synth.NewRefiner(generator, validator, meter, cfg.Synthesis.MaxAttempts, logger)
	return synth.NewPipeline(generator, refiner, st, meter, observer, logger), nil
}

// buildEvaluator assembles the local rule runner and evaluator.
func buildEvaluator(cfg *config.Config, st *store.Store, observer evaluate.Observer, logger *slog.Logger) *evaluate.Evaluator {
	runner := evaluate.NewLocalRunner(cfg.Runner.PythonBin, cfg.Runner.FallbackBin, cfg.Runner.Timeout)
	return evaluate.NewEvaluator(st, runner, observer, logger)
}
