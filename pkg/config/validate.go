package config

import "fmt"

// Validate checks the configuration for structural errors. Missing vendor
// credentials are not an error here: commands that never touch the vendor
// APIs (rules viewer, dry runs) must still be able to load configuration.
// The adapters reject empty keys at construction instead.
func Validate(cfg *Config) error {
	if cfg.Server.ListenAddress == "" {
		return fmt.Errorf("server.listen_address is required")
	}
	if cfg.Server.ReadTimeout <= 0 || cfg.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}

	if cfg.Generator.BaseURL == "" {
		return fmt.Errorf("generator.base_url is required")
	}
	if cfg.Generator.Model == "" {
		return fmt.Errorf("generator.model is required")
	}
	if cfg.Generator.MaxTokens <= 0 {
		return fmt.Errorf("generator.max_tokens must be positive")
	}

	if cfg.Sandbox.BaseURL == "" {
		return fmt.Errorf("sandbox.base_url is required")
	}
	if cfg.Sandbox.SyntaxTimeout <= 0 || cfg.Sandbox.FunctionalTimeout <= 0 {
		return fmt.Errorf("sandbox timeouts must be positive")
	}

	if cfg.Runner.PythonBin == "" {
		return fmt.Errorf("runner.python_bin is required")
	}
	if cfg.Runner.Timeout <= 0 {
		return fmt.Errorf("runner.timeout must be positive")
	}

	if cfg.Synthesis.MaxAttempts < 1 {
		return fmt.Errorf("synthesis.max_attempts must be at least 1")
	}

	if cfg.Store.RulesDir == "" {
		return fmt.Errorf("store.rules_dir is required")
	}

	switch cfg.Audit.Backend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("audit.backend must be %q or %q, got %q", "sqlite", "memory", cfg.Audit.Backend)
	}
	if cfg.Audit.Backend == "sqlite" && cfg.Audit.SQLitePath == "" {
		return fmt.Errorf("audit.sqlite_path is required for the sqlite backend")
	}

	if cfg.Quota.Enabled {
		if cfg.Quota.DBPath == "" {
			return fmt.Errorf("quota.db_path is required when quota is enabled")
		}
		if cfg.Quota.DailyGenerations <= 0 {
			return fmt.Errorf("quota.daily_generations must be positive when quota is enabled")
		}
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry.logging.level must be one of debug, info, warn, error")
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("telemetry.logging.format must be %q or %q", "json", "text")
	}

	return nil
}
