package config

import "time"

// Default returns a fully-defaulted configuration.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with sensible defaults. Credentials
// have no defaults; they must come from the file or the environment.
func ApplyDefaults(cfg *Config) {
	// Server
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = ":3000"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		// Ingestion holds the connection open across generation and
		// sandbox validation of every draft.
		cfg.Server.WriteTimeout = 15 * time.Minute
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 120 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = 1 << 20
	}
	if !cfg.Server.CORS.Enabled && len(cfg.Server.CORS.AllowedOrigins) == 0 {
		cfg.Server.CORS = CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
			MaxAge:         3600,
		}
	}

	// Generator
	if cfg.Generator.BaseURL == "" {
		cfg.Generator.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = "claude-sonnet-4-20250514"
	}
	if cfg.Generator.MaxTokens == 0 {
		cfg.Generator.MaxTokens = 8192
	}
	if cfg.Generator.Timeout == 0 {
		cfg.Generator.Timeout = 120 * time.Second
	}
	if cfg.Generator.MaxRetries == 0 {
		cfg.Generator.MaxRetries = 2
	}

	// Sandbox
	if cfg.Sandbox.BaseURL == "" {
		cfg.Sandbox.BaseURL = "https://app.daytona.io/api"
	}
	if cfg.Sandbox.Target == "" {
		cfg.Sandbox.Target = "us"
	}
	if cfg.Sandbox.SyntaxTimeout == 0 {
		cfg.Sandbox.SyntaxTimeout = 60 * time.Second
	}
	if cfg.Sandbox.FunctionalTimeout == 0 {
		cfg.Sandbox.FunctionalTimeout = 120 * time.Second
	}
	if cfg.Sandbox.MaxRetries == 0 {
		cfg.Sandbox.MaxRetries = 2
	}

	// Runner
	if cfg.Runner.PythonBin == "" {
		cfg.Runner.PythonBin = "python3"
	}
	if cfg.Runner.FallbackBin == "" {
		cfg.Runner.FallbackBin = "python"
	}
	if cfg.Runner.Timeout == 0 {
		cfg.Runner.Timeout = 10 * time.Second
	}

	// Synthesis
	if cfg.Synthesis.MaxAttempts == 0 {
		cfg.Synthesis.MaxAttempts = 5
	}

	// Store
	if cfg.Store.RulesDir == "" {
		cfg.Store.RulesDir = "data/rules"
	}

	// Audit
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = "sqlite"
	}
	if cfg.Audit.SQLitePath == "" {
		cfg.Audit.SQLitePath = "data/audit.db"
	}
	if cfg.Audit.AsyncBuffer == 0 {
		cfg.Audit.AsyncBuffer = 1000
	}
	if cfg.Audit.Retention.Days == 0 {
		cfg.Audit.Retention.Days = 365
	}

	// Quota
	if cfg.Quota.DBPath == "" {
		cfg.Quota.DBPath = "data/quota.db"
	}
	if cfg.Quota.DailyGenerations == 0 {
		cfg.Quota.DailyGenerations = 500
	}

	// Telemetry
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = "/metrics"
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = "sentinel"
	}
}
