package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file, applies defaults, and
// validates the result. Environment overrides are not applied; use
// LoadWithEnv for the full layering.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadWithEnv loads configuration from a YAML file and applies environment
// variable overrides. If path is empty or the file does not exist, built-in
// defaults are used as the base. Environment variables always win.
func LoadWithEnv(path string) (*Config, error) {
	var cfg *Config

	if path == "" {
		cfg = Default()
	} else if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg = Default()
	} else {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides to the
// configuration. SENTINEL_* variables map onto config fields; the vendor
// credential variables and a few compatibility names are honored as well.
func ApplyEnvOverrides(cfg *Config) {
	// Server
	if val := os.Getenv("SENTINEL_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	} else if val := os.Getenv("PORT"); val != "" {
		cfg.Server.ListenAddress = ":" + val
	}

	// Generator credentials and model selection
	if val := os.Getenv("ANTHROPIC_API_KEY"); val != "" {
		cfg.Generator.APIKey = val
	}
	if val := os.Getenv("ANTHROPIC_BASE_URL"); val != "" {
		cfg.Generator.BaseURL = val
	}
	if val := os.Getenv("ANTHROPIC_MODEL"); val != "" {
		cfg.Generator.Model = val
	}
	if val := os.Getenv("SENTINEL_GENERATOR_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Generator.Timeout = d
		}
	}

	// Sandbox credentials and placement
	if val := os.Getenv("DAYTONA_API_KEY"); val != "" {
		cfg.Sandbox.APIKey = val
	}
	if val := os.Getenv("DAYTONA_API_URL"); val != "" {
		cfg.Sandbox.BaseURL = val
	}
	if val := os.Getenv("DAYTONA_TARGET"); val != "" {
		cfg.Sandbox.Target = val
	}
	if val := os.Getenv("DAYTONA_PRESERVE_SANDBOXES"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Sandbox.PreserveSandboxes = b
		}
	}

	// Runner
	if val := os.Getenv("PYTHON_BIN"); val != "" {
		cfg.Runner.PythonBin = val
	}
	if val := os.Getenv("SENTINEL_RUNNER_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Runner.Timeout = d
		}
	}

	// Synthesis
	if val := os.Getenv("SENTINEL_SYNTHESIS_MAX_ATTEMPTS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Synthesis.MaxAttempts = i
		}
	}

	// Store
	if val := os.Getenv("SENTINEL_RULES_DIR"); val != "" {
		cfg.Store.RulesDir = val
	}
	if val := os.Getenv("SENTINEL_RULES_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Store.Watch = b
		}
	}

	// Directory
	if val := os.Getenv("SENTINEL_DIRECTORY_PATH"); val != "" {
		cfg.Directory.Path = val
	}

	// Audit
	if val := os.Getenv("SENTINEL_AUDIT_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Audit.Enabled = b
		}
	}
	if val := os.Getenv("SENTINEL_AUDIT_BACKEND"); val != "" {
		cfg.Audit.Backend = val
	}
	if val := os.Getenv("SENTINEL_AUDIT_SQLITE_PATH"); val != "" {
		cfg.Audit.SQLitePath = val
	}
	if val := os.Getenv("SENTINEL_AUDIT_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Audit.Retention.Days = i
		}
	}
	if val := os.Getenv("SENTINEL_AUDIT_RETENTION_SCHEDULE"); val != "" {
		cfg.Audit.Retention.Schedule = val
	}

	// Quota
	if val := os.Getenv("SENTINEL_QUOTA_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Quota.Enabled = b
		}
	}
	if val := os.Getenv("SENTINEL_QUOTA_DAILY_GENERATIONS"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Quota.DailyGenerations = i
		}
	}

	// Telemetry
	if val := os.Getenv("SENTINEL_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("SENTINEL_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("SENTINEL_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
}
