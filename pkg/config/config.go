package config

import "time"

// Config is the root configuration for the Sentinel service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Generator GeneratorConfig `yaml:"generator"`
	Sandbox   SandboxConfig   `yaml:"sandbox"`
	Runner    RunnerConfig    `yaml:"runner"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
	Store     StoreConfig     `yaml:"store"`
	Directory DirectoryConfig `yaml:"directory"`
	Audit     AuditConfig     `yaml:"audit"`
	Quota     QuotaConfig     `yaml:"quota"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	ListenAddress   string        `yaml:"listen_address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes"`
	CORS            CORSConfig    `yaml:"cors"`
}

// CORSConfig controls cross-origin request handling.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age"`
}

// GeneratorConfig configures the rule-generation model adapter.
type GeneratorConfig struct {
	// BaseURL is the generator API endpoint.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates against the generator API. Usually supplied
	// via ANTHROPIC_API_KEY rather than the config file.
	APIKey string `yaml:"api_key"`

	// Model is the model identifier to use for rule synthesis.
	Model string `yaml:"model"`

	// MaxTokens bounds a single generation response.
	MaxTokens int `yaml:"max_tokens"`

	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// SandboxConfig configures the isolated execution substrate used during
// rule validation.
type SandboxConfig struct {
	// BaseURL is the sandbox vendor API endpoint.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates against the sandbox API. Usually supplied via
	// DAYTONA_API_KEY.
	APIKey string `yaml:"api_key"`

	// Target selects the region sandboxes are provisioned in.
	Target string `yaml:"target"`

	// SyntaxTimeout bounds the parse-check phase of validation.
	SyntaxTimeout time.Duration `yaml:"syntax_timeout"`

	// FunctionalTimeout bounds the fixture run phase of validation.
	FunctionalTimeout time.Duration `yaml:"functional_timeout"`

	// PreserveSandboxes skips teardown, leaving sandboxes alive for
	// debugging. Never enable in production.
	PreserveSandboxes bool `yaml:"preserve_sandboxes"`

	MaxRetries int `yaml:"max_retries"`
}

// RunnerConfig configures the local (non-sandboxed) runtime used to execute
// already-validated rules at evaluation time.
type RunnerConfig struct {
	// PythonBin is the interpreter to try first.
	PythonBin string `yaml:"python_bin"`

	// FallbackBin is tried when PythonBin is not installed.
	FallbackBin string `yaml:"fallback_bin"`

	Timeout time.Duration `yaml:"timeout"`
}

// SynthesisConfig tunes the generate-validate-refine loop.
type SynthesisConfig struct {
	// MaxAttempts bounds validator calls per draft rule.
	MaxAttempts int `yaml:"max_attempts"`
}

// StoreConfig configures rule bundle persistence.
type StoreConfig struct {
	// RulesDir is the directory holding one JSON document per firm.
	RulesDir string `yaml:"rules_dir"`

	// Watch invalidates cached bundles when their files change on disk.
	Watch bool `yaml:"watch"`
}

// DirectoryConfig configures the employee/firm directory.
type DirectoryConfig struct {
	// Path points at a JSON directory document. Empty uses the built-in
	// demo directory.
	Path string `yaml:"path"`
}

// AuditConfig configures the compliance-check audit trail.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend: "sqlite" or "memory".
	Backend string `yaml:"backend"`

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path"`

	// AsyncBuffer is the size of the async write channel.
	AsyncBuffer int `yaml:"async_buffer"`

	Retention RetentionConfig `yaml:"retention"`
}

// RetentionConfig controls pruning of old audit records.
type RetentionConfig struct {
	// Days is the maximum record age; 0 disables age-based pruning.
	Days int `yaml:"days"`

	// Schedule is a cron expression for automatic pruning; empty
	// disables the scheduler.
	Schedule string `yaml:"schedule"`
}

// QuotaConfig caps generation spend during ingestion.
type QuotaConfig struct {
	Enabled bool `yaml:"enabled"`

	// DBPath is the sqlite file tracking per-firm usage counters.
	DBPath string `yaml:"db_path"`

	// DailyGenerations caps LLM generation calls per firm per UTC day.
	DailyGenerations int64 `yaml:"daily_generations"`
}

// TelemetryConfig groups logging and metrics settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}
