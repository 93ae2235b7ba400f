package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"clearpath-hq/sentinel/pkg/audit"
	"clearpath-hq/sentinel/pkg/audit/recorder"
	"clearpath-hq/sentinel/pkg/audit/retention"
	"clearpath-hq/sentinel/pkg/audit/storage"
	"clearpath-hq/sentinel/pkg/cli"
	"clearpath-hq/sentinel/pkg/config"
	"clearpath-hq/sentinel/pkg/evaluate"
	"clearpath-hq/sentinel/pkg/nlquery"
	"clearpath-hq/sentinel/pkg/server"
	"clearpath-hq/sentinel/pkg/store"
	"clearpath-hq/sentinel/pkg/synth"
	"clearpath-hq/sentinel/pkg/telemetry/health"
	"clearpath-hq/sentinel/pkg/telemetry/logging"
	"clearpath-hq/sentinel/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Sentinel service",
	Long: `Start the Sentinel HTTP service with the specified configuration.

The service exposes policy ingestion, compliance checks, rule inspection,
and the operational endpoints (health, readiness, metrics).

Examples:
  # Start with default config
  sentinel run

  # Start with custom config
  sentinel run --config /etc/sentinel/config.yaml

  # Override listen address
  sentinel run --listen 0.0.0.0:8080

  # Validate config without starting the service
  sentinel run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the service")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnv(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger, err := logging.Setup(logging.Config{
		Level:  cfg.Telemetry.Logging.Level,
		Format: cfg.Telemetry.Logging.Format,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Sentinel v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	// Metrics
	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&metrics.Config{
			Enabled:   true,
			Namespace: cfg.Telemetry.Metrics.Namespace,
		})
	}

	// Rule bundle store
	st, err := store.New(cfg.Store.RulesDir, logger)
	if err != nil {
		return cli.NewConfigError("store.rules_dir", err.Error())
	}
	if cfg.Store.Watch {
		watcher, err := store.NewWatcher(st, logger)
		if err != nil {
			logger.Warn("bundle watcher unavailable", "error", err)
		} else {
			go watcher.Run(ctx)
		}
	}
	fmt.Printf("✓ Rule store ready (%s)\n", st.Dir())

	// Generation quota
	quotaMeter, err := buildMeter(cfg)
	if err != nil {
		return cli.NewConfigError("quota.db_path", err.Error())
	}
	var meter synth.Meter
	if quotaMeter != nil {
		defer quotaMeter.Close()
		meter = quotaMeter
		fmt.Printf("✓ Generation quota enabled (%d/day per firm)\n", cfg.Quota.DailyGenerations)
	}

	// Audit trail
	var auditRecorder *recorder.Recorder
	if cfg.Audit.Enabled {
		auditStorage, err := buildAuditStorage(cfg)
		if err != nil {
			return cli.NewConfigError("audit", err.Error())
		}
		defer auditStorage.Close()

		recorderConfig := recorder.DefaultConfig()
		recorderConfig.Buffer = cfg.Audit.AsyncBuffer
		auditRecorder = recorder.NewRecorder(auditStorage, recorderConfig)
		defer auditRecorder.Close()

		if cfg.Audit.Retention.Schedule != "" {
			pruner := retention.NewPruner(auditStorage, &retention.Config{
				RetentionDays: cfg.Audit.Retention.Days,
				PruneSchedule: cfg.Audit.Retention.Schedule,
			})
			scheduler := retention.NewScheduler(pruner)
			if err := scheduler.Start(ctx); err != nil {
				logger.Warn("failed to start retention scheduler", "error", err)
			} else {
				defer scheduler.Stop()
			}
		}
		fmt.Printf("✓ Audit trail enabled (%s)\n", cfg.Audit.Backend)
	}

	// Synthesis and evaluation
	var synthObserver synth.Observer
	var evalObserver evaluate.Observer
	if collector != nil {
		synthObserver = collector
		evalObserver = collector
	}
	pipeline, err := buildPipeline(cfg, st, meter, synthObserver, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	evaluator := buildEvaluator(cfg, st, evalObserver, logger)

	dir, err := buildDirectory(cfg)
	if err != nil {
		return cli.NewConfigError("directory.path", err.Error())
	}

	// Health checks
	checker := health.NewChecker(Version)
	checker.Register("rule_store", func(ctx context.Context) error {
		_, err := os.Stat(st.Dir())
		return err
	})
	if quotaMeter != nil {
		checker.Register("quota", func(ctx context.Context) error {
			_, err := quotaMeter.Used(ctx, "healthcheck")
			return err
		})
	}

	srv := server.New(cfg.Server, server.Deps{
		Pipeline:  pipeline,
		Evaluator: evaluator,
		Store:     st,
		Directory: dir,
		Parser:    nlquery.NewParser(),
		Recorder:  auditRecorder,
		Checker:   checker,
		Metrics:   serverMetrics(collector),
		Logger:    logger,
	})

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/health\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Server.ListenAddress)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Println("✓ Server stopped")
	return nil
}

// buildAuditStorage selects the audit backend from config.
func buildAuditStorage(cfg *config.Config) (audit.Storage, error) {
	switch cfg.Audit.Backend {
	case "sqlite":
		sqliteConfig := storage.DefaultSQLiteConfig()
		sqliteConfig.Path = cfg.Audit.SQLitePath
		return storage.NewSQLiteStorage(sqliteConfig)
	case "memory":
		return storage.NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unsupported audit backend: %s", cfg.Audit.Backend)
	}
}

// serverMetrics keeps the server's Metrics dependency nil when metrics are
// disabled, so a typed nil pointer never reaches the interface.
func serverMetrics(collector *metrics.Collector) server.Metrics {
	if collector == nil {
		return nil
	}
	return collector
}
