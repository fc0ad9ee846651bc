package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aatumaykin/hostkeeper/internal/agent"
	"github.com/aatumaykin/hostkeeper/internal/config"
	"github.com/aatumaykin/hostkeeper/internal/constants"
	"github.com/aatumaykin/hostkeeper/internal/lock"
	"github.com/aatumaykin/hostkeeper/internal/logger"
	"github.com/aatumaykin/hostkeeper/internal/reclaim"
	"github.com/aatumaykin/hostkeeper/internal/sysmon"
	"github.com/aatumaykin/hostkeeper/internal/telemetry"
	"github.com/aatumaykin/hostkeeper/internal/trim"
	"github.com/aatumaykin/hostkeeper/internal/update"
	"github.com/aatumaykin/hostkeeper/internal/version"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var (
	runConfigPath string
	runLogLevel   string
	runOnce       bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start Hostkeeper agent (main command)",
	Long: `Start Hostkeeper with the specified configuration.

By default Hostkeeper runs as a daemon, executing one maintenance pass per
scheduled tick. With --once it executes a single pass and exits, which is
the mode to use under an external scheduler such as cron or Task Scheduler.`,
	Run: runHandler,
}

func runHandler(cmd *cobra.Command, args []string) {
	// Load .env file if exists, so ${VAR} references in the config resolve
	if err := config.LoadEnvOptional("./.env"); err != nil {
		fmt.Printf("❌ Failed to load .env file: %v\n", err)
		os.Exit(1)
	}

	// Determine config path
	configPath := runConfigPath
	if configPath == "" {
		configPath = constants.DefaultConfigPath
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Override log level if flag is set
	if runLogLevel != "" {
		cfg.Logging.Level = runLogLevel
	}

	// Validate configuration
	if errors := cfg.Validate(); len(errors) > 0 {
		fmt.Printf("❌ Configuration validation failed:\n")
		for _, e := range errors {
			fmt.Printf("  - %v\n", e)
		}
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Printf("❌ Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	// Only one instance may maintain a host at a time.
	lockFile, err := cfg.ResolveLockFile()
	if err != nil {
		log.Error("Failed to resolve lock file path", err)
		os.Exit(1)
	}
	guard, err := lock.Acquire(lockFile)
	if err != nil {
		log.Error("Failed to acquire instance lock", err,
			logger.Field{Key: "lock_file", Value: lockFile})
		os.Exit(1)
	}
	defer guard.Release()

	stateDir, err := cfg.ResolveStateDir()
	if err != nil {
		log.Error("Failed to resolve state directory", err)
		os.Exit(1)
	}

	// Log startup information
	log.Info("🚀 Starting Hostkeeper",
		logger.Field{Key: "version", Value: Version},
		logger.Field{Key: "git_commit", Value: GitCommit},
		logger.Field{Key: "config", Value: configPath},
		logger.Field{Key: "state_dir", Value: stateDir},
		logger.Field{Key: "once", Value: runOnce},
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Initialize telemetry if enabled
	var metrics *telemetry.Metrics
	var metricsServer *telemetry.Server
	if cfg.Telemetry.Enabled {
		log.Info("📊 Initializing telemetry endpoint",
			logger.Field{Key: "listen", Value: cfg.Telemetry.Listen})
		metrics = telemetry.InitMetrics(constants.MetricsNamespace, nil)
		metricsServer = telemetry.NewServer(cfg.Telemetry.Listen, log)
		metricsServer.Start()
	}

	// Initialize per-run report log if configured
	var report *agent.Report
	if cfg.Logging.ReportFile != "" {
		report = agent.NewReport(cfg.Logging.ReportFile, cfg.Logging.ReportMaxSizeMB)
	}

	// Assemble the agent
	store := update.NewStateStore(stateDir, log)
	updater := update.New(update.Config{
		Enabled:         cfg.SelfUpdate.Enabled,
		CheckEvery:      cfg.SelfUpdate.CheckEveryDuration(),
		ManifestURL:     cfg.SelfUpdate.ManifestURL,
		BaselineVersion: version.Baseline(),
	}, store, log)

	ag := agent.New(cfg, agent.Deps{
		Sampler: sysmon.NewGopsutilSampler(),
		Engine:  reclaim.NewEngine(reclaim.Config{Exclude: cfg.Actions.ExcludePatterns}, log),
		Trim:    trim.NewRunner(trim.GopsutilLister{}, trim.NewPlatformTrimmer(), log),
		Updater: updater,
		Metrics: metrics,
		Report:  report,
		Logger:  log,
	})

	if runOnce {
		ag.Run(ctx)
		shutdownTelemetry(metricsServer, log)
		log.Info("👋 Hostkeeper finished single pass")
		return
	}

	// Daemon mode: one pass now, then one per scheduled tick. Passes never
	// overlap; a tick that fires mid-pass is skipped.
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	spec := cfg.Schedule.Cron
	if spec == "" {
		spec = fmt.Sprintf("@every %dm", cfg.Schedule.IntervalMinutes)
	}
	if _, err := scheduler.AddFunc(spec, func() { ag.Run(ctx) }); err != nil {
		log.Error("Failed to schedule maintenance passes", err,
			logger.Field{Key: "spec", Value: spec})
		os.Exit(1)
	}

	ag.Run(ctx)
	scheduler.Start()

	log.Info("✅ Hostkeeper is running",
		logger.Field{Key: "schedule", Value: spec})

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info("⏳ Received shutdown signal",
		logger.Field{Key: "signal", Value: sig.String()})

	// Graceful shutdown
	log.Info("🛑 Shutting down Hostkeeper...")
	cancel()

	// Let an in-flight pass finish before releasing the lock.
	<-scheduler.Stop().Done()
	shutdownTelemetry(metricsServer, log)

	log.Info("👋 Hostkeeper stopped gracefully")
}

func shutdownTelemetry(server *telemetry.Server, log *logger.Logger) {
	if server == nil {
		return
	}
	if err := server.Stop(context.Background()); err != nil {
		log.Error("Failed to stop telemetry endpoint", err)
	}
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
	runCmd.Flags().StringVarP(&runLogLevel, "log-level", "l", "", "Override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runOnce, "once", false, "Run a single maintenance pass and exit")
}
