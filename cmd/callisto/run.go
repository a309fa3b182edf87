package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/callisto/pkg/audit"
	"mercator-hq/callisto/pkg/cleanup"
	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/quota"
	"mercator-hq/callisto/pkg/retention"
	"mercator-hq/callisto/pkg/server"
	"mercator-hq/callisto/pkg/session"
	"mercator-hq/callisto/pkg/storage"
	"mercator-hq/callisto/pkg/telemetry/logging"
	"mercator-hq/callisto/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Callisto API server",
	Long: `Start the Callisto API server with the specified configuration.

The server exposes the session lifecycle, quota, and cleanup APIs and runs
the scheduled cleanup passes in the background.

Examples:
  # Start with default config
  callisto run

  # Start with custom config
  callisto run --config /etc/callisto/config.yaml

  # Override listen address
  callisto run --listen 0.0.0.0:8090

  # Validate config without starting server
  callisto run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

// engine holds the wired components shared by the run and cleanup commands.
type engine struct {
	backend  storage.Backend
	trail    *audit.Trail
	metrics  *metrics.Metrics
	sessions *session.Manager
	arbiter  *quota.Arbiter
	catalog  *retention.Catalog
	runner   *cleanup.Runner
}

func buildEngine(ctx context.Context, cfg *config.Config) (*engine, error) {
	var backend storage.Backend
	switch cfg.Storage.Backend {
	case "sqlite":
		b, err := storage.NewSQLiteBackendWithConfig(storage.SQLiteBackendConfig{
			Path:               cfg.Storage.SQLite.Path,
			BusyTimeout:        cfg.Storage.SQLite.BusyTimeout,
			CheckpointInterval: cfg.Storage.SQLite.CheckpointInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("opening sqlite backend: %w", err)
		}
		backend = b
	default:
		backend = storage.NewMemoryBackend()
	}

	var m *metrics.Metrics
	if cfg.Telemetry.Metrics.Enabled {
		m = metrics.New()
	}

	trail := audit.NewTrail(backend)
	sessions := session.NewManager(backend, trail, m)
	arbiter := quota.NewArbiter(backend, trail, m, quota.Config{
		DailyLimit:            cfg.Quota.DailyLimit,
		MaxReserveAmount:      cfg.Quota.MaxReserveAmount,
		TimezoneOffsetMinutes: cfg.Quota.TimezoneOffsetMinutes,
	})

	catalog := retention.NewCatalog(backend, trail)
	policies := retention.DefaultPolicies()
	if cfg.Retention.PolicyFile != "" {
		loaded, err := retention.LoadPolicyFile(cfg.Retention.PolicyFile)
		if err != nil {
			backend.Close()
			return nil, fmt.Errorf("loading retention policies: %w", err)
		}
		policies = loaded
	}
	if err := catalog.InstallPolicies(ctx, policies); err != nil {
		backend.Close()
		return nil, fmt.Errorf("installing retention policies: %w", err)
	}

	runner := cleanup.NewRunner(catalog, backend, backend, trail, m, cleanup.RunnerConfig{
		BatchSize:            cfg.Cleanup.BatchSize,
		Parallel:             cfg.Cleanup.Parallel,
		MaxConcurrentBatches: cfg.Cleanup.MaxConcurrentBatches,
		Timeout:              cfg.Cleanup.Timeout,
		ArchivePath:          cfg.Retention.ArchivePath,
	})

	return &engine{
		backend:  backend,
		trail:    trail,
		metrics:  m,
		sessions: sessions,
		arbiter:  arbiter,
		catalog:  catalog,
		runner:   runner,
	}, nil
}

func loadRuntimeConfig() (*config.Config, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg := config.GetConfig()

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := logging.Install(cfg.Telemetry.Logging); err != nil {
		return nil, fmt.Errorf("configuring logging: %w", err)
	}
	return cfg, nil
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadRuntimeConfig()
	if err != nil {
		return err
	}

	if runFlags.dryRun {
		fmt.Println("configuration valid")
		return nil
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	eng, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.backend.Close()

	if cfg.Retention.Watch && cfg.Retention.PolicyFile != "" {
		watcher, err := retention.NewWatcher(cfg.Retention.PolicyFile, eng.catalog)
		if err != nil {
			return fmt.Errorf("starting policy watcher: %w", err)
		}
		defer watcher.Close()
		go watcher.Run(ctx)
	}

	scheduler := cleanup.NewScheduler(eng.runner, eng.sessions, cfg.Cleanup.Schedule)
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("starting cleanup scheduler: %w", err)
	}
	defer scheduler.Stop()

	srv := server.NewServer(&cfg.Server, eng.sessions, eng.arbiter, eng.runner)
	return srv.Start(ctx)
}
