package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/scrutable/internal/config"
	"github.com/platinummonkey/scrutable/internal/daemon"
	"github.com/platinummonkey/scrutable/internal/logger"
	"github.com/platinummonkey/scrutable/internal/pipeline"
	"github.com/platinummonkey/scrutable/internal/state"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [folder]",
	Short: "Continuously process a folder of PDFs",
	Long: `Run scrutable as a long-running watcher over a folder.

The watcher re-scans the folder at the configured interval and processes
any PDF that is new or has changed since its last successful run. It
handles signals gracefully and can be monitored via health check endpoints.

Features:
- Periodic folder scans at a configurable interval
- Graceful shutdown on SIGTERM/SIGINT
- Optional health check HTTP endpoints
- Optional PID file for process management
- Continues running even if individual runs fail

Examples:
  # Watch a folder with the default 5 minute interval
  scrutable watch ~/scans

  # Custom interval with a health check endpoint
  scrutable watch ~/scans --interval 10m --health-addr :8080

  # Full example with all options
  scrutable watch ~/scans \
    --interval 10m \
    --health-addr :8080 \
    --pid-file /var/run/scrutable.pid`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	// Watch-specific flags
	watchCmd.Flags().Duration("interval", 5*time.Minute, "scan interval (e.g., 5m, 1h)")
	watchCmd.Flags().String("health-addr", "", "health check HTTP address (e.g., :8080)")
	watchCmd.Flags().String("pid-file", "", "PID file path")
}

func runWatch(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	// Load configuration first
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg.WatchMode = true
	if cmd.Flags().Changed("interval") || cfg.WatchInterval <= 0 {
		cfg.WatchInterval, _ = cmd.Flags().GetDuration("interval")
	}
	applyProcessFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize logger (JSON format for watch mode)
	log, err := logger.New(&logger.Config{
		Level:  cfg.LogLevel,
		Format: "json",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.WithFields(
		"input", inputPath,
		"output_dir", cfg.OutputDir,
		"interval", cfg.WatchInterval,
	).Info("Starting watcher")

	stateManager, err := state.LoadOrCreate(cfg.StateFile)
	if err != nil {
		return fmt.Errorf("failed to initialize state: %w", err)
	}

	// Create the pipeline orchestrator
	orch, err := pipeline.New(&pipeline.Config{
		AppConfig:    cfg,
		StateManager: stateManager,
		Logger:       log,
	})
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	healthAddr, _ := cmd.Flags().GetString("health-addr")
	pidFile, _ := cmd.Flags().GetString("pid-file")

	d, err := daemon.New(&daemon.Config{
		Orchestrator:    orch,
		Logger:          log,
		InputPath:       inputPath,
		WatchInterval:   cfg.WatchInterval,
		HealthCheckAddr: healthAddr,
		PIDFile:         pidFile,
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// Run the watcher (blocks until shutdown signal)
	ctx := context.Background()
	if err := d.Run(ctx); err != nil && err != context.Canceled {
		return fmt.Errorf("watcher error: %w", err)
	}

	log.Info("Watcher shutdown complete")
	return nil
}
