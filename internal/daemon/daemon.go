// Package daemon provides long-running background folder processing.
package daemon

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/platinummonkey/scrutable/internal/logger"
	"github.com/platinummonkey/scrutable/internal/pipeline"
)

// Daemon periodically processes a watched input folder
type Daemon struct {
	orchestrator  *pipeline.Orchestrator
	logger        *logger.Logger
	inputPath     string
	interval      time.Duration
	healthAddr    string
	pidFile       string
	httpServer    *http.Server
	statusTracker *StatusTracker
}

// Config holds configuration for the daemon
type Config struct {
	Orchestrator    *pipeline.Orchestrator
	Logger          *logger.Logger
	InputPath       string        // Folder (or single PDF) to process each tick
	WatchInterval   time.Duration // How often to scan (default: 5 minutes)
	HealthCheckAddr string        // Optional health check address (e.g. ":8080")
	PIDFile         string        // Optional PID file path
}

// New creates a new daemon instance
func New(cfg *Config) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if cfg.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if cfg.InputPath == "" {
		return nil, fmt.Errorf("input path is required")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	interval := cfg.WatchInterval
	if interval == 0 {
		interval = 5 * time.Minute
	}

	return &Daemon{
		orchestrator:  cfg.Orchestrator,
		logger:        log,
		inputPath:     cfg.InputPath,
		interval:      interval,
		healthAddr:    cfg.HealthCheckAddr,
		pidFile:       cfg.PIDFile,
		statusTracker: NewStatusTracker(),
	}, nil
}

// Run starts the daemon and blocks until a shutdown signal is received
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.WithFields("interval", d.interval, "input", d.inputPath).Info("Starting watch mode")

	if d.pidFile != "" {
		if err := d.writePIDFile(); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer d.removePIDFile()
	}

	if d.healthAddr != "" {
		if err := d.startHealthCheck(); err != nil {
			return fmt.Errorf("failed to start health check: %w", err)
		}
		defer d.stopHealthCheck()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	// Process the folder immediately on startup.
	d.logger.Info("Running initial scan")
	d.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Context canceled, shutting down")
			return ctx.Err()

		case sig := <-sigChan:
			d.logger.WithFields("signal", sig.String()).Info("Received shutdown signal")
			// Allow the current run to complete by returning gracefully.
			return nil

		case <-ticker.C:
			d.logger.Info("Watch interval elapsed, scanning input folder")
			d.runOnce(ctx)
		}
	}
}

// runOnce executes a single pipeline run with error recovery
func (d *Daemon) runOnce(ctx context.Context) {
	startTime := time.Now()
	d.statusTracker.RunStarted()

	runCtx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	result, err := d.orchestrator.Run(runCtx, d.inputPath)
	duration := time.Since(startTime)

	if err != nil {
		d.statusTracker.RunFailed(err, duration)
		d.logger.WithFields("error", err, "duration", duration).
			Error("Pipeline run failed")
		return
	}

	d.statusTracker.RunCompleted(RunSummary{
		RunID:              result.RunID,
		StartTime:          startTime,
		Duration:           duration,
		TotalDocuments:     result.TotalDocuments,
		ProcessedDocuments: result.ProcessedDocuments,
		SuccessCount:       result.SuccessCount,
		FailureCount:       result.FailureCount,
		SkippedCount:       result.SkippedDocuments,
	})

	d.logger.WithFields(
		"run_id", result.RunID,
		"total", result.TotalDocuments,
		"processed", result.ProcessedDocuments,
		"skipped", result.SkippedDocuments,
		"successful", result.SuccessCount,
		"failed", result.FailureCount,
		"duration", duration,
	).Info("Pipeline run completed")

	if result.HasFailures() {
		d.logger.WithFields("count", result.FailureCount).
			Warn("Run completed with failures")
		for _, failure := range result.Failures {
			d.logger.WithFields(
				"document", failure.Path,
				"error", failure.Error,
			).Warn("Document processing failed")
		}
	}
}

// writePIDFile writes the current process ID to the configured PID file
func (d *Daemon) writePIDFile() error {
	pid := os.Getpid()
	content := fmt.Sprintf("%d\n", pid)

	if err := os.WriteFile(d.pidFile, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	d.logger.WithFields("pid", pid, "file", d.pidFile).Info("Wrote PID file")
	return nil
}

// removePIDFile removes the PID file
func (d *Daemon) removePIDFile() {
	if d.pidFile == "" {
		return
	}

	if err := os.Remove(d.pidFile); err != nil {
		d.logger.WithFields("file", d.pidFile, "error", err).
			Warn("Failed to remove PID file")
	} else {
		d.logger.WithFields("file", d.pidFile).Info("Removed PID file")
	}
}

// startHealthCheck starts the health check HTTP server
func (d *Daemon) startHealthCheck() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK\n"))
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK\n"))
	})

	mux.HandleFunc("/api/status", d.handleStatus)

	d.httpServer = &http.Server{
		Addr:    d.healthAddr,
		Handler: mux,
	}

	go func() {
		d.logger.WithFields("addr", d.healthAddr).Info("Starting health check server")
		if err := d.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			d.logger.WithFields("error", err).Error("Health check server failed")
		}
	}()

	return nil
}

// stopHealthCheck stops the health check HTTP server
func (d *Daemon) stopHealthCheck() {
	if d.httpServer == nil {
		return
	}

	d.logger.Info("Stopping health check server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.httpServer.Shutdown(ctx); err != nil {
		d.logger.WithFields("error", err).Warn("Failed to shutdown health check server gracefully")
	} else {
		d.logger.Info("Health check server stopped")
	}
}
