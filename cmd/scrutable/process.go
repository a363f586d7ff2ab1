package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/scrutable/internal/config"
	"github.com/platinummonkey/scrutable/internal/logger"
	"github.com/platinummonkey/scrutable/internal/pipeline"
	"github.com/platinummonkey/scrutable/internal/state"
)

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process [input]",
	Short: "Extract text and layout from a PDF or a folder of PDFs",
	Long: `Process a scanned PDF (or every PDF in a folder) and write the
extraction artifacts next to each other under the output directory.

For each document <stem>.pdf this produces:
  <stem>/<stem>_words.json       per-page OCR words with pixel boxes
  <stem>/<stem>_blocks.json      merged layout blocks with label/value pairing
  <stem>/<stem>_paragraphs.txt   plain-text paragraphs in reading order
  <stem>/<stem>_annotated.pdf    page images with detected boxes drawn in
  times.txt                      one timing line per processed document

Folder runs record per-document state and skip files whose size and
modification time are unchanged since the last successful run.

Examples:
  # Process a single document
  scrutable process invoice.pdf

  # Process a folder at higher resolution with 8 engines
  scrutable process ~/scans --dpi 300 --engines 8

  # Re-process everything, ignoring recorded state
  scrutable process ~/scans --force

  # Skip the annotated PDF and drop low-confidence words
  scrutable process invoice.pdf --no-annotate --min-conf 0.5`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	// Process-specific flags
	processCmd.Flags().Int("dpi", 0, "rasterization resolution (default 200)")
	processCmd.Flags().Int("engines", 0, "OCR engine pool size (default 4)")
	processCmd.Flags().String("languages", "", "OCR languages, e.g. \"eng\" or \"eng+fra\"")
	processCmd.Flags().Float64("min-conf", -1.0, "drop words below this confidence (negative keeps all)")
	processCmd.Flags().Duration("page-timeout", 0, "per-page OCR time limit (0 = none)")
	processCmd.Flags().Float64("gap-x", 0, "max horizontal gap between words on a line, px")
	processCmd.Flags().Float64("gap-y", 0, "max vertical gap between block line segments, px")
	processCmd.Flags().Float64("kv-gap-x", 0, "horizontal label/value pairing budget, px")
	processCmd.Flags().Float64("kv-gap-y", 0, "vertical label/value pairing budget, px")
	processCmd.Flags().Bool("draw-words", false, "draw per-word boxes on the annotated PDF")
	processCmd.Flags().Bool("no-annotate", false, "skip the annotated PDF artifact")
	processCmd.Flags().Bool("force", false, "re-process all documents (ignore state)")
	processCmd.Flags().Bool("no-state", false, "disable processing state entirely")
}

func runProcess(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	// Load configuration
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyProcessFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize logger from the effective level
	log, err := logger.New(&logger.Config{
		Level:  cfg.LogLevel,
		Format: "console",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.WithFields(
		"input", inputPath,
		"output_dir", cfg.OutputDir,
		"dpi", cfg.DPI,
		"engines", cfg.Engines,
	).Info("Starting extraction")

	// Processing state (optional)
	var stateManager *state.Manager
	if noState, _ := cmd.Flags().GetBool("no-state"); !noState {
		if force, _ := cmd.Flags().GetBool("force"); force {
			log.Info("Force flag set, clearing processing state")
			if err := os.Remove(cfg.StateFile); err != nil && !os.IsNotExist(err) {
				log.WithFields("error", err).Warn("Failed to remove state file")
			}
		}

		stateManager, err = state.LoadOrCreate(cfg.StateFile)
		if err != nil {
			return fmt.Errorf("failed to initialize state: %w", err)
		}
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	result, err := orch.Run(ctx, inputPath)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	// Display results
	fmt.Println()
	fmt.Println("=== Extraction Complete ===")
	fmt.Printf("Total documents: %d\n", result.TotalDocuments)
	fmt.Printf("Processed: %d\n", result.ProcessedDocuments)
	fmt.Printf("Skipped (unchanged): %d\n", result.SkippedDocuments)
	fmt.Printf("Successful: %d\n", result.SuccessCount)
	fmt.Printf("Failed: %d\n", result.FailureCount)
	fmt.Printf("Duration: %v\n", result.Duration)

	if result.HasFailures() {
		fmt.Println("\nFailures:")
		for _, failure := range result.Failures {
			fmt.Printf("  - %s: %v\n", failure.Path, failure.Error)
		}
		return fmt.Errorf("extraction completed with %d failures", result.FailureCount)
	}

	return nil
}

// applyProcessFlags overrides loaded configuration with flags the user set
// explicitly. Flags beat env vars and the config file.
func applyProcessFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("dpi") {
		cfg.DPI, _ = flags.GetInt("dpi")
	}
	if flags.Changed("engines") {
		cfg.Engines, _ = flags.GetInt("engines")
	}
	if flags.Changed("languages") {
		cfg.Languages, _ = flags.GetString("languages")
	}
	if flags.Changed("min-conf") {
		cfg.MinConfidence, _ = flags.GetFloat64("min-conf")
	}
	if flags.Changed("page-timeout") {
		cfg.PageTimeout, _ = flags.GetDuration("page-timeout")
	}
	if flags.Changed("gap-x") {
		cfg.Layout.GapX, _ = flags.GetFloat64("gap-x")
	}
	if flags.Changed("gap-y") {
		cfg.Layout.GapY, _ = flags.GetFloat64("gap-y")
	}
	if flags.Changed("kv-gap-x") {
		cfg.Layout.KVGapX, _ = flags.GetFloat64("kv-gap-x")
	}
	if flags.Changed("kv-gap-y") {
		cfg.Layout.KVGapY, _ = flags.GetFloat64("kv-gap-y")
	}
	if flags.Changed("draw-words") {
		cfg.DrawWords, _ = flags.GetBool("draw-words")
	}
	if flags.Changed("no-annotate") {
		noAnnotate, _ := flags.GetBool("no-annotate")
		cfg.Annotate = !noAnnotate
	}

	if rootFlags := cmd.Root().PersistentFlags(); rootFlags.Changed("output") {
		cfg.OutputDir, _ = rootFlags.GetString("output")
	}
	if rootFlags := cmd.Root().PersistentFlags(); rootFlags.Changed("log-level") {
		cfg.LogLevel, _ = rootFlags.GetString("log-level")
	}
}
