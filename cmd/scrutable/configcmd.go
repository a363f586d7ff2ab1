package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/scrutable/internal/config"
)

// fileConfig mirrors the config file layout for `config init`
type fileConfig struct {
	OutputDir     string        `yaml:"output-dir"`
	DPI           int           `yaml:"dpi"`
	Engines       int           `yaml:"engines"`
	Languages     string        `yaml:"languages"`
	MinConfidence float64       `yaml:"min-confidence"`
	PageTimeout   time.Duration `yaml:"page-timeout"`
	GapX          float64       `yaml:"gap-x"`
	GapY          float64       `yaml:"gap-y"`
	KVGapX        float64       `yaml:"kv-gap-x"`
	KVGapY        float64       `yaml:"kv-gap-y"`
	Annotate      bool          `yaml:"annotate"`
	DrawWords     bool          `yaml:"draw-words"`
	WatchInterval time.Duration `yaml:"watch-interval"`
	StateFile     string        `yaml:"state-file"`
	LogLevel      string        `yaml:"log-level"`
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Inspect the effective configuration or write a starter config file.`,
}

// configShowCmd prints the effective configuration after all sources are merged
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		fmt.Println(cfg.String())
		return nil
	},
}

// configInitCmd writes a starter config file with the default values
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Write a starter config file populated with the default values.

The file is written to ~/.scrutable.yaml unless --config points elsewhere.
Existing files are not overwritten unless --overwrite is set.`,
	RunE: runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().Bool("overwrite", false, "replace an existing config file")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := cfgFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, ".scrutable.yaml")
	}

	overwrite, _ := cmd.Flags().GetBool("overwrite")
	if _, err := os.Stat(path); err == nil && !overwrite {
		return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", path)
	}

	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("failed to build default configuration: %w", err)
	}

	data, err := yaml.Marshal(&fileConfig{
		OutputDir:     cfg.OutputDir,
		DPI:           cfg.DPI,
		Engines:       cfg.Engines,
		Languages:     cfg.Languages,
		MinConfidence: cfg.MinConfidence,
		PageTimeout:   cfg.PageTimeout,
		GapX:          cfg.Layout.GapX,
		GapY:          cfg.Layout.GapY,
		KVGapX:        cfg.Layout.KVGapX,
		KVGapY:        cfg.Layout.KVGapY,
		Annotate:      cfg.Annotate,
		DrawWords:     cfg.DrawWords,
		WatchInterval: cfg.WatchInterval,
		StateFile:     cfg.StateFile,
		LogLevel:      cfg.LogLevel,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Wrote starter config to %s\n", path)
	return nil
}
