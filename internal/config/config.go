// Package config provides configuration management for the scrutable application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the scrutable application.
// Configuration precedence: CLI flags > Environment variables > Config file > Defaults
type Config struct {
	// OutputDir is the directory where extraction artifacts will be saved
	OutputDir string

	// DPI is the rasterization resolution for PDF pages
	DPI int

	// Engines is the number of OCR engine slots in the pool
	Engines int

	// Languages specifies the OCR languages (e.g., "eng", "eng+fra")
	Languages string

	// MinConfidence drops words scoring below it; negative disables the filter
	MinConfidence float64

	// PageTimeout bounds OCR time per page; 0 disables the limit. A page
	// that exceeds it is recorded as failed, not retried.
	PageTimeout time.Duration

	// Layout holds the geometric merge thresholds, in pixels at DPI
	Layout LayoutConfig

	// Annotate enables the annotated PDF artifact
	Annotate bool

	// DrawWords draws per-word boxes on the annotated PDF (debug)
	DrawWords bool

	// WatchInterval is the duration between folder scans in watch mode (0 = run once)
	WatchInterval time.Duration

	// StateFile is the path to the processing state persistence file
	StateFile string

	// LogLevel controls logging verbosity (debug, info, warn, error)
	LogLevel string

	// WatchMode enables continuous folder processing
	WatchMode bool
}

// LayoutConfig holds the block and key-value merge thresholds
type LayoutConfig struct {
	// GapX is the maximum horizontal gap between words on one line
	GapX float64

	// GapY is the maximum vertical gap between line segments of one block
	GapY float64

	// KVGapX is the horizontal label-value pairing budget
	KVGapX float64

	// KVGapY is the vertical label-value pairing budget
	KVGapY float64
}

// Load reads configuration from multiple sources and returns a Config instance.
// Sources are checked in this order: CLI flags > env vars > config file > defaults
func Load(configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		// Look for config in home directory
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
			v.SetConfigName(".scrutable")
			v.SetConfigType("yaml")
		}
	}

	// Read config file if it exists (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, env vars and defaults still apply
	}

	v.SetEnvPrefix("SCRUTABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	config := &Config{
		OutputDir:     v.GetString("output-dir"),
		DPI:           v.GetInt("dpi"),
		Engines:       v.GetInt("engines"),
		Languages:     v.GetString("languages"),
		MinConfidence: v.GetFloat64("min-confidence"),
		PageTimeout:   v.GetDuration("page-timeout"),
		Layout: LayoutConfig{
			GapX:   v.GetFloat64("gap-x"),
			GapY:   v.GetFloat64("gap-y"),
			KVGapX: v.GetFloat64("kv-gap-x"),
			KVGapY: v.GetFloat64("kv-gap-y"),
		},
		Annotate:      v.GetBool("annotate"),
		DrawWords:     v.GetBool("draw-words"),
		WatchInterval: v.GetDuration("watch-interval"),
		StateFile:     v.GetString("state-file"),
		LogLevel:      v.GetString("log-level"),
		WatchMode:     v.GetBool("watch-mode"),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	defaultOutputDir := filepath.Join(home, "scrutable")
	defaultStateFile := filepath.Join(home, ".scrutable-state.json")

	v.SetDefault("output-dir", defaultOutputDir)
	v.SetDefault("dpi", 200)
	v.SetDefault("engines", 4)
	v.SetDefault("languages", "eng")
	v.SetDefault("min-confidence", -1.0)        // negative = keep everything
	v.SetDefault("page-timeout", 0*time.Second) // 0 = no per-page limit
	v.SetDefault("gap-x", 30.0)
	v.SetDefault("gap-y", 20.0)
	v.SetDefault("kv-gap-x", 150.0)
	v.SetDefault("kv-gap-y", 40.0)
	v.SetDefault("annotate", true)
	v.SetDefault("draw-words", false)
	v.SetDefault("watch-interval", 0*time.Second) // 0 = run once
	v.SetDefault("state-file", defaultStateFile)
	v.SetDefault("log-level", "info")
	v.SetDefault("watch-mode", false)
}

// Validate checks that the configuration is valid and internally consistent
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output-dir cannot be empty")
	}

	// Expand home directory if present
	if strings.HasPrefix(c.OutputDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to expand home directory in output-dir: %w", err)
		}
		c.OutputDir = filepath.Join(home, c.OutputDir[2:])
	}

	if err := os.MkdirAll(c.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", c.OutputDir, err)
	}

	if c.StateFile == "" {
		return fmt.Errorf("state-file cannot be empty")
	}

	if strings.HasPrefix(c.StateFile, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to expand home directory in state-file: %w", err)
		}
		c.StateFile = filepath.Join(home, c.StateFile[2:])
	}

	stateDir := filepath.Dir(c.StateFile)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state file directory %s: %w", stateDir, err)
	}

	if c.DPI < 36 || c.DPI > 1200 {
		return fmt.Errorf("dpi must be between 36 and 1200, got %d", c.DPI)
	}

	if c.Engines < 1 || c.Engines > 64 {
		return fmt.Errorf("engines must be between 1 and 64, got %d", c.Engines)
	}

	if c.Languages == "" {
		return fmt.Errorf("languages cannot be empty")
	}

	if c.MinConfidence > 1.0 {
		return fmt.Errorf("min-confidence must be at most 1.0, got %f", c.MinConfidence)
	}

	if c.PageTimeout < 0 {
		return fmt.Errorf("page-timeout must be non-negative, got %s", c.PageTimeout)
	}

	if c.Layout.GapX < 0 || c.Layout.GapY < 0 || c.Layout.KVGapX < 0 || c.Layout.KVGapY < 0 {
		return fmt.Errorf("layout gap thresholds must be non-negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log-level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	if c.WatchMode && c.WatchInterval <= 0 {
		return fmt.Errorf("watch-interval must be positive when watch-mode is enabled")
	}

	return nil
}

// MinConfidencePtr returns the confidence filter as an optional value: nil
// when the filter is disabled
func (c *Config) MinConfidencePtr() *float64 {
	if c.MinConfidence < 0 {
		return nil
	}
	mc := c.MinConfidence
	return &mc
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  OutputDir: %s
  DPI: %d
  Engines: %d
  Languages: %s
  MinConfidence: %.2f
  PageTimeout: %s
  Layout:
    GapX: %.1f
    GapY: %.1f
    KVGapX: %.1f
    KVGapY: %.1f
  Annotate: %t
  DrawWords: %t
  WatchInterval: %s
  StateFile: %s
  LogLevel: %s
  WatchMode: %t`,
		c.OutputDir,
		c.DPI,
		c.Engines,
		c.Languages,
		c.MinConfidence,
		c.PageTimeout,
		c.Layout.GapX,
		c.Layout.GapY,
		c.Layout.KVGapX,
		c.Layout.KVGapY,
		c.Annotate,
		c.DrawWords,
		c.WatchInterval,
		c.StateFile,
		c.LogLevel,
		c.WatchMode,
	)
}
