package main

import (
	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "scrutable",
	Short: "Extract structured text and layout from scanned PDFs",
	Long: `scrutable runs OCR over scanned PDF documents and reconstructs their
layout: words, merged text blocks with label/value pairing, and plain-text
paragraphs.

Features:
  - Parallel per-page OCR across a fixed engine pool
  - Geometric block merging tuned for business documents
  - Key-value pairing for stacked and side-by-side form labels
  - Annotated PDF output with detected boxes drawn in
  - Watch mode for continuous folder processing
  - Processing state to skip unchanged documents

Configuration precedence: flags > SCRUTABLE_* env vars > config file
(~/.scrutable.yaml by default) > built-in defaults.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.scrutable.yaml)")
	rootCmd.PersistentFlags().String("output", "", "output directory for artifacts")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
}
