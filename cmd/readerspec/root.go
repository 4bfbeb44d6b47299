package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/artpar/readerspec/bootstrap"
	"github.com/artpar/readerspec/config"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "readerspec",
	Short: "Turn human-readable API specs into validated resource descriptions",
	Long: `readerspec keeps API specs as markdown documents written for people.

Each document has prose sections (What, Fields, Filters, Sorting,
Pagination, Ownership, Returns) and one fenced readerspec block holding
the machine-readable resource description. The prose is translated into
the block by a completion service; the block is validated and turned into
OpenAPI and reference documentation.

Quick start:
  readerspec translate -w   # Keep blocks in sync while editing prose
  readerspec check          # Validate every document
  readerspec build          # Generate OpenAPI and docs
  readerspec dev            # Watch and serve results over HTTP`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultPath, "config file path")
}

// loadConfig reads the config file when present. Without one, defaults and
// READERSPEC_* variables apply.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	return cfg, nil
}

// cliLogger logs to stderr so formatted output on stdout stays parseable.
func cliLogger(cfg *config.Config) zerolog.Logger {
	return bootstrap.NewLogger(cfg.Logging, os.Stderr)
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
	skipMark  = "\033[33m-\033[0m"
)
