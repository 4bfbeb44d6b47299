package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/artpar/readerspec/bootstrap"
	"github.com/artpar/readerspec/config"
)

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Watch specs and serve validation results over HTTP",
	Long: `Start the change watcher and the dev server.

The watcher runs only when an API key is configured. The server exposes:
  /resources                 Check outcome of every document
  /resources/{name}          Validation result and normalized description
  /resources/{name}/openapi.json
  /openapi.json              Combined spec of every valid document
  /swagger/                  Swagger UI for the combined spec
  /docs/{name}               Document rendered as HTML
  /history                   Recent translation runs
  /metrics                   Prometheus metrics

When the config file exists it is reloaded on change and on SIGHUP;
logging.level and specs.dir take effect without a restart.

Examples:
  readerspec dev
  readerspec dev --port 8080 --specs docs/api`,
	RunE: runDev,
}

var (
	devSpecsDir string
	devPort     int
	devHost     string
	devNoWatch  bool
)

func init() {
	rootCmd.AddCommand(devCmd)

	devCmd.Flags().StringVarP(&devSpecsDir, "specs", "s", "", "specs directory (default from config)")
	devCmd.Flags().IntVarP(&devPort, "port", "p", 0, "server port (default from config)")
	devCmd.Flags().StringVar(&devHost, "host", "", "server host (default from config)")
	devCmd.Flags().BoolVar(&devNoWatch, "no-watch", false, "do not start the change watcher")
}

func runDev(cmd *cobra.Command, args []string) error {
	// Flags become environment overrides so they survive config reloads.
	if devSpecsDir != "" {
		os.Setenv("READERSPEC_SPECS_DIR", devSpecsDir)
	}
	if devPort != 0 {
		os.Setenv("READERSPEC_SERVER_PORT", strconv.Itoa(devPort))
	}
	if devHost != "" {
		os.Setenv("READERSPEC_SERVER_HOST", devHost)
	}

	opts := bootstrap.Options{
		Version: version,
		Watch:   !devNoWatch,
	}

	var (
		a   *bootstrap.App
		err error
	)
	if _, statErr := os.Stat(cfgFile); statErr == nil {
		a, err = bootstrap.NewWithHotReload(cfgFile, opts)
	} else if errors.Is(statErr, os.ErrNotExist) {
		var cfg *config.Config
		cfg, err = config.LoadFromEnv()
		if err == nil {
			a, err = bootstrap.New(cfg, opts)
		}
	} else {
		err = statErr
	}
	if err != nil {
		return fmt.Errorf("start dev server: %w", err)
	}

	return a.Run()
}
