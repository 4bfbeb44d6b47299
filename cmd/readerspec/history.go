package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/readerspec/bootstrap"
	"github.com/artpar/readerspec/core/formatter"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent translation runs",
	Long: `List translation runs recorded in the history database, newest first.

Examples:
  readerspec history
  readerspec history --limit 50
  readerspec history --format json`,
	RunE: runHistory,
}

var (
	historyLimit  int
	historyFormat string
)

var historyListing = formatter.Listing{
	Kind:    "translations",
	Columns: []string{"created_at", "path", "success", "confidence", "error", "digest", "id"},
	Hidden:  []string{"digest", "id"},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of runs")
	historyCmd.Flags().StringVar(&historyFormat, "format", "table", "output format: table, json, yaml")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return errors.New("history is disabled (history.enabled: false)")
	}

	f, err := formatter.Lookup(historyFormat)
	if err != nil {
		return err
	}

	db, store, err := bootstrap.OpenHistory(cfg.History, cliLogger(cfg))
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer db.Close()

	entries, err := store.List(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}

	records := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		records = append(records, map[string]any{
			"id":         e.ID,
			"path":       e.Path,
			"digest":     e.Digest,
			"success":    e.Success,
			"confidence": e.Confidence,
			"error":      e.Error,
			"created_at": e.CreatedAt,
		})
	}

	return f.FormatList(cmd.OutOrStdout(), historyListing, records, formatter.FormatOptions{MaxWidth: 60})
}
