package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/artpar/readerspec/adapters/fs"
	"github.com/artpar/readerspec/app"
	"github.com/artpar/readerspec/core/formatter"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate every spec document",
	Long: `Parse and validate every document under the specs directory.

Each document must contain exactly one readerspec block whose JSON passes
the structural and semantic rules. Warnings and suggestions are printed
alongside errors. The command exits non-zero when any document is invalid.

Examples:
  readerspec check
  readerspec check --specs docs/api -v
  readerspec check --format json`,
	RunE: runCheck,
}

var (
	checkSpecsDir string
	checkVerbose  bool
	checkFormat   string
)

var outcomeListing = formatter.Listing{
	Kind:    "documents",
	Columns: []string{"name", "resource", "valid", "errors", "warnings", "suggestions", "path"},
	Hidden:  []string{"suggestions", "path"},
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkSpecsDir, "specs", "s", "", "specs directory (default from config)")
	checkCmd.Flags().BoolVarP(&checkVerbose, "verbose", "v", false, "show detailed validation output")
	checkCmd.Flags().StringVar(&checkFormat, "format", "", "output format: table, json, yaml (default: report)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if checkSpecsDir != "" {
		cfg.Specs.Dir = checkSpecsDir
	}

	checker := app.NewChecker(app.CheckerDeps{
		Store:  fs.New(cfg.Specs.Extension),
		Logger: cliLogger(cfg),
	})

	report, err := checker.CheckAll(cmd.Context(), cfg.Specs.Dir)
	if err != nil {
		return fmt.Errorf("check %s: %w", cfg.Specs.Dir, err)
	}

	out := cmd.OutOrStdout()
	if checkFormat != "" {
		f, err := formatter.Lookup(checkFormat)
		if err != nil {
			return err
		}
		if err := f.FormatList(out, outcomeListing, outcomeRecords(report), formatter.FormatOptions{}); err != nil {
			return err
		}
	} else {
		printReport(out, report, checkVerbose)
	}

	if report.Failed() {
		return fmt.Errorf("validation failed: %d of %d documents invalid", report.Summary.Invalid, report.Summary.Total)
	}
	return nil
}

func printReport(w io.Writer, report app.Report, verbose bool) {
	if len(report.Outcomes) == 0 {
		fmt.Fprintf(w, "No documents found in %s\n", report.Root)
		return
	}

	fmt.Fprintf(w, "Checking %s (%d documents)...\n\n", report.Root, report.Summary.Total)

	for _, o := range report.Outcomes {
		mark := checkMark
		if !o.OK() {
			mark = crossMark
		}
		fmt.Fprintf(w, "  %s %s\n", mark, o.Path)

		for _, msg := range o.Errors() {
			fmt.Fprintf(w, "      error: %s\n", msg)
		}
		for _, msg := range o.Result.Warnings {
			fmt.Fprintf(w, "      warning: %s\n", msg)
		}
		// Suggestions accompany errors; valid documents show them with -v.
		if !o.OK() || verbose {
			for _, msg := range o.Result.Suggestions {
				fmt.Fprintf(w, "      suggestion: %s\n", msg)
			}
		}
		if verbose && o.Description != nil {
			rd := o.Description
			fmt.Fprintf(w, "      resource: %s (%d fields, %d filters, %d sort options)\n",
				rd.Resource, len(rd.Fields), len(rd.Filters), len(rd.Sort))
		}
	}

	s := report.Summary
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d documents: %d valid, %d invalid (%d errors, %d warnings)\n",
		s.Total, s.Valid, s.Invalid, s.Errors, s.Warnings)
}

func outcomeRecords(report app.Report) []map[string]any {
	records := make([]map[string]any, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		r := map[string]any{
			"name":        o.Name,
			"path":        o.Path,
			"valid":       o.OK(),
			"errors":      o.Errors(),
			"warnings":    o.Result.Warnings,
			"suggestions": o.Result.Suggestions,
		}
		if o.Description != nil {
			r["resource"] = o.Description.Resource
		}
		records = append(records, r)
	}
	return records
}
