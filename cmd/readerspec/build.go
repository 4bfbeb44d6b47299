package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/readerspec/adapters/fs"
	"github.com/artpar/readerspec/app"
	"github.com/artpar/readerspec/core/generate"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Generate OpenAPI and reference docs from valid specs",
	Long: `Check every document, then run the generators over the valid resource
descriptions and write their files under the output directory.

Nothing is written when any document is invalid.

Generators:
  openapi    OpenAPI 3.0 document per resource and a combined openapi.json
  markdown   Reference page per resource
  yaml       Normalized resource descriptions as YAML

Examples:
  readerspec build
  readerspec build --specs docs/api --output gen
  readerspec build --generators openapi`,
	RunE: runBuild,
}

var (
	buildSpecsDir   string
	buildOutput     string
	buildGenerators []string
)

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&buildSpecsDir, "specs", "s", "", "specs directory (default from config)")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "output directory (default from config)")
	buildCmd.Flags().StringSliceVarP(&buildGenerators, "generators", "g", nil, "generators to run (default: all)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if buildSpecsDir != "" {
		cfg.Specs.Dir = buildSpecsDir
	}
	if buildOutput != "" {
		cfg.Specs.Output = buildOutput
	}
	if len(buildGenerators) > 0 {
		cfg.Specs.Generators = buildGenerators
	}

	generators, err := generate.Select(cfg.Specs.Generators)
	if err != nil {
		return err
	}

	logger := cliLogger(cfg)
	checker := app.NewChecker(app.CheckerDeps{
		Store:  fs.New(cfg.Specs.Extension),
		Logger: logger,
	})

	report, err := checker.CheckAll(cmd.Context(), cfg.Specs.Dir)
	if err != nil {
		return fmt.Errorf("check %s: %w", cfg.Specs.Dir, err)
	}

	out := cmd.OutOrStdout()
	if len(report.Outcomes) == 0 {
		fmt.Fprintf(out, "No documents found in %s\n", report.Root)
		return nil
	}
	if report.Failed() {
		printReport(out, report, false)
		return fmt.Errorf("build failed: %d of %d documents invalid", report.Summary.Invalid, report.Summary.Total)
	}

	rds := report.Valid()
	files, err := generate.Run(generators, rds)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	converted := make([]fs.File, len(files))
	for i, f := range files {
		converted[i] = fs.File{Name: f.Name, Content: f.Content}
	}

	written, err := fs.WriteGenerated(cfg.Specs.Output, converted)
	for _, path := range written {
		fmt.Fprintf(out, "  %s %s\n", checkMark, path)
	}
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	logger.Debug().Int("resources", len(rds)).Int("files", len(written)).Msg("build complete")
	fmt.Fprintf(out, "\nGenerated %d files for %d resources in %s\n", len(written), len(rds), cfg.Specs.Output)
	return nil
}
