package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/artpar/readerspec/adapters/clock"
	"github.com/artpar/readerspec/adapters/fs"
	"github.com/artpar/readerspec/app"
	"github.com/artpar/readerspec/bootstrap"
	"github.com/artpar/readerspec/config"
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate spec prose into readerspec blocks",
	Long: `Send the prose sections of each document to the completion service
and replace the document's readerspec block with the reply.

Documents whose prose has not changed since the last successful run are
skipped unless --force is given. With --watch, documents are translated
one second after they stop changing, until interrupted.

The API key is read from --api-key, completion.api_key,
READERSPEC_COMPLETION_API_KEY or OPENAI_API_KEY.

Examples:
  readerspec translate
  readerspec translate -f specs/todos.readerspec.md
  readerspec translate -w`,
	RunE: runTranslate,
}

var (
	translateFile     string
	translateWatch    bool
	translateAPIKey   string
	translateModel    string
	translateForce    bool
	translateSpecsDir string
)

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&translateFile, "file", "f", "", "translate a single document")
	translateCmd.Flags().BoolVarP(&translateWatch, "watch", "w", false, "watch for changes and translate automatically")
	translateCmd.Flags().StringVarP(&translateAPIKey, "api-key", "k", "", "completion service API key")
	translateCmd.Flags().StringVarP(&translateModel, "model", "m", "", "completion model (default from config)")
	translateCmd.Flags().BoolVar(&translateForce, "force", false, "translate even when the prose is unchanged")
	translateCmd.Flags().StringVarP(&translateSpecsDir, "specs", "s", "", "specs directory (default from config)")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if translateSpecsDir != "" {
		cfg.Specs.Dir = translateSpecsDir
	}
	if translateAPIKey != "" {
		cfg.Completion.APIKey = translateAPIKey
	}
	if translateModel != "" {
		cfg.Completion.Model = translateModel
	}

	logger := cliLogger(cfg)

	client, err := bootstrap.NewCompletionClient(cfg.Completion, logger)
	if err != nil {
		return err
	}

	store := fs.New(cfg.Specs.Extension)
	deps := app.TranslationDeps{
		Store:      store,
		Translator: client,
		Clock:      clock.Real{},
		Logger:     logger,
	}

	if cfg.History.Enabled {
		db, history, err := bootstrap.OpenHistory(cfg.History, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("history unavailable")
		} else {
			defer db.Close()
			deps.History = history
		}
	}

	svc := app.NewTranslationService(deps, app.TranslationConfig{Force: translateForce})

	if translateWatch {
		return watchDocuments(cmd.Context(), cfg, svc, logger)
	}

	paths := []string{translateFile}
	if translateFile == "" {
		paths, err = store.List(cmd.Context(), cfg.Specs.Dir)
		if err != nil {
			return fmt.Errorf("list %s: %w", cfg.Specs.Dir, err)
		}
	}

	results := svc.TranslateAll(cmd.Context(), paths)
	return printTranslations(cmd.OutOrStdout(), results)
}

func printTranslations(w io.Writer, results []app.TranslationResult) error {
	if len(results) == 0 {
		fmt.Fprintln(w, "No documents to translate.")
		return nil
	}

	failed := 0
	for _, r := range results {
		switch {
		case !r.Success:
			failed++
			fmt.Fprintf(w, "  %s %s: %s\n", crossMark, r.Path, r.Message())
		case r.Skipped:
			fmt.Fprintf(w, "  %s %s (unchanged)\n", skipMark, r.Path)
		default:
			fmt.Fprintf(w, "  %s %s (confidence %.2f)\n", checkMark, r.Path, r.Confidence)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d translations failed", failed, len(results))
	}
	return nil
}

// watchDocuments runs the change watcher until SIGINT or SIGTERM.
func watchDocuments(ctx context.Context, cfg *config.Config, svc *app.TranslationService, logger zerolog.Logger) error {
	w := app.NewWatcher(app.WatcherDeps{
		Translator: svc,
		Clock:      clock.Real{},
		Logger:     logger,
	}, app.WatcherConfig{
		Paths:     cfg.WatchPaths(),
		Extension: cfg.Specs.Extension,
		Debounce:  cfg.Watch.Debounce,
	})

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	logger.Info().Strs("paths", cfg.WatchPaths()).Msg("watching for changes, press Ctrl+C to stop")

	// Translations keep ctx so a signal lets running ones finish.
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()
	logger.Info().Msg("shutting down watcher")

	w.Stop()
	w.Wait()
	return nil
}
