// Package bootstrap wires all dependencies and starts the application.
// Configuration comes from readerspec.yaml with READERSPEC_* environment
// overrides.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/artpar/readerspec/adapters/clock"
	"github.com/artpar/readerspec/adapters/fs"
	readerhttp "github.com/artpar/readerspec/adapters/http"
	"github.com/artpar/readerspec/adapters/metrics"
	"github.com/artpar/readerspec/adapters/sqlite"
	"github.com/artpar/readerspec/app"
	"github.com/artpar/readerspec/config"
	"github.com/artpar/readerspec/core/completion"
	"github.com/artpar/readerspec/core/openapi"
	"github.com/artpar/readerspec/core/spec"
	"github.com/artpar/readerspec/ports"
)

// ErrNoAPIKey is returned when a completion client is needed but no API key
// is configured.
var ErrNoAPIKey = errors.New("no API key: set completion.api_key or OPENAI_API_KEY")

// App represents the running dev server.
type App struct {
	Logger     zerolog.Logger
	DB         *sqlite.DB
	HTTPServer *http.Server
	Metrics    *metrics.Collector
	Registry   *prometheus.Registry

	// Holder is set when the app was created with NewWithHotReload.
	Holder *config.Holder

	// Services
	Store        *fs.Store
	History      ports.HistoryStore
	Checker      *app.Checker
	OpenAPI      *openapi.Service
	Translations *app.TranslationService // nil without an API key
	Watcher      *app.Watcher            // nil unless Options.Watch and an API key

	cfg          *config.Config
	shutdownOnce sync.Once
}

// Options provides optional settings for application initialization.
type Options struct {
	// Version is reported by /version.
	Version string

	// Watch starts the change watcher in Run. Without an API key the
	// watcher is skipped with a warning.
	Watch bool

	// Force disables the unchanged-prose skip.
	Force bool

	// LogOutput receives log lines. Defaults to os.Stdout.
	LogOutput io.Writer
}

// New creates and initializes the application from cfg.
func New(cfg *config.Config, opts Options) (*App, error) {
	logger := NewLogger(cfg.Logging, opts.LogOutput)
	logger.Info().Str("specs", cfg.Specs.Dir).Msg("initializing readerspec")

	a := &App{
		Logger: logger,
		cfg:    cfg,
		Store:  fs.New(cfg.Specs.Extension),
	}

	if err := a.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	if cfg.History.Enabled {
		db, history, err := OpenHistory(cfg.History, logger)
		if err != nil {
			return nil, fmt.Errorf("init history: %w", err)
		}
		a.DB = db
		a.History = history
	}

	a.initServices(opts)
	a.initHTTPServer(opts)

	return a, nil
}

// NewWithHotReload loads path through a config.Holder and applies reloadable
// fields without a restart. The file is watched with fsnotify and reloaded
// on SIGHUP.
func NewWithHotReload(path string, opts Options) (*App, error) {
	boot := NewLogger(config.LoggingConfig{Level: "info", Format: "console"}, opts.LogOutput)

	holder, err := config.NewHolder(path, boot)
	if err != nil {
		return nil, err
	}

	a, err := New(holder.Get(), opts)
	if err != nil {
		holder.Stop()
		return nil, err
	}
	a.Holder = holder

	holder.OnChange(a.applyConfig)
	if err := holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watch unavailable, SIGHUP only")
	}
	holder.WatchSignals()

	return a, nil
}

// Config returns the current configuration.
func (a *App) Config() *config.Config {
	if a.Holder != nil {
		return a.Holder.Get()
	}
	return a.cfg
}

func (a *App) specsDir() string {
	return a.Config().Specs.Dir
}

// applyConfig is called after every successful reload.
func (a *App) applyConfig(cfg *config.Config) {
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	a.OpenAPI.InvalidateCache()
	a.Logger.Info().Str("specs", cfg.Specs.Dir).Msg("configuration applied")
}

func (a *App) initMetrics() error {
	if !a.cfg.Metrics.Enabled {
		return nil
	}

	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return err
	}
	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return err
	}

	a.Registry = reg
	a.Metrics = metrics.NewWithRegistry(reg)
	a.Logger.Info().Str("path", a.cfg.Metrics.Path).Msg("prometheus metrics enabled")
	return nil
}

func (a *App) initServices(opts Options) {
	var m ports.Metrics
	if a.Metrics != nil {
		m = a.Metrics
	}

	a.Checker = app.NewChecker(app.CheckerDeps{
		Store:   a.Store,
		Metrics: m,
		Logger:  a.Logger,
	})

	a.OpenAPI = openapi.NewService(openapi.ServiceConfig{
		Loader: func(ctx context.Context) ([]spec.ResourceDescription, error) {
			report, err := a.Checker.CheckAll(ctx, a.specsDir())
			if err != nil {
				return nil, err
			}
			return report.Valid(), nil
		},
		Logger: a.Logger,
	})

	client, err := NewCompletionClient(a.cfg.Completion, a.Logger)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("translation disabled")
		return
	}

	a.Translations = app.NewTranslationService(app.TranslationDeps{
		Store:      a.Store,
		Translator: client,
		History:    a.History,
		Metrics:    m,
		Clock:      clock.Real{},
		Logger:     a.Logger,
	}, app.TranslationConfig{Force: opts.Force})

	if opts.Watch {
		a.Watcher = app.NewWatcher(app.WatcherDeps{
			Translator: a.Translations,
			Clock:      clock.Real{},
			Metrics:    m,
			Logger:     a.Logger,
		}, app.WatcherConfig{
			Paths:     a.cfg.WatchPaths(),
			Extension: a.cfg.Specs.Extension,
			Debounce:  a.cfg.Watch.Debounce,
		})
	}
}

func (a *App) initHTTPServer(opts Options) {
	deps := readerhttp.HandlerDeps{
		Checker: a.Checker,
		Store:   a.Store,
		OpenAPI: a.OpenAPI,
		Logger:  a.Logger,
	}
	if a.History != nil {
		deps.History = a.History
	}
	handler := readerhttp.NewHandler(deps, readerhttp.HandlerConfig{
		Root:    a.specsDir,
		Version: opts.Version,
	})

	routerCfg := readerhttp.RouterConfig{
		MetricsPath: a.cfg.Metrics.Path,
		Timeout:     a.cfg.Server.WriteTimeout,
	}
	if a.Metrics != nil {
		routerCfg.Metrics = a.Metrics
		routerCfg.MetricsHandler = promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})
	}

	a.HTTPServer = &http.Server{
		Addr:         a.cfg.Server.Addr(),
		Handler:      readerhttp.NewRouter(handler, a.Logger, routerCfg),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}
}

// Run starts the watcher and the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.Watcher != nil {
		if err := a.Watcher.Start(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to start watcher")
		}
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application. It is safe to call more than
// once.
func (a *App) Shutdown() error {
	a.shutdownOnce.Do(a.shutdown)
	return nil
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.Holder != nil {
		a.Holder.Stop()
	}

	// Pending timers are cancelled; translations already running finish.
	if a.Watcher != nil {
		a.Watcher.Stop()
		a.Watcher.Wait()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
}

// OpenHistory opens and migrates the history database. The parent
// directory of a file DSN is created when missing.
func OpenHistory(cfg config.HistoryConfig, logger zerolog.Logger) (*sqlite.DB, *sqlite.HistoryStore, error) {
	if cfg.DSN != ":memory:" {
		if dir := filepath.Dir(cfg.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create history dir: %w", err)
			}
		}
	}

	db, err := sqlite.Open(cfg.DSN)
	if err != nil {
		return nil, nil, err
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Debug().Str("dsn", cfg.DSN).Msg("history database initialized")
	return db, sqlite.NewHistoryStore(db), nil
}

// NewCompletionClient builds the completion client, or returns ErrNoAPIKey.
func NewCompletionClient(cfg config.CompletionConfig, logger zerolog.Logger) (*completion.Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	return completion.New(completion.Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: float32(cfg.Temperature),
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout,
	}, logger), nil
}

// NewLogger sets the global level from cfg and returns a logger writing to
// out, or os.Stdout when out is nil.
func NewLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(out).With().Timestamp().Logger()
}
