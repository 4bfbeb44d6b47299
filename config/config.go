// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "readerspec.yaml"

// Config is the root configuration structure.
type Config struct {
	Specs      SpecsConfig      `yaml:"specs"`
	Completion CompletionConfig `yaml:"completion"`
	Watch      WatchConfig      `yaml:"watch"`
	History    HistoryConfig    `yaml:"history"`
	Logging    LoggingConfig    `yaml:"logging"`
	Server     ServerConfig     `yaml:"server"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// SpecsConfig locates documents and build output.
type SpecsConfig struct {
	Dir        string   `yaml:"dir"`
	Extension  string   `yaml:"extension"`
	Output     string   `yaml:"output"`
	Generators []string `yaml:"generators,omitempty"` // empty = all
}

// CompletionConfig configures the completion service.
type CompletionConfig struct {
	BaseURL string `yaml:"base_url,omitempty"`
	APIKey  string `yaml:"api_key,omitempty"`
	Model   string `yaml:"model"`
	// Temperature 0 selects the default; the service treats an omitted
	// temperature as its own default.
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// WatchConfig configures the change watcher.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	Paths    []string      `yaml:"paths,omitempty"` // empty = specs.dir
}

// HistoryConfig configures the translation history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// ServerConfig configures the dev server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// WatchPaths returns the directories the watcher observes.
func (c *Config) WatchPaths() []string {
	if len(c.Watch.Paths) > 0 {
		return c.Watch.Paths
	}
	return []string{c.Specs.Dir}
}

// base returns the values that cannot be told apart from an unset field
// after parsing. The file is decoded on top of it.
func base() Config {
	return Config{
		History: HistoryConfig{Enabled: true},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	cfg := base()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return finish(&cfg)
}

// LoadFromEnv creates configuration entirely from environment variables
// and defaults.
//
// Environment variables:
//
//	READERSPEC_SPECS_DIR               - Document directory (default: specs)
//	READERSPEC_SPECS_OUTPUT            - Build output directory (default: apps/api)
//	READERSPEC_COMPLETION_BASE_URL     - Completion service URL
//	READERSPEC_COMPLETION_API_KEY      - API key (also OPENAI_API_KEY, OPEN_AI_API_KEY)
//	READERSPEC_COMPLETION_MODEL        - Model (default: gpt-4o-mini)
//	READERSPEC_COMPLETION_TEMPERATURE  - Temperature (default: 0.1)
//	READERSPEC_COMPLETION_MAX_TOKENS   - Output cap (default: 1000)
//	READERSPEC_COMPLETION_TIMEOUT      - Request timeout (default: 60s)
//	READERSPEC_WATCH_DEBOUNCE          - Debounce delay (default: 1s)
//	READERSPEC_HISTORY_ENABLED         - Record translations (default: true)
//	READERSPEC_HISTORY_DSN             - History database (default: .readerspec/history.db)
//	READERSPEC_LOG_LEVEL               - debug, info, warn, error (default: info)
//	READERSPEC_LOG_FORMAT              - json or console (default: console)
//	READERSPEC_SERVER_HOST             - Dev server host (default: 127.0.0.1)
//	READERSPEC_SERVER_PORT             - Dev server port (default: 3000)
//	READERSPEC_METRICS_ENABLED         - Enable /metrics (default: true)
func LoadFromEnv() (*Config, error) {
	cfg := base()
	return finish(&cfg)
}

// LoadWithFallback loads path when it exists and falls back to environment
// variables and defaults otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

func finish(cfg *Config) (*Config, error) {
	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies READERSPEC_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Specs configuration
	if v := os.Getenv("READERSPEC_SPECS_DIR"); v != "" {
		cfg.Specs.Dir = v
	}
	if v := os.Getenv("READERSPEC_SPECS_OUTPUT"); v != "" {
		cfg.Specs.Output = v
	}

	// Completion configuration
	if v := os.Getenv("READERSPEC_COMPLETION_BASE_URL"); v != "" {
		cfg.Completion.BaseURL = v
	}
	if v := os.Getenv("READERSPEC_COMPLETION_API_KEY"); v != "" {
		cfg.Completion.APIKey = v
	}
	if v := os.Getenv("READERSPEC_COMPLETION_MODEL"); v != "" {
		cfg.Completion.Model = v
	}
	if v := os.Getenv("READERSPEC_COMPLETION_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Completion.Temperature = f
		}
	}
	if v := os.Getenv("READERSPEC_COMPLETION_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Completion.MaxTokens = n
		}
	}
	if v := os.Getenv("READERSPEC_COMPLETION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Completion.Timeout = d
		}
	}

	// Watch configuration
	if v := os.Getenv("READERSPEC_WATCH_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Watch.Debounce = d
		}
	}

	// History configuration
	if v := os.Getenv("READERSPEC_HISTORY_ENABLED"); v != "" {
		cfg.History.Enabled = parseBool(v)
	}
	if v := os.Getenv("READERSPEC_HISTORY_DSN"); v != "" {
		cfg.History.DSN = v
	}

	// Logging configuration
	if v := os.Getenv("READERSPEC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("READERSPEC_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Server configuration
	if v := os.Getenv("READERSPEC_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("READERSPEC_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	// Metrics configuration
	if v := os.Getenv("READERSPEC_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

// apiKeyFromEnv returns the first completion API key found in the
// well-known variables.
func apiKeyFromEnv() string {
	for _, name := range []string{"OPENAI_API_KEY", "OPEN_AI_API_KEY"} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func setDefaults(cfg *Config) {
	if cfg.Specs.Dir == "" {
		cfg.Specs.Dir = "specs"
	}
	if cfg.Specs.Extension == "" {
		cfg.Specs.Extension = ".readerspec.md"
	}
	if cfg.Specs.Output == "" {
		cfg.Specs.Output = "apps/api"
	}

	if cfg.Completion.APIKey == "" {
		cfg.Completion.APIKey = apiKeyFromEnv()
	}
	if cfg.Completion.Model == "" {
		cfg.Completion.Model = "gpt-4o-mini"
	}
	if cfg.Completion.Temperature == 0 {
		cfg.Completion.Temperature = 0.1
	}
	if cfg.Completion.MaxTokens == 0 {
		cfg.Completion.MaxTokens = 1000
	}
	if cfg.Completion.Timeout == 0 {
		cfg.Completion.Timeout = 60 * time.Second
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = time.Second
	}

	if cfg.History.DSN == "" {
		cfg.History.DSN = ".readerspec/history.db"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	if !strings.HasPrefix(cfg.Specs.Extension, ".") {
		return fmt.Errorf("specs.extension must start with '.', got %q", cfg.Specs.Extension)
	}

	if cfg.Completion.Temperature < 0 || cfg.Completion.Temperature > 2 {
		return fmt.Errorf("completion.temperature must be between 0 and 2, got %v", cfg.Completion.Temperature)
	}
	if cfg.Completion.MaxTokens < 1 {
		return fmt.Errorf("completion.max_tokens must be positive, got %d", cfg.Completion.MaxTokens)
	}
	if cfg.Completion.Timeout < 0 {
		return fmt.Errorf("completion.timeout must not be negative, got %v", cfg.Completion.Timeout)
	}

	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %v", cfg.Watch.Debounce)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", cfg.Logging.Level)
	}

	validLogFormats := map[string]bool{"json": true, "console": true}
	if !validLogFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}

	return nil
}
