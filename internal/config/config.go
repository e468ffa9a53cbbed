// Package config provides configuration management for the analyst.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"stock-analyst/internal/analysis/fundamental"
	"stock-analyst/internal/analysis/indicators"
	"stock-analyst/internal/analysis/scoring"
	"stock-analyst/internal/analyzer"
	"stock-analyst/internal/cache"
	apperrors "stock-analyst/internal/errors"
	"stock-analyst/internal/logging"
	"stock-analyst/internal/notify"
	"stock-analyst/internal/resilience"
	"stock-analyst/internal/sources"
	"stock-analyst/internal/sources/yahoo"
	"stock-analyst/internal/store"
)

// FileName is the config file name inside the config directory.
const FileName = "config.toml"

// Config holds all application configuration.
type Config struct {
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Cache    cache.Config   `mapstructure:"cache"`
	Store    StoreConfig    `mapstructure:"store"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Notify   notify.Config  `mapstructure:"notify"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	UI       UIConfig       `mapstructure:"ui"`

	// Path is the file the configuration was read from, if any.
	Path string `mapstructure:"-"`
}

// AnalysisConfig holds analyzer options.
type AnalysisConfig struct {
	RiskFreeRate float64            `mapstructure:"risk_free_rate"`
	Workers      int                `mapstructure:"workers"`
	SectorTable  string             `mapstructure:"sector_table"` // YAML file; empty uses the built-in table
	Windows      indicators.Windows `mapstructure:"windows"`
	Rubric       scoring.Rubric     `mapstructure:"rubric"`
}

// SourcesConfig holds data source configuration.
type SourcesConfig struct {
	Default  string         `mapstructure:"default"` // yahoo, csv, snapshot
	Workers  int            `mapstructure:"workers"` // concurrent symbols in batch runs
	Yahoo    YahooConfig    `mapstructure:"yahoo"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
}

// YahooConfig holds Yahoo Finance client configuration.
type YahooConfig struct {
	BaseURL   string            `mapstructure:"base_url"`
	Timeout   time.Duration     `mapstructure:"timeout"`
	RateLimit float64           `mapstructure:"rate_limit"` // requests per second
	Range     string            `mapstructure:"range"`
	Breaker   resilience.Config `mapstructure:"breaker"`
}

// SnapshotConfig holds the quote page location. A "{symbol}" placeholder
// is replaced with the symbol being analyzed.
type SnapshotConfig struct {
	URL string `mapstructure:"url"`
}

// StoreConfig holds database configuration.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// WatchConfig holds scheduled re-analysis configuration.
type WatchConfig struct {
	Cron string `mapstructure:"cron"`
	List string `mapstructure:"list"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       bool   `mapstructure:"file"`
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/stock-analyst"
	}
	return filepath.Join(home, ".config", "stock-analyst")
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	dir := DefaultConfigDir()
	opts := analyzer.DefaultOptions()
	logCfg := logging.DefaultLogConfig()
	return &Config{
		Analysis: AnalysisConfig{
			RiskFreeRate: opts.RiskFreeRate,
			Workers:      opts.Workers,
			Windows:      opts.Windows,
			Rubric:       opts.Rubric,
		},
		Sources: SourcesConfig{
			Default: sources.NameYahoo,
			Workers: 4,
			Yahoo: YahooConfig{
				BaseURL:   yahoo.DefaultBaseURL,
				Timeout:   yahoo.DefaultTimeout,
				RateLimit: yahoo.DefaultRateLimit,
				Range:     yahoo.DefaultRange,
				Breaker:   resilience.DefaultConfig(),
			},
		},
		Cache: cache.Config{
			Backend:    cache.BackendMemory,
			TTL:        cache.DefaultTTL,
			SQLitePath: filepath.Join(dir, "cache.db"),
		},
		Store: StoreConfig{
			Path: filepath.Join(dir, "analyst.db"),
		},
		Watch: WatchConfig{
			Cron: "30 16 * * 1-5",
			List: store.DefaultWatchlist,
		},
		Notify: notify.Config{
			Level: string(notify.LevelChangesOnly),
		},
		Logging: LoggingConfig{
			Level:      logCfg.Level,
			File:       logCfg.File,
			Path:       logCfg.FilePath,
			MaxSize:    logCfg.MaxSize,
			MaxBackups: logCfg.MaxBackups,
			MaxAge:     logCfg.MaxAge,
		},
		UI: UIConfig{
			ColorEnabled: true,
			DateFormat:   "2006-01-02",
		},
	}
}

// Load loads configuration from config.toml in configDir. If configDir is
// empty, uses the default config directory. A missing file is replaced by a
// commented template and the defaults are used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	path := filepath.Join(configDir, FileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := createTemplateConfig(configDir); err != nil {
			return nil, err
		}
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a TOML file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	// Rubric condition names contain dots, so the key delimiter must not be one.
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	cfg.Path = path
	cfg.fillPaths()

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// fillPaths restores default locations for paths the file leaves empty.
func (c *Config) fillPaths() {
	def := Default()
	if c.Store.Path == "" {
		c.Store.Path = def.Store.Path
	}
	if c.Cache.SQLitePath == "" {
		c.Cache.SQLitePath = def.Cache.SQLitePath
	}
	if c.Logging.Path == "" {
		c.Logging.Path = def.Logging.Path
	}
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("ANALYST_RISK_FREE_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return apperrors.NewConfigurationError("ANALYST_RISK_FREE_RATE", v, "must be a number")
		}
		cfg.Analysis.RiskFreeRate = rate
	}
	if v := os.Getenv("ANALYST_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("ANALYST_REDIS_URL"); v != "" {
		cfg.Cache.RedisURL = v
	}
	if v := os.Getenv("ANALYST_SOURCE"); v != "" {
		cfg.Sources.Default = v
	}
	if v := os.Getenv("ANALYST_WEBHOOK_URL"); v != "" {
		cfg.Notify.Webhook.Enabled = true
		cfg.Notify.Webhook.URL = v
	}
	if v := os.Getenv("ANALYST_TELEGRAM_TOKEN"); v != "" {
		cfg.Notify.Telegram.BotToken = v
	}
	if v := os.Getenv("ANALYST_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, err := c.AnalyzerOptions(); err != nil {
		return err
	}

	switch c.Sources.Default {
	case sources.NameYahoo, sources.NameCSV, sources.NameSnapshot:
	default:
		return apperrors.NewConfigurationError("sources.default", c.Sources.Default, "must be yahoo, csv or snapshot")
	}
	if c.Sources.Workers < 0 {
		return apperrors.NewConfigurationError("sources.workers", c.Sources.Workers, "must not be negative")
	}
	if c.Sources.Yahoo.RateLimit < 0 {
		return apperrors.NewConfigurationError("sources.yahoo.rate_limit", c.Sources.Yahoo.RateLimit, "must not be negative")
	}
	if c.Sources.Yahoo.Timeout <= 0 {
		return apperrors.NewConfigurationError("sources.yahoo.timeout", c.Sources.Yahoo.Timeout, "must be positive")
	}

	switch c.Cache.Backend {
	case cache.BackendMemory, cache.BackendSQLite, cache.BackendRedis, cache.BackendNone:
	default:
		return apperrors.NewConfigurationError("cache.backend", c.Cache.Backend, "must be memory, sqlite, redis or none")
	}
	if c.Cache.TTL < 0 {
		return apperrors.NewConfigurationError("cache.ttl", c.Cache.TTL, "must not be negative")
	}
	if c.Cache.Backend == cache.BackendRedis && c.Cache.RedisURL == "" {
		return apperrors.NewConfigurationError("cache.redis_url", "", "required for the redis backend")
	}

	if strings.TrimSpace(c.Store.Path) == "" {
		return apperrors.NewConfigurationError("store.path", c.Store.Path, "must not be empty")
	}

	if _, err := cron.ParseStandard(c.Watch.Cron); err != nil {
		return apperrors.NewConfigurationError("watch.cron", c.Watch.Cron, err.Error())
	}

	switch notify.Level(c.Notify.Level) {
	case notify.LevelAll, notify.LevelChangesOnly, notify.LevelErrorsOnly:
	default:
		return apperrors.NewConfigurationError("notify.level", c.Notify.Level, "must be all, changes_only or errors_only")
	}
	if c.Notify.Webhook.Enabled && c.Notify.Webhook.URL == "" {
		return apperrors.NewConfigurationError("notify.webhook.url", "", "required when the webhook is enabled")
	}
	if c.Notify.Telegram.Enabled && (c.Notify.Telegram.BotToken == "" || c.Notify.Telegram.ChatID == "") {
		return apperrors.NewConfigurationError("notify.telegram", "", "bot_token and chat_id are required when telegram is enabled")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return apperrors.NewConfigurationError("logging.level", c.Logging.Level, "must be debug, info, warn or error")
	}

	return nil
}

// AnalyzerOptions builds validated analyzer options, loading the sector
// table when one is configured.
func (c *Config) AnalyzerOptions() (analyzer.Options, error) {
	opts := analyzer.Options{
		RiskFreeRate: c.Analysis.RiskFreeRate,
		Windows:      c.Analysis.Windows,
		Rubric:       c.Analysis.Rubric,
		Workers:      c.Analysis.Workers,
	}
	if c.Analysis.SectorTable != "" {
		table, err := fundamental.LoadTable(c.Analysis.SectorTable)
		if err != nil {
			return opts, apperrors.NewConfigurationError("analysis.sector_table", c.Analysis.SectorTable, err.Error())
		}
		opts.SectorTable = table
	}
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// LogConfig converts the logging section for the logging package.
func (c *Config) LogConfig() logging.LogConfig {
	lc := logging.DefaultLogConfig()
	lc.Level = c.Logging.Level
	lc.File = c.Logging.File
	if c.Logging.Path != "" {
		lc.FilePath = c.Logging.Path
	}
	if c.Logging.MaxSize > 0 {
		lc.MaxSize = c.Logging.MaxSize
	}
	if c.Logging.MaxBackups > 0 {
		lc.MaxBackups = c.Logging.MaxBackups
	}
	if c.Logging.MaxAge > 0 {
		lc.MaxAge = c.Logging.MaxAge
	}
	return lc
}

// CachePolicy returns the cache policy for source adapters.
func (c *Config) CachePolicy() cache.Policy {
	if c.Cache.Backend == cache.BackendNone {
		return cache.Policy{}
	}
	return cache.Policy{TTL: c.Cache.TTL}
}
