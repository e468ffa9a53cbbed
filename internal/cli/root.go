package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stock-analyst/internal/analyzer"
	"stock-analyst/internal/cache"
	"stock-analyst/internal/config"
	"stock-analyst/internal/logging"
	"stock-analyst/internal/security"
	"stock-analyst/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-06-01"
)

// App holds the application dependencies. The store and cache are opened
// on first use so that commands which need neither never touch the disk.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.DataStore
	Cache  cache.Cache
}

// store opens the SQLite store on first use.
func (a *App) store() (store.DataStore, error) {
	if a.Store != nil {
		return a.Store, nil
	}
	path := a.Config.Store.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	a.Logger.Debug().Str("path", path).Msg("SQLite store initialized")
	a.Store = s
	return s, nil
}

// cache opens the configured cache on first use. A backend that cannot be
// opened degrades to no caching.
func (a *App) cache() cache.Cache {
	if a.Cache != nil {
		return a.Cache
	}
	cfg := a.Config.Cache
	if cfg.Backend == cache.BackendSQLite && cfg.SQLitePath != "" {
		_ = os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
	}
	c, err := cache.Open(cfg)
	if err != nil {
		a.Logger.Warn().Err(err).Str("backend", cfg.Backend).Msg("Cache unavailable, continuing without it")
		c = cache.Nop{}
	} else {
		a.Logger.Debug().Str("backend", cfg.Backend).Msg("Cache initialized")
	}
	a.Cache = c
	return c
}

// analyzer builds an analyzer from the config. A non-nil riskFree overrides
// the configured rate.
func (a *App) analyzer(riskFree *float64) (*analyzer.Analyzer, error) {
	opts, err := a.Config.AnalyzerOptions()
	if err != nil {
		return nil, err
	}
	if riskFree != nil {
		opts.RiskFreeRate = *riskFree
	}
	return analyzer.New(opts, a.Logger)
}

// Close releases the store and cache.
func (a *App) Close() error {
	var errs []string
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		a.Store = nil
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		a.Cache = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("close: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Execute runs the CLI. When cfg is nil the configuration is loaded from
// the --config flag or the default directory.
func Execute(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	app := &App{Config: cfg, Logger: logger}
	defer app.Close()
	return newRootCmd(app).ExecuteContext(ctx)
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	return newRootCmd(&App{Config: cfg, Logger: logger})
}

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "analyst",
		Short: "Stock analyst - technical, fundamental and sentiment analysis",
		Long: `Stock analyst builds a comprehensive report for a listed stock.

It computes technical indicators from daily price history, estimates
fundamentals from reported data or sector defaults, aggregates tagged
discussion sentiment and turns the three into short, medium and long
term stances.

Symbols may be US tickers (AAPL), Hong Kong codes (0700.HK or 700.HK),
A-shares (600519.SH, 000001.SZ) or other Yahoo suffixes.

Use 'analyst <command> --help' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if app.Config == nil {
				path, _ := cmd.Flags().GetString("config")
				cfg, err := loadConfig(path)
				if err != nil {
					return err
				}
				app.Config = cfg
				app.Logger = logging.NewLoggerWithConfig(cfg.LogConfig())
			}
			colorAllowed = app.Config.UI.ColorEnabled

			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory or file (default: ~/.config/stock-analyst)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addAnalysisCommands(rootCmd, app)
	addDataCommands(rootCmd, app)
	addMonitoringCommands(rootCmd, app)

	return rootCmd
}

// loadConfig accepts a config directory, a config file or nothing.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load("")
	}
	info, err := os.Stat(path)
	if err == nil && !info.IsDir() {
		return config.LoadFile(path)
	}
	return config.Load(path)
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newExamplesCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("Stock analyst v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(redacted(app.Config))
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			path := app.Config.Path
			if path == "" {
				path = filepath.Join(config.DefaultConfigDir(), config.FileName)
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": path})
			}
			output.Println(path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if _, err := app.Config.AnalyzerOptions(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

// redacted returns a copy of cfg safe to print.
func redacted(cfg *config.Config) *config.Config {
	c := *cfg
	c.Cache.RedisURL = security.MaskURL(c.Cache.RedisURL)
	c.Notify.Webhook.URL = security.MaskURL(c.Notify.Webhook.URL)
	c.Notify.Telegram.BotToken = security.MaskCredential(c.Notify.Telegram.BotToken)
	return &c
}

func showConfig(output *Output, cfg *config.Config) {
	a := cfg.Analysis
	output.Bold("Analysis")
	output.Printf("  Risk-free rate:  %.2f%%\n", a.RiskFreeRate*100)
	output.Printf("  MA windows:      %d / %d %v\n", a.Windows.MAShort, a.Windows.MALong, a.Windows.ExtraMA)
	output.Printf("  RSI / BB:        %d / %d (k=%.1f)\n", a.Windows.RSI, a.Windows.Bollinger, a.Windows.BollingerK)
	output.Printf("  MACD:            %d / %d / %d\n", a.Windows.MACDFast, a.Windows.MACDSlow, a.Windows.MACDSignal)
	sector := a.SectorTable
	if sector == "" {
		sector = "built-in"
	}
	output.Printf("  Sector table:    %s\n", sector)
	output.Println()

	output.Bold("Sources")
	output.Printf("  Default:         %s\n", cfg.Sources.Default)
	output.Printf("  Yahoo:           %s (%.1f req/s, range %s)\n", cfg.Sources.Yahoo.BaseURL, cfg.Sources.Yahoo.RateLimit, cfg.Sources.Yahoo.Range)
	if cfg.Sources.Snapshot.URL != "" {
		output.Printf("  Snapshot:        %s\n", cfg.Sources.Snapshot.URL)
	}
	output.Println()

	output.Bold("Storage")
	output.Printf("  Store:           %s\n", cfg.Store.Path)
	output.Printf("  Cache:           %s (ttl %s)\n", cfg.Cache.Backend, cfg.Cache.TTL)
	if cfg.Cache.RedisURL != "" {
		output.Printf("  Redis:           %s\n", security.MaskURL(cfg.Cache.RedisURL))
	}
	output.Println()

	output.Bold("Watch")
	output.Printf("  Schedule:        %s\n", cfg.Watch.Cron)
	output.Printf("  Watchlist:       %s\n", cfg.Watch.List)
	output.Println()

	output.Bold("Notify")
	output.Printf("  Level:           %s\n", cfg.Notify.Level)
	output.Printf("  Webhook:         %v\n", cfg.Notify.Webhook.Enabled)
	output.Printf("  Telegram:        %v\n", cfg.Notify.Telegram.Enabled)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:           %s\n", cfg.Logging.Level)
	output.Printf("  File:            %v\n", cfg.Logging.File)
}
