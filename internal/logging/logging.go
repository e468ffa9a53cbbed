// Package logging configures zerolog for the CLI and offers field helpers
// shared by the analyzer, sources and pipeline.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	// Output overrides the console destination (defaults to stderr so that
	// --json output on stdout stays machine readable).
	Output io.Writer
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		File:       true,
		FilePath:   filepath.Join(home, ".config", "stock-analyst", "logs", "analyst.log"),
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     30,
	}
}

// NewLogger creates a new logger with default configuration.
func NewLogger() zerolog.Logger {
	return NewLoggerWithConfig(DefaultLogConfig())
}

// levelTags are the short colored level names shown on the console.
var levelTags = map[string]string{
	"debug": "\033[36mDBG\033[0m",
	"info":  "\033[32mINF\033[0m",
	"warn":  "\033[33mWRN\033[0m",
	"error": "\033[31mERR\033[0m",
}

func formatLevel(i interface{}) string {
	ll, ok := i.(string)
	if !ok {
		return "???"
	}
	if tag, ok := levelTags[ll]; ok {
		return tag
	}
	return ll
}

// NewLoggerWithConfig builds a logger writing to the console, a rotated
// file, both or neither.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer

	if cfg.Console {
		out := cfg.Output
		if out == nil {
			out = os.Stderr
		}
		writers = append(writers, zerolog.ConsoleWriter{
			Out:         out,
			TimeFormat:  time.RFC3339,
			FormatLevel: formatLevel,
		})
	}

	if w := rotatingFile(cfg); w != nil {
		writers = append(writers, w)
	}

	if len(writers) == 0 {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// rotatingFile returns the lumberjack writer for cfg, or nil when file
// logging is off or the directory cannot be created.
func rotatingFile(cfg LogConfig) io.Writer {
	if !cfg.File || cfg.FilePath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil
	}
	return &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   true,
	}
}

// ParseLevel maps a config level name to a zerolog level. "warning" is
// accepted for warn; anything unknown is info.
func ParseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	switch l, err := zerolog.ParseLevel(level); {
	case err != nil, level == "":
		return zerolog.InfoLevel
	case l < zerolog.DebugLevel || l > zerolog.ErrorLevel:
		return zerolog.InfoLevel
	default:
		return l
	}
}

// WithSymbol adds a symbol to the logger context.
func WithSymbol(logger zerolog.Logger, symbol string) zerolog.Logger {
	return logger.With().Str("symbol", symbol).Logger()
}

// WithSource adds a data source name to the logger context.
func WithSource(logger zerolog.Logger, source string) zerolog.Logger {
	return logger.With().Str("source", source).Logger()
}

// WithOperation adds an operation name to the logger context.
func WithOperation(logger zerolog.Logger, operation string) zerolog.Logger {
	return logger.With().Str("operation", operation).Logger()
}

// LogAnalysis logs a completed analysis.
func LogAnalysis(logger zerolog.Logger, symbol string, technical, fundamental, sentiment int, shortTerm string) {
	logger.Debug().
		Str("event", "analysis").
		Str("symbol", symbol).
		Int("technical", technical).
		Int("fundamental", fundamental).
		Int("sentiment", sentiment).
		Str("short_term", shortTerm).
		Msg("Analysis completed")
}

// LogFetch logs a source fetch.
func LogFetch(logger zerolog.Logger, source, symbol string, duration time.Duration, cached bool, err error) {
	event := logger.Debug().
		Str("event", "fetch").
		Str("source", source).
		Str("symbol", symbol).
		Bool("cached", cached).
		Dur("duration", duration)

	if err != nil {
		event.Err(err).Msg("Fetch failed")
	} else {
		event.Msg("Fetch completed")
	}
}
