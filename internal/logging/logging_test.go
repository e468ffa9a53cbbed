package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"trace", zerolog.InfoLevel},
		{"chatty", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerWritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "analyst.log")
	logger := NewLoggerWithConfig(LogConfig{
		Level:    "info",
		Console:  true,
		File:     true,
		FilePath: path,
		MaxSize:  1,
		Output:   &console,
	})

	symLogger := WithSymbol(logger, "AAPL")
	symLogger.Debug().Msg("hidden")
	LogFetch(WithSource(logger, "yahoo"), "yahoo", "AAPL", time.Millisecond, false, nil)
	opLogger := WithOperation(logger, "pipeline")
	opLogger.Info().Msg("Analysis pipeline completed")

	out := console.String()
	if strings.Contains(out, "hidden") || strings.Contains(out, "Fetch completed") {
		t.Errorf("debug events leaked at info level: %q", out)
	}
	if !strings.Contains(out, "Analysis pipeline completed") {
		t.Errorf("console output missing info event: %q", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), `"operation":"pipeline"`) {
		t.Errorf("file output should be JSON: %q", data)
	}
}

func TestLoggerWithNoWritersIsNop(t *testing.T) {
	logger := NewLoggerWithConfig(LogConfig{Level: "debug"})
	if logger.GetLevel() != zerolog.Disabled {
		t.Errorf("expected a disabled logger, got level %v", logger.GetLevel())
	}
}
