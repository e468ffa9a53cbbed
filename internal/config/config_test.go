package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-analyst/internal/analysis/scoring"
	"stock-analyst/internal/cache"
	apperrors "stock-analyst/internal/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadCreatesTemplateWithDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "analyst")
	cfg, err := Load(dir)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, FileName))
	require.NoError(t, err, "template should be written")

	def := Default()
	assert.Equal(t, def.Analysis.RiskFreeRate, cfg.Analysis.RiskFreeRate)
	assert.Zero(t, cfg.Analysis.RiskFreeRate, "template risk-free rate defaults to 0")
	assert.Equal(t, def.Analysis.Windows, cfg.Analysis.Windows)
	assert.Equal(t, def.Sources.Yahoo.Timeout, cfg.Sources.Yahoo.Timeout)
	assert.Equal(t, cache.BackendMemory, cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, def.Store.Path, cfg.Store.Path, "empty path falls back to the default location")
	assert.Equal(t, filepath.Join(dir, FileName), cfg.Path)
}

func TestLoadFileOverrides(t *testing.T) {
	path := writeConfig(t, `
[analysis]
risk_free_rate = 0.02

[analysis.windows]
ma_short = 10
ma_long = 50
rsi = 14
bollinger = 20
bollinger_k = 2.0
macd_fast = 12
macd_slow = 26
macd_signal = 9
levels = 20
range_52w = 252
volume = 15

[analysis.rubric.technical]
macd_positive = 0

[analysis.rubric.sentiment]
"net_above_-0.5" = 0

[sources]
default = "csv"

[cache]
backend = "none"
ttl = "10m"

[watch]
cron = "0 18 * * *"
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 0.02, cfg.Analysis.RiskFreeRate)
	assert.Equal(t, 10, cfg.Analysis.Windows.MAShort)
	assert.Equal(t, 50, cfg.Analysis.Windows.MALong)
	assert.Equal(t, 0, cfg.Analysis.Rubric.Weight(scoring.FamilyTechnical, scoring.CondMACDPositive))
	assert.Equal(t, 0, cfg.Analysis.Rubric.Weight(scoring.FamilySentiment, "net_above_-0.5"))
	assert.Equal(t, 1, cfg.Analysis.Rubric.Weight(scoring.FamilySentiment, "net_above_-0.25"))
	assert.Equal(t, "csv", cfg.Sources.Default)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.False(t, cfg.CachePolicy().Enabled())

	opts, err := cfg.AnalyzerOptions()
	require.NoError(t, err)
	assert.Equal(t, 0.02, opts.RiskFreeRate)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ANALYST_RISK_FREE_RATE", "0.05")
	t.Setenv("ANALYST_SOURCE", "snapshot")
	t.Setenv("ANALYST_CACHE_BACKEND", "redis")
	t.Setenv("ANALYST_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := LoadFile(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, 0.05, cfg.Analysis.RiskFreeRate)
	assert.Equal(t, "snapshot", cfg.Sources.Default)
	assert.Equal(t, cache.BackendRedis, cfg.Cache.Backend)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Cache.RedisURL)
	assert.False(t, cfg.Notify.Enabled())

	t.Setenv("ANALYST_WEBHOOK_URL", "https://hooks.example.com/analyst")
	cfg, err = LoadFile(writeConfig(t, ""))
	require.NoError(t, err)
	assert.True(t, cfg.Notify.Webhook.Enabled)
	assert.Equal(t, "https://hooks.example.com/analyst", cfg.Notify.Webhook.URL)

	t.Setenv("ANALYST_RISK_FREE_RATE", "four percent")
	_, err = LoadFile(writeConfig(t, ""))
	assert.True(t, errors.Is(err, apperrors.ErrConfigInvalid), "got %v", err)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"bad source", "[sources]\ndefault = \"bloomberg\"\n", "sources.default"},
		{"bad backend", "[cache]\nbackend = \"memcached\"\n", "cache.backend"},
		{"redis without url", "[cache]\nbackend = \"redis\"\n", "cache.redis_url"},
		{"bad cron", "[watch]\ncron = \"every day\"\n", "watch.cron"},
		{"bad risk-free rate", "[analysis]\nrisk_free_rate = 4.0\n", ""},
		{"unknown rubric condition", "[analysis.rubric.technical]\nvolume_up = 1\n", "rubric.technical.volume_up"},
		{"bad level", "[logging]\nlevel = \"chatty\"\n", "logging.level"},
		{"bad notify level", "[notify]\nlevel = \"loud\"\n", "notify.level"},
		{"webhook without url", "[notify.webhook]\nenabled = true\n", "notify.webhook.url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrConfigInvalid), "got %v", err)
			if tt.field != "" {
				var ce *apperrors.ConfigurationError
				require.True(t, errors.As(err, &ce))
				assert.Equal(t, tt.field, ce.Field)
			}
		})
	}
}
