package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Stock Analyst Configuration

[analysis]
# Annual risk-free rate used by the Sharpe ratio, as a fraction (0.02 = 2%)
risk_free_rate = 0.0
# Indicator families computed in parallel
workers = 4
# Optional YAML sector table; empty uses the built-in table
sector_table = ""

[analysis.windows]
ma_short = 5
ma_long = 20
extra_ma = [10, 60]
rsi = 14
bollinger = 20
bollinger_k = 2.0
macd_fast = 12
macd_slow = 26
macd_signal = 9
# Lookback for support and resistance levels
levels = 20
# Trading days in the 52-week range
range_52w = 252
# Average volume window
volume = 15

# Scoring rubric weights. Each condition weighs 1 unless set to 0 here.
[analysis.rubric.technical]
# price_above_ma_short = 1
# ma_short_above_ma_long = 1
# rsi_in_range = 1
# price_above_bb_lower = 1
# macd_positive = 1
# position_52w_above_half = 1

[analysis.rubric.fundamental]
# eps_positive = 1
# pe_reasonable = 1
# peg_attractive = 1
# growth_healthy = 1
# trailing_return_positive = 1
# near_30d_high = 1

[analysis.rubric.sentiment]
# "net_above_-0.75" = 1
# "net_above_-0.5" = 1
# "net_above_-0.25" = 1
# "net_at_least_0.25" = 1
# "net_at_least_0.5" = 1
# "net_at_least_0.75" = 1

[sources]
# Default price source: yahoo, csv, snapshot
default = "yahoo"
# Symbols analyzed concurrently by watch and batch runs
workers = 4

[sources.yahoo]
base_url = "https://query1.finance.yahoo.com"
timeout = "15s"
# Requests per second
rate_limit = 2.0
# Chart history: 6mo, 1y, 2y, 5y
range = "1y"

[sources.yahoo.breaker]
failure_threshold = 5
success_threshold = 1
cooldown = "30s"

[sources.snapshot]
# Quote page for the snapshot source; {symbol} is replaced
url = ""

[cache]
# Raw response cache: memory, sqlite, redis, none
backend = "memory"
ttl = "1h"
sqlite_path = ""
redis_url = ""

[store]
# SQLite database for bars, reports and watchlists; empty uses the config directory
path = ""

[watch]
# Standard 5-field cron expression
cron = "30 16 * * 1-5"
list = "default"

[notify]
# Alerts from watch runs: all, changes_only, errors_only
level = "changes_only"

[notify.webhook]
# JSON POST per alert
enabled = false
url = ""

[notify.telegram]
enabled = false
bot_token = ""
chat_id = ""

[logging]
# debug, info, warn, error
level = "info"
file = true
path = ""
max_size = 100
max_backups = 7
max_age = 30

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "2006-01-02"
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, FileName)
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
