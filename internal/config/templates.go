package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Crypto Analyzer Configuration

[market]
# Market-data provider: "rest" (plain HTTP) or "binance" (go-binance SDK)
provider = "rest"
# Base URL of the klines API
base_url = "https://api.binance.com"
# Timeout for a single candle request
timeout = "10s"
# Outbound requests per second (0 disables limiting)
rate_limit = 10.0
burst = 20
# Consecutive upstream failures that pause fetching (0 disables)
breaker_failures = 5
# How long fetching stays paused before a trial request
breaker_cooldown = "30s"

[analysis]
# Interval used when none is given: 1m 3m 5m 15m 30m 1h 2h 4h 6h 12h 1d 3d 1w
default_interval = "1h"
# Candles fetched for a single analysis (10-500)
default_lookback = 100
# Signal profile: "momentum" or "classic"
profile = "momentum"
# Minimum candles required to analyze
min_candles = 20
# Indicator worker goroutines
workers = 4

[mtf]
# Candles fetched per timeframe
candles = 100
# Timeframes with fewer candles count as HOLD
min_candles = 50
# Concurrent timeframe fetches (1 = sequential)
workers = 1
# Fraction of timeframes above which the verdict is "Strong Buy" / "Strong Sell"
strong_threshold = 0.7
# Timeframes to aggregate; empty means all 13
timeframes = []

[logging]
# Log level: debug, info, warn, error
level = "info"
console = true
file = false
max_size = 50
max_backups = 5
max_age = 14

[tracing]
# Export OpenTelemetry spans to stderr
enabled = false
pretty = false

[server]
# HTTP API listen address
addr = ":8080"
read_timeout = "15s"
write_timeout = "2m"
`

const envTemplate = `# Environment overrides for the crypto analyzer.
# Variables already set in the shell take precedence.
# ANALYZER_PROVIDER=binance
# ANALYZER_BASE_URL=https://api.binance.com
# ANALYZER_PROFILE=momentum
# ANALYZER_LOG_LEVEL=info
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	envPath := filepath.Join(configDir, ".env.example")
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		if err := os.WriteFile(envPath, []byte(envTemplate), 0600); err != nil {
			return fmt.Errorf("writing env template: %w", err)
		}
	}

	return nil
}
