package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "crypto-analyzer/internal/errors"
	"crypto-analyzer/internal/models"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestLoadCreatesTemplate(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if !errors.Is(err, ErrTemplateCreated) {
		t.Fatalf("expected ErrTemplateCreated, got %v", err)
	}
	if cfg.Market.Provider != "rest" || cfg.Analysis.DefaultLookback != 100 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.toml")); err != nil {
		t.Errorf("template not written: %v", err)
	}
	first := cfg.Market

	// The written template must load cleanly.
	cfg, err = Load(dir)
	if err != nil {
		t.Fatalf("loading template: %v", err)
	}
	if cfg.Market != first {
		t.Errorf("first run market config %+v differs from second run %+v", first, cfg.Market)
	}
	if cfg.Market.RateLimit != 10 || cfg.Market.Burst != 20 {
		t.Errorf("rate limit = %v/%d, want 10/20", cfg.Market.RateLimit, cfg.Market.Burst)
	}
	if cfg.Market.BreakerFailures != 5 || cfg.Market.BreakerCooldown != 30*time.Second {
		t.Errorf("breaker = %d/%v, want 5/30s", cfg.Market.BreakerFailures, cfg.Market.BreakerCooldown)
	}
	if cfg.Server.WriteTimeout != 2*time.Minute {
		t.Errorf("WriteTimeout = %v", cfg.Server.WriteTimeout)
	}
	if cfg.Timeframes() != nil {
		t.Errorf("expected all timeframes, got %v", cfg.Timeframes())
	}
}

func TestLoadReadsFileAndKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.toml", `
[market]
provider = "binance"
timeout = "3s"

[mtf]
workers = 4
timeframes = ["1h", "4h", "1d"]
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Market.Provider != "binance" || cfg.Market.Timeout != 3*time.Second {
		t.Errorf("market = %+v", cfg.Market)
	}
	if cfg.Analysis.Profile != "momentum" || cfg.MTF.Candles != 100 {
		t.Errorf("defaults lost: profile=%q candles=%d", cfg.Analysis.Profile, cfg.MTF.Candles)
	}
	want := []models.Interval{models.Interval1h, models.Interval4h, models.Interval1d}
	got := cfg.Timeframes()
	if len(got) != len(want) {
		t.Fatalf("Timeframes() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Timeframes()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.toml", "[analysis]\nprofile = \"momentum\"\n")
	writeFile(t, dir, ".env", "ANALYZER_PROFILE=classic\nANALYZER_LOG_LEVEL=debug\n")
	t.Setenv("ANALYZER_PROVIDER", "binance")
	t.Setenv("ANALYZER_PROFILE", "")
	t.Setenv("ANALYZER_LOG_LEVEL", "")
	os.Unsetenv("ANALYZER_PROFILE")
	os.Unsetenv("ANALYZER_LOG_LEVEL")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Market.Provider != "binance" {
		t.Errorf("Provider = %q, want binance", cfg.Market.Provider)
	}
	if cfg.Analysis.Profile != "classic" {
		t.Errorf("Profile = %q, want classic from .env", cfg.Analysis.Profile)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want debug from .env", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Market.Provider = "ftx" }},
		{"zero timeout", func(c *Config) { c.Market.Timeout = 0 }},
		{"negative breaker failures", func(c *Config) { c.Market.BreakerFailures = -1 }},
		{"breaker without cooldown", func(c *Config) { c.Market.BreakerFailures = 3; c.Market.BreakerCooldown = 0 }},
		{"unknown profile", func(c *Config) { c.Analysis.Profile = "yolo" }},
		{"bad interval", func(c *Config) { c.Analysis.DefaultInterval = "2m" }},
		{"lookback too small", func(c *Config) { c.Analysis.DefaultLookback = 5 }},
		{"lookback too large", func(c *Config) { c.Analysis.DefaultLookback = 501 }},
		{"min candles below floor", func(c *Config) { c.Analysis.MinCandles = 10 }},
		{"threshold of one", func(c *Config) { c.MTF.StrongThreshold = 1 }},
		{"zero workers", func(c *Config) { c.MTF.Workers = 0 }},
		{"bad mtf timeframe", func(c *Config) { c.MTF.Timeframes = []string{"1h", "9h"} }},
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, apperrors.ErrConfigInvalid) {
				t.Errorf("expected ErrConfigInvalid, got %v", err)
			}
		})
	}
}
