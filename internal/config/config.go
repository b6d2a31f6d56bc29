// Package config provides configuration management for the analyzer.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"crypto-analyzer/internal/analysis/scoring"
	apperrors "crypto-analyzer/internal/errors"
	"crypto-analyzer/internal/logging"
	"crypto-analyzer/internal/market"
	"crypto-analyzer/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Market   MarketConfig      `mapstructure:"market"`
	Analysis AnalysisConfig    `mapstructure:"analysis"`
	MTF      MTFConfig         `mapstructure:"mtf"`
	Logging  logging.LogConfig `mapstructure:"logging"`
	Tracing  TracingConfig     `mapstructure:"tracing"`
	Store    StoreConfig       `mapstructure:"store"`
	Server   ServerConfig      `mapstructure:"server"`
	Dir      string            `mapstructure:"-"`
}

// MarketConfig holds market-data provider configuration.
type MarketConfig struct {
	Provider        string        `mapstructure:"provider"` // "rest", "binance"
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RateLimit       float64       `mapstructure:"rate_limit"` // requests per second, 0 = unlimited
	Burst           int           `mapstructure:"burst"`
	BreakerFailures int           `mapstructure:"breaker_failures"` // 0 = no circuit breaker
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
}

// AnalysisConfig holds single-timeframe analysis defaults.
type AnalysisConfig struct {
	DefaultInterval string `mapstructure:"default_interval"`
	DefaultLookback int    `mapstructure:"default_lookback"`
	Profile         string `mapstructure:"profile"` // "momentum", "classic"
	MinCandles      int    `mapstructure:"min_candles"`
	Workers         int    `mapstructure:"workers"`
}

// MTFConfig holds multi-timeframe aggregation configuration.
type MTFConfig struct {
	Candles         int      `mapstructure:"candles"`
	MinCandles      int      `mapstructure:"min_candles"`
	Workers         int      `mapstructure:"workers"`
	StrongThreshold float64  `mapstructure:"strong_threshold"`
	Timeframes      []string `mapstructure:"timeframes"`
}

// TracingConfig holds OpenTelemetry configuration.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Pretty  bool `mapstructure:"pretty"`
}

// StoreConfig holds watchlist database configuration.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig holds HTTP API configuration.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Lookback bounds.
const (
	MinLookback = 10
	MaxLookback = 500
)

// ErrTemplateCreated is returned by Load when no config file existed and a
// template was written in its place.
var ErrTemplateCreated = errors.New("config template created")

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/crypto-analyzer"
	}
	return filepath.Join(home, ".config", "crypto-analyzer")
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	dir := DefaultConfigDir()
	return &Config{
		Market: MarketConfig{
			Provider: market.ProviderREST,
			BaseURL:  market.DefaultBaseURL,
			Timeout:  market.DefaultTimeout,
			Burst:    1,

			BreakerCooldown: 30 * time.Second,
		},
		Analysis: AnalysisConfig{
			DefaultInterval: string(models.Interval1h),
			DefaultLookback: 100,
			Profile:         scoring.ProfileMomentum,
			MinCandles:      scoring.MinCandles,
			Workers:         4,
		},
		MTF: MTFConfig{
			Candles:         100,
			MinCandles:      50,
			Workers:         1,
			StrongThreshold: 0.7,
		},
		Logging: logging.DefaultLogConfig(),
		Store:   StoreConfig{Path: filepath.Join(dir, "watchlists.db")},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 2 * time.Minute,
		},
		Dir: dir,
	}
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A .env file in
// the directory is loaded into the environment first. When config.toml is
// missing a template is written and defaults are returned along with
// ErrTemplateCreated.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	if err := loadDotEnv(configDir); err != nil {
		return nil, apperrors.Wrap(err, "loading .env")
	}

	cfg := Default()
	cfg.Dir = configDir
	cfg.Store.Path = filepath.Join(configDir, "watchlists.db")

	created, err := loadConfigFile(configDir, "config", cfg)
	if err != nil {
		return nil, apperrors.Wrap(err, "loading config.toml")
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Wrap(err, "validating config")
	}

	if created {
		return cfg, ErrTemplateCreated
	}
	return cfg, nil
}

func loadDotEnv(configDir string) error {
	path := filepath.Join(configDir, ".env")
	if _, err := os.Stat(path); apperrors.Is(err, os.ErrNotExist) {
		return nil
	}
	// Existing environment variables win over the file.
	return godotenv.Load(path)
}

func loadConfigFile(configDir, name string, target *Config) (bool, error) {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, target)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if apperrors.As(err, &notFound) {
			if err := createTemplateConfig(configDir, name); err != nil {
				return false, err
			}
			// The template is read back so the first run matches later ones.
			if err := v.ReadInConfig(); err != nil {
				return true, err
			}
			return true, v.Unmarshal(target)
		}
		return false, err
	}

	return false, v.Unmarshal(target)
}

// setDefaults seeds viper with the current values so that keys missing from
// the file keep them.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("market.provider", cfg.Market.Provider)
	v.SetDefault("market.base_url", cfg.Market.BaseURL)
	v.SetDefault("market.timeout", cfg.Market.Timeout)
	v.SetDefault("market.rate_limit", cfg.Market.RateLimit)
	v.SetDefault("market.burst", cfg.Market.Burst)
	v.SetDefault("market.breaker_failures", cfg.Market.BreakerFailures)
	v.SetDefault("market.breaker_cooldown", cfg.Market.BreakerCooldown)

	v.SetDefault("analysis.default_interval", cfg.Analysis.DefaultInterval)
	v.SetDefault("analysis.default_lookback", cfg.Analysis.DefaultLookback)
	v.SetDefault("analysis.profile", cfg.Analysis.Profile)
	v.SetDefault("analysis.min_candles", cfg.Analysis.MinCandles)
	v.SetDefault("analysis.workers", cfg.Analysis.Workers)

	v.SetDefault("mtf.candles", cfg.MTF.Candles)
	v.SetDefault("mtf.min_candles", cfg.MTF.MinCandles)
	v.SetDefault("mtf.workers", cfg.MTF.Workers)
	v.SetDefault("mtf.strong_threshold", cfg.MTF.StrongThreshold)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.console", cfg.Logging.Console)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.file_path", cfg.Logging.FilePath)
	v.SetDefault("logging.max_size", cfg.Logging.MaxSize)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
	v.SetDefault("logging.max_age", cfg.Logging.MaxAge)

	v.SetDefault("store.path", cfg.Store.Path)

	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ANALYZER_PROVIDER"); v != "" {
		cfg.Market.Provider = v
	}
	if v := os.Getenv("ANALYZER_BASE_URL"); v != "" {
		cfg.Market.BaseURL = v
	}
	if v := os.Getenv("ANALYZER_PROFILE"); v != "" {
		cfg.Analysis.Profile = v
	}
	if v := os.Getenv("ANALYZER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Market.Provider) {
	case market.ProviderREST, market.ProviderBinance:
	default:
		return invalid("market.provider", c.Market.Provider, "must be 'rest' or 'binance'")
	}
	if c.Market.Timeout <= 0 {
		return invalid("market.timeout", c.Market.Timeout, "must be positive")
	}
	if c.Market.RateLimit < 0 {
		return invalid("market.rate_limit", c.Market.RateLimit, "must be non-negative")
	}
	if c.Market.BreakerFailures < 0 {
		return invalid("market.breaker_failures", c.Market.BreakerFailures, "must be non-negative")
	}
	if c.Market.BreakerFailures > 0 && c.Market.BreakerCooldown <= 0 {
		return invalid("market.breaker_cooldown", c.Market.BreakerCooldown, "must be positive when the breaker is enabled")
	}

	if _, err := models.ParseInterval(c.Analysis.DefaultInterval); err != nil {
		return invalid("analysis.default_interval", c.Analysis.DefaultInterval, "unsupported interval")
	}
	if c.Analysis.DefaultLookback < MinLookback || c.Analysis.DefaultLookback > MaxLookback {
		return invalid("analysis.default_lookback", c.Analysis.DefaultLookback,
			fmt.Sprintf("must be between %d and %d", MinLookback, MaxLookback))
	}
	if _, err := scoring.LookupProfile(c.Analysis.Profile); err != nil {
		return invalid("analysis.profile", c.Analysis.Profile,
			fmt.Sprintf("must be one of %s", strings.Join(scoring.ProfileNames(), ", ")))
	}
	if c.Analysis.MinCandles < scoring.MinCandles {
		return invalid("analysis.min_candles", c.Analysis.MinCandles,
			fmt.Sprintf("must be at least %d", scoring.MinCandles))
	}

	if c.MTF.Candles < MinLookback || c.MTF.Candles > MaxLookback {
		return invalid("mtf.candles", c.MTF.Candles,
			fmt.Sprintf("must be between %d and %d", MinLookback, MaxLookback))
	}
	if c.MTF.MinCandles < scoring.MinCandles || c.MTF.MinCandles > c.MTF.Candles {
		return invalid("mtf.min_candles", c.MTF.MinCandles, "must be between 20 and mtf.candles")
	}
	if c.MTF.Workers < 1 {
		return invalid("mtf.workers", c.MTF.Workers, "must be at least 1")
	}
	if c.MTF.StrongThreshold <= 0 || c.MTF.StrongThreshold >= 1 {
		return invalid("mtf.strong_threshold", c.MTF.StrongThreshold, "must be in (0, 1)")
	}
	for _, tf := range c.MTF.Timeframes {
		if _, err := models.ParseInterval(tf); err != nil {
			return invalid("mtf.timeframes", tf, "unsupported interval")
		}
	}

	return nil
}

// Timeframes returns the configured MTF intervals, or nil for all of them.
func (c *Config) Timeframes() []models.Interval {
	if len(c.MTF.Timeframes) == 0 {
		return nil
	}
	out := make([]models.Interval, 0, len(c.MTF.Timeframes))
	for _, tf := range c.MTF.Timeframes {
		out = append(out, models.Interval(strings.TrimSpace(tf)))
	}
	return out
}

// ConfigPath returns the path of config.toml.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.Dir, "config.toml")
}

func invalid(field string, value interface{}, message string) error {
	return apperrors.NewValidationError(field, value, message, apperrors.ErrConfigInvalid)
}
