package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"crypto-analyzer/internal/analysis"
	"crypto-analyzer/internal/analysis/mtf"
	"crypto-analyzer/internal/analysis/scoring"
	"crypto-analyzer/internal/analyzer"
	"crypto-analyzer/internal/config"
	apperrors "crypto-analyzer/internal/errors"
	"crypto-analyzer/internal/logging"
	"crypto-analyzer/internal/market"
	"crypto-analyzer/internal/models"
	"crypto-analyzer/internal/store"
	"crypto-analyzer/internal/trace"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2024-06-01"
)

// App holds the application dependencies. They are built from the
// configuration before any command runs.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Service *analyzer.Service

	store store.WatchlistStore
}

// Watchlists opens the watchlist database on first use.
func (a *App) Watchlists() (store.WatchlistStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	s, err := store.NewSQLiteStore(a.Config.Store.Path)
	if err != nil {
		return nil, apperrors.Wrap(err, "opening watchlist store")
	}
	a.store = s
	a.Logger.Debug().Str("path", a.Config.Store.Path).Msg("SQLite store initialized")
	return s, nil
}

func (a *App) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close store")
		}
		a.store = nil
	}
	if !trace.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := trace.Shutdown(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to flush spans")
	}
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(logger zerolog.Logger) *cobra.Command {
	app := &App{Logger: logger}

	rootCmd := &cobra.Command{
		Use:   "analyzer",
		Short: "Crypto technical analysis and trading signals",
		Long: `Crypto Analyzer fetches candles from a Binance-compatible exchange API,
computes trend, momentum and volatility indicators, detects candlestick
patterns and derives a BUY/SELL/HOLD signal with ATR-based risk levels.

Use 'analyzer mtf <symbol>' to see how the signal agrees across 13 timeframes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return app.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.close()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/crypto-analyzer)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("yaml", false, "output in YAML format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("profile", "", "signal profile: momentum or classic (overrides config)")
	rootCmd.MarkFlagsMutuallyExclusive("json", "yaml")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	addAnalysisCommands(rootCmd, app)
	rootCmd.AddCommand(newWatchlistCmd(app))
	rootCmd.AddCommand(newServeCmd(app))

	return rootCmd
}

func (a *App) init(cmd *cobra.Command) error {
	dir, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(dir)
	switch {
	case apperrors.Is(err, config.ErrTemplateCreated):
		fmt.Fprintf(cmd.ErrOrStderr(), "Created configuration template at %s\n", cfg.ConfigPath())
	case err != nil:
		return err
	}

	if profile, _ := cmd.Flags().GetString("profile"); profile != "" {
		cfg.Analysis.Profile = profile
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Logging.Level = "debug"
	}
	a.Config = cfg
	a.Logger = logging.NewLoggerWithConfig(cfg.Logging)

	if err := trace.Init(trace.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "crypto-analyzer",
		Version:     Version,
		Pretty:      cfg.Tracing.Pretty,
		Writer:      os.Stderr,
	}); err != nil {
		return apperrors.Wrap(err, "initializing tracing")
	}

	svc, err := newService(cfg, a.Logger)
	if err != nil {
		return err
	}
	a.Service = svc
	a.Logger.Debug().
		Str("provider", cfg.Market.Provider).
		Str("profile", svc.Profile()).
		Msg("Analyzer initialized")
	return nil
}

// newService wires provider, fetcher, pipeline and aggregator from cfg.
func newService(cfg *config.Config, logger zerolog.Logger) (*analyzer.Service, error) {
	provider, err := market.NewProvider(market.ProviderConfig{
		Name:    cfg.Market.Provider,
		BaseURL: cfg.Market.BaseURL,
		Timeout: cfg.Market.Timeout,
	})
	if err != nil {
		return nil, err
	}
	fetcher := market.NewFetcher(provider, market.FetcherConfig{
		Timeout:   cfg.Market.Timeout,
		RateLimit: cfg.Market.RateLimit,
		RateBurst: cfg.Market.Burst,
		Breaker: market.BreakerConfig{
			Failures: cfg.Market.BreakerFailures,
			Cooldown: cfg.Market.BreakerCooldown,
		},
	}, logger)

	profile, err := scoring.LookupProfile(cfg.Analysis.Profile)
	if err != nil {
		return nil, err
	}
	pipeline := analysis.NewPipeline(profile, cfg.Analysis.Workers)

	aggregator := mtf.NewAggregator(fetcher, pipeline, mtf.Config{
		Candles:         cfg.MTF.Candles,
		MinCandles:      cfg.MTF.MinCandles,
		Workers:         cfg.MTF.Workers,
		StrongThreshold: cfg.MTF.StrongThreshold,
	}, logger)

	return analyzer.NewService(fetcher, pipeline, aggregator, analyzer.Options{
		Interval:   models.Interval(cfg.Analysis.DefaultInterval),
		Lookback:   cfg.Analysis.DefaultLookback,
		MinCandles: cfg.Analysis.MinCandles,
		Timeframes: cfg.Timeframes(),
	}, logger), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.Structured() {
				return output.Document(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("Crypto Analyzer v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate the analyzer configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.Structured() {
				return output.Document(app.Config)
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
			if output.Structured() {
				return output.Document(map[string]string{"path": app.Config.ConfigPath()})
			}
			output.Println(app.Config.ConfigPath())
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
			if output.Structured() {
				return output.Document(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Market Data")
	output.Printf("  Provider:        %s\n", cfg.Market.Provider)
	output.Printf("  Base URL:        %s\n", cfg.Market.BaseURL)
	output.Printf("  Timeout:         %s\n", cfg.Market.Timeout)
	output.Printf("  Rate Limit:      %.1f req/s (burst %d)\n", cfg.Market.RateLimit, cfg.Market.Burst)
	output.Println()

	output.Bold("Analysis")
	output.Printf("  Interval:        %s\n", cfg.Analysis.DefaultInterval)
	output.Printf("  Lookback:        %d\n", cfg.Analysis.DefaultLookback)
	output.Printf("  Profile:         %s\n", cfg.Analysis.Profile)
	output.Printf("  Min Candles:     %d\n", cfg.Analysis.MinCandles)
	output.Println()

	output.Bold("Multi-Timeframe")
	tfs := "all"
	if len(cfg.MTF.Timeframes) > 0 {
		tfs = fmt.Sprint(cfg.MTF.Timeframes)
	}
	output.Printf("  Timeframes:      %s\n", tfs)
	output.Printf("  Candles:         %d (min %d)\n", cfg.MTF.Candles, cfg.MTF.MinCandles)
	output.Printf("  Workers:         %d\n", cfg.MTF.Workers)
	output.Printf("  Threshold:       %s\n", FormatFraction(cfg.MTF.StrongThreshold))
	output.Println()

	output.Bold("Storage & Server")
	output.Printf("  Watchlists:      %s\n", cfg.Store.Path)
	output.Printf("  API Address:     %s\n", cfg.Server.Addr)
	output.Printf("  Log Level:       %s\n", cfg.Logging.Level)
	output.Printf("  Tracing:         %v\n", cfg.Tracing.Enabled)
}
