// Package analyzer exposes the analysis operations used by the CLI and the
// HTTP API: single-timeframe analysis, multi-timeframe aggregation and batch
// scans.
package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"crypto-analyzer/internal/analysis"
	"crypto-analyzer/internal/analysis/mtf"
	"crypto-analyzer/internal/analysis/scoring"
	apperrors "crypto-analyzer/internal/errors"
	"crypto-analyzer/internal/logging"
	"crypto-analyzer/internal/market"
	"crypto-analyzer/internal/models"
	"crypto-analyzer/internal/trace"
)

// Lookback bounds for a single analysis.
const (
	MinLookback = 10
	MaxLookback = 500
)

// Options are the immutable defaults a Service applies to every request.
type Options struct {
	Interval   models.Interval
	Lookback   int
	MinCandles int
	Timeframes []models.Interval // nil means every supported interval
	// BatchWorkers bounds how many symbols a batch analyzes at once.
	BatchWorkers int
}

// DefaultOptions returns the stock request defaults.
func DefaultOptions() Options {
	return Options{
		Interval:     models.Interval1h,
		Lookback:     100,
		MinCandles:   scoring.MinCandles,
		BatchWorkers: 4,
	}
}

// Request is a single-symbol analysis request. Zero fields take the
// service defaults.
type Request struct {
	Symbol   string
	Interval models.Interval
	Lookback int
}

// BatchResult is one symbol's outcome within a batch. Exactly one of Result
// and Error is set.
type BatchResult struct {
	Symbol    string                 `json:"symbol" yaml:"symbol"`
	Result    *models.AnalysisResult `json:"result,omitempty" yaml:"result,omitempty"`
	Error     string                 `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorKind string                 `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
}

// Service runs analyses. It holds no per-request state, so analyses of
// different symbols are independent.
type Service struct {
	source     analysis.CandleSource
	pipeline   *analysis.Pipeline
	aggregator *mtf.Aggregator
	opts       Options
	logger     zerolog.Logger
}

// NewService creates a service.
func NewService(source analysis.CandleSource, pipeline *analysis.Pipeline, aggregator *mtf.Aggregator, opts Options, logger zerolog.Logger) *Service {
	def := DefaultOptions()
	if !opts.Interval.Valid() {
		opts.Interval = def.Interval
	}
	if opts.Lookback <= 0 {
		opts.Lookback = def.Lookback
	}
	if opts.MinCandles < scoring.MinCandles {
		opts.MinCandles = scoring.MinCandles
	}
	if opts.BatchWorkers <= 0 {
		opts.BatchWorkers = def.BatchWorkers
	}
	return &Service{
		source:     source,
		pipeline:   pipeline,
		aggregator: aggregator,
		opts:       opts,
		logger:     logger.With().Str("component", "analyzer").Logger(),
	}
}

// Options returns the service defaults.
func (s *Service) Options() Options {
	return s.opts
}

// Profile returns the name of the signal profile in use.
func (s *Service) Profile() string {
	return s.pipeline.Profile().Name
}

type breakerReporter interface {
	BreakerStats() market.BreakerStats
}

// Upstream reports the circuit breaker state of the candle source.
func (s *Service) Upstream() market.BreakerStats {
	if r, ok := s.source.(breakerReporter); ok {
		return r.BreakerStats()
	}
	return market.BreakerStats{State: market.BreakerDisabled}
}

func (s *Service) resolve(req Request) (Request, error) {
	sym, err := market.NormalizeSymbol(req.Symbol)
	if err != nil {
		return req, err
	}
	req.Symbol = sym

	if req.Interval == "" {
		req.Interval = s.opts.Interval
	}
	if !req.Interval.Valid() {
		return req, apperrors.NewValidationError("interval", req.Interval, "unsupported interval", apperrors.ErrInvalidInterval)
	}

	if req.Lookback == 0 {
		req.Lookback = s.opts.Lookback
	}
	if req.Lookback < MinLookback || req.Lookback > MaxLookback {
		return req, apperrors.NewValidationError("lookback", req.Lookback,
			fmt.Sprintf("must be between %d and %d", MinLookback, MaxLookback), nil)
	}
	return req, nil
}

// RunAnalysis fetches candles and produces the signal for the most recent
// one. Errors carry one of the data sentinels or a validation error.
func (s *Service) RunAnalysis(ctx context.Context, req Request) (models.AnalysisResult, error) {
	req, err := s.resolve(req)
	if err != nil {
		return models.AnalysisResult{}, err
	}

	ctx, span := trace.StartSpan(ctx, "analyzer.RunAnalysis")
	defer span.End()
	span.SetAttributes(
		trace.String("symbol", req.Symbol),
		trace.String("interval", string(req.Interval)),
		trace.Int("lookback", req.Lookback),
	)

	logger := logging.WithOperation(logging.WithSymbol(logging.FromContextOr(ctx, s.logger), req.Symbol), "analyze")
	start := time.Now()

	candles, err := s.source.Fetch(ctx, req.Symbol, req.Interval, req.Lookback)
	if err != nil {
		span.RecordError(err)
		return models.AnalysisResult{}, err
	}
	if len(candles) < s.opts.MinCandles {
		return models.AnalysisResult{}, apperrors.NewDataError(apperrors.ErrInsufficientData, req.Symbol, string(req.Interval),
			fmt.Sprintf("got %d candles, need at least %d", len(candles), s.opts.MinCandles), nil)
	}

	result, err := s.pipeline.Analyze(ctx, req.Symbol, req.Interval, candles)
	if err != nil {
		span.RecordError(err)
		return models.AnalysisResult{}, err
	}

	span.SetAttributes(trace.String("signal", string(result.Signal)), trace.Int("score", result.Score))
	logging.LogSignal(logger, result.Symbol, string(result.Signal), string(result.Pattern), result.Score)
	logger.Debug().Dur("duration", time.Since(start)).Int("candles", len(candles)).Msg("Analysis complete")
	return result, nil
}

// RunMultiTimeframeAnalysis classifies symbol across the configured
// timeframes. Per-timeframe failures are absorbed as HOLD; only an invalid
// request fails the call.
func (s *Service) RunMultiTimeframeAnalysis(ctx context.Context, symbol string) (models.TimeframeSummary, error) {
	sym, err := market.NormalizeSymbol(symbol)
	if err != nil {
		return models.TimeframeSummary{}, err
	}
	return s.aggregator.Aggregate(ctx, sym, s.opts.Timeframes)
}

// RunBatch analyzes each symbol independently. One symbol's failure is
// reported in its own entry and never affects the others. Results keep the
// input order.
func (s *Service) RunBatch(ctx context.Context, symbols []string, interval models.Interval, lookback int) []BatchResult {
	results := make([]BatchResult, len(symbols))

	var g errgroup.Group
	g.SetLimit(s.opts.BatchWorkers)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			results[i] = BatchResult{Symbol: symbol}
			res, err := s.RunAnalysis(ctx, Request{Symbol: symbol, Interval: interval, Lookback: lookback})
			if err != nil {
				results[i].Error = err.Error()
				results[i].ErrorKind = apperrors.Kind(err)
				return nil
			}
			results[i].Symbol = res.Symbol
			results[i].Result = &res
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	s.logger.Info().Int("symbols", len(symbols)).Int("failed", failed).Msg("Batch analysis complete")
	return results
}
