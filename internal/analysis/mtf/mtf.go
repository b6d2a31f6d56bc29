// Package mtf provides multi-timeframe signal aggregation.
package mtf

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"crypto-analyzer/internal/analysis"
	apperrors "crypto-analyzer/internal/errors"
	"crypto-analyzer/internal/logging"
	"crypto-analyzer/internal/models"
	"crypto-analyzer/internal/trace"
)

const (
	// DefaultCandles is the series length fetched per timeframe.
	DefaultCandles = 100

	// MinCandles is the shortest series classified; shorter ones are Hold.
	MinCandles = 50

	// StrongThreshold is the fraction above which a side dominates.
	StrongThreshold = 0.7
)

// Config configures an Aggregator.
type Config struct {
	Candles    int
	MinCandles int
	// Workers bounds concurrent timeframe fetches. 1 runs them in order.
	Workers         int
	StrongThreshold float64
}

// Aggregator classifies a symbol across timeframes and summarises the votes.
type Aggregator struct {
	source     analysis.CandleSource
	pipeline   *analysis.Pipeline
	candles    int
	minCandles int
	workers    int
	threshold  float64
	logger     zerolog.Logger
}

// NewAggregator creates an aggregator.
func NewAggregator(source analysis.CandleSource, pipeline *analysis.Pipeline, cfg Config, logger zerolog.Logger) *Aggregator {
	if cfg.Candles <= 0 {
		cfg.Candles = DefaultCandles
	}
	if cfg.MinCandles <= 0 {
		cfg.MinCandles = MinCandles
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.StrongThreshold <= 0 || cfg.StrongThreshold >= 1 {
		cfg.StrongThreshold = StrongThreshold
	}
	return &Aggregator{
		source:     source,
		pipeline:   pipeline,
		candles:    cfg.Candles,
		minCandles: cfg.MinCandles,
		workers:    cfg.Workers,
		threshold:  cfg.StrongThreshold,
		logger:     logger.With().Str("component", "mtf").Logger(),
	}
}

// Aggregate classifies symbol on each timeframe, all supported intervals when
// timeframes is empty. A timeframe that cannot be classified counts as Hold
// and carries its error label; it never fails the aggregate. Entries keep
// the order of timeframes, with duplicates removed.
func (a *Aggregator) Aggregate(ctx context.Context, symbol string, timeframes []models.Interval) (models.TimeframeSummary, error) {
	tfs, err := normalizeTimeframes(timeframes)
	if err != nil {
		return models.TimeframeSummary{}, err
	}

	ctx, span := trace.StartSpan(ctx, "mtf.Aggregate")
	defer span.End()
	span.SetAttributes(trace.String("symbol", symbol), trace.Int("timeframes", len(tfs)))

	results := make([]models.TimeframeSignal, len(tfs))

	var g errgroup.Group
	g.SetLimit(a.workers)
	for i, tf := range tfs {
		i, tf := i, tf
		g.Go(func() error {
			results[i] = a.classify(ctx, symbol, tf)
			return nil
		})
	}
	// classify absorbs every failure
	_ = g.Wait()

	summary := SummarizeWithThreshold(symbol, results, a.threshold)
	a.logger.Info().
		Str("symbol", symbol).
		Int("buy", summary.BuyCount).
		Int("sell", summary.SellCount).
		Int("hold", summary.HoldCount).
		Str("verdict", string(summary.Verdict)).
		Msg("Multi-timeframe aggregation complete")
	return summary, nil
}

func (a *Aggregator) classify(ctx context.Context, symbol string, tf models.Interval) models.TimeframeSignal {
	out := models.TimeframeSignal{Interval: tf, Signal: models.SignalHold}
	logger := logging.WithInterval(logging.WithSymbol(a.logger, symbol), string(tf))

	candles, err := a.source.Fetch(ctx, symbol, tf, a.candles)
	if err == nil && len(candles) < a.minCandles {
		err = apperrors.NewDataError(apperrors.ErrInsufficientData, symbol, string(tf),
			fmt.Sprintf("got %d candles, need at least %d", len(candles), a.minCandles), nil)
	}

	var snap models.IndicatorSnapshot
	if err == nil {
		out.Signal, snap, err = a.pipeline.Direction(ctx, candles)
	}
	if err == nil && (math.IsNaN(snap.EMA20) || math.IsNaN(snap.EMA50) || math.IsNaN(snap.RSI14) || math.IsNaN(snap.MACDHist)) {
		err = apperrors.NewDataError(apperrors.ErrComputationUndefined, symbol, string(tf), "indicators undefined on the last candle", nil)
	}

	if err != nil {
		logger.Warn().Err(err).Msg("Timeframe classified as HOLD after failure")
		out.Signal = models.SignalHold
		out.Error = apperrors.Kind(err)
	}
	return out
}

// Summarize counts the signals and derives fractions and the verdict.
func Summarize(symbol string, signals []models.TimeframeSignal) models.TimeframeSummary {
	return SummarizeWithThreshold(symbol, signals, StrongThreshold)
}

// SummarizeWithThreshold is Summarize with a custom dominance threshold.
func SummarizeWithThreshold(symbol string, signals []models.TimeframeSignal, threshold float64) models.TimeframeSummary {
	s := models.TimeframeSummary{Symbol: symbol, Timeframes: signals}
	for _, tf := range signals {
		switch tf.Signal {
		case models.SignalBuy:
			s.BuyCount++
		case models.SignalSell:
			s.SellCount++
		default:
			s.HoldCount++
		}
	}

	s.Verdict = models.VerdictMixed
	total := len(signals)
	if total == 0 {
		return s
	}
	s.BuyFraction = float64(s.BuyCount) / float64(total)
	s.SellFraction = float64(s.SellCount) / float64(total)
	s.HoldFraction = float64(s.HoldCount) / float64(total)

	switch {
	case s.BuyFraction > threshold:
		s.Verdict = models.VerdictStrongBuy
	case s.SellFraction > threshold:
		s.Verdict = models.VerdictStrongSell
	}
	return s
}

func normalizeTimeframes(timeframes []models.Interval) ([]models.Interval, error) {
	if len(timeframes) == 0 {
		return models.AllIntervals(), nil
	}
	seen := make(map[models.Interval]bool, len(timeframes))
	out := make([]models.Interval, 0, len(timeframes))
	for _, tf := range timeframes {
		if !tf.Valid() {
			return nil, apperrors.NewValidationError("timeframes", tf, "unsupported interval", apperrors.ErrInvalidInterval)
		}
		if seen[tf] {
			continue
		}
		seen[tf] = true
		out = append(out, tf)
	}
	return out, nil
}
