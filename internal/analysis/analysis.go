// Package analysis ties indicator computation, pattern detection and signal
// derivation into a single pipeline over a candle series.
package analysis

import (
	"context"

	"crypto-analyzer/internal/analysis/indicators"
	"crypto-analyzer/internal/analysis/patterns"
	"crypto-analyzer/internal/analysis/scoring"
	"crypto-analyzer/internal/models"
)

// CandleSource defines the interface for retrieving a validated candle series.
type CandleSource interface {
	Fetch(ctx context.Context, symbol string, interval models.Interval, limit int) ([]models.Candle, error)
}

// PatternDetector defines the interface for price-action pattern detection.
type PatternDetector interface {
	Detect(candles []models.Candle) models.PatternLabel
}

// Pipeline runs the pure analysis stages on candles already in hand.
// It keeps no per-request state and may be shared.
type Pipeline struct {
	engine   *indicators.Engine
	detector PatternDetector
	signals  *scoring.SignalEngine
}

// NewPipeline creates a pipeline with the default indicator set and
// detector under the given profile.
func NewPipeline(profile scoring.Profile, workers int) *Pipeline {
	return &Pipeline{
		engine:   indicators.NewDefaultEngine(workers),
		detector: patterns.NewDetector(),
		signals:  scoring.NewSignalEngine(profile),
	}
}

// Profile returns the signal profile in use.
func (p *Pipeline) Profile() scoring.Profile {
	return p.signals.Profile()
}

// Analyze produces the full result for the last candle.
func (p *Pipeline) Analyze(ctx context.Context, symbol string, interval models.Interval, candles []models.Candle) (models.AnalysisResult, error) {
	snaps, err := p.engine.Compute(ctx, candles)
	if err != nil {
		return models.AnalysisResult{}, err
	}
	pattern := p.detector.Detect(candles)
	return p.signals.Decide(symbol, interval, candles, snaps, pattern)
}

// Direction computes indicators and returns only the signal of the last
// candle, together with its snapshot.
func (p *Pipeline) Direction(ctx context.Context, candles []models.Candle) (models.Signal, models.IndicatorSnapshot, error) {
	snaps, err := p.engine.Compute(ctx, candles)
	if err != nil {
		return models.SignalHold, models.IndicatorSnapshot{}, err
	}
	last := snaps[len(snaps)-1]
	return p.signals.Direction(last), last, nil
}
