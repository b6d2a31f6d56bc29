// Package patterns provides price-action pattern detection on the most recent
// candle pair.
package patterns

import (
	"crypto-analyzer/internal/models"
)

// Detector classifies the last two candles of a series.
//
// Labels are tried in a fixed order and the first match wins: Bullish
// Engulfing, Bearish Engulfing, Hammer, Doji. A zero-range candle has a zero
// body, which is within any fraction of a zero range, so it is labelled Doji;
// Hammer needs a strictly positive range and never matches it.
type Detector struct {
	dojiThreshold       float64 // Body <= this fraction of range
	hammerRangeMultiple float64 // Range > this multiple of body
	hammerClosePosition float64 // (close-low)/range above this
}

// NewDetector creates a detector with the default thresholds.
func NewDetector() *Detector {
	return &Detector{
		dojiThreshold:       0.1,
		hammerRangeMultiple: 3.0,
		hammerClosePosition: 0.6,
	}
}

// Detect returns the pattern on the last candle (and its predecessor for the
// two-candle patterns). An empty series yields PatternNone.
func (d *Detector) Detect(candles []models.Candle) models.PatternLabel {
	n := len(candles)
	if n == 0 {
		return models.PatternNone
	}

	last := candles[n-1]
	if n >= 2 {
		prev := candles[n-2]
		if d.isBullishEngulfing(last, prev) {
			return models.PatternBullishEngulfing
		}
		if d.isBearishEngulfing(last, prev) {
			return models.PatternBearishEngulfing
		}
	}

	if d.isHammer(last) {
		return models.PatternHammer
	}
	if d.isDoji(last) {
		return models.PatternDoji
	}
	return models.PatternNone
}

func (d *Detector) isBullishEngulfing(last, prev models.Candle) bool {
	return last.IsBullish() && prev.IsBearish() &&
		last.Close > prev.Open && last.Open < prev.Close &&
		last.Volume > prev.Volume
}

func (d *Detector) isBearishEngulfing(last, prev models.Candle) bool {
	return last.IsBearish() && prev.IsBullish() &&
		last.Open > prev.Close && last.Close < prev.Open &&
		last.Volume > prev.Volume
}

func (d *Detector) isHammer(c models.Candle) bool {
	rng := c.Range()
	if rng <= 0 {
		return false
	}
	return rng > d.hammerRangeMultiple*c.Body() &&
		(c.Close-c.Low)/rng > d.hammerClosePosition
}

func (d *Detector) isDoji(c models.Candle) bool {
	return c.Body() <= d.dojiThreshold*c.Range()
}
