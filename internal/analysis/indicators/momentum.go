package indicators

import (
	"fmt"
	"math"

	"crypto-analyzer/internal/models"
)

// RSI calculates the Relative Strength Index using simple rolling means of
// gains and losses.
//
// A window with zero average loss yields 100, including a flat window where
// gains are zero too.
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string {
	return fmt.Sprintf("RSI_%d", r.period)
}

func (r *RSI) Period() int {
	return r.period
}

func (r *RSI) Calculate(candles []models.Candle) ([]float64, error) {
	if r.period <= 0 {
		return nil, ErrInvalidPeriod
	}

	n := len(candles)
	closes := closePrices(candles)

	gains := nanSlice(n)
	losses := nanSlice(n)
	for i := 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		gains[i] = max(change, 0)
		losses[i] = max(-change, 0)
	}

	// Deltas start at index 1, so the first full window ends at index period.
	avgGain := rollingMean(gains, r.period, 1)
	avgLoss := rollingMean(losses, r.period, 1)

	result := nanSlice(n)
	for i := r.period; i < n; i++ {
		result[i] = rsiFromAverages(avgGain[i], avgLoss[i])
	}

	return result, nil
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if !isDefined(avgGain) || !isDefined(avgLoss) {
		return math.NaN()
	}
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}
