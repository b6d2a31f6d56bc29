package indicators

import (
	"fmt"

	"crypto-analyzer/internal/models"
)

// ATR calculates the Average True Range as a simple rolling mean of true range.
type ATR struct {
	period int
}

// NewATR creates a new ATR indicator.
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

func (a *ATR) Name() string {
	return fmt.Sprintf("ATR_%d", a.period)
}

func (a *ATR) Period() int {
	return a.period
}

func (a *ATR) Calculate(candles []models.Candle) ([]float64, error) {
	if a.period <= 0 {
		return nil, ErrInvalidPeriod
	}

	n := len(candles)
	tr := make([]float64, n)
	if n == 0 {
		return tr, nil
	}

	// First TR is just high - low
	tr[0] = candles[0].High - candles[0].Low
	for i := 1; i < n; i++ {
		tr[i] = trueRange(candles[i], candles[i-1])
	}

	return rollingMean(tr, a.period, 0), nil
}

// BollingerBands calculates Bollinger Bands around an EMA center line.
type BollingerBands struct {
	period    int
	stdDevMul float64
}

// NewBollingerBands creates a new Bollinger Bands indicator.
func NewBollingerBands(period int, stdDevMul float64) *BollingerBands {
	return &BollingerBands{
		period:    period,
		stdDevMul: stdDevMul,
	}
}

func (b *BollingerBands) Name() string {
	return fmt.Sprintf("BollingerBands_%d_%.1f", b.period, b.stdDevMul)
}

func (b *BollingerBands) Period() int {
	return b.period
}

// Calculate returns the "upper", "middle" and "lower" series. The bands are
// undefined until period closes are available; the middle line is not.
func (b *BollingerBands) Calculate(candles []models.Candle) (map[string][]float64, error) {
	if b.period <= 1 || b.stdDevMul <= 0 {
		return nil, ErrInvalidPeriod
	}

	n := len(candles)
	closes := closePrices(candles)

	middle := CalculateEMA(closes, b.period)
	upper := nanSlice(n)
	lower := nanSlice(n)

	for i := b.period - 1; i < n; i++ {
		sd := sampleStdDev(closes[i-b.period+1 : i+1])
		upper[i] = middle[i] + b.stdDevMul*sd
		lower[i] = middle[i] - b.stdDevMul*sd
	}

	return map[string][]float64{
		"middle": middle,
		"upper":  upper,
		"lower":  lower,
	}, nil
}
