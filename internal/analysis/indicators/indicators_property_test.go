package indicators

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"crypto-analyzer/internal/models"
)

// Property: for any valid candle data the indicators respect their
// mathematical invariants:
// - EMA: same length as input, finite everywhere once seeded
// - RSI: [0, 100] wherever defined
// - MACD: histogram == macd - signal at every index
// - Bollinger: upper >= middle >= lower wherever the bands are defined
// - ATR: non-negative wherever defined

// candleGen generates valid candle data with realistic OHLCV values
func candleGen() gopter.Gen {
	return gen.Struct(reflect.TypeOf(models.Candle{}), map[string]gopter.Gen{
		"OpenTime": gen.TimeRange(time.Now().Add(-365*24*time.Hour), time.Hour),
		"Open":     gen.Float64Range(100.0, 1000.0),
		"High":     gen.Float64Range(100.0, 1000.0),
		"Low":      gen.Float64Range(100.0, 1000.0),
		"Close":    gen.Float64Range(100.0, 1000.0),
		"Volume":   gen.Float64Range(1.0, 100000.0),
	}).Map(normalizeCandle)
}

// normalizeCandle enforces High >= max(Open, Close) >= min(Open, Close) >= Low.
func normalizeCandle(c models.Candle) models.Candle {
	if c.Open <= 0 {
		c.Open = 100.0
	}
	if c.Close <= 0 {
		c.Close = 100.0
	}
	c.High = math.Max(c.High, math.Max(c.Open, c.Close))
	c.Low = math.Min(c.Low, math.Min(c.Open, c.Close))
	if c.Low <= 0 {
		c.Low = math.Min(c.Open, c.Close)
	}
	return c
}

// candleSliceGen generates a chronological slice of valid candles
func candleSliceGen(minLen, maxLen int) gopter.Gen {
	return gen.SliceOfN(maxLen, candleGen()).Map(func(candles []models.Candle) []models.Candle {
		for len(candles) < minLen {
			if len(candles) == 0 {
				candles = append(candles, models.Candle{Open: 100, High: 101, Low: 99, Close: 100, Volume: 1})
				continue
			}
			candles = append(candles, candles[len(candles)-1])
		}
		start := time.Now().Add(-time.Duration(len(candles)) * time.Hour)
		for i := range candles {
			candles[i].OpenTime = start.Add(time.Duration(i) * time.Hour)
			candles[i] = normalizeCandle(candles[i])
		}
		return candles
	})
}

func propertyParams() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	// Shrinking can produce candles that bypass the generator constraints
	parameters.MaxShrinkCount = 0
	return parameters
}

func TestProperty_EMALengthAndFinite(t *testing.T) {
	properties := gopter.NewProperties(propertyParams())

	properties.Property("EMA has input length and finite values", prop.ForAll(
		func(candles []models.Candle, period int) bool {
			values, err := NewEMA(period).Calculate(candles)
			if err != nil {
				return false
			}
			if len(values) != len(candles) {
				return false
			}
			for _, v := range values {
				if !isDefined(v) {
					return false
				}
			}
			return true
		},
		candleSliceGen(20, 120),
		gen.IntRange(1, 200),
	))

	properties.TestingRun(t)
}

func TestProperty_RSIWithinBounds(t *testing.T) {
	properties := gopter.NewProperties(propertyParams())

	properties.Property("RSI values are within [0, 100]", prop.ForAll(
		func(candles []models.Candle) bool {
			values, err := NewRSI(14).Calculate(candles)
			if err != nil {
				return false
			}
			for i, v := range values {
				if i < 14 {
					if !math.IsNaN(v) {
						return false
					}
					continue
				}
				if v < 0 || v > 100 {
					return false
				}
			}
			return true
		},
		candleSliceGen(20, 120),
	))

	properties.TestingRun(t)
}

func TestProperty_MACDHistogramIdentity(t *testing.T) {
	properties := gopter.NewProperties(propertyParams())

	properties.Property("histogram equals macd minus signal", prop.ForAll(
		func(candles []models.Candle) bool {
			values, err := NewMACD(12, 26, 9).Calculate(candles)
			if err != nil {
				return false
			}
			line, signal, hist := values["macd"], values["signal"], values["histogram"]
			for i := range candles {
				if hist[i] != line[i]-signal[i] {
					return false
				}
			}
			return true
		},
		candleSliceGen(20, 120),
	))

	properties.TestingRun(t)
}

func TestProperty_BollingerBandsOrdering(t *testing.T) {
	properties := gopter.NewProperties(propertyParams())

	properties.Property("upper >= middle >= lower", prop.ForAll(
		func(candles []models.Candle) bool {
			values, err := NewBollingerBands(20, 2).Calculate(candles)
			if err != nil {
				return false
			}
			upper, middle, lower := values["upper"], values["middle"], values["lower"]
			for i := range candles {
				if i < 19 {
					if !math.IsNaN(upper[i]) || !math.IsNaN(lower[i]) {
						return false
					}
					continue
				}
				if upper[i] < middle[i] || middle[i] < lower[i] {
					return false
				}
			}
			return true
		},
		candleSliceGen(20, 120),
	))

	properties.TestingRun(t)
}

func TestProperty_ATRIsNonNegative(t *testing.T) {
	properties := gopter.NewProperties(propertyParams())

	properties.Property("ATR is non-negative", prop.ForAll(
		func(candles []models.Candle) bool {
			values, err := NewATR(14).Calculate(candles)
			if err != nil {
				return false
			}
			for i := 13; i < len(values); i++ {
				if !(values[i] >= 0) {
					return false
				}
			}
			return true
		},
		candleSliceGen(20, 120),
	))

	properties.TestingRun(t)
}
