// Package models provides domain models for the analyzer.
package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	apperrors "crypto-analyzer/internal/errors"
)

// Interval represents a candle interval accepted by the market-data provider.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval3m  Interval = "3m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval2h  Interval = "2h"
	Interval4h  Interval = "4h"
	Interval6h  Interval = "6h"
	Interval12h Interval = "12h"
	Interval1d  Interval = "1d"
	Interval3d  Interval = "3d"
	Interval1w  Interval = "1w"
)

// AllIntervals returns every supported interval, shortest first.
func AllIntervals() []Interval {
	return []Interval{
		Interval1m, Interval3m, Interval5m, Interval15m, Interval30m,
		Interval1h, Interval2h, Interval4h, Interval6h, Interval12h,
		Interval1d, Interval3d, Interval1w,
	}
}

// Valid reports whether the interval is one of the supported values.
func (i Interval) Valid() bool {
	for _, v := range AllIntervals() {
		if v == i {
			return true
		}
	}
	return false
}

// ParseInterval parses an interval string such as "1h".
func ParseInterval(s string) (Interval, error) {
	iv := Interval(strings.TrimSpace(s))
	if !iv.Valid() {
		return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidInterval, s)
	}
	return iv, nil
}

// Candle represents OHLCV data for a time period.
type Candle struct {
	OpenTime time.Time `json:"open_time" yaml:"open_time"`
	Open     float64   `json:"open" yaml:"open"`
	High     float64   `json:"high" yaml:"high"`
	Low      float64   `json:"low" yaml:"low"`
	Close    float64   `json:"close" yaml:"close"`
	Volume   float64   `json:"volume" yaml:"volume"`
}

// IsBullish reports whether the candle closed above its open.
func (c Candle) IsBullish() bool {
	return c.Close > c.Open
}

// IsBearish reports whether the candle closed below its open.
func (c Candle) IsBearish() bool {
	return c.Close < c.Open
}

// Body returns the absolute size of the candle body.
func (c Candle) Body() float64 {
	return math.Abs(c.Close - c.Open)
}

// Range returns high minus low.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// Signal is the directional output of the signal engine.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// PatternLabel identifies the price-action pattern on the last candle pair.
type PatternLabel string

const (
	PatternBullishEngulfing PatternLabel = "Bullish Engulfing"
	PatternBearishEngulfing PatternLabel = "Bearish Engulfing"
	PatternHammer           PatternLabel = "Hammer"
	PatternDoji             PatternLabel = "Doji"
	PatternNone             PatternLabel = "None"
)

// Verdict summarises the distribution of signals across timeframes.
type Verdict string

const (
	VerdictStrongBuy  Verdict = "Strong Buy"
	VerdictStrongSell Verdict = "Strong Sell"
	VerdictMixed      Verdict = "Mixed"
)

// Float is a float64 that encodes NaN and infinities as JSON null.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// MarshalYAML implements yaml.Marshaler.
func (f Float) MarshalYAML() (interface{}, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, nil
	}
	return v, nil
}

// IndicatorSnapshot holds the derived indicator values for one candle.
// NaN marks a value whose lookback window is not yet filled.
type IndicatorSnapshot struct {
	EMA20      float64
	EMA50      float64
	EMA200     float64
	RSI14      float64
	ATR14      float64
	MACD       float64
	MACDSignal float64
	MACDHist   float64
	BBUpper    float64
	BBMiddle   float64
	BBLower    float64
}

// AnalysisResult is the outcome of a single-symbol, single-interval analysis.
type AnalysisResult struct {
	Symbol      string       `json:"symbol" yaml:"symbol"`
	Interval    Interval     `json:"interval" yaml:"interval"`
	CandleTime  time.Time    `json:"candle_time" yaml:"candle_time"`
	Signal      Signal       `json:"signal" yaml:"signal"`
	Price       float64      `json:"price" yaml:"price"`
	Volume      float64      `json:"volume" yaml:"volume"`
	StopLoss    Float        `json:"stop_loss" yaml:"stop_loss"`
	TakeProfit1 Float        `json:"take_profit_1" yaml:"take_profit_1"`
	TakeProfit2 Float        `json:"take_profit_2" yaml:"take_profit_2"`
	TakeProfit3 Float        `json:"take_profit_3" yaml:"take_profit_3"`
	RSI         Float        `json:"rsi" yaml:"rsi"`
	ATR         Float        `json:"atr" yaml:"atr"`
	EMA20       Float        `json:"ema20" yaml:"ema20"`
	EMA50       Float        `json:"ema50" yaml:"ema50"`
	MACDHist    Float        `json:"macd_hist" yaml:"macd_hist"`
	Pattern     PatternLabel `json:"pattern" yaml:"pattern"`
	RiskPct     float64      `json:"risk_pct" yaml:"risk_pct"`
	Score       int          `json:"score" yaml:"score"`
	Profile     string       `json:"profile" yaml:"profile"`
}

// TimeframeSignal is the directional signal for one timeframe of an aggregation.
type TimeframeSignal struct {
	Interval Interval `json:"interval" yaml:"interval"`
	Signal   Signal   `json:"signal" yaml:"signal"`
	Error    string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// TimeframeSummary is the multi-timeframe aggregation for a symbol.
type TimeframeSummary struct {
	Symbol       string            `json:"symbol" yaml:"symbol"`
	Timeframes   []TimeframeSignal `json:"timeframes" yaml:"timeframes"`
	BuyCount     int               `json:"buy_count" yaml:"buy_count"`
	SellCount    int               `json:"sell_count" yaml:"sell_count"`
	HoldCount    int               `json:"hold_count" yaml:"hold_count"`
	BuyFraction  float64           `json:"buy_fraction" yaml:"buy_fraction"`
	SellFraction float64           `json:"sell_fraction" yaml:"sell_fraction"`
	HoldFraction float64           `json:"hold_fraction" yaml:"hold_fraction"`
	Verdict      Verdict           `json:"verdict" yaml:"verdict"`
}

// Total returns the number of classified timeframes.
func (s *TimeframeSummary) Total() int {
	return s.BuyCount + s.SellCount + s.HoldCount
}
