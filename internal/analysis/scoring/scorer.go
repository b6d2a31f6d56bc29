// Package scoring turns indicator snapshots and a price-action pattern into a
// trading signal with risk levels and a quality score.
package scoring

import (
	"fmt"
	"math"

	apperrors "crypto-analyzer/internal/errors"
	"crypto-analyzer/internal/models"
)

// MinCandles is the shortest series Decide accepts.
const MinCandles = 20

// Score components.
const (
	baseScore    = 50
	patternBonus = 20
	macdBonus    = 15
	trendBonus   = 15
	maxScore     = 100
)

// Risk percentage bounds, as fractions.
const (
	minRisk = 0.01
	maxRisk = 0.05
)

// Take-profit distances in ATR multiples.
var targetMultiples = [3]float64{1.5, 2, 3}

// SignalEngine derives signals under a fixed profile. It holds no mutable
// state, so one engine can serve concurrent requests.
type SignalEngine struct {
	profile Profile
}

// NewSignalEngine creates a signal engine for the given profile.
func NewSignalEngine(profile Profile) *SignalEngine {
	return &SignalEngine{profile: profile}
}

// Profile returns the engine's threshold profile.
func (e *SignalEngine) Profile() Profile {
	return e.profile
}

// Direction classifies one snapshot. Undefined inputs never satisfy a
// comparison, so they fall through to Hold.
func (e *SignalEngine) Direction(snap models.IndicatorSnapshot) models.Signal {
	p := e.profile
	rsi, hist := snap.RSI14, snap.MACDHist

	buy := snap.EMA20 > snap.EMA50 &&
		rsi > p.BuyRSIAbove && rsi < p.BuyRSIBelow &&
		(!p.RequireMACD || hist > 0)
	if buy {
		return models.SignalBuy
	}

	sell := snap.EMA20 < snap.EMA50 &&
		rsi > p.SellRSIAbove && rsi < p.SellRSIBelow &&
		(!p.RequireMACD || hist < 0)
	if sell {
		return models.SignalSell
	}
	return models.SignalHold
}

// Decide produces the analysis result for the last candle of the series.
// snaps must be aligned with candles. The result depends only on its inputs.
//
// Hold results carry levels computed with the Buy formula (stop below price,
// targets above). Callers should not act on levels of a Hold.
func (e *SignalEngine) Decide(symbol string, interval models.Interval, candles []models.Candle, snaps []models.IndicatorSnapshot, pattern models.PatternLabel) (models.AnalysisResult, error) {
	if len(candles) < MinCandles {
		return models.AnalysisResult{}, apperrors.NewDataError(apperrors.ErrInsufficientData, symbol, string(interval),
			fmt.Sprintf("need at least %d candles, got %d", MinCandles, len(candles)), nil)
	}
	if len(snaps) != len(candles) {
		return models.AnalysisResult{}, fmt.Errorf("snapshot count %d does not match candle count %d", len(snaps), len(candles))
	}

	last := candles[len(candles)-1]
	snap := snaps[len(snaps)-1]
	if field, ok := undefinedField(snap); ok {
		return models.AnalysisResult{}, apperrors.NewDataError(apperrors.ErrComputationUndefined, symbol, string(interval),
			field+" is undefined on the last candle", nil)
	}

	signal := e.Direction(snap)
	price := last.Close
	atr := snap.ATR14

	sign := 1.0
	if signal == models.SignalSell {
		sign = -1.0
	}
	stop := price - sign*atr
	var targets [3]float64
	for i, m := range targetMultiples {
		targets[i] = price + sign*atr*m
	}

	return models.AnalysisResult{
		Symbol:      symbol,
		Interval:    interval,
		CandleTime:  last.OpenTime,
		Signal:      signal,
		Price:       price,
		Volume:      last.Volume,
		StopLoss:    models.Float(stop),
		TakeProfit1: models.Float(targets[0]),
		TakeProfit2: models.Float(targets[1]),
		TakeProfit3: models.Float(targets[2]),
		RSI:         models.Float(snap.RSI14),
		ATR:         models.Float(atr),
		EMA20:       models.Float(snap.EMA20),
		EMA50:       models.Float(snap.EMA50),
		MACDHist:    models.Float(snap.MACDHist),
		Pattern:     pattern,
		RiskPct:     riskPercent(price, stop, targets[0]),
		Score:       score(signal, last, snap, pattern),
		Profile:     e.profile.Name,
	}, nil
}

// riskPercent maps the reward:risk ratio of the first target onto [1, 5].
// A zero stop distance has no ratio and gets the floor.
func riskPercent(price, stop, target float64) float64 {
	risk := math.Abs(price - stop)
	if risk == 0 {
		return minRisk * 100
	}
	ratio := math.Abs(target-price) / risk
	return clamp(ratio/4, minRisk, maxRisk) * 100
}

// score rates the setup from 0 to 100. A pattern on a zero-range candle earns
// no bonus.
func score(signal models.Signal, last models.Candle, snap models.IndicatorSnapshot, pattern models.PatternLabel) int {
	s := baseScore
	if pattern != models.PatternNone && pattern != "" && last.Range() > 0 {
		s += patternBonus
	}
	if snap.MACDHist > 0 {
		s += macdBonus
	}
	if (signal == models.SignalBuy && last.Close > snap.EMA20) ||
		(signal == models.SignalSell && last.Close < snap.EMA20) {
		s += trendBonus
	}
	if s > maxScore {
		s = maxScore
	}
	return s
}

func undefinedField(snap models.IndicatorSnapshot) (string, bool) {
	fields := []struct {
		name  string
		value float64
	}{
		{"EMA20", snap.EMA20},
		{"EMA50", snap.EMA50},
		{"RSI", snap.RSI14},
		{"ATR", snap.ATR14},
		{"MACD histogram", snap.MACDHist},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return f.name, true
		}
	}
	return "", false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
