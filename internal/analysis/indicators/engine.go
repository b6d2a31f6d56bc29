// Package indicators provides technical indicator calculations with parallel processing.
package indicators

import (
	"context"
	"fmt"
	"sync"

	"crypto-analyzer/internal/models"
)

// Indicator defines the interface for single-value technical indicators.
type Indicator interface {
	Name() string
	Calculate(candles []models.Candle) ([]float64, error)
	Period() int
}

// MultiValueIndicator defines the interface for indicators that return multiple values.
type MultiValueIndicator interface {
	Name() string
	Calculate(candles []models.Candle) (map[string][]float64, error)
	Period() int
}

// Engine provides parallel indicator calculation using a worker pool.
// A configured Engine is read-only and safe to share between requests.
type Engine struct {
	workers     int
	indicators  map[string]Indicator
	multiIndics map[string]MultiValueIndicator
	mu          sync.RWMutex
}

// NewEngine creates a new indicator engine with the specified number of workers.
func NewEngine(workers int) *Engine {
	if workers <= 0 {
		workers = 4
	}
	return &Engine{
		workers:     workers,
		indicators:  make(map[string]Indicator),
		multiIndics: make(map[string]MultiValueIndicator),
	}
}

// Indicator set used for snapshots.
var (
	ema20  = NewEMA(20)
	ema50  = NewEMA(50)
	ema200 = NewEMA(200)
	rsi14  = NewRSI(14)
	atr14  = NewATR(14)
	macd   = NewMACD(12, 26, 9)
	bb     = NewBollingerBands(20, 2)
)

// NewDefaultEngine creates an engine with the snapshot indicator set registered:
// EMA(20/50/200), RSI(14), ATR(14), MACD(12,26,9) and Bollinger Bands(20,2).
func NewDefaultEngine(workers int) *Engine {
	e := NewEngine(workers)
	e.RegisterIndicator(ema20)
	e.RegisterIndicator(ema50)
	e.RegisterIndicator(ema200)
	e.RegisterIndicator(rsi14)
	e.RegisterIndicator(atr14)
	e.RegisterMultiIndicator(macd)
	e.RegisterMultiIndicator(bb)
	return e
}

// RegisterIndicator registers a single-value indicator.
func (e *Engine) RegisterIndicator(ind Indicator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.indicators[ind.Name()] = ind
}

// RegisterMultiIndicator registers a multi-value indicator.
func (e *Engine) RegisterMultiIndicator(ind MultiValueIndicator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.multiIndics[ind.Name()] = ind
}

type calcJob struct {
	single Indicator
	multi  MultiValueIndicator
}

// CalculateAll calculates all registered indicators in parallel.
// The first calculation error, or the context error, is returned.
func (e *Engine) CalculateAll(ctx context.Context, candles []models.Candle) (map[string][]float64, map[string]map[string][]float64, error) {
	e.mu.RLock()
	jobs := make([]calcJob, 0, len(e.indicators)+len(e.multiIndics))
	for _, ind := range e.indicators {
		jobs = append(jobs, calcJob{single: ind})
	}
	for _, ind := range e.multiIndics {
		jobs = append(jobs, calcJob{multi: ind})
	}
	e.mu.RUnlock()

	singleResults := make(map[string][]float64)
	multiResults := make(map[string]map[string][]float64)
	var firstErr error
	var mu sync.Mutex
	var wg sync.WaitGroup

	work := make(chan calcJob, len(jobs))

	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range work {
				if ctx.Err() != nil {
					return
				}
				if job.single != nil {
					values, err := job.single.Calculate(candles)
					mu.Lock()
					if err != nil && firstErr == nil {
						firstErr = fmt.Errorf("%s: %w", job.single.Name(), err)
					}
					singleResults[job.single.Name()] = values
					mu.Unlock()
					continue
				}
				values, err := job.multi.Calculate(candles)
				mu.Lock()
				if err != nil && firstErr == nil {
					firstErr = fmt.Errorf("%s: %w", job.multi.Name(), err)
				}
				multiResults[job.multi.Name()] = values
				mu.Unlock()
			}
		}()
	}

	for _, job := range jobs {
		work <- job
	}
	close(work)

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if firstErr != nil {
		return nil, nil, firstErr
	}
	return singleResults, multiResults, nil
}

// Compute calculates the snapshot indicator set and returns one
// IndicatorSnapshot per candle. The engine must have the default set
// registered (see NewDefaultEngine).
func (e *Engine) Compute(ctx context.Context, candles []models.Candle) ([]models.IndicatorSnapshot, error) {
	if len(candles) == 0 {
		return nil, ErrInsufficientData
	}

	single, multi, err := e.CalculateAll(ctx, candles)
	if err != nil {
		return nil, err
	}

	series := func(name string) ([]float64, error) {
		v, ok := single[name]
		if !ok {
			return nil, fmt.Errorf("indicator %s not registered", name)
		}
		return v, nil
	}
	multiSeries := func(name, key string) ([]float64, error) {
		m, ok := multi[name]
		if !ok {
			return nil, fmt.Errorf("indicator %s not registered", name)
		}
		return m[key], nil
	}

	var (
		e20, e50, e200, r, a []float64
		line, signal, hist   []float64
		upper, middle, lower []float64
	)
	lookups := []struct {
		dst *[]float64
		fn  func() ([]float64, error)
	}{
		{&e20, func() ([]float64, error) { return series(ema20.Name()) }},
		{&e50, func() ([]float64, error) { return series(ema50.Name()) }},
		{&e200, func() ([]float64, error) { return series(ema200.Name()) }},
		{&r, func() ([]float64, error) { return series(rsi14.Name()) }},
		{&a, func() ([]float64, error) { return series(atr14.Name()) }},
		{&line, func() ([]float64, error) { return multiSeries(macd.Name(), "macd") }},
		{&signal, func() ([]float64, error) { return multiSeries(macd.Name(), "signal") }},
		{&hist, func() ([]float64, error) { return multiSeries(macd.Name(), "histogram") }},
		{&upper, func() ([]float64, error) { return multiSeries(bb.Name(), "upper") }},
		{&middle, func() ([]float64, error) { return multiSeries(bb.Name(), "middle") }},
		{&lower, func() ([]float64, error) { return multiSeries(bb.Name(), "lower") }},
	}
	for _, l := range lookups {
		v, err := l.fn()
		if err != nil {
			return nil, err
		}
		*l.dst = v
	}

	snapshots := make([]models.IndicatorSnapshot, len(candles))
	for i := range candles {
		snapshots[i] = models.IndicatorSnapshot{
			EMA20:      e20[i],
			EMA50:      e50[i],
			EMA200:     e200[i],
			RSI14:      r[i],
			ATR14:      a[i],
			MACD:       line[i],
			MACDSignal: signal[i],
			MACDHist:   hist[i],
			BBUpper:    upper[i],
			BBMiddle:   middle[i],
			BBLower:    lower[i],
		}
	}
	return snapshots, nil
}
