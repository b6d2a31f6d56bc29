package mtf

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"crypto-analyzer/internal/analysis"
	"crypto-analyzer/internal/analysis/scoring"
	apperrors "crypto-analyzer/internal/errors"
	"crypto-analyzer/internal/models"
)

// trendCandles moves the close by step per candle starting at 1000.
func trendCandles(n int, step float64) []models.Candle {
	candles := make([]models.Candle, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		c := 1000 + step*float64(i)
		candles[i] = models.Candle{
			OpenTime: start.Add(time.Duration(i) * time.Hour),
			Open:     c - step/2, High: c + 1, Low: c - 1, Close: c,
			Volume: 10,
		}
	}
	return candles
}

type fakeSource struct {
	mu      sync.Mutex
	series  map[models.Interval][]models.Candle
	errs    map[models.Interval]error
	fetched []models.Interval
}

func (f *fakeSource) Fetch(ctx context.Context, symbol string, interval models.Interval, limit int) ([]models.Candle, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, interval)
	f.mu.Unlock()
	if err := f.errs[interval]; err != nil {
		return nil, err
	}
	return f.series[interval], nil
}

func newAggregator(src analysis.CandleSource, workers int) *Aggregator {
	return NewAggregator(src, analysis.NewPipeline(scoring.MomentumProfile(), 1), Config{Workers: workers}, zerolog.Nop())
}

func TestAggregateAllBuy(t *testing.T) {
	src := &fakeSource{series: map[models.Interval][]models.Candle{}}
	for _, iv := range models.AllIntervals() {
		src.series[iv] = trendCandles(100, 1)
	}

	summary, err := newAggregator(src, 4).Aggregate(context.Background(), "BTCUSDT", nil)
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}
	if summary.Total() != 13 || summary.BuyCount != 13 {
		t.Errorf("counts = %d/%d/%d, want 13 buys", summary.BuyCount, summary.SellCount, summary.HoldCount)
	}
	if summary.Verdict != models.VerdictStrongBuy {
		t.Errorf("Verdict = %q, want Strong Buy", summary.Verdict)
	}
	if summary.BuyFraction != 1 {
		t.Errorf("BuyFraction = %v, want 1", summary.BuyFraction)
	}
}

func TestAggregateAbsorbsFailures(t *testing.T) {
	intervals := models.AllIntervals()
	src := &fakeSource{
		series: map[models.Interval][]models.Candle{},
		errs:   map[models.Interval]error{},
	}
	for i, iv := range intervals {
		switch {
		case i < 3:
			src.errs[iv] = apperrors.NewDataError(apperrors.ErrDataUnavailable, "BTCUSDT", string(iv), "status 503", nil)
		case i < 5:
			src.series[iv] = trendCandles(30, 1) // below the per-timeframe minimum
		case i < 9:
			src.series[iv] = trendCandles(100, -1)
		default:
			src.series[iv] = trendCandles(100, 1)
		}
	}

	for _, workers := range []int{1, 8} {
		summary, err := newAggregator(src, workers).Aggregate(context.Background(), "BTCUSDT", nil)
		if err != nil {
			t.Fatalf("Aggregate() error: %v", err)
		}
		if summary.Total() != 13 {
			t.Fatalf("Total() = %d, want 13", summary.Total())
		}
		if summary.HoldCount != 5 || summary.SellCount != 4 || summary.BuyCount != 4 {
			t.Errorf("workers=%d counts = %d/%d/%d, want 4/4/5", workers, summary.BuyCount, summary.SellCount, summary.HoldCount)
		}
		if summary.Verdict != models.VerdictMixed {
			t.Errorf("Verdict = %q, want Mixed", summary.Verdict)
		}

		for i, tf := range summary.Timeframes {
			if tf.Interval != intervals[i] {
				t.Errorf("entry %d interval = %s, want %s", i, tf.Interval, intervals[i])
			}
		}
		if summary.Timeframes[0].Error != apperrors.KindDataUnavailable {
			t.Errorf("entry 0 error = %q", summary.Timeframes[0].Error)
		}
		if summary.Timeframes[3].Error != apperrors.KindInsufficientData {
			t.Errorf("entry 3 error = %q", summary.Timeframes[3].Error)
		}
		if summary.Timeframes[10].Error != "" {
			t.Errorf("entry 10 error = %q, want none", summary.Timeframes[10].Error)
		}
	}
}

func TestAggregateSubsetKeepsOrder(t *testing.T) {
	src := &fakeSource{series: map[models.Interval][]models.Candle{
		models.Interval4h: trendCandles(100, -2),
		models.Interval1h: trendCandles(100, -2),
		models.Interval1d: trendCandles(100, -2),
	}}
	req := []models.Interval{models.Interval4h, models.Interval1h, models.Interval4h, models.Interval1d}

	summary, err := newAggregator(src, 2).Aggregate(context.Background(), "ETHUSDT", req)
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}
	if len(summary.Timeframes) != 3 {
		t.Fatalf("expected duplicates removed, got %d entries", len(summary.Timeframes))
	}
	want := []models.Interval{models.Interval4h, models.Interval1h, models.Interval1d}
	for i, tf := range summary.Timeframes {
		if tf.Interval != want[i] {
			t.Errorf("entry %d = %s, want %s", i, tf.Interval, want[i])
		}
	}
	if summary.Verdict != models.VerdictStrongSell {
		t.Errorf("Verdict = %q, want Strong Sell", summary.Verdict)
	}
}

func TestAggregateRejectsUnknownInterval(t *testing.T) {
	_, err := newAggregator(&fakeSource{}, 1).Aggregate(context.Background(), "BTCUSDT", []models.Interval{"2m"})
	if !errors.Is(err, apperrors.ErrInvalidInterval) {
		t.Errorf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestSummarizeThreshold(t *testing.T) {
	signals := func(buy, sell, hold int) []models.TimeframeSignal {
		var out []models.TimeframeSignal
		for i := 0; i < buy; i++ {
			out = append(out, models.TimeframeSignal{Signal: models.SignalBuy})
		}
		for i := 0; i < sell; i++ {
			out = append(out, models.TimeframeSignal{Signal: models.SignalSell})
		}
		for i := 0; i < hold; i++ {
			out = append(out, models.TimeframeSignal{Signal: models.SignalHold})
		}
		return out
	}

	tests := []struct {
		name            string
		buy, sell, hold int
		want            models.Verdict
	}{
		{"10 of 13 buys is strong", 10, 0, 3, models.VerdictStrongBuy},
		{"9 of 13 buys is not", 9, 0, 4, models.VerdictMixed},
		{"exactly 70% is not strong", 7, 0, 3, models.VerdictMixed},
		{"strong sell", 0, 11, 2, models.VerdictStrongSell},
		{"empty", 0, 0, 0, models.VerdictMixed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize("BTCUSDT", signals(tt.buy, tt.sell, tt.hold))
			if s.Verdict != tt.want {
				t.Errorf("Verdict = %q, want %q", s.Verdict, tt.want)
			}
			if s.Total() != tt.buy+tt.sell+tt.hold {
				t.Errorf("Total() = %d", s.Total())
			}
		})
	}
}
