package market

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	apperrors "crypto-analyzer/internal/errors"
	"crypto-analyzer/internal/logging"
	"crypto-analyzer/internal/models"
	"crypto-analyzer/internal/trace"
)

const (
	// DefaultTimeout bounds a single provider call.
	DefaultTimeout = 10 * time.Second

	// MaxLimit is the largest candle count a provider serves in one call.
	MaxLimit = 1000

	// minGuardCandles is the absolute floor of the completeness guard.
	minGuardCandles = 10
)

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	Timeout time.Duration
	// RateLimit is the sustained request rate per second. Zero disables
	// limiting.
	RateLimit float64
	RateBurst int
	Breaker   BreakerConfig
}

// Fetcher validates requests, bounds provider calls by a timeout and
// rejects incomplete series.
type Fetcher struct {
	provider Provider
	timeout  time.Duration
	limiter  *rate.Limiter
	breaker  *breaker
	logger   zerolog.Logger
}

// NewFetcher creates a fetcher over provider.
func NewFetcher(provider Provider, cfg FetcherConfig, logger zerolog.Logger) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return &Fetcher{
		provider: provider,
		timeout:  timeout,
		limiter:  limiter,
		breaker:  newBreaker(cfg.Breaker),
		logger:   logger.With().Str("component", "fetcher").Str("provider", provider.Name()).Logger(),
	}
}

// NormalizeSymbol trims and upper-cases a trading pair symbol. Only an empty
// symbol is rejected here; unknown pairs are left for the provider to refuse.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return "", apperrors.NewValidationError("symbol", symbol, "must not be empty", apperrors.ErrInvalidSymbol)
	}
	return s, nil
}

// DedupeSymbols drops blank entries and repeats, comparing normalized
// symbols. The first spelling of each symbol is kept, in input order.
func DedupeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		key := strings.ToUpper(strings.TrimSpace(s))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// MinCandlesFor returns the smallest acceptable response size for limit.
func MinCandlesFor(limit int) int {
	return int(math.Ceil(math.Max(minGuardCandles, float64(limit)*0.5)))
}

// Fetch retrieves the most recent limit candles. Transport failures, timeouts
// and non-2xx responses become ErrDataUnavailable; a response shorter than
// MinCandlesFor(limit) becomes ErrInsufficientData. There is no retry.
func (f *Fetcher) Fetch(ctx context.Context, symbol string, interval models.Interval, limit int) ([]models.Candle, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if !interval.Valid() {
		return nil, apperrors.NewValidationError("interval", interval, "unsupported interval", apperrors.ErrInvalidInterval)
	}
	if limit <= 0 || limit > MaxLimit {
		return nil, apperrors.NewValidationError("limit", limit,
			fmt.Sprintf("must be between 1 and %d", MaxLimit), nil)
	}

	ctx, span := trace.StartSpan(ctx, "market.Fetch")
	defer span.End()
	span.SetAttributes(trace.String("symbol", sym), trace.String("interval", string(interval)), trace.Int("limit", limit))

	logger := logging.WithInterval(logging.WithSymbol(f.logger, sym), string(interval))

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, apperrors.NewDataError(apperrors.ErrDataUnavailable, sym, string(interval), "rate limiter", err)
		}
	}

	if err := f.breaker.allow(); err != nil {
		span.SetAttributes(trace.Bool("breaker_rejected", true))
		logger.Warn().Msg("Upstream breaker open, fetch rejected")
		return nil, apperrors.NewDataError(apperrors.ErrDataUnavailable, sym, string(interval), "provider unavailable", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	candles, err := f.provider.Klines(callCtx, KlineRequest{Symbol: sym, Interval: interval, Limit: limit})
	logging.LogFetch(logger, sym, string(interval), limit, len(candles), time.Since(start), err)
	if ctx.Err() == nil {
		f.breaker.record(err)
	} else {
		f.breaker.release()
	}
	if err != nil {
		span.RecordError(err)
		msg := "provider request failed"
		if callCtx.Err() == context.DeadlineExceeded {
			msg = fmt.Sprintf("provider timed out after %s", f.timeout)
		}
		return nil, apperrors.NewDataError(apperrors.ErrDataUnavailable, sym, string(interval), msg, err)
	}

	if need := MinCandlesFor(limit); len(candles) < need {
		return nil, apperrors.NewDataError(apperrors.ErrInsufficientData, sym, string(interval),
			fmt.Sprintf("got %d candles, need at least %d", len(candles), need), nil)
	}
	return candles, nil
}

// BreakerStats reports the upstream circuit breaker state.
func (f *Fetcher) BreakerStats() BreakerStats {
	return f.breaker.stats()
}
