// Package market retrieves candle series from exchange market-data APIs.
package market

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "crypto-analyzer/internal/errors"
	"crypto-analyzer/internal/models"
)

// KlineRequest identifies a candle series.
type KlineRequest struct {
	Symbol   string
	Interval models.Interval
	Limit    int
}

// Provider is a source of candles. Implementations return candles in
// ascending open-time order and make a single attempt per call.
type Provider interface {
	Name() string
	Klines(ctx context.Context, req KlineRequest) ([]models.Candle, error)
}

// Provider names.
const (
	ProviderREST    = "rest"
	ProviderBinance = "binance"
)

// DefaultBaseURL is the public spot market-data endpoint.
const DefaultBaseURL = "https://api.binance.com"

// ProviderConfig selects and configures a provider.
type ProviderConfig struct {
	Name    string
	BaseURL string
	Timeout time.Duration
}

// NewProvider creates the provider named in cfg.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := newHTTPClient(cfg.Timeout)

	switch strings.ToLower(cfg.Name) {
	case "", ProviderREST:
		return NewRESTProvider(baseURL, httpClient), nil
	case ProviderBinance:
		return NewBinanceProvider(baseURL, httpClient), nil
	default:
		return nil, apperrors.NewValidationError("provider", cfg.Name,
			fmt.Sprintf("must be %q or %q", ProviderREST, ProviderBinance), apperrors.ErrConfigInvalid)
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
