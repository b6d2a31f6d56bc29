package market

import (
	"context"
	"net/http"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	apperrors "crypto-analyzer/internal/errors"
	"crypto-analyzer/internal/models"
)

// BinanceProvider reads spot klines through the go-binance SDK.
type BinanceProvider struct {
	client *binance.Client
}

// NewBinanceProvider creates an unauthenticated SDK client. Klines are public,
// so no API key is needed.
func NewBinanceProvider(baseURL string, httpClient *http.Client) *BinanceProvider {
	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = baseURL
	}
	if httpClient != nil {
		client.HTTPClient = httpClient
	}
	return &BinanceProvider{client: client}
}

func (p *BinanceProvider) Name() string { return ProviderBinance }

func (p *BinanceProvider) Klines(ctx context.Context, req KlineRequest) ([]models.Candle, error) {
	klines, err := p.client.NewKlinesService().
		Symbol(req.Symbol).
		Interval(string(req.Interval)).
		Limit(req.Limit).
		Do(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "binance klines")
	}

	candles := make([]models.Candle, 0, len(klines))
	for _, k := range klines {
		c := models.Candle{OpenTime: time.UnixMilli(k.OpenTime).UTC()}
		fields := []struct {
			dst *float64
			raw string
		}{
			{&c.Open, k.Open},
			{&c.High, k.High},
			{&c.Low, k.Low},
			{&c.Close, k.Close},
			{&c.Volume, k.Volume},
		}
		for _, f := range fields {
			d, err := decimal.NewFromString(f.raw)
			if err != nil {
				return nil, apperrors.Wrapf(err, "binance kline %d", k.OpenTime)
			}
			*f.dst = d.InexactFloat64()
		}
		candles = append(candles, c)
	}
	return candles, nil
}
