package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	apperrors "crypto-analyzer/internal/errors"
	"crypto-analyzer/internal/models"
)

// klineFields is the number of leading row fields consumed:
// open time, open, high, low, close, volume.
const klineFields = 6

// RESTProvider reads klines from a `/api/v3/klines` style endpoint.
type RESTProvider struct {
	baseURL string
	client  *http.Client
}

// NewRESTProvider creates a REST provider for baseURL.
func NewRESTProvider(baseURL string, client *http.Client) *RESTProvider {
	if client == nil {
		client = newHTTPClient(0)
	}
	return &RESTProvider{baseURL: baseURL, client: client}
}

func (p *RESTProvider) Name() string { return ProviderREST }

// Klines performs one GET request and decodes the fixed-width rows.
func (p *RESTProvider) Klines(ctx context.Context, req KlineRequest) ([]models.Candle, error) {
	q := url.Values{}
	q.Set("symbol", req.Symbol)
	q.Set("interval", string(req.Interval))
	q.Set("limit", strconv.Itoa(req.Limit))
	u := p.baseURL + "/api/v3/klines?" + q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, apperrors.Wrap(err, "klines request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(err, "klines read body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("klines: status %d, body: %s", resp.StatusCode, truncate(string(body), 256))
	}

	return decodeKlines(body)
}

// decodeKlines parses
// [[open_time_ms, "open", "high", "low", "close", "volume", close_time_ms, ...], ...].
// Prices may be quoted or bare numbers.
func decodeKlines(body []byte) ([]models.Candle, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, apperrors.Wrap(err, "klines decode")
	}

	candles := make([]models.Candle, 0, len(rows))
	for i, row := range rows {
		if len(row) < klineFields {
			return nil, fmt.Errorf("klines row %d: expected at least %d fields, got %d", i, klineFields, len(row))
		}

		var openMs int64
		if err := json.Unmarshal(row[0], &openMs); err != nil {
			return nil, apperrors.Wrapf(err, "klines row %d open time", i)
		}

		var values [klineFields - 1]float64
		for j := range values {
			var d decimal.Decimal
			if err := d.UnmarshalJSON(row[j+1]); err != nil {
				return nil, apperrors.Wrapf(err, "klines row %d field %d", i, j+1)
			}
			values[j] = d.InexactFloat64()
		}

		candles = append(candles, models.Candle{
			OpenTime: time.UnixMilli(openMs).UTC(),
			Open:     values[0],
			High:     values[1],
			Low:      values[2],
			Close:    values[3],
			Volume:   values[4],
		})
	}
	return candles, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
