package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"crypto-analyzer/internal/analyzer"
	apperrors "crypto-analyzer/internal/errors"
	"crypto-analyzer/internal/market"
	"crypto-analyzer/internal/models"
	"crypto-analyzer/internal/trace"
)

type fakeAnalyzer struct {
	lastReq     analyzer.Request
	lastSymbols []string
}

func (f *fakeAnalyzer) RunAnalysis(ctx context.Context, req analyzer.Request) (models.AnalysisResult, error) {
	f.lastReq = req
	switch req.Symbol {
	case "THINUSDT":
		return models.AnalysisResult{}, apperrors.NewDataError(apperrors.ErrInsufficientData, req.Symbol, "1h", "got 4 candles", nil)
	case "DOWNUSDT":
		return models.AnalysisResult{}, apperrors.NewDataError(apperrors.ErrDataUnavailable, req.Symbol, "1h", "status 503", nil)
	}
	return models.AnalysisResult{Symbol: req.Symbol, Signal: models.SignalBuy, Price: 100, Score: 80, Pattern: models.PatternNone}, nil
}

func (f *fakeAnalyzer) RunMultiTimeframeAnalysis(ctx context.Context, symbol string) (models.TimeframeSummary, error) {
	return models.TimeframeSummary{Symbol: symbol, HoldCount: 13, HoldFraction: 1, Verdict: models.VerdictMixed}, nil
}

func (f *fakeAnalyzer) RunBatch(ctx context.Context, symbols []string, interval models.Interval, lookback int) []analyzer.BatchResult {
	f.lastSymbols = symbols
	out := make([]analyzer.BatchResult, len(symbols))
	for i, s := range symbols {
		out[i] = analyzer.BatchResult{Symbol: s, ErrorKind: apperrors.KindDataUnavailable, Error: "down"}
	}
	return out
}

type fakeWatchlists struct {
	lists map[string][]string
}

func (f *fakeWatchlists) AddToWatchlist(ctx context.Context, symbol, listName string) error {
	return nil
}
func (f *fakeWatchlists) RemoveFromWatchlist(ctx context.Context, symbol, listName string) error {
	return nil
}
func (f *fakeWatchlists) GetWatchlist(ctx context.Context, listName string) ([]string, error) {
	return f.lists[listName], nil
}
func (f *fakeWatchlists) GetAllWatchlists(ctx context.Context) (map[string][]string, error) {
	return f.lists, nil
}
func (f *fakeWatchlists) DeleteWatchlist(ctx context.Context, listName string) (int, error) {
	return 0, nil
}
func (f *fakeWatchlists) Close() error { return nil }

func setup() (*fakeAnalyzer, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	fa := &fakeAnalyzer{}
	wl := &fakeWatchlists{lists: map[string][]string{"majors": {"BTCUSDT", "ETHUSDT"}}}
	return fa, NewServer(fa, wl, zerolog.Nop(), "test").Router()
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	_, r := setup()
	w := get(r, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

type degradedAnalyzer struct {
	fakeAnalyzer
}

func (d *degradedAnalyzer) Upstream() market.BreakerStats {
	return market.BreakerStats{State: market.BreakerOpen, Rejected: 3}
}

func TestHealthReportsOpenBreaker(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewServer(&degradedAnalyzer{}, nil, zerolog.Nop(), "test").Router()

	w := get(r, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Status   string              `json:"status"`
		Upstream market.BreakerStats `json:"upstream"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "degraded" || body.Upstream.State != market.BreakerOpen || body.Upstream.Rejected != 3 {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestAnalysisEndpoint(t *testing.T) {
	fa, r := setup()

	w := get(r, "/v1/analysis/btcusdt?interval=4h&lookback=150")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if fa.lastReq.Interval != models.Interval4h || fa.lastReq.Lookback != 150 || fa.lastReq.Symbol != "btcusdt" {
		t.Errorf("request not forwarded: %+v", fa.lastReq)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["signal"] != "BUY" || body["score"] != float64(80) {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestAnalysisEndpointErrors(t *testing.T) {
	_, r := setup()

	tests := []struct {
		path   string
		status int
		kind   string
	}{
		{"/v1/analysis/THINUSDT", http.StatusUnprocessableEntity, apperrors.KindInsufficientData},
		{"/v1/analysis/DOWNUSDT", http.StatusBadGateway, apperrors.KindDataUnavailable},
		{"/v1/analysis/BTCUSDT?lookback=abc", http.StatusBadRequest, apperrors.KindInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := get(r, tt.path)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			var resp errorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Kind != tt.kind {
				t.Errorf("kind = %q, want %q", resp.Kind, tt.kind)
			}
		})
	}
}

func TestMTFEndpoint(t *testing.T) {
	_, r := setup()
	w := get(r, "/v1/mtf/ETHUSDT")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"verdict":"Mixed"`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestScanEndpoint(t *testing.T) {
	fa, r := setup()

	w := get(r, "/v1/scan?symbols=SOLUSDT,%20XRPUSDT,&list=majors")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	want := []string{"SOLUSDT", "XRPUSDT", "BTCUSDT", "ETHUSDT"}
	if strings.Join(fa.lastSymbols, ",") != strings.Join(want, ",") {
		t.Errorf("symbols = %v, want %v", fa.lastSymbols, want)
	}

	w = get(r, "/v1/scan?symbols=ethusdt,SOLUSDT,solusdt&list=majors")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	want = []string{"ethusdt", "SOLUSDT", "BTCUSDT"}
	if strings.Join(fa.lastSymbols, ",") != strings.Join(want, ",") {
		t.Errorf("deduplicated symbols = %v, want %v", fa.lastSymbols, want)
	}

	w = get(r, "/v1/scan")
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty scan status = %d, want 400", w.Code)
	}
}

func TestWatchlistEndpoints(t *testing.T) {
	_, r := setup()

	w := get(r, "/v1/watchlists/majors")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ETHUSDT") {
		t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
	}
	w = get(r, "/v1/watchlists/unknown")
	if !strings.Contains(w.Body.String(), `"symbols":[]`) {
		t.Errorf("expected empty symbols, got %s", w.Body.String())
	}
}

func TestRequestLogCarriesTraceIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var spans, logs bytes.Buffer
	if err := trace.Init(trace.Config{Enabled: true, ServiceName: "api-test", Writer: &spans}); err != nil {
		t.Fatalf("trace.Init() error: %v", err)
	}
	t.Cleanup(func() { _ = trace.Shutdown(context.Background()) })

	r := NewServer(&fakeAnalyzer{}, nil, zerolog.New(&logs), "test").Router()
	if w := get(r, "/v1/analysis/BTCUSDT"); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(logs.Bytes(), &entry); err != nil {
		t.Fatalf("request log is not JSON: %v\n%s", err, logs.String())
	}
	for _, key := range []string{"request_id", "trace_id", "span_id"} {
		if s, _ := entry[key].(string); s == "" {
			t.Errorf("request log missing %s: %s", key, logs.String())
		}
	}
}
