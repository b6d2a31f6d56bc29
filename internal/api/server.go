// Package api serves the analyzer over HTTP with gin.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"crypto-analyzer/internal/analyzer"
	apperrors "crypto-analyzer/internal/errors"
	"crypto-analyzer/internal/logging"
	"crypto-analyzer/internal/market"
	"crypto-analyzer/internal/models"
	"crypto-analyzer/internal/store"
	"crypto-analyzer/internal/trace"
)

// Analyzer is the subset of analyzer.Service the handlers call.
type Analyzer interface {
	RunAnalysis(ctx context.Context, req analyzer.Request) (models.AnalysisResult, error)
	RunMultiTimeframeAnalysis(ctx context.Context, symbol string) (models.TimeframeSummary, error)
	RunBatch(ctx context.Context, symbols []string, interval models.Interval, lookback int) []analyzer.BatchResult
}

// maxScanSymbols bounds one scan request.
const maxScanSymbols = 50

// Server holds the handler dependencies. Watchlists may be nil, in which
// case scans by list name are rejected.
type Server struct {
	analyzer   Analyzer
	watchlists store.WatchlistStore
	logger     zerolog.Logger
	version    string
}

// NewServer creates a server.
func NewServer(a Analyzer, watchlists store.WatchlistStore, logger zerolog.Logger, version string) *Server {
	return &Server{
		analyzer:   a,
		watchlists: watchlists,
		logger:     logger.With().Str("component", "api").Logger(),
		version:    version,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.health)

	v1 := r.Group("/v1")
	v1.GET("/analysis/:symbol", s.analysis)
	v1.GET("/mtf/:symbol", s.multiTimeframe)
	v1.GET("/scan", s.scan)
	v1.GET("/watchlists", s.listWatchlists)
	v1.GET("/watchlists/:name", s.getWatchlist)
	return r
}

// requestLogger tags each request with an id and logs it on completion.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = logging.NewRequestID()
		}
		ctx, logger := logging.WithRequestID(c.Request.Context(), s.logger, id)
		ctx, span := trace.StartSpan(ctx, "http "+c.Request.Method+" "+c.FullPath())
		defer span.End()
		if traceID, spanID, ok := trace.TraceFields(ctx); ok {
			logger = logger.With().Str("trace_id", traceID).Str("span_id", spanID).Logger()
			ctx = logging.WithLogger(ctx, logger)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", id)

		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	}
}

// upstreamReporter is implemented by analyzers that expose the market-data
// circuit breaker.
type upstreamReporter interface {
	Upstream() market.BreakerStats
}

func (s *Server) health(c *gin.Context) {
	body := gin.H{"status": "ok", "version": s.version}
	if r, ok := s.analyzer.(upstreamReporter); ok {
		up := r.Upstream()
		body["upstream"] = up
		if up.State == market.BreakerOpen {
			body["status"] = "degraded"
		}
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) analysis(c *gin.Context) {
	lookback, ok := queryInt(c, "lookback")
	if !ok {
		return
	}
	req := analyzer.Request{
		Symbol:   c.Param("symbol"),
		Interval: models.Interval(c.Query("interval")),
		Lookback: lookback,
	}

	result, err := s.analyzer.RunAnalysis(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) multiTimeframe(c *gin.Context) {
	summary, err := s.analyzer.RunMultiTimeframeAnalysis(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) scan(c *gin.Context) {
	lookback, ok := queryInt(c, "lookback")
	if !ok {
		return
	}

	var symbols []string
	for _, sym := range strings.Split(c.Query("symbols"), ",") {
		if sym = strings.TrimSpace(sym); sym != "" {
			symbols = append(symbols, sym)
		}
	}
	if list := c.Query("list"); list != "" {
		if s.watchlists == nil {
			writeError(c, apperrors.NewValidationError("list", list, "watchlists are not available", nil))
			return
		}
		listed, err := s.watchlists.GetWatchlist(c.Request.Context(), list)
		if err != nil {
			writeError(c, err)
			return
		}
		symbols = append(symbols, listed...)
	}

	symbols = market.DedupeSymbols(symbols)
	if len(symbols) == 0 {
		writeError(c, apperrors.NewValidationError("symbols", "", "at least one symbol or a list is required", nil))
		return
	}
	if len(symbols) > maxScanSymbols {
		writeError(c, apperrors.NewValidationError("symbols", len(symbols), "too many symbols", nil))
		return
	}

	results := s.analyzer.RunBatch(c.Request.Context(), symbols, models.Interval(c.Query("interval")), lookback)
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) listWatchlists(c *gin.Context) {
	if s.watchlists == nil {
		c.JSON(http.StatusOK, gin.H{"watchlists": map[string][]string{}})
		return
	}
	lists, err := s.watchlists.GetAllWatchlists(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"watchlists": lists})
}

func (s *Server) getWatchlist(c *gin.Context) {
	name := c.Param("name")
	var symbols []string
	if s.watchlists != nil {
		var err error
		if symbols, err = s.watchlists.GetWatchlist(c.Request.Context(), name); err != nil {
			writeError(c, err)
			return
		}
	}
	if symbols == nil {
		symbols = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "symbols": symbols})
}

// queryInt reads an optional integer query parameter, writing a 400 on a
// malformed value.
func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeError(c, apperrors.NewValidationError(key, raw, "must be an integer", nil))
		return 0, false
	}
	return v, true
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeError(c *gin.Context, err error) {
	kind := apperrors.Kind(err)
	c.JSON(statusFor(kind), errorResponse{Error: err.Error(), Kind: kind})
}

func statusFor(kind string) int {
	switch kind {
	case apperrors.KindInvalidRequest:
		return http.StatusBadRequest
	case apperrors.KindInsufficientData, apperrors.KindComputationUndefined:
		return http.StatusUnprocessableEntity
	case apperrors.KindDataUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("HTTP API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info().Msg("Shutting down HTTP API")
	return srv.Shutdown(shutdownCtx)
}
