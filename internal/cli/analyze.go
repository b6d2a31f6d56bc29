package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"crypto-analyzer/internal/analyzer"
	apperrors "crypto-analyzer/internal/errors"
	"crypto-analyzer/internal/market"
	"crypto-analyzer/internal/models"
	"crypto-analyzer/internal/store"
)

// commandTimeout bounds a whole command, including every fetch it makes.
const commandTimeout = 2 * time.Minute

func addAnalysisCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newMTFCmd(app))
	rootCmd.AddCommand(newScanCmd(app))
}

func newAnalyzeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <symbol>",
		Short: "Technical analysis and signal for a symbol",
		Long: `Fetch recent candles and derive a trading signal for the latest one:
- Trend: EMA 20/50/200, MACD 12/26/9
- Momentum: RSI 14
- Volatility: ATR 14, Bollinger Bands 20/2
- Price action: engulfing, hammer and doji patterns

The result includes ATR-based stop loss and three take-profit levels.`,
		Example: `  analyzer analyze BTCUSDT
  analyzer analyze ethusdt -i 4h -l 200
  analyzer analyze SOLUSDT --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			req, err := requestFromFlags(cmd)
			if err != nil {
				return err
			}
			req.Symbol = args[0]

			result, err := app.Service.RunAnalysis(ctx, req)
			if err != nil {
				reportError(output, strings.ToUpper(args[0]), err)
				return err
			}

			if output.Structured() {
				return output.Document(result)
			}
			displayAnalysis(output, result)
			return nil
		},
	}

	addRequestFlags(cmd)
	return cmd
}

func newMTFCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mtf <symbol>",
		Short: "Multi-timeframe signal agreement",
		Long: `Classify a symbol as BUY, SELL or HOLD on every configured timeframe
(all 13 from 1m to 1w by default) and summarise how far they agree.

A timeframe that cannot be fetched or analysed counts as HOLD.`,
		Example: `  analyzer mtf BTCUSDT
  analyzer mtf ETHUSDT --yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			summary, err := app.Service.RunMultiTimeframeAnalysis(ctx, args[0])
			if err != nil {
				reportError(output, strings.ToUpper(args[0]), err)
				return err
			}

			if output.Structured() {
				return output.Document(summary)
			}
			displayMTF(output, summary)
			return nil
		},
	}
	return cmd
}

func newScanCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [symbols...]",
		Short: "Analyze several symbols",
		Long: `Run the single-timeframe analysis for each symbol. A symbol that fails
is reported on its own row and does not stop the scan.

Symbols come from the arguments, from a watchlist (--list), or both.`,
		Example: `  analyzer scan BTCUSDT ETHUSDT SOLUSDT
  analyzer scan --list majors -i 4h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			req, err := requestFromFlags(cmd)
			if err != nil {
				return err
			}

			symbols := append([]string(nil), args...)
			if list, _ := cmd.Flags().GetString("list"); list != "" {
				ws, err := app.Watchlists()
				if err != nil {
					return err
				}
				listed, err := ws.GetWatchlist(ctx, list)
				if err != nil {
					return err
				}
				symbols = append(symbols, listed...)
			}
			symbols = market.DedupeSymbols(symbols)
			if len(symbols) == 0 {
				output.Warning("No symbols to scan. Pass symbols or --list <watchlist>.")
				return apperrors.NewValidationError("symbols", "", "no symbols given", apperrors.ErrInvalidSymbol)
			}

			start := time.Now()
			results := app.Service.RunBatch(ctx, symbols, req.Interval, req.Lookback)
			if output.Structured() {
				return output.Document(results)
			}
			displayScan(output, results, time.Since(start))
			return nil
		},
	}

	addRequestFlags(cmd)
	cmd.Flags().String("list", "", "scan the symbols of a watchlist (e.g. "+store.DefaultList+")")
	return cmd
}

func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("interval", "i", "", "candle interval: "+intervalNames()+" (default from config)")
	cmd.Flags().IntP("lookback", "l", 0, fmt.Sprintf("candles to fetch, %d-%d (default from config)", analyzer.MinLookback, analyzer.MaxLookback))
}

func requestFromFlags(cmd *cobra.Command) (analyzer.Request, error) {
	var req analyzer.Request
	if s, _ := cmd.Flags().GetString("interval"); s != "" {
		iv, err := models.ParseInterval(s)
		if err != nil {
			return req, err
		}
		req.Interval = iv
	}
	req.Lookback, _ = cmd.Flags().GetInt("lookback")
	return req, nil
}

func intervalNames() string {
	names := make([]string, 0, len(models.AllIntervals()))
	for _, iv := range models.AllIntervals() {
		names = append(names, string(iv))
	}
	return strings.Join(names, " ")
}

func reportError(output *Output, symbol string, err error) {
	if output.Structured() {
		_ = output.Document(map[string]string{
			"symbol": symbol,
			"error":  err.Error(),
			"kind":   apperrors.Kind(err),
		})
		return
	}
	output.Error("%s: %v", symbol, err)
}

func displayAnalysis(output *Output, r models.AnalysisResult) {
	output.Println()
	output.Bold("%s · %s · %s", r.Symbol, r.Interval, FormatTime(r.CandleTime))
	output.Printf("  Signal:   %s\n", output.SignalText(r.Signal))
	output.Printf("  Score:    %s\n", FormatScore(r.Score))
	output.Printf("  Pattern:  %s\n", r.Pattern)
	output.Printf("  Profile:  %s\n", output.DimText(r.Profile))
	output.Println()

	output.Bold("Levels")
	t := NewTable(output, "", "PRICE", "DISTANCE")
	t.AddRow("Price", FormatPrice(r.Price), "")
	t.AddRow("Volume", FormatVolume(r.Volume), "")
	t.AddRow("Stop Loss", FormatLevel(r.StopLoss), FormatDistance(r.Price, r.StopLoss))
	t.AddRow("Target 1", FormatLevel(r.TakeProfit1), FormatDistance(r.Price, r.TakeProfit1))
	t.AddRow("Target 2", FormatLevel(r.TakeProfit2), FormatDistance(r.Price, r.TakeProfit2))
	t.AddRow("Target 3", FormatLevel(r.TakeProfit3), FormatDistance(r.Price, r.TakeProfit3))
	t.Render()
	output.Printf("  Risk: %.2f%% of account\n", r.RiskPct)
	output.Println()

	output.Bold("Indicators")
	output.Printf("  RSI(14):    %s\n", FormatValue(r.RSI))
	output.Printf("  ATR(14):    %s\n", FormatLevel(r.ATR))
	output.Printf("  EMA(20):    %s\n", FormatLevel(r.EMA20))
	output.Printf("  EMA(50):    %s\n", FormatLevel(r.EMA50))
	output.Printf("  MACD Hist:  %s\n", FormatLevel(r.MACDHist))
}

func displayMTF(output *Output, s models.TimeframeSummary) {
	output.Println()
	output.Bold("%s · Multi-Timeframe", s.Symbol)

	t := NewTable(output, "TIMEFRAME", "SIGNAL", "NOTE")
	for _, tf := range s.Timeframes {
		note := ""
		if tf.Error != "" {
			note = output.DimText(tf.Error)
		}
		t.AddRow(string(tf.Interval), output.SignalText(tf.Signal), note)
	}
	t.Render()
	output.Println()

	output.Printf("  Buy:   %2d (%s)\n", s.BuyCount, FormatFraction(s.BuyFraction))
	output.Printf("  Sell:  %2d (%s)\n", s.SellCount, FormatFraction(s.SellFraction))
	output.Printf("  Hold:  %2d (%s)\n", s.HoldCount, FormatFraction(s.HoldFraction))
	output.Printf("  Verdict: %s\n", output.VerdictText(s.Verdict))
}

func displayScan(output *Output, results []analyzer.BatchResult, elapsed time.Duration) {
	output.Println()
	t := NewTable(output, "SYMBOL", "SIGNAL", "SCORE", "PRICE", "STOP", "TARGET 1", "PATTERN")
	failed := 0
	for _, r := range results {
		if r.Result == nil {
			failed++
			t.AddRow(strings.ToUpper(r.Symbol), output.Red("ERROR"), "", "", "", "", output.DimText(TruncateString(r.ErrorKind, 24)))
			continue
		}
		res := r.Result
		t.AddRow(
			res.Symbol,
			output.SignalText(res.Signal),
			fmt.Sprintf("%d", res.Score),
			FormatPrice(res.Price),
			FormatLevel(res.StopLoss),
			FormatLevel(res.TakeProfit1),
			string(res.Pattern),
		)
	}
	t.Render()
	output.Println()
	output.Dim("%d symbols, %d failed in %s", len(results), failed, FormatDuration(elapsed))
}
