package cli

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"crypto-analyzer/internal/api"
	apperrors "crypto-analyzer/internal/errors"
)

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve analyses over HTTP:

  GET /healthz
  GET /v1/analysis/:symbol?interval=1h&lookback=100
  GET /v1/mtf/:symbol
  GET /v1/scan?symbols=BTCUSDT,ETHUSDT  or  ?list=majors
  GET /v1/watchlists
  GET /v1/watchlists/:name`,
		Example: `  analyzer serve
  analyzer serve --addr 127.0.0.1:9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = app.Config.Server.Addr
			}

			ws, err := app.Watchlists()
			if err != nil {
				// Analysis routes still work without the database.
				app.Logger.Warn().Err(err).Msg("Watchlists unavailable")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := api.NewServer(app.Service, ws, app.Logger, Version)
			err = srv.Run(ctx, addr, app.Config.Server.ReadTimeout, app.Config.Server.WriteTimeout)
			if apperrors.Is(err, http.ErrServerClosed) || apperrors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().String("addr", "", "listen address (default from config)")
	return cmd
}
