package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	apphttp "costbook/internal/http"
	"costbook/internal/log"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(rt *runtime) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = ":" + rt.app.Config.Port
			}
			logger := rt.app.Logger()
			srv := apphttp.NewServer(addr, rt.app.Tracker, logger)

			ctx, done := GracefulShutdown(logger, shutdownTimeout, func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Error("Server shutdown error", log.FieldError, err)
				}
			})

			logger.Info("Starting costbook server", "addr", addr, "backend", rt.app.Config.DataBackend)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Server error", log.FieldError, err, "addr", addr)
				return err
			}
			WaitForShutdown(ctx, done)
			logger.Info("Server stopped gracefully")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: :$PORT)")
	return cmd
}
