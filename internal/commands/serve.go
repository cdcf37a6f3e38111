package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meterbook-dev/meterbook/internal/httpapi"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			api := httpapi.New(a.ledger(), httpapi.Options{
				WriteRPS:       a.cfg.Server.WriteRPS,
				WriteBurst:     a.cfg.Server.WriteBurst,
				AllowedOrigins: a.cfg.Server.AllowedOrigins,
			})
			srv := &http.Server{
				Addr:              addr,
				Handler:           api,
				ReadHeaderTimeout: 5 * time.Second,
			}

			// Graceful shutdown
			go func() {
				<-ctx.Done()
				zap.L().Info("shutting down server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					zap.L().Warn("server shutdown", zap.Error(err))
				}
			}()

			zap.L().Info("starting server",
				zap.String("addr", addr),
				zap.String("data_dir", a.cfg.Dir),
			)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	return cmd
}
