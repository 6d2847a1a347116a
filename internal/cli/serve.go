package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/recordupdate/internal/config"
)

// shutdownTimeout bounds the wait for in-flight requests on shutdown.
const shutdownTimeout = 15 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the update API over HTTP",
		Long: `Serve the update service over HTTP.

Routes:
  POST /api/v1/update    run a JSON request
  POST /api/v1/validate  validate a JSON request
  GET  /healthz          liveness
  GET  /metrics          Prometheus metrics

The server stops gracefully on SIGINT or SIGTERM.

Examples:
  recordupdate serve --db records.db --addr :8080
  RECORDUPDATE_DATABASE_DRIVER=pgx RECORDUPDATE_DATABASE_DSN=postgres://... recordupdate serve`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default from metrics.addr)")
	_ = rootOpts.Viper.BindPFlag(config.KeyMetricsAddr, cmd.Flags().Lookup("addr"))
	return cmd
}

func runServe(opts *RootOptions, cmd *cobra.Command) error {
	a, err := openApp(opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.Error("error closing database", "error", err)
		}
	}()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.cfg.Metrics.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}
	srv := &http.Server{
		Handler:           NewServer(a.service, a.metrics, a.logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	a.logger.Info("server started", "addr", ln.Addr().String(), "driver", a.cfg.Database.Driver)
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s. Press Ctrl-C to stop.\n", ln.Addr())

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server error", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown failed", err)
	}
	a.logger.Info("server stopped gracefully")
	return nil
}
