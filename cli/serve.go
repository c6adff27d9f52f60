/*
serve.go - HTTP server subcommand

STARTUP SEQUENCE:
  1. Load configuration and rules (root PersistentPreRunE)
  2. Open the ledger store and locker
  3. Create API handler with dependencies
  4. Start the maintenance scheduler when XP_MAINTENANCE_INTERVAL is set
  5. Configure HTTP router
  6. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the store (deferred by Run)

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
*/
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/atlantyde-labs/cognitive-suite/api"
)

func newServeCmd(a *app) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ledger HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			engine, err := a.openEngine(ctx)
			if err != nil {
				return err
			}

			handler := api.NewHandler(engine, a.logger)
			handler.Scheduler.Interval = a.cfg.MaintenanceInterval
			handler.Scheduler.Start()
			defer handler.Scheduler.Stop()

			server := &http.Server{
				Addr:         fmt.Sprintf(":%d", a.cfg.Port),
				Handler:      api.NewRouter(handler),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 60 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				a.logger.Info("server starting",
					slog.Int("port", a.cfg.Port), slog.String("store", a.cfg.Store))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			select {
			case err := <-errc:
				if err != nil {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			a.logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}
			a.logger.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (overrides XP_PORT)")
	return cmd
}
