package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/reel/internal/cli"
	httpAdapter "github.com/aretw0/reel/pkg/adapters/http"
)

// drainTimeout bounds how long shutdown waits for background runs.
const drainTimeout = time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the generator as an HTTP service: POST /generate runs synchronously,
POST /runs in the background. Published videos are served under /static/videos/.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd, map[string]string{"http.addr": "addr"})
		if err != nil {
			return err
		}
		defer app.Close()
		cfg := app.Config
		logger := app.Logger

		handler := httpAdapter.NewHandler(app.Generator,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithMaxConcurrentRuns(cfg.Engine.MaxConcurrentRuns),
			httpAdapter.WithCORSOrigins(cfg.HTTP.CORSOrigins...),
			httpAdapter.WithMetrics(app.Metrics.Handler()),
			httpAdapter.WithStaticDir(cfg.Publish.Dir),
		)
		srv := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("reel server listening", "address", srv.Addr, "store", cfg.Store.Driver)
			serverErrors <- srv.ListenAndServe()
		}()

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-ctx.Done():
			logger.Info("shutting down", "signal", fmt.Sprint(ctx.Signal()))

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("graceful shutdown did not complete", "error", err)
				srv.Close()
			}

			drained := make(chan struct{})
			go func() {
				app.Generator.Wait()
				close(drained)
			}()
			select {
			case <-drained:
				logger.Info("reel server stopped gracefully")
			case <-time.After(drainTimeout):
				logger.Warn("background runs still in progress at exit", "waited", drainTimeout)
			}
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on (default :8000)")
}
