package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/codeshell/internal/cli"
	httpadapter "github.com/aretw0/codeshell/pkg/adapters/http"
	"github.com/aretw0/codeshell/pkg/observability"
	"github.com/aretw0/lifecycle"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Exposes the workspaces as a JSON API over HTTP, with a Server-Sent Events stream per workspace.
The OpenAPI document is served on /openapi.yaml and Prometheus metrics on /metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")
		withMetrics, _ := cmd.Flags().GetBool("metrics")

		opts := optionsFrom(cmd)
		if opts.LogLevel == "" {
			opts.LogLevel = "info"
		}
		var handlerOpts []httpadapter.Option
		if withMetrics {
			opts.Metrics = observability.NewMetrics(nil)
			handlerOpts = append(handlerOpts, httpadapter.WithMetrics(opts.Metrics))
		}

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		app, err := cli.Build(sigCtx, opts)
		if err != nil {
			return err
		}
		defer app.Close()

		handlerOpts = append(handlerOpts, httpadapter.WithLogger(app.Logger))
		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           httpadapter.NewHandler(app.Shell, handlerOpts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		lifecycle.Go(sigCtx, func(ctx context.Context) error {
			app.Logger.Info("HTTP server listening", "address", srv.Addr, "metrics", withMetrics)
			fmt.Printf("Starting codeshell server on %s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
			return nil
		})

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)
		case <-sigCtx.Done():
			fmt.Printf("\nStart shutdown... Signal: %v\n", sigCtx.Signal())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				_ = srv.Close()
				return fmt.Errorf("graceful shutdown did not complete in %v: %w", 5*time.Second, err)
			}
			fmt.Println("codeshell server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().Bool("metrics", true, "Serve Prometheus metrics on /metrics")
}
