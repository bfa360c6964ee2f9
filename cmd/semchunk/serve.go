package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/semchunk/internal/mcp"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chunking tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			ctx := cmd.Context()

			if addr := a.cfg.Metrics.Addr; addr != "" {
				stop := serveMetrics(a, addr)
				defer stop()
			}

			// Log startup info to stderr (stdout reserved for MCP protocol)
			a.log.Info("semchunk MCP server starting", "version", version)
			err = mcp.NewServer(a.chunker, version, a.log).Serve(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			a.log.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	return cmd
}

// serveMetrics exposes /metrics in the background and returns a shutdown
// function.
func serveMetrics(a *app, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.log.Info("metrics endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics endpoint failed", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
