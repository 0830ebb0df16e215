package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/mcqrouter/internal/config"
	mcqhttp "github.com/fyrsmithlabs/mcqrouter/internal/http"
)

// serveCmd answers single questions over HTTP until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the answer API over HTTP",
	Long: `Start an HTTP server exposing:

  GET  /health          liveness
  GET  /metrics         Prometheus metrics
  POST /api/v1/answer   answer one question

Examples:
  mcqrouter serve
  MCQ_SERVER_PORT=9090 mcqrouter serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeApp(a)

	srv, err := mcqhttp.NewServer(a.router, a.answerer, a.logger.Named("http"), &mcqhttp.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
