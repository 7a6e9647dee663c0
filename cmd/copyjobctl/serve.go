package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	httpapp "github.com/Azure/cosmos-explorer-sub010/internal/http"
	"github.com/Azure/cosmos-explorer-sub010/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:         "serve",
	Short:       "Run the copy-job JSON API.",
	Args:        cobra.NoArgs,
	Annotations: structuredLog(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	svc, err := newServices()
	if err != nil {
		return err
	}

	_, metricsErrCh := metrics.StartServer(ctx, svc.cfg.MetricsAddr)

	srv := httpapp.NewEchoServer(httpapp.Deps{
		ARM:         svc.arm,
		Resolver:    svc.resolver,
		Remediator:  svc.remediator,
		SessionIdle: svc.cfg.SessionIdle,
	})
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              svc.cfg.HTTPAddr,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", svc.cfg.HTTPAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return nil
	case err := <-metricsErrCh:
		return err
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
