package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Enabled reports whether addr asks for a dedicated metrics listener.
func Enabled(addr string) bool {
	switch strings.ToLower(strings.TrimSpace(addr)) {
	case "", "off", "disabled", "false":
		return false
	}
	return true
}

// StartServer serves /metrics on addr until ctx is done. It returns nil
// values when addr disables the listener. Listen failures arrive on the
// returned channel.
func StartServer(ctx context.Context, addr string) (*http.Server, <-chan error) {
	if !Enabled(addr) {
		return nil, nil
	}
	addr = strings.TrimSpace(addr)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})

	return srv, errCh
}
