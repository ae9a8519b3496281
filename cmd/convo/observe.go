package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/convo/internal/cli"
	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// setupHooks builds the lifecycle hooks shared by every command and, when
// --metrics-addr is set, starts the metrics server until ctx is done.
func setupHooks(ctx context.Context, cmd *cobra.Command, cfg cli.Config, logger *slog.Logger) []domain.LifecycleHooks {
	hooks := []domain.LifecycleHooks{observability.SpanEvents()}
	if cfg.Debug {
		hooks = append(hooks, cli.DebugHooks(logger))
	}

	addr, _ := cmd.Flags().GetString("metrics-addr")
	if addr == "" {
		return hooks
	}

	metrics := observability.MustNewMetrics(prometheus.DefaultRegisterer)
	hooks = append(hooks, metrics.Hooks())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("Starting metrics server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return hooks
}
