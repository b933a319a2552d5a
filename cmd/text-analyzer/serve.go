package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ggoodman/text-analyzer-mcp/internal/config"
	"github.com/ggoodman/text-analyzer-mcp/internal/metrics"
	"github.com/ggoodman/text-analyzer-mcp/stdio"
	"github.com/ggoodman/text-analyzer-mcp/streaminghttp"
	"github.com/ggoodman/text-analyzer-mcp/textanalyzer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newStdioCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Serve MCP over stdin and stdout (newline-delimited JSON-RPC)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serveStdio(cmd.Context())
		},
	}
}

func newHTTPCmd(a *app, defaults config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve MCP over streamable HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serveHTTP(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.String("addr", defaults.Addr, "listen address (env TEXT_ANALYZER_ADDR)")
	f.String("endpoint", defaults.Endpoint, "MCP endpoint path (env TEXT_ANALYZER_ENDPOINT)")
	f.String("metrics-path", defaults.MetricsPath, "Prometheus metrics path, empty to disable (env TEXT_ANALYZER_METRICS_PATH)")
	f.Float64("rate-limit", defaults.RateLimit, "requests per second across all clients, 0 to disable (env TEXT_ANALYZER_RATE_LIMIT)")
	f.Int("rate-burst", defaults.RateBurst, "rate limiter burst (env TEXT_ANALYZER_RATE_BURST)")
	f.Duration("session-idle-ttl", defaults.SessionIdleTTL, "discard sessions idle for this long, 0 to keep (env TEXT_ANALYZER_SESSION_IDLE_TTL)")
	f.Duration("shutdown-timeout", defaults.ShutdownTimeout, "graceful shutdown bound (env TEXT_ANALYZER_SHUTDOWN_TIMEOUT)")

	return cmd
}

func (a *app) serveStdio(ctx context.Context) error {
	h := stdio.NewHandler(textanalyzer.New(),
		stdio.WithIO(a.stdin, a.stdout),
		stdio.WithLogger(a.log),
	)
	if err := h.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve stdio: %w", err)
	}
	return nil
}

func (a *app) serveHTTP(ctx context.Context) error {
	cfg := a.cfg

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	h, err := streaminghttp.New(textanalyzer.New(),
		streaminghttp.WithEndpoint(cfg.Endpoint),
		streaminghttp.WithLogger(a.log),
		streaminghttp.WithMetrics(m),
		streaminghttp.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		streaminghttp.WithSessionIdleTTL(cfg.SessionIdleTTL),
	)
	if err != nil {
		return fmt.Errorf("create http handler: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Endpoint, h)
	if cfg.MetricsPath != "" {
		mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.InfoContext(ctx, "http.listen",
			slog.String("addr", cfg.Addr),
			slog.String("endpoint", cfg.Endpoint),
			slog.String("metrics_path", cfg.MetricsPath),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		start := time.Now()
		var (
			shutdownCtx context.Context
			cancel      context.CancelFunc
		)
		if cfg.ShutdownTimeout > 0 {
			shutdownCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		} else {
			shutdownCtx, cancel = context.WithCancel(context.WithoutCancel(ctx))
		}
		defer cancel()

		h.Close(shutdownCtx)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.ErrorContext(shutdownCtx, "http.shutdown.fail", slog.String("err", err.Error()))
			return fmt.Errorf("shutdown: %w", err)
		}
		a.log.InfoContext(shutdownCtx, "http.shutdown.ok", slog.Duration("dur", time.Since(start)))
		return nil
	})

	return g.Wait()
}
