package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"docstatus/internal/checker/handler"
	"docstatus/internal/checker/metrics"
	"docstatus/internal/checker/service"
	"docstatus/internal/checker/waiter"
	"docstatus/internal/platform/config"
	"docstatus/internal/platform/httpserver"
)

const disposeTimeout = 15 * time.Second

type loader func() (config.Config, *slog.Logger, error)

func serveCmd(v *viper.Viper, load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API backed by a pool of headless Chrome sessions.

Examples:
  docstatus serve --addr :8080
  DOCSTATUS_HTTP_API_TOKEN=secret docstatus serve -c /etc/docstatus.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, log)
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides http.addr)")
	_ = v.BindPFlag("http.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func runServe(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	waiters := waiter.New(log)
	svc, err := service.New(ctx, serviceConfig(cfg), waiters,
		service.WithLogger(log),
		service.WithMetrics(m),
	)
	if err != nil {
		return fmt.Errorf("start checker: %w", err)
	}
	defer func() {
		disposeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), disposeTimeout)
		defer cancel()
		if err := svc.Dispose(disposeCtx); err != nil {
			log.Error("dispose checker", "error", err)
		}
	}()

	h := handler.New(svc, waiters, handler.Config{
		RequestTimeout: cfg.HTTP.RequestTimeout,
		ManualCheckURL: cfg.Checker.TargetURL,
	}, log)
	router := handler.NewRouter(h, handler.RouterConfig{
		APIToken: cfg.HTTP.APIToken,
		Version:  Version,
		Gatherer: reg,
		Metrics:  m,
		Logger:   log,
	})

	log.Info("starting docstatus",
		"addr", cfg.HTTP.Addr,
		"version", Version,
		"pool_size", cfg.Chrome.PoolSize,
		"auth", cfg.HTTP.APIToken != "",
	)
	return httpserver.Serve(ctx, httpserver.New(cfg.HTTP.Addr, router, cfg.HTTP.RequestTimeout), log)
}
