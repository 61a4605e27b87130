package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rickgao/comandas/internal/api"
	"github.com/rickgao/comandas/internal/config"
	"github.com/rickgao/comandas/internal/connection"
	"github.com/rickgao/comandas/internal/metrics"
	"github.com/rickgao/comandas/internal/registry"
	"github.com/rickgao/comandas/internal/router"
	"github.com/rickgao/comandas/internal/routing"
	"github.com/rickgao/comandas/internal/version"
)

func main() {
	started := time.Now()

	configPath := flag.String("config", "", "path to config file (defaults only when empty)")
	port := flag.Int("port", 0, "listen port, overrides server.port and WEBSOCKET_PORT")
	flag.Parse()

	// A bare positional port is accepted as well: relay 9000
	if *port == 0 && flag.NArg() > 0 {
		if p, err := strconv.Atoi(flag.Arg(0)); err == nil {
			*port = p
		}
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
		if err := cfg.Validate(); err != nil {
			slog.Error("invalid port override", "error", err)
			os.Exit(1)
		}
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting relay",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	table, err := cfg.RoutingTable()
	if err != nil {
		logger.Error("failed to build routing table", "error", err)
		os.Exit(1)
	}
	logRoutes(logger, table)

	// Core components
	reg := registry.New()
	conns := connection.NewServer(cfg.ConnectionConfig(), logger.With("component", "connection"))

	var (
		routerMetrics *metrics.RouterMetrics
		gatherer      prometheus.Gatherer
	)
	if cfg.Metrics.MetricsEnabled() {
		promReg := prometheus.NewRegistry()
		promReg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		routerMetrics = metrics.NewRouterMetrics(promReg)
		if err := routerMetrics.Register(); err != nil {
			logger.Error("failed to register metrics", "error", err)
			os.Exit(1)
		}
		if err := routerMetrics.RegisterConnectionGauges(reg); err != nil {
			logger.Error("failed to register connection gauges", "error", err)
			os.Exit(1)
		}
		gatherer = promReg
	}

	rt := router.New(cfg.RouterConfig(), reg, table, conns,
		router.WithLogger(logger.With("component", "router")),
		router.WithMetrics(routerMetrics),
	)
	conns.SetEventHandler(rt)

	handler := api.NewHandler(api.Config{
		WebSocketPath: cfg.WebSocket.Path,
		MetricsPath:   cfg.Metrics.Path,
	}, api.Deps{
		Registry:  reg,
		Router:    rt,
		Table:     table,
		WebSocket: conns,
		Gatherer:  gatherer,
	}, logger)

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	// Create context with cancellation
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			"addr", cfg.Addr(),
			"websocket_path", cfg.WebSocket.Path,
			"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			logger.Error("http server error", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not tracked by http.Server.
	if err := conns.Shutdown(shutdownCtx); err != nil {
		logger.Warn("connection shutdown incomplete", "error", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown incomplete", "error", err)
	}

	stats := rt.Stats()
	logger.Info("relay stopped",
		"messages", stats.MessagesReceived,
		"deliveries", stats.Deliveries,
		"uptime", time.Since(started).Round(time.Second),
	)
}

// newLogger builds the process logger from the logging section.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func logRoutes(logger *slog.Logger, table *routing.Table) {
	for _, typ := range table.Types() {
		roles := table.Lookup(typ)
		names := make([]string, len(roles))
		for i, r := range roles {
			names[i] = r.String()
		}
		logger.Info("route", "type", typ, "roles", names)
	}
	logger.Info("routing table loaded", "routes", table.Len())
}
