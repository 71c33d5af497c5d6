package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"moviestats/internal/api"
	"moviestats/internal/config"
	"moviestats/internal/engine"
	"moviestats/internal/logging"
	"moviestats/internal/metrics"
)

func main() {
	// 1. Configuration and logging
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load(os.Getenv(config.EnvConfigPath))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	loader := engine.NewLoader(
		engine.WithHTTPClient(&http.Client{Timeout: cfg.Dataset.FetchTimeout}),
		engine.WithMaxBytes(cfg.Dataset.MaxBytes),
		engine.WithLogger(logger.Named("loader")),
		engine.WithObserver(m),
	)

	// 2. Handler starts with no data and answers 503 until the load finishes
	h := api.NewHandler(cfg.Query, logger.Named("api"), m)
	e := api.NewServer(cfg, h, logger.Named("http"), reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Load the dataset in the background; one attempt, no retry
	go func() {
		h.SetData(loader.Load(ctx, cfg.Dataset.Source))
	}()

	// 4. Serve until interrupted
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr), zap.String("source", cfg.Dataset.Source))
		if err := e.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
