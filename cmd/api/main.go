package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riskibarqy/chefscore/internal/app"
	"github.com/riskibarqy/chefscore/internal/config"
	"github.com/riskibarqy/chefscore/internal/observability"
	"github.com/riskibarqy/chefscore/internal/platform/logging"
)

const (
	shutdownTimeout = 10 * time.Second
	warmupTimeout   = 2 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, stopBetterStack, err := observability.InitBetterStackLogger(cfg, logging.NewJSON(cfg.LogLevel))
	if err != nil {
		panic(err)
	}
	logging.SetDefault(logger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := stopBetterStack(ctx); err != nil {
			logger.Error("betterstack shutdown failed", "error", err)
		}
	}()

	stopUptrace, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := stopUptrace(ctx); err != nil {
			logger.Error("uptrace shutdown failed", "error", err)
		}
	}()

	stopPyroscope, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := stopPyroscope(); err != nil {
			logger.Error("pyroscope shutdown failed", "error", err)
		}
	}()

	pprofSrv, err := observability.StartPprofServer(cfg, logger)
	if err != nil {
		logger.Error("start pprof server", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := observability.StopPprofServer(pprofSrv, logger, shutdownTimeout); err != nil {
			logger.Error("pprof shutdown failed", "error", err)
		}
	}()

	svc, cleanup, err := app.NewServices(cfg, logger)
	if err != nil {
		logger.Error("build services", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	srv, err := app.NewHTTPServer(cfg, svc, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		warmCtx, cancel := context.WithTimeout(ctx, warmupTimeout)
		defer cancel()
		app.Warmup(warmCtx, svc, logger)
	}()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", cfg.HTTPAddr, "source", cfg.DataSource, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		logger.Error("http server failed", "error", err)
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return
	}

	logger.Info("http server stopped")
}
