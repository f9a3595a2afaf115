package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/riskibarqy/pickup-matchmaking/internal/app"
	"github.com/riskibarqy/pickup-matchmaking/internal/config"
	"github.com/riskibarqy/pickup-matchmaking/internal/observability"
	"github.com/riskibarqy/pickup-matchmaking/internal/platform/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("load config", "error", err)
		os.Exit(1)
	}

	logger := logging.NewJSON(cfg.LogLevel, logging.WithService(cfg.ServiceName)).With(
		"env", cfg.AppEnv,
		"version", cfg.ServiceVersion,
	)
	logging.SetDefault(logger)

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		os.Exit(1)
	}
	stopProfiler, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, logger)
	stop()

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		logger.Warn("flush traces failed", "error", err)
	}
	if err := stopProfiler(); err != nil {
		logger.Warn("stop profiler failed", "error", err)
	}
	_ = logger.Sync()
	os.Exit(code)
}

func run(ctx context.Context, cfg config.Config, logger *logging.Logger) int {
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		return 1
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close app", "error", err)
		}
	}()

	logger.Info("pickup matchmaking starting", "ops_addr", cfg.OpsHTTPAddr)
	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("app stopped with error", "error", err)
		return 1
	}
	logger.Info("pickup matchmaking stopped")
	return 0
}
