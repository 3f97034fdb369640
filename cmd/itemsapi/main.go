package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/platinummonkey/itemsapi/pkg/app"
	"github.com/platinummonkey/itemsapi/pkg/config"
	"github.com/platinummonkey/itemsapi/pkg/observability"
)

func main() {
	ctx, stop := signalContext()
	code := run(ctx)
	stop()
	os.Exit(code)
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func run(ctx context.Context) int {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "itemsapi: %v\n", err)
		return 1
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithFields(map[string]interface{}{
		"addr":         cfg.Server.Addr(),
		"log_level":    cfg.Observability.LogLevel.String(),
		"metrics":      cfg.Observability.MetricsEnabled,
		"otel":         cfg.Observability.OTelEnabled,
		"rate_limit":   cfg.RateLimit.Enabled,
		"cors_origin":  cfg.HTTP.CORSOrigin,
		"max_body":     cfg.HTTP.MaxBodyBytes,
		"shutdown_ttl": cfg.Server.ShutdownTimeout.String(),
	}).Info("Starting itemsapi")

	a, err := app.New(ctx, cfg, logger)
	if errors.Is(err, app.ErrInterrupted) {
		logger.Info("Stopped before startup completed")
		return 0
	}
	if err != nil {
		logger.WithError(err).Error("Startup failed")
		return 1
	}

	if err := a.Run(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		return 1
	}
	return 0
}
