package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/i474232898/aqi-traffic-ingestion/internal/app"
	"github.com/i474232898/aqi-traffic-ingestion/internal/config"
	"github.com/i474232898/aqi-traffic-ingestion/internal/logging"
)

var version = "dev"

const appName = "aqi-traffic-ingestion"

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg, version, appName)
	slog.SetDefault(logger)

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("run failed", "err", err)
		stop()
		os.Exit(1)
	}

	logger.Info("shutting down")
}
