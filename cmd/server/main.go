// Command server runs the inventory, cancellation and commission service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/amadile/Shopping-site-sub001/internal/app"
	"github.com/amadile/Shopping-site-sub001/internal/config"
	"github.com/amadile/Shopping-site-sub001/pkg/logger"
)

const serviceName = "inventory-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.LogLevel)
	if err := run(cfg, log); err != nil {
		log.Error("service exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("inventory service stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	log.Info("starting inventory service",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("storage_driver", cfg.StorageDriver),
		slog.Bool("kafka_enabled", cfg.KafkaEnabled),
	)

	application, err := app.NewApp(cfg, log)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return application.Run(ctx)
}
