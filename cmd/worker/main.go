// Package main provides the SQS worker that processes uploaded videos.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/maauso/video-processing-service/internal/bootstrap"
	"github.com/maauso/video-processing-service/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.RequireQueue(); err != nil {
		return err
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting video worker",
		slog.String("queue_url", cfg.SQSQueueURL),
		slog.String("raw_dir", cfg.RawDir),
		slog.String("processed_dir", cfg.ProcessedDir),
		slog.String("metadata_backend", cfg.MetadataBackend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	if err := deps.VideoService.SetupDirectories(); err != nil {
		return fmt.Errorf("setup directories: %w", err)
	}

	consumer, err := deps.NewQueueConsumer(cfg, logger)
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}
	return consumer.Run(ctx)
}
