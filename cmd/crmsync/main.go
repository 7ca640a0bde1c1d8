package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Nibir1/Nexus-Marine/internal/config"
	"github.com/Nibir1/Nexus-Marine/internal/crmsync"
	"github.com/Nibir1/Nexus-Marine/internal/mylogger"
	"github.com/Nibir1/Nexus-Marine/internal/queue"
	"github.com/Nibir1/Nexus-Marine/internal/tracing"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()

	logger, err := config.NewLogger(config.LoggerConfig{Level: "info", Env: cfg.Env})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	tp, err := tracing.Init(ctx, "nexus-crmsync")
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})

	hostname, _ := os.Hostname()
	streams := queue.NewStreams(redisClient, queue.StreamsConfig{
		Group:         cfg.Queues.Group,
		Consumer:      "crmsync-" + hostname,
		Visibility:    cfg.Queues.Visibility,
		MaxDeliveries: cfg.Queues.MaxDeliveries,
	}, logger)

	consumer := crmsync.NewConsumer(
		streams,
		crmsync.NewSalesforceClient(logger),
		cfg.Queues.CRMSync,
		cfg.Queues.BatchSize,
		logger,
	)

	if err := consumer.Run(ctx); err != nil {
		mylogger.Error(ctx, logger, "CRM sync consumer failed", zap.Error(err))
	}

	shutdownCtx, exit := context.WithTimeout(context.Background(), 5*time.Second)
	defer exit()

	mylogger.Info(shutdownCtx, logger, "Shutting down CRM sync consumer")

	if err := tp.Shutdown(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to shut down tracing", zap.Error(err))
	}

	if err := redisClient.Close(); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to close redis client", zap.Error(err))
	}
}
