package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Nibir1/Nexus-Marine/internal/config"
	"github.com/Nibir1/Nexus-Marine/internal/db"
	"github.com/Nibir1/Nexus-Marine/internal/eventbus"
	"github.com/Nibir1/Nexus-Marine/internal/mylogger"
	"github.com/Nibir1/Nexus-Marine/internal/orders"
	"github.com/Nibir1/Nexus-Marine/internal/outbox"
	"github.com/Nibir1/Nexus-Marine/internal/secrets"
	"github.com/Nibir1/Nexus-Marine/internal/telemetry"
	"github.com/Nibir1/Nexus-Marine/internal/tracing"
	transport "github.com/Nibir1/Nexus-Marine/internal/transport/http"
	"github.com/Nibir1/Nexus-Marine/internal/transport/http/handler"
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

	tp, err := tracing.Init(ctx, "nexus-api")
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})

	busPublisher, closeProducer, err := eventbus.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.IngressTopic, logger)
	if err != nil {
		log.Fatalf("error creating bus publisher: %v", err)
	}

	// The pool waits for the first order: credentials come from the
	// secret store at cold start, once per process.
	resolver := secrets.NewFileResolver()
	lazyPool := db.NewLazy(func(ctx context.Context) (*pgxpool.Pool, error) {
		creds, err := resolver.Resolve(ctx, cfg.Pg.SecretPath)
		if err != nil {
			return nil, err
		}

		return db.NewPostgresPool(ctx, db.PoolConfig{
			Credentials: creds,
			Host:        cfg.Pg.Host,
			Port:        cfg.Pg.Port,
			Database:    cfg.Pg.Database,
		})
	})

	telemetryStore := telemetry.NewRedisStore(redisClient, logger)
	telemetryService := telemetry.NewService(telemetryStore, busPublisher, cfg.Bus.Name, logger)

	orderOpts := []orders.Option{orders.WithTxTimeout(cfg.Pg.TxTimeout)}

	var relay *outbox.Relay
	if cfg.Orders.Outbox {
		outboxRepo := outbox.NewRepository(logger)
		orderOpts = append(orderOpts, orders.WithOutbox(outboxRepo))
		relay = outbox.NewRelay(lazyPool, outboxRepo, busPublisher, logger)
	}

	orderRepo := orders.NewRepository(logger)
	orderService := orders.NewService(lazyPool, orderRepo, busPublisher, cfg.Bus.Name, logger, orderOpts...)

	if relay != nil {
		go relay.Start(ctx)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	go func() {
		http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
			Registry: reg,
		}))

		if err := http.ListenAndServe(cfg.HTTP.MetricsPort, nil); err != nil {
			log.Printf("Metrics serving failed: %v", err)
		}
	}()

	app := fiber.New(fiber.Config{ReadTimeout: cfg.HTTP.Timeout})
	transport.RegisterRoutes(app, &transport.Handlers{
		Telemetry: handler.NewTelemetryHandler(telemetryService, logger),
		Orders:    handler.NewOrdersHandler(orderService, logger),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			log.Fatalf("error serving http: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, exit := context.WithTimeout(context.Background(), 5*time.Second)
	defer exit()

	mylogger.Info(shutdownCtx, logger, "Shutting down API server")

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "HTTP shutdown failed", zap.Error(err))
	}

	if err := closeProducer(); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to close producer", zap.Error(err))
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to shut down tracing", zap.Error(err))
	}

	if err := redisClient.Close(); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to close redis client", zap.Error(err))
	}

	lazyPool.Close()
}
