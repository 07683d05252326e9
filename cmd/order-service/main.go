package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"orderflow/internal/config"
	"orderflow/internal/consumer"
	"orderflow/internal/events"
	"orderflow/internal/handler"
	"orderflow/internal/outbox"
	"orderflow/internal/redis"
	"orderflow/internal/repository"
	"orderflow/internal/server"
	"orderflow/internal/services"
	"orderflow/pkg/database"
	"orderflow/pkg/kafka"
	"orderflow/pkg/logger"
)

func main() {
	cfg := config.Load("order-service", "orders", "8080")

	l := logger.New(loggerMode(cfg))
	defer l.Sync()
	logger.SetGlobalLogger(l)

	db, err := database.Connect(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.ApplyMigrations(db, "migrations/order"); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	redis.Initialize(redisConfig(cfg))
	limiter := redis.NewRateLimiter(redis.GetClient(), redis.RateLimitConfig{
		CreateLimit:  cfg.RateLimit.CreateLimit,
		CreateWindow: cfg.RateLimit.CreateWindow,
		ReadLimit:    cfg.RateLimit.ReadLimit,
		ReadWindow:   cfg.RateLimit.ReadWindow,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	producer, err := kafka.NewProducer(ctx, cfg.Kafka.Brokers)
	if err != nil {
		log.Fatalf("Failed to connect to Kafka: %v", err)
	}
	defer producer.Close()

	txManager := repository.NewTxManager(db)
	orderRepo := repository.NewOrderRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)
	processedRepo := repository.NewProcessedEventRepository(db)

	orderService := services.NewOrderService(txManager, orderRepo, outboxRepo, idempotencyRepo, processedRepo, l)

	relay := outbox.NewRelay(outboxRepo, producer, cfg.Outbox.RelayInterval, cfg.Outbox.BatchSize, l)
	relay.Start(ctx)
	defer relay.Stop()

	sweeper := outbox.NewSweeper(outboxRepo, outbox.RetentionFromDays(cfg.Outbox.RetentionDays), cfg.Outbox.SweepInterval, l)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	sagaConsumer := consumer.NewSagaEventConsumer(orderService, l)
	inventoryConsumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, events.TopicInventoryEvents, sagaConsumer.Handle)
	inventoryConsumer.Start(ctx)
	defer inventoryConsumer.Stop()

	paymentConsumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, events.TopicPaymentEvents, sagaConsumer.Handle)
	paymentConsumer.Start(ctx)
	defer paymentConsumer.Stop()

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Order: handler.NewOrderHandler(orderService),
	}, limiter, db.Ping)
	srv.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	l.Infof("Quitting signal received.. Shutting down")
	if err := srv.Shutdown(); err != nil {
		l.Errorf("Server shutdown error: %v", err)
	}
	cancel()
}

func loggerMode(cfg *config.Config) string {
	if cfg.Server.Environment == "production" {
		return logger.ProductionMode
	}
	return logger.DevelopmentMode
}

func redisConfig(cfg *config.Config) redis.Config {
	host, port := splitAddr(cfg.Redis.Addr)
	return redis.Config{
		Host:     host,
		Port:     port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

func splitAddr(addr string) (string, string) {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i], addr[i+1:]
		}
	}
	return addr, "6379"
}
