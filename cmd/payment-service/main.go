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
	"orderflow/internal/outbox"
	"orderflow/internal/repository"
	"orderflow/internal/services"
	"orderflow/pkg/database"
	"orderflow/pkg/kafka"
	"orderflow/pkg/logger"
)

func main() {
	cfg := config.Load("payment-service", "payments", "8082")

	mode := logger.DevelopmentMode
	if cfg.Server.Environment == "production" {
		mode = logger.ProductionMode
	}
	l := logger.New(mode)
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

	if err := database.ApplyMigrations(db, "migrations/payment"); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	producer, err := kafka.NewProducer(ctx, cfg.Kafka.Brokers)
	if err != nil {
		log.Fatalf("Failed to connect to Kafka: %v", err)
	}
	defer producer.Close()

	txManager := repository.NewTxManager(db)
	paymentRepo := repository.NewPaymentRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)
	processedRepo := repository.NewProcessedEventRepository(db)

	paymentService := services.NewPaymentService(
		txManager, paymentRepo, outboxRepo, processedRepo,
		cfg.Payment.SuccessRate, cfg.Payment.ForceOutcome, l)

	relay := outbox.NewRelay(outboxRepo, producer, cfg.Outbox.RelayInterval, cfg.Outbox.BatchSize, l)
	relay.Start(ctx)
	defer relay.Stop()

	sweeper := outbox.NewSweeper(outboxRepo, outbox.RetentionFromDays(cfg.Outbox.RetentionDays), cfg.Outbox.SweepInterval, l)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	inventoryEvents := consumer.NewInventoryEventsConsumer(paymentService, l)
	inventoryConsumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, events.TopicInventoryEvents, inventoryEvents.Handle)
	inventoryConsumer.Start(ctx)
	defer inventoryConsumer.Stop()

	l.Infof("payment service running (success rate %.2f)", cfg.Payment.SuccessRate)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	l.Infof("Quitting signal received.. Shutting down")
	cancel()
}
