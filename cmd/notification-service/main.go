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
	"orderflow/internal/repository"
	"orderflow/internal/services"
	"orderflow/pkg/database"
	"orderflow/pkg/kafka"
	"orderflow/pkg/logger"
)

func main() {
	cfg := config.Load("notification-service", "notifications", "8083")

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

	if err := database.ApplyMigrations(db, "migrations/notification"); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	txManager := repository.NewTxManager(db)
	notificationRepo := repository.NewNotificationRepository(db)
	processedRepo := repository.NewProcessedEventRepository(db)

	notificationService := services.NewNotificationService(txManager, notificationRepo, processedRepo, l)

	finalEvents := consumer.NewOrderFinalEventsConsumer(notificationService, l)
	orderConsumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, events.TopicOrderEvents, finalEvents.Handle)
	orderConsumer.Start(ctx)
	defer orderConsumer.Stop()

	l.Infof("notification service running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	l.Infof("Quitting signal received.. Shutting down")
	cancel()
}
