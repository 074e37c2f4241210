package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/badogar/solidus/internal/config"
	"github.com/badogar/solidus/internal/infrastructure/kafka"
	"github.com/badogar/solidus/internal/infrastructure/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Must("error").Fatal("load config", zap.Error(err))
	}
	logger := logging.Must(cfg.Log.Level).Named("checkout")
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting checkout service",
		zap.String("event_store", cfg.Events.Backend),
		zap.Strings("kafka", cfg.Kafka.Brokers),
		zap.String("commands", cfg.Kafka.CommandTopic),
		zap.String("events", cfg.Kafka.EventTopic),
		zap.Bool("redis_lock", cfg.Redis.Addr != ""),
	)

	// events are published keyed by aggregate ID
	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventTopic, logger)
	defer producer.Close()

	app, err := wire(ctx, cfg, producer, logger)
	if err != nil {
		logger.Fatal("wire services", zap.Error(err))
	}
	defer app.close()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.CommandTopic, cfg.Kafka.CheckoutGroup, logger)
	defer consumer.Close()

	logger.Info("consuming commands")
	if err := consumer.Consume(ctx, app.commands.HandleMessage); err != nil && ctx.Err() == nil {
		logger.Error("consumer stopped", zap.Error(err))
	}
	logger.Info("shutting down")
}
