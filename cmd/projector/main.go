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
	"github.com/badogar/solidus/internal/infrastructure/store"
	"github.com/badogar/solidus/internal/projection"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Must("error").Fatal("load config", zap.Error(err))
	}
	logger := logging.Must(cfg.Log.Level).Named("projector")
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting projector",
		zap.Strings("kafka", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.EventTopic),
		zap.String("group", cfg.Kafka.ProjectorGroup),
	)

	db, err := store.ConnectPostgres(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns, cfg.Postgres.ConnMaxLifetime)
	if err != nil {
		logger.Fatal("connect read database", zap.Error(err))
	}
	defer db.Close()

	projector := projection.NewProjector(store.NewPostgresReadStore(db, logger), logger)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.EventTopic, cfg.Kafka.ProjectorGroup, logger)
	defer consumer.Close()

	if err := consumer.Consume(ctx, projector.HandleEvent); err != nil && ctx.Err() == nil {
		logger.Error("consumer stopped", zap.Error(err))
	}
	logger.Info("shutting down")
}
