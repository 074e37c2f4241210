package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/badogar/solidus/internal/config"
	"github.com/badogar/solidus/internal/domain/money"
	"github.com/badogar/solidus/internal/email"
	"github.com/badogar/solidus/internal/infrastructure/kafka"
	"github.com/badogar/solidus/internal/infrastructure/logging"
	"github.com/badogar/solidus/internal/infrastructure/store"
	"github.com/badogar/solidus/internal/notification"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Must("error").Fatal("load config", zap.Error(err))
	}
	logger := logging.Must(cfg.Log.Level).Named("notifier")
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting notifier",
		zap.Strings("kafka", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.EventTopic),
		zap.String("group", cfg.Kafka.NotifierGroup),
		zap.String("smtp", cfg.SMTP.Host+":"+cfg.SMTP.Port),
	)

	// order and user details come from the read database
	db, err := store.ConnectPostgres(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns, cfg.Postgres.ConnMaxLifetime)
	if err != nil {
		logger.Fatal("connect read database", zap.Error(err))
	}
	defer db.Close()

	formatter, err := money.ParseFormatter(cfg.Store.Locale, cfg.Store.Currency)
	if err != nil {
		logger.Fatal("store currency", zap.Error(err))
	}
	mailer := email.NewService(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, formatter, logger)
	handler := notification.NewHandler(mailer, store.NewPostgresReadStore(db, logger), logger)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.EventTopic, cfg.Kafka.NotifierGroup, logger)
	defer consumer.Close()

	if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && ctx.Err() == nil {
		logger.Error("consumer stopped", zap.Error(err))
	}
	logger.Info("shutting down")
}
