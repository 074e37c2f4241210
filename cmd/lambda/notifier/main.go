package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/badogar/solidus/internal/config"
	"github.com/badogar/solidus/internal/domain/money"
	"github.com/badogar/solidus/internal/email"
	"github.com/badogar/solidus/internal/infrastructure/kinesis"
	"github.com/badogar/solidus/internal/infrastructure/logging"
	"github.com/badogar/solidus/internal/infrastructure/store"
	"github.com/badogar/solidus/internal/notification"
)

var (
	notifier *notification.Handler
	logger   *zap.Logger
)

func init() {
	cfg, err := config.Load()
	if err != nil {
		logging.Must("error").Fatal("load config", zap.Error(err))
	}
	logger = logging.Must(cfg.Log.Level).Named("lambda.notifier")

	db, err := store.ConnectPostgres(context.Background(), cfg.Postgres.DSN, 1, 1, cfg.Postgres.ConnMaxLifetime)
	if err != nil {
		logger.Fatal("connect read database", zap.Error(err))
	}

	formatter, err := money.ParseFormatter(cfg.Store.Locale, cfg.Store.Currency)
	if err != nil {
		logger.Fatal("store currency", zap.Error(err))
	}
	mailer := email.NewService(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, formatter, logger)
	notifier = notification.NewHandler(mailer, store.NewPostgresReadStore(db, logger), logger)

	logger.Info("initialized", zap.String("smtp", cfg.SMTP.Host+":"+cfg.SMTP.Port))
}

func handler(ctx context.Context, batch events.KinesisEvent) (events.KinesisEventResponse, error) {
	return kinesis.Process(ctx, batch, notifier.Apply, logger), nil
}

func main() {
	lambda.Start(handler)
}
