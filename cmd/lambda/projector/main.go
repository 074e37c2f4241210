package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/badogar/solidus/internal/config"
	"github.com/badogar/solidus/internal/infrastructure/kinesis"
	"github.com/badogar/solidus/internal/infrastructure/logging"
	"github.com/badogar/solidus/internal/infrastructure/store"
	"github.com/badogar/solidus/internal/projection"
)

var (
	projector *projection.Projector
	logger    *zap.Logger
)

func init() {
	cfg, err := config.Load()
	if err != nil {
		logging.Must("error").Fatal("load config", zap.Error(err))
	}
	logger = logging.Must(cfg.Log.Level).Named("lambda.projector")

	// one connection per warm container
	db, err := store.ConnectPostgres(context.Background(), cfg.Postgres.DSN, 1, 1, cfg.Postgres.ConnMaxLifetime)
	if err != nil {
		logger.Fatal("connect read database", zap.Error(err))
	}

	projector = projection.NewProjector(store.NewPostgresReadStore(db, logger), logger)
	logger.Info("initialized")
}

func handler(ctx context.Context, batch events.KinesisEvent) (events.KinesisEventResponse, error) {
	return kinesis.Process(ctx, batch, projector.Apply, logger), nil
}

func main() {
	lambda.Start(handler)
}
