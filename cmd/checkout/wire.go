package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/badogar/solidus/internal/command"
	"github.com/badogar/solidus/internal/config"
	"github.com/badogar/solidus/internal/domain/calculator"
	"github.com/badogar/solidus/internal/domain/catalog"
	"github.com/badogar/solidus/internal/domain/inventory"
	"github.com/badogar/solidus/internal/domain/location"
	"github.com/badogar/solidus/internal/domain/money"
	"github.com/badogar/solidus/internal/domain/order"
	"github.com/badogar/solidus/internal/domain/user"
	"github.com/badogar/solidus/internal/domain/zone"
	"github.com/badogar/solidus/internal/infrastructure/lock"
	"github.com/badogar/solidus/internal/infrastructure/store"
)

type application struct {
	commands *command.Handler
	closers  []func() error
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

func wire(ctx context.Context, cfg config.Config, publisher store.Publisher, logger *zap.Logger) (*application, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &application{}

	eventStore, err := openEventStore(ctx, cfg, publisher, logger, app)
	if err != nil {
		app.close()
		return nil, err
	}

	locker, err := orderLocker(ctx, cfg, logger, app)
	if err != nil {
		app.close()
		return nil, err
	}

	cur, err := money.NewCurrency(cfg.Store.Currency)
	if err != nil {
		app.close()
		return nil, err
	}
	originators, rater, err := pricing(cfg.Store.Pricing, cur)
	if err != nil {
		app.close()
		return nil, err
	}

	ids := order.NewIDGenerator()
	catalogSvc := catalog.NewService(eventStore, ids)
	locationSvc := location.NewService(eventStore, ids)
	userSvc := user.NewService(eventStore, ids)
	inventorySvc := inventory.NewService(eventStore, locker, cfg.Store.SnapshotThreshold, logger)

	orderSvc, err := order.NewService(order.ServiceDeps{
		EventStore:        eventStore,
		Catalog:           catalogSvc,
		Users:             userSvc,
		Ledger:            inventory.NewLedger(inventorySvc, locationSvc, logger),
		Rater:             rater,
		Originators:       originators,
		Locker:            locker,
		Currency:          cur,
		IDGenerator:       ids,
		NumberAttempts:    cfg.Store.OrderNumberAttempts,
		SnapshotThreshold: cfg.Store.SnapshotThreshold,
		Logger:            logger,
	})
	if err != nil {
		app.close()
		return nil, err
	}

	app.commands = command.NewHandler(orderSvc, catalogSvc, locationSvc, inventorySvc, userSvc, logger)
	return app, nil
}

func openEventStore(ctx context.Context, cfg config.Config, publisher store.Publisher, logger *zap.Logger, app *application) (store.EventStoreInterface, error) {
	switch cfg.Events.Backend {
	case config.BackendPostgres:
		db, err := store.ConnectPostgres(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns, cfg.Postgres.ConnMaxLifetime)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, db.Close)
		return store.NewPostgresEventStore(db, publisher, logger), nil

	case config.BackendDynamo:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Dynamo.Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.Dynamo.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Dynamo.Endpoint)
			}
		})
		return store.NewDynamoEventStore(client, cfg.Dynamo.EventsTable, cfg.Dynamo.SnapshotsTable, publisher, logger), nil

	default:
		logger.Warn("in-memory event store, state is lost on restart")
		return store.NewEventStore(publisher, logger), nil
	}
}

// orderLocker serialises per key in process and, with Redis configured,
// across checkout instances.
func orderLocker(ctx context.Context, cfg config.Config, logger *zap.Logger, app *application) (lock.Locker, error) {
	local := lock.NewKeyedMutex()
	if cfg.Redis.Addr == "" {
		return local, nil
	}
	client, err := lock.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, client.Close)
	return lock.Chain{local, lock.NewRedisLocker(client, "solidus:lock:", cfg.Redis.LockTTL, logger)}, nil
}

func pricing(p config.PricingConfig, cur money.Currency) ([]order.Originator, order.ShippingRater, error) {
	rater, err := calculator.NewWeightRate(p.ShippingBase, p.ShippingPerUnit, cur)
	if err != nil {
		return nil, nil, err
	}

	var originators []order.Originator
	if p.TaxRate.IsPositive() {
		tax, err := taxRate(p)
		if err != nil {
			return nil, nil, err
		}
		originators = append(originators, tax)
	}
	if p.FreeShipping {
		free, err := calculator.NewFreeShipping("promo_free_shipping", "")
		if err != nil {
			return nil, nil, err
		}
		originators = append(originators, free)
	}
	return originators, rater, nil
}

func taxRate(p config.PricingConfig) (*calculator.TaxRate, error) {
	if len(p.TaxZone) == 0 {
		return calculator.NewTaxRate("tax_default", "", p.TaxRate)
	}
	z, err := zone.New("tax_zone", "Tax zone", "", p.TaxZone...)
	if err != nil {
		return nil, err
	}
	return calculator.NewZonedTaxRate("tax_default", "", p.TaxRate, z)
}
