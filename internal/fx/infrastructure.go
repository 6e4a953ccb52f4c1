package fx

import (
	"context"

	"github.com/shakilmiahcse/social-org-finance/config"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/audit"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/balance"
	"github.com/shakilmiahcse/social-org-finance/internal/infrastructure"
	"github.com/shakilmiahcse/social-org-finance/internal/logger"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var InfrastructureModule = fx.Module("infrastructure",
	fx.Provide(
		newDatabase,
		newTransactor,
		newOrganizationRepository,
		newFundRepository,
		newDonorRepository,
		newTransactionRepository,
		newAdjustmentRepository,
		newBalanceRepository,
		newBalanceCache,
		newAuditRecorder,
		newTxnIDGenerator,
	),
)

func newDatabase(lc fx.Lifecycle, cfg *config.Config) (*gorm.DB, error) {
	db, err := infrastructure.NewDb(cfg)
	if err != nil {
		return nil, err
	}
	if err := infrastructure.RunMigrations(db); err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
	return db, nil
}

func newTransactor(db *gorm.DB) *infrastructure.GormTransactor {
	return &infrastructure.GormTransactor{DB: db}
}

func newOrganizationRepository(db *gorm.DB) *infrastructure.OrganizationRepository {
	return &infrastructure.OrganizationRepository{DB: db}
}

func newFundRepository(db *gorm.DB) *infrastructure.FundRepository {
	return &infrastructure.FundRepository{DB: db}
}

func newDonorRepository(db *gorm.DB) *infrastructure.DonorRepository {
	return &infrastructure.DonorRepository{DB: db}
}

func newTransactionRepository(db *gorm.DB) *infrastructure.TransactionRepository {
	return &infrastructure.TransactionRepository{DB: db}
}

func newAdjustmentRepository(db *gorm.DB) *infrastructure.AdjustmentRepository {
	return &infrastructure.AdjustmentRepository{DB: db}
}

func newBalanceRepository(db *gorm.DB) *infrastructure.BalanceRepository {
	return &infrastructure.BalanceRepository{DB: db}
}

// newBalanceCache returns a nil cache when redis is disabled; the balance
// service then always reads from the store.
func newBalanceCache(lc fx.Lifecycle, cfg *config.Config) (balance.Cache, error) {
	if !cfg.Redis.Enabled {
		logger.Info().Msg("balance cache disabled")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	logger.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Redis.BalanceTTL).Msg("balance cache enabled")
	return infrastructure.NewRedisBalanceCache(client, cfg.Redis.BalanceTTL), nil
}

// newAuditRecorder always logs audit events and additionally fans them out to
// rabbitmq and mongo when those are configured.
func newAuditRecorder(lc fx.Lifecycle, cfg *config.Config) (audit.Recorder, error) {
	recorders := audit.Recorders{audit.LogRecorder{}}

	if cfg.RabbitMQ.URL != "" {
		publisher, err := infrastructure.NewAMQPAuditPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error { return publisher.Close() },
		})
		recorders = append(recorders, publisher)
		logger.Info().Str("exchange", cfg.RabbitMQ.Exchange).Msg("audit publisher enabled")
	}

	if cfg.Mongo.URI != "" {
		store, err := infrastructure.NewMongoAuditStore(context.Background(), cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: store.Close,
		})
		recorders = append(recorders, store)
		logger.Info().Str("collection", cfg.Mongo.Collection).Msg("audit store enabled")
	}

	return recorders, nil
}

func newTxnIDGenerator(cfg *config.Config) (*pkg.TxnIDGenerator, error) {
	return pkg.NewTxnIDGenerator(cfg.Ledger.NodeID)
}
