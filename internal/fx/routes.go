package fx

import (
	"context"

	"github.com/shakilmiahcse/social-org-finance/config"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/adjustment"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/balance"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/donor"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/fund"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/organization"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/transaction"
	"github.com/shakilmiahcse/social-org-finance/internal/middleware"
	"github.com/shakilmiahcse/social-org-finance/internal/routes"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

type RateLimiters struct {
	Public *middleware.RateLimiter
	Tenant *middleware.RateLimiter
}

// RoutesModule provides the handler and rate limiters.
var RoutesModule = fx.Module("routes",
	fx.Provide(
		newHandler,
		newRateLimiters,
	),
)

func newHandler(
	db *gorm.DB,
	organizationSvc *organization.Service,
	fundSvc *fund.Service,
	donorSvc *donor.Service,
	transactionSvc *transaction.Service,
	balanceSvc *balance.Service,
	adjustmentSvc *adjustment.Service,
) *routes.Handler {
	return &routes.Handler{
		OrganizationService: organizationSvc,
		FundService:         fundSvc,
		DonorService:        donorSvc,
		TransactionService:  transactionSvc,
		BalanceService:      balanceSvc,
		AdjustmentService:   adjustmentSvc,
		Ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
}

func newRateLimiters(lc fx.Lifecycle, cfg *config.Config) *RateLimiters {
	limiters := &RateLimiters{
		Public: middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window),
		Tenant: middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window),
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			limiters.Public.Stop()
			limiters.Tenant.Stop()
			return nil
		},
	})
	return limiters
}
