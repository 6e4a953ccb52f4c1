package fx

import (
	"time"

	"github.com/shakilmiahcse/social-org-finance/config"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/adjustment"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/audit"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/balance"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/donor"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/fund"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/organization"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/shared"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/transaction"
	"github.com/shakilmiahcse/social-org-finance/internal/infrastructure"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"go.uber.org/fx"
)

// DomainModule provides the ledger services.
var DomainModule = fx.Module("domain",
	fx.Provide(
		newTenantChecker,
		newOrganizationService,
		newFundService,
		newDonorService,
		newBalanceService,
		newTransactionService,
		newAdjustmentService,
	),
)

func newTenantChecker(repo *infrastructure.OrganizationRepository) *shared.TenantCheckerService {
	return shared.NewTenantCheckerService(repo)
}

func newOrganizationService(repo *infrastructure.OrganizationRepository, recorder audit.Recorder) *organization.Service {
	return organization.NewService(repo, recorder)
}

func newFundService(
	repo *infrastructure.FundRepository,
	entries *infrastructure.TransactionRepository,
	transactor *infrastructure.GormTransactor,
	recorder audit.Recorder,
	checker *shared.TenantCheckerService,
) *fund.Service {
	return fund.NewService(repo, entries, transactor, recorder, checker)
}

func newDonorService(
	repo *infrastructure.DonorRepository,
	entries *infrastructure.TransactionRepository,
	transactor *infrastructure.GormTransactor,
	recorder audit.Recorder,
	checker *shared.TenantCheckerService,
) *donor.Service {
	return donor.NewService(repo, entries, transactor, recorder, checker)
}

func newBalanceService(
	repo *infrastructure.BalanceRepository,
	funds *fund.Service,
	cache balance.Cache,
) *balance.Service {
	return &balance.Service{
		Repository: repo,
		Funds:      funds,
		Cache:      cache,
		Now:        time.Now,
	}
}

func newTransactionService(
	cfg *config.Config,
	repo *infrastructure.TransactionRepository,
	funds *fund.Service,
	donors *donor.Service,
	organizations *organization.Service,
	ids *pkg.TxnIDGenerator,
	transactor *infrastructure.GormTransactor,
	balances *balance.Service,
	recorder audit.Recorder,
	checker *shared.TenantCheckerService,
) *transaction.Service {
	return &transaction.Service{
		Repository:    repo,
		Funds:         funds,
		Donors:        donors,
		Organizations: organizations,
		IDs:           ids,
		Transactor:    transactor,
		Balances:      balances,
		Audit:         recorder,
		TxnIDRetries:  cfg.Ledger.TxnIDRetries,
		BaseService:   shared.BaseService{TenantChecker: checker},
	}
}

func newAdjustmentService(
	repo *infrastructure.AdjustmentRepository,
	funds *fund.Service,
	legs *transaction.Service,
	entries *infrastructure.TransactionRepository,
	transactor *infrastructure.GormTransactor,
	balances *balance.Service,
	recorder audit.Recorder,
	checker *shared.TenantCheckerService,
) *adjustment.Service {
	return &adjustment.Service{
		Repository:  repo,
		Funds:       funds,
		Legs:        legs,
		Entries:     entries,
		Transactor:  transactor,
		Balances:    balances,
		Audit:       recorder,
		BaseService: shared.BaseService{TenantChecker: checker},
	}
}
