package balance

import (
	"context"
	"time"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/transaction"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// Repository reads committed, completed entries. Every method aggregates in the
// store; none of them lock or write.
type Repository interface {
	FundTotals(ctx context.Context, organizationID, fundID ulid.ULID) (Totals, error)
	AllFundTotals(ctx context.Context, organizationID ulid.ULID) ([]FundTotal, error)
	CompletedEntries(ctx context.Context, organizationID, fundID ulid.ULID) ([]*transaction.Transaction, error)
	// MonthlyTotals fills AvgCredit and AvgDebit; Net is derived by the service.
	MonthlyTotals(ctx context.Context, organizationID ulid.ULID, query SummaryQuery) ([]MonthlyBucket, error)
	PeriodTotals(ctx context.Context, organizationID ulid.ULID, query SummaryQuery) (Totals, error)
	TopDonors(ctx context.Context, organizationID ulid.ULID, from, to time.Time, limit int) ([]DonorTotal, error)
	// DonationDistribution groups completed credits by DonationRangeOf, largest total first.
	DonationDistribution(ctx context.Context, organizationID ulid.ULID, from, to time.Time) ([]DistributionBucket, error)
}

// Cache holds derived fund balances. It is never authoritative.
//
// Every fund carries a generation that Invalidate bumps. Set stores a balance
// only while the fund is still at the generation the missing Get reported, so
// a value computed before a write commits is never cached after it.
type Cache interface {
	Get(ctx context.Context, organizationID, fundID ulid.ULID) (CacheEntry, error)
	Set(ctx context.Context, organizationID, fundID ulid.ULID, generation int64, balance decimal.Decimal) (bool, error)
	Invalidate(ctx context.Context, organizationID, fundID ulid.ULID) error
}

type CacheEntry struct {
	Balance    decimal.Decimal
	Hit        bool
	Generation int64
}
