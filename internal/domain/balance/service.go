package balance

import (
	"context"
	"time"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/fund"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/tenant"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/transaction"
	appErrors "github.com/shakilmiahcse/social-org-finance/internal/errors"
	"github.com/shakilmiahcse/social-org-finance/internal/logger"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultSummaryWindow = 7 * 24 * time.Hour
	DefaultTopDonors     = 5
	MaxTopDonors         = 50
)

var tracer = otel.Tracer("github.com/shakilmiahcse/social-org-finance/internal/domain/balance")

type FundGetter interface {
	GetFundByID(ctx context.Context, scope tenant.Scope, fundID ulid.ULID) (*fund.Fund, error)
	ListAllFunds(ctx context.Context, scope tenant.Scope) ([]*fund.Fund, error)
}

type Service struct {
	Repository Repository
	Funds      FundGetter
	Cache      Cache
	Now        func() time.Time
}

// GetBalance returns credit minus debit over the fund's completed entries.
func (s *Service) GetBalance(ctx context.Context, scope tenant.Scope, fundID ulid.ULID) (decimal.Decimal, error) {
	ctx, span := tracer.Start(ctx, "balance.GetBalance")
	defer span.End()
	span.SetAttributes(attribute.String("fund_id", fundID.String()))

	if _, err := s.Funds.GetFundByID(ctx, scope, fundID); err != nil {
		return decimal.Zero, err
	}

	cacheable := false
	var entry CacheEntry
	if s.Cache != nil {
		var err error
		entry, err = s.Cache.Get(ctx, scope.OrganizationId, fundID)
		if err != nil {
			logger.Warn().Err(err).Str("fund_id", fundID.String()).Msg("balance cache read failed")
		} else if entry.Hit {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return entry.Balance, nil
		} else {
			cacheable = true
		}
	}

	totals, err := s.Repository.FundTotals(ctx, scope.OrganizationId, fundID)
	if err != nil {
		return decimal.Zero, appErrors.NewDatabaseError(err)
	}

	if cacheable {
		stored, err := s.Cache.Set(ctx, scope.OrganizationId, fundID, entry.Generation, totals.Balance)
		if err != nil {
			logger.Warn().Err(err).Str("fund_id", fundID.String()).Msg("balance cache write failed")
		} else if !stored {
			logger.Debug().Str("fund_id", fundID.String()).Msg("fund changed while computing its balance, not caching")
		}
	}
	return totals.Balance, nil
}

func (s *Service) GetFundTotals(ctx context.Context, scope tenant.Scope, fundID ulid.ULID) (Totals, error) {
	if _, err := s.Funds.GetFundByID(ctx, scope, fundID); err != nil {
		return Totals{}, err
	}
	totals, err := s.Repository.FundTotals(ctx, scope.OrganizationId, fundID)
	if err != nil {
		return Totals{}, appErrors.NewDatabaseError(err)
	}
	return totals, nil
}

// GetRunningBalance replays the fund's completed entries oldest first. The
// balance after the last entry equals GetBalance.
func (s *Service) GetRunningBalance(ctx context.Context, scope tenant.Scope, fundID ulid.ULID) (*FundHistory, error) {
	ctx, span := tracer.Start(ctx, "balance.GetRunningBalance")
	defer span.End()

	f, err := s.Funds.GetFundByID(ctx, scope, fundID)
	if err != nil {
		return nil, err
	}

	entries, err := s.Repository.CompletedEntries(ctx, scope.OrganizationId, fundID)
	if err != nil {
		return nil, appErrors.NewDatabaseError(err)
	}

	history := &FundHistory{
		Fund:    f,
		Entries: make([]RunningEntry, 0, len(entries)),
	}
	running := decimal.Zero
	credit := decimal.Zero
	debit := decimal.Zero
	for _, entry := range entries {
		if !entry.IsCompleted() {
			continue
		}
		running = running.Add(entry.SignedAmount())
		if entry.Type == transaction.Debit {
			debit = debit.Add(entry.Amount)
		} else {
			credit = credit.Add(entry.Amount)
		}
		history.Entries = append(history.Entries, RunningEntry{Transaction: entry, Balance: running})
	}
	history.Summary = NewTotals(credit, debit, int64(len(history.Entries)))
	span.SetAttributes(attribute.Int("entries", len(history.Entries)))
	return history, nil
}

// ListFundBalances returns every fund of the organization with its balance.
func (s *Service) ListFundBalances(ctx context.Context, scope tenant.Scope) ([]FundBalance, error) {
	funds, err := s.Funds.ListAllFunds(ctx, scope)
	if err != nil {
		return nil, err
	}
	totals, err := s.Repository.AllFundTotals(ctx, scope.OrganizationId)
	if err != nil {
		return nil, appErrors.NewDatabaseError(err)
	}

	byFund := make(map[ulid.ULID]decimal.Decimal, len(totals))
	for _, t := range totals {
		byFund[t.FundId] = t.Totals.Balance
	}

	out := make([]FundBalance, 0, len(funds))
	for _, f := range funds {
		balance, ok := byFund[f.Id]
		if !ok {
			balance = decimal.Zero
		}
		out = append(out, FundBalance{Fund: f, Balance: balance})
	}
	return out, nil
}

// Summarize aggregates completed entries by (year, month) in the store and
// derives the totals from those buckets.
func (s *Service) Summarize(ctx context.Context, scope tenant.Scope, query SummaryQuery) (*Summary, error) {
	ctx, span := tracer.Start(ctx, "balance.Summarize")
	defer span.End()

	if err := scope.Validate(); err != nil {
		return nil, err
	}
	query, err := s.normalizeRange(query)
	if err != nil {
		return nil, err
	}
	if query.FundId != nil {
		if _, err := s.Funds.GetFundByID(ctx, scope, *query.FundId); err != nil {
			return nil, err
		}
	}

	buckets, err := s.Repository.MonthlyTotals(ctx, scope.OrganizationId, query)
	if err != nil {
		return nil, appErrors.NewDatabaseError(err)
	}

	summary := &Summary{
		From:        query.From,
		To:          query.To,
		TotalCredit: decimal.Zero,
		TotalDebit:  decimal.Zero,
		Trend:       make([]MonthlyBucket, 0, len(buckets)),
	}
	for _, b := range buckets {
		b.Net = b.Credit.Sub(b.Debit)
		summary.TotalCredit = summary.TotalCredit.Add(b.Credit)
		summary.TotalDebit = summary.TotalDebit.Add(b.Debit)
		summary.TransactionCount += b.Count
		summary.Trend = append(summary.Trend, b)
	}
	summary.NetBalance = summary.TotalCredit.Sub(summary.TotalDebit)
	summary.AvgTransaction = average(summary.TotalCredit.Add(summary.TotalDebit), summary.TransactionCount)

	previous := query
	previous.To = query.From.Add(-time.Microsecond)
	previous.From = previous.To.Add(-query.To.Sub(query.From))
	before, err := s.Repository.PeriodTotals(ctx, scope.OrganizationId, previous)
	if err != nil {
		return nil, appErrors.NewDatabaseError(err)
	}
	summary.GrowthRate = percentChange(summary.TotalCredit, before.Credit)
	return summary, nil
}

// MonthlyComparison compares the current UTC calendar month up to now with
// the whole previous month.
func (s *Service) MonthlyComparison(ctx context.Context, scope tenant.Scope) (*MonthlyComparison, error) {
	ctx, span := tracer.Start(ctx, "balance.MonthlyComparison")
	defer span.End()

	if err := scope.Validate(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	current, err := s.periodFlow(ctx, scope, monthStart, now)
	if err != nil {
		return nil, err
	}
	previous, err := s.periodFlow(ctx, scope, monthStart.AddDate(0, -1, 0), monthStart.Add(-time.Microsecond))
	if err != nil {
		return nil, err
	}
	return &MonthlyComparison{
		Current:      current,
		Previous:     previous,
		CreditChange: percentChange(current.Credit, previous.Credit),
	}, nil
}

func (s *Service) periodFlow(ctx context.Context, scope tenant.Scope, from, to time.Time) (PeriodFlow, error) {
	totals, err := s.Repository.PeriodTotals(ctx, scope.OrganizationId, SummaryQuery{From: from, To: to})
	if err != nil {
		return PeriodFlow{}, appErrors.NewDatabaseError(err)
	}
	return PeriodFlow{From: from, To: to, Credit: totals.Credit, Debit: totals.Debit, Net: totals.Balance}, nil
}

// DonationDistribution counts completed credits per donation size range.
func (s *Service) DonationDistribution(ctx context.Context, scope tenant.Scope, from, to time.Time) ([]DistributionBucket, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	query, err := s.normalizeRange(SummaryQuery{From: from, To: to})
	if err != nil {
		return nil, err
	}
	buckets, err := s.Repository.DonationDistribution(ctx, scope.OrganizationId, query.From, query.To)
	if err != nil {
		return nil, appErrors.NewDatabaseError(err)
	}
	return buckets, nil
}

// TopDonors ranks donors by completed credits within the range.
func (s *Service) TopDonors(ctx context.Context, scope tenant.Scope, from, to time.Time, limit int) ([]DonorTotal, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	query, err := s.normalizeRange(SummaryQuery{From: from, To: to})
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultTopDonors
	}
	if limit > MaxTopDonors {
		limit = MaxTopDonors
	}

	donors, err := s.Repository.TopDonors(ctx, scope.OrganizationId, query.From, query.To, limit)
	if err != nil {
		return nil, appErrors.NewDatabaseError(err)
	}
	for i := range donors {
		donors[i].AvgDonation = average(donors[i].Amount, donors[i].Count)
	}
	return donors, nil
}

// InvalidateFund bumps the fund's cache generation and drops its cached
// balance. Failures are logged; the cache entry then expires on its own.
func (s *Service) InvalidateFund(ctx context.Context, organizationID, fundID ulid.ULID) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, organizationID, fundID); err != nil {
		logger.Warn().
			Err(err).
			Str("organization_id", organizationID.String()).
			Str("fund_id", fundID.String()).
			Msg("balance cache invalidation failed")
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) normalizeRange(query SummaryQuery) (SummaryQuery, error) {
	if query.To.IsZero() {
		query.To = s.now().UTC()
	}
	if query.From.IsZero() {
		query.From = query.To.Add(-DefaultSummaryWindow)
	}
	if query.To.Before(query.From) {
		return query, appErrors.NewValidationError("to", "must not be before from")
	}
	return query, nil
}
