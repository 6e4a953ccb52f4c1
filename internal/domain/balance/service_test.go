package balance_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/adjustment"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/balance"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/fund"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/transaction"
	appErrors "github.com/shakilmiahcse/social-org-finance/internal/errors"
	"github.com/shakilmiahcse/social-org-finance/internal/ledgertest"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestGetBalanceCountsCompletedEntriesOnly(t *testing.T) {
	t.Parallel()
	env := ledgertest.NewEnv()
	scope := env.NewOrganization(t, "Alpha")
	main := env.MustFund(t, scope, "General", fund.TypeMain)
	ctx := context.Background()

	env.MustPost(t, scope, main, transaction.Credit, "1000.25")
	env.MustPost(t, scope, main, transaction.Debit, "200.10")
	for _, status := range []transaction.Status{transaction.StatusPending, transaction.StatusCanceled} {
		_, err := env.Transactions.CreateTransaction(ctx, scope, &transaction.CreateTransactionRequest{
			FundId:        main.Id,
			Amount:        dec("999"),
			Type:          transaction.Credit,
			PaymentMethod: transaction.PaymentCash,
			Status:        status,
		})
		require.NoError(t, err)
	}

	got, err := env.Balances.GetBalance(ctx, scope, main.Id)
	require.NoError(t, err)
	assert.True(t, dec("800.15").Equal(got), "got %s", got)

	again, err := env.Balances.GetBalance(ctx, scope, main.Id)
	require.NoError(t, err)
	assert.True(t, got.Equal(again), "reads are idempotent")

	totals, err := env.Balances.GetFundTotals(ctx, scope, main.Id)
	require.NoError(t, err)
	assert.True(t, dec("1000.25").Equal(totals.Credit))
	assert.True(t, dec("200.10").Equal(totals.Debit))
	assert.EqualValues(t, 2, totals.Count)

	empty := env.MustFund(t, scope, "Empty", fund.TypeCampaign)
	zero, err := env.Balances.GetBalance(ctx, scope, empty.Id)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())
}

func TestGetBalanceIsTenantScoped(t *testing.T) {
	t.Parallel()
	env := ledgertest.NewEnv()
	alpha := env.NewOrganization(t, "Alpha")
	beta := env.NewOrganization(t, "Beta")
	main := env.MustFund(t, alpha, "General", fund.TypeMain)
	env.MustPost(t, alpha, main, transaction.Credit, "10")

	_, err := env.Balances.GetBalance(context.Background(), beta, main.Id)
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, appErrors.KindNotFound))

	_, err = env.Balances.GetBalance(context.Background(), alpha, ulid.Make())
	assert.True(t, appErrors.IsKind(err, appErrors.KindNotFound))
}

func TestGetRunningBalance(t *testing.T) {
	t.Parallel()
	env := ledgertest.NewEnv()
	scope := env.NewOrganization(t, "Alpha")
	main := env.MustFund(t, scope, "General", fund.TypeMain)

	env.MustPost(t, scope, main, transaction.Credit, "100")
	_, err := env.Transactions.CreateTransaction(context.Background(), scope, &transaction.CreateTransactionRequest{
		FundId:        main.Id,
		Amount:        dec("5000"),
		Type:          transaction.Debit,
		PaymentMethod: transaction.PaymentCash,
	})
	require.NoError(t, err)
	env.MustPost(t, scope, main, transaction.Debit, "30")
	env.MustPost(t, scope, main, transaction.Credit, "5.50")

	history, err := env.Balances.GetRunningBalance(context.Background(), scope, main.Id)
	require.NoError(t, err)
	require.Len(t, history.Entries, 3, "pending entry is skipped")

	want := []string{"100", "70", "75.50"}
	for i, entry := range history.Entries {
		assert.True(t, dec(want[i]).Equal(entry.Balance), "entry %d: got %s", i, entry.Balance)
	}

	balance := env.Balance(t, scope, main)
	assert.True(t, balance.Equal(history.Entries[len(history.Entries)-1].Balance))
	assert.True(t, balance.Equal(history.Summary.Balance))
	assert.True(t, dec("105.50").Equal(history.Summary.Credit))
	assert.True(t, dec("30").Equal(history.Summary.Debit))
}

func TestListFundBalancesIncludesEmptyFunds(t *testing.T) {
	t.Parallel()
	env := ledgertest.NewEnv()
	scope := env.NewOrganization(t, "Alpha")
	main := env.MustFund(t, scope, "General", fund.TypeMain)
	campaign := env.MustFund(t, scope, "Eid", fund.TypeCampaign)
	env.MustPost(t, scope, main, transaction.Credit, "40")

	balances, err := env.Balances.ListFundBalances(context.Background(), scope)
	require.NoError(t, err)
	require.Len(t, balances, 2)

	byFund := map[ulid.ULID]decimal.Decimal{}
	for _, b := range balances {
		byFund[b.Fund.Id] = b.Balance
	}
	assert.True(t, dec("40").Equal(byFund[main.Id]))
	assert.True(t, byFund[campaign.Id].IsZero())
}

func TestSummarize(t *testing.T) {
	t.Parallel()
	env := ledgertest.NewEnv()
	scope := env.NewOrganization(t, "Alpha")
	main := env.MustFund(t, scope, "General", fund.TypeMain)
	campaign := env.MustFund(t, scope, "Eid", fund.TypeCampaign)
	ctx := context.Background()

	env.MustPost(t, scope, main, transaction.Credit, "500")
	env.MustPost(t, scope, main, transaction.Debit, "120")
	env.MustPost(t, scope, campaign, transaction.Credit, "80")
	_, err := env.Adjustments.CreateAdjustment(ctx, scope, &adjustment.CreateAdjustmentRequest{
		MainFundId:     main.Id,
		CampaignFundId: campaign.Id,
		Amount:         dec("60"),
		Type:           adjustment.ToCampaign,
	})
	require.NoError(t, err)

	from := time.Now().UTC().Add(-time.Hour)
	to := time.Now().UTC().Add(time.Hour)

	summary, err := env.Balances.Summarize(ctx, scope, balance.SummaryQuery{From: from, To: to})
	require.NoError(t, err)
	assert.True(t, dec("640").Equal(summary.TotalCredit), "got %s", summary.TotalCredit)
	assert.True(t, dec("180").Equal(summary.TotalDebit), "got %s", summary.TotalDebit)
	assert.True(t, dec("460").Equal(summary.NetBalance))
	assert.EqualValues(t, 5, summary.TransactionCount)
	require.NotEmpty(t, summary.Trend)

	bucketCredit := decimal.Zero
	for _, b := range summary.Trend {
		bucketCredit = bucketCredit.Add(b.Credit)
		assert.True(t, b.Credit.Sub(b.Debit).Equal(b.Net))
	}
	assert.True(t, bucketCredit.Equal(summary.TotalCredit))

	withoutAdjustments, err := env.Balances.Summarize(ctx, scope, balance.SummaryQuery{From: from, To: to, ExcludeAdjustments: true})
	require.NoError(t, err)
	assert.True(t, dec("580").Equal(withoutAdjustments.TotalCredit))
	assert.True(t, dec("120").Equal(withoutAdjustments.TotalDebit))

	forCampaign, err := env.Balances.Summarize(ctx, scope, balance.SummaryQuery{From: from, To: to, FundId: &campaign.Id})
	require.NoError(t, err)
	assert.True(t, dec("140").Equal(forCampaign.NetBalance))

	past, err := env.Balances.Summarize(ctx, scope, balance.SummaryQuery{From: from.AddDate(-1, 0, 0), To: from.AddDate(0, -6, 0)})
	require.NoError(t, err)
	assert.True(t, past.TotalCredit.IsZero())
	assert.Empty(t, past.Trend)

	_, err = env.Balances.Summarize(ctx, scope, balance.SummaryQuery{From: to, To: from})
	assert.True(t, appErrors.IsKind(err, appErrors.KindValidation))
}

func TestSummarizeDefaultsToLastSevenDays(t *testing.T) {
	t.Parallel()
	env := ledgertest.NewEnv()
	scope := env.NewOrganization(t, "Alpha")
	main := env.MustFund(t, scope, "General", fund.TypeMain)
	env.MustPost(t, scope, main, transaction.Credit, "12")

	now := time.Now().UTC().Add(time.Minute)
	env.Balances.Now = func() time.Time { return now }

	summary, err := env.Balances.Summarize(context.Background(), scope, balance.SummaryQuery{})
	require.NoError(t, err)
	assert.Equal(t, now, summary.To)
	assert.Equal(t, now.Add(-balance.DefaultSummaryWindow), summary.From)
	assert.True(t, dec("12").Equal(summary.TotalCredit))
}

func TestTopDonors(t *testing.T) {
	t.Parallel()
	env := ledgertest.NewEnv()
	scope := env.NewOrganization(t, "Alpha")
	main := env.MustFund(t, scope, "General", fund.TypeMain)
	karim := env.MustDonor(t, scope, "Karim")
	salma := env.MustDonor(t, scope, "Salma")
	ctx := context.Background()

	give := func(donorID ulid.ULID, amount string) {
		_, err := env.Transactions.CreateIncome(ctx, scope, &transaction.CreateTransactionRequest{
			FundId:        main.Id,
			DonorId:       &donorID,
			Amount:        dec(amount),
			PaymentMethod: transaction.PaymentBkash,
			Status:        transaction.StatusCompleted,
		})
		require.NoError(t, err)
	}
	give(karim.Id, "100")
	give(salma.Id, "300")
	give(karim.Id, "50")

	top, err := env.Balances.TopDonors(ctx, scope, time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Salma", top[0].Name)
	assert.Equal(t, "Karim", top[1].Name)
	assert.True(t, dec("150").Equal(top[1].Amount))
	assert.EqualValues(t, 2, top[1].Count)

	assert.True(t, dec("75").Equal(top[1].AvgDonation), "got %s", top[1].AvgDonation)
	assert.True(t, dec("300").Equal(top[0].AvgDonation))

	one, err := env.Balances.TopDonors(ctx, scope, time.Time{}, time.Time{}, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestSummarizeGrowthAndAverages(t *testing.T) {
	t.Parallel()
	env := ledgertest.NewEnv()
	scope := env.NewOrganization(t, "Alpha")
	main := env.MustFund(t, scope, "General", fund.TypeMain)
	ctx := context.Background()

	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	at := func(typ transaction.Types, amount string, when time.Time) {
		tx := env.MustPost(t, scope, main, typ, amount)
		env.Store.Backdate(tx.Id, when)
	}
	at(transaction.Credit, "200", now.AddDate(0, 0, -10))
	at(transaction.Credit, "250", now.AddDate(0, 0, -2))
	at(transaction.Credit, "50", now.AddDate(0, 0, -1))
	at(transaction.Debit, "100", now.AddDate(0, 0, -1))

	summary, err := env.Balances.Summarize(ctx, scope, balance.SummaryQuery{From: now.AddDate(0, 0, -7), To: now})
	require.NoError(t, err)
	assert.EqualValues(t, 3, summary.TransactionCount)
	assert.True(t, dec("133.33").Equal(summary.AvgTransaction), "got %s", summary.AvgTransaction)
	assert.True(t, dec("50").Equal(summary.GrowthRate), "got %s", summary.GrowthRate)
	require.Len(t, summary.Trend, 1)
	assert.True(t, dec("150").Equal(summary.Trend[0].AvgCredit), "got %s", summary.Trend[0].AvgCredit)
	assert.True(t, dec("100").Equal(summary.Trend[0].AvgDebit))

	quiet, err := env.Balances.Summarize(ctx, scope, balance.SummaryQuery{From: now.AddDate(0, 0, -30), To: now.AddDate(0, 0, -20)})
	require.NoError(t, err)
	assert.True(t, quiet.AvgTransaction.IsZero())
	assert.True(t, quiet.GrowthRate.IsZero(), "no earlier credits means no growth")
}

func TestMonthlyComparison(t *testing.T) {
	t.Parallel()
	env := ledgertest.NewEnv()
	scope := env.NewOrganization(t, "Alpha")
	main := env.MustFund(t, scope, "General", fund.TypeMain)

	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	env.Balances.Now = func() time.Time { return now }
	at := func(typ transaction.Types, amount string, when time.Time) {
		tx := env.MustPost(t, scope, main, typ, amount)
		env.Store.Backdate(tx.Id, when)
	}
	at(transaction.Credit, "300", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	at(transaction.Debit, "40", time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC))
	at(transaction.Credit, "200", time.Date(2025, 2, 28, 23, 59, 59, 0, time.UTC))
	at(transaction.Credit, "999", time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC))
	at(transaction.Credit, "999", time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC))

	cmp, err := env.Balances.MonthlyComparison(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), cmp.Current.From)
	assert.Equal(t, now, cmp.Current.To)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), cmp.Previous.From)
	assert.True(t, dec("300").Equal(cmp.Current.Credit), "got %s", cmp.Current.Credit)
	assert.True(t, dec("40").Equal(cmp.Current.Debit))
	assert.True(t, dec("260").Equal(cmp.Current.Net))
	assert.True(t, dec("200").Equal(cmp.Previous.Credit), "got %s", cmp.Previous.Credit)
	assert.True(t, dec("50").Equal(cmp.CreditChange), "got %s", cmp.CreditChange)
}

func TestDonationDistribution(t *testing.T) {
	t.Parallel()
	env := ledgertest.NewEnv()
	scope := env.NewOrganization(t, "Alpha")
	main := env.MustFund(t, scope, "General", fund.TypeMain)
	ctx := context.Background()

	for _, amount := range []string{"999.99", "1000", "5000", "5000.01", "10000", "10000.01", "250"} {
		env.MustPost(t, scope, main, transaction.Credit, amount)
	}
	env.MustPost(t, scope, main, transaction.Debit, "20000")

	buckets, err := env.Balances.DonationDistribution(ctx, scope, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, buckets, 4)

	byRange := map[string]balance.DistributionBucket{}
	for _, b := range buckets {
		byRange[b.Range] = b
	}
	assert.EqualValues(t, 2, byRange[balance.RangeSmall].Count)
	assert.True(t, dec("1249.99").Equal(byRange[balance.RangeSmall].Total))
	assert.EqualValues(t, 2, byRange[balance.RangeMedium].Count)
	assert.EqualValues(t, 2, byRange[balance.RangeLarge].Count)
	assert.EqualValues(t, 1, byRange[balance.RangeMajor].Count)
	assert.Equal(t, balance.RangeLarge, buckets[0].Range, "largest total first")

	_, err = env.Balances.DonationDistribution(ctx, scope, time.Now(), time.Now().Add(-time.Hour))
	assert.True(t, appErrors.IsKind(err, appErrors.KindValidation))
}

type memoryCache struct {
	mu          sync.Mutex
	values      map[ulid.ULID]decimal.Decimal
	generations map[ulid.ULID]int64
	getErr      error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{
		values:      map[ulid.ULID]decimal.Decimal{},
		generations: map[ulid.ULID]int64{},
	}
}

func (c *memoryCache) Get(_ context.Context, _ ulid.ULID, fundID ulid.ULID) (balance.CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return balance.CacheEntry{}, c.getErr
	}
	v, ok := c.values[fundID]
	return balance.CacheEntry{Balance: v, Hit: ok, Generation: c.generations[fundID]}, nil
}

func (c *memoryCache) Set(_ context.Context, _ ulid.ULID, fundID ulid.ULID, generation int64, v decimal.Decimal) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[fundID] != generation {
		return false, nil
	}
	c.values[fundID] = v
	return true, nil
}

func (c *memoryCache) Invalidate(_ context.Context, _ ulid.ULID, fundID ulid.ULID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, fundID)
	c.generations[fundID]++
	return nil
}

func (c *memoryCache) cached(fundID ulid.ULID) (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[fundID]
	return v, ok
}

func TestBalanceCacheIsInvalidatedOnWrites(t *testing.T) {
	t.Parallel()
	env := ledgertest.NewEnv()
	cache := newMemoryCache()
	env.Balances.Cache = cache

	scope := env.NewOrganization(t, "Alpha")
	main := env.MustFund(t, scope, "General", fund.TypeMain)
	campaign := env.MustFund(t, scope, "Eid", fund.TypeCampaign)

	env.MustPost(t, scope, main, transaction.Credit, "100")
	assert.True(t, dec("100").Equal(env.Balance(t, scope, main)))
	assert.Contains(t, cache.values, main.Id)

	env.MustPost(t, scope, main, transaction.Debit, "25")
	assert.NotContains(t, cache.values, main.Id)
	assert.True(t, dec("75").Equal(env.Balance(t, scope, main)))

	_, err := env.Adjustments.CreateAdjustment(context.Background(), scope, &adjustment.CreateAdjustmentRequest{
		MainFundId:     main.Id,
		CampaignFundId: campaign.Id,
		Amount:         dec("75"),
		Type:           adjustment.ToCampaign,
	})
	require.NoError(t, err)
	assert.True(t, env.Balance(t, scope, main).IsZero())
	assert.True(t, dec("75").Equal(env.Balance(t, scope, campaign)))

	cache.mu.Lock()
	cache.getErr = errors.New("redis down")
	cache.mu.Unlock()
	assert.True(t, dec("75").Equal(env.Balance(t, scope, campaign)), "cache failures fall back to the store")
}

// writeAfterTotals commits a credit once, right after the first FundTotals
// call computed its result.
type writeAfterTotals struct {
	*ledgertest.BalanceRepository
	once  sync.Once
	write func()
}

func (r *writeAfterTotals) FundTotals(ctx context.Context, organizationID, fundID ulid.ULID) (balance.Totals, error) {
	totals, err := r.BalanceRepository.FundTotals(ctx, organizationID, fundID)
	r.once.Do(r.write)
	return totals, err
}

func TestBalanceCacheIgnoresResultsOvertakenByWrites(t *testing.T) {
	t.Parallel()
	env := ledgertest.NewEnv()
	cache := newMemoryCache()
	env.Balances.Cache = cache

	scope := env.NewOrganization(t, "Alpha")
	main := env.MustFund(t, scope, "General", fund.TypeMain)
	env.MustPost(t, scope, main, transaction.Credit, "100")

	reader := &balance.Service{
		Repository: &writeAfterTotals{
			BalanceRepository: env.Store.Balances(),
			write:             func() { env.MustPost(t, scope, main, transaction.Credit, "50") },
		},
		Funds: env.Funds,
		Cache: cache,
	}

	first, err := reader.GetBalance(context.Background(), scope, main.Id)
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(first), "the racing read reports what it saw")

	_, ok := cache.cached(main.Id)
	assert.False(t, ok, "a balance computed before the write is not cached")

	assert.True(t, dec("150").Equal(env.Balance(t, scope, main)))
	got, ok := cache.cached(main.Id)
	require.True(t, ok)
	assert.True(t, dec("150").Equal(got))
}
