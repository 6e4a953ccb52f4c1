package infrastructure

import (
	"context"
	"time"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/balance"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/transaction"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg/query"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const sumCreditDebit = `COALESCE(SUM(CASE WHEN type = 'credit' THEN amount ELSE 0 END), 0) AS credit,
	COALESCE(SUM(CASE WHEN type = 'debit' THEN amount ELSE 0 END), 0) AS debit,
	COUNT(*) AS count`

const avgCreditDebit = `COALESCE(ROUND(AVG(CASE WHEN type = 'credit' THEN amount END), 2), 0) AS avg_credit,
	COALESCE(ROUND(AVG(CASE WHEN type = 'debit' THEN amount END), 2), 0) AS avg_debit`

const donationRange = `CASE
	WHEN amount < 1000 THEN 'small'
	WHEN amount <= 5000 THEN 'medium'
	WHEN amount <= 10000 THEN 'large'
	ELSE 'major' END`

// BalanceRepository aggregates completed entries in postgres. Nothing here
// writes or locks; balances are always recomputed from the ledger.
type BalanceRepository struct {
	DB *gorm.DB
}

var _ balance.Repository = (*BalanceRepository)(nil)

type totalsRow struct {
	FundId string
	Credit decimal.Decimal
	Debit  decimal.Decimal
	Count  int64
}

func (r *BalanceRepository) completed(ctx context.Context, organizationID ulid.ULID) *gorm.DB {
	return conn(ctx, r.DB).Table("transactions").
		Where("organization_id = ? AND status = ?", organizationID.String(), string(transaction.StatusCompleted))
}

func (r *BalanceRepository) FundTotals(ctx context.Context, organizationID, fundID ulid.ULID) (balance.Totals, error) {
	var row totalsRow
	err := r.completed(ctx, organizationID).
		Where("fund_id = ?", fundID.String()).
		Select(sumCreditDebit).
		Scan(&row).Error
	if err != nil {
		return balance.Totals{}, err
	}
	return balance.NewTotals(row.Credit, row.Debit, row.Count), nil
}

func (r *BalanceRepository) AllFundTotals(ctx context.Context, organizationID ulid.ULID) ([]balance.FundTotal, error) {
	var rows []totalsRow
	err := r.completed(ctx, organizationID).
		Select("fund_id, " + sumCreditDebit).
		Group("fund_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make([]balance.FundTotal, 0, len(rows))
	for _, row := range rows {
		fundID, err := pkg.ParseULID(row.FundId)
		if err != nil {
			return nil, err
		}
		totals = append(totals, balance.FundTotal{
			FundId: fundID,
			Totals: balance.NewTotals(row.Credit, row.Debit, row.Count),
		})
	}
	return totals, nil
}

func (r *BalanceRepository) CompletedEntries(ctx context.Context, organizationID, fundID ulid.ULID) ([]*transaction.Transaction, error) {
	q := query.New[transactionDB](conn(ctx, r.DB), "transactions").
		Context(ctx).
		Where("organization_id = ? AND fund_id = ? AND status = ?", organizationID.String(), fundID.String(), string(transaction.StatusCompleted)).
		Order("created_at ASC, id ASC")
	return query.All(q, toDomainTransaction)
}

func (r *BalanceRepository) window(ctx context.Context, organizationID ulid.ULID, q balance.SummaryQuery) *gorm.DB {
	db := r.completed(ctx, organizationID).
		Where("created_at >= ? AND created_at <= ?", q.From, q.To)
	if q.FundId != nil {
		db = db.Where("fund_id = ?", q.FundId.String())
	}
	if q.ExcludeAdjustments {
		db = db.Where("adjustment_id IS NULL")
	}
	return db
}

// MonthlyTotals buckets by calendar month in UTC.
func (r *BalanceRepository) MonthlyTotals(ctx context.Context, organizationID ulid.ULID, q balance.SummaryQuery) ([]balance.MonthlyBucket, error) {
	type bucketRow struct {
		Year      int
		Month     int
		Credit    decimal.Decimal
		Debit     decimal.Decimal
		Count     int64
		AvgCredit decimal.Decimal
		AvgDebit  decimal.Decimal
	}

	var rows []bucketRow
	err := r.window(ctx, organizationID, q).
		Select(`EXTRACT(YEAR FROM created_at AT TIME ZONE 'UTC')::int AS year,
			EXTRACT(MONTH FROM created_at AT TIME ZONE 'UTC')::int AS month, ` + sumCreditDebit + ", " + avgCreditDebit).
		Group("year, month").
		Order("year ASC, month ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	buckets := make([]balance.MonthlyBucket, 0, len(rows))
	for _, row := range rows {
		buckets = append(buckets, balance.MonthlyBucket{
			Year:      row.Year,
			Month:     row.Month,
			Credit:    row.Credit,
			Debit:     row.Debit,
			Count:     row.Count,
			AvgCredit: row.AvgCredit,
			AvgDebit:  row.AvgDebit,
		})
	}
	return buckets, nil
}

func (r *BalanceRepository) PeriodTotals(ctx context.Context, organizationID ulid.ULID, q balance.SummaryQuery) (balance.Totals, error) {
	var row totalsRow
	if err := r.window(ctx, organizationID, q).Select(sumCreditDebit).Scan(&row).Error; err != nil {
		return balance.Totals{}, err
	}
	return balance.NewTotals(row.Credit, row.Debit, row.Count), nil
}

func (r *BalanceRepository) DonationDistribution(ctx context.Context, organizationID ulid.ULID, from, to time.Time) ([]balance.DistributionBucket, error) {
	type rangeRow struct {
		Bucket string
		Count  int64
		Total  decimal.Decimal
	}

	var rows []rangeRow
	err := r.completed(ctx, organizationID).
		Where("type = ? AND created_at >= ? AND created_at <= ?", string(transaction.Credit), from, to).
		Select(donationRange + " AS bucket, COUNT(*) AS count, SUM(amount) AS total").
		Group("bucket").
		Order("total DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	buckets := make([]balance.DistributionBucket, 0, len(rows))
	for _, row := range rows {
		buckets = append(buckets, balance.DistributionBucket{Range: row.Bucket, Count: row.Count, Total: row.Total})
	}
	return buckets, nil
}

func (r *BalanceRepository) TopDonors(ctx context.Context, organizationID ulid.ULID, from, to time.Time, limit int) ([]balance.DonorTotal, error) {
	type donorRow struct {
		DonorId string
		Name    string
		Email   string
		Phone   string
		Amount  decimal.Decimal
		Count   int64
	}

	var rows []donorRow
	err := conn(ctx, r.DB).Table("transactions t").
		Select("t.donor_id, d.name, COALESCE(d.email, '') AS email, COALESCE(d.phone, '') AS phone, SUM(t.amount) AS amount, COUNT(*) AS count").
		Joins("JOIN donors d ON d.id = t.donor_id").
		Where("t.organization_id = ? AND t.status = ? AND t.type = ?", organizationID.String(), string(transaction.StatusCompleted), string(transaction.Credit)).
		Where("t.created_at >= ? AND t.created_at <= ?", from, to).
		Group("t.donor_id, d.name, d.email, d.phone").
		Order("amount DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	donors := make([]balance.DonorTotal, 0, len(rows))
	for _, row := range rows {
		donorID, err := pkg.ParseULID(row.DonorId)
		if err != nil {
			return nil, err
		}
		donors = append(donors, balance.DonorTotal{
			DonorId: donorID,
			Name:    row.Name,
			Email:   row.Email,
			Phone:   row.Phone,
			Amount:  row.Amount,
			Count:   row.Count,
		})
	}
	return donors, nil
}
