package balance

import (
	"time"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/fund"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/transaction"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// Totals aggregates completed entries only.
type Totals struct {
	Credit  decimal.Decimal `json:"totalCredit"`
	Debit   decimal.Decimal `json:"totalDebit"`
	Balance decimal.Decimal `json:"balance"`
	Count   int64           `json:"count"`
}

func NewTotals(credit, debit decimal.Decimal, count int64) Totals {
	return Totals{
		Credit:  credit,
		Debit:   debit,
		Balance: credit.Sub(debit),
		Count:   count,
	}
}

type RunningEntry struct {
	Transaction *transaction.Transaction `json:"transaction"`
	Balance     decimal.Decimal          `json:"runningBalance"`
}

type FundHistory struct {
	Fund    *fund.Fund     `json:"fund"`
	Entries []RunningEntry `json:"entries"`
	Summary Totals         `json:"summary"`
}

type FundBalance struct {
	Fund    *fund.Fund      `json:"fund"`
	Balance decimal.Decimal `json:"balance"`
}

// FundTotal is a per-fund aggregate row as produced by the store.
type FundTotal struct {
	FundId ulid.ULID
	Totals Totals
}

type MonthlyBucket struct {
	Year      int             `json:"year"`
	Month     int             `json:"month"`
	Credit    decimal.Decimal `json:"credit"`
	Debit     decimal.Decimal `json:"debit"`
	Net       decimal.Decimal `json:"net"`
	Count     int64           `json:"count"`
	AvgCredit decimal.Decimal `json:"avgCredit"`
	AvgDebit  decimal.Decimal `json:"avgDebit"`
}

type SummaryQuery struct {
	From               time.Time
	To                 time.Time
	FundId             *ulid.ULID
	ExcludeAdjustments bool
}

type Summary struct {
	From             time.Time       `json:"from"`
	To               time.Time       `json:"to"`
	TotalCredit      decimal.Decimal `json:"totalCredit"`
	TotalDebit       decimal.Decimal `json:"totalDebit"`
	NetBalance       decimal.Decimal `json:"netBalance"`
	TransactionCount int64           `json:"transactionCount"`
	AvgTransaction   decimal.Decimal `json:"avgTransaction"`
	// GrowthRate is the percent change in credits against the window of the
	// same length that ends right before From. It is zero when that window
	// has no credits.
	GrowthRate decimal.Decimal `json:"growthRate"`
	Trend      []MonthlyBucket `json:"trend"`
}

type DonorTotal struct {
	DonorId     ulid.ULID       `json:"donorId"`
	Name        string          `json:"name"`
	Email       string          `json:"email,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Count       int64           `json:"count"`
	AvgDonation decimal.Decimal `json:"avgDonation"`
}

type PeriodFlow struct {
	From   time.Time       `json:"from"`
	To     time.Time       `json:"to"`
	Credit decimal.Decimal `json:"credit"`
	Debit  decimal.Decimal `json:"debit"`
	Net    decimal.Decimal `json:"net"`
}

// MonthlyComparison sets the current calendar month so far against the whole
// previous month.
type MonthlyComparison struct {
	Current      PeriodFlow      `json:"current"`
	Previous     PeriodFlow      `json:"previous"`
	CreditChange decimal.Decimal `json:"creditChange"`
}

// Donation size ranges, by amount of a single completed credit.
const (
	RangeSmall  = "small"
	RangeMedium = "medium"
	RangeLarge  = "large"
	RangeMajor  = "major"
)

var (
	smallLimit  = decimal.NewFromInt(1000)
	mediumLimit = decimal.NewFromInt(5000)
	largeLimit  = decimal.NewFromInt(10000)
)

// DonationRangeOf buckets an amount: small below 1000, medium up to 5000,
// large up to 10000, major above.
func DonationRangeOf(amount decimal.Decimal) string {
	switch {
	case amount.LessThan(smallLimit):
		return RangeSmall
	case amount.LessThanOrEqual(mediumLimit):
		return RangeMedium
	case amount.LessThanOrEqual(largeLimit):
		return RangeLarge
	default:
		return RangeMajor
	}
}

type DistributionBucket struct {
	Range string          `json:"range"`
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// average divides and rounds to cents; an empty set averages to zero.
func average(sum decimal.Decimal, count int64) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return sum.DivRound(decimal.NewFromInt(count), 2)
}

// percentChange is (current - previous) / previous * 100, rounded to two
// places, or zero when previous is zero.
func percentChange(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return decimal.Zero
	}
	return current.Sub(previous).Mul(decimal.NewFromInt(100)).DivRound(previous, 2)
}
