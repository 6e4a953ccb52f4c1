package transaction_test

import (
	"context"
	"testing"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/fund"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/tenant"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/transaction"
	appErrors "github.com/shakilmiahcse/social-org-finance/internal/errors"
	"github.com/shakilmiahcse/social-org-finance/internal/ledgertest"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireKind(t *testing.T, err error, kind appErrors.Kind) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := appErrors.AsAppError(err)
	require.True(t, ok, "expected AppError, got %T", err)
	assert.Equal(t, kind, appErr.Kind, appErr.Error())
}

func setup(t *testing.T) (*ledgertest.Env, tenant.Scope, *fund.Fund) {
	t.Helper()
	env := ledgertest.NewEnv()
	scope := env.NewOrganization(t, "Alpha")
	return env, scope, env.MustFund(t, scope, "General", fund.TypeMain)
}

func TestCreateTransaction(t *testing.T) {
	t.Parallel()
	env, scope, main := setup(t)
	ctx := context.Background()

	txn, err := env.Transactions.CreateTransaction(ctx, scope, &transaction.CreateTransactionRequest{
		FundId:        main.Id,
		Amount:        decimal.RequireFromString("1500.75"),
		Type:          transaction.Credit,
		PaymentMethod: transaction.PaymentBkash,
		Purpose:       "  Zakat  ",
	})
	require.NoError(t, err)

	assert.Equal(t, transaction.StatusPending, txn.Status, "status defaults to pending")
	assert.Equal(t, "Zakat", txn.Purpose)
	assert.Equal(t, scope.OrganizationId, txn.OrganizationId)
	assert.Equal(t, &scope.ActorId, txn.CreatedBy)
	assert.Regexp(t, `^TXN\d+$`, txn.TxnId)
	assert.Nil(t, txn.AdjustmentId)
	assert.True(t, env.Balance(t, scope, main).IsZero(), "pending entries do not count")

	income, err := env.Transactions.CreateIncome(ctx, scope, &transaction.CreateTransactionRequest{
		FundId:        main.Id,
		Amount:        decimal.NewFromInt(200),
		Type:          transaction.Debit,
		PaymentMethod: transaction.PaymentCash,
		Status:        transaction.StatusCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, transaction.Credit, income.Type)

	expense, err := env.Transactions.CreateExpense(ctx, scope, &transaction.CreateTransactionRequest{
		FundId:        main.Id,
		Amount:        decimal.NewFromInt(50),
		PaymentMethod: transaction.PaymentCash,
		Status:        transaction.StatusCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, transaction.Debit, expense.Type)

	assert.True(t, decimal.NewFromInt(150).Equal(env.Balance(t, scope, main)))
}

func TestCreateTransactionValidation(t *testing.T) {
	t.Parallel()
	env, scope, main := setup(t)

	closed := env.MustFund(t, scope, "Winter Clothes", fund.TypeCampaign)
	_, err := env.Funds.CloseFund(context.Background(), scope, closed.Id, "")
	require.NoError(t, err)

	other := env.NewOrganization(t, "Beta")
	foreignFund := env.MustFund(t, other, "Beta Main", fund.TypeMain)
	foreignDonor := env.MustDonor(t, other, "Rahim")

	valid := func(mutate func(r *transaction.CreateTransactionRequest)) *transaction.CreateTransactionRequest {
		req := &transaction.CreateTransactionRequest{
			FundId:        main.Id,
			Amount:        decimal.NewFromInt(10),
			Type:          transaction.Credit,
			PaymentMethod: transaction.PaymentCash,
		}
		mutate(req)
		return req
	}

	tests := []struct {
		name  string
		req   *transaction.CreateTransactionRequest
		field string
	}{
		{"zero amount", valid(func(r *transaction.CreateTransactionRequest) { r.Amount = decimal.Zero }), "amount"},
		{"negative amount", valid(func(r *transaction.CreateTransactionRequest) { r.Amount = decimal.NewFromInt(-1) }), "amount"},
		{"sub cent amount", valid(func(r *transaction.CreateTransactionRequest) { r.Amount = decimal.RequireFromString("0.001") }), "amount"},
		{"unknown type", valid(func(r *transaction.CreateTransactionRequest) { r.Type = "transfer" }), "type"},
		{"unknown status", valid(func(r *transaction.CreateTransactionRequest) { r.Status = "done" }), "status"},
		{"reserved payment method", valid(func(r *transaction.CreateTransactionRequest) { r.PaymentMethod = transaction.PaymentAdjustment }), "payment_method"},
		{"missing fund", valid(func(r *transaction.CreateTransactionRequest) { r.FundId = ulid.ULID{} }), "fund_id"},
		{"unknown fund", valid(func(r *transaction.CreateTransactionRequest) { r.FundId = ulid.Make() }), "fund_id"},
		{"fund of another organization", valid(func(r *transaction.CreateTransactionRequest) { r.FundId = foreignFund.Id }), "fund_id"},
		{"closed fund", valid(func(r *transaction.CreateTransactionRequest) { r.FundId = closed.Id }), "fund_id"},
		{"donor of another organization", valid(func(r *transaction.CreateTransactionRequest) { r.DonorId = &foreignDonor.Id }), "donor_id"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Transactions.CreateTransaction(context.Background(), scope, tt.req)
			requireKind(t, err, appErrors.KindValidation)
			appErr, _ := appErrors.AsAppError(err)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}

	for _, entry := range env.Store.Transactions() {
		assert.NotEqual(t, scope.OrganizationId, entry.OrganizationId, "nothing should be stored for Alpha")
	}
}

func TestPostRegeneratesCollidingTxnID(t *testing.T) {
	t.Parallel()
	env, scope, main := setup(t)
	first := env.MustPost(t, scope, main, transaction.Credit, "10")

	env.IDs.Repeat(2)
	second := env.MustPost(t, scope, main, transaction.Credit, "20")
	assert.NotEqual(t, first.TxnId, second.TxnId)

	env.IDs.Repeat(transaction.DefaultTxnIDRetries)
	_, err := env.Transactions.CreateTransaction(context.Background(), scope, &transaction.CreateTransactionRequest{
		FundId:        main.Id,
		Amount:        decimal.NewFromInt(30),
		Type:          transaction.Credit,
		PaymentMethod: transaction.PaymentCash,
		Status:        transaction.StatusCompleted,
	})
	requireKind(t, err, appErrors.KindConcurrencyConflict)

	assert.Len(t, env.Store.Transactions(), 2)
	assert.True(t, decimal.NewFromInt(30).Equal(env.Balance(t, scope, main)))
}

func TestUpdateTransaction(t *testing.T) {
	t.Parallel()
	env, scope, main := setup(t)
	campaign := env.MustFund(t, scope, "Iftar", fund.TypeCampaign)
	ctx := context.Background()

	txn := env.MustPost(t, scope, main, transaction.Credit, "100")

	moveTo := campaign.Id
	amount := decimal.NewFromInt(80)
	updated, err := env.Transactions.UpdateTransaction(ctx, scope, txn.Id, &transaction.UpdateTransactionRequest{
		FundId: &moveTo,
		Amount: &amount,
	})
	require.NoError(t, err)
	assert.Equal(t, campaign.Id, updated.FundId)
	assert.Equal(t, txn.TxnId, updated.TxnId, "txn_id never changes")
	assert.True(t, env.Balance(t, scope, main).IsZero())
	assert.True(t, amount.Equal(env.Balance(t, scope, campaign)))

	canceled := transaction.StatusCanceled
	_, err = env.Transactions.UpdateTransaction(ctx, scope, txn.Id, &transaction.UpdateTransactionRequest{Status: &canceled})
	require.NoError(t, err)
	assert.True(t, env.Balance(t, scope, campaign).IsZero())

	zero := decimal.Zero
	_, err = env.Transactions.UpdateTransaction(ctx, scope, txn.Id, &transaction.UpdateTransactionRequest{Amount: &zero})
	requireKind(t, err, appErrors.KindValidation)

	other := env.NewOrganization(t, "Beta")
	_, err = env.Transactions.UpdateTransaction(ctx, other, txn.Id, &transaction.UpdateTransactionRequest{Amount: &amount})
	requireKind(t, err, appErrors.KindNotFound)
}

func TestDeleteTransaction(t *testing.T) {
	t.Parallel()
	env, scope, main := setup(t)
	ctx := context.Background()

	keep := env.MustPost(t, scope, main, transaction.Credit, "100")
	drop := env.MustPost(t, scope, main, transaction.Debit, "40")

	other := env.NewOrganization(t, "Beta")
	requireKind(t, env.Transactions.DeleteTransaction(ctx, other, drop.Id), appErrors.KindNotFound)

	require.NoError(t, env.Transactions.DeleteTransaction(ctx, scope, drop.Id))
	_, err := env.Transactions.GetTransactionByID(ctx, scope, drop.Id)
	requireKind(t, err, appErrors.KindNotFound)

	_, err = env.Transactions.GetTransactionByID(ctx, scope, keep.Id)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(env.Balance(t, scope, main)))
}

func TestGetTransactionByTxnID(t *testing.T) {
	t.Parallel()
	env, scope, main := setup(t)
	txn := env.MustPost(t, scope, main, transaction.Credit, "5")

	got, err := env.Transactions.GetTransactionByTxnID(context.Background(), scope, " "+txn.TxnId+" ")
	require.NoError(t, err)
	assert.Equal(t, txn.Id, got.Id)

	other := env.NewOrganization(t, "Beta")
	_, err = env.Transactions.GetTransactionByTxnID(context.Background(), other, txn.TxnId)
	requireKind(t, err, appErrors.KindNotFound)

	_, err = env.Transactions.GetTransactionByTxnID(context.Background(), scope, "")
	requireKind(t, err, appErrors.KindValidation)
}

func TestGetReceipt(t *testing.T) {
	t.Parallel()
	env, scope, main := setup(t)
	donor := env.MustDonor(t, scope, "Karim")

	txn, err := env.Transactions.CreateIncome(context.Background(), scope, &transaction.CreateTransactionRequest{
		FundId:        main.Id,
		DonorId:       &donor.Id,
		Amount:        decimal.RequireFromString("1000.50"),
		PaymentMethod: transaction.PaymentNagad,
		Status:        transaction.StatusCompleted,
	})
	require.NoError(t, err)

	receipt, err := env.Transactions.GetReceipt(context.Background(), scope, txn.Id)
	require.NoError(t, err)
	assert.Equal(t, "General", receipt.FundName)
	assert.Equal(t, "Karim", receipt.DonorName)
	assert.Equal(t, "Alpha", receipt.Organization)
	assert.Equal(t, "BDT", receipt.Currency)
	assert.Equal(t, pkg.FormatAmount(txn.Amount, "BDT"), receipt.FormattedAmount)
}

func TestListTransactionsIsTenantScoped(t *testing.T) {
	t.Parallel()
	env, scope, main := setup(t)
	ctx := context.Background()

	env.MustPost(t, scope, main, transaction.Credit, "1")
	env.MustPost(t, scope, main, transaction.Debit, "1")

	other := env.NewOrganization(t, "Beta")
	otherMain := env.MustFund(t, other, "Beta Main", fund.TypeMain)
	env.MustPost(t, other, otherMain, transaction.Credit, "99")

	list, total, err := env.Transactions.ListTransactions(ctx, scope, nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, txn := range list {
		assert.Equal(t, scope.OrganizationId, txn.OrganizationId)
	}

	credits, total, err := env.Transactions.ListTransactions(ctx, scope, &transaction.Filters{Types: []transaction.Types{transaction.Credit}}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, transaction.Credit, credits[0].Type)

	_, _, err = env.Transactions.ListByFund(ctx, scope, otherMain.Id, nil, nil)
	requireKind(t, err, appErrors.KindNotFound)

	_, _, err = env.Transactions.ListTransactions(ctx, scope, &transaction.Filters{Statuses: []transaction.Status{"lost"}}, nil)
	requireKind(t, err, appErrors.KindValidation)
}

func TestIterateWalksAllEntriesNewestFirst(t *testing.T) {
	t.Parallel()
	env, scope, main := setup(t)

	const count = 230
	for i := 0; i < count; i++ {
		env.MustPost(t, scope, main, transaction.Credit, "1")
	}

	seen := make(map[ulid.ULID]struct{}, count)
	var previous *transaction.Transaction
	for txn, err := range env.Transactions.Iterate(context.Background(), scope, nil) {
		require.NoError(t, err)
		if previous != nil {
			newer := txn.CreatedAt.After(previous.CreatedAt) ||
				(txn.CreatedAt.Equal(previous.CreatedAt) && txn.Id.Compare(previous.Id) > 0)
			assert.False(t, newer, "entries must come newest first")
		}
		seen[txn.Id] = struct{}{}
		previous = txn
	}
	assert.Len(t, seen, count)

	taken := 0
	for range env.Transactions.Iterate(context.Background(), scope, nil) {
		taken++
		if taken == 5 {
			break
		}
	}
	assert.Equal(t, 5, taken)

	for _, err := range env.Transactions.Iterate(context.Background(), tenant.Scope{}, nil) {
		requireKind(t, err, appErrors.KindUnauthorized)
	}
}
