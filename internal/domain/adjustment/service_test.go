package adjustment_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/adjustment"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/audit"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/fund"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/tenant"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/transaction"
	appErrors "github.com/shakilmiahcse/social-org-finance/internal/errors"
	"github.com/shakilmiahcse/social-org-finance/internal/ledgertest"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	env      *ledgertest.Env
	scope    tenant.Scope
	main     *fund.Fund
	campaign *fund.Fund
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	env := ledgertest.NewEnv()
	scope := env.NewOrganization(t, "Alpha")
	return &fixture{
		env:      env,
		scope:    scope,
		main:     env.MustFund(t, scope, "General", fund.TypeMain),
		campaign: env.MustFund(t, scope, "Flood Relief", fund.TypeCampaign),
	}
}

func (f *fixture) adjust(t *testing.T, typ adjustment.Types, amount string) *adjustment.CampaignAdjustment {
	t.Helper()
	adj, err := f.env.Adjustments.CreateAdjustment(context.Background(), f.scope, &adjustment.CreateAdjustmentRequest{
		MainFundId:     f.main.Id,
		CampaignFundId: f.campaign.Id,
		Amount:         decimal.RequireFromString(amount),
		Type:           typ,
	})
	require.NoError(t, err)
	return adj
}

func (f *fixture) requireBalances(t *testing.T, main, campaign string) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(main).Equal(f.env.Balance(t, f.scope, f.main)), "main balance")
	assert.True(t, decimal.RequireFromString(campaign).Equal(f.env.Balance(t, f.scope, f.campaign)), "campaign balance")
}

func requireKind(t *testing.T, err error, kind appErrors.Kind) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := appErrors.AsAppError(err)
	require.True(t, ok, "expected AppError, got %T", err)
	assert.Equal(t, kind, appErr.Kind, appErr.Error())
}

func TestCreateAndDeleteAdjustmentsMoveBalances(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	first := f.adjust(t, adjustment.ToCampaign, "1000")
	require.Len(t, first.Legs, 2)

	debit, credit := first.Legs[0], first.Legs[1]
	assert.Equal(t, transaction.Debit, debit.Type)
	assert.Equal(t, f.main.Id, debit.FundId)
	assert.Equal(t, transaction.Credit, credit.Type)
	assert.Equal(t, f.campaign.Id, credit.FundId)
	for _, leg := range first.Legs {
		assert.True(t, decimal.NewFromInt(1000).Equal(leg.Amount))
		assert.Equal(t, transaction.StatusCompleted, leg.Status)
		assert.Equal(t, transaction.PaymentAdjustment, leg.PaymentMethod)
		assert.Equal(t, adjustment.PurposeCampaignAdjustment, leg.Purpose)
		require.NotNil(t, leg.AdjustmentId)
		assert.Equal(t, first.Id, *leg.AdjustmentId)
		assert.NotEmpty(t, leg.TxnId)
	}
	assert.Equal(t, "Adjustment to Campaign Fund: Flood Relief", debit.Note)
	assert.Equal(t, "Received from Main Fund: General", credit.Note)
	f.requireBalances(t, "-1000", "1000")

	assert.Equal(t, first.SourceFundId(), debit.FundId)
	assert.Equal(t, first.TargetFundId(), credit.FundId)

	second := f.adjust(t, adjustment.ToMain, "400")
	assert.Equal(t, f.campaign.Id, second.Legs[0].FundId)
	assert.Equal(t, second.SourceFundId(), second.Legs[0].FundId)
	assert.Equal(t, f.main.Id, second.TargetFundId())
	assert.Equal(t, second.TargetFundId(), second.Legs[1].FundId)
	assert.Equal(t, adjustment.PurposeCampaignReturn, second.Legs[0].Purpose)
	f.requireBalances(t, "-600", "600")

	require.NoError(t, f.env.Adjustments.DeleteAdjustment(context.Background(), f.scope, first.Id))
	f.requireBalances(t, "400", "-400")

	_, err := f.env.Adjustments.GetAdjustment(context.Background(), f.scope, first.Id)
	requireKind(t, err, appErrors.KindNotFound)
	for _, leg := range first.Legs {
		_, err := f.env.Transactions.GetTransactionByID(context.Background(), f.scope, leg.Id)
		requireKind(t, err, appErrors.KindNotFound)
	}
}

func TestAdjustmentLegsConserveMoney(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.adjust(t, adjustment.ToCampaign, "250.50")
	f.adjust(t, adjustment.ToMain, "100.25")
	f.adjust(t, adjustment.ToCampaign, "0.01")

	net := decimal.Zero
	for _, entry := range f.env.Store.Transactions() {
		if entry.IsAdjustmentLeg() {
			net = net.Add(entry.SignedAmount())
		}
	}
	assert.True(t, net.IsZero(), "adjustment legs should net to zero, got %s", net)

	total := f.env.Balance(t, f.scope, f.main).Add(f.env.Balance(t, f.scope, f.campaign))
	assert.True(t, total.IsZero())
}

func TestCreateAdjustmentValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	closed := f.env.MustFund(t, f.scope, "Old Campaign", fund.TypeCampaign)
	_, err := f.env.Funds.CloseFund(context.Background(), f.scope, closed.Id, "done")
	require.NoError(t, err)

	other := f.env.NewOrganization(t, "Beta")
	foreign := f.env.MustFund(t, other, "Beta Campaign", fund.TypeCampaign)

	tests := []struct {
		name string
		req  adjustment.CreateAdjustmentRequest
		kind appErrors.Kind
	}{
		{
			name: "zero amount",
			req:  adjustment.CreateAdjustmentRequest{MainFundId: f.main.Id, CampaignFundId: f.campaign.Id, Amount: decimal.Zero, Type: adjustment.ToCampaign},
			kind: appErrors.KindValidation,
		},
		{
			name: "negative amount",
			req:  adjustment.CreateAdjustmentRequest{MainFundId: f.main.Id, CampaignFundId: f.campaign.Id, Amount: decimal.NewFromInt(-5), Type: adjustment.ToCampaign},
			kind: appErrors.KindValidation,
		},
		{
			name: "too many decimals",
			req:  adjustment.CreateAdjustmentRequest{MainFundId: f.main.Id, CampaignFundId: f.campaign.Id, Amount: decimal.RequireFromString("1.005"), Type: adjustment.ToCampaign},
			kind: appErrors.KindValidation,
		},
		{
			name: "unknown type",
			req:  adjustment.CreateAdjustmentRequest{MainFundId: f.main.Id, CampaignFundId: f.campaign.Id, Amount: decimal.NewFromInt(5), Type: "sideways"},
			kind: appErrors.KindValidation,
		},
		{
			name: "same fund on both sides",
			req:  adjustment.CreateAdjustmentRequest{MainFundId: f.main.Id, CampaignFundId: f.main.Id, Amount: decimal.NewFromInt(5), Type: adjustment.ToCampaign},
			kind: appErrors.KindValidation,
		},
		{
			name: "missing campaign fund",
			req:  adjustment.CreateAdjustmentRequest{MainFundId: f.main.Id, CampaignFundId: ulid.Make(), Amount: decimal.NewFromInt(5), Type: adjustment.ToCampaign},
			kind: appErrors.KindValidation,
		},
		{
			name: "campaign fund of another organization",
			req:  adjustment.CreateAdjustmentRequest{MainFundId: f.main.Id, CampaignFundId: foreign.Id, Amount: decimal.NewFromInt(5), Type: adjustment.ToCampaign},
			kind: appErrors.KindValidation,
		},
		{
			name: "campaign passed as main",
			req:  adjustment.CreateAdjustmentRequest{MainFundId: f.campaign.Id, CampaignFundId: closed.Id, Amount: decimal.NewFromInt(5), Type: adjustment.ToCampaign},
			kind: appErrors.KindValidation,
		},
		{
			name: "closed campaign fund",
			req:  adjustment.CreateAdjustmentRequest{MainFundId: f.main.Id, CampaignFundId: closed.Id, Amount: decimal.NewFromInt(5), Type: adjustment.ToCampaign},
			kind: appErrors.KindValidation,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.env.Adjustments.CreateAdjustment(context.Background(), f.scope, &tt.req)
			requireKind(t, err, tt.kind)
		})
	}

	assert.Zero(t, f.env.Store.AdjustmentCount())
	assert.Empty(t, f.env.Store.Transactions())
}

func TestCreateAdjustmentRollsBackOnFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		op    string
		after int
	}{
		{name: "adjustment row", op: ledgertest.OpCreateAdjustment, after: 0},
		{name: "debit leg", op: ledgertest.OpCreateTransaction, after: 0},
		{name: "credit leg", op: ledgertest.OpCreateTransaction, after: 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			f.env.MustPost(t, f.scope, f.main, transaction.Credit, "5000")
			eventsBefore := len(f.env.Audit.Events())

			f.env.Store.FailAfter(tt.op, tt.after, errors.New("connection reset"))
			_, err := f.env.Adjustments.CreateAdjustment(context.Background(), f.scope, &adjustment.CreateAdjustmentRequest{
				MainFundId:     f.main.Id,
				CampaignFundId: f.campaign.Id,
				Amount:         decimal.NewFromInt(1000),
				Type:           adjustment.ToCampaign,
			})
			requireKind(t, err, appErrors.KindAdjustmentFailed)
			f.env.Store.ClearFaults()

			assert.Zero(t, f.env.Store.AdjustmentCount())
			assert.Len(t, f.env.Store.Transactions(), 1)
			f.requireBalances(t, "5000", "0")
			assert.Len(t, f.env.Audit.Events(), eventsBefore, "no audit event for a rolled back adjustment")
		})
	}
}

func TestDeleteAdjustmentRollsBackOnFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	adj := f.adjust(t, adjustment.ToCampaign, "300")

	f.env.Store.FailAfter(ledgertest.OpDeleteAdjustment, 0, errors.New("lock timeout"))
	err := f.env.Adjustments.DeleteAdjustment(context.Background(), f.scope, adj.Id)
	requireKind(t, err, appErrors.KindAdjustmentFailed)
	f.env.Store.ClearFaults()

	got, err := f.env.Adjustments.GetAdjustment(context.Background(), f.scope, adj.Id)
	require.NoError(t, err)
	assert.Len(t, got.Legs, 2)
	f.requireBalances(t, "-300", "300")
}

func TestDeleteAdjustmentRequiresBothLegs(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	adj := f.adjust(t, adjustment.ToCampaign, "300")

	// simulate a corrupted pair by removing one leg behind the service's back
	require.NoError(t, f.env.Store.TransactionRepo().Delete(context.Background(), f.scope.OrganizationId, adj.Legs[0].Id))

	err := f.env.Adjustments.DeleteAdjustment(context.Background(), f.scope, adj.Id)
	requireKind(t, err, appErrors.KindInvariantViolation)

	got, err := f.env.Adjustments.GetAdjustment(context.Background(), f.scope, adj.Id)
	require.NoError(t, err)
	assert.Len(t, got.Legs, 1)
}

func TestAdjustmentLegsAreProtected(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	adj := f.adjust(t, adjustment.ToCampaign, "300")
	leg := adj.Legs[0]
	ctx := context.Background()

	amount := decimal.NewFromInt(1)
	_, err := f.env.Transactions.UpdateTransaction(ctx, f.scope, leg.Id, &transaction.UpdateTransactionRequest{Amount: &amount})
	requireKind(t, err, appErrors.KindInvariantViolation)

	canceled := transaction.StatusCanceled
	_, err = f.env.Transactions.UpdateTransaction(ctx, f.scope, leg.Id, &transaction.UpdateTransactionRequest{Status: &canceled})
	requireKind(t, err, appErrors.KindInvariantViolation)

	err = f.env.Transactions.DeleteTransaction(ctx, f.scope, leg.Id)
	requireKind(t, err, appErrors.KindInvariantViolation)

	note := "moved for flood relief"
	updated, err := f.env.Transactions.UpdateTransaction(ctx, f.scope, leg.Id, &transaction.UpdateTransactionRequest{Note: &note})
	require.NoError(t, err)
	assert.Equal(t, note, updated.Note)

	f.requireBalances(t, "-300", "300")
}

func TestAdjustmentTenantIsolation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	adj := f.adjust(t, adjustment.ToCampaign, "300")
	ctx := context.Background()

	other := f.env.NewOrganization(t, "Beta")

	_, err := f.env.Adjustments.GetAdjustment(ctx, other, adj.Id)
	requireKind(t, err, appErrors.KindNotFound)

	err = f.env.Adjustments.DeleteAdjustment(ctx, other, adj.Id)
	requireKind(t, err, appErrors.KindNotFound)

	list, total, err := f.env.Adjustments.ListAdjustments(ctx, other, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)

	_, err = f.env.Adjustments.CreateAdjustment(ctx, other, &adjustment.CreateAdjustmentRequest{
		MainFundId:     f.main.Id,
		CampaignFundId: f.campaign.Id,
		Amount:         decimal.NewFromInt(10),
		Type:           adjustment.ToCampaign,
	})
	requireKind(t, err, appErrors.KindValidation)

	_, err = f.env.Adjustments.CreateAdjustment(ctx, tenant.Scope{}, &adjustment.CreateAdjustmentRequest{})
	requireKind(t, err, appErrors.KindUnauthorized)
}

func TestAdjustmentEmitsAuditEvents(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	adj := f.adjust(t, adjustment.ToCampaign, "75")
	require.NoError(t, f.env.Adjustments.DeleteAdjustment(context.Background(), f.scope, adj.Id))

	var actions []audit.Action
	for _, ev := range f.env.Audit.Events() {
		if ev.Entity == audit.EntityAdjustment {
			assert.Equal(t, adj.Id, ev.EntityId)
			assert.Equal(t, f.scope.ActorId, ev.ActorId)
			actions = append(actions, ev.Action)
		}
	}
	assert.Equal(t, []audit.Action{audit.ActionCreated, audit.ActionDeleted}, actions)
}

func TestListAdjustmentsFilters(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.adjust(t, adjustment.ToCampaign, "10")
	f.adjust(t, adjustment.ToMain, "5")

	toMain := adjustment.ToMain
	list, total, err := f.env.Adjustments.ListAdjustments(context.Background(), f.scope, &adjustment.Filters{Type: &toMain}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, adjustment.ToMain, list[0].Type)

	bad := adjustment.Types("bogus")
	_, _, err = f.env.Adjustments.ListAdjustments(context.Background(), f.scope, &adjustment.Filters{Type: &bad}, nil)
	requireKind(t, err, appErrors.KindValidation)
}
