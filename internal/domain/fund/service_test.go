package fund_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/audit"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/fund"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/shared"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/transaction"
	appErrors "github.com/shakilmiahcse/social-org-finance/internal/errors"
	"github.com/shakilmiahcse/social-org-finance/internal/ledgertest"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireKind(t *testing.T, err error, kind appErrors.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, kind), "expected %s, got %v", kind, err)
}

func TestCreateFund(t *testing.T) {
	t.Parallel()
	env := ledgertest.NewEnv()
	scope := env.NewOrganization(t, "Alpha")
	ctx := context.Background()

	campaign, err := env.Funds.CreateFund(ctx, scope, &fund.CreateFundRequest{Name: "  Winter   Relief "})
	require.NoError(t, err)
	assert.Equal(t, "Winter Relief", campaign.Name)
	assert.Equal(t, fund.TypeCampaign, campaign.Type, "type defaults to campaign")
	assert.True(t, campaign.IsOpen())

	_, err = env.Funds.CreateFund(ctx, scope, &fund.CreateFundRequest{Name: "   "})
	requireKind(t, err, appErrors.KindValidation)

	_, err = env.Funds.CreateFund(ctx, scope, &fund.CreateFundRequest{Name: "X", Type: "savings"})
	requireKind(t, err, appErrors.KindValidation)

	main, err := env.Funds.CreateFund(ctx, scope, &fund.CreateFundRequest{Name: "General", Type: fund.TypeMain})
	require.NoError(t, err)

	_, err = env.Funds.CreateFund(ctx, scope, &fund.CreateFundRequest{Name: "Second Main", Type: fund.TypeMain})
	requireKind(t, err, appErrors.KindInvariantViolation)

	got, err := env.Funds.GetMainFund(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, main.Id, got.Id)
}

func TestMainFundLifecycle(t *testing.T) {
	t.Parallel()
	env := ledgertest.NewEnv()
	scope := env.NewOrganization(t, "Alpha")
	ctx := context.Background()

	main := env.MustFund(t, scope, "General", fund.TypeMain)
	campaign := env.MustFund(t, scope, "Eid", fund.TypeCampaign)

	_, err := env.Funds.CloseFund(ctx, scope, main.Id, "")
	requireKind(t, err, appErrors.KindInvariantViolation)
	requireKind(t, env.Funds.DeleteFund(ctx, scope, main.Id), appErrors.KindInvariantViolation)

	promoted, err := env.Funds.SetMainFund(ctx, scope, campaign.Id)
	require.NoError(t, err)
	assert.Equal(t, fund.TypeMain, promoted.Type)

	demoted, err := env.Funds.GetFundByID(ctx, scope, main.Id)
	require.NoError(t, err)
	assert.Equal(t, fund.TypeCampaign, demoted.Type)

	current, err := env.Funds.GetMainFund(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, campaign.Id, current.Id)

	again, err := env.Funds.SetMainFund(ctx, scope, campaign.Id)
	require.NoError(t, err)
	assert.Equal(t, campaign.Id, again.Id)

	closed, err := env.Funds.CloseFund(ctx, scope, main.Id, "merged")
	require.NoError(t, err)
	assert.False(t, closed.IsOpen())
	assert.Equal(t, "merged", closed.ClosedNote)

	_, err = env.Funds.SetMainFund(ctx, scope, main.Id)
	requireKind(t, err, appErrors.KindValidation)

	reopened, err := env.Funds.ReopenFund(ctx, scope, main.Id)
	require.NoError(t, err)
	assert.True(t, reopened.IsOpen())
	assert.Empty(t, reopened.ClosedNote)

	_, err = env.Funds.ReopenFund(ctx, scope, main.Id)
	requireKind(t, err, appErrors.KindValidation)
}

func TestClosedFundRejectsPostings(t *testing.T) {
	t.Parallel()
	env := ledgertest.NewEnv()
	scope := env.NewOrganization(t, "Alpha")
	env.MustFund(t, scope, "General", fund.TypeMain)
	campaign := env.MustFund(t, scope, "Eid", fund.TypeCampaign)
	env.MustPost(t, scope, campaign, transaction.Credit, "10")

	_, err := env.Funds.CloseFund(context.Background(), scope, campaign.Id, "")
	require.NoError(t, err)

	history, err := env.Balances.GetRunningBalance(context.Background(), scope, campaign.Id)
	require.NoError(t, err)
	assert.Len(t, history.Entries, 1, "closing keeps history")

	_, err = env.Transactions.CreateIncome(context.Background(), scope, &transaction.CreateTransactionRequest{
		FundId:        campaign.Id,
		Amount:        history.Summary.Balance,
		PaymentMethod: transaction.PaymentCash,
	})
	requireKind(t, err, appErrors.KindValidation)
}

func TestDeleteFund(t *testing.T) {
	t.Parallel()
	env := ledgertest.NewEnv()
	scope := env.NewOrganization(t, "Alpha")
	ctx := context.Background()

	env.MustFund(t, scope, "General", fund.TypeMain)
	used := env.MustFund(t, scope, "Used", fund.TypeCampaign)
	unused := env.MustFund(t, scope, "Unused", fund.TypeCampaign)
	env.MustPost(t, scope, used, transaction.Credit, "1")

	requireKind(t, env.Funds.DeleteFund(ctx, scope, used.Id), appErrors.KindInvariantViolation)

	other := env.NewOrganization(t, "Beta")
	requireKind(t, env.Funds.DeleteFund(ctx, other, unused.Id), appErrors.KindNotFound)

	require.NoError(t, env.Funds.DeleteFund(ctx, scope, unused.Id))
	_, err := env.Funds.GetFundByID(ctx, scope, unused.Id)
	requireKind(t, err, appErrors.KindNotFound)

	var deleted int
	for _, ev := range env.Audit.Events() {
		if ev.Entity == audit.EntityFund && ev.Action == audit.ActionDeleted {
			deleted++
			assert.Nil(t, ev.After)
			assert.NotNil(t, ev.Before)
		}
	}
	assert.Equal(t, 1, deleted)
}

func TestFundsAreTenantScoped(t *testing.T) {
	t.Parallel()
	env := ledgertest.NewEnv()
	alpha := env.NewOrganization(t, "Alpha")
	beta := env.NewOrganization(t, "Beta")
	ctx := context.Background()

	alphaMain := env.MustFund(t, alpha, "General", fund.TypeMain)
	env.MustFund(t, beta, "General", fund.TypeMain)

	_, err := env.Funds.GetFundByID(ctx, beta, alphaMain.Id)
	requireKind(t, err, appErrors.KindNotFound)

	name := "Hijacked"
	_, err = env.Funds.UpdateFund(ctx, beta, alphaMain.Id, &fund.UpdateFundRequest{Name: &name})
	requireKind(t, err, appErrors.KindNotFound)

	funds, total, err := env.Funds.ListFunds(ctx, beta, nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, beta.OrganizationId, funds[0].OrganizationId)

	mainType := fund.TypeMain
	mains, _, err := env.Funds.ListFunds(ctx, alpha, &fund.Filters{Type: &mainType}, nil)
	require.NoError(t, err)
	require.Len(t, mains, 1)
	assert.Equal(t, alphaMain.Id, mains[0].Id)
}

// interleavedFunds runs between once, right after the first locked read, to
// stand in for a writer that committed just before the row lock was taken.
type interleavedFunds struct {
	*ledgertest.FundRepository
	once    sync.Once
	between func(ctx context.Context)
}

func (r *interleavedFunds) GetByIDForUpdate(ctx context.Context, organizationID, fundID ulid.ULID) (*fund.Fund, error) {
	f, err := r.FundRepository.GetByIDForUpdate(ctx, organizationID, fundID)
	r.once.Do(func() { r.between(ctx) })
	return f, err
}

func TestUpdateFundDoesNotRewriteType(t *testing.T) {
	t.Parallel()
	env := ledgertest.NewEnv()
	scope := env.NewOrganization(t, "Alpha")
	main := env.MustFund(t, scope, "General", fund.TypeMain)
	campaign := env.MustFund(t, scope, "Eid", fund.TypeCampaign)

	repo := &interleavedFunds{
		FundRepository: env.Store.Funds(),
		between: func(ctx context.Context) {
			_, err := env.Funds.SetMainFund(ctx, scope, campaign.Id)
			require.NoError(t, err)
		},
	}
	checker := shared.NewTenantCheckerService(env.Store.Organizations())
	svc := fund.NewService(repo, env.Store.TransactionRepo(), env.Store, env.Audit, checker)

	name := "General Fund"
	updated, err := svc.UpdateFund(context.Background(), scope, main.Id, &fund.UpdateFundRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "General Fund", updated.Name)

	current, err := env.Funds.GetMainFund(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, campaign.Id, current.Id)

	stored, err := env.Funds.GetFundByID(context.Background(), scope, main.Id)
	require.NoError(t, err)
	assert.Equal(t, fund.TypeCampaign, stored.Type)
	assert.Equal(t, "General Fund", stored.Name)
}

func TestCloseFundRechecksTypeUnderLock(t *testing.T) {
	t.Parallel()
	env := ledgertest.NewEnv()
	scope := env.NewOrganization(t, "Alpha")
	env.MustFund(t, scope, "General", fund.TypeMain)
	campaign := env.MustFund(t, scope, "Eid", fund.TypeCampaign)

	_, err := env.Funds.SetMainFund(context.Background(), scope, campaign.Id)
	require.NoError(t, err)

	_, err = env.Funds.CloseFund(context.Background(), scope, campaign.Id, "stale request")
	requireKind(t, err, appErrors.KindInvariantViolation)

	current, err := env.Funds.GetMainFund(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, campaign.Id, current.Id)
}
