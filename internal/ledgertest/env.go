package ledgertest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/adjustment"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/audit"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/balance"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/donor"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/fund"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/organization"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/shared"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/tenant"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/transaction"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// SequenceIDs issues TXN1, TXN2, ... Repeat makes the next n calls return the
// previous id again, which forces txn_id collisions.
type SequenceIDs struct {
	next   atomic.Int64
	repeat atomic.Int64
}

func (g *SequenceIDs) NextTxnID() string {
	if g.repeat.Load() > 0 {
		g.repeat.Add(-1)
		return fmt.Sprintf("%s%d", pkg.TxnIDPrefix, g.next.Load())
	}
	return fmt.Sprintf("%s%d", pkg.TxnIDPrefix, g.next.Add(1))
}

func (g *SequenceIDs) Repeat(n int64) {
	g.repeat.Store(n)
}

// RecordingAudit keeps every emitted event.
type RecordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *RecordingAudit) Record(_ context.Context, event audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *RecordingAudit) Events() []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Event(nil), r.events...)
}

// Env wires every ledger service against one in-memory store.
type Env struct {
	Store         *Store
	IDs           *SequenceIDs
	Audit         *RecordingAudit
	Organizations *organization.Service
	Funds         *fund.Service
	Donors        *donor.Service
	Transactions  *transaction.Service
	Balances      *balance.Service
	Adjustments   *adjustment.Service
}

func NewEnv() *Env {
	store := NewStore()
	ids := &SequenceIDs{}
	recorder := &RecordingAudit{}
	entries := store.TransactionRepo()
	checker := shared.NewTenantCheckerService(store.Organizations())

	env := &Env{
		Store:         store,
		IDs:           ids,
		Audit:         recorder,
		Organizations: organization.NewService(store.Organizations(), recorder),
	}
	env.Funds = fund.NewService(store.Funds(), entries, store, recorder, checker)
	env.Donors = donor.NewService(store.Donors(), entries, store, recorder, checker)
	env.Balances = &balance.Service{
		Repository: store.Balances(),
		Funds:      env.Funds,
	}
	env.Transactions = &transaction.Service{
		Repository:    entries,
		Funds:         env.Funds,
		Donors:        env.Donors,
		Organizations: env.Organizations,
		IDs:           ids,
		Transactor:    store,
		Balances:      env.Balances,
		Audit:         recorder,
		BaseService:   shared.BaseService{TenantChecker: checker},
	}
	env.Adjustments = &adjustment.Service{
		Repository:  store.Adjustments(),
		Funds:       env.Funds,
		Legs:        env.Transactions,
		Entries:     entries,
		Transactor:  store,
		Balances:    env.Balances,
		Audit:       recorder,
		BaseService: shared.BaseService{TenantChecker: checker},
	}
	return env
}

// NewOrganization creates an active organization and returns a scope for it.
func (e *Env) NewOrganization(t testing.TB, name string) tenant.Scope {
	t.Helper()
	org, err := e.Organizations.CreateOrganization(context.Background(), &organization.CreateOrganizationRequest{
		Name:  name,
		Email: fmt.Sprintf("%s@example.org", pkg.GenerateULID()),
	})
	require.NoError(t, err)
	return tenant.NewScope(org.Id, pkg.GenerateULIDObject())
}

func (e *Env) MustFund(t testing.TB, scope tenant.Scope, name string, fundType fund.Types) *fund.Fund {
	t.Helper()
	f, err := e.Funds.CreateFund(context.Background(), scope, &fund.CreateFundRequest{Name: name, Type: fundType})
	require.NoError(t, err)
	return f
}

func (e *Env) MustDonor(t testing.TB, scope tenant.Scope, name string) *donor.Donor {
	t.Helper()
	d, err := e.Donors.CreateDonor(context.Background(), scope, &donor.CreateDonorRequest{Name: name})
	require.NoError(t, err)
	return d
}

// MustPost records a completed cash entry.
func (e *Env) MustPost(t testing.TB, scope tenant.Scope, f *fund.Fund, typ transaction.Types, amount string) *transaction.Transaction {
	t.Helper()
	txn, err := e.Transactions.CreateTransaction(context.Background(), scope, &transaction.CreateTransactionRequest{
		FundId:        f.Id,
		Amount:        decimal.RequireFromString(amount),
		Type:          typ,
		PaymentMethod: transaction.PaymentCash,
		Status:        transaction.StatusCompleted,
	})
	require.NoError(t, err)
	return txn
}

func (e *Env) Balance(t testing.TB, scope tenant.Scope, f *fund.Fund) decimal.Decimal {
	t.Helper()
	b, err := e.Balances.GetBalance(context.Background(), scope, f.Id)
	require.NoError(t, err)
	return b
}
