// Package ledgertest provides an in-memory ledger store for service tests. It
// mirrors the constraints the postgres schema enforces and supports rollback
// and fault injection.
package ledgertest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/adjustment"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/balance"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/donor"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/fund"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/organization"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/transaction"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	OpCreateOrganization = "organizations.create"
	OpCreateFund         = "funds.create"
	OpUpdateFund         = "funds.update"
	OpCreateTransaction  = "transactions.create"
	OpDeleteTransactions = "transactions.delete_by_adjustment"
	OpCreateAdjustment   = "adjustments.create"
	OpDeleteAdjustment   = "adjustments.delete"
)

type txKey struct{}

type fault struct {
	after int
	calls int
	err   error
}

type snapshot struct {
	organizations map[ulid.ULID]organization.Organization
	funds         map[ulid.ULID]fund.Fund
	donors        map[ulid.ULID]donor.Donor
	transactions  map[ulid.ULID]transaction.Transaction
	adjustments   map[ulid.ULID]adjustment.CampaignAdjustment
}

// Store keeps every aggregate in maps guarded by one mutex. Units of work are
// serialized and restored from a snapshot when they fail.
type Store struct {
	mu     sync.Mutex
	txMu   sync.Mutex
	data   snapshot
	faults map[string]*fault
}

func NewStore() *Store {
	return &Store{
		data: snapshot{
			organizations: map[ulid.ULID]organization.Organization{},
			funds:         map[ulid.ULID]fund.Fund{},
			donors:        map[ulid.ULID]donor.Donor{},
			transactions:  map[ulid.ULID]transaction.Transaction{},
			adjustments:   map[ulid.ULID]adjustment.CampaignAdjustment{},
		},
		faults: map[string]*fault{},
	}
}

// FailAfter makes op fail with err once it has succeeded `after` times.
func (s *Store) FailAfter(op string, after int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = &fault{after: after, err: err}
}

func (s *Store) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = map[string]*fault{}
}

// must be called with mu held
func (s *Store) check(op string) error {
	f, ok := s.faults[op]
	if !ok {
		return nil
	}
	f.calls++
	if f.calls > f.after {
		return f.err
	}
	return nil
}

func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	saved := s.data.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = saved
		s.mu.Unlock()
		return err
	}
	return nil
}

func (d snapshot) clone() snapshot {
	return snapshot{
		organizations: cloneMap(d.organizations),
		funds:         cloneMap(d.funds),
		donors:        cloneMap(d.donors),
		transactions:  cloneMap(d.transactions),
		adjustments:   cloneMap(d.adjustments),
	}
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Transactions returns a copy of every stored transaction, for assertions.
func (s *Store) Transactions() []transaction.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]transaction.Transaction, 0, len(s.data.transactions))
	for _, t := range s.data.transactions {
		out = append(out, t)
	}
	return out
}

func (s *Store) AdjustmentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.adjustments)
}

// Organizations

type OrganizationRepository struct{ s *Store }

func (s *Store) Organizations() *OrganizationRepository { return &OrganizationRepository{s: s} }

func (r *OrganizationRepository) Create(_ context.Context, org *organization.Organization) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(OpCreateOrganization); err != nil {
		return err
	}
	for _, existing := range r.s.data.organizations {
		if existing.Email == org.Email {
			return uniqueViolation("idx_organizations_email")
		}
	}
	r.s.data.organizations[org.Id] = *org
	return nil
}

func (r *OrganizationRepository) Update(_ context.Context, org *organization.Organization) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.organizations[org.Id] = *org
	return nil
}

func (r *OrganizationRepository) GetByID(_ context.Context, organizationID ulid.ULID) (*organization.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	org, ok := r.s.data.organizations[organizationID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &org, nil
}

func (r *OrganizationRepository) GetByEmail(_ context.Context, email string) (*organization.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, org := range r.s.data.organizations {
		if org.Email == email {
			return &org, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *OrganizationRepository) IsActive(_ context.Context, organizationID ulid.ULID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	org, ok := r.s.data.organizations[organizationID]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	return org.IsActive, nil
}

// Funds

type FundRepository struct{ s *Store }

func (s *Store) Funds() *FundRepository { return &FundRepository{s: s} }

func (r *FundRepository) Create(_ context.Context, f *fund.Fund) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(OpCreateFund); err != nil {
		return err
	}
	if err := r.s.checkOpenMain(f); err != nil {
		return err
	}
	r.s.data.funds[f.Id] = *f
	return nil
}

func (r *FundRepository) UpdateDetails(_ context.Context, f *fund.Fund) error {
	return r.patch(f, func(stored *fund.Fund) {
		stored.Name = f.Name
		stored.Description = f.Description
	})
}

func (r *FundRepository) UpdateClosure(_ context.Context, f *fund.Fund) error {
	return r.patch(f, func(stored *fund.Fund) {
		stored.ClosedAt = f.ClosedAt
		stored.ClosedBy = f.ClosedBy
		stored.ClosedNote = f.ClosedNote
	})
}

func (r *FundRepository) Promote(_ context.Context, f *fund.Fund) error {
	return r.patch(f, func(stored *fund.Fund) {
		if stored.IsOpen() {
			stored.Type = fund.TypeMain
		}
	})
}

// patch applies only the columns an operation owns to the stored row, the way
// the gorm repository narrows its UPDATE statements.
func (r *FundRepository) patch(f *fund.Fund, apply func(stored *fund.Fund)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(OpUpdateFund); err != nil {
		return err
	}
	stored, ok := r.s.data.funds[f.Id]
	if !ok || stored.OrganizationId != f.OrganizationId {
		return nil
	}
	apply(&stored)
	stored.UpdatedBy = f.UpdatedBy
	stored.UpdatedAt = f.UpdatedAt
	if err := r.s.checkOpenMain(&stored); err != nil {
		return err
	}
	r.s.data.funds[f.Id] = stored
	return nil
}

// checkOpenMain mirrors the partial unique index on open main funds.
func (s *Store) checkOpenMain(f *fund.Fund) error {
	if !f.IsOpenMain() {
		return nil
	}
	for id, existing := range s.data.funds {
		if id != f.Id && existing.OrganizationId == f.OrganizationId && existing.IsOpenMain() {
			return uniqueViolation(fund.OpenMainFundIndex)
		}
	}
	return nil
}

func (r *FundRepository) Delete(_ context.Context, organizationID, fundID ulid.ULID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if f, ok := r.s.data.funds[fundID]; ok && f.OrganizationId == organizationID {
		delete(r.s.data.funds, fundID)
	}
	return nil
}

func (r *FundRepository) GetByID(_ context.Context, organizationID, fundID ulid.ULID) (*fund.Fund, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.data.funds[fundID]
	if !ok || f.OrganizationId != organizationID {
		return nil, gorm.ErrRecordNotFound
	}
	return &f, nil
}

// GetByIDForUpdate needs no lock of its own: units of work are serialized.
func (r *FundRepository) GetByIDForUpdate(ctx context.Context, organizationID, fundID ulid.ULID) (*fund.Fund, error) {
	return r.GetByID(ctx, organizationID, fundID)
}

func (r *FundRepository) List(ctx context.Context, organizationID ulid.ULID, filters *fund.Filters, pagination *pkg.PaginationParams) ([]*fund.Fund, int64, error) {
	all, _ := r.ListAll(ctx, organizationID)
	out := make([]*fund.Fund, 0, len(all))
	for _, f := range all {
		if filters != nil {
			if filters.Type != nil && f.Type != *filters.Type {
				continue
			}
			if filters.Status != nil && (*filters.Status == fund.StatusOpen) != f.IsOpen() {
				continue
			}
			if filters.Search != "" && !strings.Contains(strings.ToLower(f.Name), strings.ToLower(filters.Search)) {
				continue
			}
		}
		out = append(out, f)
	}
	return paginate(out, pagination)
}

func (r *FundRepository) ListAll(_ context.Context, organizationID ulid.ULID) ([]*fund.Fund, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*fund.Fund, 0)
	for _, f := range r.s.data.funds {
		if f.OrganizationId == organizationID {
			f := f
			out = append(out, &f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *FundRepository) GetOpenMain(_ context.Context, organizationID ulid.ULID) (*fund.Fund, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, f := range r.s.data.funds {
		if f.OrganizationId == organizationID && f.IsOpenMain() {
			return &f, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *FundRepository) CountOpenMain(_ context.Context, organizationID ulid.ULID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for _, f := range r.s.data.funds {
		if f.OrganizationId == organizationID && f.IsOpenMain() {
			count++
		}
	}
	return count, nil
}

func (r *FundRepository) DemoteOpenMain(_ context.Context, organizationID ulid.ULID, actorID *ulid.ULID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, f := range r.s.data.funds {
		if f.OrganizationId == organizationID && f.IsOpenMain() {
			f.Type = fund.TypeCampaign
			f.UpdatedBy = actorID
			f.UpdatedAt = pkg.Now()
			r.s.data.funds[id] = f
		}
	}
	return nil
}

// Donors

type DonorRepository struct{ s *Store }

func (s *Store) Donors() *DonorRepository { return &DonorRepository{s: s} }

func (r *DonorRepository) Create(_ context.Context, d *donor.Donor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkDonorEmail(d); err != nil {
		return err
	}
	r.s.data.donors[d.Id] = *d
	return nil
}

func (r *DonorRepository) Update(_ context.Context, d *donor.Donor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkDonorEmail(d); err != nil {
		return err
	}
	r.s.data.donors[d.Id] = *d
	return nil
}

func (s *Store) checkDonorEmail(d *donor.Donor) error {
	if d.Email == "" {
		return nil
	}
	for id, existing := range s.data.donors {
		if id != d.Id && existing.OrganizationId == d.OrganizationId && existing.Email == d.Email {
			return uniqueViolation("idx_donors_org_email")
		}
	}
	return nil
}

func (r *DonorRepository) Delete(_ context.Context, organizationID, donorID ulid.ULID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if d, ok := r.s.data.donors[donorID]; ok && d.OrganizationId == organizationID {
		delete(r.s.data.donors, donorID)
	}
	return nil
}

func (r *DonorRepository) GetByID(_ context.Context, organizationID, donorID ulid.ULID) (*donor.Donor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.data.donors[donorID]
	if !ok || d.OrganizationId != organizationID {
		return nil, gorm.ErrRecordNotFound
	}
	return &d, nil
}

func (r *DonorRepository) GetByIDForUpdate(ctx context.Context, organizationID, donorID ulid.ULID) (*donor.Donor, error) {
	return r.GetByID(ctx, organizationID, donorID)
}

func (r *DonorRepository) GetByEmail(_ context.Context, organizationID ulid.ULID, email string) (*donor.Donor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.data.donors {
		if d.OrganizationId == organizationID && d.Email == email {
			return &d, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *DonorRepository) List(_ context.Context, organizationID ulid.ULID, filters *donor.Filters, pagination *pkg.PaginationParams) ([]*donor.Donor, int64, error) {
	r.s.mu.Lock()
	out := make([]*donor.Donor, 0)
	for _, d := range r.s.data.donors {
		if d.OrganizationId != organizationID {
			continue
		}
		if filters != nil {
			if filters.BloodGroup != "" && d.BloodGroup != filters.BloodGroup {
				continue
			}
			if filters.Search != "" && !strings.Contains(strings.ToLower(d.Name+" "+d.Email+" "+d.Phone), strings.ToLower(filters.Search)) {
				continue
			}
		}
		d := d
		out = append(out, &d)
	}
	r.s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, pagination)
}

// Transactions

type TransactionRepository struct{ s *Store }

func (s *Store) TransactionRepo() *TransactionRepository { return &TransactionRepository{s: s} }

func (r *TransactionRepository) Create(_ context.Context, t *transaction.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(OpCreateTransaction); err != nil {
		return err
	}
	for _, existing := range r.s.data.transactions {
		if existing.TxnId == t.TxnId {
			return uniqueViolation("idx_transactions_txn_id")
		}
	}
	if t.AdjustmentId != nil {
		if _, ok := r.s.data.adjustments[*t.AdjustmentId]; !ok {
			return errors.New("insert or update on table \"transactions\" violates foreign key constraint \"fk_transactions_adjustment\"")
		}
	}
	r.s.data.transactions[t.Id] = *t
	return nil
}

func (r *TransactionRepository) Update(_ context.Context, t *transaction.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.transactions[t.Id] = *t
	return nil
}

// Backdate moves an entry's created_at, for tests that need history.
func (s *Store) Backdate(transactionID ulid.ULID, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.data.transactions[transactionID]; ok {
		t.CreatedAt = at.UTC()
		s.data.transactions[transactionID] = t
	}
}

func (r *TransactionRepository) Delete(_ context.Context, organizationID, transactionID ulid.ULID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.data.transactions[transactionID]; ok && t.OrganizationId == organizationID {
		delete(r.s.data.transactions, transactionID)
	}
	return nil
}

func (r *TransactionRepository) GetByID(_ context.Context, organizationID, transactionID ulid.ULID) (*transaction.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.transactions[transactionID]
	if !ok || t.OrganizationId != organizationID {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, organizationID, transactionID ulid.ULID) (*transaction.Transaction, error) {
	return r.GetByID(ctx, organizationID, transactionID)
}

func (r *TransactionRepository) GetByTxnID(_ context.Context, organizationID ulid.ULID, txnID string) (*transaction.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.data.transactions {
		if t.OrganizationId == organizationID && t.TxnId == txnID {
			return &t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *TransactionRepository) List(_ context.Context, organizationID ulid.ULID, filters *transaction.Filters, pagination *pkg.PaginationParams) ([]*transaction.Transaction, int64, error) {
	return paginate(r.matching(organizationID, filters), pagination)
}

func (r *TransactionRepository) ListAfter(_ context.Context, organizationID ulid.ULID, filters *transaction.Filters, after *transaction.Cursor, limit int) ([]*transaction.Transaction, error) {
	out := make([]*transaction.Transaction, 0, limit)
	for _, t := range r.matching(organizationID, filters) {
		if after != nil && !olderThan(t, after) {
			continue
		}
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func olderThan(t *transaction.Transaction, c *transaction.Cursor) bool {
	if t.CreatedAt.Equal(c.CreatedAt) {
		return t.Id.Compare(c.Id) < 0
	}
	return t.CreatedAt.Before(c.CreatedAt)
}

// matching returns the organization's entries that pass filters, newest first.
func (r *TransactionRepository) matching(organizationID ulid.ULID, filters *transaction.Filters) []*transaction.Transaction {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*transaction.Transaction, 0)
	for _, t := range r.s.data.transactions {
		if t.OrganizationId != organizationID || !matchesFilters(&t, filters) {
			continue
		}
		t := t
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Id.Compare(out[j].Id) > 0
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func matchesFilters(t *transaction.Transaction, f *transaction.Filters) bool {
	if f == nil {
		return true
	}
	if f.FundId != nil && t.FundId != *f.FundId {
		return false
	}
	if f.DonorId != nil && (t.DonorId == nil || *t.DonorId != *f.DonorId) {
		return false
	}
	if f.AdjustmentId != nil && (t.AdjustmentId == nil || *t.AdjustmentId != *f.AdjustmentId) {
		return false
	}
	if f.CreatedBy != nil && (t.CreatedBy == nil || *t.CreatedBy != *f.CreatedBy) {
		return false
	}
	if f.DateFrom != nil && t.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && t.CreatedAt.After(*f.DateTo) {
		return false
	}
	if f.PaymentMethod != nil && t.PaymentMethod != *f.PaymentMethod {
		return false
	}
	if len(f.Types) > 0 && !contains(f.Types, t.Type) {
		return false
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, t.Status) {
		return false
	}
	return true
}

func (r *TransactionRepository) ListByAdjustment(ctx context.Context, organizationID, adjustmentID ulid.ULID) ([]*transaction.Transaction, error) {
	entries := r.matching(organizationID, &transaction.Filters{AdjustmentId: &adjustmentID})
	sort.Slice(entries, func(i, j int) bool { return entries[i].Id.Compare(entries[j].Id) < 0 })
	return entries, nil
}

func (r *TransactionRepository) DeleteByAdjustment(_ context.Context, organizationID, adjustmentID ulid.ULID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(OpDeleteTransactions); err != nil {
		return 0, err
	}
	var deleted int64
	for id, t := range r.s.data.transactions {
		if t.OrganizationId == organizationID && t.AdjustmentId != nil && *t.AdjustmentId == adjustmentID {
			delete(r.s.data.transactions, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *TransactionRepository) CountByFund(_ context.Context, organizationID, fundID ulid.ULID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for _, t := range r.s.data.transactions {
		if t.OrganizationId == organizationID && t.FundId == fundID {
			count++
		}
	}
	return count, nil
}

func (r *TransactionRepository) DetachDonor(_ context.Context, organizationID, donorID ulid.ULID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var detached int64
	for id, t := range r.s.data.transactions {
		if t.OrganizationId == organizationID && t.DonorId != nil && *t.DonorId == donorID {
			t.DonorId = nil
			r.s.data.transactions[id] = t
			detached++
		}
	}
	return detached, nil
}

// Adjustments

type AdjustmentRepository struct{ s *Store }

func (s *Store) Adjustments() *AdjustmentRepository { return &AdjustmentRepository{s: s} }

func (r *AdjustmentRepository) Create(_ context.Context, a *adjustment.CampaignAdjustment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(OpCreateAdjustment); err != nil {
		return err
	}
	stored := *a
	stored.Legs = nil
	r.s.data.adjustments[a.Id] = stored
	return nil
}

func (r *AdjustmentRepository) Delete(_ context.Context, organizationID, adjustmentID ulid.ULID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(OpDeleteAdjustment); err != nil {
		return err
	}
	for _, t := range r.s.data.transactions {
		if t.AdjustmentId != nil && *t.AdjustmentId == adjustmentID {
			return errors.New("update or delete on table \"campaign_adjustments\" violates foreign key constraint \"fk_transactions_adjustment\"")
		}
	}
	if a, ok := r.s.data.adjustments[adjustmentID]; ok && a.OrganizationId == organizationID {
		delete(r.s.data.adjustments, adjustmentID)
	}
	return nil
}

func (r *AdjustmentRepository) GetByID(_ context.Context, organizationID, adjustmentID ulid.ULID) (*adjustment.CampaignAdjustment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.data.adjustments[adjustmentID]
	if !ok || a.OrganizationId != organizationID {
		return nil, gorm.ErrRecordNotFound
	}
	return &a, nil
}

func (r *AdjustmentRepository) List(_ context.Context, organizationID ulid.ULID, filters *adjustment.Filters, pagination *pkg.PaginationParams) ([]*adjustment.CampaignAdjustment, int64, error) {
	r.s.mu.Lock()
	out := make([]*adjustment.CampaignAdjustment, 0)
	for _, a := range r.s.data.adjustments {
		if a.OrganizationId != organizationID {
			continue
		}
		if filters != nil {
			if filters.Type != nil && a.Type != *filters.Type {
				continue
			}
			if filters.FundId != nil && a.MainFundId != *filters.FundId && a.CampaignFundId != *filters.FundId {
				continue
			}
		}
		a := a
		out = append(out, &a)
	}
	r.s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Id.Compare(out[j].Id) > 0 })
	return paginate(out, pagination)
}

// Balances

type BalanceRepository struct{ s *Store }

func (s *Store) Balances() *BalanceRepository { return &BalanceRepository{s: s} }

func (r *BalanceRepository) completed(organizationID ulid.ULID, keep func(t *transaction.Transaction) bool) []transaction.Transaction {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]transaction.Transaction, 0)
	for _, t := range r.s.data.transactions {
		if t.OrganizationId == organizationID && t.IsCompleted() && keep(&t) {
			out = append(out, t)
		}
	}
	return out
}

func (r *BalanceRepository) FundTotals(_ context.Context, organizationID, fundID ulid.ULID) (balance.Totals, error) {
	credit, debit := decimal.Zero, decimal.Zero
	entries := r.completed(organizationID, func(t *transaction.Transaction) bool { return t.FundId == fundID })
	for _, t := range entries {
		if t.Type == transaction.Credit {
			credit = credit.Add(t.Amount)
		} else {
			debit = debit.Add(t.Amount)
		}
	}
	return balance.NewTotals(credit, debit, int64(len(entries))), nil
}

func (r *BalanceRepository) AllFundTotals(ctx context.Context, organizationID ulid.ULID) ([]balance.FundTotal, error) {
	seen := map[ulid.ULID]struct{}{}
	for _, t := range r.completed(organizationID, func(*transaction.Transaction) bool { return true }) {
		seen[t.FundId] = struct{}{}
	}
	out := make([]balance.FundTotal, 0, len(seen))
	for fundID := range seen {
		totals, _ := r.FundTotals(ctx, organizationID, fundID)
		out = append(out, balance.FundTotal{FundId: fundID, Totals: totals})
	}
	return out, nil
}

func (r *BalanceRepository) CompletedEntries(_ context.Context, organizationID, fundID ulid.ULID) ([]*transaction.Transaction, error) {
	entries := r.completed(organizationID, func(t *transaction.Transaction) bool { return t.FundId == fundID })
	out := make([]*transaction.Transaction, 0, len(entries))
	for i := range entries {
		out = append(out, &entries[i])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Id.Compare(out[j].Id) < 0
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *BalanceRepository) window(organizationID ulid.ULID, query balance.SummaryQuery) []transaction.Transaction {
	return r.completed(organizationID, func(t *transaction.Transaction) bool {
		if t.CreatedAt.Before(query.From) || t.CreatedAt.After(query.To) {
			return false
		}
		if query.FundId != nil && t.FundId != *query.FundId {
			return false
		}
		return !(query.ExcludeAdjustments && t.IsAdjustmentLeg())
	})
}

func (r *BalanceRepository) MonthlyTotals(_ context.Context, organizationID ulid.ULID, query balance.SummaryQuery) ([]balance.MonthlyBucket, error) {
	type key struct{ year, month int }
	type tally struct {
		bucket  balance.MonthlyBucket
		credits int64
	}
	buckets := map[key]*tally{}
	for _, t := range r.window(organizationID, query) {
		created := t.CreatedAt.UTC()
		k := key{created.Year(), int(created.Month())}
		b, ok := buckets[k]
		if !ok {
			b = &tally{bucket: balance.MonthlyBucket{Year: k.year, Month: k.month, Credit: decimal.Zero, Debit: decimal.Zero}}
			buckets[k] = b
		}
		if t.Type == transaction.Credit {
			b.bucket.Credit = b.bucket.Credit.Add(t.Amount)
			b.credits++
		} else {
			b.bucket.Debit = b.bucket.Debit.Add(t.Amount)
		}
		b.bucket.Count++
	}

	out := make([]balance.MonthlyBucket, 0, len(buckets))
	for _, b := range buckets {
		b.bucket.AvgCredit = mean(b.bucket.Credit, b.credits)
		b.bucket.AvgDebit = mean(b.bucket.Debit, b.bucket.Count-b.credits)
		out = append(out, b.bucket)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year == out[j].Year {
			return out[i].Month < out[j].Month
		}
		return out[i].Year < out[j].Year
	})
	return out, nil
}

func (r *BalanceRepository) PeriodTotals(_ context.Context, organizationID ulid.ULID, query balance.SummaryQuery) (balance.Totals, error) {
	credit, debit := decimal.Zero, decimal.Zero
	entries := r.window(organizationID, query)
	for _, t := range entries {
		if t.Type == transaction.Credit {
			credit = credit.Add(t.Amount)
		} else {
			debit = debit.Add(t.Amount)
		}
	}
	return balance.NewTotals(credit, debit, int64(len(entries))), nil
}

func (r *BalanceRepository) DonationDistribution(_ context.Context, organizationID ulid.ULID, from, to time.Time) ([]balance.DistributionBucket, error) {
	entries := r.completed(organizationID, func(t *transaction.Transaction) bool {
		return t.Type == transaction.Credit && !t.CreatedAt.Before(from) && !t.CreatedAt.After(to)
	})

	byRange := map[string]*balance.DistributionBucket{}
	for _, t := range entries {
		name := balance.DonationRangeOf(t.Amount)
		b, ok := byRange[name]
		if !ok {
			b = &balance.DistributionBucket{Range: name, Total: decimal.Zero}
			byRange[name] = b
		}
		b.Count++
		b.Total = b.Total.Add(t.Amount)
	}

	out := make([]balance.DistributionBucket, 0, len(byRange))
	for _, b := range byRange {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Total.GreaterThan(out[j].Total) })
	return out, nil
}

func mean(sum decimal.Decimal, count int64) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return sum.DivRound(decimal.NewFromInt(count), 2)
}

func (r *BalanceRepository) TopDonors(_ context.Context, organizationID ulid.ULID, from, to time.Time, limit int) ([]balance.DonorTotal, error) {
	entries := r.completed(organizationID, func(t *transaction.Transaction) bool {
		return t.Type == transaction.Credit && t.DonorId != nil && !t.CreatedAt.Before(from) && !t.CreatedAt.After(to)
	})

	totals := map[ulid.ULID]*balance.DonorTotal{}
	for _, t := range entries {
		dt, ok := totals[*t.DonorId]
		if !ok {
			dt = &balance.DonorTotal{DonorId: *t.DonorId, Amount: decimal.Zero}
			totals[*t.DonorId] = dt
		}
		dt.Amount = dt.Amount.Add(t.Amount)
		dt.Count++
	}

	r.s.mu.Lock()
	out := make([]balance.DonorTotal, 0, len(totals))
	for id, dt := range totals {
		if d, ok := r.s.data.donors[id]; ok {
			dt.Name = d.Name
			dt.Email = d.Email
			dt.Phone = d.Phone
		}
		out = append(out, *dt)
	}
	r.s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Amount.GreaterThan(out[j].Amount) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func paginate[T any](items []*T, pagination *pkg.PaginationParams) ([]*T, int64, error) {
	pagination = pkg.NormalizePagination(pagination)
	total := int64(len(items))
	start := pagination.Offset()
	if start >= len(items) {
		return []*T{}, total, nil
	}
	end := start + pagination.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], total, nil
}

func contains[T comparable](items []T, v T) bool {
	for _, item := range items {
		if item == v {
			return true
		}
	}
	return false
}

func uniqueViolation(index string) error {
	return fmt.Errorf("ERROR: duplicate key value violates unique constraint %q (SQLSTATE 23505)", index)
}
