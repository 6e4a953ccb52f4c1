package transaction

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/audit"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/donor"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/fund"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/organization"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/shared"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/tenant"
	appErrors "github.com/shakilmiahcse/social-org-finance/internal/errors"
	"github.com/shakilmiahcse/social-org-finance/internal/logger"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

const (
	DefaultTxnIDRetries = 3
	iterateBatchSize    = 100
)

var tracer = otel.Tracer("github.com/shakilmiahcse/social-org-finance/internal/domain/transaction")

type FundGetter interface {
	GetFundByID(ctx context.Context, scope tenant.Scope, fundID ulid.ULID) (*fund.Fund, error)
}

type DonorGetter interface {
	GetDonorByID(ctx context.Context, scope tenant.Scope, donorID ulid.ULID) (*donor.Donor, error)
}

type OrganizationGetter interface {
	GetOrganization(ctx context.Context, scope tenant.Scope) (*organization.Organization, error)
}

type IDGenerator interface {
	NextTxnID() string
}

type Service struct {
	Repository    Repository
	Funds         FundGetter
	Donors        DonorGetter
	Organizations OrganizationGetter
	IDs           IDGenerator
	Transactor    shared.Transactor
	Balances      shared.BalanceInvalidator
	Audit         audit.Recorder
	TxnIDRetries  int
	shared.BaseService
}

func (s *Service) CreateTransaction(ctx context.Context, scope tenant.Scope, req *CreateTransactionRequest) (*Transaction, error) {
	ctx, span := tracer.Start(ctx, "transaction.Create")
	defer span.End()

	if err := s.EnsureTenant(ctx, scope); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = StatusPending
	}
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if !req.Type.IsValid() {
		return nil, appErrors.NewValidationError("type", "must be credit or debit")
	}
	if !status.IsValid() {
		return nil, appErrors.NewValidationError("status", "must be pending, completed or canceled")
	}
	if !req.PaymentMethod.IsManual() {
		return nil, appErrors.NewValidationError("payment_method", "must be one of cash, bkash, card, bank, nagad, rocket")
	}
	if _, err := s.postableFund(ctx, scope, req.FundId); err != nil {
		return nil, err
	}
	if err := s.ensureDonor(ctx, scope, req.DonorId); err != nil {
		return nil, err
	}

	t := &Transaction{
		OrganizationId: scope.OrganizationId,
		DonorId:        req.DonorId,
		FundId:         req.FundId,
		Amount:         req.Amount,
		Type:           req.Type,
		Purpose:        strings.TrimSpace(req.Purpose),
		PaymentMethod:  req.PaymentMethod,
		Reference:      strings.TrimSpace(req.Reference),
		Note:           strings.TrimSpace(req.Note),
		Status:         status,
		CreatedBy:      scope.Actor(),
		UpdatedBy:      scope.Actor(),
	}
	if err := s.Post(ctx, t); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("txn_id", t.TxnId))

	s.invalidate(ctx, scope.OrganizationId, t.FundId)
	s.emit(ctx, scope, t.Id, audit.ActionCreated, nil, t)
	return t, nil
}

// CreateIncome records a credit against a fund.
func (s *Service) CreateIncome(ctx context.Context, scope tenant.Scope, req *CreateTransactionRequest) (*Transaction, error) {
	income := *req
	income.Type = Credit
	return s.CreateTransaction(ctx, scope, &income)
}

// CreateExpense records a debit against a fund.
func (s *Service) CreateExpense(ctx context.Context, scope tenant.Scope, req *CreateTransactionRequest) (*Transaction, error) {
	expense := *req
	expense.Type = Debit
	return s.CreateTransaction(ctx, scope, &expense)
}

// Post persists a fully validated entry, assigning its id and txn_id. A txn_id
// collision regenerates the identifier; running out of attempts is reported as
// a concurrency conflict. Callers own validation and tenant stamping.
func (s *Service) Post(ctx context.Context, t *Transaction) error {
	if pkg.IsEmptyULID(t.Id) {
		t.Id = pkg.GenerateULIDObject()
	}
	now := pkg.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	attempts := s.TxnIDRetries
	if attempts < 1 {
		attempts = DefaultTxnIDRetries
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		t.TxnId = s.IDs.NextTxnID()
		err := s.Repository.Create(ctx, t)
		if err == nil {
			return nil
		}
		if !shared.IsUniqueConstraintError(err) {
			return appErrors.NewDatabaseError(err)
		}
		lastErr = err
		logger.Warn().
			Err(err).
			Str("txn_id", t.TxnId).
			Int("attempt", attempt).
			Msg("txn_id collision, regenerating")
	}
	return appErrors.NewConcurrencyConflict("txn_id", lastErr)
}

// UpdateTransaction applies a patch. Entries produced by the adjustment engine
// keep their amount, type, fund, status and payment method so the pair stays balanced.
func (s *Service) UpdateTransaction(ctx context.Context, scope tenant.Scope, transactionID ulid.ULID, req *UpdateTransactionRequest) (*Transaction, error) {
	ctx, span := tracer.Start(ctx, "transaction.Update")
	defer span.End()

	if err := s.EnsureTenant(ctx, scope); err != nil {
		return nil, err
	}

	var before Transaction
	var t *Transaction
	err := s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		t, err = s.lockTransaction(ctx, scope, transactionID)
		if err != nil {
			return err
		}
		before = *t
		return s.applyUpdate(ctx, scope, t, req)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, scope.OrganizationId, before.FundId)
	if t.FundId != before.FundId {
		s.invalidate(ctx, scope.OrganizationId, t.FundId)
	}
	s.emit(ctx, scope, t.Id, audit.ActionUpdated, &before, t)
	return t, nil
}

// applyUpdate validates the patch against the locked row and writes it.
func (s *Service) applyUpdate(ctx context.Context, scope tenant.Scope, t *Transaction, req *UpdateTransactionRequest) error {
	if t.IsAdjustmentLeg() && req.touchesFinancialFields(t) {
		return appErrors.NewInvariantViolation("amount, type, fund, status and payment method of an adjustment entry cannot change; delete the adjustment instead").
			WithDetails(map[string]interface{}{"adjustment_id": t.AdjustmentId.String()})
	}

	if req.Amount != nil {
		if err := validateAmount(*req.Amount); err != nil {
			return err
		}
		t.Amount = *req.Amount
	}
	if req.Type != nil {
		if !req.Type.IsValid() {
			return appErrors.NewValidationError("type", "must be credit or debit")
		}
		t.Type = *req.Type
	}
	if req.Status != nil {
		if !req.Status.IsValid() {
			return appErrors.NewValidationError("status", "must be pending, completed or canceled")
		}
		t.Status = *req.Status
	}
	if req.PaymentMethod != nil && *req.PaymentMethod != t.PaymentMethod {
		if !req.PaymentMethod.IsManual() {
			return appErrors.NewValidationError("payment_method", "must be one of cash, bkash, card, bank, nagad, rocket")
		}
		t.PaymentMethod = *req.PaymentMethod
	}
	if req.FundId != nil && *req.FundId != t.FundId {
		if _, err := s.postableFund(ctx, scope, *req.FundId); err != nil {
			return err
		}
		t.FundId = *req.FundId
	}
	if req.ClearDonor {
		t.DonorId = nil
	} else if req.DonorId != nil {
		if err := s.ensureDonor(ctx, scope, req.DonorId); err != nil {
			return err
		}
		donorID := *req.DonorId
		t.DonorId = &donorID
	}
	if req.Purpose != nil {
		t.Purpose = strings.TrimSpace(*req.Purpose)
	}
	if req.Reference != nil {
		t.Reference = strings.TrimSpace(*req.Reference)
	}
	if req.Note != nil {
		t.Note = strings.TrimSpace(*req.Note)
	}
	t.UpdatedBy = scope.Actor()
	t.UpdatedAt = pkg.Now()

	if err := s.Repository.Update(ctx, t); err != nil {
		return appErrors.NewDatabaseError(err)
	}
	return nil
}

// DeleteTransaction removes a standalone entry. Adjustment entries can only be
// removed together with their pair through the adjustment engine.
func (s *Service) DeleteTransaction(ctx context.Context, scope tenant.Scope, transactionID ulid.ULID) error {
	if err := s.EnsureTenant(ctx, scope); err != nil {
		return err
	}

	var t *Transaction
	err := s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		t, err = s.lockTransaction(ctx, scope, transactionID)
		if err != nil {
			return err
		}
		if t.IsAdjustmentLeg() {
			return appErrors.NewInvariantViolation("transaction belongs to an adjustment; delete the adjustment to remove both entries").
				WithDetails(map[string]interface{}{"adjustment_id": t.AdjustmentId.String()})
		}
		if err := s.Repository.Delete(ctx, scope.OrganizationId, transactionID); err != nil {
			return appErrors.NewDatabaseError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, scope.OrganizationId, t.FundId)
	s.emit(ctx, scope, t.Id, audit.ActionDeleted, t, nil)
	return nil
}

func (s *Service) GetTransactionByID(ctx context.Context, scope tenant.Scope, transactionID ulid.ULID) (*Transaction, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	t, err := s.Repository.GetByID(ctx, scope.OrganizationId, transactionID)
	return s.scoped(scope, t, err)
}

func (s *Service) lockTransaction(ctx context.Context, scope tenant.Scope, transactionID ulid.ULID) (*Transaction, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	t, err := s.Repository.GetByIDForUpdate(ctx, scope.OrganizationId, transactionID)
	return s.scoped(scope, t, err)
}

func (s *Service) GetTransactionByTxnID(ctx context.Context, scope tenant.Scope, txnID string) (*Transaction, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	txnID = strings.ToUpper(strings.TrimSpace(txnID))
	if txnID == "" {
		return nil, appErrors.NewValidationError("txn_id", "is required")
	}
	t, err := s.Repository.GetByTxnID(ctx, scope.OrganizationId, txnID)
	return s.scoped(scope, t, err)
}

// GetReceipt assembles a transaction with the names a receipt needs.
func (s *Service) GetReceipt(ctx context.Context, scope tenant.Scope, transactionID ulid.ULID) (*Receipt, error) {
	t, err := s.GetTransactionByID(ctx, scope, transactionID)
	if err != nil {
		return nil, err
	}
	f, err := s.Funds.GetFundByID(ctx, scope, t.FundId)
	if err != nil {
		return nil, err
	}
	org, err := s.Organizations.GetOrganization(ctx, scope)
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{
		Transaction:     t,
		FundName:        f.Name,
		Organization:    org.Name,
		Currency:        org.Currency,
		FormattedAmount: pkg.FormatAmount(t.Amount, org.Currency),
	}
	if t.DonorId != nil {
		d, err := s.Donors.GetDonorByID(ctx, scope, *t.DonorId)
		if err != nil && !appErrors.IsKind(err, appErrors.KindNotFound) {
			return nil, err
		}
		if d != nil {
			receipt.DonorName = d.Name
			receipt.DonorPhone = d.Phone
		}
	}
	return receipt, nil
}

func (s *Service) ListTransactions(ctx context.Context, scope tenant.Scope, filters *Filters, pagination *pkg.PaginationParams) ([]*Transaction, int64, error) {
	if err := scope.Validate(); err != nil {
		return nil, 0, err
	}
	if err := ValidateFilters(filters); err != nil {
		return nil, 0, err
	}
	transactions, total, err := s.Repository.List(ctx, scope.OrganizationId, filters, pagination)
	if err != nil {
		return nil, 0, appErrors.NewDatabaseError(err)
	}
	return transactions, total, nil
}

func (s *Service) ListByFund(ctx context.Context, scope tenant.Scope, fundID ulid.ULID, filters *Filters, pagination *pkg.PaginationParams) ([]*Transaction, int64, error) {
	if _, err := s.Funds.GetFundByID(ctx, scope, fundID); err != nil {
		return nil, 0, err
	}
	scoped := copyFilters(filters)
	scoped.FundId = &fundID
	return s.ListTransactions(ctx, scope, scoped, pagination)
}

func (s *Service) ListByDonor(ctx context.Context, scope tenant.Scope, donorID ulid.ULID, filters *Filters, pagination *pkg.PaginationParams) ([]*Transaction, int64, error) {
	if _, err := s.Donors.GetDonorByID(ctx, scope, donorID); err != nil {
		return nil, 0, err
	}
	scoped := copyFilters(filters)
	scoped.DonorId = &donorID
	return s.ListTransactions(ctx, scope, scoped, pagination)
}

// Iterate walks every matching entry newest first, loading them in batches.
// Ranging over the returned sequence again restarts from the newest entry.
func (s *Service) Iterate(ctx context.Context, scope tenant.Scope, filters *Filters) iter.Seq2[*Transaction, error] {
	return func(yield func(*Transaction, error) bool) {
		if err := scope.Validate(); err != nil {
			yield(nil, err)
			return
		}
		if err := ValidateFilters(filters); err != nil {
			yield(nil, err)
			return
		}

		var cursor *Cursor
		for {
			batch, err := s.Repository.ListAfter(ctx, scope.OrganizationId, filters, cursor, iterateBatchSize)
			if err != nil {
				yield(nil, appErrors.NewDatabaseError(err))
				return
			}
			for _, t := range batch {
				if !yield(t, nil) {
					return
				}
			}
			if len(batch) < iterateBatchSize {
				return
			}
			last := batch[len(batch)-1]
			cursor = &Cursor{CreatedAt: last.CreatedAt, Id: last.Id}
		}
	}
}

func ValidateFilters(filters *Filters) error {
	if filters == nil {
		return nil
	}
	for _, t := range filters.Types {
		if !t.IsValid() {
			return appErrors.NewValidationError("types", "must contain only credit or debit")
		}
	}
	for _, st := range filters.Statuses {
		if !st.IsValid() {
			return appErrors.NewValidationError("statuses", "must contain only pending, completed or canceled")
		}
	}
	if filters.PaymentMethod != nil && !filters.PaymentMethod.IsValid() {
		return appErrors.NewValidationError("payment_method", "is not a known payment method")
	}
	if filters.DateFrom != nil && filters.DateTo != nil && filters.DateTo.Before(*filters.DateFrom) {
		return appErrors.NewValidationError("date_to", "must not be before date_from")
	}
	return nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return appErrors.NewValidationError("amount", "must be greater than zero")
	}
	if !pkg.HasValidScale(amount) {
		return appErrors.NewValidationError("amount", "must have at most 2 decimal places")
	}
	return nil
}

// postableFund resolves a fund reference for a new posting. A fund outside the
// caller's organization is reported exactly like a missing one.
func (s *Service) postableFund(ctx context.Context, scope tenant.Scope, fundID ulid.ULID) (*fund.Fund, error) {
	if pkg.IsEmptyULID(fundID) {
		return nil, appErrors.NewValidationError("fund_id", "is required")
	}
	f, err := s.Funds.GetFundByID(ctx, scope, fundID)
	if err != nil {
		if appErrors.IsKind(err, appErrors.KindNotFound) {
			return nil, appErrors.NewValidationError("fund_id", "does not reference a fund of this organization")
		}
		return nil, err
	}
	if !f.IsOpen() {
		return nil, appErrors.NewValidationError("fund_id", "references a closed fund")
	}
	return f, nil
}

func (s *Service) ensureDonor(ctx context.Context, scope tenant.Scope, donorID *ulid.ULID) error {
	if donorID == nil {
		return nil
	}
	if _, err := s.Donors.GetDonorByID(ctx, scope, *donorID); err != nil {
		if appErrors.IsKind(err, appErrors.KindNotFound) {
			return appErrors.NewValidationError("donor_id", "does not reference a donor of this organization")
		}
		return err
	}
	return nil
}

func (s *Service) scoped(scope tenant.Scope, t *Transaction, err error) (*Transaction, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrTransactionNotFound
		}
		return nil, appErrors.NewDatabaseError(err)
	}
	if !scope.Owns(t.OrganizationId) {
		return nil, appErrors.ErrTransactionNotFound
	}
	return t, nil
}

func (s *Service) invalidate(ctx context.Context, organizationID, fundID ulid.ULID) {
	if s.Balances != nil {
		s.Balances.InvalidateFund(ctx, organizationID, fundID)
	}
}

func (s *Service) emit(ctx context.Context, scope tenant.Scope, transactionID ulid.ULID, action audit.Action, before, after *Transaction) {
	event := audit.Event{
		Entity:         audit.EntityTransaction,
		EntityId:       transactionID,
		OrganizationId: scope.OrganizationId,
		ActorId:        scope.ActorId,
		Action:         action,
	}
	if before != nil {
		event.Before = before
	}
	if after != nil {
		event.After = after
	}
	audit.Emit(ctx, s.Audit, event)
}

func copyFilters(filters *Filters) *Filters {
	if filters == nil {
		return &Filters{}
	}
	clone := *filters
	return &clone
}

type CreateTransactionRequest struct {
	FundId        ulid.ULID
	DonorId       *ulid.ULID
	Amount        decimal.Decimal
	Type          Types
	PaymentMethod PaymentMethod
	Purpose       string
	Reference     string
	Note          string
	Status        Status
}

type UpdateTransactionRequest struct {
	FundId        *ulid.ULID
	DonorId       *ulid.ULID
	ClearDonor    bool
	Amount        *decimal.Decimal
	Type          *Types
	PaymentMethod *PaymentMethod
	Purpose       *string
	Reference     *string
	Note          *string
	Status        *Status
}

func (r *UpdateTransactionRequest) touchesFinancialFields(t *Transaction) bool {
	return (r.Amount != nil && !r.Amount.Equal(t.Amount)) ||
		(r.Type != nil && *r.Type != t.Type) ||
		(r.FundId != nil && *r.FundId != t.FundId) ||
		(r.Status != nil && *r.Status != t.Status) ||
		(r.PaymentMethod != nil && *r.PaymentMethod != t.PaymentMethod)
}
