package infrastructure

import (
	"context"
	"time"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/transaction"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg/query"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransactionRepository struct {
	DB *gorm.DB
}

var _ transaction.Repository = (*TransactionRepository)(nil)

type transactionDB struct {
	Id             string          `gorm:"type:varchar(26);primaryKey;column:id"`
	OrganizationId string          `gorm:"type:varchar(26);not null;index:idx_transactions_org_fund_status,priority:1;column:organization_id"`
	TxnId          string          `gorm:"type:varchar(32);not null;uniqueIndex:idx_transactions_txn_id;column:txn_id"`
	DonorId        *string         `gorm:"type:varchar(26);index;column:donor_id"`
	FundId         string          `gorm:"type:varchar(26);not null;index:idx_transactions_org_fund_status,priority:2;column:fund_id"`
	AdjustmentId   *string         `gorm:"type:varchar(26);index;column:adjustment_id"`
	Amount         decimal.Decimal `gorm:"type:numeric(15,2);not null;column:amount"`
	Type           string          `gorm:"type:varchar(10);not null;column:type"`
	Purpose        string          `gorm:"type:varchar(255);column:purpose"`
	PaymentMethod  string          `gorm:"type:varchar(20);not null;default:'cash';column:payment_method"`
	Reference      string          `gorm:"type:varchar(255);column:reference"`
	Note           string          `gorm:"type:text;column:note"`
	Status         string          `gorm:"type:varchar(20);not null;default:'pending';index:idx_transactions_org_fund_status,priority:3;column:status"`
	CreatedBy      *string         `gorm:"type:varchar(26);column:created_by"`
	UpdatedBy      *string         `gorm:"type:varchar(26);column:updated_by"`
	CreatedAt      time.Time       `gorm:"not null;column:created_at"`
	UpdatedAt      time.Time       `gorm:"not null;column:updated_at"`
}

func (transactionDB) TableName() string {
	return "transactions"
}

func toDomainTransaction(t *transactionDB) (*transaction.Transaction, error) {
	id, err := pkg.ParseULID(t.Id)
	if err != nil {
		return nil, err
	}
	orgID, err := pkg.ParseULID(t.OrganizationId)
	if err != nil {
		return nil, err
	}
	fundID, err := pkg.ParseULID(t.FundId)
	if err != nil {
		return nil, err
	}
	donorID, err := pkg.ULIDPtrFromString(t.DonorId)
	if err != nil {
		return nil, err
	}
	adjustmentID, err := pkg.ULIDPtrFromString(t.AdjustmentId)
	if err != nil {
		return nil, err
	}
	createdBy, err := pkg.ULIDPtrFromString(t.CreatedBy)
	if err != nil {
		return nil, err
	}
	updatedBy, err := pkg.ULIDPtrFromString(t.UpdatedBy)
	if err != nil {
		return nil, err
	}

	return &transaction.Transaction{
		Id:             id,
		OrganizationId: orgID,
		TxnId:          t.TxnId,
		DonorId:        donorID,
		FundId:         fundID,
		AdjustmentId:   adjustmentID,
		Amount:         t.Amount,
		Type:           transaction.Types(t.Type),
		Purpose:        t.Purpose,
		PaymentMethod:  transaction.PaymentMethod(t.PaymentMethod),
		Reference:      t.Reference,
		Note:           t.Note,
		Status:         transaction.Status(t.Status),
		CreatedBy:      createdBy,
		UpdatedBy:      updatedBy,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}, nil
}

func toDBTransaction(t *transaction.Transaction) *transactionDB {
	return &transactionDB{
		Id:             t.Id.String(),
		OrganizationId: t.OrganizationId.String(),
		TxnId:          t.TxnId,
		DonorId:        pkg.ULIDPtrString(t.DonorId),
		FundId:         t.FundId.String(),
		AdjustmentId:   pkg.ULIDPtrString(t.AdjustmentId),
		Amount:         t.Amount,
		Type:           string(t.Type),
		Purpose:        t.Purpose,
		PaymentMethod:  string(t.PaymentMethod),
		Reference:      t.Reference,
		Note:           t.Note,
		Status:         string(t.Status),
		CreatedBy:      pkg.ULIDPtrString(t.CreatedBy),
		UpdatedBy:      pkg.ULIDPtrString(t.UpdatedBy),
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

// Create inserts inside a nested transaction. Within an open unit of work that
// becomes a savepoint, so a txn_id collision can be retried without aborting
// the surrounding transaction.
func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	row := toDBTransaction(t)
	return conn(ctx, r.DB).Transaction(func(tx *gorm.DB) error {
		return tx.Create(row).Error
	})
}

func (r *TransactionRepository) Update(ctx context.Context, t *transaction.Transaction) error {
	row := toDBTransaction(t)
	return conn(ctx, r.DB).Model(&transactionDB{}).
		Where("id = ? AND organization_id = ?", row.Id, row.OrganizationId).
		Select("*").
		Omit("id", "organization_id", "txn_id", "adjustment_id", "created_by", "created_at").
		Updates(row).Error
}

func (r *TransactionRepository) Delete(ctx context.Context, organizationID, transactionID ulid.ULID) error {
	return conn(ctx, r.DB).
		Where("id = ? AND organization_id = ?", transactionID.String(), organizationID.String()).
		Delete(&transactionDB{}).Error
}

func (r *TransactionRepository) GetByID(ctx context.Context, organizationID, transactionID ulid.ULID) (*transaction.Transaction, error) {
	row, err := r.scoped(ctx, organizationID).
		Where("id = ?", transactionID.String()).
		First()
	if err != nil {
		return nil, err
	}
	return toDomainTransaction(row)
}

func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, organizationID, transactionID ulid.ULID) (*transaction.Transaction, error) {
	var row transactionDB
	err := conn(ctx, r.DB).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND organization_id = ?", transactionID.String(), organizationID.String()).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return toDomainTransaction(&row)
}

func (r *TransactionRepository) GetByTxnID(ctx context.Context, organizationID ulid.ULID, txnID string) (*transaction.Transaction, error) {
	row, err := r.scoped(ctx, organizationID).
		Where("txn_id = ?", txnID).
		First()
	if err != nil {
		return nil, err
	}
	return toDomainTransaction(row)
}

func (r *TransactionRepository) List(ctx context.Context, organizationID ulid.ULID, filters *transaction.Filters, pagination *pkg.PaginationParams) ([]*transaction.Transaction, int64, error) {
	q := applyTransactionFilters(r.scoped(ctx, organizationID), filters).
		Order("created_at DESC, id DESC")
	return query.Paginate(q, pagination, toDomainTransaction)
}

// ListAfter pages with a (created_at, id) keyset so deep pages cost the same as the first.
func (r *TransactionRepository) ListAfter(ctx context.Context, organizationID ulid.ULID, filters *transaction.Filters, after *transaction.Cursor, limit int) ([]*transaction.Transaction, error) {
	q := applyTransactionFilters(r.scoped(ctx, organizationID), filters)
	if after != nil {
		q.Where("(created_at, id) < (?, ?)", after.CreatedAt, after.Id.String())
	}

	var rows []transactionDB
	err := q.DB().Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return query.ConvertAll(rows, toDomainTransaction)
}

func (r *TransactionRepository) ListByAdjustment(ctx context.Context, organizationID, adjustmentID ulid.ULID) ([]*transaction.Transaction, error) {
	q := r.scoped(ctx, organizationID).
		Where("adjustment_id = ?", adjustmentID.String()).
		Order("id ASC")
	return query.All(q, toDomainTransaction)
}

func (r *TransactionRepository) DeleteByAdjustment(ctx context.Context, organizationID, adjustmentID ulid.ULID) (int64, error) {
	result := conn(ctx, r.DB).
		Where("organization_id = ? AND adjustment_id = ?", organizationID.String(), adjustmentID.String()).
		Delete(&transactionDB{})
	return result.RowsAffected, result.Error
}

func (r *TransactionRepository) CountByFund(ctx context.Context, organizationID, fundID ulid.ULID) (int64, error) {
	return r.scoped(ctx, organizationID).
		Where("fund_id = ?", fundID.String()).
		Count()
}

func (r *TransactionRepository) DetachDonor(ctx context.Context, organizationID, donorID ulid.ULID) (int64, error) {
	result := conn(ctx, r.DB).Model(&transactionDB{}).
		Where("organization_id = ? AND donor_id = ?", organizationID.String(), donorID.String()).
		Updates(map[string]interface{}{
			"donor_id":   nil,
			"updated_at": pkg.Now(),
		})
	return result.RowsAffected, result.Error
}

func (r *TransactionRepository) scoped(ctx context.Context, organizationID ulid.ULID) *query.Query[transactionDB] {
	return query.New[transactionDB](conn(ctx, r.DB), "transactions").
		Context(ctx).
		ForOrganization(organizationID)
}

func applyTransactionFilters(q *query.Query[transactionDB], filters *transaction.Filters) *query.Query[transactionDB] {
	if filters == nil {
		return q
	}
	return q.
		WhereIf(filters.FundId != nil, "fund_id = ?", ulidArg(filters.FundId)).
		WhereIf(filters.DonorId != nil, "donor_id = ?", ulidArg(filters.DonorId)).
		WhereIf(filters.AdjustmentId != nil, "adjustment_id = ?", ulidArg(filters.AdjustmentId)).
		WhereIf(filters.CreatedBy != nil, "created_by = ?", ulidArg(filters.CreatedBy)).
		WhereIf(filters.DateFrom != nil, "created_at >= ?", timeArg(filters.DateFrom)).
		WhereIf(filters.DateTo != nil, "created_at <= ?", timeArg(filters.DateTo)).
		WhereIf(filters.PaymentMethod != nil, "payment_method = ?", paymentMethodArg(filters.PaymentMethod)).
		WhereIf(len(filters.Types) > 0, "type IN ?", stringsOf(filters.Types)).
		WhereIf(len(filters.Statuses) > 0, "status IN ?", stringsOf(filters.Statuses))
}

func ulidArg(id *ulid.ULID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func timeArg(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func paymentMethodArg(m *transaction.PaymentMethod) string {
	if m == nil {
		return ""
	}
	return string(*m)
}

func stringsOf[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
