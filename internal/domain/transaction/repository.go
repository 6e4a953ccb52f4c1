package transaction

import (
	"context"

	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"github.com/oklog/ulid/v2"
)

type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	Update(ctx context.Context, t *Transaction) error
	Delete(ctx context.Context, organizationID, transactionID ulid.ULID) error
	GetByID(ctx context.Context, organizationID, transactionID ulid.ULID) (*Transaction, error)
	GetByIDForUpdate(ctx context.Context, organizationID, transactionID ulid.ULID) (*Transaction, error)
	GetByTxnID(ctx context.Context, organizationID ulid.ULID, txnID string) (*Transaction, error)
	List(ctx context.Context, organizationID ulid.ULID, filters *Filters, pagination *pkg.PaginationParams) ([]*Transaction, int64, error)
	ListAfter(ctx context.Context, organizationID ulid.ULID, filters *Filters, after *Cursor, limit int) ([]*Transaction, error)
	ListByAdjustment(ctx context.Context, organizationID, adjustmentID ulid.ULID) ([]*Transaction, error)
	DeleteByAdjustment(ctx context.Context, organizationID, adjustmentID ulid.ULID) (int64, error)
	CountByFund(ctx context.Context, organizationID, fundID ulid.ULID) (int64, error)
	DetachDonor(ctx context.Context, organizationID, donorID ulid.ULID) (int64, error)
}
