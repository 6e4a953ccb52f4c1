package adjustment

import (
	"context"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/transaction"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"github.com/oklog/ulid/v2"
)

type Repository interface {
	Create(ctx context.Context, a *CampaignAdjustment) error
	Delete(ctx context.Context, organizationID, adjustmentID ulid.ULID) error
	GetByID(ctx context.Context, organizationID, adjustmentID ulid.ULID) (*CampaignAdjustment, error)
	List(ctx context.Context, organizationID ulid.ULID, filters *Filters, pagination *pkg.PaginationParams) ([]*CampaignAdjustment, int64, error)
}

// LegPoster persists one side of an adjustment, assigning its txn_id.
type LegPoster interface {
	Post(ctx context.Context, t *transaction.Transaction) error
}

// LegStore reads and removes the entries linked to an adjustment.
type LegStore interface {
	ListByAdjustment(ctx context.Context, organizationID, adjustmentID ulid.ULID) ([]*transaction.Transaction, error)
	DeleteByAdjustment(ctx context.Context, organizationID, adjustmentID ulid.ULID) (int64, error)
}
