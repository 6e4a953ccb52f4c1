package fund

import (
	"context"

	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"github.com/oklog/ulid/v2"
)

type Repository interface {
	Create(ctx context.Context, f *Fund) error
	// UpdateDetails writes name and description only.
	UpdateDetails(ctx context.Context, f *Fund) error
	// UpdateClosure writes the closed_* columns only.
	UpdateClosure(ctx context.Context, f *Fund) error
	Promote(ctx context.Context, f *Fund) error
	Delete(ctx context.Context, organizationID, fundID ulid.ULID) error
	GetByID(ctx context.Context, organizationID, fundID ulid.ULID) (*Fund, error)
	// GetByIDForUpdate loads the fund and locks its row until the unit of work ends.
	GetByIDForUpdate(ctx context.Context, organizationID, fundID ulid.ULID) (*Fund, error)
	List(ctx context.Context, organizationID ulid.ULID, filters *Filters, pagination *pkg.PaginationParams) ([]*Fund, int64, error)
	ListAll(ctx context.Context, organizationID ulid.ULID) ([]*Fund, error)
	GetOpenMain(ctx context.Context, organizationID ulid.ULID) (*Fund, error)
	CountOpenMain(ctx context.Context, organizationID ulid.ULID) (int64, error)
	DemoteOpenMain(ctx context.Context, organizationID ulid.ULID, actorID *ulid.ULID) error
}

// EntryCounter reports how many ledger entries reference a fund.
type EntryCounter interface {
	CountByFund(ctx context.Context, organizationID, fundID ulid.ULID) (int64, error)
}
