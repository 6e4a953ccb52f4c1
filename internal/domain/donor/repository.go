package donor

import (
	"context"

	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"github.com/oklog/ulid/v2"
)

type Repository interface {
	Create(ctx context.Context, d *Donor) error
	Update(ctx context.Context, d *Donor) error
	Delete(ctx context.Context, organizationID, donorID ulid.ULID) error
	GetByID(ctx context.Context, organizationID, donorID ulid.ULID) (*Donor, error)
	GetByIDForUpdate(ctx context.Context, organizationID, donorID ulid.ULID) (*Donor, error)
	GetByEmail(ctx context.Context, organizationID ulid.ULID, email string) (*Donor, error)
	List(ctx context.Context, organizationID ulid.ULID, filters *Filters, pagination *pkg.PaginationParams) ([]*Donor, int64, error)
}

// EntryDetacher clears donor references on ledger entries before a donor is removed.
type EntryDetacher interface {
	DetachDonor(ctx context.Context, organizationID, donorID ulid.ULID) (int64, error)
}
