package organization

import (
	"context"

	"github.com/oklog/ulid/v2"
)

type Repository interface {
	Create(ctx context.Context, org *Organization) error
	Update(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, organizationID ulid.ULID) (*Organization, error)
	GetByEmail(ctx context.Context, email string) (*Organization, error)
	IsActive(ctx context.Context, organizationID ulid.ULID) (bool, error)
}
