package shared

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// Transactor runs fn inside a single unit of work. Repositories called with the
// ctx passed to fn take part in it; any error returned by fn rolls everything back.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// BalanceInvalidator drops derived balance state for a fund after its entries change.
type BalanceInvalidator interface {
	InvalidateFund(ctx context.Context, organizationID, fundID ulid.ULID)
}

type OrganizationStatus interface {
	IsActive(ctx context.Context, organizationID ulid.ULID) (bool, error)
}
