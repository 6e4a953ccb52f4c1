package tenant

import (
	appErrors "github.com/shakilmiahcse/social-org-finance/internal/errors"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"github.com/oklog/ulid/v2"
)

// Scope is the tenant context every ledger operation runs under. It is supplied
// by the caller's authentication layer and is never derived from request input.
type Scope struct {
	OrganizationId ulid.ULID
	ActorId        ulid.ULID
}

func NewScope(organizationID, actorID ulid.ULID) Scope {
	return Scope{OrganizationId: organizationID, ActorId: actorID}
}

func (s Scope) Validate() error {
	if pkg.IsEmptyULID(s.OrganizationId) {
		return appErrors.ErrUnauthorized.WithMessage("missing organization context")
	}
	if pkg.IsEmptyULID(s.ActorId) {
		return appErrors.ErrUnauthorized.WithMessage("missing actor context")
	}
	return nil
}

// Owns reports whether a row stamped with organizationID is visible to this scope.
func (s Scope) Owns(organizationID ulid.ULID) bool {
	return !pkg.IsEmptyULID(s.OrganizationId) && s.OrganizationId == organizationID
}

func (s Scope) Actor() *ulid.ULID {
	if pkg.IsEmptyULID(s.ActorId) {
		return nil
	}
	id := s.ActorId
	return &id
}
