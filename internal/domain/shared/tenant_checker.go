package shared

import (
	"context"
	"errors"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/tenant"
	appErrors "github.com/shakilmiahcse/social-org-finance/internal/errors"

	"gorm.io/gorm"
)

type TenantCheckerService struct {
	organizations OrganizationStatus
}

func NewTenantCheckerService(organizations OrganizationStatus) *TenantCheckerService {
	return &TenantCheckerService{organizations: organizations}
}

func (s *TenantCheckerService) EnsureActive(ctx context.Context, scope tenant.Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if s == nil || s.organizations == nil {
		return appErrors.ErrInternalServer
	}

	active, err := s.organizations.IsActive(ctx, scope.OrganizationId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErrors.ErrOrganizationNotFound
		}
		return appErrors.NewDatabaseError(err)
	}
	if !active {
		return appErrors.ErrOrganizationInactive
	}
	return nil
}

type BaseService struct {
	TenantChecker *TenantCheckerService
}

// EnsureTenant rejects writes for missing, unknown or inactive organizations.
func (b *BaseService) EnsureTenant(ctx context.Context, scope tenant.Scope) error {
	if b.TenantChecker == nil {
		return appErrors.ErrInternalServer
	}
	return b.TenantChecker.EnsureActive(ctx, scope)
}
