package donor

import (
	"context"
	"errors"
	"strings"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/audit"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/shared"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/tenant"
	appErrors "github.com/shakilmiahcse/social-org-finance/internal/errors"
	"github.com/shakilmiahcse/social-org-finance/internal/logger"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

type Service struct {
	Repository Repository
	Entries    EntryDetacher
	Transactor shared.Transactor
	Audit      audit.Recorder
	shared.BaseService
}

func NewService(
	repo Repository,
	entries EntryDetacher,
	transactor shared.Transactor,
	recorder audit.Recorder,
	tenantChecker *shared.TenantCheckerService,
) *Service {
	return &Service{
		Repository: repo,
		Entries:    entries,
		Transactor: transactor,
		Audit:      recorder,
		BaseService: shared.BaseService{
			TenantChecker: tenantChecker,
		},
	}
}

func (s *Service) CreateDonor(ctx context.Context, scope tenant.Scope, req *CreateDonorRequest) (*Donor, error) {
	if err := s.EnsureTenant(ctx, scope); err != nil {
		return nil, err
	}

	donor := &Donor{
		Id:             pkg.GenerateULIDObject(),
		OrganizationId: scope.OrganizationId,
		Name:           shared.CleanText(req.Name),
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:          strings.TrimSpace(req.Phone),
		Address:        strings.TrimSpace(req.Address),
		BloodGroup:     strings.ToUpper(strings.TrimSpace(req.BloodGroup)),
		CreatedBy:      scope.Actor(),
		UpdatedBy:      scope.Actor(),
	}
	if err := s.validate(ctx, scope, donor); err != nil {
		return nil, err
	}

	now := pkg.Now()
	donor.CreatedAt = now
	donor.UpdatedAt = now

	if err := s.Repository.Create(ctx, donor); err != nil {
		if shared.IsUniqueConstraintError(err) {
			return nil, appErrors.NewConflictError("donor email")
		}
		return nil, appErrors.NewDatabaseError(err)
	}

	s.emit(ctx, scope, donor.Id, audit.ActionCreated, nil, donor)
	return donor, nil
}

func (s *Service) UpdateDonor(ctx context.Context, scope tenant.Scope, donorID ulid.ULID, req *UpdateDonorRequest) (*Donor, error) {
	if err := s.EnsureTenant(ctx, scope); err != nil {
		return nil, err
	}

	var before Donor
	var donor *Donor
	err := s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		donor, err = s.lockDonor(ctx, scope, donorID)
		if err != nil {
			return err
		}
		before = *donor

		if req.Name != nil {
			donor.Name = shared.CleanText(*req.Name)
		}
		if req.Email != nil {
			donor.Email = strings.ToLower(strings.TrimSpace(*req.Email))
		}
		if req.Phone != nil {
			donor.Phone = strings.TrimSpace(*req.Phone)
		}
		if req.Address != nil {
			donor.Address = strings.TrimSpace(*req.Address)
		}
		if req.BloodGroup != nil {
			donor.BloodGroup = strings.ToUpper(strings.TrimSpace(*req.BloodGroup))
		}
		if err := s.validate(ctx, scope, donor); err != nil {
			return err
		}
		donor.UpdatedBy = scope.Actor()
		donor.UpdatedAt = pkg.Now()

		if err := s.Repository.Update(ctx, donor); err != nil {
			if shared.IsUniqueConstraintError(err) {
				return appErrors.NewConflictError("donor email")
			}
			return appErrors.NewDatabaseError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, scope, donor.Id, audit.ActionUpdated, &before, donor)
	return donor, nil
}

// DeleteDonor removes the donor and unlinks it from its transactions; the
// transactions themselves and their amounts are kept.
func (s *Service) DeleteDonor(ctx context.Context, scope tenant.Scope, donorID ulid.ULID) error {
	if err := s.EnsureTenant(ctx, scope); err != nil {
		return err
	}

	var donor *Donor
	var detached int64
	err := s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		donor, err = s.lockDonor(ctx, scope, donorID)
		if err != nil {
			return err
		}
		detached, err = s.Entries.DetachDonor(ctx, scope.OrganizationId, donorID)
		if err != nil {
			return appErrors.NewDatabaseError(err)
		}
		if err := s.Repository.Delete(ctx, scope.OrganizationId, donorID); err != nil {
			return appErrors.NewDatabaseError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info().
		Str("donor_id", donorID.String()).
		Int64("detached_transactions", detached).
		Msg("donor deleted")
	s.emit(ctx, scope, donor.Id, audit.ActionDeleted, donor, nil)
	return nil
}

func (s *Service) GetDonorByID(ctx context.Context, scope tenant.Scope, donorID ulid.ULID) (*Donor, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	donor, err := s.Repository.GetByID(ctx, scope.OrganizationId, donorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrDonorNotFound
		}
		return nil, appErrors.NewDatabaseError(err)
	}
	if !scope.Owns(donor.OrganizationId) {
		return nil, appErrors.ErrDonorNotFound
	}
	return donor, nil
}

func (s *Service) lockDonor(ctx context.Context, scope tenant.Scope, donorID ulid.ULID) (*Donor, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	donor, err := s.Repository.GetByIDForUpdate(ctx, scope.OrganizationId, donorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrDonorNotFound
		}
		return nil, appErrors.NewDatabaseError(err)
	}
	if !scope.Owns(donor.OrganizationId) {
		return nil, appErrors.ErrDonorNotFound
	}
	return donor, nil
}

func (s *Service) ListDonors(ctx context.Context, scope tenant.Scope, filters *Filters, pagination *pkg.PaginationParams) ([]*Donor, int64, error) {
	if err := scope.Validate(); err != nil {
		return nil, 0, err
	}
	donors, total, err := s.Repository.List(ctx, scope.OrganizationId, filters, pagination)
	if err != nil {
		return nil, 0, appErrors.NewDatabaseError(err)
	}
	return donors, total, nil
}

func (s *Service) validate(ctx context.Context, scope tenant.Scope, donor *Donor) error {
	if donor.Name == "" {
		return appErrors.NewValidationError("name", "is required")
	}
	if len(donor.Name) > 255 {
		return appErrors.NewValidationError("name", "must be at most 255 characters")
	}
	if donor.BloodGroup != "" && !IsValidBloodGroup(donor.BloodGroup) {
		return appErrors.NewValidationError("blood_group", "must be one of A+ A- B+ B- AB+ AB- O+ O-")
	}
	if donor.Email == "" {
		return nil
	}
	if !pkg.IsValidEmail(donor.Email) {
		return appErrors.NewValidationError("email", "is not a valid address")
	}

	existing, err := s.Repository.GetByEmail(ctx, scope.OrganizationId, donor.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return appErrors.NewDatabaseError(err)
	}
	if existing.Id != donor.Id {
		return appErrors.NewConflictError("donor email")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, scope tenant.Scope, donorID ulid.ULID, action audit.Action, before, after *Donor) {
	event := audit.Event{
		Entity:         audit.EntityDonor,
		EntityId:       donorID,
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

type CreateDonorRequest struct {
	Name       string
	Email      string
	Phone      string
	Address    string
	BloodGroup string
}

type UpdateDonorRequest struct {
	Name       *string
	Email      *string
	Phone      *string
	Address    *string
	BloodGroup *string
}
