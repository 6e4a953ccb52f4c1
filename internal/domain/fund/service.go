package fund

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

// OpenMainFundIndex is the partial unique index guarding one open main fund per organization.
const OpenMainFundIndex = "idx_funds_open_main"

type Service struct {
	Repository Repository
	Entries    EntryCounter
	Transactor shared.Transactor
	Audit      audit.Recorder
	shared.BaseService
}

func NewService(
	repo Repository,
	entries EntryCounter,
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

func (s *Service) CreateFund(ctx context.Context, scope tenant.Scope, req *CreateFundRequest) (*Fund, error) {
	if err := s.EnsureTenant(ctx, scope); err != nil {
		return nil, err
	}

	name := shared.CleanText(req.Name)
	if name == "" {
		return nil, appErrors.NewValidationError("name", "is required")
	}
	if len(name) > 255 {
		return nil, appErrors.NewValidationError("name", "must be at most 255 characters")
	}
	fundType := req.Type
	if fundType == "" {
		fundType = TypeCampaign
	}
	if !fundType.IsValid() {
		return nil, appErrors.NewValidationError("type", "must be main or campaign")
	}

	now := pkg.Now()
	fund := &Fund{
		Id:             pkg.GenerateULIDObject(),
		OrganizationId: scope.OrganizationId,
		Name:           name,
		Description:    strings.TrimSpace(req.Description),
		Type:           fundType,
		CreatedBy:      scope.Actor(),
		UpdatedBy:      scope.Actor(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if fund.Type == TypeMain {
			if err := s.ensureNoOpenMain(ctx, scope.OrganizationId); err != nil {
				return err
			}
		}
		if err := s.Repository.Create(ctx, fund); err != nil {
			return s.translateWriteError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, scope, fund.Id, audit.ActionCreated, nil, fund)
	return fund, nil
}

func (s *Service) UpdateFund(ctx context.Context, scope tenant.Scope, fundID ulid.ULID, req *UpdateFundRequest) (*Fund, error) {
	if err := s.EnsureTenant(ctx, scope); err != nil {
		return nil, err
	}

	var name, description *string
	if req.Name != nil {
		cleaned := shared.CleanText(*req.Name)
		if cleaned == "" {
			return nil, appErrors.NewValidationError("name", "cannot be empty")
		}
		name = &cleaned
	}
	if req.Description != nil {
		trimmed := strings.TrimSpace(*req.Description)
		description = &trimmed
	}

	var before Fund
	var fund *Fund
	err := s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		fund, err = s.lockFund(ctx, scope, fundID)
		if err != nil {
			return err
		}
		before = *fund

		if name != nil {
			fund.Name = *name
		}
		if description != nil {
			fund.Description = *description
		}
		fund.UpdatedBy = scope.Actor()
		fund.UpdatedAt = pkg.Now()

		if err := s.Repository.UpdateDetails(ctx, fund); err != nil {
			return appErrors.NewDatabaseError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, scope, fund.Id, audit.ActionUpdated, &before, fund)
	return fund, nil
}

// CloseFund retires a fund while keeping its history. The open main fund
// cannot be closed; another fund has to be promoted first.
func (s *Service) CloseFund(ctx context.Context, scope tenant.Scope, fundID ulid.ULID, note string) (*Fund, error) {
	if err := s.EnsureTenant(ctx, scope); err != nil {
		return nil, err
	}

	var before Fund
	var fund *Fund
	err := s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		fund, err = s.lockFund(ctx, scope, fundID)
		if err != nil {
			return err
		}
		if !fund.IsOpen() {
			return appErrors.NewValidationError("fund", "is already closed")
		}
		if fund.Type == TypeMain {
			return appErrors.NewInvariantViolation("the open main fund cannot be closed, promote another fund first")
		}
		before = *fund

		now := pkg.Now()
		fund.ClosedAt = &now
		fund.ClosedBy = scope.Actor()
		fund.ClosedNote = strings.TrimSpace(note)
		fund.UpdatedBy = scope.Actor()
		fund.UpdatedAt = now

		if err := s.Repository.UpdateClosure(ctx, fund); err != nil {
			return appErrors.NewDatabaseError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, scope, fund.Id, audit.ActionUpdated, &before, fund)
	return fund, nil
}

func (s *Service) ReopenFund(ctx context.Context, scope tenant.Scope, fundID ulid.ULID) (*Fund, error) {
	if err := s.EnsureTenant(ctx, scope); err != nil {
		return nil, err
	}

	var before Fund
	var fund *Fund
	err := s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		fund, err = s.lockFund(ctx, scope, fundID)
		if err != nil {
			return err
		}
		if fund.IsOpen() {
			return appErrors.NewValidationError("fund", "is not closed")
		}
		before = *fund

		if fund.Type == TypeMain {
			if err := s.ensureNoOpenMain(ctx, scope.OrganizationId); err != nil {
				return err
			}
		}

		fund.ClosedAt = nil
		fund.ClosedBy = nil
		fund.ClosedNote = ""
		fund.UpdatedBy = scope.Actor()
		fund.UpdatedAt = pkg.Now()

		if err := s.Repository.UpdateClosure(ctx, fund); err != nil {
			return s.translateWriteError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, scope, fund.Id, audit.ActionUpdated, &before, fund)
	return fund, nil
}

// DeleteFund hard deletes a fund that no ledger entry references.
func (s *Service) DeleteFund(ctx context.Context, scope tenant.Scope, fundID ulid.ULID) error {
	if err := s.EnsureTenant(ctx, scope); err != nil {
		return err
	}

	var fund *Fund
	err := s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		fund, err = s.lockFund(ctx, scope, fundID)
		if err != nil {
			return err
		}
		if fund.IsOpenMain() {
			return appErrors.NewInvariantViolation("the open main fund cannot be deleted")
		}

		count, err := s.Entries.CountByFund(ctx, scope.OrganizationId, fundID)
		if err != nil {
			return appErrors.NewDatabaseError(err)
		}
		if count > 0 {
			return appErrors.NewInvariantViolation("fund has transactions, close it instead").
				WithDetails(map[string]interface{}{"transactions": count})
		}

		if err := s.Repository.Delete(ctx, scope.OrganizationId, fundID); err != nil {
			return appErrors.NewDatabaseError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emit(ctx, scope, fund.Id, audit.ActionDeleted, fund, nil)
	return nil
}

func (s *Service) GetFundByID(ctx context.Context, scope tenant.Scope, fundID ulid.ULID) (*Fund, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	fund, err := s.Repository.GetByID(ctx, scope.OrganizationId, fundID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrFundNotFound
		}
		return nil, appErrors.NewDatabaseError(err)
	}
	if !scope.Owns(fund.OrganizationId) {
		return nil, appErrors.ErrFundNotFound
	}
	return fund, nil
}

// lockFund reads the fund under a row lock; callers must be inside a unit of work.
func (s *Service) lockFund(ctx context.Context, scope tenant.Scope, fundID ulid.ULID) (*Fund, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	fund, err := s.Repository.GetByIDForUpdate(ctx, scope.OrganizationId, fundID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrFundNotFound
		}
		return nil, appErrors.NewDatabaseError(err)
	}
	if !scope.Owns(fund.OrganizationId) {
		return nil, appErrors.ErrFundNotFound
	}
	return fund, nil
}

func (s *Service) ListFunds(ctx context.Context, scope tenant.Scope, filters *Filters, pagination *pkg.PaginationParams) ([]*Fund, int64, error) {
	if err := scope.Validate(); err != nil {
		return nil, 0, err
	}
	if filters != nil && filters.Type != nil && !filters.Type.IsValid() {
		return nil, 0, appErrors.NewValidationError("type", "must be main or campaign")
	}
	funds, total, err := s.Repository.List(ctx, scope.OrganizationId, filters, pagination)
	if err != nil {
		return nil, 0, appErrors.NewDatabaseError(err)
	}
	return funds, total, nil
}

func (s *Service) ListAllFunds(ctx context.Context, scope tenant.Scope) ([]*Fund, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	funds, err := s.Repository.ListAll(ctx, scope.OrganizationId)
	if err != nil {
		return nil, appErrors.NewDatabaseError(err)
	}
	return funds, nil
}

func (s *Service) GetMainFund(ctx context.Context, scope tenant.Scope) (*Fund, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	fund, err := s.Repository.GetOpenMain(ctx, scope.OrganizationId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrFundNotFound.WithMessage("Organization has no open main fund")
		}
		return nil, appErrors.NewDatabaseError(err)
	}
	return fund, nil
}

// SetMainFund makes fundID the single open main fund of the organization,
// demoting the current one to campaign in the same unit of work.
func (s *Service) SetMainFund(ctx context.Context, scope tenant.Scope, fundID ulid.ULID) (*Fund, error) {
	if err := s.EnsureTenant(ctx, scope); err != nil {
		return nil, err
	}

	var previous *Fund
	var target *Fund
	var before Fund
	err := s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		target, err = s.lockFund(ctx, scope, fundID)
		if err != nil {
			return err
		}
		if !target.IsOpen() {
			return appErrors.NewValidationError("fund", "is closed and cannot become the main fund")
		}
		if target.Type == TypeMain {
			return nil
		}
		before = *target

		previous, err = s.Repository.GetOpenMain(ctx, scope.OrganizationId)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return appErrors.NewDatabaseError(err)
		}

		if err := s.Repository.DemoteOpenMain(ctx, scope.OrganizationId, scope.Actor()); err != nil {
			return s.translateWriteError(err)
		}

		target.Type = TypeMain
		target.UpdatedBy = scope.Actor()
		target.UpdatedAt = pkg.Now()
		if err := s.Repository.Promote(ctx, target); err != nil {
			return s.translateWriteError(err)
		}

		count, err := s.Repository.CountOpenMain(ctx, scope.OrganizationId)
		if err != nil {
			return appErrors.NewDatabaseError(err)
		}
		if count != 1 {
			logger.Error().
				Str("organization_id", scope.OrganizationId.String()).
				Int64("open_main_funds", count).
				Msg("main fund reassignment left an invalid state")
			return appErrors.NewInvariantViolation("exactly one open main fund must exist")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if before.Type == TypeCampaign {
		if previous != nil {
			demoted := *previous
			demoted.Type = TypeCampaign
			s.emit(ctx, scope, previous.Id, audit.ActionUpdated, previous, &demoted)
		}
		s.emit(ctx, scope, target.Id, audit.ActionUpdated, &before, target)
	}
	return target, nil
}

func (s *Service) ensureNoOpenMain(ctx context.Context, organizationID ulid.ULID) error {
	count, err := s.Repository.CountOpenMain(ctx, organizationID)
	if err != nil {
		return appErrors.NewDatabaseError(err)
	}
	if count > 0 {
		return appErrors.NewInvariantViolation("organization already has an open main fund")
	}
	return nil
}

func (s *Service) translateWriteError(err error) error {
	if shared.IsUniqueConstraintError(err) && shared.ConstraintName(err, OpenMainFundIndex) {
		return appErrors.NewConcurrencyConflict("main fund", err)
	}
	if appErrors.IsAppError(err) {
		return err
	}
	return appErrors.NewDatabaseError(err)
}

func (s *Service) emit(ctx context.Context, scope tenant.Scope, fundID ulid.ULID, action audit.Action, before, after *Fund) {
	event := audit.Event{
		Entity:         audit.EntityFund,
		EntityId:       fundID,
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

type CreateFundRequest struct {
	Name        string
	Description string
	Type        Types
}

type UpdateFundRequest struct {
	Name        *string
	Description *string
}
