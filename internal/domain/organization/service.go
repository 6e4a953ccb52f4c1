package organization

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/audit"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/shared"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/tenant"
	appErrors "github.com/shakilmiahcse/social-org-finance/internal/errors"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"gorm.io/gorm"
)

type Service struct {
	Repository Repository
	Audit      audit.Recorder
}

func NewService(repo Repository, recorder audit.Recorder) *Service {
	return &Service{Repository: repo, Audit: recorder}
}

func (s *Service) CreateOrganization(ctx context.Context, req *CreateOrganizationRequest) (*Organization, error) {
	name := shared.CleanText(req.Name)
	if name == "" {
		return nil, appErrors.NewValidationError("name", "is required")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !pkg.IsValidEmail(email) {
		return nil, appErrors.NewValidationError("email", "is not a valid address")
	}
	currency, err := normalizeCurrency(req.Currency)
	if err != nil {
		return nil, err
	}
	timezone, err := normalizeTimezone(req.Timezone)
	if err != nil {
		return nil, err
	}

	if _, err := s.Repository.GetByEmail(ctx, email); err == nil {
		return nil, appErrors.NewConflictError("organization email")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appErrors.NewDatabaseError(err)
	}

	now := pkg.Now()
	org := &Organization{
		Id:        pkg.GenerateULIDObject(),
		Name:      name,
		Email:     email,
		Phone:     strings.TrimSpace(req.Phone),
		Address:   strings.TrimSpace(req.Address),
		Website:   strings.TrimSpace(req.Website),
		Slogan:    strings.TrimSpace(req.Slogan),
		Timezone:  timezone,
		Currency:  currency,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.Repository.Create(ctx, org); err != nil {
		if shared.IsUniqueConstraintError(err) {
			return nil, appErrors.NewConflictError("organization email")
		}
		return nil, appErrors.NewDatabaseError(err)
	}

	audit.Emit(ctx, s.Audit, audit.Event{
		Entity:         audit.EntityOrganization,
		EntityId:       org.Id,
		OrganizationId: org.Id,
		Action:         audit.ActionCreated,
		After:          org,
	})
	return org, nil
}

func (s *Service) GetOrganization(ctx context.Context, scope tenant.Scope) (*Organization, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	org, err := s.Repository.GetByID(ctx, scope.OrganizationId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrOrganizationNotFound
		}
		return nil, appErrors.NewDatabaseError(err)
	}
	return org, nil
}

func (s *Service) UpdateOrganization(ctx context.Context, scope tenant.Scope, req *UpdateOrganizationRequest) (*Organization, error) {
	org, err := s.GetOrganization(ctx, scope)
	if err != nil {
		return nil, err
	}
	before := *org

	if req.Name != nil {
		name := shared.CleanText(*req.Name)
		if name == "" {
			return nil, appErrors.NewValidationError("name", "cannot be empty")
		}
		org.Name = name
	}
	if req.Phone != nil {
		org.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		org.Address = strings.TrimSpace(*req.Address)
	}
	if req.Website != nil {
		org.Website = strings.TrimSpace(*req.Website)
	}
	if req.Slogan != nil {
		org.Slogan = strings.TrimSpace(*req.Slogan)
	}
	if req.Currency != nil {
		currency, err := normalizeCurrency(*req.Currency)
		if err != nil {
			return nil, err
		}
		org.Currency = currency
	}
	if req.Timezone != nil {
		timezone, err := normalizeTimezone(*req.Timezone)
		if err != nil {
			return nil, err
		}
		org.Timezone = timezone
	}
	if req.IsActive != nil {
		org.IsActive = *req.IsActive
	}
	org.UpdatedAt = pkg.Now()

	if err := s.Repository.Update(ctx, org); err != nil {
		return nil, appErrors.NewDatabaseError(err)
	}

	audit.Emit(ctx, s.Audit, audit.Event{
		Entity:         audit.EntityOrganization,
		EntityId:       org.Id,
		OrganizationId: org.Id,
		ActorId:        scope.ActorId,
		Action:         audit.ActionUpdated,
		Before:         &before,
		After:          org,
	})
	return org, nil
}

func normalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency, nil
	}
	if !pkg.IsValidCurrency(code) {
		return "", appErrors.NewValidationError("currency", "is not a supported ISO 4217 code")
	}
	return code, nil
}

func normalizeTimezone(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "UTC", nil
	}
	if _, err := time.LoadLocation(name); err != nil {
		return "", appErrors.NewValidationError("timezone", "is not a known time zone")
	}
	return name, nil
}

type CreateOrganizationRequest struct {
	Name     string
	Email    string
	Phone    string
	Address  string
	Website  string
	Slogan   string
	Timezone string
	Currency string
}

type UpdateOrganizationRequest struct {
	Name     *string
	Phone    *string
	Address  *string
	Website  *string
	Slogan   *string
	Timezone *string
	Currency *string
	IsActive *bool
}
