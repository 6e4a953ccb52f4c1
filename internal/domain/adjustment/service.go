package adjustment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/audit"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/fund"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/shared"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/tenant"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/transaction"
	appErrors "github.com/shakilmiahcse/social-org-finance/internal/errors"
	"github.com/shakilmiahcse/social-org-finance/internal/logger"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("github.com/shakilmiahcse/social-org-finance/internal/domain/adjustment")

type FundGetter interface {
	GetFundByID(ctx context.Context, scope tenant.Scope, fundID ulid.ULID) (*fund.Fund, error)
}

type Service struct {
	Repository Repository
	Funds      FundGetter
	Legs       LegPoster
	Entries    LegStore
	Transactor shared.Transactor
	Balances   shared.BalanceInvalidator
	Audit      audit.Recorder
	shared.BaseService
}

// CreateAdjustment records the adjustment and both of its legs in one unit of
// work. Input problems surface as validation or not-found errors; any failure
// while writing rolls everything back and is reported as AdjustmentFailed.
func (s *Service) CreateAdjustment(ctx context.Context, scope tenant.Scope, req *CreateAdjustmentRequest) (*CampaignAdjustment, error) {
	ctx, span := tracer.Start(ctx, "adjustment.Create")
	defer span.End()

	if err := s.EnsureTenant(ctx, scope); err != nil {
		return nil, err
	}
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	now := pkg.Now()
	adj := &CampaignAdjustment{
		Id:             pkg.GenerateULIDObject(),
		OrganizationId: scope.OrganizationId,
		CampaignFundId: req.CampaignFundId,
		MainFundId:     req.MainFundId,
		Amount:         req.Amount,
		Type:           req.Type,
		Note:           strings.TrimSpace(req.Note),
		CreatedBy:      scope.Actor(),
		UpdatedBy:      scope.Actor(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	span.SetAttributes(
		attribute.String("adjustment_id", adj.Id.String()),
		attribute.String("type", string(adj.Type)),
	)

	err := s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		mainFund, err := s.resolveFund(ctx, scope, adj.MainFundId, "main_fund_id", fund.TypeMain)
		if err != nil {
			return err
		}
		campaignFund, err := s.resolveFund(ctx, scope, adj.CampaignFundId, "campaign_fund_id", fund.TypeCampaign)
		if err != nil {
			return err
		}

		if err := s.Repository.Create(ctx, adj); err != nil {
			return fmt.Errorf("create adjustment: %w", err)
		}
		for _, leg := range buildLegs(adj, mainFund, campaignFund) {
			if err := s.Legs.Post(ctx, leg); err != nil {
				return fmt.Errorf("post %s leg: %w", leg.Type, err)
			}
			adj.Legs = append(adj.Legs, leg)
		}
		return nil
	})
	if err != nil {
		adj.Legs = nil
		if isCallerError(err) {
			return nil, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "adjustment rolled back")
		logger.Error().
			Err(err).
			Str("organization_id", scope.OrganizationId.String()).
			Str("adjustment_id", adj.Id.String()).
			Str("type", string(adj.Type)).
			Msg("adjustment rolled back")
		return nil, appErrors.ErrAdjustmentFailed.WithError(err)
	}

	s.invalidate(ctx, adj)
	audit.Emit(ctx, s.Audit, audit.Event{
		Entity:         audit.EntityAdjustment,
		EntityId:       adj.Id,
		OrganizationId: scope.OrganizationId,
		ActorId:        scope.ActorId,
		Action:         audit.ActionCreated,
		After:          adj,
	})
	return adj, nil
}

// DeleteAdjustment removes the adjustment together with both of its legs. This
// is the only way to remove a transaction that carries an adjustment id.
func (s *Service) DeleteAdjustment(ctx context.Context, scope tenant.Scope, adjustmentID ulid.ULID) error {
	ctx, span := tracer.Start(ctx, "adjustment.Delete",
		trace.WithAttributes(attribute.String("adjustment_id", adjustmentID.String())))
	defer span.End()

	if err := s.EnsureTenant(ctx, scope); err != nil {
		return err
	}

	var adj *CampaignAdjustment
	err := s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		adj, err = s.getAdjustment(ctx, scope, adjustmentID)
		if err != nil {
			return err
		}

		legs, err := s.Entries.ListByAdjustment(ctx, scope.OrganizationId, adjustmentID)
		if err != nil {
			return fmt.Errorf("load legs: %w", err)
		}
		if len(legs) != 2 {
			return appErrors.NewInvariantViolation("adjustment does not have exactly two linked transactions").
				WithDetails(map[string]interface{}{"linked_transactions": len(legs)})
		}
		adj.Legs = legs

		deleted, err := s.Entries.DeleteByAdjustment(ctx, scope.OrganizationId, adjustmentID)
		if err != nil {
			return fmt.Errorf("delete legs: %w", err)
		}
		if deleted != 2 {
			return appErrors.NewInvariantViolation("adjustment legs changed while deleting").
				WithDetails(map[string]interface{}{"deleted_transactions": deleted})
		}

		if err := s.Repository.Delete(ctx, scope.OrganizationId, adjustmentID); err != nil {
			return fmt.Errorf("delete adjustment: %w", err)
		}
		return nil
	})
	if err != nil {
		if isCallerError(err) {
			return err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "adjustment delete rolled back")
		logger.Error().
			Err(err).
			Str("organization_id", scope.OrganizationId.String()).
			Str("adjustment_id", adjustmentID.String()).
			Msg("adjustment delete rolled back")
		return appErrors.ErrAdjustmentFailed.WithError(err)
	}

	s.invalidate(ctx, adj)
	audit.Emit(ctx, s.Audit, audit.Event{
		Entity:         audit.EntityAdjustment,
		EntityId:       adj.Id,
		OrganizationId: scope.OrganizationId,
		ActorId:        scope.ActorId,
		Action:         audit.ActionDeleted,
		Before:         adj,
	})
	return nil
}

func (s *Service) GetAdjustment(ctx context.Context, scope tenant.Scope, adjustmentID ulid.ULID) (*CampaignAdjustment, error) {
	adj, err := s.getAdjustment(ctx, scope, adjustmentID)
	if err != nil {
		return nil, err
	}
	legs, err := s.Entries.ListByAdjustment(ctx, scope.OrganizationId, adjustmentID)
	if err != nil {
		return nil, appErrors.NewDatabaseError(err)
	}
	adj.Legs = legs
	return adj, nil
}

func (s *Service) ListAdjustments(ctx context.Context, scope tenant.Scope, filters *Filters, pagination *pkg.PaginationParams) ([]*CampaignAdjustment, int64, error) {
	if err := scope.Validate(); err != nil {
		return nil, 0, err
	}
	if filters != nil && filters.Type != nil && !filters.Type.IsValid() {
		return nil, 0, appErrors.NewValidationError("type", "must be to_campaign or to_main")
	}
	adjustments, total, err := s.Repository.List(ctx, scope.OrganizationId, filters, pagination)
	if err != nil {
		return nil, 0, appErrors.NewDatabaseError(err)
	}
	return adjustments, total, nil
}

func (s *Service) getAdjustment(ctx context.Context, scope tenant.Scope, adjustmentID ulid.ULID) (*CampaignAdjustment, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	adj, err := s.Repository.GetByID(ctx, scope.OrganizationId, adjustmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrAdjustmentNotFound
		}
		return nil, appErrors.NewDatabaseError(err)
	}
	if !scope.Owns(adj.OrganizationId) {
		return nil, appErrors.ErrAdjustmentNotFound
	}
	return adj, nil
}

// resolveFund loads a fund referenced by an adjustment and checks its role.
func (s *Service) resolveFund(ctx context.Context, scope tenant.Scope, fundID ulid.ULID, field string, want fund.Types) (*fund.Fund, error) {
	f, err := s.Funds.GetFundByID(ctx, scope, fundID)
	if err != nil {
		if appErrors.IsKind(err, appErrors.KindNotFound) {
			return nil, appErrors.NewValidationError(field, "does not reference a fund of this organization")
		}
		return nil, err
	}
	if f.Type != want {
		return nil, appErrors.NewValidationError(field, fmt.Sprintf("must reference a %s fund", want))
	}
	if !f.IsOpen() {
		return nil, appErrors.NewValidationError(field, "references a closed fund")
	}
	return f, nil
}

func (s *Service) invalidate(ctx context.Context, adj *CampaignAdjustment) {
	if s.Balances == nil || adj == nil {
		return
	}
	s.Balances.InvalidateFund(ctx, adj.OrganizationId, adj.SourceFundId())
	s.Balances.InvalidateFund(ctx, adj.OrganizationId, adj.TargetFundId())
}

// buildLegs returns the debit leg on the source fund followed by the credit
// leg on the target fund, each noting the counterpart fund by name.
func buildLegs(adj *CampaignAdjustment, mainFund, campaignFund *fund.Fund) []*transaction.Transaction {
	byID := map[ulid.ULID]*fund.Fund{mainFund.Id: mainFund, campaignFund.Id: campaignFund}
	debitFund, creditFund := byID[adj.SourceFundId()], byID[adj.TargetFundId()]

	purpose := PurposeCampaignAdjustment
	debitNote := "Adjustment to Campaign Fund: " + campaignFund.Name
	creditNote := "Received from Main Fund: " + mainFund.Name
	if adj.Type == ToMain {
		purpose = PurposeCampaignReturn
		debitNote = "Returned to Main Fund: " + mainFund.Name
		creditNote = "Received from Campaign Fund: " + campaignFund.Name
	}

	leg := func(f *fund.Fund, typ transaction.Types, note string) *transaction.Transaction {
		adjustmentID := adj.Id
		return &transaction.Transaction{
			OrganizationId: adj.OrganizationId,
			FundId:         f.Id,
			AdjustmentId:   &adjustmentID,
			Amount:         adj.Amount,
			Type:           typ,
			Purpose:        purpose,
			PaymentMethod:  transaction.PaymentAdjustment,
			Note:           note,
			Status:         transaction.StatusCompleted,
			CreatedBy:      adj.CreatedBy,
			UpdatedBy:      adj.CreatedBy,
			CreatedAt:      adj.CreatedAt,
		}
	}

	return []*transaction.Transaction{
		leg(debitFund, transaction.Debit, debitNote),
		leg(creditFund, transaction.Credit, creditNote),
	}
}

func validateCreate(req *CreateAdjustmentRequest) error {
	if !req.Amount.IsPositive() {
		return appErrors.NewValidationError("amount", "must be greater than zero")
	}
	if !pkg.HasValidScale(req.Amount) {
		return appErrors.NewValidationError("amount", "must have at most 2 decimal places")
	}
	if !req.Type.IsValid() {
		return appErrors.NewValidationError("type", "must be to_campaign or to_main")
	}
	if pkg.IsEmptyULID(req.MainFundId) {
		return appErrors.NewValidationError("main_fund_id", "is required")
	}
	if pkg.IsEmptyULID(req.CampaignFundId) {
		return appErrors.NewValidationError("campaign_fund_id", "is required")
	}
	if req.MainFundId == req.CampaignFundId {
		return appErrors.NewValidationError("campaign_fund_id", "must differ from main_fund_id")
	}
	return nil
}

// isCallerError reports errors that describe the request rather than a failed write.
func isCallerError(err error) bool {
	return appErrors.IsKind(err, appErrors.KindValidation) ||
		appErrors.IsKind(err, appErrors.KindNotFound) ||
		appErrors.IsKind(err, appErrors.KindInvariantViolation) ||
		appErrors.IsKind(err, appErrors.KindForbidden) ||
		appErrors.IsKind(err, appErrors.KindUnauthorized)
}

type CreateAdjustmentRequest struct {
	MainFundId     ulid.ULID
	CampaignFundId ulid.ULID
	Amount         decimal.Decimal
	Type           Types
	Note           string
}
