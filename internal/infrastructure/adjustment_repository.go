package infrastructure

import (
	"context"
	"time"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/adjustment"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg/query"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AdjustmentRepository struct {
	DB *gorm.DB
}

var _ adjustment.Repository = (*AdjustmentRepository)(nil)

type adjustmentDB struct {
	Id             string          `gorm:"type:varchar(26);primaryKey;column:id"`
	OrganizationId string          `gorm:"type:varchar(26);index;not null;column:organization_id"`
	CampaignFundId string          `gorm:"type:varchar(26);index;not null;column:campaign_fund_id"`
	MainFundId     string          `gorm:"type:varchar(26);index;not null;column:main_fund_id"`
	Amount         decimal.Decimal `gorm:"type:numeric(15,2);not null;column:amount"`
	Type           string          `gorm:"type:varchar(20);not null;column:type"`
	Note           string          `gorm:"type:text;column:note"`
	CreatedBy      *string         `gorm:"type:varchar(26);column:created_by"`
	UpdatedBy      *string         `gorm:"type:varchar(26);column:updated_by"`
	CreatedAt      time.Time       `gorm:"not null;column:created_at"`
	UpdatedAt      time.Time       `gorm:"not null;column:updated_at"`
}

func (adjustmentDB) TableName() string {
	return "campaign_adjustments"
}

func toDomainAdjustment(a *adjustmentDB) (*adjustment.CampaignAdjustment, error) {
	id, err := pkg.ParseULID(a.Id)
	if err != nil {
		return nil, err
	}
	orgID, err := pkg.ParseULID(a.OrganizationId)
	if err != nil {
		return nil, err
	}
	campaignID, err := pkg.ParseULID(a.CampaignFundId)
	if err != nil {
		return nil, err
	}
	mainID, err := pkg.ParseULID(a.MainFundId)
	if err != nil {
		return nil, err
	}
	createdBy, err := pkg.ULIDPtrFromString(a.CreatedBy)
	if err != nil {
		return nil, err
	}
	updatedBy, err := pkg.ULIDPtrFromString(a.UpdatedBy)
	if err != nil {
		return nil, err
	}
	return &adjustment.CampaignAdjustment{
		Id:             id,
		OrganizationId: orgID,
		CampaignFundId: campaignID,
		MainFundId:     mainID,
		Amount:         a.Amount,
		Type:           adjustment.Types(a.Type),
		Note:           a.Note,
		CreatedBy:      createdBy,
		UpdatedBy:      updatedBy,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}, nil
}

func toDBAdjustment(a *adjustment.CampaignAdjustment) *adjustmentDB {
	return &adjustmentDB{
		Id:             a.Id.String(),
		OrganizationId: a.OrganizationId.String(),
		CampaignFundId: a.CampaignFundId.String(),
		MainFundId:     a.MainFundId.String(),
		Amount:         a.Amount,
		Type:           string(a.Type),
		Note:           a.Note,
		CreatedBy:      pkg.ULIDPtrString(a.CreatedBy),
		UpdatedBy:      pkg.ULIDPtrString(a.UpdatedBy),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func (r *AdjustmentRepository) Create(ctx context.Context, a *adjustment.CampaignAdjustment) error {
	return conn(ctx, r.DB).Create(toDBAdjustment(a)).Error
}

func (r *AdjustmentRepository) Delete(ctx context.Context, organizationID, adjustmentID ulid.ULID) error {
	return conn(ctx, r.DB).
		Where("id = ? AND organization_id = ?", adjustmentID.String(), organizationID.String()).
		Delete(&adjustmentDB{}).Error
}

func (r *AdjustmentRepository) GetByID(ctx context.Context, organizationID, adjustmentID ulid.ULID) (*adjustment.CampaignAdjustment, error) {
	row, err := query.New[adjustmentDB](conn(ctx, r.DB), "campaign_adjustments").
		Context(ctx).
		Where("id = ? AND organization_id = ?", adjustmentID.String(), organizationID.String()).
		First()
	if err != nil {
		return nil, err
	}
	return toDomainAdjustment(row)
}

func (r *AdjustmentRepository) List(ctx context.Context, organizationID ulid.ULID, filters *adjustment.Filters, pagination *pkg.PaginationParams) ([]*adjustment.CampaignAdjustment, int64, error) {
	q := query.New[adjustmentDB](conn(ctx, r.DB), "campaign_adjustments").
		Context(ctx).
		ForOrganization(organizationID).
		Order("created_at DESC, id DESC")

	if filters != nil {
		fundID := ulidArg(filters.FundId)
		q.WhereIf(filters.FundId != nil, "(main_fund_id = ? OR campaign_fund_id = ?)", fundID, fundID)
		if filters.Type != nil {
			q.Where("type = ?", string(*filters.Type))
		}
	}

	return query.Paginate(q, pagination, toDomainAdjustment)
}
