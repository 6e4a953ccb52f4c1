package infrastructure

import (
	"context"
	"time"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/fund"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg/query"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FundRepository struct {
	DB *gorm.DB
}

var _ fund.Repository = (*FundRepository)(nil)

type fundDB struct {
	Id             string     `gorm:"type:varchar(26);primaryKey;column:id"`
	OrganizationId string     `gorm:"type:varchar(26);index;not null;column:organization_id"`
	Name           string     `gorm:"type:varchar(255);not null;column:name"`
	Description    string     `gorm:"type:text;column:description"`
	Type           string     `gorm:"type:varchar(20);not null;default:'campaign';column:type"`
	ClosedAt       *time.Time `gorm:"column:closed_at"`
	ClosedBy       *string    `gorm:"type:varchar(26);column:closed_by"`
	ClosedNote     string     `gorm:"type:text;column:closed_note"`
	CreatedBy      *string    `gorm:"type:varchar(26);column:created_by"`
	UpdatedBy      *string    `gorm:"type:varchar(26);column:updated_by"`
	CreatedAt      time.Time  `gorm:"not null;column:created_at"`
	UpdatedAt      time.Time  `gorm:"not null;column:updated_at"`
}

func (fundDB) TableName() string {
	return "funds"
}

func toDomainFund(f *fundDB) (*fund.Fund, error) {
	id, err := pkg.ParseULID(f.Id)
	if err != nil {
		return nil, err
	}
	orgID, err := pkg.ParseULID(f.OrganizationId)
	if err != nil {
		return nil, err
	}
	closedBy, err := pkg.ULIDPtrFromString(f.ClosedBy)
	if err != nil {
		return nil, err
	}
	createdBy, err := pkg.ULIDPtrFromString(f.CreatedBy)
	if err != nil {
		return nil, err
	}
	updatedBy, err := pkg.ULIDPtrFromString(f.UpdatedBy)
	if err != nil {
		return nil, err
	}
	return &fund.Fund{
		Id:             id,
		OrganizationId: orgID,
		Name:           f.Name,
		Description:    f.Description,
		Type:           fund.Types(f.Type),
		ClosedAt:       f.ClosedAt,
		ClosedBy:       closedBy,
		ClosedNote:     f.ClosedNote,
		CreatedBy:      createdBy,
		UpdatedBy:      updatedBy,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}, nil
}

func toDBFund(f *fund.Fund) *fundDB {
	return &fundDB{
		Id:             f.Id.String(),
		OrganizationId: f.OrganizationId.String(),
		Name:           f.Name,
		Description:    f.Description,
		Type:           string(f.Type),
		ClosedAt:       f.ClosedAt,
		ClosedBy:       pkg.ULIDPtrString(f.ClosedBy),
		ClosedNote:     f.ClosedNote,
		CreatedBy:      pkg.ULIDPtrString(f.CreatedBy),
		UpdatedBy:      pkg.ULIDPtrString(f.UpdatedBy),
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

func (r *FundRepository) Create(ctx context.Context, f *fund.Fund) error {
	return conn(ctx, r.DB).Create(toDBFund(f)).Error
}

func (r *FundRepository) UpdateDetails(ctx context.Context, f *fund.Fund) error {
	return r.updateColumns(ctx, f, "name", "description", "updated_by", "updated_at")
}

// UpdateClosure also writes cleared values, so a reopen resets closed_at to NULL.
func (r *FundRepository) UpdateClosure(ctx context.Context, f *fund.Fund) error {
	return r.updateColumns(ctx, f, "closed_at", "closed_by", "closed_note", "updated_by", "updated_at")
}

func (r *FundRepository) Promote(ctx context.Context, f *fund.Fund) error {
	return conn(ctx, r.DB).Model(&fundDB{}).
		Where("id = ? AND organization_id = ? AND closed_at IS NULL", f.Id.String(), f.OrganizationId.String()).
		Updates(map[string]interface{}{
			"type":       string(fund.TypeMain),
			"updated_by": pkg.ULIDPtrString(f.UpdatedBy),
			"updated_at": f.UpdatedAt,
		}).Error
}

func (r *FundRepository) updateColumns(ctx context.Context, f *fund.Fund, columns ...string) error {
	row := toDBFund(f)
	return conn(ctx, r.DB).Model(&fundDB{}).
		Where("id = ? AND organization_id = ?", row.Id, row.OrganizationId).
		Select(columns).
		Updates(row).Error
}

func (r *FundRepository) Delete(ctx context.Context, organizationID, fundID ulid.ULID) error {
	return conn(ctx, r.DB).
		Where("id = ? AND organization_id = ?", fundID.String(), organizationID.String()).
		Delete(&fundDB{}).Error
}

func (r *FundRepository) GetByID(ctx context.Context, organizationID, fundID ulid.ULID) (*fund.Fund, error) {
	row, err := query.New[fundDB](conn(ctx, r.DB), "funds").
		Context(ctx).
		Where("id = ? AND organization_id = ?", fundID.String(), organizationID.String()).
		First()
	if err != nil {
		return nil, err
	}
	return toDomainFund(row)
}

func (r *FundRepository) GetByIDForUpdate(ctx context.Context, organizationID, fundID ulid.ULID) (*fund.Fund, error) {
	var row fundDB
	err := conn(ctx, r.DB).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND organization_id = ?", fundID.String(), organizationID.String()).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return toDomainFund(&row)
}

func (r *FundRepository) List(ctx context.Context, organizationID ulid.ULID, filters *fund.Filters, pagination *pkg.PaginationParams) ([]*fund.Fund, int64, error) {
	q := query.New[fundDB](conn(ctx, r.DB), "funds").
		Context(ctx).
		ForOrganization(organizationID).
		Order("name ASC, id ASC")

	if filters != nil {
		q.WhereIf(filters.Type != nil, "type = ?", typeOrEmpty(filters.Type)).
			WhereIf(filters.Status != nil && *filters.Status == fund.StatusOpen, "closed_at IS NULL").
			WhereIf(filters.Status != nil && *filters.Status == fund.StatusClosed, "closed_at IS NOT NULL").
			WhereIf(filters.Search != "", "name ILIKE ?", "%"+filters.Search+"%")
	}

	return query.Paginate(q, pagination, toDomainFund)
}

func (r *FundRepository) ListAll(ctx context.Context, organizationID ulid.ULID) ([]*fund.Fund, error) {
	q := query.New[fundDB](conn(ctx, r.DB), "funds").
		Context(ctx).
		ForOrganization(organizationID).
		Order("name ASC, id ASC")
	return query.All(q, toDomainFund)
}

func (r *FundRepository) GetOpenMain(ctx context.Context, organizationID ulid.ULID) (*fund.Fund, error) {
	row, err := r.openMain(ctx, organizationID).First()
	if err != nil {
		return nil, err
	}
	return toDomainFund(row)
}

func (r *FundRepository) CountOpenMain(ctx context.Context, organizationID ulid.ULID) (int64, error) {
	return r.openMain(ctx, organizationID).Count()
}

func (r *FundRepository) DemoteOpenMain(ctx context.Context, organizationID ulid.ULID, actorID *ulid.ULID) error {
	return conn(ctx, r.DB).Model(&fundDB{}).
		Where("organization_id = ? AND type = ? AND closed_at IS NULL", organizationID.String(), string(fund.TypeMain)).
		Updates(map[string]interface{}{
			"type":       string(fund.TypeCampaign),
			"updated_by": pkg.ULIDPtrString(actorID),
			"updated_at": pkg.Now(),
		}).Error
}

func (r *FundRepository) openMain(ctx context.Context, organizationID ulid.ULID) *query.Query[fundDB] {
	return query.New[fundDB](conn(ctx, r.DB), "funds").
		Context(ctx).
		Where("organization_id = ? AND type = ? AND closed_at IS NULL", organizationID.String(), string(fund.TypeMain))
}

func typeOrEmpty(t *fund.Types) string {
	if t == nil {
		return ""
	}
	return string(*t)
}
