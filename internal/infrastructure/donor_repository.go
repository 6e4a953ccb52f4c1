package infrastructure

import (
	"context"
	"time"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/donor"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg/query"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DonorRepository struct {
	DB *gorm.DB
}

var _ donor.Repository = (*DonorRepository)(nil)

type donorDB struct {
	Id             string    `gorm:"type:varchar(26);primaryKey;column:id"`
	OrganizationId string    `gorm:"type:varchar(26);index;not null;column:organization_id"`
	Name           string    `gorm:"type:varchar(255);not null;column:name"`
	Email          string    `gorm:"type:varchar(255);column:email"`
	Phone          string    `gorm:"type:varchar(50);column:phone"`
	Address        string    `gorm:"type:text;column:address"`
	BloodGroup     string    `gorm:"type:varchar(3);column:blood_group"`
	CreatedBy      *string   `gorm:"type:varchar(26);column:created_by"`
	UpdatedBy      *string   `gorm:"type:varchar(26);column:updated_by"`
	CreatedAt      time.Time `gorm:"not null;column:created_at"`
	UpdatedAt      time.Time `gorm:"not null;column:updated_at"`
}

func (donorDB) TableName() string {
	return "donors"
}

func toDomainDonor(d *donorDB) (*donor.Donor, error) {
	id, err := pkg.ParseULID(d.Id)
	if err != nil {
		return nil, err
	}
	orgID, err := pkg.ParseULID(d.OrganizationId)
	if err != nil {
		return nil, err
	}
	createdBy, err := pkg.ULIDPtrFromString(d.CreatedBy)
	if err != nil {
		return nil, err
	}
	updatedBy, err := pkg.ULIDPtrFromString(d.UpdatedBy)
	if err != nil {
		return nil, err
	}
	return &donor.Donor{
		Id:             id,
		OrganizationId: orgID,
		Name:           d.Name,
		Email:          d.Email,
		Phone:          d.Phone,
		Address:        d.Address,
		BloodGroup:     d.BloodGroup,
		CreatedBy:      createdBy,
		UpdatedBy:      updatedBy,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}, nil
}

func toDBDonor(d *donor.Donor) *donorDB {
	return &donorDB{
		Id:             d.Id.String(),
		OrganizationId: d.OrganizationId.String(),
		Name:           d.Name,
		Email:          d.Email,
		Phone:          d.Phone,
		Address:        d.Address,
		BloodGroup:     d.BloodGroup,
		CreatedBy:      pkg.ULIDPtrString(d.CreatedBy),
		UpdatedBy:      pkg.ULIDPtrString(d.UpdatedBy),
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func (r *DonorRepository) Create(ctx context.Context, d *donor.Donor) error {
	return conn(ctx, r.DB).Create(toDBDonor(d)).Error
}

func (r *DonorRepository) Update(ctx context.Context, d *donor.Donor) error {
	row := toDBDonor(d)
	return conn(ctx, r.DB).Model(&donorDB{}).
		Where("id = ? AND organization_id = ?", row.Id, row.OrganizationId).
		Select("*").
		Omit("id", "organization_id", "created_by", "created_at").
		Updates(row).Error
}

func (r *DonorRepository) Delete(ctx context.Context, organizationID, donorID ulid.ULID) error {
	return conn(ctx, r.DB).
		Where("id = ? AND organization_id = ?", donorID.String(), organizationID.String()).
		Delete(&donorDB{}).Error
}

func (r *DonorRepository) GetByID(ctx context.Context, organizationID, donorID ulid.ULID) (*donor.Donor, error) {
	row, err := query.New[donorDB](conn(ctx, r.DB), "donors").
		Context(ctx).
		Where("id = ? AND organization_id = ?", donorID.String(), organizationID.String()).
		First()
	if err != nil {
		return nil, err
	}
	return toDomainDonor(row)
}

func (r *DonorRepository) GetByIDForUpdate(ctx context.Context, organizationID, donorID ulid.ULID) (*donor.Donor, error) {
	var row donorDB
	err := conn(ctx, r.DB).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND organization_id = ?", donorID.String(), organizationID.String()).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return toDomainDonor(&row)
}

func (r *DonorRepository) GetByEmail(ctx context.Context, organizationID ulid.ULID, email string) (*donor.Donor, error) {
	row, err := query.New[donorDB](conn(ctx, r.DB), "donors").
		Context(ctx).
		Where("organization_id = ? AND email = ?", organizationID.String(), email).
		First()
	if err != nil {
		return nil, err
	}
	return toDomainDonor(row)
}

func (r *DonorRepository) List(ctx context.Context, organizationID ulid.ULID, filters *donor.Filters, pagination *pkg.PaginationParams) ([]*donor.Donor, int64, error) {
	q := query.New[donorDB](conn(ctx, r.DB), "donors").
		Context(ctx).
		ForOrganization(organizationID).
		Order("name ASC, id ASC")

	if filters != nil {
		pattern := "%" + filters.Search + "%"
		q.WhereIf(filters.BloodGroup != "", "blood_group = ?", filters.BloodGroup).
			WhereIf(filters.Search != "", "(name ILIKE ? OR email ILIKE ? OR phone ILIKE ?)", pattern, pattern, pattern)
	}

	return query.Paginate(q, pagination, toDomainDonor)
}
