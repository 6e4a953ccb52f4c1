package infrastructure

import (
	"context"
	"time"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/organization"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

type OrganizationRepository struct {
	DB *gorm.DB
}

var _ organization.Repository = (*OrganizationRepository)(nil)

type organizationDB struct {
	Id        string    `gorm:"type:varchar(26);primaryKey;column:id"`
	Name      string    `gorm:"type:varchar(255);not null;column:name"`
	Email     string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_organizations_email;column:email"`
	Phone     string    `gorm:"type:varchar(50);column:phone"`
	Address   string    `gorm:"type:text;column:address"`
	Website   string    `gorm:"type:varchar(255);column:website"`
	Slogan    string    `gorm:"type:varchar(255);column:slogan"`
	Timezone  string    `gorm:"type:varchar(64);not null;default:'UTC';column:timezone"`
	Currency  string    `gorm:"type:varchar(3);not null;column:currency"`
	IsActive  bool      `gorm:"not null;default:true;column:is_active"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at"`
}

func (organizationDB) TableName() string {
	return "organizations"
}

func toDomainOrganization(o *organizationDB) (*organization.Organization, error) {
	id, err := pkg.ParseULID(o.Id)
	if err != nil {
		return nil, err
	}
	return &organization.Organization{
		Id:        id,
		Name:      o.Name,
		Email:     o.Email,
		Phone:     o.Phone,
		Address:   o.Address,
		Website:   o.Website,
		Slogan:    o.Slogan,
		Timezone:  o.Timezone,
		Currency:  o.Currency,
		IsActive:  o.IsActive,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}, nil
}

func toDBOrganization(o *organization.Organization) *organizationDB {
	return &organizationDB{
		Id:        o.Id.String(),
		Name:      o.Name,
		Email:     o.Email,
		Phone:     o.Phone,
		Address:   o.Address,
		Website:   o.Website,
		Slogan:    o.Slogan,
		Timezone:  o.Timezone,
		Currency:  o.Currency,
		IsActive:  o.IsActive,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func (r *OrganizationRepository) Create(ctx context.Context, org *organization.Organization) error {
	return conn(ctx, r.DB).Create(toDBOrganization(org)).Error
}

func (r *OrganizationRepository) Update(ctx context.Context, org *organization.Organization) error {
	row := toDBOrganization(org)
	return conn(ctx, r.DB).Model(&organizationDB{}).
		Where("id = ?", row.Id).
		Select("*").
		Omit("id", "created_at").
		Updates(row).Error
}

func (r *OrganizationRepository) GetByID(ctx context.Context, organizationID ulid.ULID) (*organization.Organization, error) {
	var row organizationDB
	if err := conn(ctx, r.DB).Where("id = ?", organizationID.String()).First(&row).Error; err != nil {
		return nil, err
	}
	return toDomainOrganization(&row)
}

func (r *OrganizationRepository) GetByEmail(ctx context.Context, email string) (*organization.Organization, error) {
	var row organizationDB
	if err := conn(ctx, r.DB).Where("email = ?", email).First(&row).Error; err != nil {
		return nil, err
	}
	return toDomainOrganization(&row)
}

func (r *OrganizationRepository) IsActive(ctx context.Context, organizationID ulid.ULID) (bool, error) {
	var row organizationDB
	err := conn(ctx, r.DB).
		Select("id", "is_active").
		Where("id = ?", organizationID.String()).
		First(&row).Error
	if err != nil {
		return false, err
	}
	return row.IsActive, nil
}
