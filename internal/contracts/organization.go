package contracts

import "github.com/shakilmiahcse/social-org-finance/internal/domain/organization"

type OrganizationCreateRequest struct {
	Name     string `json:"name" binding:"required,max=150"`
	Email    string `json:"email" binding:"required,email,max=150"`
	Phone    string `json:"phone" binding:"omitempty,max=30"`
	Address  string `json:"address" binding:"omitempty,max=255"`
	Website  string `json:"website" binding:"omitempty,url,max=255"`
	Slogan   string `json:"slogan" binding:"omitempty,max=255"`
	Timezone string `json:"timezone" binding:"omitempty,max=64"`
	Currency string `json:"currency" binding:"omitempty,len=3"`
}

func (r *OrganizationCreateRequest) ToDomain() *organization.CreateOrganizationRequest {
	return &organization.CreateOrganizationRequest{
		Name:     r.Name,
		Email:    r.Email,
		Phone:    r.Phone,
		Address:  r.Address,
		Website:  r.Website,
		Slogan:   r.Slogan,
		Timezone: r.Timezone,
		Currency: r.Currency,
	}
}

type OrganizationUpdateRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=150"`
	Phone    *string `json:"phone" binding:"omitempty,max=30"`
	Address  *string `json:"address" binding:"omitempty,max=255"`
	Website  *string `json:"website" binding:"omitempty,max=255"`
	Slogan   *string `json:"slogan" binding:"omitempty,max=255"`
	Timezone *string `json:"timezone" binding:"omitempty,max=64"`
	Currency *string `json:"currency" binding:"omitempty,len=3"`
	IsActive *bool   `json:"is_active" binding:"omitempty"`
}

func (r *OrganizationUpdateRequest) ToDomain() *organization.UpdateOrganizationRequest {
	return &organization.UpdateOrganizationRequest{
		Name:     r.Name,
		Phone:    r.Phone,
		Address:  r.Address,
		Website:  r.Website,
		Slogan:   r.Slogan,
		Timezone: r.Timezone,
		Currency: r.Currency,
		IsActive: r.IsActive,
	}
}

type OrganizationResponse struct {
	Message      string                     `json:"message,omitempty"`
	Organization *organization.Organization `json:"organization"`
}
