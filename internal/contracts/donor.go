package contracts

import "github.com/shakilmiahcse/social-org-finance/internal/domain/donor"

type DonorCreateRequest struct {
	Name       string `json:"name" binding:"required,max=150"`
	Email      string `json:"email" binding:"omitempty,email,max=150"`
	Phone      string `json:"phone" binding:"omitempty,max=30"`
	Address    string `json:"address" binding:"omitempty,max=255"`
	BloodGroup string `json:"blood_group" binding:"omitempty,max=3"`
}

func (r *DonorCreateRequest) ToDomain() *donor.CreateDonorRequest {
	return &donor.CreateDonorRequest{
		Name:       r.Name,
		Email:      r.Email,
		Phone:      r.Phone,
		Address:    r.Address,
		BloodGroup: r.BloodGroup,
	}
}

type DonorUpdateRequest struct {
	Name       *string `json:"name" binding:"omitempty,max=150"`
	Email      *string `json:"email" binding:"omitempty,max=150"`
	Phone      *string `json:"phone" binding:"omitempty,max=30"`
	Address    *string `json:"address" binding:"omitempty,max=255"`
	BloodGroup *string `json:"blood_group" binding:"omitempty,max=3"`
}

func (r *DonorUpdateRequest) ToDomain() *donor.UpdateDonorRequest {
	return &donor.UpdateDonorRequest{
		Name:       r.Name,
		Email:      r.Email,
		Phone:      r.Phone,
		Address:    r.Address,
		BloodGroup: r.BloodGroup,
	}
}

type DonorResponse struct {
	Message string       `json:"message,omitempty"`
	Donor   *donor.Donor `json:"donor"`
}
