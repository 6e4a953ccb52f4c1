package contracts

import (
	"github.com/shakilmiahcse/social-org-finance/internal/domain/balance"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/fund"

	"github.com/shopspring/decimal"
)

type FundCreateRequest struct {
	Name        string `json:"name" binding:"required,max=150"`
	Description string `json:"description" binding:"omitempty,max=1000"`
	Type        string `json:"type" binding:"omitempty,oneof=main campaign"`
}

func (r *FundCreateRequest) ToDomain() *fund.CreateFundRequest {
	return &fund.CreateFundRequest{
		Name:        r.Name,
		Description: r.Description,
		Type:        fund.Types(r.Type),
	}
}

type FundUpdateRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=150"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
}

func (r *FundUpdateRequest) ToDomain() *fund.UpdateFundRequest {
	return &fund.UpdateFundRequest{Name: r.Name, Description: r.Description}
}

type FundCloseRequest struct {
	Note string `json:"note" binding:"omitempty,max=500"`
}

type FundResponse struct {
	Message string     `json:"message,omitempty"`
	Fund    *fund.Fund `json:"fund"`
}

type FundBalanceResponse struct {
	FundId  string          `json:"fundId"`
	Balance decimal.Decimal `json:"balance"`
	Totals  balance.Totals  `json:"totals"`
}

type FundBalancesResponse struct {
	Funds []balance.FundBalance `json:"funds"`
	Total decimal.Decimal       `json:"total"`
}
