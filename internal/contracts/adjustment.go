package contracts

import (
	"github.com/shakilmiahcse/social-org-finance/internal/domain/adjustment"

	"github.com/shopspring/decimal"
)

type AdjustmentCreateRequest struct {
	MainFundId     string          `json:"main_fund_id" binding:"required"`
	CampaignFundId string          `json:"campaign_fund_id" binding:"required"`
	Amount         decimal.Decimal `json:"amount"`
	Type           string          `json:"type" binding:"required,oneof=to_campaign to_main"`
	Note           string          `json:"note" binding:"omitempty,max=1000"`
}

type AdjustmentResponse struct {
	Message    string                         `json:"message,omitempty"`
	Adjustment *adjustment.CampaignAdjustment `json:"adjustment"`
}
