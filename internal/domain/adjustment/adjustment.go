package adjustment

import (
	"time"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/transaction"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

type Types string

const (
	ToCampaign Types = "to_campaign"
	ToMain     Types = "to_main"
)

func (t Types) IsValid() bool {
	switch t {
	case ToCampaign, ToMain:
		return true
	}
	return false
}

const (
	PurposeCampaignAdjustment = "Campaign Adjustment"
	PurposeCampaignReturn     = "Campaign Return"
)

// CampaignAdjustment moves money between the main fund and a campaign fund.
// It owns exactly two transactions, a debit and a credit of the same amount.
type CampaignAdjustment struct {
	Id             ulid.ULID                  `json:"id"`
	OrganizationId ulid.ULID                  `json:"organizationId"`
	CampaignFundId ulid.ULID                  `json:"campaignFundId"`
	MainFundId     ulid.ULID                  `json:"mainFundId"`
	Amount         decimal.Decimal            `json:"amount"`
	Type           Types                      `json:"type"`
	Note           string                     `json:"note,omitempty"`
	CreatedBy      *ulid.ULID                 `json:"createdBy,omitempty"`
	UpdatedBy      *ulid.ULID                 `json:"updatedBy,omitempty"`
	CreatedAt      time.Time                  `json:"createdAt"`
	UpdatedAt      time.Time                  `json:"updatedAt"`
	Legs           []*transaction.Transaction `json:"legs,omitempty"`
}

// SourceFundId is the fund debited by the adjustment.
func (a *CampaignAdjustment) SourceFundId() ulid.ULID {
	if a.Type == ToMain {
		return a.CampaignFundId
	}
	return a.MainFundId
}

// TargetFundId is the fund credited by the adjustment.
func (a *CampaignAdjustment) TargetFundId() ulid.ULID {
	if a.Type == ToMain {
		return a.MainFundId
	}
	return a.CampaignFundId
}

type Filters struct {
	FundId *ulid.ULID
	Type   *Types
}
