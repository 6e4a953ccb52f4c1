package contracts

import "github.com/shakilmiahcse/social-org-finance/internal/domain/balance"

type SummaryResponse struct {
	Summary *balance.Summary `json:"summary"`
}

type TopDonorsResponse struct {
	Donors []balance.DonorTotal `json:"donors"`
}

type MonthlyComparisonResponse struct {
	Comparison *balance.MonthlyComparison `json:"comparison"`
}

type DonationDistributionResponse struct {
	Distribution []balance.DistributionBucket `json:"distribution"`
}
