package contracts

import (
	"github.com/shakilmiahcse/social-org-finance/internal/domain/transaction"

	"github.com/shopspring/decimal"
)

type TransactionCreateRequest struct {
	FundId        string          `json:"fund_id" binding:"required"`
	DonorId       *string         `json:"donor_id" binding:"omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Type          string          `json:"type" binding:"omitempty,oneof=credit debit"`
	PaymentMethod string          `json:"payment_method" binding:"required"`
	Purpose       string          `json:"purpose" binding:"omitempty,max=255"`
	Reference     string          `json:"reference" binding:"omitempty,max=255"`
	Note          string          `json:"note" binding:"omitempty,max=1000"`
	Status        string          `json:"status" binding:"omitempty,oneof=pending completed canceled"`
}

type TransactionUpdateRequest struct {
	FundId        *string          `json:"fund_id" binding:"omitempty"`
	DonorId       *string          `json:"donor_id" binding:"omitempty"`
	ClearDonor    bool             `json:"clear_donor"`
	Amount        *decimal.Decimal `json:"amount"`
	Type          *string          `json:"type" binding:"omitempty,oneof=credit debit"`
	PaymentMethod *string          `json:"payment_method" binding:"omitempty"`
	Purpose       *string          `json:"purpose" binding:"omitempty,max=255"`
	Reference     *string          `json:"reference" binding:"omitempty,max=255"`
	Note          *string          `json:"note" binding:"omitempty,max=1000"`
	Status        *string          `json:"status" binding:"omitempty,oneof=pending completed canceled"`
}

type TransactionResponse struct {
	Message     string                   `json:"message,omitempty"`
	Transaction *transaction.Transaction `json:"transaction"`
}

type ReceiptResponse struct {
	Receipt *transaction.Receipt `json:"receipt"`
}
