package transaction

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

type Types string

const (
	Credit Types = "credit"
	Debit  Types = "debit"
)

func (t Types) IsValid() bool {
	switch t {
	case Credit, Debit:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "cash"
	PaymentBkash      PaymentMethod = "bkash"
	PaymentCard       PaymentMethod = "card"
	PaymentBank       PaymentMethod = "bank"
	PaymentNagad      PaymentMethod = "nagad"
	PaymentRocket     PaymentMethod = "rocket"
	PaymentAdjustment PaymentMethod = "adjustment"
)

func (m PaymentMethod) IsValid() bool {
	return m == PaymentAdjustment || m.IsManual()
}

// IsManual reports whether an operator may record entries with this method.
// "adjustment" is reserved for entries posted by the adjustment engine.
func (m PaymentMethod) IsManual() bool {
	switch m {
	case PaymentCash, PaymentBkash, PaymentCard, PaymentBank, PaymentNagad, PaymentRocket:
		return true
	}
	return false
}

// Transaction is a single ledger posting. Amount is always a positive
// magnitude; the direction comes from Type.
type Transaction struct {
	Id             ulid.ULID       `json:"id"`
	OrganizationId ulid.ULID       `json:"organizationId"`
	TxnId          string          `json:"txnId"`
	DonorId        *ulid.ULID      `json:"donorId,omitempty"`
	FundId         ulid.ULID       `json:"fundId"`
	AdjustmentId   *ulid.ULID      `json:"adjustmentId,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Type           Types           `json:"type"`
	Purpose        string          `json:"purpose,omitempty"`
	PaymentMethod  PaymentMethod   `json:"paymentMethod"`
	Reference      string          `json:"reference,omitempty"`
	Note           string          `json:"note,omitempty"`
	Status         Status          `json:"status"`
	CreatedBy      *ulid.ULID      `json:"createdBy,omitempty"`
	UpdatedBy      *ulid.ULID      `json:"updatedBy,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// SignedAmount is the entry's effect on its fund balance.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == Debit {
		return t.Amount.Neg()
	}
	return t.Amount
}

func (t *Transaction) IsAdjustmentLeg() bool {
	return t.AdjustmentId != nil
}

func (t *Transaction) IsCompleted() bool {
	return t.Status == StatusCompleted
}

type Filters struct {
	FundId        *ulid.ULID
	DonorId       *ulid.ULID
	AdjustmentId  *ulid.ULID
	CreatedBy     *ulid.ULID
	DateFrom      *time.Time
	DateTo        *time.Time
	Types         []Types
	Statuses      []Status
	PaymentMethod *PaymentMethod
}

// Cursor marks the last entry seen when walking entries newest first.
type Cursor struct {
	CreatedAt time.Time
	Id        ulid.ULID
}

// Receipt is the read-only view handed to receipt renderers.
type Receipt struct {
	Transaction     *Transaction `json:"transaction"`
	FundName        string       `json:"fundName"`
	DonorName       string       `json:"donorName,omitempty"`
	DonorPhone      string       `json:"donorPhone,omitempty"`
	Organization    string       `json:"organization"`
	Currency        string       `json:"currency"`
	FormattedAmount string       `json:"formattedAmount"`
}
