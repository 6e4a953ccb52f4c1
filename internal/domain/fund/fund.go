package fund

import (
	"time"

	"github.com/oklog/ulid/v2"
)

type Types string

const (
	TypeMain     Types = "main"
	TypeCampaign Types = "campaign"
)

func (t Types) IsValid() bool {
	switch t {
	case TypeMain, TypeCampaign:
		return true
	}
	return false
}

// Fund is a named pool of money. Its balance is always derived from its
// completed transactions and is never stored on the fund itself.
type Fund struct {
	Id             ulid.ULID  `json:"id"`
	OrganizationId ulid.ULID  `json:"organizationId"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	Type           Types      `json:"type"`
	ClosedAt       *time.Time `json:"closedAt,omitempty"`
	ClosedBy       *ulid.ULID `json:"closedBy,omitempty"`
	ClosedNote     string     `json:"closedNote,omitempty"`
	CreatedBy      *ulid.ULID `json:"createdBy,omitempty"`
	UpdatedBy      *ulid.ULID `json:"updatedBy,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (f *Fund) IsOpen() bool {
	return f.ClosedAt == nil
}

func (f *Fund) IsOpenMain() bool {
	return f.Type == TypeMain && f.IsOpen()
}

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

type Filters struct {
	Type   *Types
	Status *Status
	Search string
}
