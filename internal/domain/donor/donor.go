package donor

import (
	"time"

	"github.com/oklog/ulid/v2"
)

var bloodGroups = map[string]struct{}{
	"A+": {}, "A-": {}, "B+": {}, "B-": {}, "AB+": {}, "AB-": {}, "O+": {}, "O-": {},
}

func IsValidBloodGroup(group string) bool {
	_, ok := bloodGroups[group]
	return ok
}

type Donor struct {
	Id             ulid.ULID  `json:"id"`
	OrganizationId ulid.ULID  `json:"organizationId"`
	Name           string     `json:"name"`
	Email          string     `json:"email,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	Address        string     `json:"address,omitempty"`
	BloodGroup     string     `json:"bloodGroup,omitempty"`
	CreatedBy      *ulid.ULID `json:"createdBy,omitempty"`
	UpdatedBy      *ulid.ULID `json:"updatedBy,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type Filters struct {
	Search     string
	BloodGroup string
}
