package organization

import (
	"time"

	"github.com/oklog/ulid/v2"
)

const DefaultCurrency = "BDT"

type Organization struct {
	Id        ulid.ULID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Website   string    `json:"website,omitempty"`
	Slogan    string    `json:"slogan,omitempty"`
	Timezone  string    `json:"timezone"`
	Currency  string    `json:"currency"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
