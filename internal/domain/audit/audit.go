package audit

import (
	"context"
	"time"

	"github.com/shakilmiahcse/social-org-finance/internal/logger"

	"github.com/oklog/ulid/v2"
)

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

const (
	EntityOrganization = "organization"
	EntityFund         = "fund"
	EntityDonor        = "donor"
	EntityTransaction  = "transaction"
	EntityAdjustment   = "campaign_adjustment"
)

// Event carries the before and after state of a mutated entity. Before is nil
// on creation and After is nil on deletion.
type Event struct {
	Entity         string      `json:"entity"`
	EntityId       ulid.ULID   `json:"entity_id"`
	OrganizationId ulid.ULID   `json:"organization_id"`
	ActorId        ulid.ULID   `json:"actor_id"`
	Action         Action      `json:"action"`
	Before         interface{} `json:"before,omitempty"`
	After          interface{} `json:"after,omitempty"`
	OccurredAt     time.Time   `json:"occurred_at"`
}

// Recorder observes ledger mutations. Implementations handle their own
// failures; a recorder never fails the operation it observes.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

type Recorders []Recorder

func (rs Recorders) Record(ctx context.Context, event Event) {
	for _, r := range rs {
		if r != nil {
			r.Record(ctx, event)
		}
	}
}

type LogRecorder struct{}

func (LogRecorder) Record(_ context.Context, event Event) {
	logger.Info().
		Str("entity", event.Entity).
		Str("entity_id", event.EntityId.String()).
		Str("organization_id", event.OrganizationId.String()).
		Str("actor_id", event.ActorId.String()).
		Str("action", string(event.Action)).
		Msg("audit_event")
}

// Emit stamps the event time and forwards it to r when r is configured.
func Emit(ctx context.Context, r Recorder, event Event) {
	if r == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	r.Record(ctx, event)
}
