package infrastructure

import (
	"testing"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/audit"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/fund"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutingKey(t *testing.T) {
	key := routingKey(audit.Event{Entity: audit.EntityFund, Action: audit.ActionDeleted})
	assert.Equal(t, "audit.fund.deleted", key)
}

func TestSnapshotOf(t *testing.T) {
	assert.Nil(t, snapshotOf(nil))

	f := &fund.Fund{Id: pkg.GenerateULIDObject(), Name: "General", Type: fund.TypeMain}
	snap := snapshotOf(f)
	require.NotNil(t, snap)
	assert.Equal(t, f.Id.String(), snap["id"])
	assert.Equal(t, "General", snap["name"])
}
