package pkg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxnIDGenerator(t *testing.T) {
	gen, err := NewTxnIDGenerator(1)
	require.NoError(t, err)

	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := gen.NextTxnID()
		require.True(t, strings.HasPrefix(id, TxnIDPrefix))
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}

	_, err = NewTxnIDGenerator(-1)
	assert.Error(t, err)
}

func TestNewPaginatedResponse(t *testing.T) {
	resp := NewPaginatedResponse[int](nil, &PaginationParams{Page: 2, Limit: 10}, 25)

	assert.Equal(t, 3, resp.TotalPages)
	assert.NotNil(t, resp.Data)
	assert.Equal(t, 2, resp.Page)

	clamped := NormalizePagination(&PaginationParams{Page: 0, Limit: 1000})
	assert.Equal(t, 1, clamped.Page)
	assert.Equal(t, MaxPageSize, clamped.Limit)
}
