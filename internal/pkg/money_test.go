package pkg

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestHasValidScale(t *testing.T) {
	assert.True(t, HasValidScale(decimal.RequireFromString("10")))
	assert.True(t, HasValidScale(decimal.RequireFromString("10.5")))
	assert.True(t, HasValidScale(decimal.RequireFromString("10.25")))
	assert.True(t, HasValidScale(decimal.RequireFromString("10.250")))
	assert.False(t, HasValidScale(decimal.RequireFromString("10.251")))
}

func TestIsValidCurrency(t *testing.T) {
	assert.True(t, IsValidCurrency("BDT"))
	assert.True(t, IsValidCurrency("usd"))
	assert.False(t, IsValidCurrency("XYZ"))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "$1,000.50", FormatAmount(decimal.RequireFromString("1000.5"), "USD"))
	assert.Equal(t, "12.00 XYZ", FormatAmount(decimal.NewFromInt(12), "xyz"))
}
