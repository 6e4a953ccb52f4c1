package pkg

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits stored for every ledger amount.
const AmountScale = 2

func IsValidCurrency(code string) bool {
	return money.GetCurrency(strings.ToUpper(code)) != nil
}

// HasValidScale reports whether amount fits the ledger precision without rounding.
func HasValidScale(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(AmountScale))
}

// FormatAmount renders amount in the currency's display format, e.g. "৳1,000.00".
func FormatAmount(amount decimal.Decimal, currencyCode string) string {
	code := strings.ToUpper(currencyCode)
	currency := money.GetCurrency(code)
	if currency == nil {
		return fmt.Sprintf("%s %s", amount.StringFixed(AmountScale), code)
	}
	minor := amount.Shift(int32(currency.Fraction)).Round(0).IntPart()
	return money.New(minor, code).Display()
}
