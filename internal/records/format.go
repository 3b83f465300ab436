package records

import (
	"github.com/shopspring/decimal"
)

// CurrencySymbol prefixes formatted money amounts (Nigerian naira).
const CurrencySymbol = "₦"

// FormatNumber renders v with two decimals. Values that are not numbers
// render as "0.00".
func FormatNumber(v any) string {
	return decimal.NewFromFloat(ToFloat(v)).StringFixed(2)
}

// FormatCurrency is FormatNumber with the currency symbol.
func FormatCurrency(v any) string {
	return CurrencySymbol + FormatNumber(v)
}
