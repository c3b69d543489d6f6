// Package currency formats monetary amounts for display.
package currency

import "github.com/shopspring/decimal"

func init() {
	// Amounts travel as bare JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Format renders an amount as whole New Taiwan dollars, e.g. "NT$ 120".
func Format(d decimal.Decimal) string {
	return "NT$ " + d.StringFixed(0)
}

// FormatPtr renders an optional amount, defaulting to "NT$ 0" when absent.
func FormatPtr(d *decimal.Decimal) string {
	if d == nil {
		return "NT$ 0"
	}
	return Format(*d)
}
