// Package pricing computes cart totals. All arithmetic is fixed-point
// decimal; float64 never touches an amount of money.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/samantaanjo/go_storefront/internal/domain"
)

// Subtotal is quantity × unit price for a single line.
func Subtotal(item domain.CartItem) decimal.Decimal {
	return item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// Total is the sum of subtotals over the given items. Empty input returns
// zero.
func Total(items []domain.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(Subtotal(item))
	}
	return total
}

// MinorUnits converts a decimal amount to the integer count of the
// currency's minor unit (cents), rounding to the nearest integer. This is
// the form payment gateways charge in.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
