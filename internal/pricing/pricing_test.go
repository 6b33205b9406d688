package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/samantaanjo/go_storefront/internal/domain"
)

func item(qty int, price string) domain.CartItem {
	return domain.CartItem{Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
}

func TestTotal_EmptyCartIsZero(t *testing.T) {
	assert.True(t, Total(nil).IsZero())
	assert.True(t, Total([]domain.CartItem{}).IsZero())
}

func TestTotal_SumsSubtotals(t *testing.T) {
	items := []domain.CartItem{
		item(2, "10.00"),
		item(1, "5.50"),
	}
	assert.Equal(t, "25.50", Total(items).StringFixed(2))
}

func TestSubtotal(t *testing.T) {
	assert.Equal(t, "29.97", Subtotal(item(3, "9.99")).StringFixed(2))
}

func TestTotal_NoDriftOverManyLines(t *testing.T) {
	// 100 lines of 3 × 0.10 each; floats would accumulate error here.
	items := make([]domain.CartItem, 100)
	for i := range items {
		items[i] = item(3, "0.10")
	}
	assert.Equal(t, "30.00", Total(items).StringFixed(2))
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(2550), MinorUnits(decimal.RequireFromString("25.50")))
	assert.Equal(t, int64(2997), MinorUnits(decimal.RequireFromString("29.97")))
	assert.Equal(t, int64(0), MinorUnits(decimal.Zero))
	// Sub-cent amounts round to nearest.
	assert.Equal(t, int64(1000), MinorUnits(decimal.RequireFromString("9.999")))
}
