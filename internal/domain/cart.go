package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one line of a visitor's cart. At most one row exists per
// (owner, product). UnitPrice is the catalog price recorded at add-to-cart
// time, not a live lookup.
type CartItem struct {
	Owner     string          `json:"owner"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	AddedAt   time.Time       `json:"added_at"`
}

// MergeCarts produces the merged cart for authOwner from the anonymous and
// authenticated item sets. On a product collision quantities are summed and
// the authenticated row's unit price and timestamp win; anonymous-only rows
// are reassigned. Pure; the repository applies the result atomically.
func MergeCarts(anonItems, authItems []CartItem, authOwner string) []CartItem {
	merged := make([]CartItem, 0, len(anonItems)+len(authItems))
	byProduct := make(map[int64]int, len(authItems))

	for _, it := range authItems {
		byProduct[it.ProductID] = len(merged)
		merged = append(merged, it)
	}
	for _, it := range anonItems {
		if idx, ok := byProduct[it.ProductID]; ok {
			merged[idx].Quantity += it.Quantity
			continue
		}
		it.Owner = authOwner
		merged = append(merged, it)
	}
	return merged
}
