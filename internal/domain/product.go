package domain

import "github.com/shopspring/decimal"

// Product is the catalog record the cart prices items against. Browsing and
// rendering live elsewhere; only the price lookup matters here.
type Product struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}
