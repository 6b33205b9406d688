package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(owner string, productID int64, qty int, price string) CartItem {
	return CartItem{
		Owner:     owner,
		ProductID: productID,
		Quantity:  qty,
		UnitPrice: decimal.RequireFromString(price),
		AddedAt:   time.Now(),
	}
}

func TestMergeCarts_DisjointProducts(t *testing.T) {
	anon := []CartItem{item("anon-1", 1, 2, "10.00")}
	auth := []CartItem{item("alice", 2, 1, "5.50")}

	merged := MergeCarts(anon, auth, "alice")

	require.Len(t, merged, 2)
	for _, it := range merged {
		assert.Equal(t, "alice", it.Owner)
	}
	assert.Equal(t, int64(2), merged[0].ProductID)
	assert.Equal(t, 1, merged[0].Quantity)
	assert.Equal(t, int64(1), merged[1].ProductID)
	assert.Equal(t, 2, merged[1].Quantity)
}

func TestMergeCarts_SameProductSumsQuantities(t *testing.T) {
	anon := []CartItem{item("anon-1", 1, 2, "10.00")}
	auth := []CartItem{item("alice", 1, 3, "9.50")}

	merged := MergeCarts(anon, auth, "alice")

	require.Len(t, merged, 1)
	assert.Equal(t, 5, merged[0].Quantity)
	// The authenticated row's recorded price wins on collision.
	assert.True(t, merged[0].UnitPrice.Equal(decimal.RequireFromString("9.50")))
}

func TestMergeCarts_NoAnonymousItemsIsNoop(t *testing.T) {
	auth := []CartItem{item("alice", 1, 3, "9.50"), item("alice", 2, 1, "1.00")}

	merged := MergeCarts(nil, auth, "alice")

	require.Len(t, merged, 2)
	assert.Equal(t, auth, merged)
}

func TestMergeCarts_EmptyBothSides(t *testing.T) {
	merged := MergeCarts(nil, nil, "alice")
	assert.Empty(t, merged)
}

func TestParseIdentity_RoundTrip(t *testing.T) {
	anon := NewAnonymousIdentity()
	parsed, err := ParseIdentity(anon.String())
	require.NoError(t, err)
	assert.Equal(t, anon, parsed)

	user := AuthenticatedIdentity("alice")
	parsed, err = ParseIdentity(user.String())
	require.NoError(t, err)
	assert.Equal(t, user, parsed)

	_, err = ParseIdentity("garbage")
	assert.Error(t, err)
}

func TestShippingDetails_MissingFields(t *testing.T) {
	full := ShippingDetails{
		FirstName:  "A",
		LastName:   "B",
		Address:    "1 Main St",
		City:       "Barrie",
		Province:   "ON",
		PostalCode: "L4M 3X9",
		Phone:      "555-0100",
	}
	assert.Empty(t, full.MissingFields())

	partial := full
	partial.PostalCode = ""
	partial.Phone = ""
	assert.Equal(t, []string{"postal_code", "phone"}, partial.MissingFields())
}

func TestCheckoutStatus_OnlyCommittedIsTerminal(t *testing.T) {
	assert.True(t, CheckoutStatusCommitted.IsTerminal())
	assert.False(t, CheckoutStatusBrowsing.IsTerminal())
	assert.False(t, CheckoutStatusAwaitingPayment.IsTerminal())
	assert.False(t, CheckoutStatusFailed.IsTerminal())
}
