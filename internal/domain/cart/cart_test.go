package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/pricing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCart(t *testing.T) *Cart {
	t.Helper()
	c, err := NewCart(uuid.New(), decimal.RequireFromString("0.10"))
	require.NoError(t, err)
	return c
}

func assertTotalLaw(t *testing.T, c *Cart) {
	t.Helper()
	want := c.Subtotal.Sub(c.DiscountAmount).Add(c.TaxAmount).Add(c.ShippingAmount)
	assert.True(t, want.Equal(c.Total), "total %s, want %s", c.Total, want)
}

func TestNewCart(t *testing.T) {
	_, err := NewCart(uuid.Nil, decimal.Zero)
	assert.True(t, shared.IsCode(err, shared.CodeValidation))

	c := newTestCart(t)
	assert.True(t, c.IsEmpty())
	assert.True(t, c.Total.IsZero())
}

func TestCart_AddItem(t *testing.T) {
	c := newTestCart(t)
	productID := uuid.New()

	require.NoError(t, c.AddItem(productID, "Widget", decimal.NewFromInt(50000), 1))
	require.NoError(t, c.AddItem(productID, "Widget", decimal.NewFromInt(50000), 1))
	require.NoError(t, c.AddItem(uuid.New(), "Gadget", decimal.NewFromInt(100000), 1))

	assert.Len(t, c.Items, 2)
	assert.Equal(t, 2, c.QuantityOf(productID))
	assert.True(t, decimal.NewFromInt(200000).Equal(c.Subtotal))
	assert.True(t, decimal.NewFromInt(20000).Equal(c.TaxAmount))
	assertTotalLaw(t, c)

	assert.Error(t, c.AddItem(productID, "Widget", decimal.NewFromInt(1), 0))
	assert.Error(t, c.AddItem(uuid.Nil, "Nothing", decimal.NewFromInt(1), 1))
}

func TestCart_UpdateItemQuantity(t *testing.T) {
	c := newTestCart(t)
	productID := uuid.New()
	require.NoError(t, c.AddItem(productID, "Widget", decimal.NewFromInt(10), 3))

	previous, err := c.UpdateItemQuantity(productID, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, previous)
	assert.Equal(t, 5, c.QuantityOf(productID))
	assertTotalLaw(t, c)

	previous, err = c.UpdateItemQuantity(productID, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, previous)
	assert.True(t, c.IsEmpty())

	_, err = c.UpdateItemQuantity(uuid.New(), 1)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCart_RemoveItem(t *testing.T) {
	c := newTestCart(t)
	keep, drop := uuid.New(), uuid.New()
	require.NoError(t, c.AddItem(keep, "Keep", decimal.NewFromInt(10), 1))
	require.NoError(t, c.AddItem(drop, "Drop", decimal.NewFromInt(20), 2))

	removed, err := c.RemoveItem(drop)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Len(t, c.Items, 1)
	assert.Equal(t, keep, c.Items[0].ProductID)
	assert.True(t, decimal.NewFromInt(10).Equal(c.Subtotal))
}

func TestCart_Coupon(t *testing.T) {
	c := newTestCart(t)
	assert.Error(t, c.ApplyCoupon("SAVE10", decimal.NewFromInt(1), pricing.DiscountSourceCoupon), "empty cart")

	productID := uuid.New()
	require.NoError(t, c.AddItem(productID, "Widget", decimal.NewFromInt(100), 2))
	require.NoError(t, c.ApplyCoupon(" save10 ", decimal.NewFromInt(20), pricing.DiscountSourceNone))
	assert.Equal(t, "SAVE10", c.CouponCode)
	assert.Equal(t, pricing.DiscountSourceCoupon, c.DiscountSource)
	assert.True(t, c.HasCoupon())
	assertTotalLaw(t, c)

	// shrinking the cart caps the discount at the subtotal
	_, err := c.UpdateItemQuantity(productID, 1)
	require.NoError(t, err)
	require.NoError(t, c.ApplyCoupon("BIG", decimal.NewFromInt(500), pricing.DiscountSourcePromotion))
	assert.True(t, c.DiscountAmount.Equal(c.Subtotal))
	assert.Equal(t, pricing.DiscountSourcePromotion, c.DiscountSource)
	assertTotalLaw(t, c)

	c.RemoveCoupon()
	assert.False(t, c.HasCoupon())
	assert.True(t, c.DiscountAmount.IsZero())
	assert.Equal(t, pricing.DiscountSourceNone, c.DiscountSource)
}

func TestCart_ShippingAndClear(t *testing.T) {
	c := newTestCart(t)
	require.NoError(t, c.AddItem(uuid.New(), "Widget", decimal.NewFromInt(100), 1))
	require.NoError(t, c.SetShippingAmount(decimal.NewFromInt(30), false))
	assertTotalLaw(t, c)
	assert.True(t, decimal.NewFromInt(140).Equal(c.Total))

	assert.Error(t, c.SetShippingAmount(decimal.NewFromInt(-1), false))

	require.NoError(t, c.ApplyCoupon("SAVE10", decimal.NewFromInt(10), pricing.DiscountSourceCoupon))
	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.False(t, c.HasCoupon())
	assert.True(t, c.Total.IsZero())
}
