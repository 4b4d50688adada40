package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appinv "github.com/storefront/backend/internal/application/inventory"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/pricing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cartFixture struct {
	store   *testutil.MemStore
	service *Service
	buyer   shared.Actor
	product catalog.Product
}

func newCartFixture(t *testing.T, onHand int) *cartFixture {
	t.Helper()
	store := testutil.NewMemStore()
	retry := appinv.RetryPolicy{Attempts: 3, Backoff: time.Millisecond}
	ledger := appinv.NewLedgerService(store, inventory.NewReservationTracker(), appinv.LedgerConfig{Retry: retry, Hold: time.Hour}, testutil.Logger(t))
	engine := pricing.NewEngine(
		pricing.ShippingPolicy{FlatFee: decimal.NewFromInt(30000), FreeShippingThreshold: decimal.NewFromInt(1000000)},
		pricing.DefaultPromotionTable(decimal.Zero),
	)
	p := testutil.ProductFixture("Kettle", 100000, onHand)
	store.SeedProduct(p, onHand)

	return &cartFixture{
		store:   store,
		service: NewService(store.Carts(), store.Products(), store.Coupons(), ledger, engine, decimal.NewFromFloat(0.1), testutil.Logger(t)),
		buyer:   shared.Actor{UserID: uuid.New(), Email: "buyer@example.com", Roles: []string{shared.RoleCustomer}},
		product: p,
	}
}

func (f *cartFixture) held() int {
	item, _ := f.store.Item(f.product.ID)
	return item.ReservedQuantity
}

func TestCartService_ItemsFollowTheLedger(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t, 10)

	resp, err := f.service.AddItem(ctx, f.buyer, AddItemRequest{ProductID: f.product.ID, Quantity: 3})
	require.NoError(t, err)
	assert.Len(t, resp.Items, 1)
	assert.Equal(t, 3, f.held())
	assert.True(t, decimal.NewFromInt(300000).Equal(resp.Subtotal))
	assert.True(t, decimal.NewFromInt(30000).Equal(resp.ShippingAmount))
	assert.True(t, decimal.NewFromInt(360000).Equal(resp.Total), resp.Total.String())

	_, err = f.service.AddItem(ctx, f.buyer, AddItemRequest{ProductID: f.product.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, f.held())

	resp, err = f.service.UpdateItem(ctx, f.buyer, f.product.ID, UpdateItemRequest{Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Items[0].Quantity)
	assert.Equal(t, 1, f.held())

	resp, err = f.service.UpdateItem(ctx, f.buyer, f.product.ID, UpdateItemRequest{Quantity: 0})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.Equal(t, 0, f.held())
	assert.True(t, resp.ShippingAmount.IsZero())

	reservations := f.store.ReservationsFor(inventory.ReferenceCart, resp.ID.String())
	require.NotEmpty(t, reservations)
	for _, r := range reservations {
		assert.NotEqual(t, inventory.ReservationActive, r.Status)
	}
}

func TestCartService_AddBeyondStock(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t, 2)

	_, err := f.service.AddItem(ctx, f.buyer, AddItemRequest{ProductID: f.product.ID, Quantity: 3})
	assert.True(t, shared.IsCode(err, shared.CodeInsufficientStock))
	assert.Equal(t, 0, f.held())

	resp, err := f.service.Get(ctx, f.buyer)
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
}

func TestCartService_FailedSaveGivesTheHoldBack(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t, 10)
	f.store.FailNext(testutil.OpCartSave, errors.New("write failed"), 1)

	_, err := f.service.AddItem(ctx, f.buyer, AddItemRequest{ProductID: f.product.ID, Quantity: 4})
	require.Error(t, err)
	assert.Equal(t, 0, f.held())
}

func TestCartService_UnknownAndInactiveProducts(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t, 10)

	_, err := f.service.AddItem(ctx, f.buyer, AddItemRequest{ProductID: uuid.New(), Quantity: 1})
	assert.True(t, shared.IsCode(err, shared.CodeProductNotFound))

	off := testutil.ProductFixture("Retired", 100, 5)
	off.Status = catalog.ProductStatusInactive
	f.store.SeedProduct(off, 5)
	_, err = f.service.AddItem(ctx, f.buyer, AddItemRequest{ProductID: off.ID, Quantity: 1})
	assert.True(t, shared.IsCode(err, shared.CodeProductNotFound))

	_, err = f.service.Get(ctx, shared.Actor{})
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestCartService_Coupons(t *testing.T) {
	ctx := context.Background()

	t.Run("promotion code", func(t *testing.T) {
		f := newCartFixture(t, 10)
		_, err := f.service.AddItem(ctx, f.buyer, AddItemRequest{ProductID: f.product.ID, Quantity: 2})
		require.NoError(t, err)

		resp, err := f.service.ApplyCoupon(ctx, f.buyer, ApplyCouponRequest{Code: " save10 "})
		require.NoError(t, err)
		assert.Equal(t, "SAVE10", resp.CouponCode)
		assert.Equal(t, string(pricing.DiscountSourcePromotion), resp.DiscountSource)
		assert.True(t, decimal.NewFromInt(20000).Equal(resp.DiscountAmount))

		// the discount follows the subtotal
		resp, err = f.service.UpdateItem(ctx, f.buyer, f.product.ID, UpdateItemRequest{Quantity: 4})
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(40000).Equal(resp.DiscountAmount))

		_, err = f.service.ApplyCoupon(ctx, f.buyer, ApplyCouponRequest{Code: "SAVE20"})
		assert.True(t, shared.IsCode(err, shared.CodeCouponInvalid))

		resp, err = f.service.RemoveCoupon(ctx, f.buyer)
		require.NoError(t, err)
		assert.Empty(t, resp.CouponCode)
		assert.Empty(t, resp.DiscountSource)
		assert.True(t, resp.DiscountAmount.IsZero())
	})

	t.Run("free shipping", func(t *testing.T) {
		f := newCartFixture(t, 10)
		_, err := f.service.AddItem(ctx, f.buyer, AddItemRequest{ProductID: f.product.ID, Quantity: 1})
		require.NoError(t, err)

		resp, err := f.service.ApplyCoupon(ctx, f.buyer, ApplyCouponRequest{Code: "FREESHIP"})
		require.NoError(t, err)
		assert.True(t, resp.ShippingAmount.IsZero())
	})

	t.Run("unknown code without fallback", func(t *testing.T) {
		f := newCartFixture(t, 10)
		_, err := f.service.AddItem(ctx, f.buyer, AddItemRequest{ProductID: f.product.ID, Quantity: 1})
		require.NoError(t, err)

		_, err = f.service.ApplyCoupon(ctx, f.buyer, ApplyCouponRequest{Code: "NOPE"})
		assert.True(t, shared.IsCode(err, shared.CodeCouponInvalid))
	})

	t.Run("stored coupon below its minimum is dropped", func(t *testing.T) {
		f := newCartFixture(t, 10)
		f.store.SeedCoupon(pricing.Coupon{
			Code:           "BIG",
			DiscountType:   pricing.DiscountFixedAmount,
			DiscountValue:  decimal.NewFromInt(50000),
			MinOrderAmount: decimal.NewFromInt(300000),
			IsActive:       true,
		})
		_, err := f.service.AddItem(ctx, f.buyer, AddItemRequest{ProductID: f.product.ID, Quantity: 3})
		require.NoError(t, err)
		resp, err := f.service.ApplyCoupon(ctx, f.buyer, ApplyCouponRequest{Code: "big"})
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(50000).Equal(resp.DiscountAmount))
		assert.Equal(t, string(pricing.DiscountSourceCoupon), resp.DiscountSource)

		resp, err = f.service.UpdateItem(ctx, f.buyer, f.product.ID, UpdateItemRequest{Quantity: 1})
		require.NoError(t, err)
		assert.Empty(t, resp.CouponCode)
		assert.True(t, resp.DiscountAmount.IsZero())
	})
}

func TestCartService_ShippingAndClear(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t, 10)
	_, err := f.service.AddItem(ctx, f.buyer, AddItemRequest{ProductID: f.product.ID, Quantity: 2})
	require.NoError(t, err)

	resp, err := f.service.SetShipping(ctx, f.buyer, SetShippingRequest{IsPickup: true})
	require.NoError(t, err)
	assert.True(t, resp.IsPickup)
	assert.True(t, resp.ShippingAmount.IsZero())

	resp, err = f.service.Clear(ctx, f.buyer)
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.Equal(t, 0, f.held())
	item, _ := f.store.Item(f.product.ID)
	assert.Equal(t, 10, item.AvailableQuantity())
}
