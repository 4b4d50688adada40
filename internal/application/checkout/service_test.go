package checkout

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appinv "github.com/storefront/backend/internal/application/inventory"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/pricing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store     *testutil.MemStore
	ledger    *appinv.LedgerService
	keys      *cache.InMemoryIdempotencyStore
	publisher *testutil.RecordingPublisher
	service   *Service
	deps      Dependencies
	cfg       Config
}

type fixtureOption func(*fixture)

func withTimeout(d time.Duration) fixtureOption {
	return func(f *fixture) { f.cfg.Timeout = d }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	store := testutil.NewMemStore()
	retry := appinv.RetryPolicy{Attempts: 3, Backoff: time.Millisecond}
	tracker := inventory.NewReservationTracker()
	log := testutil.Logger(t)

	ledger := appinv.NewLedgerService(store, tracker, appinv.LedgerConfig{Retry: retry, Hold: time.Hour}, log)
	stock := StockDeps{
		Scope:      store,
		Tracker:    tracker,
		Products:   store.Products(),
		Retry:      retry,
		StoreRetry: retry,
		Hold:       time.Hour,
		Logger:     log,
	}
	keys := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = keys.Close() })

	f := &fixture{
		store:     store,
		ledger:    ledger,
		keys:      keys,
		publisher: testutil.NewRecordingPublisher(),
		cfg: Config{
			Timeout:             5 * time.Second,
			TaxRate:             decimal.NewFromFloat(0.1),
			StoreRetry:          retry,
			FastCheckoutEnabled: true,
		},
	}
	f.deps = Dependencies{
		Standard: NewStandardCheckout(stock),
		Fast:     NewFastCheckout(stock),
		Products: store.Products(),
		Orders:   store.Orders(),
		Carts:    store.Carts(),
		Coupons:  store.Coupons(),
		Intents:  store.Intents(),
		Keys:     keys,
		Holds:    ledger,
		Engine: pricing.NewEngine(
			pricing.ShippingPolicy{FlatFee: decimal.NewFromInt(30000)},
			pricing.DefaultPromotionTable(decimal.Zero),
		),
	}
	f.deps.Publisher = f.publisher
	for _, opt := range opts {
		opt(f)
	}
	f.service = NewService(f.deps, f.cfg, log)
	return f
}

func customer() shared.Actor {
	return shared.Actor{UserID: uuid.New(), Email: "buyer@example.com", Roles: []string{shared.RoleCustomer}}
}

func staff() shared.Actor {
	return shared.Actor{UserID: uuid.New(), Email: "sales@example.com", Roles: []string{shared.RoleSale}}
}

// fillCart puts quantity units of p in the buyer's cart and holds them in the ledger
func (f *fixture) fillCart(t *testing.T, buyer shared.Actor, p catalog.Product, quantity int) *cart.Cart {
	t.Helper()
	ctx := context.Background()
	c, err := cart.NewCart(buyer.UserID, decimal.NewFromFloat(0.1))
	require.NoError(t, err)
	require.NoError(t, c.AddItem(p.ID, p.Name, p.Price, quantity))
	require.NoError(t, f.store.Carts().Save(ctx, c))
	require.NoError(t, f.ledger.Reserve(ctx, inventory.ReferenceCart, c.ID.String(), p.ID, quantity))
	return c
}

func direct(buyer shared.Actor, productID uuid.UUID, quantity int) Request {
	return Request{
		Customer: buyer,
		Items:    []LineRequest{{ProductID: productID, Quantity: quantity}},
	}
}

func TestCheckout_CartTwoUnits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := testutil.ProductFixture("Desk Lamp", 100000, 20)
	f.store.SeedProduct(p, 10)
	buyer := customer()
	c := f.fillCart(t, buyer, p, 2)

	res, err := f.service.Checkout(ctx, Request{Customer: buyer, ShippingAddress: "1 Main St"})
	require.NoError(t, err)
	f.service.Wait()

	got := res.Order
	assert.False(t, res.Replayed)
	assert.True(t, decimal.NewFromInt(200000).Equal(got.SubtotalAmount), got.SubtotalAmount.String())
	assert.True(t, decimal.NewFromInt(20000).Equal(got.TaxAmount), got.TaxAmount.String())
	assert.True(t, decimal.NewFromInt(30000).Equal(got.ShippingAmount), got.ShippingAmount.String())
	assert.True(t, decimal.NewFromInt(250000).Equal(got.TotalAmount), got.TotalAmount.String())
	assert.Equal(t, string(order.OrderStatusPending), got.Status)
	assert.Equal(t, string(order.StrategyStandard), got.Strategy)

	item, ok := f.store.Item(p.ID)
	require.True(t, ok)
	assert.Equal(t, 8, item.QuantityOnHand)
	assert.Equal(t, 0, item.ReservedQuantity)
	assert.Equal(t, 18, f.store.Product(p.ID).StockQuantity)
	assert.Equal(t, 0, f.store.ActiveReserved(p.ID))
	for _, r := range f.store.ReservationsFor(inventory.ReferenceCart, c.ID.String()) {
		assert.Equal(t, inventory.ReservationFulfilled, r.Status)
	}

	saved, err := f.store.Carts().FindByCustomerID(ctx, buyer.UserID)
	require.NoError(t, err)
	assert.True(t, saved.IsEmpty())

	intents := f.store.AllIntents()
	require.Len(t, intents, 1)
	assert.Equal(t, checkout.IntentCompleted, intents[0].Status)
	assert.ElementsMatch(t, []checkout.Step{checkout.StepInventory, checkout.StepCatalog, checkout.StepOrder, checkout.StepCart}, intents[0].CompletedSteps)

	assert.Equal(t, 1, f.publisher.Count(order.EventTypeOrderCreated))
}

func TestCheckout_DirectHoldKeyedByOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := testutil.ProductFixture("Kettle", 30000, 10)
	f.store.SeedProduct(p, 10)

	res, err := f.service.Checkout(ctx, direct(customer(), p.ID, 2))
	require.NoError(t, err)

	held := f.store.ReservationsFor(inventory.ReferenceOrder, res.Order.ID.String())
	require.NotEmpty(t, held)
	units := 0
	for _, r := range held {
		assert.Equal(t, inventory.ReservationFulfilled, r.Status)
		units += r.Quantity
	}
	assert.Equal(t, 2, units)

	intents := f.store.AllIntents()
	require.Len(t, intents, 1)
	assert.Empty(t, f.store.ReservationsFor(inventory.ReferenceOrder, intents[0].ID.String()))

	saved, err := f.store.Orders().FindByID(ctx, res.Order.ID)
	require.NoError(t, err)
	for _, it := range saved.Items {
		assert.Equal(t, res.Order.ID, it.OrderID)
	}
}

func TestCheckout_TopsUpShortCartHold(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := testutil.ProductFixture("Mug", 50000, 10)
	f.store.SeedProduct(p, 10)
	buyer := customer()
	c := f.fillCart(t, buyer, p, 1)

	_, err := c.UpdateItemQuantity(p.ID, 3)
	require.NoError(t, err)
	require.NoError(t, f.store.Carts().Save(ctx, c))

	_, err = f.service.Checkout(ctx, Request{Customer: buyer})
	require.NoError(t, err)

	item, _ := f.store.Item(p.ID)
	assert.Equal(t, 7, item.QuantityOnHand)
	assert.Equal(t, 0, item.ReservedQuantity)
}

func TestCheckout_ShortageLeavesCartHoldsIntact(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := testutil.ProductFixture("Mug", 50000, 10)
	f.store.SeedProduct(p, 2)
	buyer := customer()
	c := f.fillCart(t, buyer, p, 1)

	_, err := c.UpdateItemQuantity(p.ID, 4)
	require.NoError(t, err)
	require.NoError(t, f.store.Carts().Save(ctx, c))

	_, err = f.service.Checkout(ctx, Request{Customer: buyer})
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.CodeInsufficientStock), err.Error())

	item, _ := f.store.Item(p.ID)
	assert.Equal(t, 2, item.QuantityOnHand)
	assert.Equal(t, 1, item.ReservedQuantity)
	assert.Equal(t, 1, f.store.ActiveReserved(p.ID))
	assert.Equal(t, 0, f.store.OrderCount())

	intents := f.store.AllIntents()
	require.Len(t, intents, 1)
	assert.Equal(t, checkout.IntentFailed, intents[0].Status)
}

func TestCheckout_PromotionCodeWithoutStoredCoupon(t *testing.T) {
	f := newFixture(t)
	p := testutil.ProductFixture("Chair", 1000000, 5)
	f.store.SeedProduct(p, 5)

	req := direct(customer(), p.ID, 1)
	req.CouponCode = "save10"
	res, err := f.service.Checkout(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(100000).Equal(res.Order.DiscountAmount), res.Order.DiscountAmount.String())
	assert.Equal(t, "SAVE10", res.Order.CouponCode)
	assert.Equal(t, string(pricing.DiscountSourcePromotion), res.Order.DiscountSource)
	// 1,000,000 - 100,000 + 100,000 tax + 30,000 shipping
	assert.True(t, decimal.NewFromInt(1030000).Equal(res.Order.TotalAmount), res.Order.TotalAmount.String())
}

type countingCoupons struct {
	pricing.CouponRepository
	marked atomic.Int32
}

func (c *countingCoupons) MarkUsed(ctx context.Context, code string) error {
	c.marked.Add(1)
	return c.CouponRepository.MarkUsed(ctx, code)
}

func TestCheckout_CartDiscountKeepsItsSource(t *testing.T) {
	ctx := context.Background()
	var coupons *countingCoupons
	f := newFixture(t, func(f *fixture) {
		coupons = &countingCoupons{CouponRepository: f.deps.Coupons}
		f.deps.Coupons = coupons
	})
	f.store.SeedCoupon(pricing.Coupon{
		Code:          "WELCOME",
		DiscountType:  pricing.DiscountFixedAmount,
		DiscountValue: decimal.NewFromInt(50000),
		IsActive:      true,
	})
	p := testutil.ProductFixture("Chair", 1000000, 5)
	f.store.SeedProduct(p, 5)

	t.Run("promotion applied in the cart", func(t *testing.T) {
		buyer := customer()
		c := f.fillCart(t, buyer, p, 1)
		require.NoError(t, c.ApplyCoupon("SAVE10", decimal.NewFromInt(100000), pricing.DiscountSourcePromotion))
		require.NoError(t, f.store.Carts().Save(ctx, c))

		res, err := f.service.Checkout(ctx, Request{Customer: buyer})
		require.NoError(t, err)
		assert.Equal(t, "SAVE10", res.Order.CouponCode)
		assert.Equal(t, string(pricing.DiscountSourcePromotion), res.Order.DiscountSource)
		assert.True(t, decimal.NewFromInt(100000).Equal(res.Order.DiscountAmount), res.Order.DiscountAmount.String())
		assert.Zero(t, coupons.marked.Load())
	})

	t.Run("stored coupon applied in the cart", func(t *testing.T) {
		buyer := customer()
		c := f.fillCart(t, buyer, p, 1)
		require.NoError(t, c.ApplyCoupon("WELCOME", decimal.NewFromInt(50000), pricing.DiscountSourceCoupon))
		require.NoError(t, f.store.Carts().Save(ctx, c))

		res, err := f.service.Checkout(ctx, Request{Customer: buyer})
		require.NoError(t, err)
		assert.Equal(t, string(pricing.DiscountSourceCoupon), res.Order.DiscountSource)
		assert.Equal(t, int32(1), coupons.marked.Load())
		assert.Equal(t, 1, f.store.Coupon("WELCOME").UsedCount)
	})
}

func TestCheckout_StoredCouponIsCountedOnce(t *testing.T) {
	f := newFixture(t)
	p := testutil.ProductFixture("Chair", 1000000, 5)
	f.store.SeedProduct(p, 5)
	f.store.SeedCoupon(pricing.Coupon{
		Code:          "WELCOME",
		DiscountType:  pricing.DiscountFixedAmount,
		DiscountValue: decimal.NewFromInt(50000),
		IsActive:      true,
	})

	req := direct(customer(), p.ID, 1)
	req.CouponCode = "welcome"
	res, err := f.service.Checkout(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(50000).Equal(res.Order.DiscountAmount))
	assert.Equal(t, string(pricing.DiscountSourceCoupon), res.Order.DiscountSource)
	assert.Equal(t, 1, f.store.Coupon("WELCOME").UsedCount)
}

func TestCheckout_FreeShippingPromotion(t *testing.T) {
	f := newFixture(t)
	p := testutil.ProductFixture("Chair", 100000, 5)
	f.store.SeedProduct(p, 5)

	req := direct(customer(), p.ID, 1)
	req.CouponCode = "FREESHIP"
	res, err := f.service.Checkout(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, res.Order.ShippingAmount.IsZero())
	assert.True(t, res.Order.DiscountAmount.IsZero())
	assert.Equal(t, "FREESHIP", res.Order.CouponCode)
	assert.True(t, decimal.NewFromInt(110000).Equal(res.Order.TotalAmount), res.Order.TotalAmount.String())
}

func TestCheckout_ManualDiscount(t *testing.T) {
	p := testutil.ProductFixture("Chair", 1000000, 5)
	manual := decimal.NewFromInt(30000)

	t.Run("staff discount wins over coupon", func(t *testing.T) {
		f := newFixture(t)
		f.store.SeedProduct(p, 5)
		f.store.SeedCoupon(pricing.Coupon{
			Code:          "SAVE10",
			DiscountType:  pricing.DiscountPercentage,
			DiscountValue: decimal.NewFromInt(10),
			IsActive:      true,
		})

		req := direct(staff(), p.ID, 1)
		req.CouponCode = "SAVE10"
		req.ManualDiscount = &manual
		res, err := f.service.Checkout(context.Background(), req)
		require.NoError(t, err)

		assert.True(t, manual.Equal(res.Order.DiscountAmount))
		assert.Equal(t, string(pricing.DiscountSourceManual), res.Order.DiscountSource)
		assert.Empty(t, res.Order.CouponCode)
		assert.Equal(t, 0, f.store.Coupon("SAVE10").UsedCount)
	})

	t.Run("customers cannot set one", func(t *testing.T) {
		f := newFixture(t)
		f.store.SeedProduct(p, 5)

		req := direct(customer(), p.ID, 1)
		req.ManualDiscount = &manual
		_, err := f.service.Checkout(context.Background(), req)
		assert.ErrorIs(t, err, shared.ErrForbidden)
		assert.Equal(t, 0, f.store.OrderCount())
	})
}

func TestCheckout_ProductChecks(t *testing.T) {
	f := newFixture(t)
	inactive := testutil.ProductFixture("Old", 100, 5)
	inactive.Status = catalog.ProductStatusDiscontinued
	f.store.SeedProduct(inactive, 5)

	_, err := f.service.Checkout(context.Background(), direct(customer(), uuid.New(), 1))
	assert.True(t, shared.IsCode(err, shared.CodeProductNotFound))

	_, err = f.service.Checkout(context.Background(), direct(customer(), inactive.ID, 1))
	assert.True(t, shared.IsCode(err, shared.CodeProductNotFound))

	_, err = f.service.Checkout(context.Background(), Request{Customer: customer()})
	assert.True(t, shared.IsCode(err, shared.CodeValidation), "empty cart")

	_, err = f.service.Checkout(context.Background(), Request{})
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestCheckout_MissingLedgerRow(t *testing.T) {
	p := testutil.ProductFixture("New", 100, 5)

	t.Run("without provisioning it is a shortage", func(t *testing.T) {
		f := newFixture(t)
		f.store.SeedProduct(p, -1)
		_, err := f.service.Checkout(context.Background(), direct(customer(), p.ID, 1))
		assert.True(t, shared.IsCode(err, shared.CodeInsufficientStock))
	})

	t.Run("provisioned rows start from the default quantity", func(t *testing.T) {
		f := newFixture(t)
		f.store.SeedProduct(p, -1)
		stock := StockDeps{
			Scope:        f.store,
			Tracker:      inventory.NewReservationTracker(),
			Products:     f.store.Products(),
			Provisioning: appinv.Provisioning{Enabled: true, DefaultQuantity: 3},
			Retry:        appinv.RetryPolicy{Attempts: 3, Backoff: time.Millisecond},
		}
		f.deps.Standard = NewStandardCheckout(stock)
		svc := NewService(f.deps, f.cfg, testutil.Logger(t))

		_, err := svc.Checkout(context.Background(), direct(customer(), p.ID, 2))
		require.NoError(t, err)
		item, ok := f.store.Item(p.ID)
		require.True(t, ok)
		assert.Equal(t, 1, item.QuantityOnHand)
	})
}

func TestCheckout_ConcurrentBuyersSplitStock(t *testing.T) {
	f := newFixture(t)
	p := testutil.ProductFixture("Headphones", 200000, 5)
	f.store.SeedProduct(p, 5)

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		shortages atomic.Int32
	)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Checkout(context.Background(), direct(customer(), p.ID, 3))
			switch {
			case err == nil:
				succeeded.Add(1)
			case shared.IsCode(err, shared.CodeInsufficientStock):
				shortages.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(1), shortages.Load())
	item, _ := f.store.Item(p.ID)
	assert.Equal(t, 2, item.AvailableQuantity())
	assert.Equal(t, 1, f.store.OrderCount())
}

func TestCheckout_NeverOversells(t *testing.T) {
	const (
		buyers    = 25
		available = 7
	)
	f := newFixture(t)
	p := testutil.ProductFixture("Limited Print", 10000, available)
	f.store.SeedProduct(p, available)

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		shortages atomic.Int32
	)
	for range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Checkout(context.Background(), direct(customer(), p.ID, 1))
			switch {
			case err == nil:
				succeeded.Add(1)
			case shared.IsCode(err, shared.CodeInsufficientStock):
				shortages.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(available), succeeded.Load())
	assert.Equal(t, int32(buyers-available), shortages.Load())
	item, _ := f.store.Item(p.ID)
	assert.Equal(t, 0, item.QuantityOnHand)
	assert.Equal(t, 0, item.ReservedQuantity)
	assert.Equal(t, available, f.store.OrderCount())
}

func TestCheckout_LedgerConflicts(t *testing.T) {
	p := testutil.ProductFixture("Lamp", 1000, 10)

	t.Run("retried until the write lands", func(t *testing.T) {
		f := newFixture(t)
		f.store.SeedProduct(p, 10)
		f.store.FailNext(testutil.OpItemSaveWithLock, shared.ErrConcurrencyConflict, 2)

		_, err := f.service.Checkout(context.Background(), direct(customer(), p.ID, 1))
		require.NoError(t, err)
		item, _ := f.store.Item(p.ID)
		assert.Equal(t, 9, item.QuantityOnHand)
	})

	t.Run("outlasts the ledger retry budget", func(t *testing.T) {
		f := newFixture(t)
		f.store.SeedProduct(p, 10)
		f.store.FailNext(testutil.OpItemSaveWithLock, shared.ErrConcurrencyConflict, 6)

		_, err := f.service.Checkout(context.Background(), direct(customer(), p.ID, 1))
		require.NoError(t, err)
		item, _ := f.store.Item(p.ID)
		assert.Equal(t, 9, item.QuantityOnHand)
	})

	t.Run("bounded by the checkout deadline", func(t *testing.T) {
		f := newFixture(t, withTimeout(50*time.Millisecond))
		f.store.SeedProduct(p, 10)
		f.store.FailNext(testutil.OpItemSaveWithLock, shared.ErrConcurrencyConflict, 100000)

		_, err := f.service.Checkout(context.Background(), direct(customer(), p.ID, 1))
		assert.True(t, shared.IsCode(err, shared.CodeCheckoutTimeout), "got %v", err)
		item, _ := f.store.Item(p.ID)
		assert.Equal(t, 10, item.QuantityOnHand)
		assert.Zero(t, f.store.OrderCount())
	})
}

func TestCheckout_ContendedBuyersDrainStock(t *testing.T) {
	const (
		buyers    = 60
		available = 7
	)
	f := newFixture(t)
	f.store.WithConcurrentTx(2 * time.Millisecond)
	p := testutil.ProductFixture("Signed Vinyl", 45000, available)
	f.store.SeedProduct(p, available)

	var (
		wg        sync.WaitGroup
		start     = make(chan struct{})
		succeeded atomic.Int32
		shortages atomic.Int32
	)
	for range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.service.Checkout(context.Background(), direct(customer(), p.ID, 1))
			switch {
			case err == nil:
				succeeded.Add(1)
			case shared.IsCode(err, shared.CodeInsufficientStock):
				shortages.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(available), succeeded.Load())
	assert.Equal(t, int32(buyers-available), shortages.Load())
	item, ok := f.store.Item(p.ID)
	require.True(t, ok)
	assert.Equal(t, 0, item.AvailableQuantity())
	assert.Equal(t, 0, item.QuantityOnHand)
	assert.Equal(t, 0, item.ReservedQuantity)
	assert.Equal(t, available, f.store.OrderCount())
}

func TestCheckout_FastStrategy(t *testing.T) {
	t.Run("takes the catalog counter only", func(t *testing.T) {
		f := newFixture(t)
		p := testutil.ProductFixture("Sticker", 1000, 2)
		f.store.SeedProduct(p, 10)

		req := direct(customer(), p.ID, 2)
		req.Strategy = order.StrategyFast
		res, err := f.service.Checkout(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, string(order.StrategyFast), res.Order.Strategy)
		assert.Equal(t, 0, f.store.Product(p.ID).StockQuantity)
		item, _ := f.store.Item(p.ID)
		assert.Equal(t, 10, item.QuantityOnHand)

		req = direct(customer(), p.ID, 1)
		req.Strategy = order.StrategyFast
		_, err = f.service.Checkout(context.Background(), req)
		assert.True(t, shared.IsCode(err, shared.CodeInsufficientStock))
	})

	t.Run("puts back earlier lines when a later one falls short", func(t *testing.T) {
		f := newFixture(t)
		plenty := testutil.ProductFixture("Pen", 1000, 5)
		none := testutil.ProductFixture("Ink", 1000, 0)
		f.store.SeedProduct(plenty, -1)
		f.store.SeedProduct(none, -1)

		req := Request{
			Customer: customer(),
			Strategy: order.StrategyFast,
			Items:    []LineRequest{{ProductID: plenty.ID, Quantity: 2}, {ProductID: none.ID, Quantity: 1}},
		}
		_, err := f.service.Checkout(context.Background(), req)
		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeInsufficientStock))
		assert.Equal(t, 5, f.store.Product(plenty.ID).StockQuantity)
		assert.Equal(t, 0, f.store.OrderCount())
	})

	t.Run("can be switched off", func(t *testing.T) {
		f := newFixture(t)
		f.cfg.FastCheckoutEnabled = false
		svc := NewService(f.deps, f.cfg, testutil.Logger(t))
		req := direct(customer(), uuid.New(), 1)
		req.Strategy = order.StrategyFast
		_, err := svc.Checkout(context.Background(), req)
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
	})
}

func TestCheckout_IdempotencyKey(t *testing.T) {
	t.Run("replays a completed checkout", func(t *testing.T) {
		f := newFixture(t)
		p := testutil.ProductFixture("Lamp", 1000, 10)
		f.store.SeedProduct(p, 10)
		buyer := customer()

		req := direct(buyer, p.ID, 1)
		req.IdempotencyKey = "key-1"
		first, err := f.service.Checkout(context.Background(), req)
		require.NoError(t, err)
		second, err := f.service.Checkout(context.Background(), req)
		require.NoError(t, err)

		assert.True(t, second.Replayed)
		assert.Equal(t, first.Order.ID, second.Order.ID)
		assert.Equal(t, 1, f.store.OrderCount())
		item, _ := f.store.Item(p.ID)
		assert.Equal(t, 9, item.QuantityOnHand)
	})

	t.Run("keys are scoped to the customer", func(t *testing.T) {
		f := newFixture(t)
		p := testutil.ProductFixture("Lamp", 1000, 10)
		f.store.SeedProduct(p, 10)

		a := direct(customer(), p.ID, 1)
		a.IdempotencyKey = "shared"
		b := direct(customer(), p.ID, 1)
		b.IdempotencyKey = "shared"
		_, err := f.service.Checkout(context.Background(), a)
		require.NoError(t, err)
		res, err := f.service.Checkout(context.Background(), b)
		require.NoError(t, err)
		assert.False(t, res.Replayed)
		assert.Equal(t, 2, f.store.OrderCount())
	})

	t.Run("a failed attempt frees the key", func(t *testing.T) {
		ctx := context.Background()
		f := newFixture(t)
		p := testutil.ProductFixture("Lamp", 1000, 10)
		f.store.SeedProduct(p, 0)

		req := direct(customer(), p.ID, 1)
		req.IdempotencyKey = "retry-me"
		_, err := f.service.Checkout(ctx, req)
		require.True(t, shared.IsCode(err, shared.CodeInsufficientStock))

		_, err = f.ledger.Adjust(ctx, p.ID, 5, "restock")
		require.NoError(t, err)
		res, err := f.service.Checkout(ctx, req)
		require.NoError(t, err)
		assert.False(t, res.Replayed)
		assert.Len(t, f.store.AllIntents(), 1)
	})

	t.Run("an unsettled checkout blocks the key", func(t *testing.T) {
		f := newFixture(t)
		buyer := customer()
		running := checkout.NewIntent(buyer.UserID, string(order.StrategyStandard), buyer.UserID.String()+":busy")
		running.MarkStep(checkout.StepInventory)
		require.NoError(t, f.store.Intents().Save(context.Background(), running))

		req := direct(buyer, uuid.New(), 1)
		req.IdempotencyKey = "busy"
		_, err := f.service.Checkout(context.Background(), req)
		assert.True(t, shared.IsCode(err, shared.CodeCheckoutInProgress))
	})
}

type slowProducts struct {
	catalog.ProductRepository
}

func (s slowProducts) FindByIDs(ctx context.Context, _ []uuid.UUID) ([]catalog.Product, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestCheckout_Timeout(t *testing.T) {
	f := newFixture(t, withTimeout(20*time.Millisecond))
	f.deps.Products = slowProducts{f.store.Products()}
	svc := NewService(f.deps, f.cfg, testutil.Logger(t))

	_, err := svc.Checkout(context.Background(), direct(customer(), uuid.New(), 1))
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.CodeCheckoutTimeout), err.Error())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCheckout_PartialWrites(t *testing.T) {
	t.Run("order store down after stock was taken", func(t *testing.T) {
		f := newFixture(t)
		p := testutil.ProductFixture("Lamp", 1000, 10)
		f.store.SeedProduct(p, 10)
		f.store.FailNext(testutil.OpOrderSave, errors.New("connection reset"), 3)

		_, err := f.service.Checkout(context.Background(), direct(customer(), p.ID, 1))
		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeCheckoutFailed), err.Error())

		intents := f.store.AllIntents()
		require.Len(t, intents, 1)
		assert.Equal(t, checkout.IntentNeedsReconciliation, intents[0].Status)
		assert.True(t, intents[0].HasStep(checkout.StepInventory))
		assert.False(t, intents[0].HasStep(checkout.StepOrder))
	})

	t.Run("catalog counter failure does not fail the checkout", func(t *testing.T) {
		f := newFixture(t)
		p := testutil.ProductFixture("Lamp", 1000, 10)
		f.store.SeedProduct(p, 10)
		f.store.FailNext(testutil.OpProductDecrement, errors.New("catalog unavailable"), 3)

		res, err := f.service.Checkout(context.Background(), direct(customer(), p.ID, 1))
		require.NoError(t, err)
		assert.NotEmpty(t, res.Order.OrderNumber)
		assert.Equal(t, 10, f.store.Product(p.ID).StockQuantity)

		intents := f.store.AllIntents()
		require.Len(t, intents, 1)
		assert.Equal(t, checkout.IntentNeedsReconciliation, intents[0].Status)
		assert.Contains(t, intents[0].LastError, "catalog decrement failed")
	})

	t.Run("publish failure is only logged", func(t *testing.T) {
		f := newFixture(t)
		p := testutil.ProductFixture("Lamp", 1000, 10)
		f.store.SeedProduct(p, 10)
		f.publisher.SetError(errors.New("bus closed"))

		_, err := f.service.Checkout(context.Background(), direct(customer(), p.ID, 1))
		require.NoError(t, err)
		f.service.Wait()
		assert.Equal(t, 0, f.publisher.Count(order.EventTypeOrderCreated))
	})
}

func TestClassify(t *testing.T) {
	ctx := context.Background()

	err := classify(ctx, errors.New("boom"))
	assert.True(t, shared.IsCode(err, shared.CodeCheckoutFailed))

	stock := inventory.NewInsufficientStockError(uuid.New(), 2, 1)
	assert.Same(t, stock, classify(ctx, stock))

	err = classify(ctx, context.DeadlineExceeded)
	assert.True(t, shared.IsCode(err, shared.CodeCheckoutTimeout))
}
