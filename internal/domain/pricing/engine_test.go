package pricing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newTestEngine() *Engine {
	return NewEngine(
		ShippingPolicy{FlatFee: d(30000), FreeShippingThreshold: d(500000)},
		DefaultPromotionTable(d(5)),
	).WithClock(func() time.Time { return testNow })
}

func line(price int64, qty int) Line {
	return Line{ProductID: uuid.New(), UnitPrice: d(price), Quantity: qty}
}

func TestEngine_Quote_StandardTotals(t *testing.T) {
	e := newTestEngine()

	q, err := e.Quote(QuoteInput{
		Lines:   []Line{line(50000, 2), line(100000, 1)},
		TaxRate: decimal.RequireFromString("0.10"),
	})
	require.NoError(t, err)

	assert.True(t, d(200000).Equal(q.Subtotal))
	assert.True(t, d(20000).Equal(q.Tax))
	assert.True(t, d(30000).Equal(q.Shipping))
	assert.True(t, q.Discount.IsZero())
	assert.True(t, d(250000).Equal(q.Total), "total %s", q.Total)
}

func TestEngine_Quote_Discounts(t *testing.T) {
	e := newTestEngine()
	lines := []Line{line(1000000, 1)}

	t.Run("built-in promotion without prior cart discount", func(t *testing.T) {
		q, err := e.Quote(QuoteInput{Lines: lines, CouponCode: "save10"})
		require.NoError(t, err)
		assert.True(t, d(100000).Equal(q.Discount))
		assert.Equal(t, DiscountSourcePromotion, q.DiscountSource)
		assert.Equal(t, "SAVE10", q.CouponCode)
	})

	t.Run("unknown code falls back to minimal percentage", func(t *testing.T) {
		q, err := e.Quote(QuoteInput{Lines: lines, CouponCode: "WHATEVER"})
		require.NoError(t, err)
		assert.True(t, d(50000).Equal(q.Discount))
		assert.Equal(t, DiscountSourceFallback, q.DiscountSource)
	})

	t.Run("zero fallback disables unknown codes", func(t *testing.T) {
		strict := NewEngine(ShippingPolicy{}, DefaultPromotionTable(decimal.Zero))
		q, err := strict.Quote(QuoteInput{Lines: lines, CouponCode: "WHATEVER"})
		require.NoError(t, err)
		assert.True(t, q.Discount.IsZero())
		assert.Equal(t, DiscountSourceNone, q.DiscountSource)
	})

	t.Run("free shipping promotion", func(t *testing.T) {
		q, err := e.Quote(QuoteInput{Lines: []Line{line(1000, 1)}, CouponCode: "FREESHIP"})
		require.NoError(t, err)
		assert.True(t, q.Shipping.IsZero())
		assert.True(t, q.FreeShipping)
		assert.True(t, q.Discount.IsZero())
	})

	t.Run("manual discount beats coupon", func(t *testing.T) {
		manual := d(7000)
		q, err := e.Quote(QuoteInput{Lines: lines, CouponCode: "SAVE20", ManualDiscount: &manual})
		require.NoError(t, err)
		assert.True(t, manual.Equal(q.Discount))
		assert.Equal(t, DiscountSourceManual, q.DiscountSource)
		assert.Empty(t, q.CouponCode)
	})

	t.Run("cart-side discount is reused", func(t *testing.T) {
		q, err := e.Quote(QuoteInput{Lines: lines, CouponCode: "SAVE20", CartDiscount: d(12345)})
		require.NoError(t, err)
		assert.True(t, d(12345).Equal(q.Discount))
		assert.Equal(t, DiscountSourceCoupon, q.DiscountSource)

		q, err = e.Quote(QuoteInput{Lines: lines, CouponCode: "SAVE10", CartDiscount: d(5000), CartDiscountSource: DiscountSourcePromotion})
		require.NoError(t, err)
		assert.True(t, d(5000).Equal(q.Discount))
		assert.Equal(t, DiscountSourcePromotion, q.DiscountSource)
		assert.Equal(t, "SAVE10", q.CouponCode)
	})

	t.Run("stored coupon is validated", func(t *testing.T) {
		past := testNow.Add(-time.Hour)
		coupon := &Coupon{Code: "OLD", DiscountType: DiscountFixedAmount, DiscountValue: d(10), IsActive: true, ValidTo: &past}
		_, err := e.Quote(QuoteInput{Lines: lines, CouponCode: "OLD", Coupon: coupon})
		require.Error(t, err)
		de, ok := shared.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, shared.CodeCouponInvalid, de.Code)
		assert.Equal(t, string(CouponExpired), de.Details["reason"])
	})

	t.Run("total law holds", func(t *testing.T) {
		q, err := e.Quote(QuoteInput{Lines: lines, CouponCode: "SAVE15", TaxRate: decimal.RequireFromString("0.08")})
		require.NoError(t, err)
		assert.True(t, q.Subtotal.Sub(q.Discount).Add(q.Tax).Add(q.Shipping).Equal(q.Total))
	})
}

func TestEngine_ComputeShipping(t *testing.T) {
	e := newTestEngine()
	assert.True(t, e.ComputeShipping(d(100), true).IsZero())
	assert.True(t, d(30000).Equal(e.ComputeShipping(d(499999), false)))
	assert.True(t, e.ComputeShipping(d(500000), false).IsZero())

	noThreshold := NewEngine(ShippingPolicy{FlatFee: d(15)}, nil)
	assert.True(t, d(15).Equal(noThreshold.ComputeShipping(d(100000000), false)))
}

func TestEngine_Quote_Validation(t *testing.T) {
	e := newTestEngine()

	_, err := e.Quote(QuoteInput{})
	assert.True(t, shared.IsCode(err, shared.CodeValidation))

	_, err = e.Quote(QuoteInput{Lines: []Line{line(10, 0)}})
	assert.True(t, shared.IsCode(err, shared.CodeValidation))

	_, err = e.Quote(QuoteInput{Lines: []Line{line(10, 1)}, TaxRate: d(-1)})
	assert.True(t, shared.IsCode(err, shared.CodeValidation))
}
