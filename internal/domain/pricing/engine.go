package pricing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

var hundred = decimal.NewFromInt(100)

func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// DiscountSource records where an order's discount came from
type DiscountSource string

const (
	DiscountSourceNone      DiscountSource = ""
	DiscountSourceManual    DiscountSource = "MANUAL"
	DiscountSourceCoupon    DiscountSource = "COUPON"
	DiscountSourcePromotion DiscountSource = "PROMOTION"
	DiscountSourceFallback  DiscountSource = "FALLBACK"
)

// Line is one priced line of a cart or order
type Line struct {
	ProductID uuid.UUID
	UnitPrice decimal.Decimal
	Quantity  int
}

// Total returns unit price times quantity
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ShippingPolicy is a flat fee waived above a threshold. A zero threshold never waives.
type ShippingPolicy struct {
	FlatFee               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

// Engine prices carts and orders
type Engine struct {
	shipping   ShippingPolicy
	promotions PromotionPolicy
	now        func() time.Time
}

// NewEngine creates a pricing engine
func NewEngine(shipping ShippingPolicy, promotions PromotionPolicy) *Engine {
	return &Engine{shipping: shipping, promotions: promotions, now: time.Now}
}

// WithClock returns a copy of the engine using the given clock
func (e *Engine) WithClock(now func() time.Time) *Engine {
	cp := *e
	cp.now = now
	return &cp
}

// ComputeSubtotal sums unit price times quantity over lines
func (e *Engine) ComputeSubtotal(lines []Line) decimal.Decimal {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Total())
	}
	return roundMoney(subtotal)
}

// ComputeCouponDiscount validates coupon against subtotal and returns its discount
func (e *Engine) ComputeCouponDiscount(coupon *Coupon, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if coupon == nil {
		return decimal.Zero, NewCouponInvalidError("", CouponUnknown)
	}
	if err := coupon.Validate(subtotal, e.now()); err != nil {
		return decimal.Zero, err
	}
	return coupon.DiscountFor(subtotal)
}

// ComputeShipping returns the shipping fee for a subtotal
func (e *Engine) ComputeShipping(subtotal decimal.Decimal, isPickup bool) decimal.Decimal {
	if isPickup {
		return decimal.Zero
	}
	if e.shipping.FreeShippingThreshold.IsPositive() && subtotal.GreaterThanOrEqual(e.shipping.FreeShippingThreshold) {
		return decimal.Zero
	}
	return e.shipping.FlatFee
}

// ComputeTax applies rate to subtotal
func (e *Engine) ComputeTax(subtotal, rate decimal.Decimal) decimal.Decimal {
	return roundMoney(subtotal.Mul(rate))
}

// QuoteInput carries everything that influences an order's money fields
type QuoteInput struct {
	Lines    []Line
	IsPickup bool
	TaxRate  decimal.Decimal
	// ManualDiscount is a staff-entered amount; it wins over any coupon
	ManualDiscount *decimal.Decimal
	// CartDiscount is the discount already computed when the coupon was applied to the cart
	CartDiscount decimal.Decimal
	// CartDiscountSource is where CartDiscount came from; empty means a stored coupon
	CartDiscountSource DiscountSource
	CouponCode         string
	// Coupon is the stored coupon for CouponCode, nil when the code is not in the store
	Coupon *Coupon
}

// Quote is the priced result
type Quote struct {
	Subtotal       decimal.Decimal
	Discount       decimal.Decimal
	DiscountSource DiscountSource
	CouponCode     string
	Tax            decimal.Decimal
	Shipping       decimal.Decimal
	Total          decimal.Decimal
	FreeShipping   bool
}

// Quote runs a complete pricing pass. At most one discount applies.
func (e *Engine) Quote(in QuoteInput) (Quote, error) {
	if len(in.Lines) == 0 {
		return Quote{}, shared.NewValidationError("Cannot price an empty order")
	}
	for _, l := range in.Lines {
		if l.Quantity <= 0 {
			return Quote{}, shared.NewValidationError("Line quantity must be positive")
		}
		if l.UnitPrice.IsNegative() {
			return Quote{}, shared.NewValidationError("Unit price cannot be negative")
		}
	}
	if in.TaxRate.IsNegative() {
		return Quote{}, shared.NewValidationError("Tax rate cannot be negative")
	}

	q := Quote{}
	q.Subtotal = e.ComputeSubtotal(in.Lines)
	q.Shipping = e.ComputeShipping(q.Subtotal, in.IsPickup)
	q.Tax = e.ComputeTax(q.Subtotal, in.TaxRate)

	code := NormalizeCode(in.CouponCode)
	switch {
	case in.ManualDiscount != nil && in.ManualDiscount.IsPositive():
		q.Discount = roundMoney(decimal.Min(*in.ManualDiscount, q.Subtotal))
		q.DiscountSource = DiscountSourceManual
	case in.CartDiscount.IsPositive():
		q.Discount = roundMoney(decimal.Min(in.CartDiscount, q.Subtotal))
		q.DiscountSource = in.CartDiscountSource
		if q.DiscountSource == DiscountSourceNone {
			q.DiscountSource = DiscountSourceCoupon
		}
		q.CouponCode = code
	case code != "" && in.Coupon != nil:
		discount, err := e.ComputeCouponDiscount(in.Coupon, q.Subtotal)
		if err != nil {
			return Quote{}, err
		}
		q.Discount = discount
		q.DiscountSource = DiscountSourceCoupon
		q.CouponCode = code
	case code != "" && e.promotions != nil:
		e.applyPromotion(&q, code)
	}

	q.Total = q.Subtotal.Sub(q.Discount).Add(q.Tax).Add(q.Shipping)
	return q, nil
}

func (e *Engine) applyPromotion(q *Quote, code string) {
	if promo, ok := e.promotions.Lookup(code); ok {
		q.CouponCode = code
		q.DiscountSource = DiscountSourcePromotion
		if promo.Percent.IsPositive() {
			q.Discount = roundMoney(q.Subtotal.Mul(promo.Percent).Div(hundred))
		}
		if promo.FreeShipping {
			q.Shipping = decimal.Zero
			q.FreeShipping = true
		}
		return
	}
	if fallback := e.promotions.FallbackPercent(); fallback.IsPositive() {
		q.CouponCode = code
		q.DiscountSource = DiscountSourceFallback
		q.Discount = roundMoney(q.Subtotal.Mul(fallback).Div(hundred))
	}
}
