package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// DiscountType is how a coupon's value is interpreted
type DiscountType string

const (
	DiscountPercentage  DiscountType = "PERCENTAGE"
	DiscountFixedAmount DiscountType = "FIXED_AMOUNT"
)

// CouponRejection is the sub-reason attached to a COUPON_INVALID error
type CouponRejection string

const (
	CouponExpired         CouponRejection = "EXPIRED"
	CouponNotYetValid     CouponRejection = "NOT_YET_VALID"
	CouponInactive        CouponRejection = "INACTIVE"
	CouponUsageExhausted  CouponRejection = "USAGE_EXHAUSTED"
	CouponBelowMinimum    CouponRejection = "BELOW_MINIMUM"
	CouponUnknown         CouponRejection = "UNKNOWN_CODE"
	CouponAlreadyApplied  CouponRejection = "ALREADY_APPLIED"
	CouponUnsupportedType CouponRejection = "UNSUPPORTED_TYPE"
)

// Coupon is a stored discount code
type Coupon struct {
	Code           string
	DiscountType   DiscountType
	DiscountValue  decimal.Decimal
	MinOrderAmount decimal.Decimal
	MaxDiscount    *decimal.Decimal
	UsageLimit     *int
	UsedCount      int
	ValidFrom      *time.Time
	ValidTo        *time.Time
	IsActive       bool
}

// NormalizeCode canonicalises a coupon code for lookup
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NewCouponInvalidError builds a COUPON_INVALID error with its sub-reason
func NewCouponInvalidError(code string, reason CouponRejection) *shared.DomainError {
	return &shared.DomainError{
		Code:    shared.CodeCouponInvalid,
		Message: fmt.Sprintf("Coupon %s cannot be applied: %s", code, strings.ToLower(string(reason))),
		Details: map[string]any{
			"coupon_code": code,
			"reason":      string(reason),
		},
	}
}

// Validate checks whether the coupon applies to an order with the given subtotal at now
func (c *Coupon) Validate(subtotal decimal.Decimal, now time.Time) error {
	switch {
	case !c.IsActive:
		return NewCouponInvalidError(c.Code, CouponInactive)
	case c.ValidFrom != nil && now.Before(*c.ValidFrom):
		return NewCouponInvalidError(c.Code, CouponNotYetValid)
	case c.ValidTo != nil && now.After(*c.ValidTo):
		return NewCouponInvalidError(c.Code, CouponExpired)
	case c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit:
		return NewCouponInvalidError(c.Code, CouponUsageExhausted)
	case subtotal.LessThan(c.MinOrderAmount):
		return NewCouponInvalidError(c.Code, CouponBelowMinimum)
	}
	return nil
}

// DiscountFor computes the discount the coupon grants on subtotal. The result never
// exceeds the subtotal.
func (c *Coupon) DiscountFor(subtotal decimal.Decimal) (decimal.Decimal, error) {
	var discount decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		discount = subtotal.Mul(c.DiscountValue).Div(hundred)
		if c.MaxDiscount != nil && discount.GreaterThan(*c.MaxDiscount) {
			discount = *c.MaxDiscount
		}
	case DiscountFixedAmount:
		discount = c.DiscountValue
	default:
		return decimal.Zero, NewCouponInvalidError(c.Code, CouponUnsupportedType)
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return roundMoney(discount), nil
}
