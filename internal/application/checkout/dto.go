package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	apporder "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
)

// LineRequest is one product of a direct checkout
type LineRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

// Request describes one checkout attempt. Without Items the customer's cart is
// checked out.
type Request struct {
	Customer       shared.Actor
	IdempotencyKey string
	Strategy       order.CheckoutStrategy
	Items          []LineRequest
	CouponCode     string
	// ManualDiscount is honoured for staff callers only
	ManualDiscount  *decimal.Decimal
	IsPickup        *bool
	ShippingAddress string
	Notes           string
	CustomerIP      string
	UserAgent       string
}

// Result is a placed order. Replayed is true when an earlier checkout with the
// same idempotency key produced it.
type Result struct {
	Order    apporder.OrderResponse `json:"order"`
	Replayed bool                   `json:"replayed"`
}

// CheckoutRequest is the HTTP body of a checkout
type CheckoutRequest struct {
	Items           []LineRequest    `json:"items" binding:"omitempty,dive"`
	CouponCode      string           `json:"coupon_code" binding:"max=50"`
	ManualDiscount  *decimal.Decimal `json:"manual_discount"`
	IsPickup        *bool            `json:"is_pickup"`
	ShippingAddress string           `json:"shipping_address" binding:"max=500"`
	Notes           string           `json:"notes" binding:"max=1000"`
}
