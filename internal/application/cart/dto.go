package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/cart"
)

// CartItemResponse represents a cart line in API responses
type CartItemResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// CartResponse represents a cart in API responses
type CartResponse struct {
	ID             uuid.UUID          `json:"id"`
	CustomerID     uuid.UUID          `json:"customer_id"`
	Items          []CartItemResponse `json:"items"`
	CouponCode     string             `json:"coupon_code,omitempty"`
	DiscountSource string             `json:"discount_source,omitempty"`
	Subtotal       decimal.Decimal    `json:"subtotal"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	TaxAmount      decimal.Decimal    `json:"tax_amount"`
	ShippingAmount decimal.Decimal    `json:"shipping_amount"`
	IsPickup       bool               `json:"is_pickup"`
	Total          decimal.Decimal    `json:"total"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// ToCartResponse converts a cart to its response
func ToCartResponse(c *cart.Cart) CartResponse {
	items := make([]CartItemResponse, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, CartItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			LineTotal:   it.LineTotal,
		})
	}
	return CartResponse{
		ID:             c.ID,
		CustomerID:     c.CustomerID,
		Items:          items,
		CouponCode:     c.CouponCode,
		DiscountSource: string(c.DiscountSource),
		Subtotal:       c.Subtotal,
		DiscountAmount: c.DiscountAmount,
		TaxAmount:      c.TaxAmount,
		ShippingAmount: c.ShippingAmount,
		IsPickup:       c.IsPickup,
		Total:          c.Total,
		UpdatedAt:      c.UpdatedAt,
	}
}

// AddItemRequest adds units of a product
type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1,max=999"`
}

// UpdateItemRequest sets a line's quantity; zero removes it
type UpdateItemRequest struct {
	Quantity int `json:"quantity" binding:"min=0,max=999"`
}

// ApplyCouponRequest applies a discount code
type ApplyCouponRequest struct {
	Code string `json:"code" binding:"required,max=50"`
}

// SetShippingRequest picks the delivery mode
type SetShippingRequest struct {
	IsPickup bool `json:"is_pickup"`
}
