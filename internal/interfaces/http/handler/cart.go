package handler

import (
	"github.com/gin-gonic/gin"
	appcart "github.com/storefront/backend/internal/application/cart"
)

// CartHandler exposes the caller's cart
type CartHandler struct {
	BaseHandler
	carts CartService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

// Get returns the cart, creating an empty one on first use
func (h *CartHandler) Get(c *gin.Context) {
	h.respond(c)(h.carts.Get(c.Request.Context(), actor(c)))
}

// AddItem adds units of a product and reserves them
func (h *CartHandler) AddItem(c *gin.Context) {
	var req appcart.AddItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.carts.AddItem(c.Request.Context(), actor(c), req))
}

// UpdateItem sets a line's quantity; zero removes the line
func (h *CartHandler) UpdateItem(c *gin.Context) {
	productID, ok := h.parseUUIDParam(c, "product_id")
	if !ok {
		return
	}
	var req appcart.UpdateItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.carts.UpdateItem(c.Request.Context(), actor(c), productID, req))
}

// RemoveItem drops a line and releases its reservation
func (h *CartHandler) RemoveItem(c *gin.Context) {
	productID, ok := h.parseUUIDParam(c, "product_id")
	if !ok {
		return
	}
	h.respond(c)(h.carts.RemoveItem(c.Request.Context(), actor(c), productID))
}

// ApplyCoupon attaches a coupon code
func (h *CartHandler) ApplyCoupon(c *gin.Context) {
	var req appcart.ApplyCouponRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.carts.ApplyCoupon(c.Request.Context(), actor(c), req))
}

// RemoveCoupon detaches the coupon
func (h *CartHandler) RemoveCoupon(c *gin.Context) {
	h.respond(c)(h.carts.RemoveCoupon(c.Request.Context(), actor(c)))
}

// SetShipping switches between delivery and pickup
func (h *CartHandler) SetShipping(c *gin.Context) {
	var req appcart.SetShippingRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.carts.SetShipping(c.Request.Context(), actor(c), req))
}

// Clear empties the cart
func (h *CartHandler) Clear(c *gin.Context) {
	h.respond(c)(h.carts.Clear(c.Request.Context(), actor(c)))
}

func (h *CartHandler) respond(c *gin.Context) func(*appcart.CartResponse, error) {
	return func(resp *appcart.CartResponse, err error) {
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, resp)
	}
}
