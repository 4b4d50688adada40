package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	appcheckout "github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// MaxIdempotencyKeyLength bounds X-Idempotency-Key
const MaxIdempotencyKeyLength = 255

// CheckoutHandler turns a cart or an explicit item list into an order
type CheckoutHandler struct {
	BaseHandler
	checkout CheckoutService
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkout CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// Checkout places an order.
//
//	POST /api/v1/checkout?strategy=standard|fast
//	X-Idempotency-Key: optional; a retry with the same key returns the first order
//
// A new order answers 201; a replayed one answers 200 with replayed=true.
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	strategy, ok := parseStrategy(c.Query("strategy"))
	if !ok {
		h.ValidationError(c, []dto.ValidationDetail{{
			Field:   "strategy",
			Message: "Must be one of: standard fast",
			Tag:     "oneof",
			Value:   c.Query("strategy"),
		}})
		return
	}

	key := strings.TrimSpace(c.GetHeader(middleware.IdempotencyKeyHeader))
	if len(key) > MaxIdempotencyKeyLength {
		h.ValidationError(c, []dto.ValidationDetail{{
			Field:   middleware.IdempotencyKeyHeader,
			Message: "Must be at most 255 characters",
			Tag:     "max",
		}})
		return
	}

	var body appcheckout.CheckoutRequest
	if !h.bindOptionalJSON(c, &body) {
		return
	}

	result, err := h.checkout.Checkout(c.Request.Context(), appcheckout.Request{
		Customer:        actor(c),
		IdempotencyKey:  key,
		Strategy:        strategy,
		Items:           body.Items,
		CouponCode:      body.CouponCode,
		ManualDiscount:  body.ManualDiscount,
		IsPickup:        body.IsPickup,
		ShippingAddress: body.ShippingAddress,
		Notes:           body.Notes,
		CustomerIP:      c.ClientIP(),
		UserAgent:       c.Request.UserAgent(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if result.Replayed {
		c.Header("Idempotent-Replayed", "true")
		c.JSON(http.StatusOK, dto.NewSuccessResponse(result))
		return
	}
	c.Header("Location", "/api/v1/orders/"+result.Order.ID.String())
	h.Created(c, result)
}

func parseStrategy(raw string) (order.CheckoutStrategy, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "standard":
		return order.StrategyStandard, true
	case "fast":
		return order.StrategyFast, true
	default:
		return "", false
	}
}
