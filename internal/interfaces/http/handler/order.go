package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apporder "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// OrderHandler handles order reads and lifecycle transitions. Customers see
// and cancel their own orders; every other transition is staff only, which
// the service enforces.
type OrderHandler struct {
	BaseHandler
	orders OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// List returns a page of orders. Customers only get their own.
func (h *OrderHandler) List(c *gin.Context) {
	var filter apporder.OrderListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	filter.Page = max(filter.Page, 1)
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}

	items, total, err := h.orders.List(c.Request.Context(), actor(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}

// Get returns one order
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	h.respond(c)(h.orders.Get(c.Request.Context(), actor(c), id))
}

// History returns the order's status changes, oldest first
func (h *OrderHandler) History(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	history, err := h.orders.History(c.Request.Context(), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, history)
}

// Confirm moves a draft order to confirmed
func (h *OrderHandler) Confirm(c *gin.Context) { h.transition(c, h.orders.Confirm) }

// Pay records payment
func (h *OrderHandler) Pay(c *gin.Context) { h.transition(c, h.orders.MarkPaid) }

// Fulfill marks a paid order as being picked
func (h *OrderHandler) Fulfill(c *gin.Context) { h.transition(c, h.orders.Fulfill) }

// Deliver marks a shipped order as delivered
func (h *OrderHandler) Deliver(c *gin.Context) { h.transition(c, h.orders.Deliver) }

// Complete closes a delivered order and triggers loyalty points
func (h *OrderHandler) Complete(c *gin.Context) { h.transition(c, h.orders.Complete) }

// Reset sends a cancelled order back to draft
func (h *OrderHandler) Reset(c *gin.Context) { h.transition(c, h.orders.ResetToDraft) }

// Ship records the tracking number and marks the order shipped
func (h *OrderHandler) Ship(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req apporder.ShipOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.orders.Ship(c.Request.Context(), actor(c), id, req))
}

// Cancel cancels the order and returns its stock
func (h *OrderHandler) Cancel(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req apporder.CancelOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.orders.Cancel(c.Request.Context(), actor(c), id, req))
}

type transitionFunc func(ctx context.Context, actor shared.Actor, id uuid.UUID, req apporder.TransitionRequest) (*apporder.OrderResponse, error)

// transition runs a status change whose body, carrying optional notes, may be omitted
func (h *OrderHandler) transition(c *gin.Context, fn transitionFunc) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req apporder.TransitionRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}
	h.respond(c)(fn(c.Request.Context(), actor(c), id, req))
}

func (h *OrderHandler) respond(c *gin.Context) func(*apporder.OrderResponse, error) {
	return func(resp *apporder.OrderResponse, err error) {
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, resp)
	}
}
