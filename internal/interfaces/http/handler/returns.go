package handler

import (
	"github.com/gin-gonic/gin"
	apporder "github.com/storefront/backend/internal/application/order"
)

// ReturnHandler handles return requests against delivered orders
type ReturnHandler struct {
	BaseHandler
	returns ReturnService
}

// NewReturnHandler creates a new return handler
func NewReturnHandler(returns ReturnService) *ReturnHandler {
	return &ReturnHandler{returns: returns}
}

// Request opens a return for one order line
func (h *ReturnHandler) Request(c *gin.Context) {
	orderID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req apporder.CreateReturnRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.returns.Request(c.Request.Context(), actor(c), orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ListForOrder lists the returns opened against an order
func (h *ReturnHandler) ListForOrder(c *gin.Context) {
	orderID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	list, err := h.returns.ListForOrder(c.Request.Context(), actor(c), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, list)
}

// Get returns one return request
func (h *ReturnHandler) Get(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	h.respond(c)(h.returns.Get(c.Request.Context(), actor(c), id))
}

// Approve accepts a pending return
func (h *ReturnHandler) Approve(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	h.respond(c)(h.returns.Approve(c.Request.Context(), actor(c), id))
}

// Reject declines a pending return
func (h *ReturnHandler) Reject(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req apporder.RejectReturnRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.returns.Reject(c.Request.Context(), actor(c), id, req))
}

// Refund records the refund of an approved return
func (h *ReturnHandler) Refund(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	h.respond(c)(h.returns.Refund(c.Request.Context(), actor(c), id))
}

func (h *ReturnHandler) respond(c *gin.Context) func(*apporder.ReturnResponse, error) {
	return func(resp *apporder.ReturnResponse, err error) {
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, resp)
	}
}
