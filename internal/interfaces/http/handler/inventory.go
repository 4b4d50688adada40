package handler

import (
	"github.com/gin-gonic/gin"
)

// AdjustStockRequest is a signed correction of on-hand stock
type AdjustStockRequest struct {
	Delta  int    `json:"delta" binding:"required"`
	Reason string `json:"reason" binding:"required,max=255"`
}

// InventoryHandler exposes ledger rows. Routes are staff only.
type InventoryHandler struct {
	BaseHandler
	inventory InventoryService
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventory InventoryService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

// Get returns on-hand, reserved and available quantities for a product
func (h *InventoryHandler) Get(c *gin.Context) {
	productID, ok := h.parseUUIDParam(c, "product_id")
	if !ok {
		return
	}
	level, err := h.inventory.Stock(c.Request.Context(), productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, level)
}

// Adjust applies a correction; adjusting an unknown product seeds its row
func (h *InventoryHandler) Adjust(c *gin.Context) {
	productID, ok := h.parseUUIDParam(c, "product_id")
	if !ok {
		return
	}
	var req AdjustStockRequest
	if !h.bindJSON(c, &req) {
		return
	}
	level, err := h.inventory.Adjust(c.Request.Context(), productID, req.Delta, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, level)
}
