package handler

import (
	"github.com/gin-gonic/gin"
	apployalty "github.com/storefront/backend/internal/application/loyalty"
)

// LoyaltyHandler exposes point balances
type LoyaltyHandler struct {
	BaseHandler
	loyalty LoyaltyService
}

// NewLoyaltyHandler creates a new loyalty handler
func NewLoyaltyHandler(loyalty LoyaltyService) *LoyaltyHandler {
	return &LoyaltyHandler{loyalty: loyalty}
}

// Get returns the caller's account
func (h *LoyaltyHandler) Get(c *gin.Context) {
	h.respond(c)(h.loyalty.Get(c.Request.Context(), actor(c)))
}

// Redeem spends points from the caller's account
func (h *LoyaltyHandler) Redeem(c *gin.Context) {
	var req apployalty.RedeemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.loyalty.Redeem(c.Request.Context(), actor(c), req))
}

// GetForUser returns another user's account (staff)
func (h *LoyaltyHandler) GetForUser(c *gin.Context) {
	userID, ok := h.parseUUIDParam(c, "user_id")
	if !ok {
		return
	}
	h.respond(c)(h.loyalty.GetFor(c.Request.Context(), actor(c), userID))
}

// Adjust corrects another user's balance (staff)
func (h *LoyaltyHandler) Adjust(c *gin.Context) {
	userID, ok := h.parseUUIDParam(c, "user_id")
	if !ok {
		return
	}
	var req apployalty.AdjustRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.loyalty.Adjust(c.Request.Context(), actor(c), userID, req))
}

func (h *LoyaltyHandler) respond(c *gin.Context) func(*apployalty.AccountResponse, error) {
	return func(resp *apployalty.AccountResponse, err error) {
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, resp)
	}
}
