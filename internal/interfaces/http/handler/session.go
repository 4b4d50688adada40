package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// RevokeUserTokensRequest cuts off every token a user holds
type RevokeUserTokensRequest struct {
	// TTLSeconds should cover the longest token lifetime; zero uses the configured default
	TTLSeconds int    `json:"ttl_seconds" binding:"omitempty,min=1"`
	Reason     string `json:"reason" binding:"max=255"`
}

// SessionHandler revokes bearer tokens. Tokens are issued elsewhere.
type SessionHandler struct {
	BaseHandler
	revocations auth.RevocationList
	defaultTTL  time.Duration
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(revocations auth.RevocationList, defaultTTL time.Duration) *SessionHandler {
	return &SessionHandler{revocations: revocations, defaultTTL: defaultTTL}
}

// Logout revokes the bearer token the request was made with
func (h *SessionHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil || claims.ID == "" {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Logout requires a bearer token")
		return
	}
	ttl := claims.GetRemainingTTL()
	if ttl <= 0 {
		c.Status(http.StatusNoContent)
		return
	}
	if err := h.revocations.RevokeToken(c.Request.Context(), claims.ID, ttl); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RevokeUser invalidates every token issued to a user before now (staff)
func (h *SessionHandler) RevokeUser(c *gin.Context) {
	userID, ok := h.parseUUIDParam(c, "user_id")
	if !ok {
		return
	}
	var req RevokeUserTokensRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}
	caller := actor(c)
	if !caller.HasRole(shared.RoleAdmin) && !caller.HasRole(shared.RoleManager) {
		h.HandleError(c, shared.ErrForbidden)
		return
	}

	ttl := h.defaultTTL
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}
	if err := h.revocations.RevokeUser(c.Request.Context(), userID.String(), ttl); err != nil {
		h.HandleError(c, err)
		return
	}
	logger.GetGinLogger(c).Info("User tokens revoked",
		zap.String("target_user_id", userID.String()),
		zap.String("by", caller.Name()),
		zap.String("reason", req.Reason),
		zap.Duration("ttl", ttl),
	)
	c.Status(http.StatusNoContent)
}
