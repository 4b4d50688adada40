package handler

import (
	"github.com/gin-gonic/gin"
	appevent "github.com/storefront/backend/internal/application/event"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// OutboxHandler handles outbox management HTTP requests
type OutboxHandler struct {
	BaseHandler
	outbox OutboxService
}

// NewOutboxHandler creates a new outbox handler
func NewOutboxHandler(outbox OutboxService) *OutboxHandler {
	return &OutboxHandler{outbox: outbox}
}

// DeadLetters lists entries that ran out of delivery attempts
func (h *OutboxHandler) DeadLetters(c *gin.Context) {
	var filter appevent.DeadLetterFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	page, err := h.outbox.DeadLetters(c.Request.Context(), actor(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Entries, page.Total, page.Page, page.PageSize)
}

// Retry requeues one dead entry
func (h *OutboxHandler) Retry(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	entry, err := h.outbox.Retry(c.Request.Context(), actor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// RetryAll requeues every dead entry
func (h *OutboxHandler) RetryAll(c *gin.Context) {
	n, err := h.outbox.RetryAll(c.Request.Context(), actor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"requeued": n})
}

// Stats counts entries per status
func (h *OutboxHandler) Stats(c *gin.Context) {
	stats, err := h.outbox.Stats(c.Request.Context(), actor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
