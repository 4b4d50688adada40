package event

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// IdempotencyStats is a snapshot of an IdempotentHandler's counters
type IdempotencyStats struct {
	EventsProcessed int64 `json:"events_processed"`
	EventsDuplicate int64 `json:"events_duplicate"`
	EventsFailed    int64 `json:"events_failed"`
}

// IdempotentHandler wraps an EventHandler so redelivered events (same event
// id) are acknowledged without running the wrapped handler again.
type IdempotentHandler struct {
	handler  shared.EventHandler
	store    shared.IdempotencyStore
	ttl      time.Duration
	disabled bool
	logger   *zap.Logger

	processed atomic.Int64
	duplicate atomic.Int64
	failed    atomic.Int64
}

// IdempotentHandlerOption is a functional option for IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// DefaultEventKeyTTL bounds how long a handled event id is remembered
const DefaultEventKeyTTL = 24 * time.Hour

// WithKeyTTL overrides how long event ids are remembered
func WithKeyTTL(ttl time.Duration) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		if ttl > 0 {
			h.ttl = ttl
		}
	}
}

// WithDeduplicationDisabled turns the wrapper into a pass-through
func WithDeduplicationDisabled() IdempotentHandlerOption {
	return func(h *IdempotentHandler) { h.disabled = true }
}

// NewIdempotentHandler wraps handler
func NewIdempotentHandler(handler shared.EventHandler, store shared.IdempotencyStore, log *zap.Logger, opts ...IdempotentHandlerOption) *IdempotentHandler {
	h := &IdempotentHandler{
		handler: handler,
		store:   store,
		ttl:     DefaultEventKeyTTL,
		logger:  log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EventTypes delegates to the wrapped handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle runs the wrapped handler unless the event id was already marked.
// When the store is unreachable the event is processed anyway. A failed run
// forgets the key so the outbox retry can process it again.
func (h *IdempotentHandler) Handle(ctx context.Context, evt shared.DomainEvent) error {
	if h.disabled {
		return h.handler.Handle(ctx, evt)
	}

	key := "event:" + evt.EventID().String()
	fields := []zap.Field{
		zap.String("event_id", evt.EventID().String()),
		zap.String("event_type", evt.EventType()),
	}

	isNew, err := h.store.MarkProcessed(ctx, key, h.ttl)
	switch {
	case err != nil:
		h.logger.Warn("idempotency check failed, processing anyway", append(fields, zap.Error(err))...)
	case !isNew:
		h.duplicate.Add(1)
		h.logger.Debug("duplicate event skipped", fields...)
		return nil
	}

	if err := h.handler.Handle(ctx, evt); err != nil {
		h.failed.Add(1)
		if rmErr := h.store.Remove(ctx, key); rmErr != nil {
			h.logger.Warn("failed to clear idempotency key", append(fields, zap.Error(rmErr))...)
		}
		return err
	}
	h.processed.Add(1)
	return nil
}

// Stats returns the handler's counters
func (h *IdempotentHandler) Stats() IdempotencyStats {
	return IdempotencyStats{
		EventsProcessed: h.processed.Load(),
		EventsDuplicate: h.duplicate.Load(),
		EventsFailed:    h.failed.Load(),
	}
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
