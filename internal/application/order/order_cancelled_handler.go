package order

import (
	"context"
	"fmt"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// OrderCancelledAuditHandler writes an audit log line for every cancellation,
// including the units that went back to stock
type OrderCancelledAuditHandler struct {
	logger *zap.Logger
}

// NewOrderCancelledAuditHandler creates the audit handler. logger should be the
// audit logger so the lines can be routed apart from application logs.
func NewOrderCancelledAuditHandler(logger *zap.Logger) *OrderCancelledAuditHandler {
	return &OrderCancelledAuditHandler{logger: logger.Named("audit")}
}

// EventTypes returns the event types this handler is interested in
func (h *OrderCancelledAuditHandler) EventTypes() []string {
	return []string{order.EventTypeOrderCancelled}
}

// Handle logs the cancellation
func (h *OrderCancelledAuditHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	cancelled, ok := event.(*order.OrderCancelledEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			order.EventTypeOrderCancelled, event.EventType())
	}

	units := 0
	for _, it := range cancelled.Items {
		units += it.Quantity
	}
	h.logger.Info("order cancelled",
		zap.String("event_id", cancelled.EventID().String()),
		zap.String("order_id", cancelled.OrderID.String()),
		zap.String("order_number", cancelled.OrderNumber),
		zap.String("customer_id", cancelled.CustomerID.String()),
		zap.String("previous_status", string(cancelled.PreviousStatus)),
		zap.String("strategy", string(cancelled.Strategy)),
		zap.String("reason", cancelled.Reason),
		zap.Int("lines", len(cancelled.Items)),
		zap.Int("units", units),
		zap.Time("occurred_at", cancelled.OccurredAt()),
	)
	return nil
}
