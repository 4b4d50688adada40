package loyalty

import (
	"context"
	"fmt"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// OrderCompletedHandler credits loyalty points when an order completes.
// Register it behind an idempotent wrapper; a redelivered event would credit twice.
type OrderCompletedHandler struct {
	service *Service
	logger  *zap.Logger
}

// NewOrderCompletedHandler creates a new handler for order completed events
func NewOrderCompletedHandler(service *Service, logger *zap.Logger) *OrderCompletedHandler {
	return &OrderCompletedHandler{service: service, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *OrderCompletedHandler) EventTypes() []string {
	return []string{order.EventTypeOrderCompleted}
}

// Handle credits the order's customer
func (h *OrderCompletedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	completed, ok := event.(*order.OrderCompletedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", order.EventTypeOrderCompleted),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			order.EventTypeOrderCompleted, event.EventType())
	}

	points, err := h.service.EarnForOrder(ctx, completed.CustomerID, completed.OrderNumber, completed.TotalAmount)
	if err != nil {
		h.logger.Error("failed to credit loyalty points",
			zap.String("order_id", completed.OrderID.String()),
			zap.String("customer_id", completed.CustomerID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to credit loyalty points: %w", err)
	}

	h.logger.Info("loyalty points credited",
		zap.String("order_number", completed.OrderNumber),
		zap.String("customer_id", completed.CustomerID.String()),
		zap.Int("points", points),
	)
	return nil
}
