package event

import (
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/order"
)

// RegisterAllEvents registers every event type that can land in the outbox so
// the OutboxProcessor is able to rebuild them.
func RegisterAllEvents(serializer *EventSerializer) {
	// Orders
	serializer.Register(order.EventTypeOrderCreated, &order.OrderCreatedEvent{})
	serializer.Register(order.EventTypeOrderStatusChanged, &order.OrderStatusChangedEvent{})
	serializer.Register(order.EventTypeOrderShipped, &order.OrderShippedEvent{})
	serializer.Register(order.EventTypeOrderCompleted, &order.OrderCompletedEvent{})
	serializer.Register(order.EventTypeOrderCancelled, &order.OrderCancelledEvent{})
	serializer.Register(order.EventTypeReturnRefunded, &order.ReturnRefundedEvent{})

	// Inventory ledger
	serializer.Register(inventory.EventTypeStockReserved, &inventory.StockReservedEvent{})
	serializer.Register(inventory.EventTypeStockReleased, &inventory.StockReleasedEvent{})
	serializer.Register(inventory.EventTypeStockConfirmed, &inventory.StockConfirmedEvent{})
	serializer.Register(inventory.EventTypeStockAdjusted, &inventory.StockAdjustedEvent{})
}
