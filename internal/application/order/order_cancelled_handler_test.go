package order

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestOrderCancelledAuditHandler(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := NewOrderCancelledAuditHandler(zap.New(core))
	assert.Equal(t, []string{order.EventTypeOrderCancelled}, h.EventTypes())

	orderID := uuid.New()
	evt := &order.OrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(order.EventTypeOrderCancelled, order.AggregateTypeOrder, orderID),
		OrderID:         orderID,
		OrderNumber:     "SO-2026-00042",
		PreviousStatus:  order.OrderStatusConfirmed,
		Reason:          "customer changed their mind",
		Strategy:        order.StrategyStandard,
		Items: []order.OrderLineSnapshot{
			{ProductID: uuid.New(), Quantity: 2, UnitPrice: decimal.NewFromInt(100)},
			{ProductID: uuid.New(), Quantity: 1, UnitPrice: decimal.NewFromInt(50)},
		},
	}
	require.NoError(t, h.Handle(context.Background(), evt))

	entries := logs.FilterMessage("order cancelled").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "audit", entries[0].LoggerName)
	fields := entries[0].ContextMap()
	assert.Equal(t, "SO-2026-00042", fields["order_number"])
	assert.Equal(t, int64(3), fields["units"])
	assert.Equal(t, string(order.OrderStatusConfirmed), fields["previous_status"])

	other := &order.OrderCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(order.EventTypeOrderCompleted, order.AggregateTypeOrder, orderID),
	}
	assert.Error(t, h.Handle(context.Background(), other))
}
