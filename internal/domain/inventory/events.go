package inventory

import (
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// AggregateTypeInventoryItem is the aggregate type of ledger events
const AggregateTypeInventoryItem = "InventoryItem"

// Event type constants
const (
	EventTypeStockReserved  = "StockReserved"
	EventTypeStockReleased  = "StockReleased"
	EventTypeStockConfirmed = "StockConfirmed"
	EventTypeStockAdjusted  = "StockAdjusted"
)

// StockReservedEvent is raised when units move from available to reserved
type StockReservedEvent struct {
	shared.BaseDomainEvent
	ProductID        uuid.UUID `json:"product_id"`
	Quantity         int       `json:"quantity"`
	ReservedQuantity int       `json:"reserved_quantity"`
}

// NewStockReservedEvent creates a new StockReservedEvent
func NewStockReservedEvent(item *InventoryItem, quantity int) *StockReservedEvent {
	return &StockReservedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeStockReserved, AggregateTypeInventoryItem, item.ID),
		ProductID:        item.ProductID,
		Quantity:         quantity,
		ReservedQuantity: item.ReservedQuantity,
	}
}

// EventType returns the event type name
func (e *StockReservedEvent) EventType() string {
	return EventTypeStockReserved
}

// StockReleasedEvent is raised when reserved units return to available
type StockReleasedEvent struct {
	shared.BaseDomainEvent
	ProductID         uuid.UUID `json:"product_id"`
	Quantity          int       `json:"quantity"`
	RequestedQuantity int       `json:"requested_quantity"`
}

// NewStockReleasedEvent creates a new StockReleasedEvent
func NewStockReleasedEvent(item *InventoryItem, released, requested int) *StockReleasedEvent {
	return &StockReleasedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeStockReleased, AggregateTypeInventoryItem, item.ID),
		ProductID:         item.ProductID,
		Quantity:          released,
		RequestedQuantity: requested,
	}
}

// EventType returns the event type name
func (e *StockReleasedEvent) EventType() string {
	return EventTypeStockReleased
}

// StockConfirmedEvent is raised when reserved units are sold
type StockConfirmedEvent struct {
	shared.BaseDomainEvent
	ProductID      uuid.UUID `json:"product_id"`
	Quantity       int       `json:"quantity"`
	QuantityOnHand int       `json:"quantity_on_hand"`
}

// NewStockConfirmedEvent creates a new StockConfirmedEvent
func NewStockConfirmedEvent(item *InventoryItem, quantity int) *StockConfirmedEvent {
	return &StockConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockConfirmed, AggregateTypeInventoryItem, item.ID),
		ProductID:       item.ProductID,
		Quantity:        quantity,
		QuantityOnHand:  item.QuantityOnHand,
	}
}

// EventType returns the event type name
func (e *StockConfirmedEvent) EventType() string {
	return EventTypeStockConfirmed
}

// StockAdjustedEvent is raised on manual corrections and restocks
type StockAdjustedEvent struct {
	shared.BaseDomainEvent
	ProductID   uuid.UUID `json:"product_id"`
	OldQuantity int       `json:"old_quantity"`
	NewQuantity int       `json:"new_quantity"`
	Delta       int       `json:"delta"`
	Reason      string    `json:"reason"`
}

// NewStockAdjustedEvent creates a new StockAdjustedEvent
func NewStockAdjustedEvent(item *InventoryItem, oldQuantity, delta int, reason string) *StockAdjustedEvent {
	return &StockAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAdjusted, AggregateTypeInventoryItem, item.ID),
		ProductID:       item.ProductID,
		OldQuantity:     oldQuantity,
		NewQuantity:     item.QuantityOnHand,
		Delta:           delta,
		Reason:          reason,
	}
}

// EventType returns the event type name
func (e *StockAdjustedEvent) EventType() string {
	return EventTypeStockAdjusted
}
