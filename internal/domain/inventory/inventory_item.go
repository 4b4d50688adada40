package inventory

import (
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// InventoryItem is the authoritative stock ledger for one product.
// QuantityOnHand counts physical units, ReservedQuantity counts units held by carts
// and orders that have not yet been confirmed or released.
//
// Invariant: 0 <= ReservedQuantity <= QuantityOnHand.
type InventoryItem struct {
	shared.BaseAggregateRoot
	ProductID        uuid.UUID
	QuantityOnHand   int
	ReservedQuantity int
}

// NewInventoryItem creates a ledger row for a product with an initial on-hand quantity
func NewInventoryItem(productID uuid.UUID, initialQuantity int) (*InventoryItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewValidationError("Product ID cannot be empty")
	}
	if initialQuantity < 0 {
		return nil, shared.NewValidationError("Initial quantity cannot be negative")
	}
	return &InventoryItem{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         productID,
		QuantityOnHand:    initialQuantity,
	}, nil
}

// AvailableQuantity returns the units that can still be reserved
func (i *InventoryItem) AvailableQuantity() int {
	return i.QuantityOnHand - i.ReservedQuantity
}

// CanReserve reports whether quantity units are available right now
func (i *InventoryItem) CanReserve(quantity int) bool {
	return quantity > 0 && i.AvailableQuantity() >= quantity
}

// ReserveStock moves quantity from available into reserved
func (i *InventoryItem) ReserveStock(quantity int) error {
	if quantity <= 0 {
		return shared.NewValidationError("Reserve quantity must be positive")
	}
	if i.AvailableQuantity() < quantity {
		return NewInsufficientStockError(i.ProductID, quantity, i.AvailableQuantity())
	}

	i.ReservedQuantity += quantity
	i.Touch()
	i.RaiseEvent(NewStockReservedEvent(i, quantity))
	return nil
}

// ReleaseReservedStock gives reserved units back to available. Requests larger than
// the current reservation are clamped; the returned clamped flag lets callers log the
// inconsistency. A non-positive quantity is a no-op.
func (i *InventoryItem) ReleaseReservedStock(quantity int) (released int, clamped bool) {
	if quantity <= 0 {
		return 0, false
	}
	released = quantity
	if released > i.ReservedQuantity {
		released = i.ReservedQuantity
		clamped = true
	}
	if released == 0 {
		return 0, clamped
	}

	i.ReservedQuantity -= released
	i.Touch()
	i.RaiseEvent(NewStockReleasedEvent(i, released, quantity))
	return released, clamped
}

// ConfirmReservedStock converts a reservation into a sale: the units leave both the
// reserved pool and the shelf.
func (i *InventoryItem) ConfirmReservedStock(quantity int) error {
	if quantity <= 0 {
		return shared.NewValidationError("Confirm quantity must be positive")
	}
	if i.ReservedQuantity < quantity {
		return NewInvalidReservationStateError(i.ProductID, quantity, i.ReservedQuantity)
	}

	i.ReservedQuantity -= quantity
	i.QuantityOnHand -= quantity
	i.Touch()
	i.RaiseEvent(NewStockConfirmedEvent(i, quantity))
	return nil
}

// AdjustStock applies a signed correction to the on-hand quantity (restock, shrinkage,
// cancellation return). The result may not drop below what is already reserved.
func (i *InventoryItem) AdjustStock(delta int, reason string) error {
	if delta == 0 {
		return shared.NewValidationError("Adjustment quantity cannot be zero")
	}
	if reason == "" {
		return shared.NewValidationError("Adjustment reason is required")
	}
	newOnHand := i.QuantityOnHand + delta
	if newOnHand < i.ReservedQuantity {
		return NewInsufficientStockError(i.ProductID, -delta, i.AvailableQuantity())
	}

	old := i.QuantityOnHand
	i.QuantityOnHand = newOnHand
	i.Touch()
	i.RaiseEvent(NewStockAdjustedEvent(i, old, delta, reason))
	return nil
}
