package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InventoryItemRepository defines the interface for ledger persistence
type InventoryItemRepository interface {
	FindByProductID(ctx context.Context, productID uuid.UUID) (*InventoryItem, error)

	// FindByProductIDs returns the ledger rows that exist; missing products are simply absent
	FindByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]*InventoryItem, error)

	// Save inserts a new ledger row
	Save(ctx context.Context, item *InventoryItem) error

	// SaveWithLock updates the row only if its stored version still equals item.Version,
	// then advances item.Version. A stale version yields shared.ErrConcurrencyConflict.
	SaveWithLock(ctx context.Context, item *InventoryItem) error
}

// StockReservationRepository defines the interface for reservation persistence
type StockReservationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*StockReservation, error)

	// FindActiveByReference returns active reservations of one holder, optionally narrowed to a product
	FindActiveByReference(ctx context.Context, refType ReferenceType, refID string, productID *uuid.UUID) ([]*StockReservation, error)

	// FindExpired returns active reservations whose hold window ended before the given time
	FindExpired(ctx context.Context, before time.Time, limit int) ([]*StockReservation, error)

	// SaveAll upserts the given reservation records
	SaveAll(ctx context.Context, reservations ...*StockReservation) error
}
