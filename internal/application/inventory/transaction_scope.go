package inventory

import (
	"context"

	"github.com/storefront/backend/internal/domain/inventory"
)

// TransactionScope runs ledger and reservation writes atomically. If fn returns
// an error every write made through repos is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the repositories bound to one transaction.
// The ledger row is the aggregate; reservations are persisted alongside it so
// that SUM(active reservations) and ReservedQuantity never diverge.
type TransactionalRepositories interface {
	Items() inventory.InventoryItemRepository
	Reservations() inventory.StockReservationRepository
}
