package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/shared"
)

// Provisioning controls what happens when a product has no ledger row yet
type Provisioning struct {
	Enabled         bool
	DefaultQuantity int
}

// LoadOrProvision returns the ledger row for productID, creating one when
// provisioning is enabled. With provisioning disabled a missing row is
// shared.ErrNotFound. A row inserted concurrently by another writer surfaces
// as a concurrency conflict so RetryPolicy reloads it.
func (p Provisioning) LoadOrProvision(ctx context.Context, items inventory.InventoryItemRepository, productID uuid.UUID) (*inventory.InventoryItem, error) {
	item, err := items.FindByProductID(ctx, productID)
	if err == nil || !errors.Is(err, shared.ErrNotFound) || !p.Enabled {
		return item, err
	}

	item, err = inventory.NewInventoryItem(productID, max(p.DefaultQuantity, 0))
	if err != nil {
		return nil, err
	}
	if err := items.Save(ctx, item); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.ErrConcurrencyConflict.WithDetail("product_id", productID.String())
		}
		return nil, err
	}
	return item, nil
}

// ShortageIfMissing turns a missing ledger row into INSUFFICIENT_STOCK with
// nothing available; other errors pass through.
func ShortageIfMissing(err error, productID uuid.UUID, requested int) error {
	if errors.Is(err, shared.ErrNotFound) {
		return inventory.NewInsufficientStockError(productID, requested, 0)
	}
	return err
}
