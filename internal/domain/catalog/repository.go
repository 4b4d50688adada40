package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository is the checkout's view of the catalog store
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDs returns the products that exist; callers detect missing ids themselves
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)

	Save(ctx context.Context, product *Product) error

	// DecrementStock lowers the display counter unconditionally (never below zero)
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error

	// IncrementStock raises the display counter, used when orders are cancelled
	IncrementStock(ctx context.Context, id uuid.UUID, quantity int) error

	// DecrementStockIfAvailable lowers the counter only when it still covers quantity.
	// It returns false when the counter was too low.
	DecrementStockIfAvailable(ctx context.Context, id uuid.UUID, quantity int) (bool, error)
}
