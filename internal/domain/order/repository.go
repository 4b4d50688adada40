package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// OrderFilter narrows order list queries
type OrderFilter struct {
	shared.Filter
	CustomerID *uuid.UUID
	Status     *OrderStatus
}

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
	FindAll(ctx context.Context, filter OrderFilter) ([]Order, int64, error)
	FindHistory(ctx context.Context, orderID uuid.UUID) ([]OrderHistory, error)

	// Save inserts a new order with its items and history
	Save(ctx context.Context, o *Order) error

	// SaveWithLock updates status fields under a version check and appends pending history
	SaveWithLock(ctx context.Context, o *Order) error

	ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error)

	// GenerateOrderNumber returns the next free SO-YYYY-NNNNN number
	GenerateOrderNumber(ctx context.Context) (string, error)
}

// ReturnRequestRepository defines the interface for return request persistence
type ReturnRequestRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ReturnRequest, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]ReturnRequest, error)
	Save(ctx context.Context, r *ReturnRequest) error
	SaveWithLock(ctx context.Context, r *ReturnRequest) error
}
