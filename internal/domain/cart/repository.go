package cart

import (
	"context"

	"github.com/google/uuid"
)

// CartRepository defines the interface for cart persistence
type CartRepository interface {
	// FindByCustomerID returns shared.ErrNotFound when the customer has no cart yet
	FindByCustomerID(ctx context.Context, customerID uuid.UUID) (*Cart, error)

	// Save upserts the cart and replaces its lines
	Save(ctx context.Context, cart *Cart) error
}
