package inventory

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// NewInsufficientStockError reports that a product cannot cover the requested quantity
func NewInsufficientStockError(productID uuid.UUID, requested, available int) *shared.DomainError {
	if available < 0 {
		available = 0
	}
	return &shared.DomainError{
		Code:    shared.CodeInsufficientStock,
		Message: fmt.Sprintf("Insufficient stock for product %s: requested %d, available %d", productID, requested, available),
		Details: map[string]any{
			"product_id": productID.String(),
			"requested":  requested,
			"available":  available,
		},
	}
}

// NewInvalidReservationStateError reports an attempt to confirm more than is reserved
func NewInvalidReservationStateError(productID uuid.UUID, requested, reserved int) *shared.DomainError {
	return &shared.DomainError{
		Code:    shared.CodeInvalidReservationState,
		Message: fmt.Sprintf("Cannot confirm %d units of product %s: only %d reserved", requested, productID, reserved),
		Details: map[string]any{
			"product_id": productID.String(),
			"requested":  requested,
			"reserved":   reserved,
		},
	}
}
