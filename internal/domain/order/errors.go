package order

import (
	"fmt"

	"github.com/storefront/backend/internal/domain/shared"
)

// NewInvalidTransitionError reports a status change outside the transition table
func NewInvalidTransitionError(from, to OrderStatus) *shared.DomainError {
	return &shared.DomainError{
		Code:    shared.CodeInvalidOrderTransition,
		Message: fmt.Sprintf("Cannot move order from %s to %s", from, to),
		Details: map[string]any{
			"from": string(from),
			"to":   string(to),
		},
	}
}
