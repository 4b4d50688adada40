package order

import (
	"time"

	"github.com/google/uuid"
)

// SystemActor is recorded when no user drove a status change
const SystemActor = "System"

// OrderHistory is one append-only entry of an order's status trail
type OrderHistory struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	FromStatus OrderStatus
	ToStatus   OrderStatus
	ChangedBy  string
	Notes      string
	ChangedAt  time.Time
}
