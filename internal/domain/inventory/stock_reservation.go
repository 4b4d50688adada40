package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// ReferenceType identifies what holds a reservation
type ReferenceType string

const (
	ReferenceCart  ReferenceType = "CART"
	ReferenceOrder ReferenceType = "ORDER"
)

// IsValid checks if the reference type is known
func (r ReferenceType) IsValid() bool {
	return r == ReferenceCart || r == ReferenceOrder
}

// ReservationStatus is the lifecycle state of a reservation record
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationReleased  ReservationStatus = "RELEASED"
	ReservationFulfilled ReservationStatus = "FULFILLED"
)

// Release reasons recorded on reservation records
const (
	ReleaseReasonCartUpdated   = "cart quantity reduced"
	ReleaseReasonCartCleared   = "cart cleared"
	ReleaseReasonItemRemoved   = "item removed from cart"
	ReleaseReasonExpired       = "reservation expired"
	ReleaseReasonOrderCanceled = "order cancelled"
)

// StockReservation is an auditable hold of stock by a cart or order. Records are
// never resized: partial consumption closes the record and opens a new ACTIVE one
// for the leftover (see ReservationTracker).
type StockReservation struct {
	shared.BaseEntity
	InventoryItemID uuid.UUID
	ProductID       uuid.UUID
	Quantity        int
	ReferenceID     string
	ReferenceType   ReferenceType
	Status          ReservationStatus
	ReservedAt      time.Time
	ExpiresAt       time.Time
	ReleaseReason   string
	ReleasedAt      *time.Time
	FulfilledAt     *time.Time
	ParentID        *uuid.UUID
}

// IsActive returns true while the reservation still holds stock
func (r *StockReservation) IsActive() bool {
	return r.Status == ReservationActive
}

// IsExpired returns true if an active reservation is past its hold window
func (r *StockReservation) IsExpired(now time.Time) bool {
	return r.IsActive() && now.After(r.ExpiresAt)
}

// Release closes the reservation without a sale
func (r *StockReservation) Release(reason string, now time.Time) error {
	if !r.IsActive() {
		return shared.NewDomainError(shared.CodeInvalidReservationState, "Only active reservations can be released")
	}
	r.Status = ReservationReleased
	r.ReleaseReason = reason
	r.ReleasedAt = &now
	r.UpdatedAt = now
	return nil
}

// Fulfill closes the reservation as sold
func (r *StockReservation) Fulfill(now time.Time) error {
	if !r.IsActive() {
		return shared.NewDomainError(shared.CodeInvalidReservationState, "Only active reservations can be fulfilled")
	}
	r.Status = ReservationFulfilled
	r.FulfilledAt = &now
	r.UpdatedAt = now
	return nil
}

// SumActive totals the quantity held by the active reservations in rs
func SumActive(rs []*StockReservation) int {
	total := 0
	for _, r := range rs {
		if r.IsActive() {
			total += r.Quantity
		}
	}
	return total
}
