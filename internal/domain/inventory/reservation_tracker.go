package inventory

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// SplitResult describes the records touched by a partial release or fulfilment.
// Consumed holds the records that changed status, Remainder the new ACTIVE record
// created for a leftover (nil when no split happened). Unmatched is the part of the
// request that no active reservation covered.
type SplitResult struct {
	Consumed  []*StockReservation
	Remainder *StockReservation
	Matched   int
	Unmatched int
}

// Changed returns every record that must be persisted after the operation
func (s SplitResult) Changed() []*StockReservation {
	out := make([]*StockReservation, 0, len(s.Consumed)+1)
	out = append(out, s.Consumed...)
	if s.Remainder != nil {
		out = append(out, s.Remainder)
	}
	return out
}

// ReservationTracker creates reservation records and applies partial consumption to
// them. It never touches the ledger: callers pair it with InventoryItem operations.
type ReservationTracker struct {
	now func() time.Time
}

// NewReservationTracker creates a tracker using the wall clock
func NewReservationTracker() *ReservationTracker {
	return &ReservationTracker{now: time.Now}
}

// NewReservationTrackerWithClock creates a tracker with an injected clock
func NewReservationTrackerWithClock(now func() time.Time) *ReservationTracker {
	return &ReservationTracker{now: now}
}

// CreateReservation opens an ACTIVE reservation expiring holdHours from now
func (t *ReservationTracker) CreateReservation(
	inventoryItemID, productID uuid.UUID,
	quantity int,
	referenceID string,
	referenceType ReferenceType,
	holdHours float64,
) (*StockReservation, error) {
	if quantity <= 0 {
		return nil, shared.NewValidationError("Reservation quantity must be positive")
	}
	if referenceID == "" {
		return nil, shared.NewValidationError("Reservation reference ID is required")
	}
	if !referenceType.IsValid() {
		return nil, shared.NewValidationError("Invalid reservation reference type")
	}
	if holdHours <= 0 {
		return nil, shared.NewValidationError("Reservation hold must be positive")
	}

	now := t.now()
	entity := shared.NewBaseEntity()
	entity.CreatedAt, entity.UpdatedAt = now, now
	return &StockReservation{
		BaseEntity:      entity,
		InventoryItemID: inventoryItemID,
		ProductID:       productID,
		Quantity:        quantity,
		ReferenceID:     referenceID,
		ReferenceType:   referenceType,
		Status:          ReservationActive,
		ReservedAt:      now,
		ExpiresAt:       now.Add(time.Duration(holdHours * float64(time.Hour))),
	}, nil
}

// ReleasePartial releases quantity units from the given reservations, newest first
func (t *ReservationTracker) ReleasePartial(reservations []*StockReservation, quantity int, reason string) SplitResult {
	return t.consume(reservations, quantity, func(r *StockReservation, now time.Time) error {
		return r.Release(reason, now)
	})
}

// FulfillPartial marks quantity units of the given reservations as sold, newest first
func (t *ReservationTracker) FulfillPartial(reservations []*StockReservation, quantity int) SplitResult {
	return t.consume(reservations, quantity, func(r *StockReservation, now time.Time) error {
		return r.Fulfill(now)
	})
}

func (t *ReservationTracker) consume(
	reservations []*StockReservation,
	quantity int,
	closeFn func(*StockReservation, time.Time) error,
) SplitResult {
	result := SplitResult{}
	if quantity <= 0 {
		return result
	}

	active := make([]*StockReservation, 0, len(reservations))
	for _, r := range reservations {
		if r.IsActive() {
			active = append(active, r)
		}
	}
	sort.SliceStable(active, func(a, b int) bool {
		return active[a].ReservedAt.After(active[b].ReservedAt)
	})

	now := t.now()
	remaining := quantity
	for _, r := range active {
		if remaining == 0 {
			break
		}
		take := r.Quantity
		if take > remaining {
			take = remaining
		}
		leftover := r.Quantity - take

		if err := closeFn(r, now); err != nil {
			continue
		}
		result.Consumed = append(result.Consumed, r)
		remaining -= take

		if leftover > 0 {
			result.Remainder = t.split(r, leftover, now)
		}
	}

	result.Matched = quantity - remaining
	result.Unmatched = remaining
	return result
}

// split opens the leftover record; it inherits the original hold window.
func (t *ReservationTracker) split(original *StockReservation, leftover int, now time.Time) *StockReservation {
	entity := shared.NewBaseEntity()
	entity.CreatedAt, entity.UpdatedAt = now, now
	parentID := original.ID
	return &StockReservation{
		BaseEntity:      entity,
		InventoryItemID: original.InventoryItemID,
		ProductID:       original.ProductID,
		Quantity:        leftover,
		ReferenceID:     original.ReferenceID,
		ReferenceType:   original.ReferenceType,
		Status:          ReservationActive,
		ReservedAt:      original.ReservedAt,
		ExpiresAt:       original.ExpiresAt,
		ParentID:        &parentID,
	}
}
