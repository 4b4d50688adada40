package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity is the identity and timestamps every stored record carries
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity stamps a fresh identity at the current time
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// Touch moves UpdatedAt to now and returns it
func (e *BaseEntity) Touch() time.Time {
	e.UpdatedAt = time.Now()
	return e.UpdatedAt
}

// AggregateRoot is what a repository needs to write an aggregate and hand
// the events it raised to the outbox in the same transaction
type AggregateRoot interface {
	BumpVersion()
	RaiseEvent(event DomainEvent)
	PendingEvents() []DomainEvent
	ClearEvents()
}

// BaseAggregateRoot is embedded by inventory items, orders, return requests
// and loyalty accounts. Version is the optimistic concurrency token: a write
// succeeds only while the stored version still matches, then bumps it.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
	pending []DomainEvent
}

func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

func (a *BaseAggregateRoot) BumpVersion() { a.Version++ }

func (a *BaseAggregateRoot) RaiseEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// PendingEvents returns events raised since the last flush
func (a *BaseAggregateRoot) PendingEvents() []DomainEvent { return a.pending }

func (a *BaseAggregateRoot) ClearEvents() { a.pending = nil }
