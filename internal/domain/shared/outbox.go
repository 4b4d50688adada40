package shared

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is where an outbox entry is in its delivery lifecycle:
// PENDING -> PROCESSING -> SENT, or FAILED and back to PROCESSING until the
// attempts run out and it becomes DEAD.
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

const (
	DefaultMaxRetries = 5
	// retry n waits BaseRetryBackoff * 2^(n-1), never more than MaxRetryBackoff
	BaseRetryBackoff = time.Second
	MaxRetryBackoff  = 5 * time.Minute
)

var (
	errNotDispatchable = errors.New("outbox entry is not pending or failed")
	errNotDead         = errors.New("outbox entry is not dead-lettered")
)

// OutboxEntry is one order or inventory event waiting for delivery to the
// bus. It commits in the same transaction as the aggregate that raised it,
// so a saved order never loses its OrderCancelled or OrderCompleted.
type OutboxEntry struct {
	BaseEntity
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
}

// NewOutboxEntry wraps a serialized event with the default retry budget
func NewOutboxEntry(event DomainEvent, payload []byte) *OutboxEntry {
	return &OutboxEntry{
		BaseEntity:    NewBaseEntity(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultMaxRetries,
	}
}

func (e *OutboxEntry) CanRetry() bool {
	return e.Status == OutboxStatusFailed && e.RetryCount < e.MaxRetries
}

func (e *OutboxEntry) IsDead() bool { return e.Status == OutboxStatusDead }

// MarkProcessing claims the entry for one delivery attempt
func (e *OutboxEntry) MarkProcessing() error {
	if e.Status != OutboxStatusPending && e.Status != OutboxStatusFailed {
		return errNotDispatchable
	}
	e.Status = OutboxStatusProcessing
	e.Touch()
	return nil
}

func (e *OutboxEntry) MarkSent() {
	now := e.Touch()
	e.Status = OutboxStatusSent
	e.ProcessedAt = &now
}

// MarkFailed records a failed attempt. The entry is dead-lettered once
// RetryCount reaches MaxRetries, otherwise the next attempt is scheduled.
func (e *OutboxEntry) MarkFailed(errMsg string) {
	now := e.Touch()
	e.RetryCount++
	e.LastError = errMsg
	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		e.NextRetryAt = nil
		return
	}
	e.Status = OutboxStatusFailed
	next := now.Add(RetryBackoff(e.RetryCount))
	e.NextRetryAt = &next
}

// ResetForRetry puts a dead entry back in the queue with a fresh budget
func (e *OutboxEntry) ResetForRetry() error {
	if e.Status != OutboxStatusDead {
		return errNotDead
	}
	e.Status = OutboxStatusPending
	e.RetryCount = 0
	e.LastError = ""
	e.NextRetryAt = nil
	e.Touch()
	return nil
}

// RetryBackoff is the wait before the given attempt, starting at 1
func RetryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 20 {
		return MaxRetryBackoff
	}
	return min(BaseRetryBackoff<<(attempt-1), MaxRetryBackoff)
}

// OutboxRepository stores outbox entries for the processor and the admin
// dead-letter endpoints
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	FindPending(ctx context.Context, limit int) ([]*OutboxEntry, error)
	// FindRetryable returns FAILED entries whose NextRetryAt is before the given time
	FindRetryable(ctx context.Context, before time.Time, limit int) ([]*OutboxEntry, error)
	FindDead(ctx context.Context, page, pageSize int) ([]*OutboxEntry, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*OutboxEntry, error)
	// MarkProcessing claims the entries that are still claimable and returns
	// only those, so two processors never deliver the same entry at once
	MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*OutboxEntry, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	// DeleteOlderThan purges SENT entries processed before the cutoff
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
