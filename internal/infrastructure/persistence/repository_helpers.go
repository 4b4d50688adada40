package persistence

import (
	"context"
	"errors"

	"github.com/storefront/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// translateNotFound maps gorm's missing-row error onto the domain sentinel
func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

// flushEvents writes the aggregate's pending events to the outbox on tx and
// clears them. A nil saver leaves the events on the aggregate.
func flushEvents(ctx context.Context, tx *gorm.DB, saver shared.OutboxEventSaver, agg shared.AggregateRoot) error {
	if saver == nil {
		return nil
	}
	events := agg.PendingEvents()
	if len(events) == 0 {
		return nil
	}
	if err := saver.SaveEvents(ctx, tx, events...); err != nil {
		return err
	}
	agg.ClearEvents()
	return nil
}
