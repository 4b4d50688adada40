package event

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestOutboxPublisher_SaveEventsCommitsWithTransaction(t *testing.T) {
	db := setupOutboxDB(t)
	serializer := NewEventSerializer()
	serializer.Register("OrderCreated", &testEvent{})
	publisher := NewOutboxPublisher(serializer)
	ctx := context.Background()

	evt := newTestEvent("OrderCreated")
	err := db.Transaction(func(tx *gorm.DB) error {
		return publisher.SaveEvents(ctx, tx, evt, newTestEvent("OrderCreated"))
	})
	require.NoError(t, err)

	pending, err := NewGormOutboxRepository(db).FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	ids := make([]uuid.UUID, 0, len(pending))
	for _, p := range pending {
		decoded, err := serializer.Deserialize(p.EventType, p.Payload)
		require.NoError(t, err)
		ids = append(ids, decoded.EventID())
	}
	assert.Contains(t, ids, evt.EventID())
}

func TestOutboxPublisher_RollbackDiscardsEvents(t *testing.T) {
	db := setupOutboxDB(t)
	publisher := NewOutboxPublisher(NewEventSerializer())
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := publisher.SaveEvents(ctx, tx, newTestEvent("OrderCreated")); err != nil {
			return err
		}
		return errors.New("order insert failed")
	})
	require.Error(t, err)

	counts, err := NewGormOutboxRepository(db).CountByStatus(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestOutboxPublisher_RejectsForeignTransaction(t *testing.T) {
	publisher := NewOutboxPublisher(NewEventSerializer())

	err := publisher.SaveEvents(context.Background(), "not a tx", newTestEvent("OrderCreated"))
	assert.ErrorContains(t, err, "*gorm.DB")

	assert.NoError(t, publisher.SaveEvents(context.Background(), nil))
}

func TestOutboxPublisher_WithMaxRetries(t *testing.T) {
	db := setupOutboxDB(t)
	ctx := context.Background()
	publisher := NewOutboxPublisher(NewEventSerializer(), WithMaxRetries(2))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return publisher.SaveEvents(ctx, tx, newTestEvent("OrderCompleted"))
	}))

	pending, err := NewGormOutboxRepository(db).FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].MaxRetries)

	entry := pending[0]
	entry.MarkFailed("broker down")
	assert.True(t, entry.CanRetry())
	entry.MarkFailed("broker down")
	assert.True(t, entry.IsDead())
}
