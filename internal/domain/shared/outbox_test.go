package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	BaseDomainEvent
}

func newTestEntry() *OutboxEntry {
	evt := &testEvent{BaseDomainEvent: NewBaseDomainEvent("OrderCreated", "Order", uuid.New())}
	return NewOutboxEntry(evt, []byte(`{}`))
}

func TestNewOutboxEntry(t *testing.T) {
	evt := &testEvent{BaseDomainEvent: NewBaseDomainEvent("OrderCreated", "Order", uuid.New())}
	entry := NewOutboxEntry(evt, []byte(`{"a":1}`))

	assert.Equal(t, evt.EventID(), entry.EventID)
	assert.Equal(t, "OrderCreated", entry.EventType)
	assert.Equal(t, "Order", entry.AggregateType)
	assert.Equal(t, evt.AggregateID(), entry.AggregateID)
	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Equal(t, DefaultMaxRetries, entry.MaxRetries)
}

func TestOutboxEntry_Lifecycle(t *testing.T) {
	t.Run("pending to sent", func(t *testing.T) {
		entry := newTestEntry()
		require.NoError(t, entry.MarkProcessing())
		assert.Equal(t, OutboxStatusProcessing, entry.Status)

		entry.MarkSent()
		assert.Equal(t, OutboxStatusSent, entry.Status)
		assert.NotNil(t, entry.ProcessedAt)
	})

	t.Run("processing cannot be marked processing again", func(t *testing.T) {
		entry := newTestEntry()
		require.NoError(t, entry.MarkProcessing())
		assert.Error(t, entry.MarkProcessing())
	})

	t.Run("failure schedules retry with backoff", func(t *testing.T) {
		entry := newTestEntry()
		before := time.Now()
		entry.MarkFailed("broker down")

		assert.Equal(t, OutboxStatusFailed, entry.Status)
		assert.Equal(t, 1, entry.RetryCount)
		require.NotNil(t, entry.NextRetryAt)
		assert.True(t, entry.NextRetryAt.After(before))
		assert.True(t, entry.CanRetry())
	})

	t.Run("exhausted retries become dead letters", func(t *testing.T) {
		entry := newTestEntry()
		for i := 0; i < entry.MaxRetries; i++ {
			entry.MarkFailed("boom")
		}
		assert.True(t, entry.IsDead())
		assert.False(t, entry.CanRetry())

		require.NoError(t, entry.ResetForRetry())
		assert.Equal(t, OutboxStatusPending, entry.Status)
		assert.Zero(t, entry.RetryCount)
		assert.Empty(t, entry.LastError)
	})

	t.Run("only dead entries can be reset", func(t *testing.T) {
		entry := newTestEntry()
		assert.Error(t, entry.ResetForRetry())
	})
}

func TestRetryBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: time.Second},
		{attempt: 1, want: time.Second},
		{attempt: 2, want: 2 * time.Second},
		{attempt: 5, want: 16 * time.Second},
		{attempt: 9, want: 256 * time.Second},
		{attempt: 10, want: MaxRetryBackoff},
		{attempt: 64, want: MaxRetryBackoff},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RetryBackoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestOutboxEntry_DeadLetterClearsSchedule(t *testing.T) {
	entry := newTestEntry()
	entry.MaxRetries = 2
	entry.MarkFailed("first")
	require.NotNil(t, entry.NextRetryAt)

	entry.MarkFailed("second")
	assert.True(t, entry.IsDead())
	assert.Nil(t, entry.NextRetryAt)
	assert.Equal(t, "second", entry.LastError)
}
