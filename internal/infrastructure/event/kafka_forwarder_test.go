package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaForwarder_WritesKeyedMessage(t *testing.T) {
	w := &recordingWriter{}
	f := NewKafkaForwarder(w, NewEventSerializer(), time.Second, zap.NewNop())

	o := &order.Order{BaseAggregateRoot: shared.BaseAggregateRoot{BaseEntity: shared.BaseEntity{ID: uuid.New()}}, OrderNumber: "SO-2026-00042"}
	evt := order.NewOrderCreatedEvent(o)
	require.NoError(t, f.Handle(context.Background(), evt))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, o.ID.String(), string(msg.Key))
	assert.Contains(t, string(msg.Value), "SO-2026-00042")
	assert.Contains(t, msg.Headers, kafka.Header{Key: "event_type", Value: []byte(order.EventTypeOrderCreated)})

	require.NoError(t, f.Close())
	assert.True(t, w.closed)
}

func TestKafkaForwarder_WriteError(t *testing.T) {
	w := &recordingWriter{err: errors.New("leader not available")}
	f := NewKafkaForwarder(w, NewEventSerializer(), 0, zap.NewNop())

	err := f.Handle(context.Background(), order.NewOrderCreatedEvent(&order.Order{BaseAggregateRoot: shared.BaseAggregateRoot{BaseEntity: shared.BaseEntity{ID: uuid.New()}}}))
	assert.ErrorContains(t, err, "leader not available")
}

func TestKafkaForwarder_EventTypes(t *testing.T) {
	f := NewKafkaForwarder(&recordingWriter{}, NewEventSerializer(), 0, zap.NewNop())
	assert.ElementsMatch(t, []string{
		order.EventTypeOrderCreated,
		order.EventTypeOrderCancelled,
		order.EventTypeOrderCompleted,
	}, f.EventTypes())
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter(config.KafkaConfig{
		Brokers:      []string{"kafka-1:9092", "kafka-2:9092"},
		Topic:        "storefront.orders",
		WriteTimeout: 3 * time.Second,
	})
	assert.Equal(t, "storefront.orders", w.Topic)
	assert.Equal(t, 3*time.Second, w.WriteTimeout)
	assert.Contains(t, w.Addr.String(), "kafka-1:9092")
}
