package event

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventSerializer_RegisterAndTypes(t *testing.T) {
	s := NewEventSerializer()
	s.Register("B", &testEvent{})
	s.Register("A", &testEvent{})

	assert.True(t, s.IsRegistered("A"))
	assert.False(t, s.IsRegistered("C"))
	assert.Equal(t, []string{"A", "B"}, s.RegisteredTypes())
}

func TestEventSerializer_RoundTrip(t *testing.T) {
	s := NewEventSerializer()
	s.Register("TestEvent", &testEvent{})
	original := newTestEvent("TestEvent")

	data, err := s.Serialize(original)
	require.NoError(t, err)

	decoded, err := s.Deserialize("TestEvent", data)
	require.NoError(t, err)

	got, ok := decoded.(*testEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventID(), got.EventID())
	assert.Equal(t, original.AggregateID(), got.AggregateID())
	assert.Equal(t, "TestAggregate", got.AggregateType())
	assert.Equal(t, "test data", got.Data)
	assert.True(t, original.OccurredAt().Equal(got.OccurredAt()))
}

func TestEventSerializer_DeserializeErrors(t *testing.T) {
	s := NewEventSerializer()
	s.Register("TestEvent", &testEvent{})

	_, err := s.Deserialize("Unknown", []byte(`{}`))
	assert.ErrorContains(t, err, "unknown event type")

	_, err = s.Deserialize("TestEvent", []byte(`{not json`))
	assert.ErrorContains(t, err, "failed to unmarshal")
}

func TestRegisterAllEvents_OrderCreatedSurvivesOutbox(t *testing.T) {
	s := NewEventSerializer()
	RegisterAllEvents(s)

	o := &order.Order{
		BaseAggregateRoot: shared.BaseAggregateRoot{BaseEntity: shared.BaseEntity{ID: uuid.New()}},
		CustomerID:        uuid.New(),
		CustomerEmail:     "buyer@example.com",
		OrderNumber:       "SO-2026-00001",
		TotalAmount:       decimal.NewFromInt(250000),
		Strategy:          order.StrategyStandard,
	}
	evt := order.NewOrderCreatedEvent(o)

	data, err := s.Serialize(evt)
	require.NoError(t, err)
	decoded, err := s.Deserialize(order.EventTypeOrderCreated, data)
	require.NoError(t, err)

	got := decoded.(*order.OrderCreatedEvent)
	assert.Equal(t, order.EventTypeOrderCreated, got.EventType())
	assert.Equal(t, o.ID, got.AggregateID())
	assert.Equal(t, "SO-2026-00001", got.OrderNumber)
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(250000)))

	for _, name := range []string{
		order.EventTypeOrderCancelled,
		order.EventTypeOrderCompleted,
		order.EventTypeReturnRefunded,
	} {
		assert.True(t, s.IsRegistered(name), name)
	}
}
