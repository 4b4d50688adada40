package event

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// MessageWriter is the subset of *kafka.Writer the forwarder needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaForwarder publishes order lifecycle events to a Kafka topic for
// downstream consumers. Messages are keyed by aggregate id so every event of
// one order lands on the same partition.
type KafkaForwarder struct {
	writer     MessageWriter
	serializer *EventSerializer
	timeout    time.Duration
	logger     *zap.Logger
}

// NewKafkaWriter builds a hash-balanced writer for the configured topic
func NewKafkaWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// NewKafkaForwarder creates a forwarder writing through w
func NewKafkaForwarder(w MessageWriter, serializer *EventSerializer, timeout time.Duration, log *zap.Logger) *KafkaForwarder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KafkaForwarder{
		writer:     w,
		serializer: serializer,
		timeout:    timeout,
		logger:     log.Named("kafka"),
	}
}

// EventTypes lists the forwarded order events
func (f *KafkaForwarder) EventTypes() []string {
	return []string{
		order.EventTypeOrderCreated,
		order.EventTypeOrderCancelled,
		order.EventTypeOrderCompleted,
	}
}

// Handle writes one message per event
func (f *KafkaForwarder) Handle(ctx context.Context, evt shared.DomainEvent) error {
	payload, err := f.serializer.Serialize(evt)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(evt.AggregateID().String()),
		Value: payload,
		Time:  evt.OccurredAt().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.EventType())},
			{Key: "event_id", Value: []byte(evt.EventID().String())},
		},
	}
	if err := f.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write %s: %w", evt.EventType(), err)
	}
	f.logger.Debug("event forwarded",
		zap.String("event_type", evt.EventType()),
		zap.String("aggregate_id", evt.AggregateID().String()),
	)
	return nil
}

// Close flushes and closes the writer
func (f *KafkaForwarder) Close() error {
	return f.writer.Close()
}

var _ shared.EventHandler = (*KafkaForwarder)(nil)
