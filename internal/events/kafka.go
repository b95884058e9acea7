package events

import (
	"context"
	"menu-service/internal/service"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaBus publishes order events keyed by order id so a partition sees one
// order's history in sequence.
type KafkaBus struct {
	writer messageWriter
}

func NewKafkaBus(brokers []string, topic string) *KafkaBus {
	return &KafkaBus{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func (b *KafkaBus) PublishOrderCreated(ctx context.Context, e service.OrderCreatedEvent) error {
	return b.send(ctx, e.OrderID.String(), TypeOrderCreated, e.CreatedAt, e)
}

func (b *KafkaBus) PublishOrderStatusChanged(ctx context.Context, e service.OrderStatusChangedEvent) error {
	return b.send(ctx, e.OrderID.String(), TypeOrderStatusChanged, e.ChangedAt, e)
}

func (b *KafkaBus) send(ctx context.Context, key, typ string, at time.Time, payload any) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	value, err := encode(typ, at, payload)
	if err != nil {
		return err
	}
	return b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(typ)},
		},
	})
}

func (b *KafkaBus) Close() error {
	return b.writer.Close()
}
