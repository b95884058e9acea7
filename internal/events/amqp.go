package events

import (
	"context"
	"fmt"
	"menu-service/internal/service"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const DefaultExchange = "order_events_fanout"

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPBus fans order events out to every queue bound to the exchange.
type AMQPBus struct {
	conn     *amqp.Connection
	ch       publisher
	exchange string
	log      *zap.Logger
}

func NewAMQPBus(url, exchange string, log *zap.Logger) (*AMQPBus, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	log.Info("RabbitMQ connected successfully", zap.String("exchange", exchange))
	return &AMQPBus{conn: conn, ch: ch, exchange: exchange, log: log}, nil
}

func (b *AMQPBus) PublishOrderCreated(ctx context.Context, e service.OrderCreatedEvent) error {
	return b.publish(ctx, TypeOrderCreated, e.CreatedAt, e)
}

func (b *AMQPBus) PublishOrderStatusChanged(ctx context.Context, e service.OrderStatusChangedEvent) error {
	return b.publish(ctx, TypeOrderStatusChanged, e.ChangedAt, e)
}

func (b *AMQPBus) publish(ctx context.Context, typ string, at time.Time, payload any) error {
	body, err := encode(typ, at, payload)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return b.ch.PublishWithContext(ctx, b.exchange, "", false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Type:         typ,
		Body:         body,
		Timestamp:    at,
	})
}

func (b *AMQPBus) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}
