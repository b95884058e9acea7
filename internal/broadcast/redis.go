package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"menu-service/internal/service"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisBroadcaster struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisBroadcaster(addr, password string, db int, log *zap.Logger) (*RedisBroadcaster, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("Redis connected successfully", zap.String("addr", addr))

	return &RedisBroadcaster{client: rdb, log: log}, nil
}

func (r *RedisBroadcaster) Close() error {
	return r.client.Close()
}

// BroadcastStatus publishes on the order's own channel.
func (r *RedisBroadcaster) BroadcastStatus(ctx context.Context, e service.OrderStatusChangedEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.client.Publish(ctx, orderChannel(e.OrderID), data).Err()
}

// Subscribe listens on every order channel until the returned func is called.
func (r *RedisBroadcaster) Subscribe(ctx context.Context, fn Handler) (func(), error) {
	ps := r.client.PSubscribe(ctx, "order:*")
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis psubscribe: %w", err)
	}
	go func() {
		for msg := range ps.Channel() {
			h, ok := decode([]byte(msg.Payload))
			if !ok {
				r.log.Warn("dropping malformed hint", zap.String("channel", msg.Channel))
				continue
			}
			fn(h)
		}
	}()
	return func() { _ = ps.Close() }, nil
}
