package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"menu-service/internal/service"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type NATSBroadcaster struct {
	nc  *nats.Conn
	log *zap.Logger
}

func NewNATSBroadcaster(url string, log *zap.Logger) (*NATSBroadcaster, error) {
	nc, err := nats.Connect(url,
		nats.Name("menu-service"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	log.Info("NATS connected successfully", zap.String("url", url))
	return &NATSBroadcaster{nc: nc, log: log}, nil
}

func natsSubject(channel string) string { return strings.ReplaceAll(channel, ":", ".") }

// BroadcastStatus is synchronous in the client; the context is only checked up front.
func (n *NATSBroadcaster) BroadcastStatus(ctx context.Context, e service.OrderStatusChangedEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return n.nc.Publish(natsSubject(orderChannel(e.OrderID)), data)
}

func (n *NATSBroadcaster) Subscribe(ctx context.Context, fn Handler) (func(), error) {
	sub, err := n.nc.Subscribe("order.*", func(m *nats.Msg) {
		h, ok := decode(m.Data)
		if !ok {
			n.log.Warn("dropping malformed hint", zap.String("subject", m.Subject))
			return
		}
		fn(h)
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe: %w", err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

func (n *NATSBroadcaster) Close() error {
	n.nc.Close()
	return nil
}
