package kanban

import (
	"context"
	"fmt"
	"menu-service/internal/changefeed"
	"menu-service/internal/transport/http/ws"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Feed follows the service websocket. It satisfies realtime.Source.
type Feed struct {
	url     string
	dialer  *websocket.Dialer
	onEvent func(changefeed.Event)
	log     *zap.Logger
}

func NewFeed(url string, onEvent func(changefeed.Event), log *zap.Logger) *Feed {
	return &Feed{url: url, dialer: websocket.DefaultDialer, onEvent: onEvent, log: log}
}

func (f *Feed) Subscribe(ctx context.Context, onReady func()) error {
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial feed: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		_ = conn.Close()
	}()

	for {
		var msg ws.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read feed: %w", err)
		}
		switch msg.Type {
		case ws.MessageReady:
			if onReady != nil {
				onReady()
			}
		case ws.MessageChange:
			if msg.Change != nil && msg.Change.New != nil {
				f.onEvent(*msg.Change)
			}
		case ws.MessageHint:
			// the change feed carries the row itself
			if msg.Hint != nil {
				f.log.Debug("status hint", zap.Stringer("order_id", msg.Hint.OrderID))
			}
		}
	}
}
