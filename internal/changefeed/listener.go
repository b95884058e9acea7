package changefeed

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Listener holds one dedicated connection in LISTEN mode.
type Listener struct {
	connString string
	channel    string
	filter     Filter
	handler    func(Event)
	log        *zap.Logger
}

func NewListener(connString, channel string, filter Filter, handler func(Event), log *zap.Logger) *Listener {
	if filter == nil {
		filter = func(Event) bool { return true }
	}
	return &Listener{
		connString: connString,
		channel:    channel,
		filter:     filter,
		handler:    handler,
		log:        log,
	}
}

// Subscribe blocks delivering events until ctx is done or the connection
// fails. onReady fires once LISTEN is in effect.
func (l *Listener) Subscribe(ctx context.Context, onReady func()) error {
	conn, err := pgx.Connect(ctx, l.connString)
	if err != nil {
		return fmt.Errorf("connect change feed: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	l.log.Info("change feed subscribed", zap.String("channel", l.channel))
	if onReady != nil {
		onReady()
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		ev, err := Decode([]byte(n.Payload))
		if err != nil {
			l.log.Warn("dropping change event", zap.Error(err))
			continue
		}
		if l.filter(ev) {
			l.handler(ev)
		}
	}
}
