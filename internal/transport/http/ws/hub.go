// Package ws pushes order changes to connected staff clients.
package ws

import (
	"context"
	"menu-service/internal/broadcast"
	"menu-service/internal/changefeed"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type MessageType string

const (
	// MessageReady is the first frame on every connection; clients resync on it.
	MessageReady  MessageType = "ready"
	MessageChange MessageType = "change"
	MessageHint   MessageType = "hint"
)

type Message struct {
	Type   MessageType       `json:"type"`
	Change *changefeed.Event `json:"change,omitempty"`
	Hint   *broadcast.Hint   `json:"hint,omitempty"`
}

const (
	sendBuffer = 32
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// ClientObserver is told about connects and disconnects.
type ClientObserver interface {
	ClientConnected()
	ClientDisconnected()
}

type client struct {
	conn *websocket.Conn
	send chan Message
}

// Hub fans change-feed events out to every connected client.
type Hub struct {
	clients    map[*client]struct{}
	broadcast  chan Message
	register   chan *client
	unregister chan *client
	done       chan struct{}
	observer   ClientObserver
	log        *zap.Logger
}

func NewHub(observer ClientObserver, log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan Message, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		observer:   observer,
		log:        log,
	}
}

// Run owns the client set until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			if h.observer != nil {
				h.observer.ClientConnected()
			}

		case c := <-h.unregister:
			h.drop(c)

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.log.Warn("ws client too slow, dropping")
					h.drop(c)
				}
			}

		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	if h.observer != nil {
		h.observer.ClientDisconnected()
	}
}

// PublishChange is the change-feed handler.
func (h *Hub) PublishChange(ev changefeed.Event) {
	h.publish(Message{Type: MessageChange, Change: &ev})
}

// PublishHint relays a broadcast hint from another instance.
func (h *Hub) PublishHint(hint broadcast.Hint) {
	h.publish(Message{Type: MessageHint, Hint: &hint})
}

func (h *Hub) publish(msg Message) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades GET /ws/orders. Authentication runs before it.
func (h *Hub) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("ws upgrade error", zap.Error(err))
		return
	}
	cl := &client{conn: conn, send: make(chan Message, sendBuffer)}
	cl.send <- Message{Type: MessageReady}

	select {
	case h.register <- cl:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go h.writePump(cl)
	go h.readPump(cl)
}

// readPump only watches for close frames and keeps the pong deadline.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
