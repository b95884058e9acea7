// Package broadcast sends the low-latency per-order status hint. Delivery is
// best effort; the change feed stays the source of truth.
package broadcast

import (
	"context"
	"encoding/json"
	"menu-service/internal/service"

	"github.com/google/uuid"
)

// Hint is what subscribers receive.
type Hint = service.OrderStatusChangedEvent

type Handler func(h Hint)

// Subscriber is implemented by both drivers; the websocket hub relays hints
// published by other service instances.
type Subscriber interface {
	Subscribe(ctx context.Context, fn Handler) (func(), error)
}

func orderChannel(id uuid.UUID) string { return "order:" + id.String() }

func decode(data []byte) (Hint, bool) {
	var h Hint
	if err := json.Unmarshal(data, &h); err != nil || h.OrderID == uuid.Nil {
		return Hint{}, false
	}
	return h, true
}
