package realtime

import "github.com/google/uuid"

type NoticeKind string

const (
	NoticeConflict     NoticeKind = "conflict"
	NoticeReverted     NoticeKind = "reverted"
	NoticeWarning      NoticeKind = "warning"
	NoticeDisconnected NoticeKind = "disconnected"
	NoticeReconnected  NoticeKind = "reconnected"
)

// Notice is a non-blocking message for whoever renders the board.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	OrderID uuid.UUID  `json:"order_id,omitempty"`
	Message string     `json:"message"`
}
