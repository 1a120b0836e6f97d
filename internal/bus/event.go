package bus

import "time"

// Event kinds. Subscribers filter on prefixes such as "chat." or "chat.message.".
const (
	KindMessageAppended = "chat.message.appended"
	KindRoomRead        = "chat.room.read"
	KindRoomTyping      = "chat.room.typing"
	KindLayoutChanged   = "window.layout_changed"
	KindStatusChanged   = "daemon.status_changed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
