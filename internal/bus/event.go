package bus

import "time"

// Event kinds published by the daemon and the room controller.
const (
	KindConversationInsert = "conversations.insert"
	KindConversationUpdate = "conversations.update"
	KindMessageInsert      = "messages.insert"
	KindRoomStatusChanged  = "room.status_changed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
