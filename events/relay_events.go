package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/chat-relay/domain/chat"
)

// MessageSentEvent is emitted when a message is appended to a room's history.
// The broadcast module relays it to every connection bound to the room. Seq
// is the message's position in the room's append sequence; the hub skips
// connections whose join snapshot already covered it.
type MessageSentEvent struct {
	RoomCode string       `json:"room_code"`
	Seq      uint64       `json:"seq"`
	Message  chat.Message `json:"message"`
}

// UserListEvent is emitted whenever a room's membership changes. Users is
// sorted and deduplicated.
type UserListEvent struct {
	RoomCode string   `json:"room_code"`
	Users    []string `json:"users"`
}

// RoomCreatedEvent is emitted when a new room is created. Room codes are
// join capabilities, so this event is never fanned out to clients.
type RoomCreatedEvent struct {
	RoomCode  string    `json:"room_code"`
	RoomName  string    `json:"room_name"`
	CreatedBy string    `json:"created_by"`
	Timestamp time.Time `json:"timestamp"`
}

// Event definitions for the room registry.
var (
	MessageSentV1 = helper.EventDefinition[MessageSentEvent](
		"registry",
		"MessageSent",
		"v1",
	)

	UserListV1 = helper.EventDefinition[UserListEvent](
		"registry",
		"UserList",
		"v1",
	)

	RoomCreatedV1 = helper.EventDefinition[RoomCreatedEvent](
		"registry",
		"RoomCreated",
		"v1",
	)
)
