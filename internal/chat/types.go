package chat

import (
	"time"

	"github.com/matheus3301/storechat/internal/directory"
)

// Sender identifies who wrote a message.
type Sender string

const (
	SenderSelf         Sender = "self"
	SenderCounterparty Sender = "counterparty"
)

// Status is the delivery status of a message.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

// Phase is the reply state of a room.
type Phase string

const (
	Idle          Phase = "IDLE"
	AwaitingReply Phase = "AWAITING_REPLY"
)

// Message is a single chat message. Messages are never modified after append.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	CreatedAt time.Time `json:"created_at"`
	Status    Status    `json:"status"`
}

// Room is a point-in-time copy of a conversation with one contact.
type Room struct {
	ID       string            `json:"id"`
	Contact  directory.Contact `json:"contact"`
	Messages []Message         `json:"messages"`
	Typing   bool              `json:"typing"`
	Phase    Phase             `json:"phase"`
}

// LastMessage returns the tail of the message sequence.
func (r Room) LastMessage() (Message, bool) {
	if len(r.Messages) == 0 {
		return Message{}, false
	}
	return r.Messages[len(r.Messages)-1], true
}

// MessageAppended is the payload of bus.KindMessageAppended.
// Seeded marks the placeholder messages written by Initialize.
type MessageAppended struct {
	RoomID  string  `json:"room_id"`
	Message Message `json:"message"`
	Seeded  bool    `json:"seeded,omitempty"`
}

// RoomRead is the payload of bus.KindRoomRead.
type RoomRead struct {
	RoomID string `json:"room_id"`
}

// TypingChanged is the payload of bus.KindRoomTyping.
type TypingChanged struct {
	RoomID string `json:"room_id"`
	Typing bool   `json:"typing"`
}
