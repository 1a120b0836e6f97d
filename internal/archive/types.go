package archive

// Room is the archived summary of a conversation.
type Room struct {
	ID                 string `json:"id"`
	LastMessageAt      int64  `json:"last_message_at"`
	LastMessagePreview string `json:"last_message_preview"`
	MessageCount       int64  `json:"message_count"`
}

// Message is an archived chat message. Timestamps are Unix milliseconds.
type Message struct {
	ID        int64  `json:"-"`
	RoomID    string `json:"room_id"`
	MsgID     string `json:"msg_id"`
	Sender    string `json:"sender"`
	Body      string `json:"body"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}
