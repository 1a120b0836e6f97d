package api

import (
	"encoding/json"

	"github.com/matheus3301/storechat/internal/archive"
	"github.com/matheus3301/storechat/internal/chat"
	"github.com/matheus3301/storechat/internal/directory"
	"github.com/matheus3301/storechat/internal/window"
)

type StatusRequest struct{}

type StatusResponse struct {
	Instance         string `json:"instance"`
	State            string `json:"state"`
	UptimeMs         int64  `json:"uptime_ms"`
	RoomCount        int    `json:"room_count"`
	MaxWindows       int    `json:"max_windows"`
	ArchiveEnabled   bool   `json:"archive_enabled"`
	ArchivedMessages int64  `json:"archived_messages"`
}

type ListRoomsRequest struct{}

// RoomSummary is a room without its full history.
type RoomSummary struct {
	ID           string            `json:"id"`
	Contact      directory.Contact `json:"contact"`
	Typing       bool              `json:"typing"`
	Phase        chat.Phase        `json:"phase"`
	LastMessage  *chat.Message     `json:"last_message,omitempty"`
	MessageCount int               `json:"message_count"`
}

type ListRoomsResponse struct {
	Rooms []RoomSummary `json:"rooms"`
}

// RoomRequest addresses a single room.
type RoomRequest struct {
	RoomID string `json:"room_id"`
}

type GetRoomResponse struct {
	Room chat.Room `json:"room"`
}

type SendMessageRequest struct {
	RoomID string `json:"room_id"`
	Text   string `json:"text"`
}

type SendMessageResponse struct {
	Accepted bool          `json:"accepted"`
	Message  *chat.Message `json:"message,omitempty"`
}

type SetTypingRequest struct {
	RoomID string `json:"room_id"`
	Typing bool   `json:"typing"`
}

// AckResponse reports whether a mutation changed anything. Unknown rooms report false.
type AckResponse struct {
	Changed bool `json:"changed"`
}

type SetMainPageRequest struct {
	MainPage bool   `json:"main_page"`
	RoomID   string `json:"room_id,omitempty"`
}

type LayoutRequest struct{}

type LayoutResponse struct {
	Changed bool          `json:"changed"`
	Layout  window.Layout `json:"layout"`
}

type SearchRequest struct {
	Query  string `json:"query"`
	RoomID string `json:"room_id,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

type SearchResponse struct {
	Messages []archive.Message `json:"messages"`
}

// HistoryRequest pages through a room's archived transcript. BeforeMs is a
// Unix millisecond cursor; zero starts from the newest message.
type HistoryRequest struct {
	RoomID   string `json:"room_id"`
	BeforeMs int64  `json:"before_ms,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// HistoryResponse lists messages newest first. NextBeforeMs is the cursor for
// the following page when HasMore is set.
type HistoryResponse struct {
	Messages     []archive.Message `json:"messages"`
	HasMore      bool              `json:"has_more"`
	NextBeforeMs int64             `json:"next_before_ms,omitempty"`
}

// WatchRequest selects events by kind prefix; empty means all.
type WatchRequest struct {
	Namespace string `json:"namespace,omitempty"`
}

// Event is an event as received by clients; Payload is left encoded.
type Event struct {
	EventID      string          `json:"event_id"`
	Instance     string          `json:"instance"`
	Kind         string          `json:"kind"`
	OccurredAtMs int64           `json:"occurred_at_ms"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

// Summarize builds a RoomSummary from a full room.
func Summarize(r chat.Room) RoomSummary {
	s := RoomSummary{
		ID:           r.ID,
		Contact:      r.Contact,
		Typing:       r.Typing,
		Phase:        r.Phase,
		MessageCount: len(r.Messages),
	}
	if last, ok := r.LastMessage(); ok {
		s.LastMessage = &last
	}
	return s
}
