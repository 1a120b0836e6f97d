// Package chat owns the room map and message history of the storefront chat.
package chat

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/storechat/internal/bus"
	"github.com/matheus3301/storechat/internal/clock"
	"github.com/matheus3301/storechat/internal/directory"
	"go.uber.org/zap"
)

// ReplyScheduler arranges for a counterparty reply to be delivered later.
// deliver may be invoked from any goroutine. ScheduleReply reports false when
// the reply was rejected and deliver will never run.
type ReplyScheduler interface {
	ScheduleReply(roomID string, deliver func(roomID, text string)) bool
	CancelRoom(roomID string) int
	Stop()
}

// seedID makes placeholder message IDs stable across restarts so the
// archive stores each greeting once.
func seedID(roomID string, n int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("storechat:seed/%s/%d", roomID, n))).String()
}

type room struct {
	contact  directory.Contact
	messages []Message
	typing   bool
	pending  int
}

// Store is the single source of truth for rooms and their messages.
// Operations on unknown rooms are no-ops.
type Store struct {
	mu      sync.Mutex
	rooms   map[string]*room
	order   []string
	dir     directory.Directory
	replies ReplyScheduler
	clock   clock.Clock
	bus     *bus.Bus
	logger  *zap.Logger
}

// NewStore creates an empty store. Call Initialize to seed rooms.
func NewStore(dir directory.Directory, replies ReplyScheduler, clk clock.Clock, b *bus.Bus, logger *zap.Logger) *Store {
	return &Store{
		rooms:   make(map[string]*room),
		dir:     dir,
		replies: replies,
		clock:   clk,
		bus:     b,
		logger:  logger,
	}
}

// Initialize seeds one room per directory contact, each with a greeting from
// the contact and a reply from the user. Returns false if rooms already exist.
func (s *Store) Initialize() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rooms) > 0 {
		return false
	}

	now := s.clock.Now()
	var seeded []MessageAppended
	for _, c := range s.dir.Contacts() {
		if _, dup := s.rooms[c.ID]; dup {
			s.logger.Warn("duplicate contact in directory", zap.String("room_id", c.ID))
			continue
		}
		s.rooms[c.ID] = &room{
			contact: c,
			messages: []Message{
				{
					ID:        seedID(c.ID, 0),
					Text:      "Hi! How can we help you today?",
					Sender:    SenderCounterparty,
					CreatedAt: now.Add(-10 * time.Minute),
					Status:    StatusRead,
				},
				{
					ID:        seedID(c.ID, 1),
					Text:      "Just browsing for now, thanks.",
					Sender:    SenderSelf,
					CreatedAt: now.Add(-5 * time.Minute),
					Status:    StatusDelivered,
				},
			},
		}
		s.order = append(s.order, c.ID)
		for _, m := range s.rooms[c.ID].messages {
			seeded = append(seeded, MessageAppended{RoomID: c.ID, Message: m, Seeded: true})
		}
	}
	for _, evt := range seeded {
		s.bus.Emit(bus.KindMessageAppended, evt)
	}
	s.logger.Info("chat rooms seeded", zap.Int("rooms", len(s.rooms)))
	return true
}

// SendMessage appends a message from the user and schedules a reply.
// Blank text and unknown rooms are ignored.
func (s *Store) SendMessage(roomID, text string) (Message, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, false
	}

	s.mu.Lock()
	r, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		return Message{}, false
	}
	msg := Message{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    SenderSelf,
		CreatedAt: s.clock.Now(),
		Status:    StatusSent,
	}
	r.messages = append(r.messages, msg)
	if s.replies != nil {
		r.pending++
	}
	s.bus.Emit(bus.KindMessageAppended, MessageAppended{RoomID: roomID, Message: msg})
	s.mu.Unlock()

	s.logger.Debug("message sent", zap.String("room_id", roomID), zap.String("msg_id", msg.ID))
	if s.replies != nil && !s.replies.ScheduleReply(roomID, s.deliverReply) {
		s.mu.Lock()
		if r.pending > 0 {
			r.pending--
		}
		s.mu.Unlock()
	}
	return msg, true
}

// CancelReplies drops every reply still pending for the room and returns how
// many were dropped. The room goes back to Idle once nothing is outstanding.
func (s *Store) CancelReplies(roomID string) int {
	if s.replies == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return 0
	}
	// Holding the lock keeps an already-fired reply from being counted twice:
	// it is no longer cancellable and decrements pending once it gets the lock.
	n := s.replies.CancelRoom(roomID)
	r.pending = max(r.pending-n, 0)
	return n
}

// StopReplies cancels all pending replies and rejects new ones.
func (s *Store) StopReplies() {
	if s.replies == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies.Stop()
	for _, r := range s.rooms {
		r.pending = 0
	}
}

// deliverReply appends a counterparty message to the room as it is now.
func (s *Store) deliverReply(roomID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		s.logger.Debug("reply for missing room dropped", zap.String("room_id", roomID))
		return
	}
	msg := Message{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    SenderCounterparty,
		CreatedAt: s.clock.Now(),
		Status:    StatusDelivered,
	}
	r.messages = append(r.messages, msg)
	if r.pending > 0 {
		r.pending--
	}
	s.bus.Emit(bus.KindMessageAppended, MessageAppended{RoomID: roomID, Message: msg})
	if r.typing {
		r.typing = false
		s.bus.Emit(bus.KindRoomTyping, TypingChanged{RoomID: roomID, Typing: false})
	}
}

// MarkAsRead resets the unread counter of the room's contact.
func (s *Store) MarkAsRead(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	r.contact.UnreadCount = 0
	s.bus.Emit(bus.KindRoomRead, RoomRead{RoomID: roomID})
	return true
}

// SetTyping sets the room's typing indicator.
func (s *Store) SetTyping(roomID string, typing bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	if r.typing != typing {
		r.typing = typing
		s.bus.Emit(bus.KindRoomTyping, TypingChanged{RoomID: roomID, Typing: typing})
	}
	return true
}

// Has reports whether a room exists.
func (s *Store) Has(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[roomID]
	return ok
}

// Room returns a copy of a single room.
func (s *Store) Room(roomID string) (Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return Room{}, false
	}
	return r.snapshot(roomID), true
}

// Rooms returns copies of all rooms in seed order.
func (s *Store) Rooms() []Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Room, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rooms[id].snapshot(id))
	}
	return out
}

// Len returns the number of rooms.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

func (r *room) snapshot(id string) Room {
	phase := Idle
	if r.pending > 0 {
		phase = AwaitingReply
	}
	msgs := make([]Message, len(r.messages))
	copy(msgs, r.messages)
	return Room{
		ID:       id,
		Contact:  r.contact.Clone(),
		Messages: msgs,
		Typing:   r.typing,
		Phase:    phase,
	}
}
