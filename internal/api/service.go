package api

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/matheus3301/storechat/internal/archive"
	"github.com/matheus3301/storechat/internal/bus"
	"github.com/matheus3301/storechat/internal/chat"
	"github.com/matheus3301/storechat/internal/status"
	"github.com/matheus3301/storechat/internal/window"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

const (
	defaultSearchLimit = 50
	watchBuffer        = 256
)

// Archive is the read side of the transcript archive.
type Archive interface {
	Search(query, roomID string, limit int) ([]archive.Message, error)
	ListMessages(roomID string, beforeMs int64, limit int) ([]archive.Message, error)
	MessageCount() (int64, error)
}

// ChatService implements ChatServer on top of the live chat state.
type ChatService struct {
	instance  string
	startedAt time.Time
	store     *chat.Store
	windows   *window.Manager
	machine   *status.Machine
	bus       *bus.Bus
	archive   Archive

	done     chan struct{}
	stopOnce sync.Once
}

// NewChatService creates the service. arc may be nil when archiving is disabled.
func NewChatService(instance string, store *chat.Store, windows *window.Manager, machine *status.Machine, b *bus.Bus, arc Archive) *ChatService {
	return &ChatService{
		instance:  instance,
		startedAt: time.Now(),
		store:     store,
		windows:   windows,
		machine:   machine,
		bus:       b,
		archive:   arc,
		done:      make(chan struct{}),
	}
}

// Shutdown ends every open WatchEvents stream.
func (s *ChatService) Shutdown() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *ChatService) GetStatus(_ context.Context, _ *StatusRequest) (*StatusResponse, error) {
	resp := &StatusResponse{
		Instance:       s.instance,
		State:          string(s.machine.Current()),
		UptimeMs:       time.Since(s.startedAt).Milliseconds(),
		RoomCount:      s.store.Len(),
		MaxWindows:     s.windows.MaxConcurrent(),
		ArchiveEnabled: s.archive != nil,
	}
	if s.archive != nil {
		if n, err := s.archive.MessageCount(); err == nil {
			resp.ArchivedMessages = n
		}
	}
	return resp, nil
}

func (s *ChatService) ListRooms(_ context.Context, _ *ListRoomsRequest) (*ListRoomsResponse, error) {
	rooms := s.store.Rooms()
	out := make([]RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, Summarize(r))
	}
	return &ListRoomsResponse{Rooms: out}, nil
}

func (s *ChatService) GetRoom(_ context.Context, req *RoomRequest) (*GetRoomResponse, error) {
	id, err := roomID(req.RoomID)
	if err != nil {
		return nil, err
	}
	r, ok := s.store.Room(id)
	if !ok {
		return nil, grpcstatus.Errorf(codes.NotFound, "room %q not found", id)
	}
	return &GetRoomResponse{Room: r}, nil
}

func (s *ChatService) SendMessage(_ context.Context, req *SendMessageRequest) (*SendMessageResponse, error) {
	id, err := roomID(req.RoomID)
	if err != nil {
		return nil, err
	}
	msg, ok := s.store.SendMessage(id, req.Text)
	if !ok {
		return &SendMessageResponse{Accepted: false}, nil
	}
	return &SendMessageResponse{Accepted: true, Message: &msg}, nil
}

func (s *ChatService) MarkAsRead(_ context.Context, req *RoomRequest) (*AckResponse, error) {
	id, err := roomID(req.RoomID)
	if err != nil {
		return nil, err
	}
	return &AckResponse{Changed: s.store.MarkAsRead(id)}, nil
}

func (s *ChatService) SetTyping(_ context.Context, req *SetTypingRequest) (*AckResponse, error) {
	id, err := roomID(req.RoomID)
	if err != nil {
		return nil, err
	}
	return &AckResponse{Changed: s.store.SetTyping(id, req.Typing)}, nil
}

func (s *ChatService) OpenWindow(_ context.Context, req *RoomRequest) (*LayoutResponse, error) {
	return s.layoutOp(req.RoomID, s.windows.Open)
}

func (s *ChatService) CloseWindow(_ context.Context, req *RoomRequest) (*LayoutResponse, error) {
	return s.layoutOp(req.RoomID, s.windows.Close)
}

func (s *ChatService) MinimizeWindow(_ context.Context, req *RoomRequest) (*LayoutResponse, error) {
	return s.layoutOp(req.RoomID, s.windows.Minimize)
}

func (s *ChatService) MaximizeWindow(_ context.Context, req *RoomRequest) (*LayoutResponse, error) {
	return s.layoutOp(req.RoomID, s.windows.Maximize)
}

func (s *ChatService) SetMainPage(_ context.Context, req *SetMainPageRequest) (*LayoutResponse, error) {
	changed := s.windows.SetMainChatPage(req.MainPage, strings.TrimSpace(req.RoomID))
	return &LayoutResponse{Changed: changed, Layout: s.windows.Layout()}, nil
}

func (s *ChatService) GetLayout(_ context.Context, _ *LayoutRequest) (*LayoutResponse, error) {
	return &LayoutResponse{Layout: s.windows.Layout()}, nil
}

func (s *ChatService) SearchArchive(_ context.Context, req *SearchRequest) (*SearchResponse, error) {
	if s.archive == nil {
		return nil, grpcstatus.Errorf(codes.Unavailable, "archive disabled")
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "query is required")
	}
	limit := defaultSearchLimit
	if req.Limit > 0 {
		limit = req.Limit
	}
	msgs, err := s.archive.Search(req.Query, strings.TrimSpace(req.RoomID), limit)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "search archive: %v", err)
	}
	if msgs == nil {
		msgs = []archive.Message{}
	}
	return &SearchResponse{Messages: msgs}, nil
}

func (s *ChatService) ListArchivedMessages(_ context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	if s.archive == nil {
		return nil, grpcstatus.Errorf(codes.Unavailable, "archive disabled")
	}
	roomID := strings.TrimSpace(req.RoomID)
	if roomID == "" {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "room_id is required")
	}
	limit := defaultSearchLimit
	if req.Limit > 0 {
		limit = req.Limit
	}
	// One extra row tells us whether another page exists.
	msgs, err := s.archive.ListMessages(roomID, req.BeforeMs, limit+1)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list archived messages: %v", err)
	}
	resp := &HistoryResponse{Messages: msgs}
	if len(msgs) > limit {
		resp.Messages = msgs[:limit]
		resp.HasMore = true
		resp.NextBeforeMs = resp.Messages[limit-1].CreatedAt
	}
	if resp.Messages == nil {
		resp.Messages = []archive.Message{}
	}
	return resp, nil
}

func (s *ChatService) WatchEvents(req *WatchRequest, stream EventStream) error {
	ch, unsub := s.bus.Subscribe(req.Namespace, watchBuffer)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			env := bus.Wrap(s.instance, evt)
			if err := stream.Send(&env); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		case <-s.done:
			return nil
		}
	}
}

func (s *ChatService) layoutOp(raw string, op func(string) bool) (*LayoutResponse, error) {
	id, err := roomID(raw)
	if err != nil {
		return nil, err
	}
	changed := op(id)
	return &LayoutResponse{Changed: changed, Layout: s.windows.Layout()}, nil
}

func roomID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", grpcstatus.Errorf(codes.InvalidArgument, "room_id is required")
	}
	return id, nil
}
