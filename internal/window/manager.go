// Package window tracks the floating chat windows shown over the storefront
// and the full-page chat mode that replaces them.
package window

import (
	"sync"

	"github.com/matheus3301/storechat/internal/bus"
	"go.uber.org/zap"
)

// DefaultMaxConcurrent is the number of floating windows open at once.
const DefaultMaxConcurrent = 3

// RoomLookup reports whether a room exists.
type RoomLookup interface {
	Has(roomID string) bool
}

// Entry is one floating window. Slot equals the entry's position in open order.
type Entry struct {
	RoomID    string `json:"room_id"`
	Open      bool   `json:"open"`
	Minimized bool   `json:"minimized"`
	Slot      int    `json:"slot"`
}

// Layout is a snapshot of everything the presentation layer needs to draw
// the chat overlay. Empty room IDs mean none.
type Layout struct {
	Entries        []Entry `json:"entries"`
	ActiveRoomID   string  `json:"active_room_id,omitempty"`
	MainPage       bool    `json:"main_page"`
	MainPageRoomID string  `json:"main_page_room_id,omitempty"`
}

// LayoutChanged is the payload of bus.KindLayoutChanged. Evicted is set when
// opening a window pushed the oldest one out.
type LayoutChanged struct {
	Layout  Layout `json:"layout"`
	Evicted string `json:"evicted,omitempty"`
}

// Manager multiplexes a bounded number of floating windows. Windows are
// evicted oldest-opened first; recency of interaction is ignored.
type Manager struct {
	mu           sync.Mutex
	max          int
	rooms        RoomLookup
	entries      []Entry
	active       string
	mainPage     bool
	mainPageRoom string
	bus          *bus.Bus
	logger       *zap.Logger
}

// NewManager creates a manager allowing max concurrent windows (DefaultMaxConcurrent if max < 1).
func NewManager(max int, rooms RoomLookup, b *bus.Bus, logger *zap.Logger) *Manager {
	if max < 1 {
		max = DefaultMaxConcurrent
	}
	return &Manager{
		max:    max,
		rooms:  rooms,
		bus:    b,
		logger: logger,
	}
}

// MaxConcurrent returns the window limit.
func (m *Manager) MaxConcurrent() int {
	return m.max
}

// Open shows a floating window for the room. A minimized window is restored;
// an already visible one is left alone. Ignored while the main chat page is active.
func (m *Manager) Open(roomID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mainPage || !m.rooms.Has(roomID) {
		return false
	}

	if i := m.indexOf(roomID); i >= 0 {
		if !m.entries[i].Minimized {
			return false
		}
		m.entries[i].Minimized = false
		m.publish("")
		return true
	}

	var evicted string
	if len(m.entries) >= m.max {
		evicted = m.entries[0].RoomID
		m.entries = m.entries[1:]
		m.renumber()
		m.logger.Debug("floating window evicted", zap.String("room_id", evicted))
	}
	m.entries = append(m.entries, Entry{RoomID: roomID, Open: true, Slot: len(m.entries)})
	m.active = roomID
	m.publish(evicted)
	return true
}

// Close removes the room's window. The most recently opened remaining window becomes active.
func (m *Manager) Close(roomID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(roomID)
	if i < 0 {
		return false
	}
	m.entries = append(m.entries[:i:i], m.entries[i+1:]...)
	m.renumber()
	m.active = ""
	if n := len(m.entries); n > 0 {
		m.active = m.entries[n-1].RoomID
	}
	m.publish("")
	return true
}

// Minimize collapses the room's window to a bubble. Its slot is kept.
func (m *Manager) Minimize(roomID string) bool {
	return m.setMinimized(roomID, true)
}

// Maximize restores a minimized window.
func (m *Manager) Maximize(roomID string) bool {
	return m.setMinimized(roomID, false)
}

func (m *Manager) setMinimized(roomID string, minimized bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(roomID)
	if i < 0 {
		return false
	}
	if m.entries[i].Minimized != minimized {
		m.entries[i].Minimized = minimized
		m.publish("")
	}
	return true
}

// SetMainChatPage records whether the full-page chat view is showing and for
// which room. Entering the main page destroys every floating window.
func (m *Manager) SetMainChatPage(on bool, roomID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if roomID != "" && !m.rooms.Has(roomID) {
		return false
	}
	m.mainPage = on
	m.mainPageRoom = roomID
	if on {
		m.entries = nil
		m.active = ""
	}
	m.publish("")
	return true
}

// IsMainChatPage reports whether floating windows are suppressed.
func (m *Manager) IsMainChatPage() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mainPage
}

// ActiveRoomID returns the focused floating room, if any.
func (m *Manager) ActiveRoomID() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, m.active != ""
}

// Entries returns a copy of the open windows in slot order.
func (m *Manager) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copyEntries()
}

// Layout returns a consistent snapshot of the overlay state.
func (m *Manager) Layout() Layout {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.layout()
}

func (m *Manager) layout() Layout {
	return Layout{
		Entries:        m.copyEntries(),
		ActiveRoomID:   m.active,
		MainPage:       m.mainPage,
		MainPageRoomID: m.mainPageRoom,
	}
}

func (m *Manager) copyEntries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

func (m *Manager) indexOf(roomID string) int {
	for i, e := range m.entries {
		if e.RoomID == roomID {
			return i
		}
	}
	return -1
}

// renumber keeps slots contiguous from zero.
func (m *Manager) renumber() {
	for i := range m.entries {
		m.entries[i].Slot = i
	}
}

func (m *Manager) publish(evicted string) {
	m.bus.Emit(bus.KindLayoutChanged, LayoutChanged{Layout: m.layout(), Evicted: evicted})
}
