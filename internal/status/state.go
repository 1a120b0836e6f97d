package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/storechat/internal/bus"
)

// State is a daemon lifecycle state.
type State string

const (
	Booting  State = "BOOTING"
	Seeding  State = "SEEDING"
	Ready    State = "READY"
	Stopping State = "STOPPING"
	Stopped  State = "STOPPED"
	Error    State = "ERROR"
)

var validTransitions = map[State][]State{
	Booting:  {Seeding, Error},
	Seeding:  {Ready, Error},
	Ready:    {Stopping, Error},
	Stopping: {Stopped, Error},
	Stopped:  {},
	Error:    {Stopping},
}

// Machine tracks and enforces daemon lifecycle transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a machine in the Booting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition moves to a new state, or returns an error if the move is not allowed.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	m.bus.Emit(bus.KindStatusChanged, StatusChange{From: from, To: to})
	return nil
}

// StatusChange is the payload of bus.KindStatusChanged.
type StatusChange struct {
	From State `json:"from"`
	To   State `json:"to"`
}
