package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/trueque/internal/bus"
)

// State represents the lifecycle state of an open chat room.
type State string

const (
	Idle         State = "IDLE"
	AuthRequired State = "AUTH_REQUIRED"
	Loading      State = "LOADING"
	Live         State = "LIVE"
	Degraded     State = "DEGRADED"
	Failed       State = "FAILED"
	Closed       State = "CLOSED"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Idle:         {AuthRequired, Loading, Closed},
	AuthRequired: {Loading, Closed},
	Loading:      {Live, Failed, Closed},
	Live:         {Degraded, Closed},
	Degraded:     {Live, Closed},
	Failed:       {Loading, Closed},
	Closed:       {},
}

// Machine tracks and enforces room lifecycle transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
	room    string
}

// NewMachine creates a new state machine starting in Idle state. room tags
// the published events and may be empty.
func NewMachine(b *bus.Bus, room string) *Machine {
	return &Machine{
		current: Idle,
		bus:     b,
		room:    room,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      bus.KindRoomStatusChanged,
			Timestamp: time.Now(),
			Payload: StatusChange{
				Room: m.room,
				From: from,
				To:   to,
			},
		})
	}
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	Room string
	From State
	To   State
}
