package status

import (
	"testing"
	"time"

	"github.com/matheus3301/trueque/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil, "")
	if m.Current() != Idle {
		t.Errorf("initial state = %s, want IDLE", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Idle, AuthRequired},
		{Idle, Loading},
		{AuthRequired, Loading},
		{Loading, Live},
		{Loading, Failed},
		{Live, Degraded},
		{Degraded, Live},
		{Failed, Loading},
		{Live, Closed},
		{Failed, Closed},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil, "")
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil, "")
	if err := m.Transition(Live); err == nil {
		t.Error("Transition(IDLE -> LIVE) should fail; history must load first")
	}
}

func TestClosedIsTerminal(t *testing.T) {
	m := NewMachine(nil, "")
	walkTo(t, m, Closed)
	for _, to := range []State{Idle, Loading, Live, Degraded, Failed, Closed} {
		if err := m.Transition(to); err == nil {
			t.Errorf("Transition(CLOSED -> %s) should fail", to)
		}
	}
}

// TestFailedNeedsRetryThroughLoading verifies that a failed load cannot go
// live again without a fresh load.
func TestFailedNeedsRetryThroughLoading(t *testing.T) {
	m := NewMachine(nil, "")
	walkTo(t, m, Failed)

	if err := m.Transition(Live); err == nil {
		t.Fatal("Transition(FAILED -> LIVE) should fail; must go through LOADING")
	}
	if err := m.Transition(Loading); err != nil {
		t.Fatalf("FAILED -> LOADING: %v", err)
	}
	if err := m.Transition(Live); err != nil {
		t.Fatalf("LOADING -> LIVE: %v", err)
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("room.", 10)
	defer unsub()

	m := NewMachine(b, "conv-1")
	if err := m.Transition(Loading); err != nil {
		t.Fatal(err)
	}

	select {
	case evt := <-ch:
		if evt.Kind != bus.KindRoomStatusChanged {
			t.Errorf("event kind = %q, want %s", evt.Kind, bus.KindRoomStatusChanged)
		}
		change, ok := evt.Payload.(StatusChange)
		if !ok {
			t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
		}
		if change.Room != "conv-1" || change.From != Idle || change.To != Loading {
			t.Errorf("change = %+v, want conv-1 IDLE -> LOADING", change)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for status event")
	}
}

// TestDropAndResubscribeCycle walks LIVE -> DEGRADED -> LIVE as the room does
// when its change feed drops and the next reconcile resubscribes.
func TestDropAndResubscribeCycle(t *testing.T) {
	m := NewMachine(nil, "")
	walkTo(t, m, Live)

	for _, s := range []State{Degraded, Live, Degraded, Live} {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
}

// walkTo is a helper that transitions the machine to a target state.
func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		Idle:         {},
		AuthRequired: {AuthRequired},
		Loading:      {Loading},
		Live:         {Loading, Live},
		Degraded:     {Loading, Live, Degraded},
		Failed:       {Loading, Failed},
		Closed:       {Closed},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walkTo(%s): %v", target, err)
		}
	}
}
