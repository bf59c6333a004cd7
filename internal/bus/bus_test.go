package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("messages.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindMessageInsert, Timestamp: time.Now(), Payload: "m1"})

	select {
	case evt := <-ch:
		if evt.Kind != KindMessageInsert {
			t.Errorf("got kind %q, want %s", evt.Kind, KindMessageInsert)
		}
		if evt.Payload != "m1" {
			t.Errorf("payload = %v, want m1", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("conversations.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindMessageInsert})
	b.Publish(Event{Kind: KindConversationUpdate})

	select {
	case evt := <-ch:
		if evt.Kind != KindConversationUpdate {
			t.Errorf("got kind %q, want %s", evt.Kind, KindConversationUpdate)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	// The message event must not leak into the conversations namespace.
	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEmptyNamespaceReceivesEverything(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("", 10)
	defer unsub()

	b.Publish(Event{Kind: KindConversationInsert})
	b.Publish(Event{Kind: KindRoomStatusChanged})

	for _, want := range []string{KindConversationInsert, KindRoomStatusChanged} {
		select {
		case evt := <-ch:
			if evt.Kind != want {
				t.Errorf("got %q, want %q", evt.Kind, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for %s", want)
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("messages.", 10)
	unsub()
	unsub()

	b.Publish(Event{Kind: KindMessageInsert})

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("received event after unsubscribe")
		}
	case <-time.After(50 * time.Millisecond):
		t.Fatal("channel was not closed")
	}
	if n := b.Subscribers(); n != 0 {
		t.Errorf("subscribers = %d, want 0", n)
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("messages.", 1)
	defer unsub()

	b.Publish(Event{Kind: "messages.one"})
	// Buffer is full, so this one is dropped without blocking.
	b.Publish(Event{Kind: "messages.two"})

	evt := <-ch
	if evt.Kind != "messages.one" {
		t.Errorf("got %q, want messages.one", evt.Kind)
	}
	if n := b.Dropped(); n != 1 {
		t.Errorf("dropped = %d, want 1", n)
	}
}
