package room

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/trueque/internal/bus"
	"github.com/matheus3301/trueque/internal/chat"
	"github.com/matheus3301/trueque/internal/deal"
	"github.com/matheus3301/trueque/internal/identity"
	"github.com/matheus3301/trueque/internal/realtime"
	"github.com/matheus3301/trueque/internal/realtime/realtimetest"
	"github.com/matheus3301/trueque/internal/status"
	"github.com/matheus3301/trueque/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	alice = "alice@x.com"
	bob   = "bob@x.com"
)

type fixture struct {
	store realtime.Store
	bus   *bus.Bus
	conv  *store.Conversation
	deps  Deps
}

func newFixture(t *testing.T, me string) *fixture {
	t.Helper()
	s, b := realtimetest.New(t)
	conv, err := s.InsertConversation(context.Background(), &store.Conversation{
		ProductID:    "P1",
		Participants: []string{alice, bob},
		Title:        "Trade for product #P1",
	})
	require.NoError(t, err)
	return &fixture{store: s, bus: b, conv: conv, deps: deps(t, s, b, me)}
}

func deps(t *testing.T, s realtime.Store, b *bus.Bus, me string) Deps {
	stream := chat.NewStream(s, nil)
	var p identity.Provider = &identity.Static{URL: "https://login.example/authorize"}
	if me != "" {
		p = &identity.Static{ID: &identity.Identity{Email: me, Name: me}}
	}
	return Deps{
		Store:    s,
		Stream:   stream,
		Deals:    deal.NewMachine(s, stream, deal.DefaultOptions(), nil),
		Identity: p,
		Bus:      b,
		Logger:   zaptest.NewLogger(t),
	}
}

func open(t *testing.T, f *fixture, opts Options) *Room {
	t.Helper()
	r := New(f.conv.ID, f.deps, opts)
	require.NoError(t, r.Open(context.Background()))
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestOpenWithoutIdentityRedirects(t *testing.T) {
	f := newFixture(t, "")
	var redirected string
	r := New(f.conv.ID, f.deps, Options{Redirect: func(u string) { redirected = u }})

	err := r.Open(context.Background())
	require.ErrorIs(t, err, identity.ErrLoginRequired)
	assert.Equal(t, "https://login.example/authorize", redirected)
	assert.Equal(t, status.AuthRequired, r.Status())
	assert.Empty(t, r.View().Messages)

	// A second attempt stays put instead of failing the transition.
	require.ErrorIs(t, r.Open(context.Background()), identity.ErrLoginRequired)
	assert.Equal(t, status.AuthRequired, r.Status())
}

func TestOpenLoadsHistory(t *testing.T) {
	f := newFixture(t, alice)
	stream := chat.NewStream(f.store, nil)
	for _, body := range []string{"hi", "hello"} {
		_, err := stream.Post(context.Background(), f.conv.ID, chat.Sender{Email: bob}, body)
		require.NoError(t, err)
	}

	r := open(t, f, Options{})
	v := r.View()
	assert.Equal(t, status.Live, v.Status)
	assert.Equal(t, bob, v.Counterpart)
	require.Len(t, v.Messages, 2)
	assert.Equal(t, "hi", v.Messages[0].Body)
	assert.Len(t, v.Days, 1)
	assert.Equal(t, "Not confirmed", v.Badge)
	assert.True(t, v.CanToggle)
	assert.False(t, v.CanSend)
}

func TestOpenMissingConversationFails(t *testing.T) {
	f := newFixture(t, alice)
	r := New("missing", f.deps, Options{})

	err := r.Open(context.Background())
	require.ErrorIs(t, err, store.ErrNotFound)
	v := r.View()
	assert.Equal(t, status.Failed, v.Status)
	assert.ErrorIs(t, v.Err, store.ErrNotFound)
	assert.Nil(t, v.Conversation)

	// Retry is user initiated and fails the same way.
	require.ErrorIs(t, r.Retry(context.Background()), store.ErrNotFound)
	assert.Equal(t, status.Failed, r.Status())
	require.NoError(t, r.Close())
	assert.Equal(t, status.Closed, r.Status())
}

func TestOpenRejectsOutsider(t *testing.T) {
	f := newFixture(t, "mallory@x.com")
	r := New(f.conv.ID, f.deps, Options{})

	require.ErrorIs(t, r.Open(context.Background()), deal.ErrNotParticipant)
	assert.Equal(t, status.Failed, r.Status())
}

func TestRetryOnlyFromFailed(t *testing.T) {
	f := newFixture(t, alice)
	r := open(t, f, Options{})
	assert.ErrorIs(t, r.Retry(context.Background()), ErrNotFailed)
}

func TestLiveMessagesFromCounterpart(t *testing.T) {
	f := newFixture(t, alice)
	r := open(t, f, Options{})

	other := chat.NewStream(f.store, nil)
	_, err := other.Post(context.Background(), f.conv.ID, chat.Sender{Email: bob, Name: "Bob"}, "still available?")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		v := r.View()
		return len(v.Messages) == 1 && v.Messages[0].Body == "still available?"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCounterpartDealChangeIsReflected(t *testing.T) {
	f := newFixture(t, alice)
	r := open(t, f, Options{})

	bobs := deal.NewMachine(f.store, chat.NewStream(f.store, nil), deal.DefaultOptions(), nil)
	_, err := bobs.Toggle(context.Background(), f.conv.ID, bob)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		v := r.View()
		return v.Confirmations == 1 && !v.Confirmed && v.Badge == "Confirmed (1/2)"
	}, 2*time.Second, 10*time.Millisecond)
	// The narration arrives through the message feed.
	require.Eventually(t, func() bool {
		msgs := r.View().Messages
		return len(msgs) == 1 && chat.IsSystem(msgs[0])
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSendClearsDraftAndShowsMessage(t *testing.T) {
	f := newFixture(t, alice)
	r := open(t, f, Options{})

	r.Composer().SetDraft("  would you take my bike?  ")
	assert.True(t, r.View().CanSend)
	require.NoError(t, r.Send(context.Background()))

	v := r.View()
	assert.Empty(t, v.Draft)
	require.Len(t, v.Messages, 1)
	assert.Equal(t, "would you take my bike?", v.Messages[0].Body)
	assert.Equal(t, alice, v.Messages[0].SenderEmail)

	// Blank draft is a no-op.
	r.Composer().SetDraft("   ")
	require.NoError(t, r.Send(context.Background()))
	assert.Len(t, r.View().Messages, 1)

	// The live echo of our own message is deduplicated.
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, r.View().Messages, 1)
}

func TestToggleDealRoundTrip(t *testing.T) {
	f := newFixture(t, alice)
	r := open(t, f, Options{})
	ctx := context.Background()

	require.NoError(t, r.ToggleDeal(ctx))
	v := r.View()
	assert.True(t, v.Confirmed)
	assert.Equal(t, store.DealPending, v.DealState)
	assert.False(t, v.Toggling)

	require.NoError(t, r.ToggleDeal(ctx))
	v = r.View()
	assert.False(t, v.Confirmed)
	assert.Equal(t, store.DealNone, v.DealState)

	require.Eventually(t, func() bool {
		return len(r.View().Messages) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestToggleDisabledAfterCompletionWithoutReopen(t *testing.T) {
	f := newFixture(t, alice)
	stream := chat.NewStream(f.store, nil)
	f.deps.Deals = deal.NewMachine(f.store, stream, deal.Options{Mode: deal.LastWriteWins}, nil)
	r := open(t, f, Options{})
	ctx := context.Background()

	require.NoError(t, r.ToggleDeal(ctx))
	bobs := deal.NewMachine(f.store, stream, deal.DefaultOptions(), nil)
	_, err := bobs.Toggle(ctx, f.conv.ID, bob)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return r.View().DealState == store.DealCompleted
	}, 2*time.Second, 10*time.Millisecond)

	assert.False(t, r.View().CanToggle)
	require.NoError(t, r.ToggleDeal(ctx))
	assert.Equal(t, store.DealCompleted, r.View().DealState)
}

func TestStaleConversationRowIsIgnored(t *testing.T) {
	f := newFixture(t, alice)
	r := open(t, f, Options{})

	current := *r.View().Conversation
	stale := current
	stale.Version = current.Version - 1
	stale.DealState = store.DealCompleted
	r.apply(realtime.Change{Table: realtime.Conversations, Op: realtime.Update, Conversation: &stale})
	assert.Equal(t, store.DealNone, r.View().DealState)

	same := current
	same.LastMessage = "echo"
	r.apply(realtime.Change{Table: realtime.Conversations, Op: realtime.Update, Conversation: &same})
	assert.Equal(t, "echo", r.View().Conversation.LastMessage)
}

func TestCloseUnsubscribes(t *testing.T) {
	f := newFixture(t, alice)
	r := New(f.conv.ID, f.deps, Options{})
	require.NoError(t, r.Open(context.Background()))
	require.Eventually(t, func() bool { return f.bus.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, status.Closed, r.Status())
	require.Eventually(t, func() bool { return f.bus.Subscribers() == 0 }, time.Second, 5*time.Millisecond)

	// Writes after close never reach the view.
	_, err := chat.NewStream(f.store, nil).Post(context.Background(), f.conv.ID, chat.Sender{Email: bob}, "late")
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, r.View().Messages)
	assert.ErrorIs(t, r.Send(context.Background()), ErrNotLive)
}

// droppingStore hands out a first subscription the test can close to
// simulate a dropped feed.
type droppingStore struct {
	realtime.Store
	mu    sync.Mutex
	calls int
	first chan realtime.Change
	// silent makes every subscription a feed that never delivers.
	silent bool
}

func (d *droppingStore) Subscribe(ctx context.Context, filters ...realtime.Filter) (<-chan realtime.Change, func(), error) {
	d.mu.Lock()
	d.calls++
	n := d.calls
	d.mu.Unlock()
	if d.silent {
		return make(chan realtime.Change), func() {}, nil
	}
	if n == 1 {
		return d.first, func() {}, nil
	}
	return d.Store.Subscribe(ctx, filters...)
}

func (d *droppingStore) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func TestDroppedFeedDegradesAndRecovers(t *testing.T) {
	f := newFixture(t, alice)
	ds := &droppingStore{Store: f.store, first: make(chan realtime.Change)}
	f.deps = deps(t, ds, f.bus, alice)

	events, unsub := f.bus.Subscribe(bus.KindRoomStatusChanged, 16)
	defer unsub()

	r := open(t, f, Options{ReconcileInterval: 20 * time.Millisecond})
	close(ds.first)

	seen := map[status.State]bool{}
	deadline := time.After(2 * time.Second)
	for !(seen[status.Degraded] && r.Status() == status.Live && ds.Calls() == 2) {
		select {
		case evt := <-events:
			seen[evt.Payload.(status.StatusChange).To] = true
		case <-deadline:
			t.Fatalf("room did not recover, status %s, seen %v", r.Status(), seen)
		}
	}

	// The new feed delivers again.
	_, err := chat.NewStream(f.store, nil).Post(context.Background(), f.conv.ID, chat.Sender{Email: bob}, "back")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(r.View().Messages) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestReconcilePicksUpMissedWrites(t *testing.T) {
	f := newFixture(t, alice)
	ds := &droppingStore{Store: f.store, silent: true}
	f.deps = deps(t, ds, f.bus, alice)

	r := open(t, f, Options{ReconcileInterval: 20 * time.Millisecond})
	_, err := chat.NewStream(f.store, nil).Post(context.Background(), f.conv.ID, chat.Sender{Email: bob}, "missed")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		v := r.View()
		return len(v.Messages) == 1 && v.Conversation.LastMessage == "missed"
	}, 2*time.Second, 10*time.Millisecond)
}
