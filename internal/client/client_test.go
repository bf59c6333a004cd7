package client

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/trueque/internal/api"
	"github.com/matheus3301/trueque/internal/chat"
	"github.com/matheus3301/trueque/internal/deal"
	"github.com/matheus3301/trueque/internal/identity"
	"github.com/matheus3301/trueque/internal/realtime"
	"github.com/matheus3301/trueque/internal/realtime/realtimetest"
	"github.com/matheus3301/trueque/internal/room"
	"github.com/matheus3301/trueque/internal/store"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// serve starts an in-process daemon on a short /tmp socket path.
func serve(t *testing.T) (*Client, *realtime.Local) {
	t.Helper()
	// Use /tmp to stay under the 104-char Unix socket limit on macOS.
	tmpDir, err := os.MkdirTemp("/tmp", "trueque-client-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tmpDir) })
	socketPath := filepath.Join(tmpDir, "d.sock")

	local, b := realtimetest.New(t)
	srv := grpc.NewServer()
	api.RegisterStoreServer(srv, api.NewStoreService(local, zap.NewNop()))
	api.RegisterSessionServer(srv, api.NewSessionService("test", local, b))

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = srv.Serve(listener) }()
	t.Cleanup(srv.Stop)

	c, err := New(socketPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, local
}

func TestRemoteRoundTrip(t *testing.T) {
	c, _ := serve(t)
	remote := c.Remote(nil)
	ctx := context.Background()

	conv, err := remote.InsertConversation(ctx, &store.Conversation{
		ProductID:    "P1",
		Participants: []string{"a@x.com", "b@x.com"},
		Title:        "Trade for product #P1",
	})
	if err != nil {
		t.Fatalf("InsertConversation error = %v", err)
	}
	if conv.ID == "" || conv.Version != 1 {
		t.Fatalf("conversation = %+v", conv)
	}

	if _, err := remote.InsertMessage(ctx, &store.Message{ConversationID: conv.ID, SenderEmail: "a@x.com", Body: "hi"}); err != nil {
		t.Fatalf("InsertMessage error = %v", err)
	}
	msgs, err := remote.ListMessages(ctx, conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Body != "hi" {
		t.Errorf("messages = %+v", msgs)
	}

	found, err := remote.FindConversations(ctx, store.ConversationQuery{Participants: []string{"b@x.com"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].ID != conv.ID {
		t.Errorf("found = %+v", found)
	}

	n, err := remote.CountConversations(ctx, store.ConversationQuery{ProductID: "P1"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestRemoteRestoresSentinelErrors(t *testing.T) {
	c, _ := serve(t)
	remote := c.Remote(nil)
	ctx := context.Background()

	if _, err := remote.GetConversation(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetConversation err = %v, want ErrNotFound", err)
	}

	conv, err := remote.InsertConversation(ctx, &store.Conversation{ProductID: "P1", Participants: []string{"a@x.com", "b@x.com"}})
	if err != nil {
		t.Fatal(err)
	}
	body := "x"
	if _, err := remote.UpdateConversation(ctx, conv.ID, store.ConversationPatch{LastMessage: &body, IfVersion: 7}); !errors.Is(err, store.ErrVersionConflict) {
		t.Errorf("UpdateConversation err = %v, want ErrVersionConflict", err)
	}
	if _, err := remote.InsertMessage(ctx, &store.Message{ConversationID: conv.ID, SenderEmail: "a@x.com", Body: "   "}); !errors.Is(err, store.ErrInvalid) {
		t.Errorf("InsertMessage err = %v, want ErrInvalid", err)
	}
}

func TestRemoteSubscribe(t *testing.T) {
	c, local := serve(t)
	remote := c.Remote(nil)
	ctx := context.Background()

	conv, err := local.InsertConversation(ctx, &store.Conversation{ProductID: "P1", Participants: []string{"a@x.com", "b@x.com"}})
	if err != nil {
		t.Fatal(err)
	}

	ch, stop, err := remote.Subscribe(ctx, realtime.Filter{Table: realtime.Messages, ConversationID: conv.ID})
	if err != nil {
		t.Fatal(err)
	}
	defer stop()

	// Subscribe returns only after the server registered, so a single write
	// right after it must be delivered.
	if _, err := local.InsertMessage(ctx, &store.Message{ConversationID: conv.ID, SenderEmail: "b@x.com", Body: "ping"}); err != nil {
		t.Fatal(err)
	}
	select {
	case change, ok := <-ch:
		if !ok {
			t.Fatal("stream closed")
		}
		if change.Message == nil || change.Message.Body != "ping" {
			t.Fatalf("change = %+v", change)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("write after Subscribe was not delivered")
	}
}

// lateWriter writes a counterpart message right after the room read the
// history, so the message can only arrive through the change feed.
type lateWriter struct {
	*Remote
	local *realtime.Local
	once  sync.Once
}

func (w *lateWriter) ListMessages(ctx context.Context, conversationID string) ([]store.Message, error) {
	msgs, err := w.Remote.ListMessages(ctx, conversationID)
	w.once.Do(func() {
		_, _ = w.local.InsertMessage(ctx, &store.Message{ConversationID: conversationID, SenderEmail: "b@x.com", Body: "late"})
	})
	return msgs, err
}

func TestRoomOverRemoteSeesWritesDuringLoad(t *testing.T) {
	c, local := serve(t)
	ctx := context.Background()
	conv, err := local.InsertConversation(ctx, &store.Conversation{ProductID: "P1", Participants: []string{"a@x.com", "b@x.com"}})
	if err != nil {
		t.Fatal(err)
	}

	s := &lateWriter{Remote: c.Remote(nil), local: local}
	stream := chat.NewStream(s, nil)
	r := room.New(conv.ID, room.Deps{
		Store:    s,
		Stream:   stream,
		Deals:    deal.NewMachine(s, stream, deal.DefaultOptions(), nil),
		Identity: &identity.Static{ID: &identity.Identity{Email: "a@x.com", Name: "Ana"}},
	}, room.Options{ReconcileInterval: time.Hour})
	if err := r.Open(ctx); err != nil {
		t.Fatalf("Open error = %v", err)
	}
	defer func() { _ = r.Close() }()

	deadline := time.After(2 * time.Second)
	for {
		for _, m := range r.View().Messages {
			if m.Body == "late" {
				return
			}
		}
		select {
		case <-r.Updates():
		case <-deadline:
			t.Fatal("message written during load never reached the room")
		}
	}
}

func TestSessionStatus(t *testing.T) {
	c, _ := serve(t)

	resp, err := c.Session.GetSessionStatus(context.Background(), &api.GetSessionStatusRequest{})
	if err != nil {
		t.Fatalf("GetSessionStatus error = %v", err)
	}
	if resp.Session != "test" {
		t.Errorf("session = %q, want test", resp.Session)
	}
	if resp.Pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", resp.Pid, os.Getpid())
	}
}
