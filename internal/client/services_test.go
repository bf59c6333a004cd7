package client

import (
	"context"
	"testing"
	"time"

	"github.com/matheus3301/trueque/internal/bus"
	"github.com/matheus3301/trueque/internal/config"
	"github.com/matheus3301/trueque/internal/status"
	"github.com/matheus3301/trueque/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServicesRoomPublishesStatus(t *testing.T) {
	t.Setenv("TRUEQUE_HOME", t.TempDir())
	c, local := serve(t)
	ctx := context.Background()

	svc, err := NewServices("test", config.Default(), c.Remote(nil), nil)
	require.NoError(t, err)
	require.NotNil(t, svc.Bus)

	events, unsubscribe := svc.Bus.Subscribe(bus.KindRoomStatusChanged, 16)
	defer unsubscribe()

	conv, err := local.InsertConversation(ctx, &store.Conversation{ProductID: "P1", Participants: []string{"a@x.com", "b@x.com"}})
	require.NoError(t, err)

	// Nobody is logged in, so opening stops at AUTH_REQUIRED.
	var redirected string
	r := svc.Room(conv.ID, func(u string) { redirected = u })
	_ = r.Open(ctx)
	defer func() { _ = r.Close() }()

	select {
	case ev := <-events:
		change, ok := ev.Payload.(status.StatusChange)
		require.True(t, ok, "payload %T", ev.Payload)
		assert.Equal(t, conv.ID, change.Room)
		assert.Equal(t, status.Idle, change.From)
		assert.Equal(t, status.AuthRequired, change.To)
	case <-time.After(2 * time.Second):
		t.Fatal("no room status event on the services bus")
	}
	assert.NotEmpty(t, redirected)
}
