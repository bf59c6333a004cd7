// Package client talks to a running truequed over its Unix socket.
package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/matheus3301/trueque/internal/api"
	"github.com/matheus3301/trueque/internal/realtime"
	"github.com/matheus3301/trueque/internal/store"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client wraps the gRPC connection to the daemon.
type Client struct {
	conn    *grpc.ClientConn
	Store   *api.StoreClient
	Session *api.SessionClient
}

// New dials the daemon's Unix domain socket and returns typed service clients.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}

	return &Client{
		conn:    conn,
		Store:   api.NewStoreClient(conn),
		Session: api.NewSessionClient(conn),
	}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Remote is a realtime.Store served by the daemon.
type Remote struct {
	rpc    *api.StoreClient
	logger *zap.Logger
}

var _ realtime.Store = (*Remote)(nil)

// Remote returns the daemon-backed realtime.Store of this connection.
func (c *Client) Remote(logger *zap.Logger) *Remote {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Remote{rpc: c.Store, logger: logger}
}

func (r *Remote) GetConversation(ctx context.Context, id string) (*store.Conversation, error) {
	resp, err := r.rpc.GetConversation(ctx, &api.GetConversationRequest{ID: id})
	if err != nil {
		return nil, api.FromStatus(err)
	}
	return resp.Conversation, nil
}

func (r *Remote) FindConversations(ctx context.Context, q store.ConversationQuery) ([]store.Conversation, error) {
	resp, err := r.rpc.FindConversations(ctx, &api.FindConversationsRequest{Query: q})
	if err != nil {
		return nil, api.FromStatus(err)
	}
	return resp.Conversations, nil
}

func (r *Remote) CountConversations(ctx context.Context, q store.ConversationQuery) (int64, error) {
	resp, err := r.rpc.CountConversations(ctx, &api.FindConversationsRequest{Query: q})
	if err != nil {
		return 0, api.FromStatus(err)
	}
	return resp.Count, nil
}

func (r *Remote) InsertConversation(ctx context.Context, c *store.Conversation) (*store.Conversation, error) {
	resp, err := r.rpc.InsertConversation(ctx, &api.InsertConversationRequest{Conversation: c})
	if err != nil {
		return nil, api.FromStatus(err)
	}
	return resp.Conversation, nil
}

func (r *Remote) UpdateConversation(ctx context.Context, id string, patch store.ConversationPatch) (*store.Conversation, error) {
	resp, err := r.rpc.UpdateConversation(ctx, &api.UpdateConversationRequest{ID: id, Patch: patch})
	if err != nil {
		return nil, api.FromStatus(err)
	}
	return resp.Conversation, nil
}

func (r *Remote) InsertMessage(ctx context.Context, m *store.Message) (*store.Message, error) {
	resp, err := r.rpc.InsertMessage(ctx, &api.InsertMessageRequest{Message: m})
	if err != nil {
		return nil, api.FromStatus(err)
	}
	return resp.Message, nil
}

func (r *Remote) ListMessages(ctx context.Context, conversationID string) ([]store.Message, error) {
	resp, err := r.rpc.ListMessages(ctx, &api.ListMessagesRequest{ConversationID: conversationID})
	if err != nil {
		return nil, api.FromStatus(err)
	}
	return resp.Messages, nil
}

// Subscribe opens a server stream and relays its changes. The channel
// closes when the stream ends for any reason.
func (r *Remote) Subscribe(ctx context.Context, filters ...realtime.Filter) (<-chan realtime.Change, func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	stream, err := r.rpc.Subscribe(ctx, &api.SubscribeRequest{Filters: filters})
	if err != nil {
		cancel()
		return nil, nil, api.FromStatus(err)
	}

	out := make(chan realtime.Change, realtime.DefaultBuffer)
	var once sync.Once
	stop := func() { once.Do(cancel) }

	go func() {
		defer close(out)
		defer stop()
		for {
			env, err := stream.Recv()
			if err != nil {
				if ctx.Err() == nil {
					r.logger.Warn("change stream ended", zap.Error(err))
				}
				return
			}
			select {
			case out <- env.Change:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, stop, nil
}
