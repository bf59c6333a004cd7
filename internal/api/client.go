package api

import (
	"context"

	"google.golang.org/grpc"
)

// StoreClient is the client side of trueque.v1.StoreService.
type StoreClient struct {
	cc grpc.ClientConnInterface
}

// NewStoreClient creates a client on an existing connection.
func NewStoreClient(cc grpc.ClientConnInterface) *StoreClient {
	return &StoreClient{cc: cc}
}

func (c *StoreClient) invoke(ctx context.Context, method string, in, out any) error {
	return c.cc.Invoke(ctx, "/"+StoreServiceName+"/"+method, in, out, grpc.CallContentSubtype(CodecName))
}

func (c *StoreClient) GetConversation(ctx context.Context, in *GetConversationRequest) (*ConversationResponse, error) {
	out := new(ConversationResponse)
	if err := c.invoke(ctx, "GetConversation", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StoreClient) FindConversations(ctx context.Context, in *FindConversationsRequest) (*FindConversationsResponse, error) {
	out := new(FindConversationsResponse)
	if err := c.invoke(ctx, "FindConversations", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StoreClient) CountConversations(ctx context.Context, in *FindConversationsRequest) (*CountConversationsResponse, error) {
	out := new(CountConversationsResponse)
	if err := c.invoke(ctx, "CountConversations", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StoreClient) InsertConversation(ctx context.Context, in *InsertConversationRequest) (*ConversationResponse, error) {
	out := new(ConversationResponse)
	if err := c.invoke(ctx, "InsertConversation", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StoreClient) UpdateConversation(ctx context.Context, in *UpdateConversationRequest) (*ConversationResponse, error) {
	out := new(ConversationResponse)
	if err := c.invoke(ctx, "UpdateConversation", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StoreClient) InsertMessage(ctx context.Context, in *InsertMessageRequest) (*MessageResponse, error) {
	out := new(MessageResponse)
	if err := c.invoke(ctx, "InsertMessage", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StoreClient) ListMessages(ctx context.Context, in *ListMessagesRequest) (*ListMessagesResponse, error) {
	out := new(ListMessagesResponse)
	if err := c.invoke(ctx, "ListMessages", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// EventStream is the client half of the Subscribe stream.
type EventStream interface {
	Recv() (*EventEnvelope, error)
}

type eventStream struct {
	grpc.ClientStream
}

func (s eventStream) Recv() (*EventEnvelope, error) {
	e := new(EventEnvelope)
	if err := s.RecvMsg(e); err != nil {
		return nil, err
	}
	return e, nil
}

// Subscribe opens the change feed and returns once the server has
// registered it, so writes made after it returns are delivered. Cancel ctx
// to end it.
func (c *StoreClient) Subscribe(ctx context.Context, in *SubscribeRequest) (EventStream, error) {
	stream, err := c.cc.NewStream(ctx, &StoreServiceDesc.Streams[0], "/"+StoreServiceName+"/Subscribe", grpc.CallContentSubtype(CodecName))
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	if _, err := stream.Header(); err != nil {
		return nil, err
	}
	return eventStream{stream}, nil
}

// SessionClient is the client side of trueque.v1.SessionService.
type SessionClient struct {
	cc grpc.ClientConnInterface
}

// NewSessionClient creates a client on an existing connection.
func NewSessionClient(cc grpc.ClientConnInterface) *SessionClient {
	return &SessionClient{cc: cc}
}

func (c *SessionClient) GetSessionStatus(ctx context.Context, in *GetSessionStatusRequest) (*GetSessionStatusResponse, error) {
	out := new(GetSessionStatusResponse)
	err := c.cc.Invoke(ctx, "/"+SessionServiceName+"/GetSessionStatus", in, out, grpc.CallContentSubtype(CodecName))
	if err != nil {
		return nil, err
	}
	return out, nil
}
