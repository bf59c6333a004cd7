package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

const (
	StoreServiceName   = "trueque.v1.StoreService"
	SessionServiceName = "trueque.v1.SessionService"
)

// StoreServer is the server side of trueque.v1.StoreService.
type StoreServer interface {
	GetConversation(context.Context, *GetConversationRequest) (*ConversationResponse, error)
	FindConversations(context.Context, *FindConversationsRequest) (*FindConversationsResponse, error)
	CountConversations(context.Context, *FindConversationsRequest) (*CountConversationsResponse, error)
	InsertConversation(context.Context, *InsertConversationRequest) (*ConversationResponse, error)
	UpdateConversation(context.Context, *UpdateConversationRequest) (*ConversationResponse, error)
	InsertMessage(context.Context, *InsertMessageRequest) (*MessageResponse, error)
	ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error)
	Subscribe(*SubscribeRequest, EventSender) error
}

// SessionServer is the server side of trueque.v1.SessionService.
type SessionServer interface {
	GetSessionStatus(context.Context, *GetSessionStatusRequest) (*GetSessionStatusResponse, error)
}

// EventSender is the server half of the Subscribe stream.
type EventSender interface {
	Send(*EventEnvelope) error
	// SendHeader tells the client the subscription is registered.
	SendHeader(metadata.MD) error
	Context() context.Context
}

type eventSender struct {
	grpc.ServerStream
}

func (s eventSender) Send(e *EventEnvelope) error { return s.SendMsg(e) }

func unary[S, Req, Resp any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + service + "/" + method}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			})
		},
	}
}

func storeUnary[Req, Resp any](method string, call func(StoreServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return unary(StoreServiceName, method, call)
}

// StoreServiceDesc describes trueque.v1.StoreService for grpc.Server.RegisterService.
var StoreServiceDesc = grpc.ServiceDesc{
	ServiceName: StoreServiceName,
	HandlerType: (*StoreServer)(nil),
	Methods: []grpc.MethodDesc{
		storeUnary("GetConversation", StoreServer.GetConversation),
		storeUnary("FindConversations", StoreServer.FindConversations),
		storeUnary("CountConversations", StoreServer.CountConversations),
		storeUnary("InsertConversation", StoreServer.InsertConversation),
		storeUnary("UpdateConversation", StoreServer.UpdateConversation),
		storeUnary("InsertMessage", StoreServer.InsertMessage),
		storeUnary("ListMessages", StoreServer.ListMessages),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(SubscribeRequest)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(StoreServer).Subscribe(in, eventSender{stream})
			},
		},
	},
	Metadata: "trueque/v1/store.proto",
}

// SessionServiceDesc describes trueque.v1.SessionService.
var SessionServiceDesc = grpc.ServiceDesc{
	ServiceName: SessionServiceName,
	HandlerType: (*SessionServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(SessionServiceName, "GetSessionStatus", SessionServer.GetSessionStatus),
	},
	Metadata: "trueque/v1/session.proto",
}

// RegisterStoreServer registers srv on s.
func RegisterStoreServer(s grpc.ServiceRegistrar, srv StoreServer) {
	s.RegisterService(&StoreServiceDesc, srv)
}

// RegisterSessionServer registers srv on s.
func RegisterSessionServer(s grpc.ServiceRegistrar, srv SessionServer) {
	s.RegisterService(&SessionServiceDesc, srv)
}
