package api

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/trueque/internal/realtime"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	grpcstatus "google.golang.org/grpc/status"
)

// StoreService serves row CRUD and the change feed of a realtime.Store.
type StoreService struct {
	store  realtime.Store
	logger *zap.Logger
}

// NewStoreService creates a store service backed by s.
func NewStoreService(s realtime.Store, logger *zap.Logger) *StoreService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreService{store: s, logger: logger}
}

func (s *StoreService) GetConversation(ctx context.Context, req *GetConversationRequest) (*ConversationResponse, error) {
	c, err := s.store.GetConversation(ctx, req.ID)
	if err != nil {
		return nil, toStatus("get conversation", err)
	}
	return &ConversationResponse{Conversation: c}, nil
}

func (s *StoreService) FindConversations(ctx context.Context, req *FindConversationsRequest) (*FindConversationsResponse, error) {
	cs, err := s.store.FindConversations(ctx, req.Query)
	if err != nil {
		return nil, toStatus("find conversations", err)
	}
	return &FindConversationsResponse{Conversations: cs}, nil
}

func (s *StoreService) CountConversations(ctx context.Context, req *FindConversationsRequest) (*CountConversationsResponse, error) {
	n, err := s.store.CountConversations(ctx, req.Query)
	if err != nil {
		return nil, toStatus("count conversations", err)
	}
	return &CountConversationsResponse{Count: n}, nil
}

func (s *StoreService) InsertConversation(ctx context.Context, req *InsertConversationRequest) (*ConversationResponse, error) {
	if req.Conversation == nil {
		return nil, grpcstatus.Error(codes.InvalidArgument, "insert conversation: missing row")
	}
	c, err := s.store.InsertConversation(ctx, req.Conversation)
	if err != nil {
		return nil, toStatus("insert conversation", err)
	}
	s.logger.Debug("conversation created", zap.String("id", c.ID), zap.String("product", c.ProductID))
	return &ConversationResponse{Conversation: c}, nil
}

func (s *StoreService) UpdateConversation(ctx context.Context, req *UpdateConversationRequest) (*ConversationResponse, error) {
	c, err := s.store.UpdateConversation(ctx, req.ID, req.Patch)
	if err != nil {
		return nil, toStatus("update conversation", err)
	}
	return &ConversationResponse{Conversation: c}, nil
}

func (s *StoreService) InsertMessage(ctx context.Context, req *InsertMessageRequest) (*MessageResponse, error) {
	if req.Message == nil {
		return nil, grpcstatus.Error(codes.InvalidArgument, "insert message: missing row")
	}
	m, err := s.store.InsertMessage(ctx, req.Message)
	if err != nil {
		return nil, toStatus("insert message", err)
	}
	return &MessageResponse{Message: m}, nil
}

func (s *StoreService) ListMessages(ctx context.Context, req *ListMessagesRequest) (*ListMessagesResponse, error) {
	ms, err := s.store.ListMessages(ctx, req.ConversationID)
	if err != nil {
		return nil, toStatus("list messages", err)
	}
	return &ListMessagesResponse{Messages: ms}, nil
}

// Subscribe streams changes until the client goes away. A feed that drops
// the subscriber ends the stream with ResourceExhausted so the client resubscribes.
func (s *StoreService) Subscribe(req *SubscribeRequest, stream EventSender) error {
	ctx := stream.Context()
	ch, stop, err := s.store.Subscribe(ctx, req.Filters...)
	if err != nil {
		return toStatus("subscribe", err)
	}
	defer stop()
	if err := stream.SendHeader(metadata.MD{}); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-ch:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Warn("change feed dropped subscriber")
				return grpcstatus.Error(codes.ResourceExhausted, "subscriber fell behind")
			}
			if err := stream.Send(&EventEnvelope{
				EventID:          uuid.New().String(),
				OccurredAtUnixMs: time.Now().UnixMilli(),
				Kind:             c.Kind(),
				PayloadVersion:   1,
				Change:           c,
			}); err != nil {
				return err
			}
		}
	}
}
