// Package chat appends messages to conversations and keeps an ordered live view.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/matheus3301/trueque/internal/identity"
	"github.com/matheus3301/trueque/internal/realtime"
	"github.com/matheus3301/trueque/internal/store"
	"go.uber.org/zap"
)

// Reserved sender of narration messages.
const (
	SystemEmail = "system@trueque"
	SystemName  = "System"
)

// ErrEmptyBody is returned by Post for a blank body.
var ErrEmptyBody = errors.New("chat: empty message body")

// Sender is the identity snapshot stored on each message.
type Sender struct {
	Email  string
	Name   string
	Avatar string
}

// SenderOf snapshots an identity.
func SenderOf(id *identity.Identity) Sender {
	return Sender{Email: id.Email, Name: id.DisplayName(), Avatar: id.AvatarURL}
}

// System is the narration sender.
func System() Sender {
	return Sender{Email: SystemEmail, Name: SystemName}
}

// IsSystem reports whether m is a narration message.
func IsSystem(m store.Message) bool {
	return m.SenderEmail == SystemEmail
}

// Stream appends to and reads from conversation message streams.
type Stream struct {
	store  realtime.Store
	logger *zap.Logger
}

// NewStream creates a Stream over s.
func NewStream(s realtime.Store, logger *zap.Logger) *Stream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stream{store: s, logger: logger}
}

// Send posts the composer draft. Blank drafts and drafts already in flight
// are ignored and return (nil, nil). The draft survives a failed insert.
func (s *Stream) Send(ctx context.Context, c *Composer, conversationID string, from Sender) (*store.Message, error) {
	body, ok := c.begin()
	if !ok {
		return nil, nil
	}
	msg, err := s.Post(ctx, conversationID, from, body)
	c.finish(msg != nil)
	return msg, err
}

// Post appends body and then refreshes the conversation preview. The two
// writes are not atomic: when the preview update fails the message is
// returned together with the error.
func (s *Stream) Post(ctx context.Context, conversationID string, from Sender, body string) (*store.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	msg, err := s.store.InsertMessage(ctx, &store.Message{
		ConversationID: conversationID,
		SenderEmail:    from.Email,
		SenderName:     from.Name,
		SenderAvatar:   from.Avatar,
		Body:           body,
	})
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	at := msg.CreatedAt
	if _, err := s.store.UpdateConversation(ctx, conversationID, store.ConversationPatch{
		LastMessage:   &body,
		LastMessageAt: &at,
	}); err != nil {
		s.logger.Warn("conversation preview not updated",
			zap.String("conversation", conversationID), zap.Error(err))
		return msg, fmt.Errorf("update preview: %w", err)
	}
	return msg, nil
}

// History returns every message of the conversation in display order.
func (s *Stream) History(ctx context.Context, conversationID string) ([]store.Message, error) {
	msgs, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	SortMessages(msgs)
	return msgs, nil
}

// Count returns the number of messages in the conversation.
func (s *Stream) Count(ctx context.Context, conversationID string) (int, error) {
	msgs, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	return len(msgs), nil
}

// Subscribe delivers messages inserted into the conversation until stop is
// called or ctx ends. The channel closes when the feed ends.
func (s *Stream) Subscribe(ctx context.Context, conversationID string) (<-chan store.Message, func(), error) {
	changes, stop, err := s.store.Subscribe(ctx, realtime.Filter{
		Table:          realtime.Messages,
		Ops:            []realtime.Op{realtime.Insert},
		ConversationID: conversationID,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe messages: %w", err)
	}
	out := make(chan store.Message, realtime.DefaultBuffer)
	go func() {
		defer close(out)
		for c := range changes {
			if c.Message == nil {
				continue
			}
			select {
			case out <- *c.Message:
			case <-ctx.Done():
				stop()
				for range changes {
				}
				return
			}
		}
	}()
	return out, stop, nil
}
