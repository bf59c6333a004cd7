package api

import (
	"github.com/matheus3301/trueque/internal/realtime"
	"github.com/matheus3301/trueque/internal/store"
)

type GetConversationRequest struct {
	ID string `json:"id"`
}

type ConversationResponse struct {
	Conversation *store.Conversation `json:"conversation"`
}

type FindConversationsRequest struct {
	Query store.ConversationQuery `json:"query"`
}

type FindConversationsResponse struct {
	Conversations []store.Conversation `json:"conversations"`
}

type CountConversationsResponse struct {
	Count int64 `json:"count"`
}

type InsertConversationRequest struct {
	Conversation *store.Conversation `json:"conversation"`
}

type UpdateConversationRequest struct {
	ID    string                  `json:"id"`
	Patch store.ConversationPatch `json:"patch"`
}

type InsertMessageRequest struct {
	Message *store.Message `json:"message"`
}

type MessageResponse struct {
	Message *store.Message `json:"message"`
}

type ListMessagesRequest struct {
	ConversationID string `json:"conversation_id"`
}

type ListMessagesResponse struct {
	Messages []store.Message `json:"messages"`
}

type SubscribeRequest struct {
	Filters []realtime.Filter `json:"filters"`
}

// EventEnvelope wraps one pushed change.
type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	OccurredAtUnixMs int64           `json:"occurred_at_unix_ms"`
	Kind             string          `json:"kind"`
	PayloadVersion   int32           `json:"payload_version"`
	Change           realtime.Change `json:"change"`
}

type GetSessionStatusRequest struct{}

type GetSessionStatusResponse struct {
	Session       string `json:"session"`
	Pid           int    `json:"pid"`
	UptimeMs      int64  `json:"uptime_ms"`
	Conversations int64  `json:"conversations"`
	Subscribers   int    `json:"subscribers"`
}
