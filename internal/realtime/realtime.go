// Package realtime is the row store and change feed the trade chat core runs on.
package realtime

import (
	"context"

	"github.com/matheus3301/trueque/internal/store"
)

// Table names a logical table of the store.
type Table string

const (
	Conversations Table = "conversations"
	Messages      Table = "messages"
)

// Op is the kind of row change.
type Op string

const (
	Insert Op = "insert"
	Update Op = "update"
)

// Change is one row change pushed to subscribers. Exactly one of
// Conversation or Message is set, matching Table.
type Change struct {
	Table        Table               `json:"table"`
	Op           Op                  `json:"op"`
	Conversation *store.Conversation `json:"conversation,omitempty"`
	Message      *store.Message      `json:"message,omitempty"`
}

// Kind returns the bus event kind for the change, e.g. "messages.insert".
func (c Change) Kind() string {
	return string(c.Table) + "." + string(c.Op)
}

// Filter selects changes. Empty fields match anything.
type Filter struct {
	Table Table `json:"table,omitempty"`
	Ops   []Op  `json:"ops,omitempty"`
	// ID matches the conversation id of conversation rows.
	ID string `json:"id,omitempty"`
	// ConversationID matches messages.conversation_id.
	ConversationID string `json:"conversation_id,omitempty"`
	// Participant matches conversations whose participants contain it.
	Participant string `json:"participant,omitempty"`
}

// Match reports whether the change passes the filter.
func (f Filter) Match(c Change) bool {
	if f.Table != "" && f.Table != c.Table {
		return false
	}
	if len(f.Ops) > 0 {
		ok := false
		for _, op := range f.Ops {
			if op == c.Op {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	switch c.Table {
	case Conversations:
		if c.Conversation == nil {
			return false
		}
		if f.ID != "" && f.ID != c.Conversation.ID {
			return false
		}
		if f.ConversationID != "" {
			return false
		}
		if f.Participant != "" && !c.Conversation.HasParticipant(f.Participant) {
			return false
		}
	case Messages:
		if c.Message == nil {
			return false
		}
		if f.ID != "" || f.Participant != "" {
			return false
		}
		if f.ConversationID != "" && f.ConversationID != c.Message.ConversationID {
			return false
		}
	default:
		return false
	}
	return true
}

// MatchAny reports whether the change passes at least one filter.
// No filters means every change passes.
func MatchAny(filters []Filter, c Change) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if f.Match(c) {
			return true
		}
	}
	return false
}

// Store is the row CRUD and change subscription surface the core depends on.
type Store interface {
	GetConversation(ctx context.Context, id string) (*store.Conversation, error)
	FindConversations(ctx context.Context, q store.ConversationQuery) ([]store.Conversation, error)
	CountConversations(ctx context.Context, q store.ConversationQuery) (int64, error)
	InsertConversation(ctx context.Context, c *store.Conversation) (*store.Conversation, error)
	UpdateConversation(ctx context.Context, id string, patch store.ConversationPatch) (*store.Conversation, error)
	InsertMessage(ctx context.Context, m *store.Message) (*store.Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]store.Message, error)

	// Subscribe streams changes matching any of the filters. The channel is
	// closed when ctx ends, when the returned func is called, or when the
	// subscriber falls behind and the feed drops it.
	Subscribe(ctx context.Context, filters ...Filter) (<-chan Change, func(), error)
}
