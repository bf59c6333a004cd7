package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/matheus3301/trueque/internal/bus"
	"github.com/matheus3301/trueque/internal/store"
	"go.uber.org/zap"
)

// DefaultBuffer is the per-subscription channel capacity.
const DefaultBuffer = 64

// Local is the in-process Store: SQLite rows plus bus-published changes.
type Local struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
	buffer int
}

// NewLocal wires a store and a bus into a Store.
func NewLocal(db *store.DB, b *bus.Bus, logger *zap.Logger) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{db: db, bus: b, logger: logger, buffer: DefaultBuffer}
}

// SetBuffer changes the channel capacity of later subscriptions.
func (l *Local) SetBuffer(n int) {
	if n > 0 {
		l.buffer = n
	}
}

func (l *Local) publish(c Change) {
	l.bus.Publish(bus.Event{Kind: c.Kind(), Timestamp: time.Now(), Payload: c})
}

func (l *Local) GetConversation(ctx context.Context, id string) (*store.Conversation, error) {
	return l.db.GetConversation(ctx, id)
}

func (l *Local) FindConversations(ctx context.Context, q store.ConversationQuery) ([]store.Conversation, error) {
	return l.db.FindConversations(ctx, q)
}

func (l *Local) CountConversations(ctx context.Context, q store.ConversationQuery) (int64, error) {
	return l.db.CountConversations(ctx, q)
}

func (l *Local) InsertConversation(ctx context.Context, c *store.Conversation) (*store.Conversation, error) {
	row, err := l.db.InsertConversation(ctx, c)
	if err != nil {
		return nil, err
	}
	l.publish(Change{Table: Conversations, Op: Insert, Conversation: row})
	return row, nil
}

func (l *Local) UpdateConversation(ctx context.Context, id string, patch store.ConversationPatch) (*store.Conversation, error) {
	row, err := l.db.UpdateConversation(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	l.publish(Change{Table: Conversations, Op: Update, Conversation: row})
	return row, nil
}

func (l *Local) InsertMessage(ctx context.Context, m *store.Message) (*store.Message, error) {
	row, err := l.db.InsertMessage(ctx, m)
	if err != nil {
		return nil, err
	}
	l.publish(Change{Table: Messages, Op: Insert, Message: row})
	return row, nil
}

func (l *Local) ListMessages(ctx context.Context, conversationID string) ([]store.Message, error) {
	return l.db.ListMessages(ctx, conversationID)
}

// Subscribe filters bus events into a Change channel. A subscriber whose
// channel is full is dropped: its channel closes and it must resubscribe.
func (l *Local) Subscribe(ctx context.Context, filters ...Filter) (<-chan Change, func(), error) {
	// The bus side is deeper so bursts reach the filter before the drop decision.
	events, unsub := l.bus.Subscribe(namespace(filters), l.buffer*4)
	out := make(chan Change, l.buffer)
	done := make(chan struct{})

	var once sync.Once
	stop := func() { once.Do(func() { close(done) }) }

	go func() {
		defer close(out)
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				c, ok := evt.Payload.(Change)
				if !ok || !MatchAny(filters, c) {
					continue
				}
				select {
				case out <- c:
				default:
					l.logger.Warn("subscriber fell behind, dropping subscription",
						zap.String("kind", evt.Kind))
					return
				}
			}
		}
	}()
	return out, stop, nil
}

// namespace narrows the bus subscription when every filter names the same table.
func namespace(filters []Filter) string {
	if len(filters) == 0 {
		return ""
	}
	table := filters[0].Table
	for _, f := range filters[1:] {
		if f.Table != table {
			return ""
		}
	}
	if table == "" {
		return ""
	}
	return string(table) + "."
}
