// Package inbox raises the unread indicator for recent activity and lists
// the most recently active conversations of the current user.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/matheus3301/trueque/internal/identity"
	"github.com/matheus3301/trueque/internal/realtime"
	"github.com/matheus3301/trueque/internal/store"
	"go.uber.org/zap"
)

// Defaults used when Options leaves a field unset.
const (
	DefaultRecencyWindow = 2 * time.Minute
	DefaultLimit         = 5
)

// ErrNotStarted is returned by Open before Start.
var ErrNotStarted = errors.New("inbox: not started")

// Options tune an Inbox.
type Options struct {
	RecencyWindow time.Duration
	Limit         int
	Redirect      func(loginURL string)
}

// Entry is one inbox row.
type Entry struct {
	Conversation store.Conversation
	Counterpart  string
	Name         string
}

// Inbox watches the conversations of the current identity.
type Inbox struct {
	store  realtime.Store
	ident  identity.Provider
	names  *Names
	opts   Options
	logger *zap.Logger
	now    func() time.Time

	updates chan struct{}

	mu      sync.Mutex
	me      string
	unread  bool
	open    bool
	entries []Entry
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	dropped bool
}

// New creates an inbox. names may be nil.
func New(s realtime.Store, p identity.Provider, names *Names, opts Options, logger *zap.Logger) *Inbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	if names == nil {
		names = NewNames(nil, logger)
	}
	if opts.RecencyWindow <= 0 {
		opts.RecencyWindow = DefaultRecencyWindow
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	return &Inbox{
		store:   s,
		ident:   p,
		names:   names,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
		updates: make(chan struct{}, 1),
	}
}

// Updates signals a change of the unread flag or the open list.
func (in *Inbox) Updates() <-chan struct{} { return in.updates }

// Unread reports whether the indicator is raised.
func (in *Inbox) Unread() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.unread
}

// IsOpen reports whether the popover is shown.
func (in *Inbox) IsOpen() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.open
}

// Entries returns the rows loaded by the last Open or refresh.
func (in *Inbox) Entries() []Entry {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]Entry(nil), in.entries...)
}

// Start probes for recent activity and subscribes to conversation updates
// of the current identity. Probe failures are logged, not returned.
func (in *Inbox) Start(ctx context.Context) error {
	me, err := identity.Require(in.ident, in.opts.Redirect)
	if err != nil {
		return err
	}

	in.mu.Lock()
	if in.cancel != nil {
		in.mu.Unlock()
		return nil
	}
	in.me = me.Email
	loopCtx, cancel := context.WithCancel(context.Background())
	in.ctx, in.cancel = loopCtx, cancel
	in.mu.Unlock()

	newest, err := in.store.FindConversations(ctx, store.ConversationQuery{
		Participants: []string{me.Email},
		Limit:        1,
	})
	if err != nil {
		in.logger.Warn("inbox probe failed", zap.Error(err))
	} else if len(newest) > 0 && in.recent(newest[0].LastMessageAt) {
		in.raise()
	}

	return in.subscribe()
}

func (in *Inbox) subscribe() error {
	in.mu.Lock()
	ctx, me := in.ctx, in.me
	in.mu.Unlock()

	changes, stop, err := in.store.Subscribe(ctx, realtime.Filter{
		Table:       realtime.Conversations,
		Ops:         []realtime.Op{realtime.Update},
		Participant: me,
	})
	if err != nil {
		return fmt.Errorf("subscribe inbox: %w", err)
	}
	done := make(chan struct{})
	in.mu.Lock()
	in.done = done
	in.dropped = false
	in.mu.Unlock()
	go in.run(ctx, changes, stop, done)
	return nil
}

func (in *Inbox) run(ctx context.Context, changes <-chan realtime.Change, stop func(), done chan struct{}) {
	defer close(done)
	defer stop()
	for c := range changes {
		if c.Conversation == nil {
			continue
		}
		if in.recent(c.Conversation.LastMessageAt) {
			in.raise()
		}
		if in.IsOpen() {
			if err := in.refresh(ctx); err != nil && ctx.Err() == nil {
				in.logger.Warn("inbox refresh failed", zap.Error(err))
			}
		}
	}
	if ctx.Err() == nil {
		in.logger.Warn("inbox feed dropped, resubscribing on next open")
		in.mu.Lock()
		in.dropped = true
		in.mu.Unlock()
	}
}

func (in *Inbox) recent(lastMessageAt int64) bool {
	if lastMessageAt == 0 {
		return false
	}
	return in.now().Sub(time.UnixMilli(lastMessageAt)) < in.opts.RecencyWindow
}

func (in *Inbox) raise() {
	in.mu.Lock()
	in.unread = true
	in.mu.Unlock()
	in.notify()
}

// Open shows the popover: it loads the most recent conversations, resolves
// counterpart names and clears the unread indicator.
func (in *Inbox) Open(ctx context.Context) ([]Entry, error) {
	in.mu.Lock()
	started, dropped := in.cancel != nil, in.dropped
	in.open = true
	in.unread = false
	in.mu.Unlock()
	if !started {
		return nil, ErrNotStarted
	}
	if dropped {
		if err := in.subscribe(); err != nil {
			in.logger.Warn("inbox resubscribe failed", zap.Error(err))
		}
	}
	if err := in.refresh(ctx); err != nil {
		return nil, err
	}
	return in.Entries(), nil
}

// Dismiss hides the popover.
func (in *Inbox) Dismiss() {
	in.mu.Lock()
	in.open = false
	in.mu.Unlock()
	in.notify()
}

// Stop unsubscribes and waits for the watcher to exit.
func (in *Inbox) Stop() {
	in.mu.Lock()
	cancel, done := in.cancel, in.done
	in.cancel, in.done = nil, nil
	in.open = false
	in.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (in *Inbox) refresh(ctx context.Context) error {
	in.mu.Lock()
	me := in.me
	in.mu.Unlock()
	entries, err := in.list(ctx, me, in.opts.Limit)
	if err != nil {
		return err
	}
	in.mu.Lock()
	in.entries = entries
	in.mu.Unlock()
	in.notify()
	return nil
}

// All returns every conversation of the current identity with resolved
// counterpart names, most recent activity first.
func (in *Inbox) All(ctx context.Context) ([]Entry, error) {
	me, err := identity.Require(in.ident, in.opts.Redirect)
	if err != nil {
		return nil, err
	}
	return in.list(ctx, me.Email, 0)
}

func (in *Inbox) list(ctx context.Context, me string, limit int) ([]Entry, error) {
	convs, err := in.store.FindConversations(ctx, store.ConversationQuery{
		Participants: []string{me},
		Limit:        limit,
	})
	if err != nil {
		return nil, fmt.Errorf("load inbox: %w", err)
	}
	counterparts := make([]string, len(convs))
	for i := range convs {
		counterparts[i] = counterpart(&convs[i], me)
	}
	in.names.Resolve(ctx, counterparts)

	entries := make([]Entry, len(convs))
	for i, c := range convs {
		name := in.names.Cached(counterparts[i])
		if name == "" {
			name = "User"
		}
		entries[i] = Entry{Conversation: c, Counterpart: counterparts[i], Name: name}
	}
	return entries, nil
}

// counterpart is the other participant, or the first one for a
// conversation with oneself.
func counterpart(c *store.Conversation, me string) string {
	if other := c.Counterpart(me); other != "" {
		return other
	}
	if len(c.Participants) > 0 {
		return c.Participants[0]
	}
	return ""
}

func (in *Inbox) notify() {
	select {
	case in.updates <- struct{}{}:
	default:
	}
}
