// Package room owns the lifecycle of one open conversation view: initial
// load, live updates, periodic reconciliation and the send/confirm actions.
package room

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/matheus3301/trueque/internal/bus"
	"github.com/matheus3301/trueque/internal/chat"
	"github.com/matheus3301/trueque/internal/deal"
	"github.com/matheus3301/trueque/internal/identity"
	"github.com/matheus3301/trueque/internal/realtime"
	"github.com/matheus3301/trueque/internal/status"
	"github.com/matheus3301/trueque/internal/store"
	"go.uber.org/zap"
)

// DefaultReconcileInterval is used when Options leaves it unset.
const DefaultReconcileInterval = 30 * time.Second

var (
	// ErrNotFailed is returned by Retry when the room has not failed.
	ErrNotFailed = errors.New("room: retry is only possible after a failed load")
	// ErrNotLive is returned by actions that need a loaded room.
	ErrNotLive = errors.New("room: not loaded")
)

// Deps are the collaborators of a Room.
type Deps struct {
	Store    realtime.Store
	Stream   *chat.Stream
	Deals    *deal.Machine
	Identity identity.Provider
	Bus      *bus.Bus
	Logger   *zap.Logger
}

// Options tune a Room.
type Options struct {
	ReconcileInterval time.Duration
	// Location groups messages by calendar day. Defaults to time.Local.
	Location *time.Location
	// Redirect receives the login URL when no identity is present.
	Redirect func(loginURL string)
}

// Room is the controller of one conversation view.
type Room struct {
	id       string
	store    realtime.Store
	stream   *chat.Stream
	deals    *deal.Machine
	ident    identity.Provider
	opts     Options
	logger   *zap.Logger
	status   *status.Machine
	composer chat.Composer
	updates  chan struct{}

	mu       sync.RWMutex
	me       *identity.Identity
	conv     *store.Conversation
	msgs     []store.Message
	err      error
	toggling bool

	loopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a room for conversationID in the IDLE state.
func New(conversationID string, d Deps, opts Options) *Room {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if opts.ReconcileInterval <= 0 {
		opts.ReconcileInterval = DefaultReconcileInterval
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Room{
		id:      conversationID,
		store:   d.Store,
		stream:  d.Stream,
		deals:   d.Deals,
		ident:   d.Identity,
		opts:    opts,
		logger:  d.Logger.With(zap.String("conversation", conversationID)),
		status:  status.NewMachine(d.Bus, conversationID),
		updates: make(chan struct{}, 1),
	}
}

// ID returns the conversation id.
func (r *Room) ID() string { return r.id }

// Status returns the lifecycle state.
func (r *Room) Status() status.State { return r.status.Current() }

// Composer returns the draft input of the room.
func (r *Room) Composer() *chat.Composer { return &r.composer }

// Updates signals that View changed. Signals coalesce.
func (r *Room) Updates() <-chan struct{} { return r.updates }

// Open activates the room. Without an identity it triggers the login
// redirect, moves to AUTH_REQUIRED and returns identity.ErrLoginRequired.
// A failed load leaves the room FAILED with the error in View.
func (r *Room) Open(ctx context.Context) error {
	me, err := identity.Require(r.ident, r.opts.Redirect)
	if err != nil {
		if r.status.Current() != status.AuthRequired {
			_ = r.status.Transition(status.AuthRequired)
		}
		r.notify()
		return err
	}
	r.mu.Lock()
	r.me = me
	r.mu.Unlock()
	return r.load(ctx)
}

// Retry re-runs the load of a FAILED room.
func (r *Room) Retry(ctx context.Context) error {
	if r.status.Current() != status.Failed {
		return ErrNotFailed
	}
	me, err := identity.Require(r.ident, r.opts.Redirect)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.me = me
	r.mu.Unlock()
	return r.load(ctx)
}

func (r *Room) load(ctx context.Context) error {
	if err := r.status.Transition(status.Loading); err != nil {
		return err
	}
	r.notify()

	// Subscribe before reading so nothing written during the load is missed.
	loopCtx, cancel := context.WithCancel(context.Background())
	changes, stop, err := r.subscribe(loopCtx)
	if err != nil {
		cancel()
		return r.fail(err)
	}

	conv, msgs, err := r.fetch(ctx)
	if err == nil && !conv.HasParticipant(r.me.Email) {
		err = deal.ErrNotParticipant
	}
	if err != nil {
		stop()
		cancel()
		return r.fail(err)
	}

	r.mu.Lock()
	r.conv = conv
	r.msgs = msgs
	r.err = nil
	r.mu.Unlock()

	if err := r.status.Transition(status.Live); err != nil {
		stop()
		cancel()
		return err
	}

	done := make(chan struct{})
	r.loopMu.Lock()
	r.cancel = cancel
	r.done = done
	r.loopMu.Unlock()
	go r.run(loopCtx, changes, stop, done)

	r.logger.Info("room live", zap.Int("messages", len(msgs)))
	r.notify()
	return nil
}

func (r *Room) fail(err error) error {
	r.mu.Lock()
	r.err = err
	r.conv = nil
	r.msgs = nil
	r.mu.Unlock()
	_ = r.status.Transition(status.Failed)
	r.logger.Warn("room load failed", zap.Error(err))
	r.notify()
	return err
}

func (r *Room) fetch(ctx context.Context) (*store.Conversation, []store.Message, error) {
	conv, err := r.store.GetConversation(ctx, r.id)
	if err != nil {
		return nil, nil, fmt.Errorf("load conversation: %w", err)
	}
	msgs, err := r.stream.History(ctx, r.id)
	if err != nil {
		return nil, nil, err
	}
	return conv, msgs, nil
}

func (r *Room) subscribe(ctx context.Context) (<-chan realtime.Change, func(), error) {
	return r.store.Subscribe(ctx,
		realtime.Filter{
			Table:          realtime.Messages,
			Ops:            []realtime.Op{realtime.Insert},
			ConversationID: r.id,
		},
		realtime.Filter{
			Table: realtime.Conversations,
			Ops:   []realtime.Op{realtime.Update},
			ID:    r.id,
		},
	)
}

func (r *Room) run(ctx context.Context, changes <-chan realtime.Change, stop func(), done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.opts.ReconcileInterval)
	defer ticker.Stop()
	defer func() {
		if stop != nil {
			stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				if ctx.Err() != nil {
					return
				}
				stop()
				changes, stop = nil, nil
				if err := r.status.Transition(status.Degraded); err == nil {
					r.logger.Warn("change feed dropped, waiting for reconcile")
					r.notify()
				}
				continue
			}
			r.apply(c)
		case <-ticker.C:
			r.reconcile(ctx)
			if changes == nil {
				ch, st, err := r.subscribe(ctx)
				if err != nil {
					r.logger.Warn("resubscribe failed", zap.Error(err))
					continue
				}
				changes, stop = ch, st
				// Writes made while unsubscribed are picked up by a second read.
				r.reconcile(ctx)
				if err := r.status.Transition(status.Live); err == nil {
					r.logger.Info("change feed restored")
					r.notify()
				}
			}
		}
	}
}

func (r *Room) apply(c realtime.Change) {
	switch {
	case c.Message != nil:
		r.mu.Lock()
		r.msgs = chat.Merge(r.msgs, *c.Message)
		r.mu.Unlock()
	case c.Conversation != nil:
		if !r.accept(c.Conversation) {
			return
		}
	default:
		return
	}
	r.notify()
}

// accept stores c unless it is older than the row already held.
func (r *Room) accept(c *store.Conversation) bool {
	if c == nil || c.ID != r.id {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conv != nil && c.Version < r.conv.Version {
		return false
	}
	cp := *c
	r.conv = &cp
	return true
}

// reconcile re-reads the row and history. Failures are logged only.
func (r *Room) reconcile(ctx context.Context) {
	conv, msgs, err := r.fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Warn("reconcile failed", zap.Error(err))
		}
		return
	}
	r.accept(conv)
	r.mu.Lock()
	r.msgs = chat.Merge(r.msgs, msgs...)
	r.mu.Unlock()
	r.notify()
}

// Close tears down the live subscription and waits for the event loop.
// It is safe to call more than once.
func (r *Room) Close() error {
	r.loopMu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.loopMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if r.status.Current() == status.Closed {
		return nil
	}
	if err := r.status.Transition(status.Closed); err != nil {
		return err
	}
	r.logger.Info("room closed")
	r.notify()
	return nil
}

// Send posts the composer draft as the current identity. Blank drafts and
// drafts already in flight are ignored.
func (r *Room) Send(ctx context.Context) error {
	me, err := r.actor()
	if err != nil {
		return err
	}
	r.notify()
	msg, err := r.stream.Send(ctx, &r.composer, r.id, chat.SenderOf(me))
	r.mu.Lock()
	if msg != nil {
		r.msgs = chat.Merge(r.msgs, *msg)
	}
	r.err = err
	r.mu.Unlock()
	r.notify()
	return err
}

// ToggleDeal flips the current identity's confirmation. It is a no-op while
// a toggle is in flight or when the control is disabled.
func (r *Room) ToggleDeal(ctx context.Context) error {
	me, err := r.actor()
	if err != nil {
		return err
	}
	r.mu.Lock()
	if r.toggling || r.conv == nil || !deal.CanToggle(r.conv, me.Email, r.deals.Options().AllowReopen) {
		r.mu.Unlock()
		return nil
	}
	r.toggling = true
	r.mu.Unlock()
	r.notify()

	updated, err := r.deals.TryToggle(ctx, r.id, me.Email)
	r.accept(updated)
	r.mu.Lock()
	r.toggling = false
	r.err = err
	r.mu.Unlock()
	r.notify()
	return err
}

func (r *Room) actor() (*identity.Identity, error) {
	switch r.status.Current() {
	case status.Live, status.Degraded:
	default:
		return nil, ErrNotLive
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.me, nil
}

func (r *Room) notify() {
	select {
	case r.updates <- struct{}{}:
	default:
	}
}
