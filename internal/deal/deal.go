// Package deal implements the two-party trade confirmation protocol.
package deal

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/trueque/internal/chat"
	"github.com/matheus3301/trueque/internal/realtime"
	"github.com/matheus3301/trueque/internal/store"
	"go.uber.org/zap"
)

var (
	// ErrNotParticipant is returned when the actor is not part of the conversation.
	ErrNotParticipant = errors.New("deal: actor is not a participant")
	// ErrConflict is returned in optimistic mode when the row changed since it was read.
	ErrConflict = errors.New("deal: conversation changed concurrently")
	// ErrDealLocked is returned for toggles on a completed deal when reopening is off.
	ErrDealLocked = errors.New("deal: trade already completed")
)

// Narrations posted by the system sender after each toggle.
const (
	TextCompleted  = "Trade marked completed by both parties."
	TextWithdrawn  = "Trade confirmation withdrawn."
	TextRegistered = "Trade confirmation registered, awaiting the other party."
)

// Mode selects how concurrent toggles are resolved.
type Mode string

const (
	// LastWriteWins writes the whole deal without a precondition.
	LastWriteWins Mode = "last_write_wins"
	// Optimistic writes only if the row version is still the one read.
	Optimistic Mode = "optimistic"
)

// StateFor derives the deal state from the number of confirmations.
func StateFor(n int) store.DealState {
	switch n {
	case 0:
		return store.DealNone
	case 1:
		return store.DealPending
	default:
		return store.DealCompleted
	}
}

// Transition is the planned effect of one toggle.
type Transition struct {
	Confirmations []string
	State         store.DealState
	// CompletedAt is Unix ms when State is completed, else zero.
	CompletedAt int64
	// Confirmed is true when the actor added themselves.
	Confirmed bool
	Narration string
}

// Plan computes the toggle of actor on c at now without touching the store.
func Plan(c *store.Conversation, actor string, now time.Time) (Transition, error) {
	if !c.HasParticipant(actor) {
		return Transition{}, fmt.Errorf("%w: %s", ErrNotParticipant, actor)
	}

	var t Transition
	if slices.Contains(c.DealConfirmations, actor) {
		t.Confirmations = slices.DeleteFunc(slices.Clone(c.DealConfirmations), func(e string) bool { return e == actor })
	} else {
		t.Confirmations = append(slices.Clone(c.DealConfirmations), actor)
		t.Confirmed = true
	}
	t.State = StateFor(len(t.Confirmations))
	if t.State == store.DealCompleted {
		t.CompletedAt = now.UnixMilli()
	}

	switch {
	case t.State == store.DealCompleted:
		t.Narration = TextCompleted
	case !t.Confirmed:
		t.Narration = TextWithdrawn
	default:
		t.Narration = TextRegistered
	}
	return t, nil
}

// Confirmed reports whether email has confirmed the deal of c.
func Confirmed(c *store.Conversation, email string) bool {
	return slices.Contains(c.DealConfirmations, email)
}

// CanToggle reports whether the confirm control is enabled for email.
// Before completion any participant may toggle; after completion only a
// participant who confirmed may withdraw, and only when reopening is allowed.
func CanToggle(c *store.Conversation, email string, allowReopen bool) bool {
	if c == nil || !c.HasParticipant(email) {
		return false
	}
	if c.DealState != store.DealCompleted {
		return true
	}
	return allowReopen && Confirmed(c, email)
}

// Badge is the short deal status shown in the room header.
func Badge(c *store.Conversation) string {
	switch c.DealState {
	case store.DealCompleted:
		return "Trade completed"
	case store.DealPending:
		return fmt.Sprintf("Confirmed (%d/2)", len(c.DealConfirmations))
	default:
		return "Not confirmed"
	}
}

// ActionLabel is the label of the confirm control for email.
func ActionLabel(c *store.Conversation, email string) string {
	switch {
	case c.DealState == store.DealCompleted && !Confirmed(c, email):
		return "Completed"
	case c.DealState == store.DealCompleted:
		return "Completed (withdraw)"
	case Confirmed(c, email):
		return "Withdraw confirmation"
	default:
		return "Mark trade done"
	}
}

// Options configures a Machine.
type Options struct {
	Mode        Mode
	AllowReopen bool
}

// DefaultOptions keeps last-write-wins and allows reopening.
func DefaultOptions() Options {
	return Options{Mode: LastWriteWins, AllowReopen: true}
}

// Machine applies confirmation toggles to stored conversations.
type Machine struct {
	store  realtime.Store
	stream *chat.Stream
	opts   Options
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewMachine creates a machine that narrates through stream.
func NewMachine(s realtime.Store, stream *chat.Stream, opts Options, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Mode == "" {
		opts.Mode = LastWriteWins
	}
	return &Machine{
		store:    s,
		stream:   stream,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		inFlight: make(map[string]bool),
	}
}

// Options returns the machine configuration.
func (m *Machine) Options() Options {
	return m.opts
}

// Toggle flips actor's confirmation on the conversation, persists the deal
// columns in one update and posts the system narration. It returns the
// conversation row as written by the deal update.
func (m *Machine) Toggle(ctx context.Context, conversationID, actor string) (*store.Conversation, error) {
	current, err := m.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if current.DealState == store.DealCompleted && !m.opts.AllowReopen {
		return nil, ErrDealLocked
	}

	t, err := Plan(current, actor, m.now())
	if err != nil {
		return nil, err
	}

	patch := store.ConversationPatch{Deal: &store.DealPatch{
		Confirmations: t.Confirmations,
		State:         t.State,
		CompletedAt:   t.CompletedAt,
	}}
	if m.opts.Mode == Optimistic {
		patch.IfVersion = current.Version
	}

	updated, err := m.store.UpdateConversation(ctx, conversationID, patch)
	if errors.Is(err, store.ErrVersionConflict) {
		return nil, fmt.Errorf("%w: %v", ErrConflict, err)
	}
	if err != nil {
		return nil, fmt.Errorf("update deal: %w", err)
	}

	m.logger.Info("deal toggled",
		zap.String("conversation", conversationID),
		zap.String("actor", actor),
		zap.String("state", string(t.State)))

	if _, err := m.stream.Post(ctx, conversationID, chat.System(), t.Narration); err != nil {
		return updated, fmt.Errorf("post narration: %w", err)
	}
	return updated, nil
}

// TryToggle is Toggle guarded by a per-conversation in-flight flag. It
// returns (nil, nil) when a toggle for the conversation is already running.
func (m *Machine) TryToggle(ctx context.Context, conversationID, actor string) (*store.Conversation, error) {
	m.mu.Lock()
	if m.inFlight[conversationID] {
		m.mu.Unlock()
		return nil, nil
	}
	m.inFlight[conversationID] = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.inFlight, conversationID)
		m.mu.Unlock()
	}()
	return m.Toggle(ctx, conversationID, actor)
}

// CompletedCount returns how many completed deals email took part in.
func CompletedCount(ctx context.Context, s realtime.Store, email string) (int64, error) {
	n, err := s.CountConversations(ctx, store.ConversationQuery{
		Participants: []string{email},
		DealState:    store.DealCompleted,
	})
	if err != nil {
		return 0, fmt.Errorf("count completed deals: %w", err)
	}
	return n, nil
}
