// Package conversation finds or opens the trade thread for a product and a pair of users.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/matheus3301/trueque/internal/catalog"
	"github.com/matheus3301/trueque/internal/chat"
	"github.com/matheus3301/trueque/internal/identity"
	"github.com/matheus3301/trueque/internal/realtime"
	"github.com/matheus3301/trueque/internal/store"
	"go.uber.org/zap"
)

// OpeningMessage is posted by the proposer into a new conversation.
const OpeningMessage = "Hi! I'm interested in trading for your product."

var (
	// ErrSelfTrade is returned when the counterpart is missing or is the proposer.
	ErrSelfTrade = errors.New("conversation: counterpart must be another user")
	// ErrNoProduct is returned when no target product is given.
	ErrNoProduct = errors.New("conversation: target product required")
)

// Title is the label of a new conversation about productID.
func Title(productID string) string {
	return "Trade for product #" + productID
}

// Proposal asks for the thread about TargetProductID between Proposer and
// CounterpartEmail. OfferedProductID is optional.
type Proposal struct {
	TargetProductID  string
	Proposer         *identity.Identity
	CounterpartEmail string
	OfferedProductID string
}

// Result is the outcome of Resolve.
type Result struct {
	ConversationID string
	Created        bool
}

// Products is the part of the catalog the resolver needs.
type Products interface {
	Product(ctx context.Context, id string) (*catalog.Product, error)
	OwnerEmail(ctx context.Context, p *catalog.Product) (string, error)
}

// Resolver deduplicates proposals into one conversation per product and pair.
type Resolver struct {
	store  realtime.Store
	stream *chat.Stream
	logger *zap.Logger
}

// NewResolver creates a resolver.
func NewResolver(s realtime.Store, stream *chat.Stream, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: s, stream: stream, logger: logger}
}

// Resolve returns the existing conversation for the proposal or creates it.
// Two concurrent first proposals may both create a row; later calls reuse
// the oldest one.
func (r *Resolver) Resolve(ctx context.Context, p Proposal) (Result, error) {
	if !p.Proposer.Valid() {
		return Result{}, identity.ErrLoginRequired
	}
	if strings.TrimSpace(p.TargetProductID) == "" {
		return Result{}, ErrNoProduct
	}
	me := p.Proposer.Email
	other := strings.TrimSpace(p.CounterpartEmail)
	if other == "" || other == me {
		return Result{}, ErrSelfTrade
	}

	found, err := r.store.FindConversations(ctx, store.ConversationQuery{
		ProductID:    p.TargetProductID,
		Participants: []string{me, other},
		Oldest:       true,
		Limit:        1,
	})
	if err != nil {
		return Result{}, fmt.Errorf("find conversation: %w", err)
	}

	if len(found) > 0 {
		existing := found[0]
		if existing.OfferProductID == "" && p.OfferedProductID != "" {
			offer := p.OfferedProductID
			if _, err := r.store.UpdateConversation(ctx, existing.ID, store.ConversationPatch{OfferProductID: &offer}); err != nil {
				return Result{}, fmt.Errorf("attach offer: %w", err)
			}
		}
		return Result{ConversationID: existing.ID}, nil
	}

	created, err := r.store.InsertConversation(ctx, &store.Conversation{
		ProductID:      p.TargetProductID,
		OfferProductID: p.OfferedProductID,
		Participants:   []string{me, other},
		Title:          Title(p.TargetProductID),
	})
	if err != nil {
		return Result{}, fmt.Errorf("create conversation: %w", err)
	}
	if _, err := r.stream.Post(ctx, created.ID, chat.SenderOf(p.Proposer), OpeningMessage); err != nil {
		return Result{}, fmt.Errorf("opening message: %w", err)
	}
	r.logger.Info("conversation created",
		zap.String("id", created.ID),
		zap.String("product", p.TargetProductID))
	return Result{ConversationID: created.ID, Created: true}, nil
}

// Propose is the product page entry point: it looks up the owner of
// targetProductID and resolves the thread with them.
func (r *Resolver) Propose(ctx context.Context, products Products, targetProductID string, proposer *identity.Identity, offeredProductID string) (Result, error) {
	if !proposer.Valid() {
		return Result{}, identity.ErrLoginRequired
	}
	product, err := products.Product(ctx, targetProductID)
	if err != nil {
		return Result{}, fmt.Errorf("load product: %w", err)
	}
	owner, err := products.OwnerEmail(ctx, product)
	if err != nil {
		return Result{}, err
	}
	return r.Resolve(ctx, Proposal{
		TargetProductID:  targetProductID,
		Proposer:         proposer,
		CounterpartEmail: owner,
		OfferedProductID: offeredProductID,
	})
}

// List returns every conversation of email, most recent activity first.
func List(ctx context.Context, s realtime.Store, email string, limit int) ([]store.Conversation, error) {
	cs, err := s.FindConversations(ctx, store.ConversationQuery{Participants: []string{email}, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return cs, nil
}
