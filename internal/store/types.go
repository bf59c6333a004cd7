package store

import "errors"

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrVersionConflict is returned when a conditional update finds a newer row version.
	ErrVersionConflict = errors.New("store: version conflict")
	// ErrInvalid is returned when a write would break a row invariant.
	ErrInvalid = errors.New("store: invalid row")
)

// DealState is the derived trade-completion state stored on a conversation.
type DealState string

const (
	DealNone      DealState = "none"
	DealPending   DealState = "pending"
	DealCompleted DealState = "completed"
)

// Conversation represents one trade negotiation thread between two participants.
// Timestamps are Unix milliseconds; zero means null.
type Conversation struct {
	ID                string    `json:"id"`
	ProductID         string    `json:"product_id"`
	OfferProductID    string    `json:"offer_product_id,omitempty"`
	Participants      []string  `json:"participants"`
	Title             string    `json:"title"`
	LastMessage       string    `json:"last_message"`
	LastMessageAt     int64     `json:"last_message_at"`
	DealConfirmations []string  `json:"deal_confirmations"`
	DealState         DealState `json:"deal_state"`
	DealCompletedAt   int64     `json:"deal_completed_at,omitempty"`
	Version           int64     `json:"version"`
	CreatedAt         int64     `json:"created_at"`
}

// HasParticipant reports whether email is one of the conversation participants.
func (c *Conversation) HasParticipant(email string) bool {
	for _, p := range c.Participants {
		if p == email {
			return true
		}
	}
	return false
}

// Counterpart returns the participant that is not email, or "" if none.
func (c *Conversation) Counterpart(email string) string {
	for _, p := range c.Participants {
		if p != email {
			return p
		}
	}
	return ""
}

// Message is an append-only row of a conversation. Sender fields are a
// snapshot taken at send time.
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	SenderEmail    string `json:"sender_email"`
	SenderName     string `json:"sender_name"`
	SenderAvatar   string `json:"sender_avatar"`
	Body           string `json:"body"`
	CreatedAt      int64  `json:"created_at"`
}

// ConversationPatch lists the columns an update touches. Nil fields are left alone.
type ConversationPatch struct {
	OfferProductID *string    `json:"offer_product_id,omitempty"`
	LastMessage    *string    `json:"last_message,omitempty"`
	LastMessageAt  *int64     `json:"last_message_at,omitempty"`
	Deal           *DealPatch `json:"deal,omitempty"`
	// IfVersion makes the update conditional on the current row version.
	// Zero means unconditional (last write wins).
	IfVersion int64 `json:"if_version,omitempty"`
}

// DealPatch replaces the deal columns as one unit.
type DealPatch struct {
	Confirmations []string  `json:"confirmations"`
	State         DealState `json:"state"`
	CompletedAt   int64     `json:"completed_at"`
}

// ConversationQuery filters conversations. Empty fields are ignored.
type ConversationQuery struct {
	ProductID string `json:"product_id,omitempty"`
	// Participants must all be members of the conversation.
	Participants []string  `json:"participants,omitempty"`
	DealState    DealState `json:"deal_state,omitempty"`
	Limit        int       `json:"limit,omitempty"`
	// Oldest orders by creation time ascending instead of most recent activity.
	Oldest bool `json:"oldest,omitempty"`
}
