package room

import (
	"slices"

	"github.com/matheus3301/trueque/internal/chat"
	"github.com/matheus3301/trueque/internal/deal"
	"github.com/matheus3301/trueque/internal/status"
	"github.com/matheus3301/trueque/internal/store"
)

// View is a snapshot of everything a chat screen renders.
type View struct {
	Status       status.State
	Conversation *store.Conversation
	Me           string
	Counterpart  string
	Messages     []store.Message
	Days         []chat.DayGroup

	// Deal header.
	Confirmed     bool
	Confirmations int
	DealState     store.DealState
	Badge         string
	ActionLabel   string
	CanToggle     bool
	Toggling      bool

	Draft   string
	Sending bool
	CanSend bool
	Err     error
}

// View returns a snapshot of the room. Slices are copies.
func (r *Room) View() View {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v := View{
		Status:   r.status.Current(),
		Messages: slices.Clone(r.msgs),
		Toggling: r.toggling,
		Draft:    r.composer.Draft(),
		Sending:  r.composer.Sending(),
		CanSend:  r.composer.CanSend(),
		Err:      r.err,
	}
	v.Days = chat.GroupByDay(v.Messages, r.opts.Location)
	if r.me != nil {
		v.Me = r.me.Email
	}
	if r.conv != nil {
		c := *r.conv
		c.Participants = slices.Clone(c.Participants)
		c.DealConfirmations = slices.Clone(c.DealConfirmations)
		v.Conversation = &c
		v.Counterpart = c.Counterpart(v.Me)
		v.Confirmed = deal.Confirmed(&c, v.Me)
		v.Confirmations = len(c.DealConfirmations)
		v.DealState = c.DealState
		v.Badge = deal.Badge(&c)
		v.ActionLabel = deal.ActionLabel(&c, v.Me)
		v.CanToggle = !r.toggling && deal.CanToggle(&c, v.Me, r.deals.Options().AllowReopen)
	}
	return v
}
