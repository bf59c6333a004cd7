package chat

import (
	"cmp"
	"slices"
	"time"

	"github.com/matheus3301/trueque/internal/store"
)

// SortMessages orders by created_at, then id, in place.
func SortMessages(msgs []store.Message) {
	slices.SortStableFunc(msgs, func(a, b store.Message) int {
		if c := cmp.Compare(a.CreatedAt, b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// Merge adds incoming messages to existing, skipping ids already present,
// and returns the result in display order. Arrival order never matters.
func Merge(existing []store.Message, incoming ...store.Message) []store.Message {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]store.Message, 0, len(existing)+len(incoming))
	for _, list := range [][]store.Message{existing, incoming} {
		for _, m := range list {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, m)
		}
	}
	SortMessages(out)
	return out
}

// DayGroup is a run of messages that share a local calendar day.
type DayGroup struct {
	Day      time.Time
	Messages []store.Message
}

// Label renders the day heading.
func (g DayGroup) Label() string {
	return g.Day.Format("Mon, Jan 2 2006")
}

// GroupByDay splits msgs, which must already be sorted, into local days.
// Grouping is display-only and keeps message order.
func GroupByDay(msgs []store.Message, loc *time.Location) []DayGroup {
	if loc == nil {
		loc = time.Local
	}
	var groups []DayGroup
	for _, m := range msgs {
		t := time.UnixMilli(m.CreatedAt).In(loc)
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		if n := len(groups); n > 0 && groups[n-1].Day.Equal(day) {
			groups[n-1].Messages = append(groups[n-1].Messages, m)
			continue
		}
		groups = append(groups, DayGroup{Day: day, Messages: []store.Message{m}})
	}
	return groups
}

// Clock renders a message time as HH:MM in loc.
func Clock(m store.Message, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(m.CreatedAt).In(loc).Format("15:04")
}
