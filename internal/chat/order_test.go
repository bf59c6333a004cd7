package chat

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/matheus3301/trueque/internal/store"
)

func ids(msgs []store.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestMergeDedupesAndOrders(t *testing.T) {
	existing := []store.Message{
		{ID: "m1", CreatedAt: 100},
		{ID: "m3", CreatedAt: 300},
	}
	// Out-of-order and duplicated push delivery.
	incoming := []store.Message{
		{ID: "m4", CreatedAt: 400},
		{ID: "m2", CreatedAt: 200},
		{ID: "m3", CreatedAt: 300},
		{ID: "m2", CreatedAt: 200},
	}

	got := ids(Merge(existing, incoming...))
	want := []string{"m1", "m2", "m3", "m4"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
	}
}

func TestSortMessagesTieBreaksOnID(t *testing.T) {
	msgs := []store.Message{
		{ID: "b", CreatedAt: 100},
		{ID: "a", CreatedAt: 100},
		{ID: "c", CreatedAt: 50},
	}
	SortMessages(msgs)
	if diff := cmp.Diff([]string{"c", "a", "b"}, ids(msgs)); diff != "" {
		t.Errorf("SortMessages() mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupByDay(t *testing.T) {
	loc := time.FixedZone("ART", -3*60*60)
	at := func(day, hour int) int64 {
		return time.Date(2026, 3, day, hour, 0, 0, 0, loc).UnixMilli()
	}
	msgs := []store.Message{
		{ID: "m1", CreatedAt: at(1, 9)},
		{ID: "m2", CreatedAt: at(1, 23)},
		{ID: "m3", CreatedAt: at(2, 0)},
	}

	groups := GroupByDay(msgs, loc)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if diff := cmp.Diff([]string{"m1", "m2"}, ids(groups[0].Messages)); diff != "" {
		t.Errorf("first day mismatch (-want +got):\n%s", diff)
	}
	if groups[1].Label() != "Mon, Mar 2 2026" {
		t.Errorf("label = %q", groups[1].Label())
	}
	if got := Clock(msgs[1], loc); got != "23:00" {
		t.Errorf("Clock() = %q, want 23:00", got)
	}
}
