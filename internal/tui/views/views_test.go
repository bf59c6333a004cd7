package views

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/trueque/internal/chat"
	"github.com/matheus3301/trueque/internal/inbox"
	"github.com/matheus3301/trueque/internal/room"
	"github.com/matheus3301/trueque/internal/status"
	"github.com/matheus3301/trueque/internal/store"
	"github.com/matheus3301/trueque/internal/tui/ui"
)

func TestSanitizeForTerminal(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", "hello", "hello"},
		{"skin tone", "👍🏻", "👍"},
		{"zwj family", "👨\u200d👩", "👨👩"},
		{"variation selector", "❤\ufe0f", "❤"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeForTerminal(tt.in); got != tt.want {
				t.Errorf("sanitizeForTerminal(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 4, 18, 0, 0, 0, time.UTC)
	if got := formatTimestamp(0, now); got != "" {
		t.Errorf("zero = %q, want empty", got)
	}
	today := time.Date(2026, 3, 4, 9, 5, 0, 0, time.UTC).UnixMilli()
	if got := formatTimestamp(today, now); got != "09:05" {
		t.Errorf("today = %q, want 09:05", got)
	}
	earlier := time.Date(2026, 2, 28, 9, 5, 0, 0, time.UTC).UnixMilli()
	if got := formatTimestamp(earlier, now); got != "02/28" {
		t.Errorf("earlier = %q, want 02/28", got)
	}
}

func TestPreview(t *testing.T) {
	if got := preview("two\nlines  here", 40); got != "two lines here" {
		t.Errorf("preview = %q", got)
	}
	if got := preview("abcdefghij", 5); got != "abcd…" {
		t.Errorf("preview = %q", got)
	}
}

func TestRenderQR(t *testing.T) {
	qr := renderQR("https://auth.trueque.app/authorize?state=x")
	if !strings.ContainsAny(qr, "█▀▄") {
		t.Fatal("QR has no modules")
	}
	if lines := strings.Count(qr, "\n"); lines < 10 {
		t.Errorf("QR has %d lines, want a full symbol", lines)
	}
}

func TestConversationListFilterAndSelection(t *testing.T) {
	cl := NewConversationList(ui.DefaultTheme())
	cl.Update([]inbox.Entry{
		{Conversation: store.Conversation{ID: "c1", Title: "Trade for product #1", LastMessage: "bike?"}, Name: "Bob"},
		{Conversation: store.Conversation{ID: "c2", Title: "Trade for product #2", LastMessage: "lamp"}, Name: "Carol"},
	})
	if cl.GetRowCount() != 3 {
		t.Fatalf("rows = %d, want header + 2", cl.GetRowCount())
	}

	cl.SetFilter("lamp")
	if cl.GetRowCount() != 2 {
		t.Fatalf("filtered rows = %d, want header + 1", cl.GetRowCount())
	}
	cl.Select(1, 0)
	if got := cl.Selected(); got != "c2" {
		t.Errorf("Selected() = %q, want c2", got)
	}
}

func TestChatRoomRender(t *testing.T) {
	var draft chat.Composer
	cr := NewChatRoom(ui.DefaultTheme(), "Trade for product #7", &draft)
	day := time.Date(2026, 3, 4, 10, 0, 0, 0, time.Local).UnixMilli()
	msgs := []store.Message{
		{ID: "1", SenderEmail: "bob@x.com", SenderName: "Bob", Body: "hi there", CreatedAt: day},
		{ID: "2", SenderEmail: "me@x.com", Body: "hello", CreatedAt: day + 1000},
		{ID: "3", SenderEmail: chat.SystemEmail, Body: "Trade confirmation withdrawn.", CreatedAt: day + 2000},
	}
	v := room.View{
		Status:       status.Live,
		Conversation: &store.Conversation{ID: "c", DealState: store.DealPending},
		Me:           "me@x.com",
		Counterpart:  "bob@x.com",
		Messages:     msgs,
		Days:         chat.GroupByDay(msgs, time.Local),
		Badge:        "Confirmed (1/2)",
		ActionLabel:  "Confirm trade",
		CanToggle:    true,
		DealState:    store.DealPending,
		Draft:        "draft text",
	}
	cr.Render(v, func(string) string { return "Bob B." })

	thread := cr.Messages().GetText(true)
	for _, want := range []string{"Wed, Mar 4 2026", "Bob", "hi there", "You", "Trade confirmation withdrawn."} {
		if !strings.Contains(thread, want) {
			t.Errorf("thread missing %q:\n%s", want, thread)
		}
	}
	header := cr.header.GetText(true)
	if !strings.Contains(header, "Bob B.") || !strings.Contains(header, "Confirmed (1/2)") {
		t.Errorf("header = %q", header)
	}
	if cr.Composer().GetText() != "draft text" {
		t.Errorf("composer = %q, want the draft", cr.Composer().GetText())
	}

	v.Err = errors.New("load conversation: store: not found")
	v.Status = status.Failed
	cr.Render(v, func(s string) string { return s })
	if !strings.Contains(cr.Messages().GetText(true), "Press r to retry.") {
		t.Error("failed room should offer a retry")
	}
}

func TestComposerLineBreakAtCursor(t *testing.T) {
	var draft chat.Composer
	cr := NewChatRoom(ui.DefaultTheme(), "Chat", &draft)
	sent := 0
	cr.SetOnSend(func() { sent++ })

	cr.Composer().SetText("ab", false)
	cr.Composer().Select(1, 1)
	if got := cr.captureComposer(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModAlt)); got != nil {
		t.Fatal("Alt+Enter should be consumed")
	}
	if got := cr.Composer().GetText(); got != "a\nb" {
		t.Errorf("composer = %q, want the break at the cursor", got)
	}
	if got := draft.Draft(); got != "a\nb" {
		t.Errorf("draft = %q, want %q", got, "a\nb")
	}
	if sent != 0 {
		t.Error("Alt+Enter must not send")
	}

	cr.captureComposer(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))
	if sent != 1 {
		t.Errorf("sent = %d, want 1", sent)
	}
}

func TestInboxViewHandles(t *testing.T) {
	iv := NewInboxView(ui.DefaultTheme())
	tests := []struct {
		name string
		ev   *tcell.EventKey
		want bool
	}{
		{"down", tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone), true},
		{"enter", tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), true},
		{"escape", tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), true},
		{"see all", tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModNone), true},
		{"quit", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone), false},
		{"command", tcell.NewEventKey(tcell.KeyRune, ':', tcell.ModNone), false},
		{"refresh", tcell.NewEventKey(tcell.KeyF5, 0, tcell.ModNone), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := iv.Handles(tt.ev); got != tt.want {
				t.Errorf("Handles(%s) = %v, want %v", tt.ev.Name(), got, tt.want)
			}
		})
	}
}
