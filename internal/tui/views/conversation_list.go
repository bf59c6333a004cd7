package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/trueque/internal/deal"
	"github.com/matheus3301/trueque/internal/inbox"
	"github.com/matheus3301/trueque/internal/store"
	"github.com/matheus3301/trueque/internal/tui/ui"
	"github.com/rivo/tview"
)

// ConversationList is the "my chats" table.
type ConversationList struct {
	*tview.Table
	theme   *ui.Theme
	entries []inbox.Entry
	visible []inbox.Entry
	filter  string
	now     func() time.Time
}

// NewConversationList creates a new conversation list table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	cl := &ConversationList{Table: table, theme: theme, now: time.Now}
	cl.render()
	return cl
}

// Name implements ui.Component.
func (cl *ConversationList) Name() string { return "Conversations" }

// Start implements ui.Component.
func (cl *ConversationList) Start() {}

// Stop implements ui.Component.
func (cl *ConversationList) Stop() {}

// Hints implements ui.Component.
func (cl *ConversationList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "n", Description: "Inbox"},
		{Key: "/", Description: "Filter"},
		{Key: ":", Description: "Command"},
		{Key: "?", Description: "Help"},
		{Key: "q", Description: "Quit"},
	}
}

// Update replaces the rows.
func (cl *ConversationList) Update(entries []inbox.Entry) {
	cl.entries = entries
	cl.render()
}

// SetFilter keeps only rows whose name, title or preview contain filter.
func (cl *ConversationList) SetFilter(filter string) {
	cl.filter = strings.TrimSpace(filter)
	cl.render()
}

// Filter returns the active filter.
func (cl *ConversationList) Filter() string { return cl.filter }

func (cl *ConversationList) matches(e inbox.Entry) bool {
	if cl.filter == "" {
		return true
	}
	f := strings.ToLower(cl.filter)
	for _, s := range []string{e.Name, e.Counterpart, e.Conversation.Title, e.Conversation.LastMessage} {
		if strings.Contains(strings.ToLower(s), f) {
			return true
		}
	}
	return false
}

func (cl *ConversationList) render() {
	cl.Clear()
	headers := []struct {
		text string
		exp  int
	}{
		{" WITH", 1},
		{" TRADE", 1},
		{" LAST MESSAGE", 3},
		{" TIME", 0},
		{" DEAL", 0},
	}
	for col, h := range headers {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	now := cl.now()
	cl.visible = cl.visible[:0]
	for _, e := range cl.entries {
		if !cl.matches(e) {
			continue
		}
		cl.visible = append(cl.visible, e)
		row := len(cl.visible)
		c := e.Conversation
		last := c.LastMessage
		if last == "" {
			last = "No messages yet"
		}
		cl.SetCell(row, 0, tview.NewTableCell(" "+clean(e.Name)).SetExpansion(1).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 1, tview.NewTableCell(" "+clean(c.Title)).SetExpansion(1).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 2, tview.NewTableCell(" "+clean(preview(last, 60))).SetExpansion(3).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 3, tview.NewTableCell(formatTimestamp(c.LastMessageAt, now)).SetAlign(tview.AlignRight).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 4, tview.NewTableCell(" "+deal.Badge(&c)).SetTextColor(dealColor(cl.theme, c.DealState)))
	}

	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d/%d) filter: %s ", len(cl.visible), len(cl.entries), tview.Escape(cl.filter)))
	} else {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d) ", len(cl.entries)))
	}
}

// Selected returns the id of the highlighted conversation, or "".
func (cl *ConversationList) Selected() string {
	row, _ := cl.GetSelection()
	idx := row - 1
	if idx < 0 || idx >= len(cl.visible) {
		return ""
	}
	return cl.visible[idx].Conversation.ID
}

func dealColor(theme *ui.Theme, s store.DealState) tcell.Color {
	switch s {
	case store.DealPending:
		return theme.DealPending
	case store.DealCompleted:
		return theme.DealComplete
	default:
		return theme.DealNone
	}
}
