package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/trueque/internal/inbox"
	"github.com/matheus3301/trueque/internal/tui/ui"
	"github.com/rivo/tview"
)

// InboxView is the popover with the most recently active conversations.
type InboxView struct {
	*tview.Flex
	list    *tview.List
	theme   *ui.Theme
	entries []inbox.Entry
	now     func() time.Time

	onOpen    func(conversationID string)
	onAll     func()
	onDismiss func()
}

// NewInboxView creates the popover, centered over the page behind it.
func NewInboxView(theme *ui.Theme) *InboxView {
	list := tview.NewList().ShowSecondaryText(true)
	list.SetBorder(true)
	list.SetBorderColor(theme.BorderFocusColor)
	list.SetBackgroundColor(theme.BgColor)
	list.SetTitle(" Latest conversations ")
	list.SetTitleColor(theme.TitleColor)
	list.SetMainTextColor(theme.TheirsColor)
	list.SetSecondaryTextColor(theme.FgColor)
	list.SetSelectedBackgroundColor(theme.TableCursorBg)
	list.SetSelectedTextColor(theme.TableCursorFg)

	iv := &InboxView{list: list, theme: theme, now: time.Now}
	iv.Flex = tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(list, 16, 0, true).
			AddItem(nil, 0, 1, false), 64, 0, true).
		AddItem(nil, 0, 1, false)

	list.SetDoneFunc(func() { iv.dismiss() })
	list.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyRune && ev.Rune() == 'a' {
			if iv.onAll != nil {
				iv.onAll()
			}
			return nil
		}
		return ev
	})
	return iv
}

// Handles reports whether the popover acts on ev. Other keys belong to the
// page behind it.
func (iv *InboxView) Handles(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyUp, tcell.KeyDown, tcell.KeyLeft, tcell.KeyRight,
		tcell.KeyHome, tcell.KeyEnd, tcell.KeyPgUp, tcell.KeyPgDn,
		tcell.KeyTab, tcell.KeyBacktab, tcell.KeyEnter, tcell.KeyEscape:
		return true
	case tcell.KeyRune:
		return ev.Rune() == 'a'
	}
	return false
}

// Name implements ui.Component.
func (iv *InboxView) Name() string { return "Inbox" }

// Start implements ui.Component.
func (iv *InboxView) Start() {}

// Stop implements ui.Component.
func (iv *InboxView) Stop() {}

// Hints implements ui.Component.
func (iv *InboxView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "a", Description: "See all"},
		{Key: "Esc", Description: "Close"},
	}
}

// SetOnOpen sets the callback for choosing a conversation.
func (iv *InboxView) SetOnOpen(fn func(conversationID string)) { iv.onOpen = fn }

// SetOnAll sets the callback for the "see all" action.
func (iv *InboxView) SetOnAll(fn func()) { iv.onAll = fn }

// SetOnDismiss sets the callback run when the popover is closed.
func (iv *InboxView) SetOnDismiss(fn func()) { iv.onDismiss = fn }

func (iv *InboxView) dismiss() {
	if iv.onDismiss != nil {
		iv.onDismiss()
	}
}

// List returns the focusable list.
func (iv *InboxView) List() *tview.List { return iv.list }

// Update replaces the entries.
func (iv *InboxView) Update(entries []inbox.Entry) {
	iv.entries = entries
	iv.list.Clear()
	if len(entries) == 0 {
		iv.list.AddItem("You have no conversations yet.", "", 0, nil)
		return
	}
	now := iv.now()
	for _, e := range entries {
		id := e.Conversation.ID
		last := e.Conversation.LastMessage
		if last == "" {
			last = "No messages yet"
		}
		main := fmt.Sprintf("%s  [::d]%s[-:-:-]", clean(e.Name), formatTimestamp(e.Conversation.LastMessageAt, now))
		iv.list.AddItem(main, " "+clean(preview(last, 56)), 0, func() {
			if iv.onOpen != nil {
				iv.onOpen(id)
			}
		})
	}
}
