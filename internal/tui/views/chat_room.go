package views

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/trueque/internal/chat"
	"github.com/matheus3301/trueque/internal/room"
	"github.com/matheus3301/trueque/internal/status"
	"github.com/matheus3301/trueque/internal/tui/ui"
	"github.com/rivo/tview"
)

// ChatRoom renders one open conversation: the deal header, the day-grouped
// thread and a multi-line composer.
type ChatRoom struct {
	*tview.Flex
	theme    *ui.Theme
	header   *tview.TextView
	messages *tview.TextView
	composer *tview.TextArea
	draft    *chat.Composer
	title    string

	onSend   func()
	onToggle func()
	onClose  func()
}

// NewChatRoom creates the view. draft is the composer state of the room.
func NewChatRoom(theme *ui.Theme, title string, draft *chat.Composer) *ChatRoom {
	header := tview.NewTextView().SetDynamicColors(true)
	header.SetBorder(true)
	header.SetBorderColor(theme.BorderColor)
	header.SetBackgroundColor(theme.BgColor)
	header.SetTitle(" Trade ")
	header.SetTitleColor(theme.TitleColor)

	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewTextArea().
		SetPlaceholder("Type a message. Enter sends, Alt+Enter adds a line.")
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetTitle(" Message (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	cr := &ChatRoom{
		Flex: tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(header, 4, 0, false).
			AddItem(messages, 0, 1, true).
			AddItem(composer, 5, 0, false),
		theme:    theme,
		header:   header,
		messages: messages,
		composer: composer,
		draft:    draft,
		title:    title,
	}
	messages.SetTitle(fmt.Sprintf(" %s ", tview.Escape(title)))

	composer.SetChangedFunc(func() {
		draft.SetDraft(composer.GetText())
	})
	composer.SetInputCapture(cr.captureComposer)
	return cr
}

func (cr *ChatRoom) captureComposer(ev *tcell.EventKey) *tcell.EventKey {
	if ev.Key() != tcell.KeyEnter {
		return ev
	}
	modifier := ev.Modifiers()&(tcell.ModAlt|tcell.ModShift) != 0
	_, from, to := cr.composer.GetSelection()
	if !cr.draft.Enter(modifier, from, to) {
		cr.composer.Replace(from, to, "\n")
		return nil
	}
	if cr.onSend != nil && cr.draft.CanSend() {
		cr.onSend()
	}
	return nil
}

// Name implements ui.Component.
func (cr *ChatRoom) Name() string { return cr.title }

// Start implements ui.Component.
func (cr *ChatRoom) Start() {}

// Stop implements ui.Component. It closes the room.
func (cr *ChatRoom) Stop() {
	if cr.onClose != nil {
		cr.onClose()
	}
}

// Hints implements ui.Component.
func (cr *ChatRoom) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "c", Description: "Confirm trade"},
		{Key: "r", Description: "Retry"},
		{Key: "Esc", Description: "Back"},
	}
}

// SetOnSend sets the callback for the submit key.
func (cr *ChatRoom) SetOnSend(fn func()) { cr.onSend = fn }

// SetOnToggle sets the callback for the confirm key.
func (cr *ChatRoom) SetOnToggle(fn func()) { cr.onToggle = fn }

// SetOnClose sets the callback run when the page is popped.
func (cr *ChatRoom) SetOnClose(fn func()) { cr.onClose = fn }

// Toggle runs the confirm action.
func (cr *ChatRoom) Toggle() {
	if cr.onToggle != nil {
		cr.onToggle()
	}
}

// Composer returns the input area (for focus management).
func (cr *ChatRoom) Composer() *tview.TextArea { return cr.composer }

// Messages returns the thread view (for focus management).
func (cr *ChatRoom) Messages() *tview.TextView { return cr.messages }

// Render draws v. names maps emails to display names.
func (cr *ChatRoom) Render(v room.View, names func(email string) string) {
	cr.renderHeader(v, names)
	cr.renderThread(v)

	if cr.composer.GetText() != v.Draft {
		cr.composer.SetText(v.Draft, true)
	}
	if v.Sending {
		cr.composer.SetTitle(" Message (sending...) ")
	} else {
		cr.composer.SetTitle(" Message (i to focus) ")
	}
}

func (cr *ChatRoom) renderHeader(v room.View, names func(string) string) {
	cr.header.Clear()
	fg := ui.Tag(cr.theme.FgColor)
	if v.Conversation == nil {
		_, _ = fmt.Fprintf(cr.header, " [%s]%s[-]", fg, v.Status)
		return
	}
	mine := "not confirmed"
	if v.Confirmed {
		mine = "confirmed"
	}
	action := fmt.Sprintf("[%s::b]<c>[-:-:-] %s", ui.Tag(cr.theme.MenuKeyColor), v.ActionLabel)
	switch {
	case v.Toggling:
		action = "[::d]saving...[-:-:-]"
	case !v.CanToggle:
		action = fmt.Sprintf("[::d]%s[-:-:-]", v.ActionLabel)
	}
	_, _ = fmt.Fprintf(cr.header,
		" [%s::b]With:[-:-:-] %s   [%s::b]Deal:[-:-:-] [%s]%s[-]   [%s::b]You:[-:-:-] %s\n %s",
		fg, clean(names(v.Counterpart)),
		fg, ui.Tag(dealColor(cr.theme, v.DealState)), v.Badge,
		fg, mine,
		action,
	)
}

func (cr *ChatRoom) renderThread(v room.View) {
	title := cr.title
	switch v.Status {
	case status.Loading:
		title += " (loading)"
	case status.Degraded:
		title += " (reconnecting)"
	}
	cr.messages.SetTitle(fmt.Sprintf(" %s [%d] ", tview.Escape(title), len(v.Messages)))

	cr.messages.Clear()
	if v.Err != nil {
		_, _ = fmt.Fprintf(cr.messages, "[%s]%s[-]\n", ui.Tag(cr.theme.FlashErrColor), clean(v.Err.Error()))
		if v.Status == status.Failed {
			_, _ = fmt.Fprint(cr.messages, "[::d]Press r to retry.[-:-:-]\n")
		}
		_, _ = fmt.Fprintln(cr.messages)
	}
	if len(v.Messages) == 0 && v.Status == status.Live {
		_, _ = fmt.Fprint(cr.messages, "[::d]No messages yet.[-:-:-]")
	}

	day := ui.Tag(cr.theme.DayColor)
	for _, g := range v.Days {
		_, _ = fmt.Fprintf(cr.messages, "[%s]── %s ──[-]\n\n", day, g.Label())
		for _, m := range g.Messages {
			cr.renderMessage(v.Me, m.SenderEmail, m.SenderName, chat.Clock(m, nil), m.Body)
		}
	}
	cr.messages.ScrollToEnd()
}

func (cr *ChatRoom) renderMessage(me, email, name, clock, body string) {
	switch {
	case email == chat.SystemEmail:
		_, _ = fmt.Fprintf(cr.messages, "[%s::i]  %s  %s[-:-:-]\n\n", ui.Tag(cr.theme.SystemColor), clock, clean(body))
		return
	case email == me:
		name = "You"
	case name == "":
		name = email
	}
	color := cr.theme.TheirsColor
	if email == me {
		color = cr.theme.MineColor
	}
	lines := strings.Split(clean(body), "\n")
	_, _ = fmt.Fprintf(cr.messages, "[%s::b]%s[-:-:-] [::d]%s[-:-:-]\n%s\n\n",
		ui.Tag(color), clean(name), clock, strings.Join(lines, "\n"))
}
