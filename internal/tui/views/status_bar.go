package views

import (
	"fmt"
	"time"

	"github.com/matheus3301/trueque/internal/tui/ui"
	"github.com/rivo/tview"
)

// StatusBar shows the session, the logged-in user, the unread indicator
// and the daemon health.
type StatusBar struct {
	*tview.TextView
	theme   *ui.Theme
	session string
	user    string
	daemon  string
	deals   int64
	unread  bool
}

// NewStatusBar creates a new status bar.
func NewStatusBar(theme *ui.Theme) *StatusBar {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)
	sb := &StatusBar{TextView: tv, theme: theme}
	sb.render()
	return sb
}

// SetSession updates the session name display.
func (sb *StatusBar) SetSession(name string) {
	sb.session = name
	sb.render()
}

// SetUser updates the identity display; empty means logged out.
func (sb *StatusBar) SetUser(name string) {
	sb.user = name
	sb.render()
}

// SetDaemon updates the daemon health text.
func (sb *StatusBar) SetDaemon(s string) {
	sb.daemon = s
	sb.render()
}

// SetDeals updates the completed deal counter.
func (sb *StatusBar) SetDeals(n int64) {
	sb.deals = n
	sb.render()
}

// SetUnread raises or clears the unread dot.
func (sb *StatusBar) SetUnread(unread bool) {
	sb.unread = unread
	sb.render()
}

// Unread reports whether the dot is shown.
func (sb *StatusBar) Unread() bool { return sb.unread }

func (sb *StatusBar) render() {
	sb.Clear()
	user := sb.user
	if user == "" {
		user = "[::d]not logged in[-:-:-]"
	} else {
		user = clean(user)
	}
	dot := "[::d]○[-:-:-] inbox"
	if sb.unread {
		dot = fmt.Sprintf("[%s::b]●[-:-:-] inbox", ui.Tag(sb.theme.UnreadColor))
	}
	_, _ = fmt.Fprintf(sb, " [::b]%s[-:-:-] | %s | %s | deals %d | %s | %s",
		tview.Escape(sb.session), user, dot, sb.deals, tview.Escape(sb.daemon), time.Now().Format("15:04"))
}
