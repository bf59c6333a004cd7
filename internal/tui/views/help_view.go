package views

import (
	"fmt"

	"github.com/matheus3301/trueque/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	k := ui.Tag(theme.MenuKeyColor)
	_, _ = fmt.Fprintf(tv, `
  [::b]Global[-:-:-]

  [%[1]s]:[-]        Command mode           [%[1]s]Esc[-]     Back / close popover
  [%[1]s]n[-]        Inbox popover          [%[1]s]?[-]       Help
  [%[1]s]q[-]        Quit                   [%[1]s]Ctrl-C[-]  Quit immediately

  [::b]Conversations[-:-:-]

  [%[1]s]Enter[-]    Open conversation      [%[1]s]/[-]       Filter
  [%[1]s]j/k[-]      Move down / up

  [::b]Trade chat[-:-:-]

  [%[1]s]i[-]        Focus the composer     [%[1]s]c[-]       Confirm or withdraw the trade
  [%[1]s]Enter[-]    Send message           [%[1]s]Alt+Enter[-] New line
  [%[1]s]r[-]        Retry a failed load    [%[1]s]Esc[-]     Leave the composer

  [::b]Commands[-:-:-]

  [%[1]s]:propose <product> [offer[][-]   Start or reopen the trade chat for a product
  [%[1]s]:open <conversation>[-]         Open a conversation by id
  [%[1]s]:filter [text[][-]               Filter the conversation list
  [%[1]s]:inbox[-]                       Show the inbox popover
  [%[1]s]:token <id_token>[-]            Complete login
  [%[1]s]:logout[-]                      Log out
  [%[1]s]:help[-]                        This screen
  [%[1]s]:quit[-]                        Quit
`, k)
	return &HelpView{TextView: tv}
}

// Name implements ui.Component.
func (hv *HelpView) Name() string { return "Help" }

// Start implements ui.Component.
func (hv *HelpView) Start() {}

// Stop implements ui.Component.
func (hv *HelpView) Stop() {}

// Hints implements ui.Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{{Key: "Esc", Description: "Back"}}
}
