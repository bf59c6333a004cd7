package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Menu renders the key hints of the visible page on one line.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates a new menu hint bar.
func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	return &Menu{TextView: tv, theme: theme}
}

// Update renders hints.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	kc := Tag(m.theme.MenuKeyColor)
	parts := make([]string, len(hints))
	for i, h := range hints {
		parts[i] = fmt.Sprintf("[%s::b]<%s>[-:-:-] %s", kc, h.Key, h.Description)
	}
	_, _ = fmt.Fprint(m, " "+strings.Join(parts, "  "))
}

// Crumbs is a breadcrumb bar showing the page stack.
type Crumbs struct {
	*tview.TextView
	theme *Theme
}

// NewCrumbs creates a new breadcrumb bar.
func NewCrumbs(theme *Theme) *Crumbs {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	return &Crumbs{TextView: tv, theme: theme}
}

// Update renders the trail; the last name is the active crumb.
func (c *Crumbs) Update(names []string) {
	c.Clear()
	for i, name := range names {
		fg, bg := c.theme.CrumbInactiveFg, c.theme.CrumbInactiveBg
		if i == len(names)-1 {
			fg, bg = c.theme.CrumbActiveFg, c.theme.CrumbActiveBg
		}
		_, _ = fmt.Fprintf(c, "[%s:%s:b] %s [-:-:-] ", Tag(fg), Tag(bg), tview.Escape(name))
	}
}

// Logo displays the compact ASCII logo.
type Logo struct {
	*tview.TextView
}

// NewLogo creates a new logo component.
func NewLogo(theme *Theme) *Logo {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 0)
	tc := Tag(theme.TitleColor)
	_, _ = fmt.Fprintf(tv,
		"[%s::b]╔╦╗╦═╗╦ ╦╔═╗╔═╗ ╦ ╦╔═╗[-:-:-]\n"+
			"[%s::b] ║ ╠╦╝║ ║║╣ ║═╬╗║ ║║╣ [-:-:-]\n"+
			"[%s::b] ╩ ╩╚═╚═╝╚═╝╚═╝╚╚═╝╚═╝[-:-:-]",
		tc, tc, tc)
	return &Logo{TextView: tv}
}

// Prompt is the ':' command input bar.
type Prompt struct {
	*tview.InputField
	onSubmit func(text string)
	onCancel func()
}

// NewPrompt creates a new prompt input bar.
func NewPrompt(theme *Theme) *Prompt {
	input := tview.NewInputField().SetLabel(":")
	input.SetBorder(true)
	input.SetBorderColor(theme.BorderFocusColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)
	input.SetTitle(" Command ")

	p := &Prompt{InputField: input}
	input.SetDoneFunc(func(key tcell.Key) {
		text := p.GetText()
		p.SetText("")
		switch key {
		case tcell.KeyEnter:
			if p.onSubmit != nil && strings.TrimSpace(text) != "" {
				p.onSubmit(text)
				return
			}
			if p.onCancel != nil {
				p.onCancel()
			}
		case tcell.KeyEscape:
			if p.onCancel != nil {
				p.onCancel()
			}
		}
	})
	return p
}

// SetOnSubmit sets the callback when the prompt is submitted.
func (p *Prompt) SetOnSubmit(fn func(text string)) { p.onSubmit = fn }

// SetOnCancel sets the callback when the prompt is dismissed.
func (p *Prompt) SetOnCancel(fn func()) { p.onCancel = fn }
