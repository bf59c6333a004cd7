// Package keys maps key events to actions, per page and globally.
package keys

import (
	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/trueque/internal/tui/ui"
)

// Action represents a keybinding action.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Label       string
	Description string
	Handler     func()
	Visible     bool
}

// Matches returns true if the event matches this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

func (a *Action) label() string {
	switch {
	case a.Label != "":
		return a.Label
	case a.Key == tcell.KeyRune:
		return string(a.Rune)
	default:
		return tcell.KeyNames[a.Key]
	}
}

// Registry holds keybindings by scope, in registration order.
type Registry struct {
	global []*Action
	views  map[string][]*Action
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[string][]*Action)}
}

// AddGlobal registers a global keybinding.
func (r *Registry) AddGlobal(action *Action) {
	r.global = append(r.global, action)
}

// AddView registers a keybinding for the page named view.
func (r *Registry) AddView(view string, action *Action) {
	r.views[view] = append(r.views[view], action)
}

// Hints returns the visible bindings of view followed by the global ones.
func (r *Registry) Hints(view string) []ui.MenuHint {
	var hints []ui.MenuHint
	for _, list := range [][]*Action{r.views[view], r.global} {
		for _, a := range list {
			if a.Visible {
				hints = append(hints, ui.MenuHint{Key: a.label(), Description: a.Description})
			}
		}
	}
	return hints
}

// HandleEvent dispatches a key event to the first matching action, view
// bindings first. Returns true if a handler ran.
func (r *Registry) HandleEvent(view string, ev *tcell.EventKey) bool {
	for _, list := range [][]*Action{r.views[view], r.global} {
		for _, a := range list {
			if a.Matches(ev) {
				a.Handler()
				return true
			}
		}
	}
	return false
}
