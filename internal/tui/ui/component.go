package ui

// MenuHint describes a keyboard shortcut for display in the menu bar.
type MenuHint struct {
	Key         string
	Description string
}

// Component is implemented by every page of the TUI. Start runs when the
// page becomes visible and Stop when it leaves the stack.
type Component interface {
	Name() string
	Start()
	Stop()
	Hints() []MenuHint
}
