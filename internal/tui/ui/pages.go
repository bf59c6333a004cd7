package ui

import "github.com/rivo/tview"

// Pages is a stack of components wrapping tview.Pages. Popping a page stops
// its component; pushing starts it.
type Pages struct {
	*tview.Pages
	stack    []Component
	onChange func(stack []Component)
}

// NewPages creates an empty stack.
func NewPages() *Pages {
	return &Pages{Pages: tview.NewPages()}
}

// SetOnChange sets a callback that fires when the stack changes.
func (p *Pages) SetOnChange(fn func(stack []Component)) {
	p.onChange = fn
}

// Push shows c on top of the stack. c must also be a tview.Primitive.
func (p *Pages) Push(c Component, prim tview.Primitive) {
	if top := p.Top(); top != nil {
		p.HidePage(top.Name())
	}
	p.stack = append(p.stack, c)
	p.AddPage(c.Name(), prim, true, true)
	p.SendToFront(c.Name())
	c.Start()
	p.notify()
}

// Pop stops and removes the top component unless it is the last one.
func (p *Pages) Pop() Component {
	if len(p.stack) < 2 {
		return nil
	}
	top := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	top.Stop()
	p.RemovePage(top.Name())
	cur := p.Top()
	p.ShowPage(cur.Name())
	p.SendToFront(cur.Name())
	p.notify()
	return top
}

// Top returns the visible component, or nil.
func (p *Pages) Top() Component {
	if len(p.stack) == 0 {
		return nil
	}
	return p.stack[len(p.stack)-1]
}

// Reset pops everything above the root component.
func (p *Pages) Reset() {
	for p.Pop() != nil {
	}
}

// Names returns the component names from root to top.
func (p *Pages) Names() []string {
	names := make([]string, len(p.stack))
	for i, c := range p.stack {
		names[i] = c.Name()
	}
	return names
}

func (p *Pages) notify() {
	if p.onChange != nil {
		p.onChange(append([]Component(nil), p.stack...))
	}
}
