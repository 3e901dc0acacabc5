package components

import (
	"fmt"
	"sync"

	"golang.org/x/net/html"

	"github.com/conneroisu/rune/internal/machine"
)

// Shared events.
const (
	EventToggle  = "TOGGLE"
	EventDisable = "DISABLE"
	EventEnable  = "ENABLE"
)

// Controller is the state a root component shares with its parts.
type Controller interface {
	// State returns the current machine state.
	State() string
	Disabled() bool
	// Send delivers an event and reports whether it changed anything.
	Send(event string) bool
	// Subscribe calls fn with the new state after every transition.
	Subscribe(fn func(state string)) func()
}

// controller adapts a machine to Controller and keeps the bound DOM in step
// with it.
type controller[C any] struct {
	m        *machine.Machine[C]
	disabled func(C) bool

	mu   sync.Mutex
	root *html.Node
}

func newController[C any](m *machine.Machine[C], disabled func(C) bool) *controller[C] {
	return &controller[C]{m: m, disabled: disabled}
}

func (c *controller[C]) State() string { return c.m.State().Value }

func (c *controller[C]) Disabled() bool { return c.disabled(c.m.State().Context) }

func (c *controller[C]) Send(event string) bool { return c.m.SendType(event) }

func (c *controller[C]) Subscribe(fn func(string)) func() {
	return c.m.Subscribe(func(st machine.State[C]) { fn(st.Value) })
}

func (c *controller[C]) context() C { return c.m.State().Context }

// bind attaches the controller to root, verifying that root is the root part
// of a. apply writes the current state immediately and after every
// transition.
func (c *controller[C]) bind(a Anatomy, root *html.Node, apply func(*html.Node, machine.State[C])) error {
	if !a.IsPart(root, "root") {
		return fmt.Errorf("%s: element is not a %s root part", a.Scope, a.Scope)
	}

	c.mu.Lock()
	if c.root != nil {
		c.mu.Unlock()
		return fmt.Errorf("%s: already bound", a.Scope)
	}
	c.root = root
	c.mu.Unlock()

	apply(root, c.m.State())
	c.m.Subscribe(func(st machine.State[C]) { apply(root, st) })

	return nil
}

// Element returns the bound root element, or nil before hydration.
func (c *controller[C]) Element() *html.Node {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.root
}

func notDisabled[C any](disabled func(*C) bool) machine.Guard[C] {
	return func(ctx *C, _ machine.Event) bool { return !disabled(ctx) }
}
