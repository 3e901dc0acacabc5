package components

import (
	"github.com/a-h/templ"
	"golang.org/x/net/html"

	"github.com/conneroisu/rune/internal/dom"
	"github.com/conneroisu/rune/internal/machine"
	"github.com/conneroisu/rune/internal/ssr"
)

// ButtonName is the constructor name of Button.
const ButtonName = "Button"

// Button states and events.
const (
	ButtonEnabled  = "enabled"
	ButtonDisabled = "disabled"

	// EventRelabel carries the new label text as event data.
	EventRelabel = "RELABEL"
)

// ButtonAnatomy lists the parts of a Button.
var ButtonAnatomy = NewAnatomy("button", "root", "inner", "label", "leftIcon", "rightIcon")

// ButtonProps configure a Button.
type ButtonProps struct {
	Label    string
	Variant  string
	Type     string
	Disabled bool
}

// ButtonContext is the machine context of a Button.
type ButtonContext struct {
	Label    string
	Disabled bool
}

// ButtonMachine returns the machine config of a Button starting from ctx.
func ButtonMachine(ctx ButtonContext) machine.Config[ButtonContext] {
	relabel := func(c *ButtonContext, ev machine.Event) {
		if s, ok := ev.Data.(string); ok {
			c.Label = s
		}
	}
	disable := func(c *ButtonContext, _ machine.Event) { c.Disabled = true }
	enable := func(c *ButtonContext, _ machine.Event) { c.Disabled = false }

	initial := ButtonEnabled
	if ctx.Disabled {
		initial = ButtonDisabled
	}

	return machine.Config[ButtonContext]{
		ID:      "button",
		Initial: initial,
		Context: ctx,
		States: map[string]machine.StateConfig[ButtonContext]{
			ButtonEnabled: {On: map[string][]machine.Transition[ButtonContext]{
				EventDisable: machine.On(ButtonDisabled, nil, disable),
				EventRelabel: machine.On("", nil, relabel),
			}},
			ButtonDisabled: {On: map[string][]machine.Transition[ButtonContext]{
				EventEnable:  machine.On(ButtonEnabled, nil, enable),
				EventRelabel: machine.On("", nil, relabel),
			}},
		},
	}
}

// Button is a button with optional icons around its label.
type Button struct {
	*controller[ButtonContext]
	variant string
	typ     string
}

// NewButton creates a Button. Type defaults to "button".
func NewButton(props ButtonProps) *Button {
	m := machine.Must(ButtonMachine(ButtonContext{Label: props.Label, Disabled: props.Disabled}))

	typ := props.Type
	if typ == "" {
		typ = "button"
	}

	return &Button{
		controller: newController(m, func(c ButtonContext) bool { return c.Disabled }),
		variant:    props.Variant,
		typ:        typ,
	}
}

// ButtonFromProps creates a Button from registry props.
func ButtonFromProps(props map[string]any) *Button {
	return NewButton(ButtonProps{
		Label:    stringProp(props, "label"),
		Variant:  stringProp(props, "variant"),
		Type:     stringProp(props, "type"),
		Disabled: boolProp(props, "disabled"),
	})
}

// Text returns the current label.
func (b *Button) Text() string { return b.context().Label }

// SetLabel replaces the label text.
func (b *Button) SetLabel(text string) bool {
	return b.m.Send(machine.Event{Type: EventRelabel, Data: text})
}

// Props returns the props the button serializes.
func (b *Button) Props() map[string]any {
	ctx := b.context()
	props := compact(map[string]any{
		"label":    ctx.Label,
		"variant":  b.variant,
		"disabled": ctx.Disabled,
	})
	if b.typ != "button" {
		props["type"] = b.typ
	}

	return props
}

// Root renders the button element. With no children it renders its label
// inside the inner part.
func (b *Button) Root(children ...templ.Component) ssr.View {
	if len(children) == 0 {
		children = []templ.Component{b.Inner(b.Label())}
	}

	attrs := ButtonAnatomy.Attrs("root", ssr.Attrs{
		"type":       b.typ,
		AttrState:    b.State(),
		AttrDisabled: boolAttr(b.Disabled()),
	})
	if b.variant != "" {
		attrs["data-variant"] = b.variant
	}
	if b.Disabled() {
		attrs["disabled"] = ""
	}

	return ssr.NewView(ButtonName, b.Props(), ssr.El("button", attrs, children...))
}

// Inner renders the inner wrapper.
func (b *Button) Inner(children ...templ.Component) templ.Component {
	return ssr.El("span", ButtonAnatomy.Attrs("inner", nil), children...)
}

// Label renders the label part. With no children it renders the current
// label text.
func (b *Button) Label(children ...templ.Component) templ.Component {
	if len(children) == 0 {
		children = []templ.Component{ssr.Text(b.Text())}
	}

	return ssr.El("span", ButtonAnatomy.Attrs("label", nil), children...)
}

// LeftIcon renders icon before the label.
func (b *Button) LeftIcon(icon templ.Component) templ.Component {
	return ssr.El("span", ButtonAnatomy.Attrs("leftIcon", ssr.Attrs{"aria-hidden": "true"}), icon)
}

// RightIcon renders icon after the label.
func (b *Button) RightIcon(icon templ.Component) templ.Component {
	return ssr.El("span", ButtonAnatomy.Attrs("rightIcon", ssr.Attrs{"aria-hidden": "true"}), icon)
}

// HydrateFromSSR binds the button to its server-rendered element.
func (b *Button) HydrateFromSSR(el *html.Node) error {
	return b.bind(ButtonAnatomy, el, func(root *html.Node, st machine.State[ButtonContext]) {
		dom.SetAttr(root, AttrState, st.Value)
		dom.SetAttr(root, AttrDisabled, boolAttr(st.Context.Disabled))
		setFlag(root, "disabled", st.Context.Disabled)

		for _, n := range ButtonAnatomy.Find(root, "label") {
			if !st.Changed || dom.Text(n) == st.Context.Label {
				continue
			}
			dom.RemoveChildren(n)
			n.AppendChild(&html.Node{Type: html.TextNode, Data: st.Context.Label})
		}
	})
}
