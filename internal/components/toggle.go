package components

import (
	"github.com/a-h/templ"
	"golang.org/x/net/html"

	"github.com/conneroisu/rune/internal/dom"
	"github.com/conneroisu/rune/internal/machine"
	"github.com/conneroisu/rune/internal/ssr"
)

// ToggleName is the constructor name of Toggle.
const ToggleName = "Toggle"

// Toggle states and events.
const (
	ToggleChecked   = "checked"
	ToggleUnchecked = "unchecked"

	EventCheck   = "CHECK"
	EventUncheck = "UNCHECK"
)

// ToggleAnatomy lists the parts of a Toggle.
var ToggleAnatomy = NewAnatomy("toggle", "root", "track", "thumb", "label")

// ToggleProps configure a Toggle.
type ToggleProps struct {
	Checked  bool
	Disabled bool
	Label    string
}

// ToggleContext is the machine context of a Toggle.
type ToggleContext struct {
	Checked  bool
	Disabled bool
}

// ToggleMachine returns the machine config of a Toggle starting from ctx.
func ToggleMachine(ctx ToggleContext) machine.Config[ToggleContext] {
	enabled := notDisabled(func(c *ToggleContext) bool { return c.Disabled })
	check := func(c *ToggleContext, _ machine.Event) { c.Checked = true }
	uncheck := func(c *ToggleContext, _ machine.Event) { c.Checked = false }
	disable := func(c *ToggleContext, _ machine.Event) { c.Disabled = true }
	enable := func(c *ToggleContext, _ machine.Event) { c.Disabled = false }

	initial := ToggleUnchecked
	if ctx.Checked {
		initial = ToggleChecked
	}

	return machine.Config[ToggleContext]{
		ID:      "toggle",
		Initial: initial,
		Context: ctx,
		States: map[string]machine.StateConfig[ToggleContext]{
			ToggleUnchecked: {On: map[string][]machine.Transition[ToggleContext]{
				EventToggle:  machine.On(ToggleChecked, enabled, check),
				EventCheck:   machine.On(ToggleChecked, enabled, check),
				EventDisable: machine.On("", nil, disable),
				EventEnable:  machine.On("", nil, enable),
			}},
			ToggleChecked: {On: map[string][]machine.Transition[ToggleContext]{
				EventToggle:  machine.On(ToggleUnchecked, enabled, uncheck),
				EventUncheck: machine.On(ToggleUnchecked, enabled, uncheck),
				EventDisable: machine.On("", nil, disable),
				EventEnable:  machine.On("", nil, enable),
			}},
		},
	}
}

// Toggle is a two-state switch.
type Toggle struct {
	*controller[ToggleContext]
	props ToggleProps
}

// NewToggle creates a Toggle.
func NewToggle(props ToggleProps) *Toggle {
	m := machine.Must(ToggleMachine(ToggleContext{Checked: props.Checked, Disabled: props.Disabled}))

	return &Toggle{
		controller: newController(m, func(c ToggleContext) bool { return c.Disabled }),
		props:      props,
	}
}

// ToggleFromProps creates a Toggle from registry props.
func ToggleFromProps(props map[string]any) *Toggle {
	return NewToggle(ToggleProps{
		Checked:  boolProp(props, "checked"),
		Disabled: boolProp(props, "disabled"),
		Label:    stringProp(props, "label"),
	})
}

// Checked reports whether the toggle is on.
func (t *Toggle) Checked() bool { return t.context().Checked }

// Flip sends TOGGLE. It is ignored while disabled.
func (t *Toggle) Flip() bool { return t.Send(EventToggle) }

// OnCheckedChange calls fn with the new value whenever it changes.
func (t *Toggle) OnCheckedChange(fn func(checked bool)) func() {
	last := t.Checked()
	return t.m.Subscribe(func(st machine.State[ToggleContext]) {
		if st.Context.Checked != last {
			last = st.Context.Checked
			fn(last)
		}
	})
}

// Props returns the props the toggle serializes.
func (t *Toggle) Props() map[string]any {
	ctx := t.context()
	return compact(map[string]any{
		"checked":  ctx.Checked,
		"disabled": ctx.Disabled,
		"label":    t.props.Label,
	})
}

// View renders the toggle. With no children it renders a track, a thumb and
// the label.
func (t *Toggle) View(children ...templ.Component) ssr.View {
	if len(children) == 0 {
		children = []templ.Component{t.Track(t.Thumb())}
		if t.props.Label != "" {
			children = append(children, t.Label(ssr.Text(t.props.Label)))
		}
	}

	ctx := t.context()
	attrs := ToggleAnatomy.Attrs("root", ssr.Attrs{
		"role":         "switch",
		"aria-checked": boolAttr(ctx.Checked),
		AttrState:      t.State(),
		AttrDisabled:   boolAttr(ctx.Disabled),
	})
	if ctx.Disabled {
		attrs["aria-disabled"] = "true"
	}

	return ssr.NewView(ToggleName, t.Props(), ssr.El("div", attrs, children...))
}

// Track renders the track part.
func (t *Toggle) Track(children ...templ.Component) templ.Component {
	return ssr.El("div", ToggleAnatomy.Attrs("track", ssr.Attrs{AttrState: t.State()}), children...)
}

// Thumb renders the thumb part.
func (t *Toggle) Thumb() templ.Component {
	return ssr.El("div", ToggleAnatomy.Attrs("thumb", ssr.Attrs{AttrState: t.State()}))
}

// Label renders the label part.
func (t *Toggle) Label(children ...templ.Component) templ.Component {
	return ssr.El("span", ToggleAnatomy.Attrs("label", nil), children...)
}

// HydrateFromSSR binds the toggle to its server-rendered root element.
func (t *Toggle) HydrateFromSSR(el *html.Node) error {
	return t.bind(ToggleAnatomy, el, func(root *html.Node, st machine.State[ToggleContext]) {
		dom.SetAttr(root, AttrState, st.Value)
		dom.SetAttr(root, AttrDisabled, boolAttr(st.Context.Disabled))
		dom.SetAttr(root, "aria-checked", boolAttr(st.Context.Checked))
		if st.Context.Disabled {
			dom.SetAttr(root, "aria-disabled", "true")
		} else {
			dom.RemoveAttr(root, "aria-disabled")
		}
		for _, part := range []string{"track", "thumb"} {
			for _, n := range ToggleAnatomy.Find(root, part) {
				dom.SetAttr(n, AttrState, st.Value)
			}
		}
	})
}
