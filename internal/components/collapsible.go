package components

import (
	"github.com/a-h/templ"
	"golang.org/x/net/html"

	"github.com/conneroisu/rune/internal/dom"
	"github.com/conneroisu/rune/internal/machine"
	"github.com/conneroisu/rune/internal/ssr"
)

// CollapsibleName is the constructor name of Collapsible.
const CollapsibleName = "Collapsible"

// Collapsible states and events.
const (
	CollapsibleExpanded  = "expanded"
	CollapsibleCollapsed = "collapsed"

	EventExpand   = "EXPAND"
	EventCollapse = "COLLAPSE"
)

// DefaultIndicator is rendered by Indicator when it has no children.
const DefaultIndicator = "▼"

// CollapsibleAnatomy lists the parts of a Collapsible.
var CollapsibleAnatomy = NewAnatomy("collapsible", "root", "trigger", "indicator", "content")

// CollapsibleProps configure a Collapsible.
type CollapsibleProps struct {
	Expanded bool
	Disabled bool
	// ID links the trigger to the content through aria-controls.
	ID string
}

// CollapsibleContext is the machine context of a Collapsible.
type CollapsibleContext struct {
	Expanded bool
	Disabled bool
}

// CollapsibleMachine returns the machine config of a Collapsible starting
// from ctx.
func CollapsibleMachine(ctx CollapsibleContext) machine.Config[CollapsibleContext] {
	enabled := notDisabled(func(c *CollapsibleContext) bool { return c.Disabled })
	expand := func(c *CollapsibleContext, _ machine.Event) { c.Expanded = true }
	collapse := func(c *CollapsibleContext, _ machine.Event) { c.Expanded = false }
	disable := func(c *CollapsibleContext, _ machine.Event) { c.Disabled = true }
	enable := func(c *CollapsibleContext, _ machine.Event) { c.Disabled = false }

	initial := CollapsibleCollapsed
	if ctx.Expanded {
		initial = CollapsibleExpanded
	}

	return machine.Config[CollapsibleContext]{
		ID:      "collapsible",
		Initial: initial,
		Context: ctx,
		States: map[string]machine.StateConfig[CollapsibleContext]{
			CollapsibleCollapsed: {On: map[string][]machine.Transition[CollapsibleContext]{
				EventToggle:  machine.On(CollapsibleExpanded, enabled, expand),
				EventExpand:  machine.On(CollapsibleExpanded, enabled, expand),
				EventDisable: machine.On("", nil, disable),
				EventEnable:  machine.On("", nil, enable),
			}},
			CollapsibleExpanded: {On: map[string][]machine.Transition[CollapsibleContext]{
				EventToggle:   machine.On(CollapsibleCollapsed, enabled, collapse),
				EventCollapse: machine.On(CollapsibleCollapsed, enabled, collapse),
				EventDisable:  machine.On("", nil, disable),
				EventEnable:   machine.On("", nil, enable),
			}},
		},
	}
}

// Collapsible shows and hides its content. Root, Trigger, Indicator and
// Content all render from the same controller.
type Collapsible struct {
	*controller[CollapsibleContext]
	id string
}

// NewCollapsible creates a Collapsible.
func NewCollapsible(props CollapsibleProps) *Collapsible {
	m := machine.Must(CollapsibleMachine(CollapsibleContext{Expanded: props.Expanded, Disabled: props.Disabled}))

	return &Collapsible{
		controller: newController(m, func(c CollapsibleContext) bool { return c.Disabled }),
		id:         props.ID,
	}
}

// CollapsibleFromProps creates a Collapsible from registry props.
func CollapsibleFromProps(props map[string]any) *Collapsible {
	return NewCollapsible(CollapsibleProps{
		Expanded: boolProp(props, "expanded"),
		Disabled: boolProp(props, "disabled"),
		ID:       stringProp(props, "id"),
	})
}

// Expanded reports whether the content is shown.
func (c *Collapsible) Expanded() bool { return c.context().Expanded }

// OnExpandedChange calls fn with the new value whenever it changes.
func (c *Collapsible) OnExpandedChange(fn func(expanded bool)) func() {
	last := c.Expanded()
	return c.m.Subscribe(func(st machine.State[CollapsibleContext]) {
		if st.Context.Expanded != last {
			last = st.Context.Expanded
			fn(last)
		}
	})
}

// Props returns the props the collapsible serializes.
func (c *Collapsible) Props() map[string]any {
	ctx := c.context()
	return compact(map[string]any{
		"expanded": ctx.Expanded,
		"disabled": ctx.Disabled,
		"id":       c.id,
	})
}

// Root renders the root part around children.
func (c *Collapsible) Root(children ...templ.Component) ssr.View {
	ctx := c.context()
	attrs := CollapsibleAnatomy.Attrs("root", ssr.Attrs{
		AttrState:    c.State(),
		AttrDisabled: boolAttr(ctx.Disabled),
	})

	return ssr.NewView(CollapsibleName, c.Props(), ssr.El("div", attrs, children...))
}

// Trigger renders the button that flips the content.
func (c *Collapsible) Trigger(children ...templ.Component) templ.Component {
	ctx := c.context()
	attrs := CollapsibleAnatomy.Attrs("trigger", ssr.Attrs{
		"type":          "button",
		"aria-expanded": boolAttr(ctx.Expanded),
		AttrState:       c.State(),
	})
	if c.id != "" {
		attrs["aria-controls"] = c.contentID()
	}
	if ctx.Disabled {
		attrs["disabled"] = ""
	}

	return ssr.El("button", attrs, children...)
}

// Indicator renders the expansion marker.
func (c *Collapsible) Indicator(children ...templ.Component) templ.Component {
	if len(children) == 0 {
		children = []templ.Component{ssr.Text(DefaultIndicator)}
	}

	return ssr.El("span", CollapsibleAnatomy.Attrs("indicator", ssr.Attrs{
		"aria-hidden": "true",
		AttrState:     c.State(),
	}), children...)
}

// Content renders the collapsible region. It is hidden while collapsed.
func (c *Collapsible) Content(children ...templ.Component) templ.Component {
	attrs := CollapsibleAnatomy.Attrs("content", ssr.Attrs{AttrState: c.State()})
	if c.id != "" {
		attrs["id"] = c.contentID()
	}
	if !c.Expanded() {
		attrs["hidden"] = ""
	}

	return ssr.El("div", attrs, children...)
}

func (c *Collapsible) contentID() string { return c.id + "-content" }

// HydrateFromSSR binds the collapsible to its server-rendered root element.
func (c *Collapsible) HydrateFromSSR(el *html.Node) error {
	return c.bind(CollapsibleAnatomy, el, func(root *html.Node, st machine.State[CollapsibleContext]) {
		dom.SetAttr(root, AttrState, st.Value)
		dom.SetAttr(root, AttrDisabled, boolAttr(st.Context.Disabled))

		for _, n := range CollapsibleAnatomy.Find(root, "trigger") {
			dom.SetAttr(n, AttrState, st.Value)
			dom.SetAttr(n, "aria-expanded", boolAttr(st.Context.Expanded))
			setFlag(n, "disabled", st.Context.Disabled)
		}
		for _, n := range CollapsibleAnatomy.Find(root, "indicator") {
			dom.SetAttr(n, AttrState, st.Value)
		}
		for _, n := range CollapsibleAnatomy.Find(root, "content") {
			dom.SetAttr(n, AttrState, st.Value)
			setFlag(n, "hidden", !st.Context.Expanded)
		}
	})
}
