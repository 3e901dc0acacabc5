package components

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/conneroisu/rune/internal/dom"
	"github.com/conneroisu/rune/internal/hydrator"
	"github.com/conneroisu/rune/internal/machine"
	"github.com/conneroisu/rune/internal/registry"
	"github.com/conneroisu/rune/internal/ssr"
)

func renderTree(t *testing.T, c templ.Component) (*html.Node, *registry.Store) {
	t.Helper()

	pass := ssr.NewPass()
	markup, err := pass.Render(context.Background(), c)
	require.NoError(t, err)

	doc, err := dom.ParseString(markup)
	require.NoError(t, err)

	// The client sees the registry after a JSON round trip.
	raw, err := json.Marshal(pass.Registry())
	require.NoError(t, err)
	store := registry.NewStore()
	require.NoError(t, json.Unmarshal(raw, store))

	return doc, store
}

func attr(t *testing.T, n *html.Node, key string) string {
	t.Helper()
	require.NotNil(t, n)
	v, _ := dom.Attr(n, key)

	return v
}

func TestAnatomy(t *testing.T) {
	a := NewAnatomy("button", "root", "leftIcon")
	assert.Equal(t, []string{"root", "left-icon"}, a.Parts)

	attrs := a.Attrs("leftIcon", ssr.Attrs{"class": "icon", AttrPart: "ignored"})
	assert.Equal(t, ssr.Attrs{"class": "icon", AttrScope: "button", AttrPart: "left-icon"}, attrs)

	doc, err := dom.ParseString(`<div data-scope="collapsible" data-part="root" id="outer">
		<div data-scope="collapsible" data-part="content" id="a"></div>
		<div data-scope="collapsible" data-part="root">
			<div data-scope="collapsible" data-part="content" id="nested"></div>
		</div>
		<div data-scope="toggle" data-part="content" id="other"></div>
	</div>`)
	require.NoError(t, err)

	outer := dom.FindByID(doc, "outer")
	found := CollapsibleAnatomy.Find(outer, "content")
	require.Len(t, found, 1)
	assert.Equal(t, "a", attr(t, found[0], "id"))
}

func TestToggleMachine(t *testing.T) {
	tests := []struct {
		name     string
		start    ToggleContext
		events   []string
		want     string
		disabled bool
	}{
		{"toggle on", ToggleContext{}, []string{EventToggle}, ToggleChecked, false},
		{"toggle twice", ToggleContext{}, []string{EventToggle, EventToggle}, ToggleUnchecked, false},
		{"check is idempotent", ToggleContext{Checked: true}, []string{EventCheck}, ToggleChecked, false},
		{"uncheck", ToggleContext{Checked: true}, []string{EventUncheck}, ToggleUnchecked, false},
		{"disabled ignores toggle", ToggleContext{}, []string{EventDisable, EventToggle}, ToggleUnchecked, true},
		{"enable restores", ToggleContext{Disabled: true}, []string{EventEnable, EventCheck}, ToggleChecked, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := machine.Must(ToggleMachine(tt.start))
			for _, ev := range tt.events {
				m.SendType(ev)
			}
			st := m.State()
			assert.Equal(t, tt.want, st.Value)
			assert.Equal(t, tt.want == ToggleChecked, st.Context.Checked)
			assert.Equal(t, tt.disabled, st.Context.Disabled)
		})
	}
}

func TestCollapsibleMachine(t *testing.T) {
	tests := []struct {
		name   string
		start  CollapsibleContext
		events []string
		want   string
	}{
		{"toggle open", CollapsibleContext{}, []string{EventToggle}, CollapsibleExpanded},
		{"expand then collapse", CollapsibleContext{}, []string{EventExpand, EventCollapse}, CollapsibleCollapsed},
		{"collapse while collapsed", CollapsibleContext{}, []string{EventCollapse}, CollapsibleCollapsed},
		{"starts expanded", CollapsibleContext{Expanded: true}, nil, CollapsibleExpanded},
		{"disabled stays", CollapsibleContext{Expanded: true, Disabled: true}, []string{EventToggle, EventCollapse}, CollapsibleExpanded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := machine.Must(CollapsibleMachine(tt.start))
			for _, ev := range tt.events {
				m.SendType(ev)
			}
			assert.Equal(t, tt.want, m.State().Value)
			assert.Equal(t, tt.want == CollapsibleExpanded, m.State().Context.Expanded)
		})
	}
}

func TestToggleView(t *testing.T) {
	toggle := NewToggle(ToggleProps{Checked: true, Label: "Dark mode"})
	doc, store := renderTree(t, toggle.View())

	root := dom.QueryOne(doc, "[data-rune=Toggle]")
	require.NotNil(t, root)
	assert.Equal(t, "toggle", attr(t, root, AttrScope))
	assert.Equal(t, "root", attr(t, root, AttrPart))
	assert.Equal(t, ToggleChecked, attr(t, root, AttrState))
	assert.Equal(t, "false", attr(t, root, AttrDisabled))
	assert.Equal(t, "switch", attr(t, root, "role"))
	assert.Equal(t, "true", attr(t, root, "aria-checked"))

	assert.Len(t, ToggleAnatomy.Find(root, "thumb"), 1)
	label := ToggleAnatomy.Find(root, "label")
	require.Len(t, label, 1)
	assert.Equal(t, "Dark mode", dom.Text(label[0]))

	id := attr(t, root, ssr.AttrID)
	rec, ok := store.Get(id)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"checked": true, "label": "Dark mode"}, rec.Props)
}

func TestDefaultPropsSkipRegistry(t *testing.T) {
	doc, store := renderTree(t, NewToggle(ToggleProps{}).View())

	root := dom.QueryOne(doc, "[data-rune=Toggle]")
	require.NotNil(t, root)
	assert.False(t, dom.HasAttr(root, ssr.AttrID))
	assert.Equal(t, 0, store.Len())
}

func TestCollapsibleView(t *testing.T) {
	c := NewCollapsible(CollapsibleProps{ID: "faq"})
	doc, _ := renderTree(t, c.Root(
		c.Trigger(ssr.Text("Details"), c.Indicator()),
		c.Content(ssr.Text("Hidden text")),
	))

	root := dom.QueryOne(doc, "[data-rune=Collapsible]")
	require.NotNil(t, root)
	assert.Equal(t, CollapsibleCollapsed, attr(t, root, AttrState))

	trigger := CollapsibleAnatomy.Find(root, "trigger")
	require.Len(t, trigger, 1)
	assert.Equal(t, "button", attr(t, trigger[0], "type"))
	assert.Equal(t, "false", attr(t, trigger[0], "aria-expanded"))
	assert.Equal(t, "faq-content", attr(t, trigger[0], "aria-controls"))

	indicator := CollapsibleAnatomy.Find(root, "indicator")
	require.Len(t, indicator, 1)
	assert.Equal(t, DefaultIndicator, dom.Text(indicator[0]))

	content := CollapsibleAnatomy.Find(root, "content")
	require.Len(t, content, 1)
	assert.True(t, dom.HasAttr(content[0], "hidden"))
	assert.Equal(t, "faq-content", attr(t, content[0], "id"))
}

func TestButtonView(t *testing.T) {
	b := NewButton(ButtonProps{Label: "Save", Variant: "primary", Type: "submit", Disabled: true})
	doc, store := renderTree(t, b.Root(
		b.LeftIcon(ssr.Text("+")),
		b.Inner(b.Label()),
		b.RightIcon(ssr.Text(">")),
	))

	root := dom.QueryOne(doc, "button[data-rune=Button]")
	require.NotNil(t, root)
	assert.Equal(t, "submit", attr(t, root, "type"))
	assert.Equal(t, "primary", attr(t, root, "data-variant"))
	assert.Equal(t, ButtonDisabled, attr(t, root, AttrState))
	assert.True(t, dom.HasAttr(root, "disabled"))
	assert.Len(t, ButtonAnatomy.Find(root, "leftIcon"), 1)
	assert.Len(t, ButtonAnatomy.Find(root, "rightIcon"), 1)

	rec, ok := store.Get(attr(t, root, ssr.AttrID))
	require.True(t, ok)
	assert.Equal(t, map[string]any{"label": "Save", "variant": "primary", "type": "submit", "disabled": true}, rec.Props)
}

func hydrate(t *testing.T, c templ.Component) (*html.Node, *hydrator.Hydrator, hydrator.Report) {
	t.Helper()

	doc, store := renderTree(t, c)
	table := registry.NewTable()
	Register(table)

	h := hydrator.New(hydrator.Options{Constructors: table, Props: store})
	report := h.Hydrate(context.Background(), doc)

	return doc, h, report
}

func TestRegister(t *testing.T) {
	table := registry.NewTable()
	Register(table)

	assert.Equal(t, []string{ButtonName, CollapsibleName, ToggleName}, table.Names())
	for _, name := range table.Names() {
		ctor, ok := table.Lookup(name)
		require.True(t, ok)
		inst, err := ctor.New(map[string]any{})
		require.NoError(t, err)
		assert.Implements(t, (*registry.Attacher)(nil), inst)
		assert.Implements(t, (*Controller)(nil), inst)
	}
}

func TestClientScriptQueuesEveryComponent(t *testing.T) {
	table := registry.NewTable()
	Register(table)

	js := ClientScript()
	for _, name := range table.Names() {
		assert.Contains(t, js, `queue.push(["`+name+`", `+name+`])`)
		assert.NotContains(t, js, "window."+name+" =")
	}
}

func TestToggleHydration(t *testing.T) {
	doc, h, report := hydrate(t, NewToggle(ToggleProps{Checked: true}).View())
	require.Equal(t, 1, report.Hydrated())

	root := dom.QueryOne(doc, "[data-rune=Toggle]")
	inst, ok := h.Instance(root)
	require.True(t, ok)
	toggle := inst.(*Toggle)
	assert.True(t, toggle.Checked())

	var changes []bool
	toggle.OnCheckedChange(func(v bool) { changes = append(changes, v) })

	require.True(t, toggle.Flip())
	assert.Equal(t, ToggleUnchecked, attr(t, root, AttrState))
	assert.Equal(t, "false", attr(t, root, "aria-checked"))
	assert.Equal(t, ToggleUnchecked, attr(t, ToggleAnatomy.Find(root, "thumb")[0], AttrState))

	toggle.Send(EventDisable)
	assert.Equal(t, "true", attr(t, root, AttrDisabled))
	assert.False(t, toggle.Flip())
	assert.Equal(t, ToggleUnchecked, attr(t, root, AttrState))

	assert.Equal(t, []bool{false}, changes)
	assert.Error(t, toggle.HydrateFromSSR(root))
}

func TestCollapsibleHydration(t *testing.T) {
	c := NewCollapsible(CollapsibleProps{Expanded: true})
	doc, h, report := hydrate(t, c.Root(c.Trigger(c.Indicator()), c.Content(ssr.Text("body"))))
	require.Equal(t, 1, report.Hydrated())

	root := dom.QueryOne(doc, "[data-rune=Collapsible]")
	inst, ok := h.Instance(root)
	require.True(t, ok)
	live := inst.(*Collapsible)
	require.True(t, live.Expanded())

	var seen []bool
	live.OnExpandedChange(func(v bool) { seen = append(seen, v) })

	live.Send(EventCollapse)
	content := CollapsibleAnatomy.Find(root, "content")[0]
	trigger := CollapsibleAnatomy.Find(root, "trigger")[0]
	assert.True(t, dom.HasAttr(content, "hidden"))
	assert.Equal(t, "false", attr(t, trigger, "aria-expanded"))
	assert.Equal(t, CollapsibleCollapsed, attr(t, CollapsibleAnatomy.Find(root, "indicator")[0], AttrState))

	live.Send(EventDisable)
	assert.True(t, dom.HasAttr(trigger, "disabled"))
	assert.False(t, live.Send(EventExpand))

	live.Send(EventEnable)
	assert.True(t, live.Send(EventToggle))
	assert.False(t, dom.HasAttr(content, "hidden"))
	assert.False(t, dom.HasAttr(trigger, "disabled"))

	assert.Equal(t, []bool{false, true}, seen)
}

func TestButtonHydration(t *testing.T) {
	b := NewButton(ButtonProps{Label: "Send"})
	doc, h, _ := hydrate(t, b.Root())

	root := dom.QueryOne(doc, "[data-rune=Button]")
	inst, ok := h.Instance(root)
	require.True(t, ok)
	live := inst.(*Button)
	assert.Equal(t, "Send", live.Text())

	live.SetLabel("Sending")
	live.Send(EventDisable)

	assert.Equal(t, "Sending", dom.Text(ButtonAnatomy.Find(root, "label")[0]))
	assert.True(t, dom.HasAttr(root, "disabled"))
	assert.Equal(t, ButtonDisabled, attr(t, root, AttrState))
}

func TestHydrateRejectsForeignElement(t *testing.T) {
	doc, err := dom.ParseString(`<div id="x" data-scope="toggle" data-part="track"></div>`)
	require.NoError(t, err)

	err = NewToggle(ToggleProps{}).HydrateFromSSR(dom.FindByID(doc, "x"))
	assert.ErrorContains(t, err, "not a toggle root part")
}

func TestNestedComponents(t *testing.T) {
	outer := NewCollapsible(CollapsibleProps{})
	inner := NewCollapsible(CollapsibleProps{Expanded: true})
	doc, h, report := hydrate(t, outer.Root(
		outer.Trigger(ssr.Text("outer")),
		outer.Content(inner.Root(inner.Trigger(ssr.Text("inner")), inner.Content(ssr.Text("x")))),
	))
	require.Equal(t, 2, report.Hydrated())

	roots := dom.Query(doc, "[data-rune=Collapsible]")
	require.Len(t, roots, 2)

	first, _ := h.Instance(roots[0])
	first.(*Collapsible).Send(EventExpand)

	assert.Equal(t, CollapsibleExpanded, attr(t, roots[1], AttrState))
	innerContent := CollapsibleAnatomy.Find(roots[1], "content")[0]
	assert.False(t, dom.HasAttr(innerContent, "hidden"))

	second, _ := h.Instance(roots[1])
	second.(*Collapsible).Send(EventCollapse)
	assert.Equal(t, CollapsibleExpanded, attr(t, roots[0], AttrState))
	assert.True(t, dom.HasAttr(innerContent, "hidden"))
}
