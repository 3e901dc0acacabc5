// Package hydrator binds live component instances to server-rendered
// markup.
//
// A pass enumerates the elements carrying the component-name marker in
// document order, resolves their props (registry record by id, then the
// inline props attribute, then empty props), constructs an instance from the
// constructor registered under the component name and attaches it to the
// existing element without re-rendering it. Every element runs through a
// small lifecycle machine, unhydrated → hydrating → hydrated or failed, and
// the terminal state is written to the element so later passes skip it.
// Elements swapped in by navigation or hot reload arrive without the marker
// and are hydrated again.
package hydrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/net/html"

	"github.com/conneroisu/rune/internal/document"
	"github.com/conneroisu/rune/internal/dom"
	runeerrors "github.com/conneroisu/rune/internal/errors"
	"github.com/conneroisu/rune/internal/logging"
	"github.com/conneroisu/rune/internal/machine"
	"github.com/conneroisu/rune/internal/registry"
	"github.com/conneroisu/rune/internal/ssr"
)

// AttrHydrated records the terminal lifecycle state on an element.
const AttrHydrated = "data-rune-hydrated"

// Lifecycle states.
const (
	StateUnhydrated = "unhydrated"
	StateHydrating  = "hydrating"
	StateHydrated   = "hydrated"
	StateFailed     = "failed"
)

// Lifecycle events.
const (
	EventStart = "START"
	EventDone  = "DONE"
	EventFail  = "FAIL"
)

// Outcome is the result for one element.
type Outcome struct {
	Name  string
	ID    string
	Page  bool
	State string
	Err   error
	Node  *html.Node
}

// Report summarizes a pass.
type Report struct {
	Outcomes []Outcome
	Skipped  int
}

// Hydrated counts hydrated elements.
func (r Report) Hydrated() int { return r.count(StateHydrated) }

// Failed counts failed elements.
func (r Report) Failed() int { return r.count(StateFailed) }

func (r Report) count(state string) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.State == state {
			n++
		}
	}

	return n
}

// Options configure a Hydrator.
type Options struct {
	Constructors registry.Constructors
	Props        *registry.Store
	// PageData returns the page-level data object.
	PageData func() map[string]any
	Logger   logging.Logger
}

// Hydrator runs hydration passes.
type Hydrator struct {
	ctors    registry.Constructors
	props    *registry.Store
	pageData func() map[string]any
	logger   logging.Logger
	errors   *runeerrors.ErrorHandler

	mu        sync.Mutex
	instances map[*html.Node]any
}

// New creates a hydrator.
func New(opts Options) *Hydrator {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.WithComponent("hydrator")

	props := opts.Props
	if props == nil {
		props = registry.NewStore()
	}
	pageData := opts.PageData
	if pageData == nil {
		pageData = func() map[string]any { return map[string]any{} }
	}

	return &Hydrator{
		ctors:     opts.Constructors,
		props:     props,
		pageData:  pageData,
		logger:    logger,
		errors:    runeerrors.NewErrorHandler(logger),
		instances: make(map[*html.Node]any),
	}
}

type attempt struct {
	node *html.Node
	err  error
}

func mark(state string) machine.Action[attempt] {
	return func(a *attempt, _ machine.Event) {
		dom.SetAttr(a.node, AttrHydrated, state)
	}
}

func recordErr(a *attempt, ev machine.Event) {
	if err, ok := ev.Data.(error); ok {
		a.err = err
	}
}

var lifecycle = map[string]machine.StateConfig[attempt]{
	StateUnhydrated: {On: map[string][]machine.Transition[attempt]{
		EventStart: machine.On[attempt](StateHydrating, nil),
	}},
	StateHydrating: {On: map[string][]machine.Transition[attempt]{
		EventDone: machine.On[attempt](StateHydrated, nil),
		EventFail: machine.On[attempt](StateFailed, nil, recordErr),
	}},
	StateHydrated: {Entry: []machine.Action[attempt]{mark(StateHydrated)}},
	StateFailed:   {Entry: []machine.Action[attempt]{mark(StateFailed)}},
}

// Hydrate runs one pass over scope, which is usually the whole document.
// The page root container is handled first, then every marked element in
// document order. Elements already carrying a terminal state are skipped.
func (h *Hydrator) Hydrate(ctx context.Context, scope *html.Node) Report {
	var report Report
	if scope == nil || h.ctors == nil {
		return report
	}
	h.prune(scope)

	if root := dom.FindByID(scope, document.RootID); root != nil {
		if o, ok := h.hydratePage(ctx, root); ok {
			report.Outcomes = append(report.Outcomes, o)
		}
	}

	for _, node := range dom.QueryAttr(scope, ssr.AttrName) {
		if dom.HasAttr(node, AttrHydrated) {
			report.Skipped++
			continue
		}
		report.Outcomes = append(report.Outcomes, h.hydrateNode(ctx, node))
	}

	if len(report.Outcomes) > 0 {
		h.logger.Debug(ctx, "Hydration pass complete",
			"hydrated", report.Hydrated(), "failed", report.Failed(), "skipped", report.Skipped)
	}

	return report
}

// Instance returns the instance attached to node.
func (h *Hydrator) Instance(node *html.Node) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	inst, ok := h.instances[node]

	return inst, ok
}

func (h *Hydrator) hydrateNode(ctx context.Context, node *html.Node) Outcome {
	name, _ := dom.Attr(node, ssr.AttrName)
	id, _ := dom.Attr(node, ssr.AttrID)

	m := start(name, node)
	out := Outcome{Name: name, ID: id, Node: node}

	ctor, ok := h.ctors.Lookup(name)
	if !ok {
		err := runeerrors.NewHydrationError(runeerrors.ErrCodeConstructorMissing, name,
			"constructor not registered", nil)
		return h.finish(ctx, m, out, err)
	}

	props := h.resolveProps(ctx, node, name, id)

	return h.finish(ctx, m, out, h.attach(node, name, ctor, props))
}

func (h *Hydrator) hydratePage(ctx context.Context, root *html.Node) (Outcome, bool) {
	if dom.HasAttr(root, AttrHydrated) {
		return Outcome{}, false
	}

	name, ctor, ok := h.pageConstructor(root)
	if !ok {
		return Outcome{}, false
	}

	m := start(name, root)
	out := Outcome{Name: name, Page: true, Node: root}

	return h.finish(ctx, m, out, h.attach(root, name, ctor, h.pageData())), true
}

// pageConstructor picks the constructor named on the root container, or the
// first registered page constructor when the root names none.
func (h *Hydrator) pageConstructor(root *html.Node) (string, registry.Constructor, bool) {
	if name, ok := dom.Attr(root, document.AttrPage); ok && name != "" {
		ctor, found := h.ctors.Lookup(name)
		if found && registry.IsPage(name, ctor) {
			return name, ctor, true
		}
		return "", nil, false
	}

	for _, name := range h.ctors.Names() {
		if ctor, found := h.ctors.Lookup(name); found && registry.IsPage(name, ctor) {
			return name, ctor, true
		}
	}

	return "", nil, false
}

func start(name string, node *html.Node) *machine.Machine[attempt] {
	m := machine.Must(machine.Config[attempt]{
		ID:      "hydrate:" + name,
		Initial: StateUnhydrated,
		Context: attempt{node: node},
		States:  lifecycle,
	})
	m.SendType(EventStart)

	return m
}

func (h *Hydrator) finish(ctx context.Context, m *machine.Machine[attempt], out Outcome, err error) Outcome {
	if err != nil {
		m.Send(machine.Event{Type: EventFail, Data: err})
		h.errors.Handle(ctx, err)
	} else {
		m.SendType(EventDone)
	}

	st := m.State()
	out.State = st.Value
	out.Err = st.Context.err

	return out
}

func (h *Hydrator) resolveProps(ctx context.Context, node *html.Node, name, id string) map[string]any {
	if id != "" {
		if rec, ok := h.props.Get(id); ok {
			return rec.Props
		}
		h.logger.Debug(ctx, "No registry record for component id", "view", name, "id", id)
	}

	if raw, ok := dom.Attr(node, ssr.AttrProps); ok && raw != "" {
		var props map[string]any
		if err := json.Unmarshal([]byte(raw), &props); err == nil && props != nil {
			return props
		}
		h.logger.Warn(ctx, nil, "Ignoring malformed inline props", "view", name)
	}

	return map[string]any{}
}

func (h *Hydrator) attach(node *html.Node, name string, ctor registry.Constructor, props map[string]any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = runeerrors.NewHydrationError(runeerrors.ErrCodeHydrateFailed, name,
				"constructor panicked", fmt.Errorf("%v", r))
		}
	}()

	inst, err := ctor.New(props)
	if err != nil {
		return runeerrors.NewHydrationError(runeerrors.ErrCodeHydrateFailed, name, "construct instance", err)
	}

	if a, ok := inst.(registry.Attacher); ok {
		if err := a.HydrateFromSSR(node); err != nil {
			return runeerrors.NewHydrationError(runeerrors.ErrCodeHydrateFailed, name, "attach instance", err)
		}
		h.keep(node, inst)
		return nil
	}

	if legacy, ok := ctor.(registry.LegacyConstructor); ok {
		if err := legacy.CreateAndHydrate(node, props); err != nil {
			return runeerrors.NewHydrationError(runeerrors.ErrCodeHydrateFailed, name, "create and hydrate", err)
		}
		h.keep(node, inst)
		return nil
	}

	return runeerrors.NewHydrationError(runeerrors.ErrCodeHydrateFailed, name,
		"constructor cannot attach to server markup", nil)
}

func (h *Hydrator) keep(node *html.Node, inst any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.instances[node] = inst
}

// prune drops instances whose elements left the tree scope belongs to.
func (h *Hydrator) prune(scope *html.Node) {
	top := scope
	for top.Parent != nil {
		top = top.Parent
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for node := range h.instances {
		if !dom.Contains(top, node) {
			delete(h.instances, node)
		}
	}
}
