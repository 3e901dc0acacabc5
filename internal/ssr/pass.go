// Package ssr renders component trees on the server and annotates them for
// client hydration.
//
// A render Pass is carried on the context.Context handed to templ components.
// While a pass is present, every component wrapped with Component writes its
// props into the pass registry and marks its root element with its
// constructor name and generated id. Without a pass, wrapped components
// render exactly like the view they wrap.
package ssr

import (
	"bytes"
	"context"
	"sync"

	"github.com/a-h/templ"

	"github.com/conneroisu/rune/internal/logging"
	"github.com/conneroisu/rune/internal/registry"
)

// Marker attributes written on annotated root elements.
const (
	AttrName  = "data-rune"
	AttrID    = "data-rune-id"
	AttrProps = "data-rune-props"
)

type passKey struct{}

// Pass is the scratch state of one server render: the props registry and
// the ids already assigned to component instances. A Pass belongs to a
// single in-flight render.
type Pass struct {
	mu          sync.Mutex
	store       *registry.Store
	ids         map[*annotated]assignment
	logger      logging.Logger
	inlineProps bool
	seq         *registry.Sequence
}

type assignment struct {
	id   string
	name string
}

// Option configures a Pass.
type Option func(*Pass)

// WithLogger sets the logger used to report degraded annotations.
func WithLogger(logger logging.Logger) Option {
	return func(p *Pass) {
		if logger != nil {
			p.logger = logger.WithComponent("ssr")
		}
	}
}

// WithInlineProps also writes the serialized props onto each annotated root
// element, giving the client a fallback when the registry snapshot is
// unavailable.
func WithInlineProps() Option {
	return func(p *Pass) { p.inlineProps = true }
}

// WithSequence draws component id suffixes from seq, keeping ids unique
// across every pass that shares it.
func WithSequence(seq *registry.Sequence) Option {
	return func(p *Pass) { p.seq = seq }
}

// NewPass creates a pass with an empty registry.
func NewPass(opts ...Option) *Pass {
	p := &Pass{
		ids:    make(map[*annotated]assignment),
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.seq != nil {
		p.store = registry.NewStore(registry.WithSequence(p.seq))
	} else {
		p.store = registry.NewStore()
	}

	return p
}

// WithPass returns a context carrying p.
func WithPass(ctx context.Context, p *Pass) context.Context {
	return context.WithValue(ctx, passKey{}, p)
}

// PassFrom returns the pass carried by ctx.
func PassFrom(ctx context.Context) (*Pass, bool) {
	p, ok := ctx.Value(passKey{}).(*Pass)
	return p, ok && p != nil
}

// IsServerRender reports whether ctx belongs to a server render pass.
func IsServerRender(ctx context.Context) bool {
	_, ok := PassFrom(ctx)
	return ok
}

// Registry returns the props registry of the pass.
func (p *Pass) Registry() *registry.Store {
	return p.store
}

// Reset clears the registry and every id assignment.
func (p *Pass) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.store.Clear()
	p.ids = make(map[*annotated]assignment)
}

// Render resets the pass and renders c with the pass on ctx.
func (p *Pass) Render(ctx context.Context, c templ.Component) (string, error) {
	p.Reset()

	var buf bytes.Buffer
	if err := c.Render(WithPass(ctx, p), &buf); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// assign returns the annotation for a, registering its props on first use.
func (p *Pass) assign(ctx context.Context, a *annotated) assignment {
	p.mu.Lock()
	defer p.mu.Unlock()

	if got, ok := p.ids[a]; ok {
		return got
	}

	name := a.view.ViewName()
	got := assignment{name: name}

	props, err := SerializableProps(a.view.ViewProps())
	switch {
	case err != nil:
		p.logger.Warn(ctx, err, "Props not serializable, annotating by name only", "view", name)
	case len(props) > 0:
		got.id = p.store.Register(name, props)
	}

	p.ids[a] = got

	return got
}
