package registry

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"
	"golang.org/x/net/html"
)

// PageSuffix marks constructors of page-level components.
const PageSuffix = "Page"

// Constructor creates component instances from props. Instances that
// implement Attacher can be bound to server-rendered markup.
type Constructor interface {
	New(props map[string]any) (any, error)
}

// ConstructorFunc adapts a function to Constructor.
type ConstructorFunc func(props map[string]any) (any, error)

// New calls f.
func (f ConstructorFunc) New(props map[string]any) (any, error) { return f(props) }

// Attacher is implemented by component instances that can take over an
// existing DOM subtree without re-rendering it.
type Attacher interface {
	HydrateFromSSR(el *html.Node) error
}

// LegacyConstructor is the class-level create-and-hydrate path used for
// constructors whose instances cannot attach.
type LegacyConstructor interface {
	CreateAndHydrate(el *html.Node, props map[string]any) error
}

// Templater is implemented by page constructors that can render their own
// template. It marks a constructor as a page-level component.
type Templater interface {
	Template(props map[string]any) templ.Component
}

// Constructors resolves component names to constructors.
type Constructors interface {
	Lookup(name string) (Constructor, bool)
	Names() []string
}

// Legacy wraps a create-and-hydrate function as a Constructor whose New
// yields no attachable instance.
func Legacy(fn func(el *html.Node, props map[string]any) error) Constructor {
	return legacy(fn)
}

type legacy func(el *html.Node, props map[string]any) error

func (legacy) New(map[string]any) (any, error) { return nil, nil }

func (l legacy) CreateAndHydrate(el *html.Node, props map[string]any) error { return l(el, props) }

// IsPage reports whether name and ctor follow the page component convention.
func IsPage(name string, ctor Constructor) bool {
	if !strings.HasSuffix(name, PageSuffix) {
		return false
	}
	_, ok := ctor.(Templater)

	return ok
}

// Event describes a change in a Table.
type Event struct {
	Type      EventType
	Name      string
	Timestamp time.Time
}

// EventType represents the type of table event
type EventType int

const (
	EventTypeAdded EventType = iota
	EventTypeUpdated
	EventTypeRemoved
)

// Table maps component names to constructors, preserving registration order.
type Table struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
	order        []string
	watchers     []chan Event
}

// NewTable creates an empty constructor table.
func NewTable() *Table {
	return &Table{constructors: make(map[string]Constructor)}
}

// Register adds or replaces the constructor for name.
func (t *Table) Register(name string, ctor Constructor) {
	t.mu.Lock()
	defer t.mu.Unlock()

	eventType := EventTypeAdded
	if _, exists := t.constructors[name]; exists {
		eventType = EventTypeUpdated
	} else {
		t.order = append(t.order, name)
	}
	t.constructors[name] = ctor

	t.notify(Event{Type: eventType, Name: name, Timestamp: time.Now()})
}

// Lookup returns the constructor registered for name.
func (t *Table) Lookup(name string) (Constructor, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ctor, ok := t.constructors[name]
	return ctor, ok
}

// Names returns registered names in registration order.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, len(t.order))
	copy(names, t.order)
	return names
}

// Remove deletes the constructor for name.
func (t *Table) Remove(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.constructors[name]; !exists {
		return
	}
	delete(t.constructors, name)
	for i, n := range t.order {
		if n == name {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}

	t.notify(Event{Type: EventTypeRemoved, Name: name, Timestamp: time.Now()})
}

// Count returns the number of registered constructors
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.constructors)
}

// Watch returns a channel that receives table events
func (t *Table) Watch() <-chan Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan Event, 100)
	t.watchers = append(t.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it
func (t *Table) UnWatch(ch <-chan Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, watcher := range t.watchers {
		if watcher == ch {
			close(watcher)
			t.watchers = append(t.watchers[:i], t.watchers[i+1:]...)
			break
		}
	}
}

func (t *Table) notify(event Event) {
	for _, watcher := range t.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}

// ProbeTable resolves every name to a probe constructor whose instances
// attach successfully and count how often each name was hydrated. It backs
// diagnostics that hydrate a page without its real constructors.
type ProbeTable struct {
	mu       sync.Mutex
	attached map[string]int
}

// NewProbeTable creates an empty probe table.
func NewProbeTable() *ProbeTable {
	return &ProbeTable{attached: make(map[string]int)}
}

// Lookup returns a probe constructor for any non-empty name.
func (p *ProbeTable) Lookup(name string) (Constructor, bool) {
	if name == "" {
		return nil, false
	}

	return ConstructorFunc(func(map[string]any) (any, error) {
		return probeInstance{table: p, name: name}, nil
	}), true
}

// Names returns every name that was hydrated, sorted.
func (p *ProbeTable) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.attached))
	for name := range p.attached {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Attached returns how many nodes named name were hydrated.
func (p *ProbeTable) Attached(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.attached[name]
}

type probeInstance struct {
	table *ProbeTable
	name  string
}

func (pi probeInstance) HydrateFromSSR(*html.Node) error {
	pi.table.mu.Lock()
	defer pi.table.mu.Unlock()
	pi.table.attached[pi.name]++

	return nil
}
