package routing

import "sync"

// Match is the result of a successful lookup.
type Match[M any] struct {
	Route  Route
	Module M
	Params map[string]string
}

type entry[M any] struct {
	route  Route
	module M
}

// Table holds routes in insertion order. Re-adding a path replaces its
// module but keeps its original position.
type Table[M any] struct {
	mu      sync.RWMutex
	entries []entry[M]
	index   map[string]int
}

// NewTable creates an empty route table.
func NewTable[M any]() *Table[M] {
	return &Table[M]{index: make(map[string]int)}
}

// Add registers module under route.
func (t *Table[M]) Add(route Route, module M) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if i, ok := t.index[route.Path]; ok {
		t.entries[i] = entry[M]{route: route, module: module}
		return
	}
	t.index[route.Path] = len(t.entries)
	t.entries = append(t.entries, entry[M]{route: route, module: module})
}

// Match returns the first route, in insertion order, matching pathname.
func (t *Table[M]) Match(pathname string) (Match[M], bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, e := range t.entries {
		if params, ok := e.route.Match(pathname); ok {
			return Match[M]{Route: e.route, Module: e.module, Params: params}, true
		}
	}

	return Match[M]{}, false
}

// Lookup returns the module registered for an exact route path.
func (t *Table[M]) Lookup(routePath string) (M, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if i, ok := t.index[routePath]; ok {
		return t.entries[i].module, true
	}

	var zero M
	return zero, false
}

// Routes returns every route in match order.
func (t *Table[M]) Routes() []Route {
	t.mu.RLock()
	defer t.mu.RUnlock()

	routes := make([]Route, len(t.entries))
	for i, e := range t.entries {
		routes[i] = e.route
	}

	return routes
}

// Len returns the number of routes.
func (t *Table[M]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.entries)
}

// Clear removes every route.
func (t *Table[M]) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = nil
	t.index = make(map[string]int)
}
