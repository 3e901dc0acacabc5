package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/conneroisu/rune/internal/registry"
)

// Module is the top-level side effect of a page script: it registers the
// constructors the script defines.
type Module func(t *registry.Table)

// Toast is a recorded toast.
type Toast struct {
	Kind    ToastKind
	Message string
}

// Tab is an in-memory browser environment. It serves documents and script
// modules from maps and records every side effect in call order.
type Tab struct {
	mu         sync.Mutex
	table      *registry.Table
	modules    map[string]Module
	failImport map[string]bool
	failInject map[string]bool
	pages      map[string]*Response
	fetchErr   error
	events     []string
	headers    []http.Header
	assigned   []string
	pushed     []string
	reloads    int
	toasts     []Toast
	banners    map[string]string
}

// NewTab creates a tab whose scripts register into table.
func NewTab(table *registry.Table) *Tab {
	return &Tab{
		table:      table,
		modules:    map[string]Module{},
		failImport: map[string]bool{},
		failInject: map[string]bool{},
		pages:      map[string]*Response{},
		banners:    map[string]string{},
	}
}

// AddModule makes src loadable.
func (t *Tab) AddModule(src string, m Module) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.modules[src] = m
}

// FailImport makes module imports of src fail.
func (t *Tab) FailImport(src string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failImport[src] = true
}

// FailInject makes script injection of src fail.
func (t *Tab) FailInject(src string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failInject[src] = true
}

// Serve answers fetches of path (with query) with status and body.
func (t *Tab) Serve(path string, status int, body string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pages[path] = &Response{Status: status, Body: body}
}

// FailFetch makes every fetch fail with err.
func (t *Tab) FailFetch(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fetchErr = err
}

// Record appends a custom event.
func (t *Tab) Record(event string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

// Fetch implements Fetcher.
func (t *Tab) Fetch(_ context.Context, rawURL string, header http.Header) (*Response, error) {
	key := requestURI(rawURL)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, "fetch:"+key)
	t.headers = append(t.headers, header.Clone())
	if t.fetchErr != nil {
		return nil, t.fetchErr
	}
	if resp, ok := t.pages[key]; ok {
		return &Response{Status: resp.Status, Body: resp.Body}, nil
	}

	return &Response{Status: http.StatusNotFound, Body: "not found"}, nil
}

// Import implements ScriptLoader.
func (t *Tab) Import(_ context.Context, src string) error {
	return t.load("import", src, t.failImport)
}

// Inject implements ScriptLoader.
func (t *Tab) Inject(_ context.Context, src string) error {
	return t.load("inject", src, t.failInject)
}

func (t *Tab) load(kind, src string, failing map[string]bool) error {
	key := pathOnly(src)

	t.mu.Lock()
	t.events = append(t.events, kind+":"+key)
	fail := failing[key]
	m, ok := t.modules[key]
	t.mu.Unlock()

	if fail {
		return fmt.Errorf("%s %s: failed", kind, key)
	}
	if !ok {
		return errors.New(kind + " " + key + ": not found")
	}
	// Module side effects run outside the lock; they may inspect the tab.
	m(t.table)

	return nil
}

// PushState implements History.
func (t *Tab) PushState(u string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, "push:"+requestURI(u))
	t.pushed = append(t.pushed, u)
}

// Assign implements Location.
func (t *Tab) Assign(u string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, "assign:"+requestURI(u))
	t.assigned = append(t.assigned, u)
}

// Reload implements Location.
func (t *Tab) Reload() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, "reload")
	t.reloads++
}

// Toast implements Notifier.
func (t *Tab) Toast(kind ToastKind, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.toasts = append(t.toasts, Toast{Kind: kind, Message: message})
}

// Banner implements Notifier.
func (t *Tab) Banner(id, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.banners[id] = message
}

// Dismiss implements Notifier.
func (t *Tab) Dismiss(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.banners, id)
}

// Events returns the recorded events.
func (t *Tab) Events() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.events...)
}

// Headers returns the headers of every fetch.
func (t *Tab) Headers() []http.Header {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]http.Header(nil), t.headers...)
}

// Assigned returns the URLs of full navigations.
func (t *Tab) Assigned() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.assigned...)
}

// Pushed returns the URLs pushed onto history.
func (t *Tab) Pushed() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.pushed...)
}

// Reloads returns the number of full reloads.
func (t *Tab) Reloads() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reloads
}

// Toasts returns the recorded toasts.
func (t *Tab) Toasts() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Toast(nil), t.toasts...)
}

// Banners returns the visible banners by id.
func (t *Tab) Banners() map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]string, len(t.banners))
	for k, v := range t.banners {
		out[k] = v
	}
	return out
}

func requestURI(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.RequestURI()
}

func pathOnly(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}
