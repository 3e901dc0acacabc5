package browser

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/conneroisu/rune/internal/document"
	"github.com/conneroisu/rune/internal/dom"
	runeerrors "github.com/conneroisu/rune/internal/errors"
	"github.com/conneroisu/rune/internal/registry"
)

// Window is one open tab: its document, its URL and the globals the
// assembled document assigns.
type Window struct {
	mu       sync.Mutex
	loop     sync.Mutex
	doc      *html.Node
	href     *url.URL
	data     map[string]any
	props    *registry.Store
	ctors    *registry.Table
	notifier Notifier
	now      func() time.Time
}

// WindowOption configures a Window.
type WindowOption func(*Window)

// WithNotifier routes toasts and banners to n.
func WithNotifier(n Notifier) WindowOption {
	return func(w *Window) { w.notifier = n }
}

// WithConstructors shares an existing constructor table.
func WithConstructors(t *registry.Table) WindowOption {
	return func(w *Window) { w.ctors = t }
}

// WithClock replaces the clock used for cache-busting parameters.
func WithClock(now func() time.Time) WindowOption {
	return func(w *Window) { w.now = now }
}

// NewWindow opens a window on the document served for href and evaluates
// its global assignments.
func NewWindow(href string, source string, opts ...WindowOption) (*Window, error) {
	u, err := url.Parse(href)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	doc, err := dom.ParseString(source)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	w := &Window{
		doc:   doc,
		href:  u,
		data:  map[string]any{},
		props: registry.NewStore(),
		ctors: registry.NewTable(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.notifier == nil {
		w.notifier = NewDOMNotifier(w)
	}
	if err := w.EvalGlobals(doc); err != nil {
		return nil, err
	}

	return w, nil
}

// Do runs fn with exclusive access to the document. It stands in for the
// browser's event loop: DOM swaps, hydration passes and notifications never
// interleave. fn must not call Do.
func (w *Window) Do(fn func()) {
	w.loop.Lock()
	defer w.loop.Unlock()
	fn()
}

// Document returns the live document.
func (w *Window) Document() *html.Node { return w.doc }

// Root returns the root container of the live document.
func (w *Window) Root() *html.Node { return dom.FindByID(w.doc, document.RootID) }

// Props returns the client props registry.
func (w *Window) Props() *registry.Store { return w.props }

// Constructors returns the name to constructor table.
func (w *Window) Constructors() *registry.Table { return w.ctors }

// Data returns the page-level data object.
func (w *Window) Data() map[string]any {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.data
}

// SetData replaces the page-level data object.
func (w *Window) SetData(data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	w.mu.Lock()
	w.data = data
	w.mu.Unlock()
}

// Href returns the current URL.
func (w *Window) Href() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.href.String()
}

// URL returns a copy of the current URL.
func (w *Window) URL() *url.URL {
	w.mu.Lock()
	defer w.mu.Unlock()
	u := *w.href

	return &u
}

// Resolve resolves ref against the current URL.
func (w *Window) Resolve(ref string) (*url.URL, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}

	return w.URL().ResolveReference(r), nil
}

// SetURL records u as the current URL.
func (w *Window) SetURL(u *url.URL) {
	w.mu.Lock()
	w.href = u
	w.mu.Unlock()
}

// SameOrigin reports whether u shares the scheme and host of the window.
func (w *Window) SameOrigin(u *url.URL) bool {
	cur := w.URL()
	return u.Scheme == cur.Scheme && u.Host == cur.Host
}

// EvalGlobals evaluates the inline global assignments of doc: the data
// global replaces the page-level data object and the props global merges
// into the client registry. Other inline scripts are ignored.
func (w *Window) EvalGlobals(doc *html.Node) error {
	for _, s := range dom.Scripts(doc) {
		if s.Src != "" {
			continue
		}
		if err := w.EvalScript(s.Inline); err != nil {
			return err
		}
	}

	return nil
}

// EvalScript evaluates one inline script.
func (w *Window) EvalScript(src string) error {
	global, raw, ok := document.ParseAssignment(src)
	if !ok {
		trimmed := strings.TrimSpace(src)
		for _, g := range []string{document.DataGlobal, document.PropsGlobal} {
			if strings.HasPrefix(trimmed, "window."+g) {
				return runeerrors.New(runeerrors.ErrorTypeHotReload, runeerrors.ErrCodeMalformedPayload,
					"malformed "+g+" assignment")
			}
		}
		return nil
	}

	switch global {
	case document.DataGlobal:
		var data map[string]any
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("decode %s: %w", global, err)
		}
		w.SetData(data)
	case document.PropsGlobal:
		var snap registry.Snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return fmt.Errorf("decode %s: %w", global, err)
		}
		w.props.Merge(snap)
	}

	return nil
}

// ReloadStylesheets adds a cache-busting _reload parameter to every
// stylesheet link and returns how many were touched.
func (w *Window) ReloadStylesheets() int {
	stamp := strconv.FormatInt(w.now().UnixMilli(), 10)

	var links []*html.Node
	w.Do(func() {
		links = dom.Query(w.doc, "link[rel=stylesheet]")
		restamp(links, stamp)
	})

	return len(links)
}

func restamp(links []*html.Node, stamp string) {
	for _, link := range links {
		href, _ := dom.Attr(link, "href")
		u, err := url.Parse(href)
		if err != nil {
			continue
		}
		q := u.Query()
		q.Set("_reload", stamp)
		u.RawQuery = q.Encode()
		dom.SetAttr(link, "href", u.String())
	}
}

// Toast shows a transient notification.
func (w *Window) Toast(kind ToastKind, message string) {
	w.notifier.Toast(kind, Sanitize(message))
}

// ShowBanner shows a persistent, dismissible banner.
func (w *Window) ShowBanner(id, message string) {
	w.notifier.Banner(id, Sanitize(message))
}

// DismissBanner removes banner id.
func (w *Window) DismissBanner(id string) {
	w.notifier.Dismiss(id)
}
