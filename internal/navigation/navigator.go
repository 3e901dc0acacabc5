// Package navigation implements client-side page transitions: intercepted
// link clicks and history traversal fetch the next document out of band,
// load its page scripts, swap the root container and re-run hydration.
//
// Every failure falls back to a full document navigation, so the root
// container is never left partially replaced.
package navigation

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/html"

	"github.com/conneroisu/rune/internal/browser"
	"github.com/conneroisu/rune/internal/document"
	"github.com/conneroisu/rune/internal/dom"
	runeerrors "github.com/conneroisu/rune/internal/errors"
	"github.com/conneroisu/rune/internal/hydrator"
	"github.com/conneroisu/rune/internal/logging"
)

// Opt-out attributes on anchors.
const (
	AttrNoSPA    = "data-no-spa"
	LoadingID    = "__rune_loading__"
	scriptSuffix = ".js"
)

// Result describes what a navigation did.
type Result int

const (
	// Swapped means the root container was replaced and hydration re-run.
	Swapped Result = iota
	// Unchanged means the target is the current page.
	Unchanged
	// Busy means another navigation was in flight.
	Busy
	// FellBack means the navigation was handed to a full document load.
	FellBack
)

func (r Result) String() string {
	switch r {
	case Swapped:
		return "swapped"
	case Unchanged:
		return "unchanged"
	case Busy:
		return "busy"
	case FellBack:
		return "fell-back"
	default:
		return "unknown"
	}
}

// Options configure a Navigator.
type Options struct {
	Window   *browser.Window
	Hydrator *hydrator.Hydrator
	Fetcher  browser.Fetcher
	Scripts  browser.ScriptLoader
	History  browser.History
	Location browser.Location
	// SettleDelay separates the swap from the hydration pass so that
	// freshly loaded scripts finish registering their constructors.
	SettleDelay time.Duration
	Logger      logging.Logger
	Now         func() time.Time
}

// Navigator is the client router.
type Navigator struct {
	opts       Options
	logger     logging.Logger
	navigating atomic.Bool

	mu       sync.Mutex
	pathname string
	loaded   map[string]bool
}

// New creates a navigator for the window's current page.
func New(opts Options) *Navigator {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Navigator{
		opts:     opts,
		logger:   logger.WithComponent("router"),
		pathname: opts.Window.URL().Path,
		loaded:   make(map[string]bool),
	}
}

// Pathname returns the tracked current pathname.
func (n *Navigator) Pathname() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.pathname
}

// Navigating reports whether a navigation is in flight.
func (n *Navigator) Navigating() bool {
	return n.navigating.Load()
}

// Navigate moves to rawURL. Calls made while a navigation is in flight are
// ignored. A failed navigation is handed to the browser as a full load of
// the target and reported through the returned error.
func (n *Navigator) Navigate(ctx context.Context, rawURL string, push bool) (Result, error) {
	target, err := n.opts.Window.Resolve(rawURL)
	if err != nil {
		n.opts.Location.Assign(rawURL)
		return FellBack, runeerrors.NewNavigationError(runeerrors.ErrCodeNavFetch, rawURL, "invalid url", err)
	}

	if !n.navigating.CompareAndSwap(false, true) {
		n.logger.Debug(ctx, "Navigation already in flight", "url", target.String())
		return Busy, nil
	}
	defer n.navigating.Store(false)

	if target.Path == n.Pathname() && target.RawQuery == "" {
		return Unchanged, nil
	}

	n.setLoading(true)
	defer n.setLoading(false)

	if err := n.navigate(ctx, target, push); err != nil {
		n.logger.Warn(ctx, err, "Navigation failed, loading page directly", "url", target.String())
		n.opts.Location.Assign(target.String())
		return FellBack, err
	}

	return Swapped, nil
}

func (n *Navigator) navigate(ctx context.Context, target *url.URL, push bool) error {
	header := http.Header{}
	header.Set(browser.HeaderRequestedWith, browser.SPANavigation)

	body, err := n.fetch(ctx, target.String(), header)
	if err != nil {
		return err
	}

	return n.apply(ctx, target, body, push)
}

// Refresh re-fetches the current page and swaps it in place without
// touching history. Any failure triggers a full reload.
func (n *Navigator) Refresh(ctx context.Context) error {
	target := n.opts.Window.URL()

	header := http.Header{}
	header.Set(browser.HeaderHotReload, "true")

	body, err := n.fetch(ctx, target.String(), header)
	if err == nil {
		err = n.apply(ctx, target, body, false)
	}
	if err != nil {
		n.logger.Warn(ctx, err, "Refresh failed, reloading page", "url", target.String())
		n.opts.Location.Reload()
		return err
	}

	return nil
}

func (n *Navigator) fetch(ctx context.Context, target string, header http.Header) (string, error) {
	resp, err := n.opts.Fetcher.Fetch(ctx, target, header)
	if err != nil {
		return "", runeerrors.NewNavigationError(runeerrors.ErrCodeNavFetch, target, "fetch failed", err)
	}
	if !resp.OK() {
		return "", runeerrors.NewNavigationError(runeerrors.ErrCodeNavStatus, target,
			"HTTP "+strconv.Itoa(resp.Status), nil)
	}

	return resp.Body, nil
}

// apply runs the swap sequence for a fetched document: locate both root
// containers, load new page scripts, then swap, update globals and head,
// push history, wait for the settle delay and hydrate.
func (n *Navigator) apply(ctx context.Context, target *url.URL, body string, push bool) error {
	next, err := dom.ParseString(body)
	if err != nil {
		return runeerrors.NewNavigationError(runeerrors.ErrCodeMalformedPayload, target.String(), "parse document", err)
	}

	nextRoot := dom.FindByID(next, document.RootID)
	var currentRoot *html.Node
	n.opts.Window.Do(func() { currentRoot = n.opts.Window.Root() })
	if nextRoot == nil || currentRoot == nil {
		return runeerrors.NewNavigationError(runeerrors.ErrCodeRootMissing, target.String(),
			"root container not found", nil)
	}

	if err := n.loadScripts(ctx, next); err != nil {
		return err
	}

	n.opts.Window.Do(func() {
		err = n.swap(target, next, nextRoot, currentRoot, push)
	})
	if err != nil {
		return err
	}

	if err := n.settle(ctx); err != nil {
		return err
	}

	n.opts.Window.Do(func() {
		n.opts.Hydrator.Hydrate(ctx, n.opts.Window.Document())
	})

	return nil
}

// swap runs inside the window's event loop.
func (n *Navigator) swap(target *url.URL, next, nextRoot, currentRoot *html.Node, push bool) error {
	w := n.opts.Window

	// Globals are evaluated first so a malformed payload aborts before the
	// DOM is touched.
	if err := w.EvalGlobals(next); err != nil {
		return runeerrors.NewNavigationError(runeerrors.ErrCodeMalformedPayload, target.String(),
			"evaluate page globals", err)
	}

	dom.ReplaceChildren(currentRoot, nextRoot)
	dom.RemoveAttr(currentRoot, hydrator.AttrHydrated)
	if page, ok := dom.Attr(nextRoot, document.AttrPage); ok {
		dom.SetAttr(currentRoot, document.AttrPage, page)
	} else {
		dom.RemoveAttr(currentRoot, document.AttrPage)
	}

	if title := dom.Title(next); title != "" {
		dom.SetTitle(w.Document(), title)
	}
	syncMeta(w.Document(), next)

	if push {
		n.opts.History.PushState(target.String())
	}
	w.SetURL(target)

	n.mu.Lock()
	n.pathname = target.Path
	n.mu.Unlock()

	return nil
}

func (n *Navigator) settle(ctx context.Context) error {
	if n.opts.SettleDelay <= 0 {
		return nil
	}

	timer := time.NewTimer(n.opts.SettleDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pageScripts returns the page script sources of doc in document order.
func pageScripts(doc *html.Node) []string {
	var out []string
	for _, s := range dom.Scripts(doc) {
		if strings.Contains(s.Src, document.PageScriptPrefix) && strings.HasSuffix(s.Src, scriptSuffix) {
			out = append(out, s.Src)
		}
	}

	return out
}

// loadScripts loads every page script of next that the current document
// does not reference yet. Each source is loaded at most once.
func (n *Navigator) loadScripts(ctx context.Context, next *html.Node) error {
	present := map[string]bool{}
	n.opts.Window.Do(func() {
		for _, s := range dom.Scripts(n.opts.Window.Document()) {
			present[s.Src] = true
		}
	})

	for _, src := range pageScripts(next) {
		n.mu.Lock()
		done := n.loaded[src] || present[src]
		n.mu.Unlock()
		if done {
			continue
		}

		if err := n.loadScript(ctx, src); err != nil {
			return err
		}

		n.mu.Lock()
		n.loaded[src] = true
		n.mu.Unlock()
	}

	return nil
}

func (n *Navigator) loadScript(ctx context.Context, src string) error {
	stamped := src + "?t=" + strconv.FormatInt(n.opts.Now().UnixMilli(), 10)
	if strings.Contains(src, "?") {
		stamped = src + "&t=" + strconv.FormatInt(n.opts.Now().UnixMilli(), 10)
	}

	err := n.opts.Scripts.Import(ctx, stamped)
	if err == nil {
		n.logger.Debug(ctx, "Loaded page script", "src", src)
		return nil
	}
	n.logger.Warn(ctx, err, "Module import failed, injecting script tag", "src", src)

	if err := n.opts.Scripts.Inject(ctx, src); err != nil {
		return runeerrors.NewNavigationError(runeerrors.ErrCodeScriptLoad, src, "load page script", err)
	}

	n.opts.Window.Do(func() {
		if head := dom.Head(n.opts.Window.Document()); head != nil {
			head.AppendChild(dom.NewElement("script",
				html.Attribute{Key: "type", Val: "module"},
				html.Attribute{Key: "src", Val: src},
			))
		}
	})

	return nil
}

func (n *Navigator) setLoading(on bool) {
	w := n.opts.Window
	w.Do(func() {
		if !on {
			if el := dom.FindByID(w.Document(), LoadingID); el != nil && el.Parent != nil {
				el.Parent.RemoveChild(el)
			}
			return
		}
		if body := dom.Body(w.Document()); body != nil && dom.FindByID(w.Document(), LoadingID) == nil {
			body.AppendChild(dom.NewElement("div",
				html.Attribute{Key: "id", Val: LoadingID},
				html.Attribute{Key: "class", Val: "rune-loading"},
			))
		}
	})
}

// syncMeta copies the tracked meta tags of next into doc, removing those
// next does not carry.
func syncMeta(doc, next *html.Node) {
	head := dom.Head(doc)
	if head == nil {
		return
	}

	for _, sel := range document.TrackedMeta {
		query := fmt.Sprintf("meta[%s=%s]", sel[0], sel[1])
		current := dom.QueryOne(head, query)
		incoming := dom.QueryOne(next, query)

		switch {
		case incoming == nil && current != nil:
			head.RemoveChild(current)
		case incoming != nil && current == nil:
			head.AppendChild(dom.Clone(incoming))
		case incoming != nil:
			content, _ := dom.Attr(incoming, "content")
			dom.SetAttr(current, "content", content)
		}
	}
}
