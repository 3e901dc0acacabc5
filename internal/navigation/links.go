package navigation

import (
	"context"
	"net/url"

	"golang.org/x/net/html"

	"github.com/conneroisu/rune/internal/dom"
)

// Intercepts reports whether a click on target should become a client-side
// navigation and returns the resolved destination. Only same-origin anchors
// without download, target or data-no-spa attributes are intercepted.
func (n *Navigator) Intercepts(target *html.Node) (*url.URL, bool) {
	a := dom.Closest(target, func(el *html.Node) bool { return el.Data == "a" })
	if a == nil {
		return nil, false
	}

	href, ok := dom.Attr(a, "href")
	if !ok || href == "" {
		return nil, false
	}
	for _, attr := range []string{"download", "target", AttrNoSPA} {
		if dom.HasAttr(a, attr) {
			return nil, false
		}
	}

	u, err := n.opts.Window.Resolve(href)
	if err != nil || !n.opts.Window.SameOrigin(u) {
		return nil, false
	}

	return u, true
}

// HandleClick navigates when the click on target is intercepted and reports
// whether the default action was prevented.
func (n *Navigator) HandleClick(ctx context.Context, target *html.Node) bool {
	u, ok := n.Intercepts(target)
	if !ok {
		return false
	}

	_, _ = n.Navigate(ctx, u.String(), true)

	return true
}

// HandlePopState follows a history traversal to href without pushing a new
// entry.
func (n *Navigator) HandlePopState(ctx context.Context, href string) (Result, error) {
	return n.Navigate(ctx, href, false)
}
