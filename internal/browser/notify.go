package browser

import (
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/conneroisu/rune/internal/dom"
)

// ToastKind selects the toast colour.
type ToastKind string

const (
	ToastInfo    ToastKind = "info"
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// Banner ids used by the runtime.
const (
	BannerHotReloadError = "hot-reload-error"
	BannerReconnecting   = "hot-reload-reconnecting"
)

// Notifier shows messages to the user.
type Notifier interface {
	Toast(kind ToastKind, message string)
	Banner(id, message string)
	Dismiss(id string)
}

var strict = bluemonday.StrictPolicy()

// Sanitize strips markup from message so it can be shown as text.
func Sanitize(message string) string {
	return html.UnescapeString(strict.Sanitize(message))
}

// DOMNotifier writes notifications into the body of the window's document.
// Its methods take the window's event loop and must not be called from Do.
type DOMNotifier struct {
	w *Window
}

// NewDOMNotifier creates a notifier for w.
func NewDOMNotifier(w *Window) *DOMNotifier {
	return &DOMNotifier{w: w}
}

// Toast appends a toast element.
func (n *DOMNotifier) Toast(kind ToastKind, message string) {
	n.w.Do(func() { n.toast(kind, message) })
}

func (n *DOMNotifier) toast(kind ToastKind, message string) {
	body := dom.Body(n.w.Document())
	if body == nil {
		return
	}
	el := dom.NewElement("div",
		html.Attribute{Key: "class", Val: "rune-toast rune-toast-" + string(kind)},
		html.Attribute{Key: "role", Val: "status"},
	)
	el.AppendChild(&html.Node{Type: html.TextNode, Data: message})
	body.AppendChild(el)
}

// Banner replaces banner id with a new one.
func (n *DOMNotifier) Banner(id, message string) {
	n.w.Do(func() { n.banner(id, message) })
}

func (n *DOMNotifier) banner(id, message string) {
	n.remove(id)
	body := dom.Body(n.w.Document())
	if body == nil {
		return
	}
	el := dom.NewElement("div",
		html.Attribute{Key: "id", Val: id},
		html.Attribute{Key: "class", Val: "rune-banner"},
		html.Attribute{Key: "role", Val: "alert"},
	)
	el.AppendChild(&html.Node{Type: html.TextNode, Data: message})
	body.AppendChild(el)
}

// Dismiss removes banner id.
func (n *DOMNotifier) Dismiss(id string) {
	n.w.Do(func() { n.remove(id) })
}

func (n *DOMNotifier) remove(id string) {
	if el := dom.FindByID(n.w.Document(), id); el != nil && el.Parent != nil {
		el.Parent.RemoveChild(el)
	}
}
