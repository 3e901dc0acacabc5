// Package dom is a small document model over golang.org/x/net/html used by
// the Go client runtime: lookups by id, attribute and simple selector,
// attribute edits and subtree replacement.
package dom

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse parses a full HTML document.
func Parse(r io.Reader) (*html.Node, error) {
	return html.Parse(r)
}

// ParseString parses a full HTML document held in s.
func ParseString(s string) (*html.Node, error) {
	return html.Parse(strings.NewReader(s))
}

// Walk visits n and its descendants in document order. Returning false from
// fn skips the children of the visited node.
func Walk(n *html.Node, fn func(*html.Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		Walk(c, fn)
		c = next
	}
}

// IsElement reports whether n is an element node.
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// Attr returns the value of attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}

	return "", false
}

// HasAttr reports whether n carries attribute key.
func HasAttr(n *html.Node, key string) bool {
	_, ok := Attr(n, key)
	return ok
}

// SetAttr sets attribute key on n, replacing any existing value.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr removes attribute key from n.
func RemoveAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

// FindByID returns the first element below root with the given id.
func FindByID(root *html.Node, id string) *html.Node {
	var found *html.Node
	Walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if IsElement(n) {
			if v, ok := Attr(n, "id"); ok && v == id {
				found = n
				return false
			}
		}
		return true
	})

	return found
}

// QueryAttr returns every element below root carrying attribute key, in
// document order.
func QueryAttr(root *html.Node, key string) []*html.Node {
	var out []*html.Node
	Walk(root, func(n *html.Node) bool {
		if IsElement(n) && HasAttr(n, key) {
			out = append(out, n)
		}
		return true
	})

	return out
}

// Closest returns the nearest element at or above n matching pred.
func Closest(n *html.Node, pred func(*html.Node) bool) *html.Node {
	for ; n != nil; n = n.Parent {
		if IsElement(n) && pred(n) {
			return n
		}
	}

	return nil
}

// Contains reports whether n is root or one of its descendants.
func Contains(root, n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == root {
			return true
		}
	}

	return false
}

// Text returns the concatenated text content of n.
func Text(n *html.Node) string {
	var b strings.Builder
	Walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})

	return b.String()
}

// Render serializes n and its subtree.
func Render(n *html.Node) string {
	var buf bytes.Buffer
	_ = html.Render(&buf, n)
	return buf.String()
}

// InnerHTML serializes the children of n.
func InnerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}

	return buf.String()
}

// SetInnerHTML replaces the children of n with the parsed markup.
func SetInnerHTML(n *html.Node, markup string) error {
	ctx := &html.Node{Type: html.ElementNode, Data: n.Data, DataAtom: n.DataAtom}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return err
	}

	RemoveChildren(n)
	for _, c := range nodes {
		n.AppendChild(c)
	}

	return nil
}

// RemoveChildren detaches every child of n.
func RemoveChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

// ReplaceChildren replaces the children of dst with deep copies of the
// children of src.
func ReplaceChildren(dst, src *html.Node) {
	RemoveChildren(dst)
	for c := src.FirstChild; c != nil; c = c.NextSibling {
		dst.AppendChild(Clone(c))
	}
}

// Clone deep-copies n without its parent or siblings.
func Clone(n *html.Node) *html.Node {
	out := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out.AppendChild(Clone(c))
	}

	return out
}

// NewElement creates a detached element.
func NewElement(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
}

// First returns the first element below root with the given tag.
func First(root *html.Node, tag string) *html.Node {
	var found *html.Node
	Walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if IsElement(n) && n.Data == tag {
			found = n
			return false
		}
		return true
	})

	return found
}

// Head returns the head element of doc.
func Head(doc *html.Node) *html.Node { return First(doc, "head") }

// Body returns the body element of doc.
func Body(doc *html.Node) *html.Node { return First(doc, "body") }

// Title returns the document title.
func Title(doc *html.Node) string {
	t := First(doc, "title")
	if t == nil {
		return ""
	}

	return strings.TrimSpace(Text(t))
}

// SetTitle sets the document title, creating the element when missing.
func SetTitle(doc *html.Node, title string) {
	t := First(doc, "title")
	if t == nil {
		head := Head(doc)
		if head == nil {
			return
		}
		t = NewElement("title")
		head.AppendChild(t)
	}
	RemoveChildren(t)
	t.AppendChild(&html.Node{Type: html.TextNode, Data: title})
}

// Script is a script element of a document.
type Script struct {
	Node   *html.Node
	Src    string
	Type   string
	Inline string
}

// Scripts returns the script elements below root in document order.
func Scripts(root *html.Node) []Script {
	var out []Script
	Walk(root, func(n *html.Node) bool {
		if IsElement(n) && n.DataAtom == atom.Script {
			src, _ := Attr(n, "src")
			typ, _ := Attr(n, "type")
			out = append(out, Script{Node: n, Src: src, Type: typ, Inline: Text(n)})
			return false
		}
		return true
	})

	return out
}
