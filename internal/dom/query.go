package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Query returns the elements below root matching a simple selector, in
// document order. Supported forms are tag, #id, .class, [attr] and
// [attr=value] and their combinations, e.g. `link[rel=stylesheet]` or
// `meta[name="description"]`. Descendant combinators are not supported.
func Query(root *html.Node, selector string) []*html.Node {
	sel := parseSelector(selector)

	var out []*html.Node
	Walk(root, func(n *html.Node) bool {
		if sel.matches(n) {
			out = append(out, n)
		}
		return true
	})

	return out
}

// QueryOne returns the first element matching selector, or nil.
func QueryOne(root *html.Node, selector string) *html.Node {
	if all := Query(root, selector); len(all) > 0 {
		return all[0]
	}

	return nil
}

type selector struct {
	tag     string
	id      string
	class   string
	attrKey string
	attrVal string
	hasVal  bool
}

func parseSelector(s string) selector {
	var sel selector
	s = strings.TrimSpace(s)

	if idx := strings.IndexByte(s, '['); idx >= 0 {
		attr := strings.TrimSuffix(s[idx+1:], "]")
		s = s[:idx]
		if eq := strings.IndexByte(attr, '='); eq >= 0 {
			sel.attrKey = attr[:eq]
			sel.attrVal = strings.Trim(attr[eq+1:], `"'`)
			sel.hasVal = true
		} else {
			sel.attrKey = attr
		}
	}

	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		sel.class = s[idx+1:]
		s = s[:idx]
	}

	if idx := strings.IndexByte(s, '#'); idx >= 0 {
		sel.id = s[idx+1:]
		s = s[:idx]
	}

	sel.tag = strings.ToLower(s)

	return sel
}

func (s selector) matches(n *html.Node) bool {
	if !IsElement(n) {
		return false
	}
	if s.tag != "" && n.Data != s.tag {
		return false
	}
	if s.id != "" {
		if id, _ := Attr(n, "id"); id != s.id {
			return false
		}
	}
	if s.class != "" {
		classes, _ := Attr(n, "class")
		found := false
		for _, c := range strings.Fields(classes) {
			if c == s.class {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if s.attrKey != "" {
		v, ok := Attr(n, s.attrKey)
		if !ok || (s.hasVal && v != s.attrVal) {
			return false
		}
	}

	return true
}
