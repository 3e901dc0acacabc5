// Package components provides the stateful UI primitives that ship with the
// framework: Toggle, Collapsible and Button.
//
// Each component is a single Go value that both renders server markup
// through package ssr and binds to that markup on the client through
// HydrateFromSSR. Compound parts are methods on the component value, so
// every part renders from, and later updates with, the state of the root
// that created it. Register adds the hydration constructors to a
// registry.Table.
package components

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"

	"github.com/conneroisu/rune/internal/dom"
	"github.com/conneroisu/rune/internal/ssr"
)

// Anatomy attribute names.
const (
	AttrScope    = "data-scope"
	AttrPart     = "data-part"
	AttrState    = "data-state"
	AttrDisabled = "data-disabled"
)

// Anatomy names the parts of a component under one scope.
type Anatomy struct {
	Scope string
	Parts []string
}

// NewAnatomy returns the anatomy of scope. Part names are written in kebab
// case.
func NewAnatomy(scope string, parts ...string) Anatomy {
	kebab := make([]string, len(parts))
	for i, p := range parts {
		kebab[i] = kebabCase(p)
	}

	return Anatomy{Scope: scope, Parts: kebab}
}

// Attrs returns the identifying attributes of part merged over extra.
func (a Anatomy) Attrs(part string, extra ssr.Attrs) ssr.Attrs {
	out := make(ssr.Attrs, len(extra)+2)
	for k, v := range extra {
		out[k] = v
	}
	out[AttrScope] = a.Scope
	out[AttrPart] = kebabCase(part)

	return out
}

// IsPart reports whether n is part of this anatomy.
func (a Anatomy) IsPart(n *html.Node, part string) bool {
	if !dom.IsElement(n) {
		return false
	}
	scope, _ := dom.Attr(n, AttrScope)
	got, _ := dom.Attr(n, AttrPart)

	return scope == a.Scope && got == kebabCase(part)
}

// Find returns the elements of part that belong to root, in document order.
// Parts of nested components of the same scope are excluded.
func (a Anatomy) Find(root *html.Node, part string) []*html.Node {
	var out []*html.Node
	dom.Walk(root, func(n *html.Node) bool {
		if n != root && a.IsPart(n, "root") {
			return false
		}
		if a.IsPart(n, part) {
			out = append(out, n)
		}
		return true
	})

	return out
}

func kebabCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}

	return b.String()
}

func boolAttr(v bool) string {
	if v {
		return "true"
	}

	return "false"
}

// setFlag adds key as a bare attribute when on and removes it otherwise.
func setFlag(n *html.Node, key string, on bool) {
	if on {
		dom.SetAttr(n, key, "")
		return
	}
	dom.RemoveAttr(n, key)
}
