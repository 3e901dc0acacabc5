package ssr

import (
	"context"
	"html"
	"io"
	"sort"
	"strings"

	"github.com/a-h/templ"
)

// Attrs are element attributes. Keys render sorted; a value of "" renders a
// bare boolean attribute.
type Attrs map[string]string

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// El renders an element. Children that are Views are wrapped with Component,
// so nested components annotate themselves in document order.
func El(tag string, attrs Attrs, children ...templ.Component) templ.Component {
	children = wrapViews(children)

	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteByte('<')
		b.WriteString(tag)
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteByte(' ')
			b.WriteString(k)
			if v := attrs[k]; v != "" {
				b.WriteString(`="`)
				b.WriteString(html.EscapeString(v))
				b.WriteByte('"')
			}
		}
		b.WriteByte('>')
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		if voidElements[tag] {
			return nil
		}

		for _, child := range children {
			if child == nil {
				continue
			}
			if err := child.Render(ctx, w); err != nil {
				return err
			}
		}

		_, err := io.WriteString(w, "</"+tag+">")
		return err
	})
}

// Text renders escaped text.
func Text(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, html.EscapeString(s))
		return err
	})
}

// Group renders components one after another.
func Group(children ...templ.Component) templ.Component {
	children = wrapViews(children)

	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, child := range children {
			if child == nil {
				continue
			}
			if err := child.Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

// If renders c when cond holds.
func If(cond bool, c templ.Component) templ.Component {
	if !cond {
		return nil
	}

	return c
}

func wrapViews(children []templ.Component) []templ.Component {
	out := make([]templ.Component, len(children))
	for i, child := range children {
		if v, ok := child.(View); ok {
			child = Component(v)
		}
		out[i] = child
	}

	return out
}
