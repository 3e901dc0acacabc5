package ssr

import (
	"bytes"
	"context"
	"encoding/json"
	"html"
	"io"

	xhtml "golang.org/x/net/html"
)

// Component wraps v so that it annotates its markup during a server render
// pass. Wrapping an already wrapped view returns it unchanged.
func Component(v View) View {
	if a, ok := v.(*annotated); ok {
		return a
	}

	return &annotated{view: v}
}

// annotated is the identity of one logical component instance within a
// render pass.
type annotated struct {
	view View
}

func (a *annotated) ViewName() string          { return a.view.ViewName() }
func (a *annotated) ViewProps() map[string]any { return a.view.ViewProps() }

// Unwrap returns the wrapped view.
func (a *annotated) Unwrap() View { return a.view }

func (a *annotated) Render(ctx context.Context, w io.Writer) error {
	pass, ok := PassFrom(ctx)
	if !ok {
		return a.view.Render(ctx, w)
	}

	var buf bytes.Buffer
	if err := a.view.Render(ctx, &buf); err != nil {
		return err
	}
	markup := buf.Bytes()

	start, end, ok := rootTag(markup)
	if !ok {
		pass.logger.Debug(ctx, "No root element to annotate", "view", a.view.ViewName())
		_, err := w.Write(markup)
		return err
	}
	if claimed, ok := attrValue(markup[start:end], AttrName); ok {
		// the innermost component keeps a shared root; the outer one is not
		// registered and will not hydrate
		pass.logger.Warn(ctx, nil, "Root element shared with a nested component, skipping outer annotation",
			"view", a.view.ViewName(), "claimedBy", claimed)
		_, err := w.Write(markup)
		return err
	}

	got := pass.assign(ctx, a)

	var attrs bytes.Buffer
	if got.id != "" {
		writeAttr(&attrs, AttrID, got.id)
	}
	writeAttr(&attrs, AttrName, got.name)
	if pass.inlineProps && got.id != "" {
		if rec, ok := pass.store.Get(got.id); ok {
			if data, err := json.Marshal(rec.Props); err == nil {
				writeAttr(&attrs, AttrProps, string(data))
			}
		}
	}

	insertAt := start + 1 + tagNameLen(markup[start+1:end])
	if _, err := w.Write(markup[:insertAt]); err != nil {
		return err
	}
	if _, err := w.Write(attrs.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(markup[insertAt:])

	return err
}

func writeAttr(buf *bytes.Buffer, name, value string) {
	buf.WriteByte(' ')
	buf.WriteString(name)
	buf.WriteString(`="`)
	buf.WriteString(html.EscapeString(value))
	buf.WriteByte('"')
}

// rootTag locates the raw bytes of the first start tag in markup.
func rootTag(markup []byte) (start, end int, ok bool) {
	z := xhtml.NewTokenizer(bytes.NewReader(markup))
	offset := 0
	for {
		tt := z.Next()
		raw := len(z.Raw())
		switch tt {
		case xhtml.ErrorToken:
			return 0, 0, false
		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			return offset, offset + raw, true
		}
		offset += raw
	}
}

// attrValue returns the value of attribute name on the start tag.
func attrValue(tag []byte, name string) (string, bool) {
	z := xhtml.NewTokenizer(bytes.NewReader(tag))
	z.Next()
	for {
		key, val, more := z.TagAttr()
		if string(key) == name {
			return string(val), true
		}
		if !more {
			return "", false
		}
	}
}

// tagNameLen returns the length of the tag name at the start of b.
func tagNameLen(b []byte) int {
	for i, c := range b {
		switch c {
		case ' ', '\t', '\n', '\r', '\f', '/', '>':
			return i
		}
	}

	return len(b)
}
