// Package document assembles complete HTML documents around rendered page
// markup.
//
// The assembled document carries the page-level data object and the props
// registry snapshot as global assignments, followed by the inline client
// script, the page script, the client runtime and, in development, the hot
// reload client, in that order. The page markup sits inside the single root
// container that client navigation and hot reload swap.
package document

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/conneroisu/rune/internal/registry"
	"github.com/conneroisu/rune/internal/ssr"
)

// Reserved names shared by the server and the client runtime.
const (
	RootID              = "__rune_root__"
	DataGlobal          = "__RUNE_DATA__"
	PropsGlobal         = "__RUNE_PROPS__"
	AttrPage            = "data-rune-page"
	ClientScriptPath    = "/__rune_client__.js"
	HotReloadScriptPath = "/__hot_reload__.js"
	PageScriptPrefix    = "/__rune/"
	DefaultTitle        = "Rune App"
	DefaultLang         = "en"
	DefaultFavicon      = "/favicon.ico"
)

// Metadata describes the head of a page.
type Metadata struct {
	Title         string `json:"title,omitempty"`
	Description   string `json:"description,omitempty"`
	Keywords      string `json:"keywords,omitempty"`
	OGTitle       string `json:"ogTitle,omitempty"`
	OGDescription string `json:"ogDescription,omitempty"`
	OGImage       string `json:"ogImage,omitempty"`
	Favicon       string `json:"favicon,omitempty"`
}

// TrackedMeta lists the meta tags that client navigation keeps in sync, as
// attribute/value selectors.
var TrackedMeta = [][2]string{
	{"name", "description"},
	{"name", "keywords"},
	{"property", "og:title"},
	{"property", "og:description"},
	{"property", "og:image"},
}

// Input is everything a document is assembled from.
type Input struct {
	Metadata     Metadata
	Markup       string
	PageData     map[string]any
	Props        registry.Snapshot
	ClientScript string
	PageScript   string
	PageName     string
	Dev          bool
	Lang         string
	Stylesheets  []string
	Head         templ.Component
}

// Assemble renders the document for in.
func Assemble(ctx context.Context, in Input) (string, error) {
	var buf bytes.Buffer
	if err := Component(in).Render(ctx, &buf); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// Component returns the document for in as a templ component.
func Component(in Input) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		data, err := Assignment(DataGlobal, in.PageData, "{}")
		if err != nil {
			return fmt.Errorf("encode page data: %w", err)
		}
		props, err := Assignment(PropsGlobal, in.Props, "{}")
		if err != nil {
			return fmt.Errorf("encode props snapshot: %w", err)
		}

		lang := in.Lang
		if lang == "" {
			lang = DefaultLang
		}

		if _, err := io.WriteString(w, "<!DOCTYPE html>\n"); err != nil {
			return err
		}

		rootAttrs := ssr.Attrs{"id": RootID}
		if in.PageName != "" {
			rootAttrs[AttrPage] = in.PageName
		}

		doc := ssr.El("html", ssr.Attrs{"lang": lang},
			ssr.El("head", nil,
				ssr.El("meta", ssr.Attrs{"charset": "utf-8"}),
				ssr.El("meta", ssr.Attrs{"name": "viewport", "content": "width=device-width, initial-scale=1"}),
				ssr.El("title", nil, ssr.Text(title(in.Metadata))),
				metaTags(in.Metadata),
				stylesheets(in.Stylesheets),
				in.Head,
			),
			ssr.El("body", nil,
				ssr.El("div", rootAttrs, templ.Raw(in.Markup)),
				inlineScript(data),
				inlineScript(props),
				ssr.If(in.ClientScript != "", inlineScript(in.ClientScript)),
				ssr.If(in.PageScript != "", ssr.El("script", ssr.Attrs{"type": "module", "src": in.PageScript})),
				ssr.El("script", ssr.Attrs{"src": ClientScriptPath}),
				ssr.If(in.Dev, ssr.El("script", ssr.Attrs{"src": HotReloadScriptPath})),
			),
		)

		return doc.Render(ctx, w)
	})
}

func title(m Metadata) string {
	if m.Title == "" {
		return DefaultTitle
	}

	return m.Title
}

func metaTags(m Metadata) templ.Component {
	values := []string{m.Description, m.Keywords, m.OGTitle, m.OGDescription, m.OGImage}

	var tags []templ.Component
	for i, sel := range TrackedMeta {
		if values[i] == "" {
			continue
		}
		tags = append(tags, ssr.El("meta", ssr.Attrs{sel[0]: sel[1], "content": values[i]}))
	}

	favicon := m.Favicon
	if favicon == "" {
		favicon = DefaultFavicon
	}
	tags = append(tags, ssr.El("link", ssr.Attrs{"rel": "icon", "href": favicon}))

	return ssr.Group(tags...)
}

func stylesheets(hrefs []string) templ.Component {
	links := make([]templ.Component, 0, len(hrefs))
	for _, href := range hrefs {
		links = append(links, ssr.El("link", ssr.Attrs{"rel": "stylesheet", "href": href}))
	}

	return ssr.Group(links...)
}

// inlineScript renders a script element around trusted source text.
func inlineScript(src string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<script>"+src+"</script>")
		return err
	})
}

// Assignment encodes value as a global assignment statement. A nil value is
// encoded as fallback. encoding/json escapes <, > and & so the result is safe
// inside a script element.
func Assignment(global string, value any, fallback string) (string, error) {
	encoded := []byte(fallback)
	if !isNil(value) {
		var err error
		encoded, err = json.Marshal(value)
		if err != nil {
			return "", err
		}
	}

	return "window." + global + " = " + string(encoded) + ";", nil
}

func isNil(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case map[string]any:
		return t == nil
	case registry.Snapshot:
		return t == nil
	}

	return false
}

// ParseAssignment extracts the global name and JSON value from a script
// produced by Assignment.
func ParseAssignment(script string) (global string, value json.RawMessage, ok bool) {
	s := strings.TrimSpace(script)
	if !strings.HasPrefix(s, "window.") {
		return "", nil, false
	}
	s = strings.TrimPrefix(s, "window.")

	eq := strings.IndexByte(s, '=')
	if eq < 0 {
		return "", nil, false
	}
	global = strings.TrimSpace(s[:eq])
	body := strings.TrimSuffix(strings.TrimSpace(s[eq+1:]), ";")
	if global == "" || !json.Valid([]byte(body)) {
		return "", nil, false
	}

	return global, json.RawMessage(body), true
}
