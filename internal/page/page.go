// Package page defines page modules and renders them into documents.
package page

import (
	"context"
	"net/http"

	"github.com/a-h/templ"

	"github.com/conneroisu/rune/internal/document"
	"github.com/conneroisu/rune/internal/ssr"
)

// Props are the routing inputs every page receives.
type Props struct {
	Params   map[string]string `json:"params"`
	Query    map[string]string `json:"query"`
	Pathname string            `json:"pathname"`
}

// Data returns props as the base of the page-level data object.
func (p Props) Data() map[string]any {
	params := p.Params
	if params == nil {
		params = map[string]string{}
	}
	query := p.Query
	if query == nil {
		query = map[string]string{}
	}

	return map[string]any{
		"params":   params,
		"query":    query,
		"pathname": p.Pathname,
	}
}

// ServerContext is handed to ServerSideProps.
type ServerContext struct {
	Params   map[string]string
	Query    map[string]string
	Request  *http.Request
	Response http.ResponseWriter
}

// Module is one page.
type Module struct {
	// Name is the page constructor name, e.g. "AboutPage". It is written on
	// the root container so the client can pick the page constructor.
	Name string
	// Route is the route pattern in file form ("users/[id]") or colon form
	// ("/users/:id"). Scanned pages take their route from the file path.
	Route string
	// New builds the page view from the final page data.
	New func(data map[string]any) (ssr.View, error)
	// ServerSideProps loads data merged over the routing props.
	ServerSideProps func(ctx context.Context, sc ServerContext) (map[string]any, error)
	// Metadata describes the document head.
	Metadata func(data map[string]any) document.Metadata
	// ClientScript returns an inline script emitted after the globals.
	ClientScript func(data map[string]any) string
	// Script is the URL of the page script module, usually under /__rune/.
	Script string
	// Document replaces the default document.
	Document func(in document.Input) templ.Component
}
