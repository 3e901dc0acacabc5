package rune

import (
	"github.com/a-h/templ"

	"github.com/conneroisu/rune/cmd"
	"github.com/conneroisu/rune/internal/api"
	"github.com/conneroisu/rune/internal/components"
	"github.com/conneroisu/rune/internal/document"
	"github.com/conneroisu/rune/internal/page"
	"github.com/conneroisu/rune/internal/registry"
	"github.com/conneroisu/rune/internal/server"
	"github.com/conneroisu/rune/internal/ssr"
)

type (
	// App is an application served by the CLI.
	App = cmd.App
	// Catalog lists the page and API modules of an App.
	Catalog = server.Catalog
	// APIRoute binds an API module to a route.
	APIRoute = server.APIRoute
	// Page is a page module.
	Page = page.Module
	// ServerContext is passed to ServerSideProps.
	ServerContext = page.ServerContext
	// API is an API module.
	API = api.Module
	// HandlerFunc serves one API method.
	HandlerFunc = api.HandlerFunc
	// View is a component with a name and props.
	View = ssr.View
	// Attrs are element attributes.
	Attrs = ssr.Attrs
	// Metadata describes a document head.
	Metadata = document.Metadata
	// Constructors is a client constructor table.
	Constructors = registry.Table
	// Constructor builds a client instance from props.
	Constructor = registry.Constructor
	// ConstructorFunc adapts a function to Constructor.
	ConstructorFunc = registry.ConstructorFunc
)

// Execute runs the CLI for app.
func Execute(app App) error { return cmd.Execute(app) }

// NewView wraps body as a component named name built from props.
func NewView(name string, props map[string]any, body templ.Component) View {
	return ssr.NewView(name, props, body)
}

// El renders an element.
func El(tag string, attrs Attrs, children ...templ.Component) templ.Component {
	return ssr.El(tag, attrs, children...)
}

// Text renders escaped text.
func Text(s string) templ.Component { return ssr.Text(s) }

// Group renders children in order.
func Group(children ...templ.Component) templ.Component { return ssr.Group(children...) }

// RegisterComponents adds the built-in Toggle, Collapsible and Button
// constructors to t.
func RegisterComponents(t *Constructors) { components.Register(t) }

// ComponentsScript is the browser source of the built-in components.
func ComponentsScript() string { return components.ClientScript() }
