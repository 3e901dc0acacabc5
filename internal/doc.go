// Package internal contains the core implementation packages for rune.
//
// # Package Organization
//
// The internal packages are organized by the stage of a page's life:
//
//   - ssr: views, the render pass and the markup annotator
//   - registry: the props registry store and client constructor tables
//   - document: the assembled HTML document and its globals
//   - page, api, routing: page and API modules bound to file routes
//   - server: chi router, middleware and the page and API handlers
//   - hotreload, watcher, devserver: the development loop
//   - dom, browser, hydrator, navigation: the Go client runtime
//   - components, machine: the built-in state machine components
//   - inspect: headless hydration checks against a served page
//   - config, logging, errors, version: ambient support
//
// # Inter-Package Communication
//
//   - A render pass writes every annotated view into its registry store
//   - The document embeds the store snapshot and the page data as globals
//   - The hydrator reads both back and attaches constructors from a table
//   - The navigator fetches the next document and repeats hydration on it
//   - The watcher feeds the dev server, which rescans routes and broadcasts
//     reload, css or error frames over the hot reload hub
package internal
