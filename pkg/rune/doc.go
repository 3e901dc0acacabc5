// Package rune is the public surface of the rune framework for programs that
// ship their own pages.
//
// rune renders templ components on the server, records the props every
// annotated component was built from and writes them into the document as
// a props registry. The client runtime reads that registry back and hydrates
// the markup in place, so the same component value drives both sides.
//
// # Quick Start
//
//	func main() {
//		app := rune.App{
//			Catalog: rune.Catalog{
//				Pages: []*rune.Page{{
//					Name:  "IndexPage",
//					Route: "/",
//					New: func(data map[string]any) (rune.View, error) {
//						return rune.NewView("IndexPage", data, rune.El("h1", nil, rune.Text("hello"))), nil
//					},
//				}},
//			},
//		}
//		if err := rune.Execute(app); err != nil {
//			os.Exit(1)
//		}
//	}
//
// # Architecture
//
//   - CLI Commands (cmd/): dev, start, routes, inspect and version
//   - SSR (internal/ssr/): views, the render pass and the markup annotator
//   - Props Registry (internal/registry/): snapshots and constructor tables
//   - Document (internal/document/): the assembled HTML document
//   - Server (internal/server/): chi router, page and API handlers
//   - Hot Reload (internal/hotreload/): websocket channel and its client
//   - Client Runtime (internal/hydrator/, internal/navigation/): hydration
//     and client navigation over an x/net/html DOM
//
// # Configuration
//
// Settings come from .rune.yml, RUNE_* environment variables and flags:
//
//	server:
//	  port: 3000
//	  host: localhost
//	  environment: development
//
//	paths:
//	  pages: src/pages
//	  api: src/api
//
//	dev:
//	  hot_reload: true
//	  hot_reload_port: 3001
package rune
