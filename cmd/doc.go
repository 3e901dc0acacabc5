// Package cmd provides the command-line interface for rune.
//
// The commands are built by NewRootCommand around an App, so programs that
// ship their own pages can embed the CLI unchanged.
//
// # Available Commands
//
//   - dev: serve pages with hot reload and a file watcher
//   - start: serve pages in production mode
//   - routes: list page and API routes in match order
//   - inspect: hydrate a served page headlessly and check its registry
//   - version: print build information
//
// # Command Examples
//
//	// Start the development server on another port
//	rune dev --port 4000
//
//	// List routes as YAML
//	rune routes --format yaml
//
//	// Check a running page
//	rune inspect http://localhost:3000/users/42
//
// # Configuration
//
// Settings are read from .rune.yml (or the file named by --config or
// RUNE_CONFIG_FILE) and from RUNE_<SECTION>_<OPTION> environment variables.
// Flags override both.
package cmd
