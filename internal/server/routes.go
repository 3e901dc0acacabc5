package server

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/conneroisu/rune/internal/api"
	"github.com/conneroisu/rune/internal/logging"
	"github.com/conneroisu/rune/internal/page"
	"github.com/conneroisu/rune/internal/routing"
)

// APIRoute binds an API module to a route in file form ("users/[id]") or
// colon form ("/api/users/:id").
type APIRoute struct {
	Route  string
	Module *api.Module
}

// Catalog is the set of compiled page and API modules an application ships.
type Catalog struct {
	Pages []*page.Module
	APIs  []APIRoute
}

// Routes binds scanned route files to catalog modules. Scanned files come
// first in lexical order, followed by catalog entries no file claimed.
type Routes struct {
	catalog  Catalog
	pagesDir string
	apiDir   string
	logger   logging.Logger

	mu    sync.RWMutex
	pages *routing.Table[*page.Module]
	apis  *routing.Table[*api.Module]
}

// NewRoutes creates empty route tables for catalog. Call Rescan to fill them.
func NewRoutes(catalog Catalog, pagesDir, apiDir string, logger logging.Logger) *Routes {
	if logger == nil {
		logger = logging.Discard()
	}

	return &Routes{
		catalog:  catalog,
		pagesDir: pagesDir,
		apiDir:   apiDir,
		logger:   logger.WithComponent("routing"),
		pages:    routing.NewTable[*page.Module](),
		apis:     routing.NewTable[*api.Module](),
	}
}

// Pages returns the current page table.
func (r *Routes) Pages() *routing.Table[*page.Module] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.pages
}

// APIs returns the current API table.
func (r *Routes) APIs() *routing.Table[*api.Module] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.apis
}

// Rescan rebuilds both tables from disk and swaps them in. On error the
// previous tables stay in place.
func (r *Routes) Rescan(ctx context.Context) error {
	pages, err := r.scanPages(ctx)
	if err != nil {
		return err
	}
	apis, err := r.scanAPIs(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.pages, r.apis = pages, apis
	r.mu.Unlock()

	r.logger.Info(ctx, "Routes scanned", "pages", pages.Len(), "apis", apis.Len())

	return nil
}

func (r *Routes) scanPages(ctx context.Context) (*routing.Table[*page.Module], error) {
	table := routing.NewTable[*page.Module]()

	byName := make(map[string]*page.Module, len(r.catalog.Pages))
	for _, mod := range r.catalog.Pages {
		byName[mod.Name] = mod
	}

	scanned, err := routing.NewPageScanner(r.pagesDir, r.logger).Scan(ctx)
	if err != nil {
		return nil, err
	}

	bound := make(map[*page.Module]bool)
	for _, route := range scanned {
		rel, err := filepath.Rel(r.pagesDir, route.FilePath)
		if err != nil {
			rel = route.FilePath
		}
		name := routing.ComponentName(rel)
		mod, ok := byName[name]
		if !ok {
			r.logger.Warn(ctx, nil, "No page module for route file", "file", route.FilePath, "component", name)
			continue
		}
		table.Add(route, mod)
		bound[mod] = true
	}

	for _, mod := range r.catalog.Pages {
		if bound[mod] {
			continue
		}
		if mod.Route == "" {
			r.logger.Warn(ctx, nil, "Page module has no route", "component", mod.Name)
			continue
		}
		table.Add(routing.FromFile(mod.Route, ""), mod)
	}

	return table, nil
}

func (r *Routes) scanAPIs(ctx context.Context) (*routing.Table[*api.Module], error) {
	table := routing.NewTable[*api.Module]()

	byPath := make(map[string]APIRoute, len(r.catalog.APIs))
	var order []string
	for _, entry := range r.catalog.APIs {
		path := apiRoute(entry.Route).Path
		if _, seen := byPath[path]; !seen {
			order = append(order, path)
		}
		byPath[path] = entry
	}

	scanned, err := routing.NewAPIScanner(r.apiDir, r.logger).Scan(ctx)
	if err != nil {
		return nil, err
	}

	bound := make(map[string]bool)
	for _, route := range scanned {
		entry, ok := byPath[route.Path]
		if !ok {
			r.logger.Warn(ctx, nil, "No API module for route file", "file", route.FilePath, "path", route.Path)
			continue
		}
		table.Add(route, entry.Module)
		bound[route.Path] = true
	}

	for _, path := range order {
		if bound[path] {
			continue
		}
		entry := byPath[path]
		table.Add(apiRoute(entry.Route), entry.Module)
	}

	return table, nil
}

func apiRoute(route string) routing.Route {
	if route == routing.APIPrefix || strings.HasPrefix(route, routing.APIPrefix+"/") {
		route = strings.TrimPrefix(route, routing.APIPrefix)
	}

	return routing.FromFile(route, routing.APIPrefix)
}
