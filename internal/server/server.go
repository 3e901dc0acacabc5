// Package server serves pages, API routes and the client runtime over HTTP.
//
// Requests resolve in this order: the client runtime and hot reload
// scripts, page scripts under /__rune/, API routes under /api, files in the
// public directory, pages, and finally the 404 page.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/conneroisu/rune/internal/config"
	"github.com/conneroisu/rune/internal/document"
	"github.com/conneroisu/rune/internal/logging"
	"github.com/conneroisu/rune/internal/page"
)

// HealthPath reports server status as JSON.
const HealthPath = "/__rune_health__"

// Options configure a Server.
type Options struct {
	Config   *config.Config
	Routes   *Routes
	Renderer *page.Renderer
	Logger   logging.Logger
}

// Server is the application HTTP server.
type Server struct {
	cfg      *config.Config
	routes   *Routes
	renderer *page.Renderer
	logger   logging.Logger
	handler  http.Handler

	hotReloadPort atomic.Int64

	mu   sync.Mutex
	http *http.Server
}

// New creates a server. A nil renderer gets one configured from cfg.
func New(opts Options) *Server {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	routes := opts.Routes
	if routes == nil {
		routes = NewRoutes(Catalog{}, cfg.Paths.Pages, cfg.Paths.API, logger)
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = page.NewRenderer(page.Options{Dev: cfg.IsDev(), Logger: logger})
	}

	s := &Server{
		cfg:      cfg,
		routes:   routes,
		renderer: renderer,
		logger:   logger.WithComponent("server"),
	}
	s.hotReloadPort.Store(int64(cfg.Dev.HotReloadPort))
	s.handler = s.router()

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Routes returns the route tables the server resolves against.
func (s *Server) Routes() *Routes { return s.routes }

// SetHotReloadPort sets the port the hot reload script connects to.
func (s *Server) SetHotReloadPort(port int) { s.hotReloadPort.Store(int64(port)) }

func (s *Server) hotReloadEnabled() bool {
	return s.cfg.IsDev() && s.cfg.Dev.HotReload
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	if s.cfg.Server.PoweredBy {
		r.Use(poweredBy)
	}
	r.Use(cors)
	r.Use(noStore)
	r.Use(middleware.Compress(5))

	r.Get(document.ClientScriptPath, s.handleClientScript)
	if s.hotReloadEnabled() {
		r.Get(document.HotReloadScriptPath, s.handleHotReloadScript)
	}
	r.Get(HealthPath, s.handleHealth)

	scripts := http.Dir(filepath.Join(s.cfg.Paths.Build, "client"))
	r.Handle(document.PageScriptPrefix+"*", http.StripPrefix(document.PageScriptPrefix, http.FileServer(scripts)))

	r.HandleFunc("/api", s.handleAPI)
	r.HandleFunc("/api/*", s.handleAPI)

	r.NotFound(s.handlePage)
	r.MethodNotAllowed(s.handlePage)

	return r
}

// ListenAndServe binds the configured address and serves until Shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr(), err)
	}

	return s.Serve(ctx, ln)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	s.logger.Info(ctx, "Server listening", "addr", ln.Addr().String(), "environment", s.cfg.Server.Environment)

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}

	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	return srv.Shutdown(ctx)
}
