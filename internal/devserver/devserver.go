// Package devserver runs the development loop: the page server, the hot
// reload channel and a file watcher that rescans routes and notifies open
// tabs when the project changes.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/conneroisu/rune/internal/config"
	"github.com/conneroisu/rune/internal/hotreload"
	"github.com/conneroisu/rune/internal/logging"
	"github.com/conneroisu/rune/internal/page"
	"github.com/conneroisu/rune/internal/server"
	"github.com/conneroisu/rune/internal/watcher"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 5 * time.Second

// Action is what a file change triggers.
type Action int

const (
	// ActionRescan rescans routes, then reloads pages.
	ActionRescan Action = iota
	// ActionCSS reloads stylesheets in place.
	ActionCSS
	// ActionReload reloads pages.
	ActionReload
)

func (a Action) String() string {
	switch a {
	case ActionRescan:
		return "rescan"
	case ActionCSS:
		return "css-reload"
	default:
		return "reload"
	}
}

var codeExtensions = map[string]bool{
	".go": true, ".templ": true, ".ts": true, ".tsx": true, ".js": true, ".jsx": true,
}

var styleExtensions = map[string]bool{
	".css": true, ".scss": true, ".sass": true,
}

// Classify returns the action for a change to path.
func Classify(path string) Action {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case codeExtensions[ext]:
		return ActionRescan
	case styleExtensions[ext]:
		return ActionCSS
	default:
		return ActionReload
	}
}

// Broadcaster sends frames to every open tab.
type Broadcaster interface {
	Reload(reason string)
	CSSReload()
	Error(message string)
}

// Rescanner rebuilds route tables.
type Rescanner interface {
	Rescan(ctx context.Context) error
}

// Notifier turns change batches into reload frames.
type Notifier struct {
	Routes Rescanner
	Hub    Broadcaster
	Logger logging.Logger
}

// HandleChanges processes one debounced batch. Code changes rescan routes
// once per batch. A batch that touched anything but stylesheets produces a
// single reload frame named after its last such change; a stylesheet-only
// batch produces a css-reload frame. A failed rescan produces an error frame
// instead of a reload. A batch that lost changes to a full queue always
// rescans and reloads.
func (n *Notifier) HandleChanges(ctx context.Context, events []watcher.ChangeEvent) error {
	logger := n.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	var (
		rescan bool
		css    bool
		reason string
	)
	for _, ev := range events {
		if ev.Type == watcher.EventTypeOverflow {
			// dropped changes may have touched code or routes
			rescan = true
			if reason == "" {
				reason = "overflow: changes dropped"
			}
			continue
		}
		action := Classify(ev.Path)
		logger.Info(ctx, "File changed", "path", ev.Path, "change", ev.Type.String(), "action", action.String())

		switch action {
		case ActionRescan:
			rescan = true
			reason = fmt.Sprintf("%s: %s", ev.Type, filepath.Base(ev.Path))
		case ActionCSS:
			css = true
		case ActionReload:
			reason = fmt.Sprintf("%s: %s", ev.Type, filepath.Base(ev.Path))
		}
	}

	if rescan && n.Routes != nil {
		if err := n.Routes.Rescan(ctx); err != nil {
			n.Hub.Error("Route rescan failed: " + err.Error())
			return fmt.Errorf("rescan routes: %w", err)
		}
	}

	switch {
	case reason != "":
		n.Hub.Reload(reason)
	case css:
		n.Hub.CSSReload()
	}

	return nil
}

// DevServer owns every development component.
type DevServer struct {
	cfg      *config.Config
	logger   logging.Logger
	routes   *server.Routes
	server   *server.Server
	hub      *hotreload.Hub
	reload   *hotreload.Server
	watcher  *watcher.FileWatcher
	notifier *Notifier
}

// New wires a development server for catalog. The hot reload channel binds
// the first free port at or above the configured one.
func New(cfg *config.Config, catalog server.Catalog, logger logging.Logger) (*DevServer, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	routes := server.NewRoutes(catalog, cfg.Paths.Pages, cfg.Paths.API, logger)
	renderer := page.NewRenderer(page.Options{Dev: true, Logger: logger})
	srv := server.New(server.Options{Config: cfg, Routes: routes, Renderer: renderer, Logger: logger})

	hub := hotreload.NewHub(hotreload.HubOptions{
		Logger:         logger,
		OriginPatterns: []string{cfg.Server.Host + ":*", "localhost:*", "127.0.0.1:*"},
	})
	reload, err := hotreload.NewServer(hub, cfg.Server.Host, cfg.Dev.HotReloadPort, logger)
	if err != nil {
		_ = hub.Shutdown(context.Background())
		return nil, fmt.Errorf("start hot reload channel: %w", err)
	}
	srv.SetHotReloadPort(reload.Port())

	fw, err := watcher.New(watcher.Options{
		Root:       ".",
		Debounce:   cfg.Dev.Debounce,
		Ignore:     cfg.Dev.Ignore,
		IgnoreFile: ".gitignore",
		Logger:     logger,
	})
	if err != nil {
		_ = reload.Shutdown(context.Background())
		return nil, fmt.Errorf("start file watcher: %w", err)
	}
	fw.AddFilter(watcher.NoTestFilter)
	fw.AddFilter(watcher.NoTempFilter)

	d := &DevServer{
		cfg:     cfg,
		logger:  logger.WithComponent("devserver"),
		routes:  routes,
		server:  srv,
		hub:     hub,
		reload:  reload,
		watcher: fw,
	}
	d.notifier = &Notifier{Routes: routes, Hub: hub, Logger: d.logger}
	fw.AddHandler(d.notifier.HandleChanges)

	return d, nil
}

// HotReloadPort returns the port the hot reload channel bound.
func (d *DevServer) HotReloadPort() int { return d.reload.Port() }

// Server returns the page server.
func (d *DevServer) Server() *server.Server { return d.server }

// Run scans routes, starts watching and serves until ctx is cancelled, then
// shuts everything down.
func (d *DevServer) Run(ctx context.Context) error {
	if err := d.routes.Rescan(ctx); err != nil {
		return fmt.Errorf("initial route scan: %w", err)
	}

	for _, dir := range []string{d.cfg.Paths.Pages, d.cfg.Paths.API, d.cfg.Paths.Public} {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := d.watcher.AddRecursive(dir); err != nil {
			d.logger.Warn(ctx, err, "Failed to watch directory", "dir", dir)
		}
	}
	if err := d.watcher.Start(ctx); err != nil {
		return fmt.Errorf("start file watcher: %w", err)
	}

	errs := make(chan error, 2)
	go func() { errs <- d.reload.Serve(ctx) }()
	go func() { errs <- d.server.ListenAndServe(ctx) }()

	d.logger.Info(ctx, "Development server running",
		"url", "http://"+d.cfg.Addr(), "hot_reload_port", d.reload.Port())

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errs:
	}

	return errors.Join(runErr, d.Shutdown())
}

// Shutdown stops the watcher, the hot reload channel and the page server.
func (d *DevServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	d.logger.Info(ctx, "Shutting down development server")

	return errors.Join(
		d.watcher.Stop(),
		d.reload.Shutdown(ctx),
		d.server.Shutdown(ctx),
	)
}
