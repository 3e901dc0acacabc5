package server

import (
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/conneroisu/rune/internal/api"
	"github.com/conneroisu/rune/internal/page"
	"github.com/conneroisu/rune/internal/version"
)

func (s *Server) handleClientScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	_, _ = w.Write(ClientScript())
}

func (s *Server) handleHotReloadScript(w http.ResponseWriter, _ *http.Request) {
	script := HotReloadScript(int(s.hotReloadPort.Load()), s.cfg.Dev.MaxReconnectAttempts, s.cfg.Dev.ReconnectInterval)

	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	_, _ = io.WriteString(w, script)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = api.JSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"version":     version.Short(),
		"environment": s.cfg.Server.Environment,
		"pages":       s.routes.Pages().Len(),
		"apis":        s.routes.APIs().Len(),
	})
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	match, ok := s.routes.APIs().Match(r.URL.Path)
	if !ok || match.Module == nil {
		s.logger.Debug(r.Context(), "No API route matched", "path", r.URL.Path)
		s.handlePage(w, r)
		return
	}

	r = r.WithContext(api.WithParams(r.Context(), match.Params))
	api.Serve(match.Module, s.logger, w, r)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if s.servePublic(w, r) {
		return
	}

	match, ok := s.routes.Pages().Match(r.URL.Path)
	if !ok {
		writeHTML(w, http.StatusNotFound, page.NotFoundPage())
		return
	}

	query := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			query[key] = values[0]
		}
	}

	res := s.renderer.Render(r.Context(), match.Module, page.Props{
		Params:   match.Params,
		Query:    query,
		Pathname: r.URL.Path,
	}, w, r)
	writeHTML(w, res.Status, res.HTML)
}

// servePublic serves r from the public directory when a regular file exists
// at its path.
func (s *Server) servePublic(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	clean := path.Clean("/" + r.URL.Path)
	if clean == "/" || strings.Contains(r.URL.Path, "..") {
		return false
	}

	file := filepath.Join(s.cfg.Paths.Public, filepath.FromSlash(clean))
	info, err := os.Stat(file)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}

	http.ServeFile(w, r, file)

	return true
}

func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
