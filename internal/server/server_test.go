package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/rune/internal/api"
	"github.com/conneroisu/rune/internal/config"
	"github.com/conneroisu/rune/internal/page"
	"github.com/conneroisu/rune/internal/ssr"
)

func textPage(name, route, text string) *page.Module {
	return &page.Module{
		Name:  name,
		Route: route,
		New: func(data map[string]any) (ssr.View, error) {
			return ssr.NewView(name, data, ssr.El("main", nil, ssr.Text(text))), nil
		},
	}
}

func catalog() Catalog {
	user := &page.Module{
		Name: "UsersIdPage",
		New: func(data map[string]any) (ssr.View, error) {
			params, _ := data["params"].(map[string]string)
			return ssr.NewView("UsersIdPage", data, ssr.El("h1", nil, ssr.Text("user "+params["id"]))), nil
		},
	}
	broken := &page.Module{
		Name:  "BrokenPage",
		Route: "/broken",
		New: func(map[string]any) (ssr.View, error) {
			return nil, errors.New("no data")
		},
	}

	return Catalog{
		Pages: []*page.Module{
			textPage("IndexPage", "", "home"),
			textPage("AboutPage", "", "about us"),
			user,
			textPage("ContactPage", "/contact", "write to us"),
			broken,
		},
		APIs: []APIRoute{
			{Route: "hello", Module: &api.Module{
				GET: func(w http.ResponseWriter, _ *http.Request) error {
					return api.Success(w, "hi", "")
				},
			}},
			{Route: "users/[id]", Module: &api.Module{
				GET: func(w http.ResponseWriter, r *http.Request) error {
					return api.JSON(w, http.StatusOK, map[string]string{"id": api.Params(r)["id"]})
				},
			}},
		},
	}
}

type fixture struct {
	root   string
	cfg    *config.Config
	server *Server
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newFixture(t *testing.T, env string) *fixture {
	t.Helper()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pages", "index.go"), "package pages")
	writeFile(t, filepath.Join(root, "pages", "about.go"), "package pages")
	writeFile(t, filepath.Join(root, "pages", "users", "[id].go"), "package users")
	writeFile(t, filepath.Join(root, "pages", "orphan.go"), "package pages")
	writeFile(t, filepath.Join(root, "api", "hello.go"), "package api")
	writeFile(t, filepath.Join(root, "public", "robots.txt"), "User-agent: *")
	writeFile(t, filepath.Join(root, "dist", "client", "about.js"), "export class AboutPage {}")

	cfg := config.Default()
	cfg.Server.Environment = env
	cfg.Paths.Pages = filepath.Join(root, "pages")
	cfg.Paths.API = filepath.Join(root, "api")
	cfg.Paths.Public = filepath.Join(root, "public")
	cfg.Paths.Build = filepath.Join(root, "dist")

	routes := NewRoutes(catalog(), cfg.Paths.Pages, cfg.Paths.API, nil)
	require.NoError(t, routes.Rescan(context.Background()))

	return &fixture{root: root, cfg: cfg, server: New(Options{Config: cfg, Routes: routes})}
}

func (f *fixture) do(t *testing.T, method, target string, header map[string]string) (*http.Response, string) {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	res := rec.Result()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	return res, string(body)
}

func TestServePages(t *testing.T) {
	f := newFixture(t, config.EnvDevelopment)

	tests := []struct {
		name   string
		target string
		status int
		want   string
	}{
		{"index", "/", http.StatusOK, `<div data-rune-page="IndexPage" id="__rune_root__"><main>home</main></div>`},
		{"static page", "/about", http.StatusOK, "about us"},
		{"dynamic page", "/users/42", http.StatusOK, "<h1>user 42</h1>"},
		{"catalog route", "/contact", http.StatusOK, "write to us"},
		{"unknown", "/nowhere", http.StatusNotFound, "404 - Page Not Found"},
		{"render failure", "/broken", http.StatusInternalServerError, "no data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, body := f.do(t, http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.status, res.StatusCode)
			assert.Contains(t, body, tt.want)
			assert.Equal(t, "text/html; charset=utf-8", res.Header.Get("Content-Type"))
		})
	}
}

func TestOrphanRouteFileIsSkipped(t *testing.T) {
	f := newFixture(t, config.EnvDevelopment)

	res, _ := f.do(t, http.MethodGet, "/orphan", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestProductionHidesErrors(t *testing.T) {
	f := newFixture(t, config.EnvProduction)

	res, body := f.do(t, http.MethodGet, "/broken", nil)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Contains(t, body, "500 - Internal Server Error")
	assert.NotContains(t, body, "no data")

	_, home := f.do(t, http.MethodGet, "/", nil)
	assert.NotContains(t, home, "/__hot_reload__.js")
}

func TestServeScripts(t *testing.T) {
	f := newFixture(t, config.EnvDevelopment)

	res, body := f.do(t, http.MethodGet, "/__rune_client__.js", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "application/javascript")
	assert.Contains(t, body, "__rune_root__")
	assert.Contains(t, body, "spa-navigation")

	_, body = f.do(t, http.MethodGet, "/__hot_reload__.js", nil)
	assert.Contains(t, body, `var PORT = "3001"`)
	assert.NotContains(t, body, "%%")

	f.server.SetHotReloadPort(3005)
	_, body = f.do(t, http.MethodGet, "/__hot_reload__.js", nil)
	assert.Contains(t, body, `var PORT = "3005"`)

	res, body = f.do(t, http.MethodGet, "/__rune/about.js", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "AboutPage")
}

func TestHotReloadScriptOnlyInDev(t *testing.T) {
	f := newFixture(t, config.EnvProduction)

	res, _ := f.do(t, http.MethodGet, "/__hot_reload__.js", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestHotReloadScriptPolicy(t *testing.T) {
	script := HotReloadScript(4000, 3, 250*time.Millisecond)
	assert.Contains(t, script, `"4000"`)
	assert.Contains(t, script, `Number("3")`)
	assert.Contains(t, script, `Number("250")`)
}

func TestServePublicFiles(t *testing.T) {
	f := newFixture(t, config.EnvDevelopment)

	res, body := f.do(t, http.MethodGet, "/robots.txt", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "User-agent: *", body)

	res, _ = f.do(t, http.MethodGet, "/../pages/index.go", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestServeAPI(t *testing.T) {
	f := newFixture(t, config.EnvDevelopment)

	res, body := f.do(t, http.MethodGet, "/api/hello", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"success":true,"data":"hi"}`, body)

	res, body = f.do(t, http.MethodPost, "/api/hello", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
	assert.JSONEq(t, `{"error":"Method Not Allowed","message":"POST method is not supported for this endpoint"}`, body)

	_, body = f.do(t, http.MethodGet, "/api/users/7", nil)
	assert.JSONEq(t, `{"id":"7"}`, body)

	res, body = f.do(t, http.MethodGet, "/api/missing", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, body, "404 - Page Not Found")
}

func TestMiddlewareHeaders(t *testing.T) {
	f := newFixture(t, config.EnvDevelopment)

	res, _ := f.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, "Rune", res.Header.Get("X-Powered-By"))
	assert.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", res.Header.Get("X-Content-Type-Options"))
	assert.Empty(t, res.Header.Get("Cache-Control"))
	assert.Contains(t, res.Header.Values("Vary"), "X-Requested-With")

	res, _ = f.do(t, http.MethodGet, "/about", map[string]string{"X-Requested-With": "spa-navigation"})
	assert.Equal(t, "no-store", res.Header.Get("Cache-Control"))

	res, _ = f.do(t, http.MethodGet, "/about", map[string]string{"X-Hot-Reload": "true"})
	assert.Equal(t, "no-store", res.Header.Get("Cache-Control"))

	res, body := f.do(t, http.MethodOptions, "/api/hello", map[string]string{"Access-Control-Request-Method": "POST"})
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, body)
	assert.Contains(t, res.Header.Get("Access-Control-Allow-Methods"), "POST")
}

func TestPoweredByCanBeDisabled(t *testing.T) {
	f := newFixture(t, config.EnvDevelopment)
	f.cfg.Server.PoweredBy = false
	srv := New(Options{Config: f.cfg, Routes: f.server.Routes()})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, rec.Header().Get("X-Powered-By"))
}

func TestHealth(t *testing.T) {
	f := newFixture(t, config.EnvDevelopment)

	res, body := f.do(t, http.MethodGet, HealthPath, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var health map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.EqualValues(t, 5, health["pages"])
	assert.EqualValues(t, 2, health["apis"])
}

func TestRescanPicksUpNewFiles(t *testing.T) {
	f := newFixture(t, config.EnvDevelopment)
	routes := f.server.Routes()

	before := routes.Pages().Routes()
	assert.Equal(t, "/about", before[0].Path)

	writeFile(t, filepath.Join(f.root, "pages", "contact.go"), "package pages")
	require.NoError(t, routes.Rescan(context.Background()))

	var paths []string
	for _, r := range routes.Pages().Routes() {
		paths = append(paths, r.Path)
	}
	// contact is now claimed by its file and no longer appended as a
	// catalog-only route
	assert.Equal(t, []string{"/about", "/contact", "/", "/users/:id", "/broken"}, paths)
}

func TestListenAndShutdown(t *testing.T) {
	f := newFixture(t, config.EnvDevelopment)
	f.cfg.Server.Host = "127.0.0.1"
	f.cfg.Server.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.server.ListenAndServe(ctx) }()

	require.Eventually(t, func() bool {
		f.server.mu.Lock()
		defer f.server.mu.Unlock()
		return f.server.http != nil
	}, 2*time.Second, 10*time.Millisecond)

	shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	require.NoError(t, f.server.Shutdown(shutdownCtx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestClientScriptEmbedded(t *testing.T) {
	js := string(ClientScript())
	for _, marker := range []string{"data-rune-hydrated", "__RUNE_PROPS__", "__RUNE_DATA__", "/__rune/", "__rune_loading__"} {
		assert.True(t, strings.Contains(js, marker), marker)
	}
}

func TestClientScriptResolvesThroughTable(t *testing.T) {
	js := string(ClientScript())

	assert.Contains(t, js, "register: register")
	assert.Contains(t, js, "__RUNE_QUEUE__")
	assert.NotContains(t, js, "window[name]")
	assert.NotContains(t, js, "in window")
}
