package page

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/rune/internal/document"
	"github.com/conneroisu/rune/internal/ssr"
)

func toggle(label string) ssr.View {
	return ssr.NewView("Toggle", map[string]any{"label": label},
		ssr.El("button", ssr.Attrs{"type": "button"}, ssr.Text(label)))
}

func userPage() *Module {
	return &Module{
		Name:  "UsersIdPage",
		Route: "users/[id]",
		New: func(data map[string]any) (ssr.View, error) {
			name, _ := data["name"].(string)
			return ssr.NewView("UsersIdPage", data,
				ssr.El("main", nil,
					ssr.El("h1", nil, ssr.Text(name)),
					toggle("follow"),
				)), nil
		},
		ServerSideProps: func(_ context.Context, sc ServerContext) (map[string]any, error) {
			return map[string]any{"name": "user " + sc.Params["id"]}, nil
		},
		Metadata: func(data map[string]any) document.Metadata {
			return document.Metadata{Title: data["name"].(string), Description: "profile"}
		},
		Script: "/__rune/users-id.js",
	}
}

func render(t *testing.T, r *Renderer, mod *Module, props Props) Result {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, props.Pathname, nil)
	return r.Render(context.Background(), mod, props, httptest.NewRecorder(), req)
}

func TestRenderPage(t *testing.T) {
	r := NewRenderer(Options{Dev: true})
	res := render(t, r, userPage(), Props{
		Params:   map[string]string{"id": "7"},
		Query:    map[string]string{"tab": "posts"},
		Pathname: "/users/7",
	})

	require.NoError(t, res.Err)
	assert.Equal(t, http.StatusOK, res.Status)

	out := res.HTML
	assert.Contains(t, out, `<div data-rune-page="UsersIdPage" id="__rune_root__">`)
	assert.Contains(t, out, `<h1>user 7</h1>`)
	assert.Contains(t, out, `data-rune-id="Toggle_1" data-rune="Toggle"`)
	assert.Contains(t, out, `<title>user 7</title>`)
	assert.Contains(t, out, `<script src="/__rune/users-id.js" type="module"></script>`)
	assert.Contains(t, out, `<script src="/__hot_reload__.js"></script>`)
	assert.NotContains(t, out, `data-rune="UsersIdPage"`)
}

func TestRenderPageDataMergesServerProps(t *testing.T) {
	mod := userPage()
	mod.ServerSideProps = func(_ context.Context, sc ServerContext) (map[string]any, error) {
		return map[string]any{"name": "ada", "pathname": "/override"}, nil
	}

	r := NewRenderer(Options{})
	res := render(t, r, mod, Props{Params: map[string]string{"id": "1"}, Pathname: "/users/1"})
	require.NoError(t, res.Err)

	_, raw, ok := findGlobal(res.HTML, document.DataGlobal)
	require.True(t, ok)
	assert.Contains(t, string(raw), `"name":"ada"`)
	assert.Contains(t, string(raw), `"pathname":"/override"`)
	assert.Contains(t, string(raw), `"params":{"id":"1"}`)
	assert.Contains(t, string(raw), `"query":{}`)
}

func TestRenderPropsSnapshot(t *testing.T) {
	r := NewRenderer(Options{})
	res := render(t, r, userPage(), Props{Params: map[string]string{"id": "2"}, Pathname: "/users/2"})
	require.NoError(t, res.Err)

	_, raw, ok := findGlobal(res.HTML, document.PropsGlobal)
	require.True(t, ok)
	assert.Contains(t, string(raw), `"Toggle_1":{"componentName":"Toggle","props":{"label":"follow"}`)
}

func TestRenderPassesNeverReuseIDs(t *testing.T) {
	r := NewRenderer(Options{})
	for i := 1; i <= 3; i++ {
		res := render(t, r, userPage(), Props{Pathname: "/users/x"})
		require.NoError(t, res.Err)
		assert.Contains(t, res.HTML, fmt.Sprintf(`data-rune-id="Toggle_%d"`, i))
	}

	// a fresh renderer starts over
	res := render(t, NewRenderer(Options{}), userPage(), Props{Pathname: "/users/x"})
	require.NoError(t, res.Err)
	assert.Contains(t, res.HTML, `data-rune-id="Toggle_1"`)
}

func TestRenderErrorDev(t *testing.T) {
	mod := userPage()
	mod.ServerSideProps = func(context.Context, ServerContext) (map[string]any, error) {
		return nil, errors.New("database <script>alert(1)</script>down")
	}

	r := NewRenderer(Options{Dev: true})
	res := render(t, r, mod, Props{Params: map[string]string{"id": "3"}, Pathname: "/users/3"})

	require.Error(t, res.Err)
	assert.Equal(t, http.StatusInternalServerError, res.Status)
	assert.Contains(t, res.HTML, "Page Rendering Error")
	assert.Contains(t, res.HTML, "database")
	assert.NotContains(t, res.HTML, "<script>alert")
	assert.Contains(t, res.HTML, `&#34;id&#34;: &#34;3&#34;`)
}

func TestRenderErrorProd(t *testing.T) {
	mod := userPage()
	mod.New = func(map[string]any) (ssr.View, error) { return nil, errors.New("secret detail") }

	r := NewRenderer(Options{})
	res := render(t, r, mod, Props{Pathname: "/users/3"})

	require.Error(t, res.Err)
	assert.Equal(t, http.StatusInternalServerError, res.Status)
	assert.Contains(t, res.HTML, "500 - Internal Server Error")
	assert.NotContains(t, res.HTML, "secret detail")
}

func TestRenderMissingConstructor(t *testing.T) {
	r := NewRenderer(Options{})
	res := render(t, r, &Module{Name: "EmptyPage"}, Props{Pathname: "/"})
	assert.Error(t, res.Err)
	assert.Equal(t, http.StatusInternalServerError, res.Status)
}

func TestRenderCustomDocument(t *testing.T) {
	mod := userPage()
	mod.Document = func(in document.Input) templ.Component {
		return ssr.El("html", nil, ssr.El("body", nil, ssr.Text(in.PageName)))
	}

	r := NewRenderer(Options{})
	res := render(t, r, mod, Props{Pathname: "/users/1"})
	require.NoError(t, res.Err)
	assert.Equal(t, "<html><body>UsersIdPage</body></html>", res.HTML)
}

func TestNotFoundPage(t *testing.T) {
	out := NotFoundPage()
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "404 - Page Not Found")
}

func findGlobal(out, global string) (string, []byte, bool) {
	marker := "window." + global + " = "
	start := strings.Index(out, marker)
	if start < 0 {
		return "", nil, false
	}
	end := strings.Index(out[start:], "</script>")
	if end < 0 {
		return "", nil, false
	}
	name, raw, ok := document.ParseAssignment(out[start : start+end])
	return name, raw, ok
}
