package navigation

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/conneroisu/rune/internal/browser"
	"github.com/conneroisu/rune/internal/document"
	"github.com/conneroisu/rune/internal/dom"
	runeerrors "github.com/conneroisu/rune/internal/errors"
	"github.com/conneroisu/rune/internal/hydrator"
	"github.com/conneroisu/rune/internal/registry"
)

type counter struct{ el *html.Node }

func (c *counter) HydrateFromSSR(el *html.Node) error {
	c.el = el
	return nil
}

func counterCtor() registry.Constructor {
	return registry.ConstructorFunc(func(map[string]any) (any, error) { return &counter{}, nil })
}

func assemble(t *testing.T, in document.Input) string {
	t.Helper()
	out, err := document.Assemble(context.Background(), in)
	require.NoError(t, err)
	return out
}

func homeDoc(t *testing.T) string {
	return assemble(t, document.Input{
		Metadata:   document.Metadata{Title: "Home", Description: "home page", OGImage: "/home.png"},
		Markup:     `<h1>home</h1>`,
		PageData:   map[string]any{"pathname": "/"},
		PageName:   "HomePage",
		PageScript: "/__rune/home.js",
	})
}

func aboutDoc(t *testing.T) string {
	return assemble(t, document.Input{
		Metadata: document.Metadata{Title: "About", Description: "about us"},
		Markup:   `<h1>about</h1><button data-rune-id="Counter_1" data-rune="Counter">0</button>`,
		PageData: map[string]any{"pathname": "/about", "team": 3},
		Props: registry.Snapshot{
			"Counter_1": {ComponentName: "Counter", Props: map[string]any{"start": float64(0)}},
		},
		PageName:   "AboutPage",
		PageScript: "/__rune/about.js",
	})
}

type fixture struct {
	window *browser.Window
	tab    *browser.Tab
	nav    *Navigator
	table  *registry.Table
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	table := registry.NewTable()
	tab := browser.NewTab(table)

	w, err := browser.NewWindow("http://localhost:3000/", homeDoc(t),
		browser.WithConstructors(table), browser.WithNotifier(tab))
	require.NoError(t, err)

	h := hydrator.New(hydrator.Options{Constructors: table, Props: w.Props(), PageData: w.Data})
	nav := New(Options{
		Window:   w,
		Hydrator: h,
		Fetcher:  tab,
		Scripts:  tab,
		History:  tab,
		Location: tab,
	})

	return &fixture{window: w, tab: tab, nav: nav, table: table}
}

func (f *fixture) rootHTML() string {
	var out string
	f.window.Do(func() { out = dom.InnerHTML(f.window.Root()) })
	return out
}

func TestNavigateSwapsAndHydrates(t *testing.T) {
	f := newFixture(t)
	f.tab.Serve("/about", http.StatusOK, aboutDoc(t))

	var rootAtLoad string
	f.tab.AddModule("/__rune/about.js", func(table *registry.Table) {
		rootAtLoad = f.rootHTML()
		table.Register("Counter", counterCtor())
	})

	res, err := f.nav.Navigate(context.Background(), "/about", true)
	require.NoError(t, err)
	assert.Equal(t, Swapped, res)

	assert.Equal(t, "<h1>home</h1>", rootAtLoad, "scripts load before the swap")
	assert.Equal(t, []string{"fetch:/about", "import:/__rune/about.js", "push:/about"}, f.tab.Events())
	assert.Equal(t, browser.SPANavigation, f.tab.Headers()[0].Get(browser.HeaderRequestedWith))

	assert.Contains(t, f.rootHTML(), "<h1>about</h1>")
	assert.Equal(t, "/about", f.nav.Pathname())
	assert.Equal(t, "http://localhost:3000/about", f.window.Href())
	assert.Equal(t, float64(3), f.window.Data()["team"])
	_, ok := f.window.Props().Get("Counter_1")
	assert.True(t, ok)

	doc := f.window.Document()
	assert.Equal(t, "About", dom.Title(doc))
	desc := dom.QueryOne(doc, `meta[name=description]`)
	require.NotNil(t, desc)
	content, _ := dom.Attr(desc, "content")
	assert.Equal(t, "about us", content)
	assert.Nil(t, dom.QueryOne(doc, `meta[property=og:image]`), "meta absent from the new page is removed")

	page, _ := dom.Attr(f.window.Root(), document.AttrPage)
	assert.Equal(t, "AboutPage", page)

	button := dom.QueryOne(doc, "button")
	state, _ := dom.Attr(button, hydrator.AttrHydrated)
	assert.Equal(t, hydrator.StateHydrated, state)
	assert.Nil(t, dom.FindByID(doc, LoadingID))
	assert.False(t, f.nav.Navigating())
}

func TestNavigateFallsBackOnBadStatus(t *testing.T) {
	f := newFixture(t)
	f.tab.Serve("/broken", http.StatusInternalServerError, "<html><body>oops</body></html>")

	res, err := f.nav.Navigate(context.Background(), "/broken", true)
	assert.Equal(t, FellBack, res)
	assert.True(t, runeerrors.HasCode(err, runeerrors.ErrCodeNavStatus))

	assert.Equal(t, []string{"http://localhost:3000/broken"}, f.tab.Assigned())
	assert.Empty(t, f.tab.Pushed())
	assert.Equal(t, "<h1>home</h1>", f.rootHTML(), "no partial DOM mutation")
	assert.Equal(t, "/", f.nav.Pathname())
}

func TestNavigateFallsBackOnFetchError(t *testing.T) {
	f := newFixture(t)
	f.tab.FailFetch(errors.New("connection refused"))

	res, err := f.nav.Navigate(context.Background(), "/about", true)
	assert.Equal(t, FellBack, res)
	assert.True(t, runeerrors.HasCode(err, runeerrors.ErrCodeNavFetch))
	assert.Equal(t, []string{"http://localhost:3000/about"}, f.tab.Assigned())
}

func TestNavigateFallsBackWithoutRoot(t *testing.T) {
	f := newFixture(t)
	f.tab.Serve("/plain", http.StatusOK, `<html><body><script type="module" src="/__rune/plain.js"></script></body></html>`)

	res, err := f.nav.Navigate(context.Background(), "/plain", true)
	assert.Equal(t, FellBack, res)
	assert.True(t, runeerrors.HasCode(err, runeerrors.ErrCodeRootMissing))
	assert.Equal(t, []string{"fetch:/plain", "assign:/plain"}, f.tab.Events(), "no scripts are loaded")
}

func TestNavigateFallsBackOnMalformedGlobals(t *testing.T) {
	f := newFixture(t)
	f.tab.Serve("/bad", http.StatusOK, `<html><body><div id="__rune_root__">new</div>
<script>window.__RUNE_DATA__ = {broken</script></body></html>`)

	res, err := f.nav.Navigate(context.Background(), "/bad", true)
	assert.Equal(t, FellBack, res)
	assert.True(t, runeerrors.HasCode(err, runeerrors.ErrCodeMalformedPayload))
	assert.Equal(t, "<h1>home</h1>", f.rootHTML())
	assert.Equal(t, "/", f.window.Data()["pathname"])
}

func TestNavigateSamePageIsNoop(t *testing.T) {
	f := newFixture(t)
	f.tab.Serve("/?tab=2", http.StatusOK, homeDoc(t))

	res, err := f.nav.Navigate(context.Background(), "/", true)
	require.NoError(t, err)
	assert.Equal(t, Unchanged, res)
	assert.Empty(t, f.tab.Events())

	res, err = f.nav.Navigate(context.Background(), "/?tab=2", true)
	require.NoError(t, err)
	assert.Equal(t, Swapped, res, "a query string forces the fetch")
}

type blockingFetcher struct {
	browser.Fetcher
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingFetcher) Fetch(ctx context.Context, u string, h http.Header) (*browser.Response, error) {
	b.once.Do(func() {
		close(b.entered)
		<-b.release
	})
	return b.Fetcher.Fetch(ctx, u, h)
}

func TestNavigateRejectsReentrantCalls(t *testing.T) {
	f := newFixture(t)
	f.tab.Serve("/about", http.StatusOK, aboutDoc(t))
	f.tab.AddModule("/__rune/about.js", func(table *registry.Table) { table.Register("Counter", counterCtor()) })

	bf := &blockingFetcher{Fetcher: f.tab, entered: make(chan struct{}), release: make(chan struct{})}
	f.nav.opts.Fetcher = bf

	done := make(chan Result, 1)
	go func() {
		res, _ := f.nav.Navigate(context.Background(), "/about", true)
		done <- res
	}()

	<-bf.entered
	res, err := f.nav.Navigate(context.Background(), "/contact", true)
	require.NoError(t, err)
	assert.Equal(t, Busy, res)

	close(bf.release)
	assert.Equal(t, Swapped, <-done)
	assert.Equal(t, []string{"http://localhost:3000/about"}, f.tab.Pushed())
}

func TestScriptsLoadOnce(t *testing.T) {
	f := newFixture(t)
	f.tab.Serve("/about", http.StatusOK, aboutDoc(t))
	f.tab.Serve("/about?again=1", http.StatusOK, aboutDoc(t))
	f.tab.Serve("/home2", http.StatusOK, homeDoc(t))
	loads := 0
	f.tab.AddModule("/__rune/about.js", func(table *registry.Table) {
		loads++
		table.Register("Counter", counterCtor())
	})

	ctx := context.Background()
	_, err := f.nav.Navigate(ctx, "/about", true)
	require.NoError(t, err)
	_, err = f.nav.Navigate(ctx, "/about?again=1", true)
	require.NoError(t, err)
	_, err = f.nav.Navigate(ctx, "/home2", true)
	require.NoError(t, err, "home.js is already referenced by the current document")

	assert.Equal(t, 1, loads)
}

func TestScriptImportFallsBackToInject(t *testing.T) {
	f := newFixture(t)
	f.tab.Serve("/about", http.StatusOK, aboutDoc(t))
	f.tab.AddModule("/__rune/about.js", func(table *registry.Table) { table.Register("Counter", counterCtor()) })
	f.tab.FailImport("/__rune/about.js")

	res, err := f.nav.Navigate(context.Background(), "/about", true)
	require.NoError(t, err)
	assert.Equal(t, Swapped, res)
	assert.Equal(t, []string{
		"fetch:/about",
		"import:/__rune/about.js",
		"inject:/__rune/about.js",
		"push:/about",
	}, f.tab.Events())

	injected := dom.Query(dom.Head(f.window.Document()), "script[src=/__rune/about.js]")
	assert.Len(t, injected, 1)
}

func TestScriptLoadFailureFallsBack(t *testing.T) {
	f := newFixture(t)
	f.tab.Serve("/about", http.StatusOK, aboutDoc(t))
	f.tab.FailImport("/__rune/about.js")
	f.tab.FailInject("/__rune/about.js")

	res, err := f.nav.Navigate(context.Background(), "/about", true)
	assert.Equal(t, FellBack, res)
	assert.True(t, runeerrors.HasCode(err, runeerrors.ErrCodeScriptLoad))
	assert.Equal(t, "<h1>home</h1>", f.rootHTML())
	assert.Equal(t, []string{"http://localhost:3000/about"}, f.tab.Assigned())
}

func TestSettleDelayPrecedesHydration(t *testing.T) {
	f := newFixture(t)
	f.nav.opts.SettleDelay = 20 * time.Millisecond
	f.tab.Serve("/about", http.StatusOK, aboutDoc(t))

	// Registration happens after the swap, inside the settle window.
	f.tab.AddModule("/__rune/about.js", func(table *registry.Table) {
		go func() {
			time.Sleep(5 * time.Millisecond)
			table.Register("Counter", counterCtor())
		}()
	})

	_, err := f.nav.Navigate(context.Background(), "/about", true)
	require.NoError(t, err)

	state, _ := dom.Attr(dom.QueryOne(f.window.Document(), "button"), hydrator.AttrHydrated)
	assert.Equal(t, hydrator.StateHydrated, state)
}

func TestPopStateDoesNotPush(t *testing.T) {
	f := newFixture(t)
	f.tab.Serve("/about", http.StatusOK, aboutDoc(t))
	f.tab.AddModule("/__rune/about.js", func(table *registry.Table) { table.Register("Counter", counterCtor()) })

	res, err := f.nav.HandlePopState(context.Background(), "http://localhost:3000/about")
	require.NoError(t, err)
	assert.Equal(t, Swapped, res)
	assert.Empty(t, f.tab.Pushed())
	assert.Equal(t, "/about", f.nav.Pathname())
}

func TestIntercepts(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		anchor string
		want   bool
	}{
		{"relative", `<a href="/about"><span id="t">x</span></a>`, true},
		{"absolute same origin", `<a href="http://localhost:3000/about"><span id="t">x</span></a>`, true},
		{"other origin", `<a href="https://example.com/"><span id="t">x</span></a>`, false},
		{"other port", `<a href="http://localhost:4000/"><span id="t">x</span></a>`, false},
		{"download", `<a href="/file.zip" download><span id="t">x</span></a>`, false},
		{"target", `<a href="/about" target="_blank"><span id="t">x</span></a>`, false},
		{"opt out", `<a href="/about" data-no-spa><span id="t">x</span></a>`, false},
		{"no anchor", `<div><span id="t">x</span></div>`, false},
		{"no href", `<a><span id="t">x</span></a>`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := dom.ParseString("<html><body>" + tt.anchor + "</body></html>")
			require.NoError(t, err)
			_, got := f.nav.Intercepts(dom.FindByID(doc, "t"))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandleClick(t *testing.T) {
	f := newFixture(t)
	f.tab.Serve("/about", http.StatusOK, aboutDoc(t))
	f.tab.AddModule("/__rune/about.js", func(table *registry.Table) { table.Register("Counter", counterCtor()) })

	var link *html.Node
	f.window.Do(func() {
		require.NoError(t, dom.SetInnerHTML(f.window.Root(), `<a href="/about">about</a>`))
		link = dom.QueryOne(f.window.Root(), "a")
	})

	assert.True(t, f.nav.HandleClick(context.Background(), link))
	assert.Equal(t, "/about", f.nav.Pathname())
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	updated := strings.Replace(homeDoc(t), "<h1>home</h1>", "<h1>home v2</h1>", 1)
	f.tab.Serve("/", http.StatusOK, updated)

	require.NoError(t, f.nav.Refresh(context.Background()))
	assert.Equal(t, "<h1>home v2</h1>", f.rootHTML())
	assert.Empty(t, f.tab.Pushed())
	assert.Equal(t, "true", f.tab.Headers()[0].Get(browser.HeaderHotReload))
}

func TestRefreshFailureReloads(t *testing.T) {
	f := newFixture(t)
	f.tab.Serve("/", http.StatusOK, "<html><body>no root</body></html>")

	err := f.nav.Refresh(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, f.tab.Reloads())
	assert.Equal(t, "<h1>home</h1>", f.rootHTML())
}
