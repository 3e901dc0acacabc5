//go:build e2e

package demo

import (
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/rune/internal/config"
)

// browserPage opens path of a fresh demo server in headless Chromium.
func browserPage(t *testing.T, path string) *rod.Page {
	t.Helper()

	wsURL, err := launcher.New().Headless(true).Launch()
	if err != nil {
		t.Skipf("chromium unavailable: %v", err)
	}

	b := rod.New().ControlURL(wsURL)
	require.NoError(t, b.Connect())
	t.Cleanup(func() { _ = b.Close() })

	ts := newServerWith(t, func(cfg *config.Config) {
		cfg.Server.Environment = config.EnvProduction
		cfg.Dev.HotReload = false
	})

	page := b.MustPage().Timeout(10 * time.Second)
	require.NoError(t, page.Navigate(ts.URL+path))
	require.NoError(t, page.WaitLoad())

	return page
}

func TestBrowserHydratesComponents(t *testing.T) {
	page := browserPage(t, "/")

	toggle := page.MustElement(`[data-scope="toggle"][data-part="root"]`)
	assert.Equal(t, "unchecked", *toggle.MustAttribute("data-state"))

	toggle.MustClick()
	page.MustWait(`() => document.querySelector('[data-scope="toggle"][data-part="root"]').dataset.state === "checked"`)
	assert.Equal(t, "true", *toggle.MustAttribute("aria-checked"))

	content := page.MustElement(`[data-scope="collapsible"][data-part="content"]`)
	assert.NotNil(t, content.MustAttribute("hidden"))

	page.MustElement(`[data-scope="collapsible"][data-part="trigger"]`).MustClick()
	page.MustWait(`() => !document.querySelector('[data-scope="collapsible"][data-part="content"]').hidden`)
}

func TestBrowserConstructorsStayOffWindow(t *testing.T) {
	page := browserPage(t, "/")

	assert.True(t, page.MustEval(`() => typeof window.__RUNE__.lookup("Toggle") === "function"`).Bool())
	assert.True(t, page.MustEval(`() => window.Toggle === undefined && window.Collapsible === undefined`).Bool())

	page.MustEval(`() => { function Late() {} window.__RUNE_QUEUE__.push(["Late", Late]) }`)
	assert.True(t, page.MustEval(`() => typeof window.__RUNE__.lookup("Late") === "function"`).Bool())
}

func TestBrowserNavigatesWithoutReload(t *testing.T) {
	page := browserPage(t, "/")

	page.MustEval(`() => { window.__marker = "kept" }`)
	page.MustElement(`a[href="/about"]`).MustClick()
	page.MustWait(`() => location.pathname === "/about"`)
	page.MustWait(`() => document.title.indexOf("About") !== -1`)

	assert.Equal(t, "kept", page.MustEval(`() => window.__marker`).Str())
	assert.Equal(t, "AboutPage", page.MustEval(`() => window.__RUNE_DATA__ && document.getElementById("__rune_root__").dataset.runePage`).Str())
}
