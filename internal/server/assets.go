package server

import (
	_ "embed"
	"strconv"
	"strings"
	"time"
)

//go:embed assets/rune-client.js
var clientScript []byte

//go:embed assets/hot-reload.js
var hotReloadTemplate string

// ClientScript returns the browser runtime served at /__rune_client__.js.
func ClientScript() []byte { return clientScript }

// HotReloadScript returns the hot reload client bound to port with the given
// reconnect policy.
func HotReloadScript(port, maxAttempts int, interval time.Duration) string {
	return strings.NewReplacer(
		"%%HOT_RELOAD_PORT%%", strconv.Itoa(port),
		"%%MAX_RECONNECT_ATTEMPTS%%", strconv.Itoa(maxAttempts),
		"%%RECONNECT_INTERVAL_MS%%", strconv.FormatInt(interval.Milliseconds(), 10),
	).Replace(hotReloadTemplate)
}
