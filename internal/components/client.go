package components

import _ "embed"

//go:embed components.js
var clientScript string

// ClientScript returns the browser constructors of every component. Pages
// that render components emit it as their inline client script.
func ClientScript() string { return clientScript }
