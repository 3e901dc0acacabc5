// Package browser models the browser environment the Go client runtime runs
// against: the window with its document and globals, and the side effects
// the runtime performs (fetching, script loading, history and location
// changes, notifications) behind small interfaces.
package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Request headers set by the client runtime.
const (
	HeaderRequestedWith = "X-Requested-With"
	SPANavigation       = "spa-navigation"
	HeaderHotReload     = "X-Hot-Reload"
)

// Response is a fetched document.
type Response struct {
	Status int
	Body   string
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Fetcher performs HTTP GETs on behalf of the runtime.
type Fetcher interface {
	Fetch(ctx context.Context, url string, header http.Header) (*Response, error)
}

// ScriptLoader loads page scripts. Import is the module import path; Inject
// appends a script element and waits for it to load.
type ScriptLoader interface {
	Import(ctx context.Context, src string) error
	Inject(ctx context.Context, src string) error
}

// History is the session history.
type History interface {
	PushState(url string)
}

// Location performs full-document navigations.
type Location interface {
	Assign(url string)
	Reload()
}

// HTTPFetcher is a Fetcher backed by an http.Client.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher creates a fetcher with a request timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}}
}

// Fetch issues a GET for url with header.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, header http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}

	return &Response{Status: resp.StatusCode, Body: string(body)}, nil
}
