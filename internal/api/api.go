// Package api dispatches requests to API route modules by method and
// provides the JSON helpers handlers respond with.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/conneroisu/rune/internal/logging"
)

// HandlerFunc handles one API request. A returned error becomes a 500
// response when nothing has been written yet.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Module is one API route. Default serves every method without a handler.
type Module struct {
	GET     HandlerFunc
	POST    HandlerFunc
	PUT     HandlerFunc
	DELETE  HandlerFunc
	PATCH   HandlerFunc
	OPTIONS HandlerFunc
	HEAD    HandlerFunc
	Default HandlerFunc
}

// Handler returns the handler for method, falling back to Default.
func (m *Module) Handler(method string) HandlerFunc {
	var h HandlerFunc
	switch method {
	case http.MethodGet:
		h = m.GET
	case http.MethodPost:
		h = m.POST
	case http.MethodPut:
		h = m.PUT
	case http.MethodDelete:
		h = m.DELETE
	case http.MethodPatch:
		h = m.PATCH
	case http.MethodOptions:
		h = m.OPTIONS
	case http.MethodHead:
		h = m.HEAD
	}
	if h == nil {
		h = m.Default
	}

	return h
}

// Methods lists the methods with a dedicated handler.
func (m *Module) Methods() []string {
	var out []string
	for _, mh := range []struct {
		name string
		h    HandlerFunc
	}{
		{http.MethodGet, m.GET},
		{http.MethodPost, m.POST},
		{http.MethodPut, m.PUT},
		{http.MethodDelete, m.DELETE},
		{http.MethodPatch, m.PATCH},
		{http.MethodOptions, m.OPTIONS},
		{http.MethodHead, m.HEAD},
	} {
		if mh.h != nil {
			out = append(out, mh.name)
		}
	}

	return out
}

// Serve runs the module for one request.
func Serve(m *Module, logger logging.Logger, w http.ResponseWriter, r *http.Request) {
	if logger == nil {
		logger = logging.Discard()
	}

	h := m.Handler(r.Method)
	if h == nil {
		_ = JSON(w, http.StatusMethodNotAllowed, map[string]string{
			"error":   "Method Not Allowed",
			"message": fmt.Sprintf("%s method is not supported for this endpoint", r.Method),
		})
		return
	}

	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
	if err := h(ww, r); err != nil {
		logger.Error(r.Context(), err, "API handler error", "method", r.Method, "path", r.URL.Path)
		if ww.Status() == 0 && ww.BytesWritten() == 0 {
			_ = JSON(ww, http.StatusInternalServerError, map[string]string{
				"error":   "Internal Server Error",
				"message": err.Error(),
			})
		}
	}
}

type paramsKey struct{}

// WithParams attaches route params to ctx.
func WithParams(ctx context.Context, params map[string]string) context.Context {
	return context.WithValue(ctx, paramsKey{}, params)
}

// Params returns the route params of r.
func Params(r *http.Request) map[string]string {
	params, _ := r.Context().Value(paramsKey{}).(map[string]string)
	if params == nil {
		return map[string]string{}
	}

	return params
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(body)

	return err
}

// Error writes {"error": message} with status.
func Error(w http.ResponseWriter, status int, message string) error {
	return JSON(w, status, map[string]string{"error": message})
}

// Success writes {"success": true, "message": message, "data": data}.
func Success(w http.ResponseWriter, data any, message string) error {
	body := map[string]any{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}

	return JSON(w, http.StatusOK, body)
}

// ErrInvalidJSON is returned by ParseBody for malformed bodies.
var ErrInvalidJSON = errors.New("Invalid JSON") //nolint:staticcheck // shown to API clients verbatim

// ParseBody decodes the JSON request body into v.
func ParseBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	return nil
}
