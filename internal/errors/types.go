// Package errors provides the structured error type shared by the server
// render path, the client runtime and the hot reload channel.
//
// Every error carries a Type drawn from the failure taxonomy of the
// framework (serialization, hydration, navigation, hot reload, network) and
// a Recoverable flag. Recoverable errors are handled locally by degrading
// (name-only annotation, skipped node, full-page fallback); the flag lets
// callers decide whether to log and continue or to abort.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeSerialization ErrorType = "serialization"
	ErrorTypeHydration     ErrorType = "hydration"
	ErrorTypeNavigation    ErrorType = "navigation"
	ErrorTypeHotReload     ErrorType = "hotreload"
	ErrorTypeNetwork       ErrorType = "network"
	ErrorTypeRouting       ErrorType = "routing"
	ErrorTypeRender        ErrorType = "render"
	ErrorTypeConfig        ErrorType = "config"
	ErrorTypeInternal      ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodePropsSerialize     = "ERR_PROPS_SERIALIZE"
	ErrCodeConstructorMissing = "ERR_CONSTRUCTOR_MISSING"
	ErrCodeHydrateFailed      = "ERR_HYDRATE_FAILED"
	ErrCodeRootMissing        = "ERR_ROOT_MISSING"
	ErrCodeNavStatus          = "ERR_NAV_STATUS"
	ErrCodeNavFetch           = "ERR_NAV_FETCH"
	ErrCodeScriptLoad         = "ERR_SCRIPT_LOAD"
	ErrCodeMalformedPayload   = "ERR_MALFORMED_PAYLOAD"
	ErrCodeReloadGaveUp       = "ERR_RELOAD_GAVE_UP"
	ErrCodeNoModule           = "ERR_NO_MODULE"
	ErrCodeRenderFailed       = "ERR_RENDER_FAILED"
	ErrCodeConfigInvalid      = "ERR_CONFIG_INVALID"
	ErrCodeInternalError      = "ERR_INTERNAL"
)

// RuneError is a structured error type with context.
type RuneError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	Route       string
	Recoverable bool
}

// Error implements the error interface.
func (e *RuneError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	if e.Route != "" {
		parts = append(parts, "route:"+e.Route)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *RuneError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *RuneError) Is(target error) bool {
	var t *RuneError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *RuneError) WithContext(key string, value interface{}) *RuneError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithComponent adds component context.
func (e *RuneError) WithComponent(component string) *RuneError {
	e.Component = component

	return e
}

// WithRoute adds the route or URL the error happened on.
func (e *RuneError) WithRoute(route string) *RuneError {
	e.Route = route

	return e
}

// New creates an error of the given type. Serialization, hydration,
// navigation and hot reload failures are recoverable by default.
func New(t ErrorType, code, message string) *RuneError {
	return &RuneError{
		Type:        t,
		Code:        code,
		Message:     message,
		Recoverable: recoverableByDefault(t),
	}
}

// Wrap creates an error of the given type around cause.
func Wrap(cause error, t ErrorType, code, message string) *RuneError {
	e := New(t, code, message)
	e.Cause = cause

	return e
}

func recoverableByDefault(t ErrorType) bool {
	switch t {
	case ErrorTypeSerialization, ErrorTypeHydration, ErrorTypeNavigation,
		ErrorTypeHotReload, ErrorTypeNetwork:
		return true
	default:
		return false
	}
}

// NewSerializationError creates a props serialization error.
func NewSerializationError(component string, cause error) *RuneError {
	return Wrap(cause, ErrorTypeSerialization, ErrCodePropsSerialize,
		"props are not serializable").WithComponent(component)
}

// NewHydrationError creates a hydration lookup or attach error.
func NewHydrationError(code, component, message string, cause error) *RuneError {
	return Wrap(cause, ErrorTypeHydration, code, message).WithComponent(component)
}

// NewNavigationError creates a client navigation error.
func NewNavigationError(code, url, message string, cause error) *RuneError {
	return Wrap(cause, ErrorTypeNavigation, code, message).WithRoute(url)
}

// NewHotReloadError creates a hot reload processing error.
func NewHotReloadError(code, message string, cause error) *RuneError {
	return Wrap(cause, ErrorTypeHotReload, code, message)
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *RuneError {
	return New(ErrorTypeConfig, code, message)
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var re *RuneError
	if errors.As(err, &re) {
		return re.Recoverable
	}

	return false
}

// IsType reports whether err is a RuneError of type t.
func IsType(err error, t ErrorType) bool {
	var re *RuneError
	if errors.As(err, &re) {
		return re.Type == t
	}

	return false
}

// HasCode reports whether err is a RuneError carrying code.
func HasCode(err error, code string) bool {
	var re *RuneError
	if errors.As(err, &re) {
		return re.Code == code
	}

	return false
}

// ErrorHandler provides centralized error handling.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs err at warn level when it is recoverable and at error level
// otherwise.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var re *RuneError
	if !errors.As(err, &re) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	fields := []interface{}{"type", re.Type, "code", re.Code}
	if re.Component != "" {
		fields = append(fields, "view", re.Component)
	}
	if re.Route != "" {
		fields = append(fields, "route", re.Route)
	}

	if re.Recoverable {
		h.logger.Warn(ctx, err, "Recovered from error", fields...)
		return
	}
	h.logger.Error(ctx, err, "Error occurred", fields...)
}
