package routeerr

import (
	"fmt"
	"strings"
	"time"
)

// Category groups error codes by the subsystem that raises them.
type Category string

const (
	CategoryRouting Category = "routing"
	CategoryGuard   Category = "guard"
	CategoryPlugin  Category = "plugin"
	CategoryHistory Category = "history"
	CategoryKernel  Category = "kernel"
)

// Error is a structured routing error.
type Error struct {
	// Code is the registered error identifier (e.g., "NK001").
	Code string

	// Category is the subsystem that raised the error.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer sanitized explanation, often the text of a
	// wrapped cause.
	Detail string

	// Path is the sanitized location path involved, if any.
	Path string

	// Plugin is the sanitized name of the plugin involved, if any.
	Plugin string

	// Route is the candidate route a guard denied. Its concrete type is
	// owned by the kernel.
	Route any

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Code != "" {
		b.WriteString(e.Code)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Path != "" {
		fmt.Fprintf(&b, " (path %q)", e.Path)
	}
	if e.Plugin != "" {
		fmt.Fprintf(&b, " (plugin %q)", e.Plugin)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is an *Error with the same code. This lets the
// package sentinels match any error built from the same template.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Code == "" {
		return false
	}
	return e.Code == t.Code
}

// WithPath sets the sanitized path.
func (e *Error) WithPath(path string) *Error {
	e.Path = Sanitize(path, MaxPathLength)
	return e
}

// WithPlugin sets the sanitized plugin name.
func (e *Error) WithPlugin(name string) *Error {
	e.Plugin = Sanitize(name, MaxNameLength)
	return e
}

// WithDetail sets the sanitized detail text.
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = Sanitize(detail, MaxMessageLength)
	return e
}

// WithRoute attaches the route a guard denied.
func (e *Error) WithRoute(route any) *Error {
	e.Route = route
	return e
}

// Wrap wraps another error and records its sanitized text as the detail.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	if err != nil && e.Detail == "" {
		e.Detail = Sanitize(err.Error(), MaxMessageLength)
	}
	return e
}

// New creates an Error from a registered code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &Error{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Suggestion: template.Suggestion,
	}
}

// FromError returns err as an *Error, wrapping it in the given code when it
// is not already one.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	if re, ok := err.(*Error); ok {
		return re
	}
	return New(code).Wrap(err)
}

// NotFound reports that no pattern matched path.
func NotFound(path string) *Error {
	return New(CodeRouteNotFound).WithPath(path)
}

// GuardRejected reports that a guard denied navigation to route. plugin is
// empty when the rejecting guard was an event listener.
func GuardRejected(route any, path, plugin string) *Error {
	return New(CodeGuardRejected).WithRoute(route).WithPath(path).WithPlugin(plugin)
}

// PluginFailed reports that a plugin hook returned an error or panicked.
func PluginFailed(plugin, hook string, cause error) *Error {
	e := New(CodePluginError).WithPlugin(plugin).Wrap(cause)
	if hook != "" {
		e.Message = e.Message + " in " + Sanitize(hook, MaxNameLength)
	}
	return e
}

// GuardTimeout reports that the guard protocol did not settle within d.
func GuardTimeout(route any, path string, d time.Duration) *Error {
	return New(CodeGuardTimeout).WithRoute(route).WithPath(path).
		WithDetail("deadline " + d.String())
}

// DuplicatePlugin reports a second registration under the same name.
func DuplicatePlugin(name string) *Error {
	return New(CodeDuplicatePlugin).WithPlugin(name)
}

// MissingDependency reports that plugin declares dep, which is not registered.
func MissingDependency(plugin, dep string) *Error {
	return New(CodeMissingDependency).WithPlugin(plugin).
		WithDetail("requires " + dep)
}

// InvalidPath reports a navigation path rejected by validation.
func InvalidPath(code, path string) *Error {
	return New(code).WithPath(path)
}
