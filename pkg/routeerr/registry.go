package routeerr

import "sort"

// Registered error codes.
const (
	CodeRouteNotFound     = "NK001"
	CodeGuardRejected     = "NK002"
	CodePluginError       = "NK003"
	CodeGuardTimeout      = "NK004"
	CodeDuplicatePlugin   = "NK010"
	CodeMissingDependency = "NK011"
	CodeDestroyed         = "NK012"
	CodeMiddleware        = "NK013"
	CodeEmptyPath         = "NK020"
	CodePathTooLong       = "NK021"
	CodeNullByte          = "NK022"
	CodeControlChar       = "NK023"
	CodeUnsafeScheme      = "NK024"
)

// Sentinels for errors.Is. They match any *Error carrying the same code.
var (
	ErrRouteNotFound     = &Error{Code: CodeRouteNotFound}
	ErrGuardRejected     = &Error{Code: CodeGuardRejected}
	ErrPluginError       = &Error{Code: CodePluginError}
	ErrGuardTimeout      = &Error{Code: CodeGuardTimeout}
	ErrDuplicatePlugin   = &Error{Code: CodeDuplicatePlugin}
	ErrMissingDependency = &Error{Code: CodeMissingDependency}
	ErrDestroyed         = &Error{Code: CodeDestroyed}
	ErrMiddleware        = &Error{Code: CodeMiddleware}
)

// Template defines a registered error type.
type Template struct {
	Category   Category
	Message    string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	CodeRouteNotFound: {
		Category:   CategoryRouting,
		Message:    "No route matches location",
		Suggestion: "Register a catch-all route (\"*\") to render a not-found page.",
	},
	CodeGuardRejected: {
		Category: CategoryGuard,
		Message:  "Navigation rejected by guard",
	},
	CodePluginError: {
		Category: CategoryPlugin,
		Message:  "Plugin hook failed",
	},
	CodeGuardTimeout: {
		Category:   CategoryGuard,
		Message:    "Guard protocol timed out",
		Suggestion: "Guards must honor ctx.Done() and return before the guard timeout.",
	},
	CodeDuplicatePlugin: {
		Category: CategoryPlugin,
		Message:  "Plugin already registered",
	},
	CodeMissingDependency: {
		Category:   CategoryPlugin,
		Message:    "Plugin dependency not registered",
		Suggestion: "Register dependencies before the plugins that declare them.",
	},
	CodeDestroyed: {
		Category: CategoryKernel,
		Message:  "Router kernel destroyed",
	},
	CodeMiddleware: {
		Category: CategoryKernel,
		Message:  "Navigation rejected by middleware",
	},
	CodeEmptyPath: {
		Category: CategoryHistory,
		Message:  "Navigation path is empty",
	},
	CodePathTooLong: {
		Category: CategoryHistory,
		Message:  "Navigation path exceeds maximum length",
	},
	CodeNullByte: {
		Category: CategoryHistory,
		Message:  "Navigation path contains a null byte",
	},
	CodeControlChar: {
		Category: CategoryHistory,
		Message:  "Navigation path contains a control character",
	},
	CodeUnsafeScheme: {
		Category:   CategoryHistory,
		Message:    "Navigation path uses a disallowed scheme",
		Suggestion: "Navigate with a relative path such as \"/users/42\".",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}

// Codes returns every registered code in ascending order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
