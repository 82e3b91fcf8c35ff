// Package routeerr provides the typed, sanitized errors reported by the
// navkit matcher, history sources and router kernel.
//
// Every error carries a stable code that maps to a registered template:
//
//	NK001  route not found
//	NK002  guard rejected navigation
//	NK003  plugin hook failed
//	NK004  guard protocol timed out
//	NK010  duplicate plugin
//	NK011  missing plugin dependency
//	NK012  kernel destroyed
//	NK013  middleware rejected navigation
//	NK020+ invalid navigation path
//
// Fields derived from external input (paths, plugin names, messages) are
// stripped of control characters and truncated before they are stored, so
// errors are safe to log verbatim.
//
// # Usage
//
//	err := routeerr.NotFound("/users/42")
//	if errors.Is(err, routeerr.ErrRouteNotFound) {
//	    fmt.Print(err.Format())
//	}
package routeerr
