package kernel

import (
	"maps"

	"github.com/google/uuid"

	"github.com/vango-dev/navkit/pkg/history"
	"github.com/vango-dev/navkit/pkg/routepath"
	"github.com/vango-dev/navkit/pkg/router"
)

// Route is the kernel's navigation state. A committed Route is never
// modified; each navigation produces a new one.
type Route struct {
	// Path is the matched pattern (e.g., "/users/:id").
	Path string

	// Pathname is the concrete location pathname, without the mount base.
	Pathname string

	// Params are the decoded pattern parameters.
	Params map[string]string

	// Query is the parsed query string.
	Query routepath.Query

	// Hash is the fragment without "#".
	Hash string

	// State is the payload carried by the navigation.
	State any

	// Meta is copied from the matched definition.
	Meta map[string]any

	// Definition is the matched route definition.
	Definition *router.RouteDefinition

	// NavigationID identifies the navigation that produced this Route.
	NavigationID string
}

func newRoute(m *router.RouteMatch, loc history.Location) *Route {
	return &Route{
		Path:         m.Route.Path,
		Pathname:     loc.Pathname,
		Params:       m.Params,
		Query:        routepath.ParseSearch(loc.Search),
		Hash:         loc.Hash,
		State:        loc.State,
		Meta:         maps.Clone(m.Route.Meta),
		Definition:   m.Route,
		NavigationID: uuid.NewString(),
	}
}

// Param returns a route parameter, or "" if absent.
func (r *Route) Param(name string) string {
	if r == nil {
		return ""
	}
	return r.Params[name]
}

// Component returns the matched definition's component reference.
func (r *Route) Component() any {
	if r == nil || r.Definition == nil {
		return nil
	}
	return r.Definition.Component
}

// URL reassembles the route's location, without the mount base.
func (r *Route) URL() string {
	return routepath.Build(r.Pathname, routepath.StringifySearch(r.Query), r.Hash)
}

// Typed decodes Params into a struct with `param` tags.
func (r *Route) Typed(target any) error {
	return router.NewParamParser().Parse(r.Params, target)
}
