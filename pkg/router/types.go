package router

import "maps"

// RouteDefinition describes one routable pattern.
type RouteDefinition struct {
	// Path is the route pattern (e.g., "/projects/:id").
	Path string

	// Component is an opaque, lazily resolved reference handed to the
	// rendering layer. The router never inspects it.
	Component any

	// Children are nested routes whose patterns are relative to Path.
	Children []RouteDefinition

	// Meta is arbitrary route metadata copied onto every navigation that
	// matches this route.
	Meta map[string]any
}

// RouteMatch pairs a matched route with its decoded parameters.
type RouteMatch struct {
	// Route is the matched route definition.
	Route *RouteDefinition

	// Params are the extracted route parameters.
	Params map[string]string
}

// Typed decodes the match parameters into a struct with `param` tags.
func (m *RouteMatch) Typed(target any) error {
	return NewParamParser().Parse(m.Params, target)
}

// clone copies the match so callers can mutate Params freely.
func (m *RouteMatch) clone() *RouteMatch {
	if m == nil {
		return nil
	}
	return &RouteMatch{Route: m.Route, Params: maps.Clone(m.Params)}
}
