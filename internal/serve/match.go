package serve

import (
	"github.com/vango-dev/navkit/pkg/kernel"
	"github.com/vango-dev/navkit/pkg/routepath"
	"github.com/vango-dev/navkit/pkg/router"
)

// MatchResult is the JSON description of a resolved URL.
type MatchResult struct {
	Pattern   string            `json:"pattern"`
	Pathname  string            `json:"pathname"`
	Params    map[string]string `json:"params"`
	Query     routepath.Query   `json:"query,omitempty"`
	Hash      string            `json:"hash,omitempty"`
	Meta      map[string]any    `json:"meta,omitempty"`
	Component any               `json:"component,omitempty"`
}

// FromRoute describes a committed kernel route.
func FromRoute(r *kernel.Route) MatchResult {
	return MatchResult{
		Pattern:   r.Path,
		Pathname:  r.Pathname,
		Params:    nonNil(r.Params),
		Query:     r.Query,
		Hash:      r.Hash,
		Meta:      r.Meta,
		Component: r.Component(),
	}
}

// FromMatch describes a router match for url, whose base has already been
// stripped.
func FromMatch(m *router.RouteMatch, url string) MatchResult {
	pathname, search, hash := routepath.Split(url)
	return MatchResult{
		Pattern:   m.Route.Path,
		Pathname:  routepath.Normalize(pathname),
		Params:    nonNil(m.Params),
		Query:     routepath.ParseSearch(search),
		Hash:      hash,
		Meta:      m.Route.Meta,
		Component: m.Route.Component,
	}
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
