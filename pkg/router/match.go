package router

import (
	"cmp"
	"slices"

	"github.com/vango-dev/navkit/pkg/routepath"
)

// rankedRoute is a route paired with its compiled pattern. cp is nil for
// patterns that failed to compile; those never match.
type rankedRoute struct {
	def *RouteDefinition
	cp  *CompiledPattern
}

func (r rankedRoute) score() int {
	if r.cp == nil {
		return -1
	}
	return r.cp.Score
}

// rank compiles and stably sorts routes by descending score.
func rank(routes []*RouteDefinition) []rankedRoute {
	ranked := make([]rankedRoute, 0, len(routes))
	for _, def := range routes {
		if def == nil {
			continue
		}
		cp, _ := Compile(def.Path)
		ranked = append(ranked, rankedRoute{def: def, cp: cp})
	}
	slices.SortStableFunc(ranked, func(a, b rankedRoute) int {
		return cmp.Compare(b.score(), a.score())
	})
	return ranked
}

// Rank returns routes sorted by descending specificity. Routes with equal
// scores keep their relative order.
func Rank(routes []*RouteDefinition) []*RouteDefinition {
	ranked := rank(routes)
	out := make([]*RouteDefinition, len(ranked))
	for i, r := range ranked {
		out[i] = r.def
	}
	return out
}

// Validate compiles every route pattern and returns the first error.
func Validate(routes []*RouteDefinition) error {
	for _, def := range routes {
		if def == nil {
			continue
		}
		if _, err := Compile(def.Path); err != nil {
			return err
		}
	}
	return nil
}

// Match returns the best match for url among routes, or nil. Only the
// pathname part of url is considered.
func Match(url string, routes []*RouteDefinition) *RouteMatch {
	return matchRanked(url, rank(routes))
}

func matchRanked(url string, ranked []rankedRoute) *RouteMatch {
	pathname, _, _ := routepath.Split(url)
	pathname = routepath.Normalize(pathname)

	for _, r := range ranked {
		if r.cp == nil {
			continue
		}
		loc := r.cp.Regexp.FindStringSubmatchIndex(pathname)
		if loc == nil {
			continue
		}
		return &RouteMatch{
			Route:  r.def,
			Params: r.cp.zip(pathname, loc),
		}
	}
	return nil
}
