package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defs(paths ...string) []*RouteDefinition {
	out := make([]*RouteDefinition, len(paths))
	for i, p := range paths {
		out[i] = &RouteDefinition{Path: p, Component: p}
	}
	return out
}

func paths(routes []*RouteDefinition) []string {
	out := make([]string, len(routes))
	for i, r := range routes {
		out[i] = r.Path
	}
	return out
}

func TestRankBySpecificity(t *testing.T) {
	ranked := Rank(defs("*", "/users/:id", "/users/profile"))
	assert.Equal(t, []string{"/users/profile", "/users/:id", "*"}, paths(ranked))
}

func TestRankStableTies(t *testing.T) {
	// All score 1100; registration order must survive.
	ranked := Rank(defs("/a/:x", "/b/:y", "/c/:z", "/d/:w"))
	assert.Equal(t, []string{"/a/:x", "/b/:y", "/c/:z", "/d/:w"}, paths(ranked))

	ranked = Rank(defs("/p/:a", "/static/page", "/q/:b"))
	assert.Equal(t, []string{"/static/page", "/p/:a", "/q/:b"}, paths(ranked))
}

func TestRankInvalidPatternsLast(t *testing.T) {
	ranked := Rank(defs("/bad/:", "*", "/ok"))
	assert.Equal(t, []string{"/ok", "*", "/bad/:"}, paths(ranked))
}

func TestRankDoesNotMutateInput(t *testing.T) {
	in := defs("*", "/x")
	_ = Rank(in)
	assert.Equal(t, []string{"*", "/x"}, paths(in))
}

func TestMatchMostSpecificWins(t *testing.T) {
	routes := defs("*", "/users/:id", "/users/profile")

	m := Match("/users/profile", routes)
	require.NotNil(t, m)
	assert.Equal(t, "/users/profile", m.Route.Path)
	assert.Empty(t, m.Params)

	m = Match("/users/42", routes)
	require.NotNil(t, m)
	assert.Equal(t, "/users/:id", m.Route.Path)
	assert.Equal(t, map[string]string{"id": "42"}, m.Params)

	m = Match("/nowhere", routes)
	require.NotNil(t, m)
	assert.Equal(t, "*", m.Route.Path)
}

func TestMatchIgnoresQueryAndHash(t *testing.T) {
	m := Match("/users/7?tab=posts#top", defs("/users/:id"))
	require.NotNil(t, m)
	assert.Equal(t, "7", m.Params["id"])
}

func TestMatchNormalizesURL(t *testing.T) {
	m := Match("//users//7/", defs("/users/:id"))
	require.NotNil(t, m)
	assert.Equal(t, "7", m.Params["id"])
}

func TestMatchNone(t *testing.T) {
	assert.Nil(t, Match("/missing", defs("/users", "/users/:id")))
	assert.Nil(t, Match("/", nil))
}

func TestMatchSkipsNilRoutes(t *testing.T) {
	routes := []*RouteDefinition{nil, {Path: "/x"}}
	m := Match("/x", routes)
	require.NotNil(t, m)
	assert.Equal(t, "/x", m.Route.Path)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(defs("/a", "/b/:id", "*")))
	assert.ErrorIs(t, Validate(defs("/a", "/b/:")), ErrEmptyParamName)
}

func TestRouteMatchTyped(t *testing.T) {
	m := Match("/users/42/posts/true", defs("/users/:id/posts/:draft"))
	require.NotNil(t, m)

	var p struct {
		ID    int  `param:"id"`
		Draft bool `param:"draft"`
	}
	require.NoError(t, m.Typed(&p))
	assert.Equal(t, 42, p.ID)
	assert.True(t, p.Draft)
}
