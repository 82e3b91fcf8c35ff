// Package router compiles route patterns, ranks them by specificity and
// finds the best match for a URL.
//
// # Pattern Syntax
//
//	/users/profile   static segments (1000 points each)
//	/users/:id       required parameter (100 points)
//	/users/:id?      optional parameter (50 points)
//	/files/*         wildcard segment (50 points)
//	*                global catch-all (1 point)
//
// Patterns are normalized before compilation: a single leading slash, no
// repeated slashes and no trailing slash except for the root.
//
// # Ranking
//
// Candidates are sorted by descending score with a stable sort, so routes
// with equal scores keep their registration order. The first compiled
// pattern that accepts the URL wins.
//
// # Usage
//
//	routes := router.Flatten([]router.RouteDefinition{
//	    {Path: "/users/:id", Component: "UserPage"},
//	    {Path: "*", Component: "NotFound"},
//	})
//
//	cache := router.NewMatchCache(router.DefaultCacheSize)
//	if m := cache.Match("/users/42", routes); m != nil {
//	    // m.Route.Component == "UserPage", m.Params["id"] == "42"
//	}
package router
