// Package kernel implements the router state machine.
//
// A Kernel owns the current Route, an ordered plugin registry, event
// listeners and a middleware chain. It listens to a history.History, and
// for every location change it matches the route table through a
// router.MatchCache, runs the guard protocol and commits the new Route.
//
//	h := history.NewMemory("/")
//	k := kernel.New(h, []router.RouteDefinition{
//	    {Path: "/", Component: "home"},
//	    {Path: "/users/:id", Component: "user"},
//	}, kernel.WithGuardTimeout(2*time.Second))
//	defer k.Destroy()
//
//	k.OnAfterNavigate(func(r *kernel.Route) {
//	    render(r.Definition.Component, r.Params)
//	})
//	k.Navigate("/users/42")
//
// # Navigation lifecycle
//
// Location changes are resolved on their own goroutine:
//
//  1. The mount base is stripped and the pathname matched. No match
//     emits a RouteNotFound error and leaves the current Route alone.
//  2. The middleware chain runs around the rest of the resolution.
//  3. BeforeNavigate listeners run, then plugin guards, one at a time in
//     registration order. The whole protocol is bounded by the guard
//     timeout.
//  4. The Route is committed unless a later location change has started
//     in the meantime, and AfterNavigate listeners are notified.
//
// Routing outcomes never surface from Navigate. They are reported through
// OnError and the current Route.
package kernel
