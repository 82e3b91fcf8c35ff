package kernel

import (
	"context"
	"time"

	"github.com/vango-dev/navkit/pkg/history"
)

// Navigation describes one resolution in progress.
type Navigation struct {
	// ID is the navigation identifier, equal to To.NavigationID.
	ID string

	// To is the candidate route.
	To *Route

	// From is the route current when the navigation started. It is nil
	// when no route has been committed yet.
	From *Route

	// Location is the raw location reported by history, base included.
	Location history.Location

	// Epoch orders navigations. A higher epoch started later.
	Epoch uint64

	// Started is when the location change was observed.
	Started time.Time
}

// Middleware wraps navigation resolution. next runs the remaining
// middleware, the guard protocol and the commit. Returning an error
// without calling next rejects the navigation.
type Middleware interface {
	Handle(ctx context.Context, nav *Navigation, next func(context.Context) error) error
}

// MiddlewareFunc adapts a function to Middleware.
type MiddlewareFunc func(ctx context.Context, nav *Navigation, next func(context.Context) error) error

// Handle implements Middleware.
func (f MiddlewareFunc) Handle(ctx context.Context, nav *Navigation, next func(context.Context) error) error {
	return f(ctx, nav, next)
}

// ComposeMiddleware builds a chain from mw and a final handler. Middleware
// runs in order (first to last) with the handler at the end.
func ComposeMiddleware(ctx context.Context, nav *Navigation, mw []Middleware, handler func(context.Context) error) error {
	if len(mw) == 0 {
		return handler(ctx)
	}

	chain := handler
	for i := len(mw) - 1; i >= 0; i-- {
		m := mw[i]
		next := chain
		chain = func(ctx context.Context) error {
			return m.Handle(ctx, nav, next)
		}
	}
	return chain(ctx)
}

// Chain combines middleware into one, preserving order.
func Chain(middleware ...Middleware) Middleware {
	return MiddlewareFunc(func(ctx context.Context, nav *Navigation, next func(context.Context) error) error {
		return ComposeMiddleware(ctx, nav, middleware, next)
	})
}

// Skip bypasses mw for navigations where condition is true.
func Skip(condition func(*Navigation) bool, mw Middleware) Middleware {
	return MiddlewareFunc(func(ctx context.Context, nav *Navigation, next func(context.Context) error) error {
		if condition(nav) {
			return next(ctx)
		}
		return mw.Handle(ctx, nav, next)
	})
}

// Only runs mw only for navigations where condition is true.
func Only(condition func(*Navigation) bool, mw Middleware) Middleware {
	return MiddlewareFunc(func(ctx context.Context, nav *Navigation, next func(context.Context) error) error {
		if !condition(nav) {
			return next(ctx)
		}
		return mw.Handle(ctx, nav, next)
	})
}
