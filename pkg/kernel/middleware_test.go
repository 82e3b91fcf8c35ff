package kernel

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/navkit/pkg/routeerr"
)

type orderLog struct {
	mu    sync.Mutex
	steps []string
}

func (l *orderLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.steps = append(l.steps, s)
}

func (l *orderLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.steps...)
}

func tracing(log *orderLog, name string) Middleware {
	return MiddlewareFunc(func(ctx context.Context, nav *Navigation, next func(context.Context) error) error {
		log.add(name + ":before")
		err := next(ctx)
		log.add(name + ":after")
		return err
	})
}

func TestMiddlewareOrder(t *testing.T) {
	log := &orderLog{}
	k, _ := newKernel(t, "/", WithMiddleware(tracing(log, "a")))
	k.UseMiddleware(tracing(log, "b"))
	k.OnBeforeNavigate(func(context.Context, *Route, *Route) (bool, error) {
		log.add("guard")
		return true, nil
	})
	k.OnAfterNavigate(func(*Route) { log.add("commit") })

	require.NoError(t, k.Navigate("/users/1"))
	k.Wait()

	assert.Equal(t, []string{
		"a:before", "b:before", "guard", "commit", "b:after", "a:after",
	}, log.get())
}

func TestMiddlewareSeesNavigation(t *testing.T) {
	k, _ := newKernel(t, "/users/1")

	var got *Navigation
	k.UseMiddleware(MiddlewareFunc(func(ctx context.Context, nav *Navigation, next func(context.Context) error) error {
		got = nav
		return next(ctx)
	}))
	require.NoError(t, k.Navigate("/users/2?x=1"))
	k.Wait()

	require.NotNil(t, got)
	assert.Equal(t, "/users/2", got.To.Pathname)
	assert.Equal(t, "/users/1", got.From.Pathname)
	assert.Equal(t, got.To.NavigationID, got.ID)
	assert.Equal(t, "x=1", got.Location.Search)
	assert.NotZero(t, got.Epoch)
	assert.False(t, got.Started.IsZero())
}

func TestMiddlewareRejects(t *testing.T) {
	k, _ := newKernel(t, "/")
	rec := watch(k)
	cause := errors.New("maintenance window")
	k.UseMiddleware(MiddlewareFunc(func(ctx context.Context, nav *Navigation, next func(context.Context) error) error {
		return cause
	}))

	guardRan := false
	k.OnBeforeNavigate(func(context.Context, *Route, *Route) (bool, error) {
		guardRan = true
		return true, nil
	})

	require.NoError(t, k.Navigate("/users/1"))
	k.Wait()

	assert.False(t, guardRan)
	assert.Equal(t, "/", k.Current().Pathname)
	require.Len(t, rec.errors(), 1)
	assert.ErrorIs(t, rec.errors()[0], routeerr.ErrMiddleware)
	assert.ErrorIs(t, rec.errors()[0], cause)
}

func TestMiddlewareRoutingErrorPassesThrough(t *testing.T) {
	k, _ := newKernel(t, "/")
	rec := watch(k)
	k.UseMiddleware(MiddlewareFunc(func(ctx context.Context, nav *Navigation, next func(context.Context) error) error {
		return routeerr.GuardRejected(nav.To, nav.To.Pathname, "")
	}))

	require.NoError(t, k.Navigate("/users/1"))
	k.Wait()

	require.Len(t, rec.errors(), 1)
	assert.ErrorIs(t, rec.errors()[0], routeerr.ErrGuardRejected)
	assert.NotErrorIs(t, rec.errors()[0], routeerr.ErrMiddleware)
}

func TestMiddlewarePanicRecovered(t *testing.T) {
	k, _ := newKernel(t, "/")
	rec := watch(k)
	k.UseMiddleware(MiddlewareFunc(func(context.Context, *Navigation, func(context.Context) error) error {
		panic("nil map")
	}))

	require.NoError(t, k.Navigate("/users/1"))
	k.Wait()

	require.Len(t, rec.errors(), 1)
	assert.ErrorIs(t, rec.errors()[0], routeerr.ErrMiddleware)
	assert.Contains(t, rec.errors()[0].Error(), "nil map")
}

func TestMiddlewareRemove(t *testing.T) {
	log := &orderLog{}
	k, _ := newKernel(t, "/")
	remove := k.UseMiddleware(tracing(log, "m"))
	remove()

	require.NoError(t, k.Navigate("/users/1"))
	k.Wait()
	assert.Empty(t, log.get())
}

func TestComposeHelpers(t *testing.T) {
	nav := &Navigation{To: &Route{Pathname: "/admin"}}
	isAdmin := func(n *Navigation) bool { return n.To.Pathname == "/admin" }
	final := func(context.Context) error { return nil }

	log := &orderLog{}
	require.NoError(t, ComposeMiddleware(context.Background(), nav,
		[]Middleware{Chain(tracing(log, "x"), tracing(log, "y"))}, final))
	assert.Equal(t, []string{"x:before", "y:before", "y:after", "x:after"}, log.get())

	log = &orderLog{}
	require.NoError(t, Skip(isAdmin, tracing(log, "s")).Handle(context.Background(), nav, final))
	assert.Empty(t, log.get())

	log = &orderLog{}
	require.NoError(t, Only(isAdmin, tracing(log, "o")).Handle(context.Background(), nav, final))
	assert.Equal(t, []string{"o:before", "o:after"}, log.get())

	other := &Navigation{To: &Route{Pathname: "/home"}}
	log = &orderLog{}
	require.NoError(t, Only(isAdmin, tracing(log, "o")).Handle(context.Background(), other, final))
	assert.Empty(t, log.get())

	require.NoError(t, ComposeMiddleware(context.Background(), nav, nil, final))
}
