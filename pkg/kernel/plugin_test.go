package kernel

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/navkit/pkg/routeerr"
)

type testPlugin struct {
	name       string
	version    string
	deps       []string
	installErr error
	install    func(h Handle)
	initErr    error

	mu    sync.Mutex
	calls []string
	errs  []error
}

func (p *testPlugin) Name() string           { return p.name }
func (p *testPlugin) Version() string        { return p.version }
func (p *testPlugin) Dependencies() []string { return p.deps }

func (p *testPlugin) Install(h Handle) error {
	p.record("install")
	if p.install != nil {
		p.install(h)
	}
	return p.installErr
}

func (p *testPlugin) OnInit(ctx context.Context) error {
	p.record("init")
	return p.initErr
}

func (p *testPlugin) OnDestroy() error {
	p.record("destroy")
	return errors.New("cleanup failed")
}

func (p *testPlugin) OnError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs = append(p.errs, err)
}

func (p *testPlugin) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
}

func (p *testPlugin) count(call string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (p *testPlugin) observed() []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]error(nil), p.errs...)
}

// guardPlugin adds a navigation guard to testPlugin.
type guardPlugin struct {
	*testPlugin
	guard func(ctx context.Context, to, from *Route) (bool, error)
}

func (g *guardPlugin) OnBeforeNavigate(ctx context.Context, to, from *Route) (bool, error) {
	return g.guard(ctx, to, from)
}

func TestUseInstallsAndInits(t *testing.T) {
	k, _ := newKernel(t, "/")
	p := &testPlugin{name: "analytics", version: "1.2.0"}

	require.NoError(t, k.Use(p))
	k.Wait()

	assert.Equal(t, 1, p.count("install"))
	assert.Equal(t, 1, p.count("init"))
	assert.Equal(t, []string{"analytics"}, k.Plugins())

	got, ok := k.Plugin("analytics")
	assert.True(t, ok)
	assert.Same(t, p, got)
}

func TestUseDuplicate(t *testing.T) {
	k, _ := newKernel(t, "/")
	require.NoError(t, k.Use(&testPlugin{name: "auth", version: "1.0.0"}))

	err := k.Use(&testPlugin{name: "auth", version: "2.0.0"})
	assert.ErrorIs(t, err, routeerr.ErrDuplicatePlugin)
	assert.Equal(t, []string{"auth"}, k.Plugins())
}

func TestUseMissingDependency(t *testing.T) {
	k, _ := newKernel(t, "/")
	child := &testPlugin{name: "breadcrumbs", version: "1.0.0", deps: []string{"titles"}}

	err := k.Use(child)
	assert.ErrorIs(t, err, routeerr.ErrMissingDependency)

	var re *routeerr.Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "breadcrumbs", re.Plugin)
	assert.Contains(t, re.Detail, "titles")
	assert.Equal(t, 0, child.count("install"))
	assert.Empty(t, k.Plugins())

	require.NoError(t, k.Use(&testPlugin{name: "titles", version: "1.0.0"}))
	require.NoError(t, k.Use(child))
	assert.Equal(t, []string{"titles", "breadcrumbs"}, k.Plugins())
}

func TestInstallErrorKeepsRegistration(t *testing.T) {
	k, _ := newKernel(t, "/")
	rec := watch(k)
	p := &testPlugin{name: "flaky", version: "1.0.0", installErr: errors.New("no config")}

	require.NoError(t, k.Use(p))
	k.Wait()

	assert.Equal(t, []string{"flaky"}, k.Plugins())
	assert.Equal(t, 0, p.count("init"))

	errs := rec.errors()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], routeerr.ErrPluginError)
	var re *routeerr.Error
	require.ErrorAs(t, errs[0], &re)
	assert.Equal(t, "flaky", re.Plugin)
	assert.Contains(t, re.Detail, "no config")

	require.Len(t, p.observed(), 1)
	assert.Same(t, re, p.observed()[0])
}

func TestInstallPanicRecovered(t *testing.T) {
	k, _ := newKernel(t, "/")
	rec := watch(k)
	p := &testPlugin{name: "crashy", version: "1.0.0", install: func(Handle) { panic("bad install") }}

	require.NoError(t, k.Use(p))
	require.Len(t, rec.errors(), 1)
	assert.ErrorIs(t, rec.errors()[0], routeerr.ErrPluginError)
	assert.Contains(t, rec.errors()[0].Error(), "bad install")
}

func TestInitErrorReported(t *testing.T) {
	k, _ := newKernel(t, "/")
	rec := watch(k)
	p := &testPlugin{name: "remote", version: "1.0.0", initErr: errors.New("dial failed")}

	require.NoError(t, k.Use(p))
	k.Wait()

	require.Len(t, rec.errors(), 1)
	var re *routeerr.Error
	require.ErrorAs(t, rec.errors()[0], &re)
	assert.Contains(t, re.Message, "OnInit")
	assert.Len(t, p.observed(), 1)
}

func TestInvalidVersionWarns(t *testing.T) {
	var buf bytes.Buffer
	k, _ := newKernel(t, "/", WithLogger(bufferLogger(&buf)))

	require.NoError(t, k.Use(&testPlugin{name: "good", version: "v1.4.2"}))
	assert.NotContains(t, buf.String(), "not valid semver")

	require.NoError(t, k.Use(&testPlugin{name: "bad", version: "latest"}))
	assert.Contains(t, buf.String(), "not valid semver")
	assert.Equal(t, []string{"good", "bad"}, k.Plugins())
}

func TestUnregister(t *testing.T) {
	k, _ := newKernel(t, "/")

	var afterCalls, mwCalls int
	var mu sync.Mutex
	p := &testPlugin{name: "tracker", version: "1.0.0", install: func(h Handle) {
		h.OnAfterNavigate(func(*Route) {
			mu.Lock()
			afterCalls++
			mu.Unlock()
		})
		h.UseMiddleware(MiddlewareFunc(func(ctx context.Context, nav *Navigation, next func(context.Context) error) error {
			mu.Lock()
			mwCalls++
			mu.Unlock()
			return next(ctx)
		}))
	}}
	require.NoError(t, k.Use(p))

	require.NoError(t, k.Navigate("/users/1"))
	k.Wait()

	assert.True(t, k.Unregister("tracker"))
	assert.False(t, k.Unregister("tracker"))
	assert.Equal(t, 1, p.count("destroy"))
	assert.Empty(t, k.Plugins())

	require.NoError(t, k.Navigate("/users/2"))
	k.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, afterCalls)
	assert.Equal(t, 1, mwCalls)
	assert.Equal(t, "/users/2", k.Current().Pathname)
}

func TestPluginNavigatesThroughHandle(t *testing.T) {
	k, _ := newKernel(t, "/")

	var handle Handle
	p := &testPlugin{name: "redirects", version: "1.0.0", install: func(h Handle) {
		handle = h
		h.OnAfterNavigate(func(r *Route) {
			if r.Path == "/users/profile" {
				_ = h.Navigate("/users/me", WithReplace())
			}
		})
	}}
	require.NoError(t, k.Use(p))

	require.NoError(t, k.Navigate("/users/profile"))
	k.Wait()

	assert.Equal(t, "/users/me", k.Current().Pathname)
	assert.Same(t, k.Current(), handle.Current())
	assert.NotNil(t, handle.Logger())
}

func TestPluginCanUseAnotherPlugin(t *testing.T) {
	k, _ := newKernel(t, "/")
	dep := &testPlugin{name: "store", version: "1.0.0"}
	p := &testPlugin{name: "bundle", version: "1.0.0", install: func(h Handle) {
		_ = h.Use(dep)
	}}

	require.NoError(t, k.Use(p))
	assert.Equal(t, []string{"bundle", "store"}, k.Plugins())
}

func TestNilPlugin(t *testing.T) {
	k, _ := newKernel(t, "/")
	assert.Error(t, k.Use(nil))
}
