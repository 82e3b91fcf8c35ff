package middleware

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/navkit/pkg/history"
	"github.com/vango-dev/navkit/pkg/kernel"
	"github.com/vango-dev/navkit/pkg/routeerr"
	"github.com/vango-dev/navkit/pkg/router"
)

func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	require.True(t, ok, "observer %T does not implement prometheus.Metric", o)
	var m dto.Metric
	require.NoError(t, metric.Write(&m))
	require.NotNil(t, m.Histogram)
	return m.GetHistogram().GetSampleCount()
}

func testNav(path, pattern string) *kernel.Navigation {
	return &kernel.Navigation{
		ID: "nav-1",
		To: &kernel.Route{Path: pattern, Pathname: path, Params: map[string]string{"id": "42"}},
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeCommitted},
		{kernel.ErrSuperseded, OutcomeSuperseded},
		{routeerr.GuardRejected(nil, "/a", ""), OutcomeRejected},
		{routeerr.GuardRejected(nil, "/a", "").Wrap(routeerr.GuardTimeout(nil, "/a", 0)), OutcomeTimeout},
		{routeerr.PluginFailed("acl", "OnBeforeNavigate", errors.New("x")), OutcomePlugin},
		{errors.New("anything else"), OutcomeError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Outcome(tt.err), "Outcome(%v)", tt.err)
	}
}

func TestMetricsHandle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg))
	nav := testNav("/users/42", "/users/:id")

	require.NoError(t, m.Handle(context.Background(), nav, func(context.Context) error { return nil }))
	rejected := routeerr.GuardRejected(nav.To, "/users/42", "auth")
	err := m.Handle(context.Background(), nav, func(context.Context) error { return rejected })
	assert.Same(t, rejected, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.navTotal.WithLabelValues("/users/:id", OutcomeCommitted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.navTotal.WithLabelValues("/users/:id", OutcomeRejected)))
	assert.Equal(t, uint64(2), histogramCount(t, m.duration.WithLabelValues("/users/:id")))
}

func TestMetricsOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(
		WithRegistry(reg),
		WithNamespace("app"),
		WithSubsystem("router"),
		WithConstLabels(prometheus.Labels{"env": "test"}),
		WithBuckets([]float64{0.1, 1}),
	)
	require.NoError(t, m.Handle(context.Background(), testNav("/", "/"), func(context.Context) error { return nil }))

	expected := `
# HELP app_router_navigations_total Total number of resolved navigations by pattern and outcome
# TYPE app_router_navigations_total counter
app_router_navigations_total{env="test",outcome="committed",pattern="/"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "app_router_navigations_total"))
}

func TestMetricsObserveError(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg))

	m.ObserveError(routeerr.NotFound("/nope"))
	m.ObserveError(routeerr.NotFound("/nada"))
	m.ObserveError(errors.New("plain"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.errTotal.WithLabelValues(routeerr.CodeRouteNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errTotal.WithLabelValues("unknown")))
}

func TestMetricsWithKernel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg))

	h := history.NewMemory("/missing")
	k := kernel.New(h, []router.RouteDefinition{
		{Path: "/", Component: "home"},
		{Path: "/users/:id", Component: "user"},
	}, kernel.WithMiddleware(m), kernel.WithErrorListener(m.ObserveError))
	defer k.Destroy()
	unregister := m.RegisterCacheStats(k.CacheStats)

	k.OnBeforeNavigate(func(ctx context.Context, to, from *kernel.Route) (bool, error) {
		return to.Param("id") != "0", nil
	})
	for _, target := range []string{"/users/1", "/users/0", "/users/1"} {
		require.NoError(t, k.Navigate(target))
		k.Wait()
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.navTotal.WithLabelValues("/users/:id", OutcomeCommitted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.navTotal.WithLabelValues("/users/:id", OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errTotal.WithLabelValues(routeerr.CodeRouteNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errTotal.WithLabelValues(routeerr.CodeGuardRejected)))

	expected := `
# HELP navkit_match_cache_hits_total Total match cache hits
# TYPE navkit_match_cache_hits_total counter
navkit_match_cache_hits_total 1
# HELP navkit_match_cache_misses_total Total match cache misses
# TYPE navkit_match_cache_misses_total counter
navkit_match_cache_misses_total 3
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"navkit_match_cache_hits_total", "navkit_match_cache_misses_total"))

	unregister()
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"navkit_match_cache_hits_total", "navkit_match_cache_misses_total"))
}
