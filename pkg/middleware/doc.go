// Package middleware provides observability middleware for the router
// kernel.
//
// # Prometheus Metrics
//
// Metrics counts navigations by matched pattern and outcome and times
// their resolution:
//   - navkit_navigations_total{pattern,outcome}
//   - navkit_navigation_duration_seconds{pattern}
//   - navkit_routing_errors_total{code}
//   - navkit_match_cache_{hits,misses,evictions}_total
//
//	m := middleware.NewMetrics(middleware.WithRegistry(reg))
//	k := kernel.New(h, routes,
//	    kernel.WithMiddleware(m),
//	    kernel.WithErrorListener(m.ObserveError),
//	)
//	m.RegisterCacheStats(k.CacheStats)
//
// Then expose the registry:
//
//	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// # OpenTelemetry
//
// OpenTelemetry starts one span per navigation. The span context is
// passed down the chain, so guards and later middleware see it through
// their ctx argument:
//
//	k.OnBeforeNavigate(func(ctx context.Context, to, from *kernel.Route) (bool, error) {
//	    trace.SpanFromContext(ctx).AddEvent("auth check")
//	    return session.Valid(ctx), nil
//	})
package middleware
