package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/navkit/pkg/history"
	"github.com/vango-dev/navkit/pkg/kernel"
	"github.com/vango-dev/navkit/pkg/routeerr"
	"github.com/vango-dev/navkit/pkg/router"
)

type spanKey struct{}

type recordedSpan struct {
	noop.Span

	name   string
	attrs  map[attribute.Key]attribute.Value
	status codes.Code
	errs   []error
	ended  bool
}

func (s *recordedSpan) SetAttributes(kv ...attribute.KeyValue) {
	for _, a := range kv {
		s.attrs[a.Key] = a.Value
	}
}

func (s *recordedSpan) SetStatus(code codes.Code, _ string) { s.status = code }

func (s *recordedSpan) RecordError(err error, _ ...trace.EventOption) { s.errs = append(s.errs, err) }

func (s *recordedSpan) End(...trace.SpanEndOption) { s.ended = true }

type recordingTracer struct {
	noop.Tracer

	mu    sync.Mutex
	spans []*recordedSpan
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	span := &recordedSpan{name: name, attrs: make(map[attribute.Key]attribute.Value)}
	span.SetAttributes(cfg.Attributes()...)

	t.mu.Lock()
	t.spans = append(t.spans, span)
	t.mu.Unlock()
	return context.WithValue(ctx, spanKey{}, span), span
}

func (t *recordingTracer) recorded() []*recordedSpan {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*recordedSpan(nil), t.spans...)
}

type recordingProvider struct {
	noop.TracerProvider
	tracer *recordingTracer
	names  []string
}

func (p *recordingProvider) Tracer(name string, _ ...trace.TracerOption) trace.Tracer {
	p.names = append(p.names, name)
	return p.tracer
}

func newRecordingProvider() *recordingProvider {
	return &recordingProvider{tracer: &recordingTracer{}}
}

func TestOpenTelemetryCommitted(t *testing.T) {
	tp := newRecordingProvider()
	mw := OpenTelemetry(WithTracerProvider(tp), WithTracerName("test"))
	nav := testNav("/users/42", "/users/:id")
	nav.Epoch = 3
	nav.From = &kernel.Route{Path: "/", Pathname: "/"}

	var seen any
	err := mw.Handle(context.Background(), nav, func(ctx context.Context) error {
		seen = ctx.Value(spanKey{})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"test"}, tp.names)

	spans := tp.tracer.recorded()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Same(t, span, seen, "span context is passed down the chain")
	assert.Equal(t, "navkit.navigate /users/:id", span.name)
	assert.Equal(t, "/users/42", span.attrs["navkit.path"].AsString())
	assert.Equal(t, "/users/:id", span.attrs["navkit.pattern"].AsString())
	assert.Equal(t, "nav-1", span.attrs["navkit.navigation_id"].AsString())
	assert.Equal(t, int64(3), span.attrs["navkit.epoch"].AsInt64())
	assert.Equal(t, "/", span.attrs["navkit.from"].AsString())
	assert.Equal(t, OutcomeCommitted, span.attrs["navkit.outcome"].AsString())
	assert.Equal(t, codes.Ok, span.status)
	assert.Empty(t, span.errs)
	assert.True(t, span.ended)

	_, hasParam := span.attrs["navkit.param.id"]
	assert.False(t, hasParam, "params are excluded by default")
}

func TestOpenTelemetryOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		outcome string
		status  codes.Code
		errs    int
	}{
		{"rejected", routeerr.GuardRejected(nil, "/users/42", "auth"), OutcomeRejected, codes.Error, 1},
		{"superseded", kernel.ErrSuperseded, OutcomeSuperseded, codes.Unset, 0},
		{"failure", errors.New("boom"), OutcomeError, codes.Error, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := newRecordingProvider()
			mw := OpenTelemetry(WithTracerProvider(tp))

			err := mw.Handle(context.Background(), testNav("/users/42", "/users/:id"), func(context.Context) error {
				return tt.err
			})
			assert.Same(t, tt.err, err)

			spans := tp.tracer.recorded()
			require.Len(t, spans, 1)
			assert.Equal(t, tt.outcome, spans[0].attrs["navkit.outcome"].AsString())
			assert.Equal(t, tt.status, spans[0].status)
			assert.Len(t, spans[0].errs, tt.errs)
			assert.True(t, spans[0].ended)
		})
	}
}

func TestOpenTelemetryOptions(t *testing.T) {
	tp := newRecordingProvider()
	mw := OpenTelemetry(
		WithTracerProvider(tp),
		WithIncludeParams(true),
		WithNavigationFilter(func(nav *kernel.Navigation) bool { return nav.To.Path != "/health" }),
		WithAttributeExtractor(func(nav *kernel.Navigation) []attribute.KeyValue {
			return []attribute.KeyValue{attribute.String("app.section", "users")}
		}),
	)
	next := func(context.Context) error { return nil }

	require.NoError(t, mw.Handle(context.Background(), testNav("/health", "/health"), next))
	assert.Empty(t, tp.tracer.recorded(), "filtered navigation is not traced")

	require.NoError(t, mw.Handle(context.Background(), testNav("/users/42", "/users/:id"), next))
	spans := tp.tracer.recorded()
	require.Len(t, spans, 1)
	assert.Equal(t, "42", spans[0].attrs["navkit.param.id"].AsString())
	assert.Equal(t, "users", spans[0].attrs["app.section"].AsString())
}

func TestOpenTelemetryWithKernel(t *testing.T) {
	tp := newRecordingProvider()
	k := kernel.New(history.NewMemory("/"), []router.RouteDefinition{
		{Path: "/", Component: "home"},
		{Path: "/users/:id", Component: "user"},
	}, kernel.WithMiddleware(OpenTelemetry(WithTracerProvider(tp))))
	defer k.Destroy()

	var guardSpan any
	k.OnBeforeNavigate(func(ctx context.Context, to, from *kernel.Route) (bool, error) {
		guardSpan = ctx.Value(spanKey{})
		return true, nil
	})

	require.NoError(t, k.Navigate("/users/7"))
	k.Wait()

	spans := tp.tracer.recorded()
	require.Len(t, spans, 1)
	assert.Same(t, spans[0], guardSpan, "guards run inside the navigation span")
	assert.Equal(t, "/users/7", spans[0].attrs["navkit.path"].AsString())
	assert.Equal(t, OutcomeCommitted, spans[0].attrs["navkit.outcome"].AsString())
}
