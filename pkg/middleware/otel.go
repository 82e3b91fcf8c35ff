package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/navkit/pkg/kernel"
)

// Default tracer name for navkit kernels.
const defaultTracerName = "navkit"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "navkit").
	TracerName string

	// TracerProvider supplies the tracer. Default: otel.GetTracerProvider().
	TracerProvider trace.TracerProvider

	// IncludeParams records route parameters as span attributes. They may
	// carry identifiers, so this is disabled by default.
	IncludeParams bool

	// Filter determines which navigations to trace. If nil, all are.
	Filter func(nav *kernel.Navigation) bool

	// AttributeExtractor adds custom attributes for each traced
	// navigation.
	AttributeExtractor func(nav *kernel.Navigation) []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithIncludeParams enables recording route parameters.
func WithIncludeParams(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeParams = include
	}
}

// WithNavigationFilter sets a filter function for navigations.
func WithNavigationFilter(filter func(nav *kernel.Navigation) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(nav *kernel.Navigation) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// OpenTelemetry creates middleware that traces every navigation.
//
// Each span carries the concrete path, matched pattern, navigation ID and
// epoch, plus the outcome once the chain returns. Rejections and failures
// are recorded as span errors; superseded navigations are not.
func OpenTelemetry(opts ...OTelOption) kernel.Middleware {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	if config.TracerProvider == nil {
		config.TracerProvider = otel.GetTracerProvider()
	}
	tracer := config.TracerProvider.Tracer(config.TracerName)

	return kernel.MiddlewareFunc(func(ctx context.Context, nav *kernel.Navigation, next func(context.Context) error) error {
		if config.Filter != nil && !config.Filter(nav) {
			return next(ctx)
		}

		attrs := []attribute.KeyValue{
			attribute.String("navkit.path", nav.To.Pathname),
			attribute.String("navkit.pattern", nav.To.Path),
			attribute.String("navkit.navigation_id", nav.ID),
			attribute.Int64("navkit.epoch", int64(nav.Epoch)),
		}
		if nav.From != nil {
			attrs = append(attrs, attribute.String("navkit.from", nav.From.Pathname))
		}
		if config.IncludeParams {
			for name, value := range nav.To.Params {
				attrs = append(attrs, attribute.String("navkit.param."+name, value))
			}
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(nav)...)
		}

		spanCtx, span := tracer.Start(ctx, "navkit.navigate "+nav.To.Path,
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attrs...),
			trace.WithTimestamp(nav.Started),
		)
		defer span.End()

		err := next(spanCtx)

		outcome := Outcome(err)
		span.SetAttributes(attribute.String("navkit.outcome", outcome))
		switch outcome {
		case OutcomeCommitted:
			span.SetStatus(codes.Ok, "")
		case OutcomeSuperseded:
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	})
}
