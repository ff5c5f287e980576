// Package trace records scenario runs as OpenTelemetry spans: one root
// span per scenario with a child span for each step.
package trace

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/revature/scopecheck/log"
)

const tracerName = "scopecheck"

// Tracer starts spans carrying the run's metadata attributes.
type Tracer struct {
	trace.Tracer

	logger   *log.Logger
	metadata []attribute.KeyValue
}

// NewTracer creates a new Tracer from the given TracerProvider.
func NewTracer(logger *log.Logger, tp trace.TracerProvider, metadata map[string]string, options ...trace.TracerOption) *Tracer {
	return &Tracer{
		Tracer:   tp.Tracer(tracerName, options...),
		logger:   logger,
		metadata: buildMetadataAttributes(metadata),
	}
}

// Start overrides the underlying OTEL tracer method to include the tracer metadata.
func (t *Tracer) Start(
	ctx context.Context, spanName string, opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	opts = append(opts, trace.WithAttributes(t.metadata...))
	return t.Tracer.Start(ctx, spanName, opts...)
}

// TraceScenario starts the root span of one scenario run. The caller must
// end it.
func (t *Tracer) TraceScenario(ctx context.Context, scenario string) (context.Context, trace.Span) {
	ctx, span := t.Start(ctx, "scenario", trace.WithNewRoot(),
		trace.WithAttributes(attribute.String("scenario.name", scenario)))
	t.logger.Debugf("Tracer:TraceScenario", "scenario:%q traceID:%q", scenario, GetTraceID(span.SpanContext()))

	return ctx, &SpanLogger{Span: span, logger: t.logger, spanName: "scenario"}
}

// TraceStep starts a span for one step of the scenario in ctx, such as
// resolving or launching the browser. The caller must end it.
func (t *Tracer) TraceStep(
	ctx context.Context, step string, attrs ...attribute.KeyValue,
) (context.Context, trace.Span) {
	ctx, span := t.Start(ctx, step, trace.WithAttributes(attrs...))
	return ctx, &SpanLogger{Span: span, logger: t.logger, spanName: step}
}

// End records err, if any, on span and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// GetTraceID returns the hex trace ID of spanCtx, or an empty string.
func GetTraceID(spanCtx trace.SpanContext) string {
	if spanCtx.HasTraceID() {
		traceID := spanCtx.TraceID()
		return traceID.String()
	}
	return ""
}

// ParseMetadata parses "key=value" pairs separated by commas.
func ParseMetadata(s string) (map[string]string, error) {
	md := make(map[string]string)
	if strings.TrimSpace(s) == "" {
		return md, nil
	}
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("parsing traces metadata %q: want key=value", pair)
		}
		md[k] = strings.TrimSpace(v)
	}
	return md, nil
}

func buildMetadataAttributes(metadata map[string]string) []attribute.KeyValue {
	meta := make([]attribute.KeyValue, 0, len(metadata))
	for mk, mv := range metadata {
		meta = append(meta, attribute.String(mk, mv))
	}

	return meta
}

// SpanLogger is a Span that will log the method calls.
type SpanLogger struct {
	trace.Span
	logger   *log.Logger
	spanName string
}

// SetStatus will log some info before calling the underlying SetStatus.
func (i *SpanLogger) SetStatus(code codes.Code, description string) {
	i.logger.Debugf("Tracer:SetStatus", "span:%q traceID:%q code:%q description:%q",
		i.spanName, GetTraceID(i.SpanContext()), code, description)

	i.Span.SetStatus(code, description)
}

// End will log some info before calling the underlying End.
func (i *SpanLogger) End(options ...trace.SpanEndOption) {
	i.logger.Debugf("Tracer:End", "span:%q traceID:%q", i.spanName, GetTraceID(i.SpanContext()))

	i.Span.End(options...)
}
