package tracing

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// StartRenderSpan starts a span covering one template render.
func StartRenderSpan(ctx context.Context, tracer trace.Tracer, path string, tokens int) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "render "+path,
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.SetAttributes(
		attribute.String("tokenfill.template", path),
		attribute.Int("tokenfill.tokens", tokens),
	)
	return ctx, span
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// ExtractFromEnv continues a trace started by the calling pipeline step.
// CI runners that support it export the W3C context as TRACEPARENT and
// TRACESTATE.
func ExtractFromEnv(ctx context.Context) context.Context {
	return ExtractFromLookup(ctx, os.Getenv)
}

// ExtractFromLookup is ExtractFromEnv with an injectable variable lookup.
func ExtractFromLookup(ctx context.Context, getenv func(string) string) context.Context {
	carrier := propagation.MapCarrier{}
	if v := getenv("TRACEPARENT"); v != "" {
		carrier["traceparent"] = v
	}
	if v := getenv("TRACESTATE"); v != "" {
		carrier["tracestate"] = v
	}
	if len(carrier) == 0 {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
