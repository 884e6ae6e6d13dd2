package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope used by humanizer packages.
const TracerName = "github.com/nao1215/humanizer"

// Attribute keys shared by the instrumented packages.
const (
	AttrModelID   = attribute.Key("humanizer.model.id")
	AttrModelRole = attribute.Key("humanizer.model.role")
	AttrStep      = attribute.Key("humanizer.pipeline.step")
	AttrTextRunes = attribute.Key("humanizer.text.runes")
	AttrTimedOut  = attribute.Key("humanizer.call.timed_out")
)

// StartSpan starts a span on the humanizer tracer.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError marks span as failed with err. A nil err is a no-op.
func RecordError(span trace.Span, err error) {
	if err == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceID returns the trace id of the span in ctx, or "".
func TraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
