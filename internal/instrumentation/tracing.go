package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope used for every span in the module.
const TracerName = "github.com/amodeus4/emailagent"

// Span attribute keys.
const (
	SpanAttrTool         = "agent.tool"
	SpanAttrInvocationID = "agent.invocation_id"
	SpanAttrSessionID    = "agent.session_id"
	SpanAttrTurnSteps    = "agent.turn_steps"
	SpanAttrModel        = "completion.model"
	SpanAttrOperation    = "store.operation"
	SpanAttrEmailID      = "email.id"
	SpanAttrResultCount  = "result.count"
	SpanAttrBatchSize    = "batch.size"
)

func tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TracerName)
}

// StartSpan starts a new span with the given name and attributes.
// The caller is responsible for ending the span with defer span.End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartToolSpan starts a span for one tool invocation.
func StartToolSpan(ctx context.Context, toolName, invocationID string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "tool."+toolName,
		trace.WithAttributes(
			attribute.String(SpanAttrTool, toolName),
			attribute.String(SpanAttrInvocationID, invocationID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartCompletionSpan starts a span around a completion provider request.
func StartCompletionSpan(ctx context.Context, model string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "completion.request",
		trace.WithAttributes(attribute.String(SpanAttrModel, model)),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartStoreSpan starts a span for an email store operation.
func StartStoreSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, len(attrs)+1)
	all = append(all, attribute.String(SpanAttrOperation, operation))
	all = append(all, attrs...)

	return tracer().Start(ctx, "store."+operation,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// EndSpan sets the span status from err and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		SetSpanError(span, err)
	} else {
		SetSpanSuccess(span)
	}
	span.End()
}

// GetTraceID returns the trace ID from the current span in context.
// Returns empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// GetSpanID returns the span ID from the current span in context.
func GetSpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().SpanID().String()
	}
	return ""
}
