package instrumentation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// ToolInvocation captures one tool call for the audit log.
//
// Params usually contain correspondent addresses and search text, so only
// parameter names are logged unless the audit logger is configured to
// include values.
type ToolInvocation struct {
	Tool         string
	InvocationID string
	SessionID    string
	Params       map[string]any

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string
	ErrorKind string

	TraceID string
	SpanID  string
}

// NewToolInvocation creates a new ToolInvocation with timing started.
// Call Complete when the tool returns.
func NewToolInvocation(tool, invocationID string) *ToolInvocation {
	return &ToolInvocation{
		Tool:         tool,
		InvocationID: invocationID,
		StartTime:    time.Now(),
	}
}

// WithSession sets the owning session id.
func (ti *ToolInvocation) WithSession(sessionID string) *ToolInvocation {
	ti.SessionID = sessionID
	return ti
}

// WithParams records the parameters the tool was called with.
func (ti *ToolInvocation) WithParams(params map[string]any) *ToolInvocation {
	ti.Params = params
	return ti
}

// WithSpanContext extracts trace context from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		ti.TraceID = span.SpanContext().TraceID().String()
		ti.SpanID = span.SpanContext().SpanID().String()
	}
	return ti
}

// Complete marks the invocation as finished. kind classifies the failure
// (e.g. "bad_params", "timeout") and is ignored on success.
func (ti *ToolInvocation) Complete(err error, kind string) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = err == nil
	if err != nil {
		ti.Error = err.Error()
		ti.ErrorKind = kind
	}
	return ti
}

// Status returns StatusSuccess or StatusError.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// ParamNames returns the sorted parameter names.
func (ti *ToolInvocation) ParamNames() []string {
	names := make([]string, 0, len(ti.Params))
	for k := range ti.Params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// LogAttrs returns slog attributes for structured logging.
func (ti *ToolInvocation) LogAttrs(includeParams bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.String("invocation_id", ti.InvocationID),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}

	if ti.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", ti.SessionID))
	}
	if includeParams {
		attrs = append(attrs, slog.String("params", fmt.Sprintf("%v", ti.Params)))
	} else if len(ti.Params) > 0 {
		attrs = append(attrs, slog.Any("param_names", ti.ParamNames()))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error), slog.String("error_kind", ti.ErrorKind))
	}

	return attrs
}

// AuditLogger writes one structured record per tool invocation.
type AuditLogger struct {
	logger        *slog.Logger
	includeParams bool
	enabled       bool
}

// NewAuditLogger creates an AuditLogger. A nil logger uses slog.Default().
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:        logger,
		includeParams: config.IncludeParams,
		enabled:       config.Enabled,
	}
}

// LogToolInvocation logs a finished invocation as tool_executed or tool_failed.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	attrs := ti.LogAttrs(al.includeParams)
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if ti.Success {
		al.logger.Info("tool_executed", args...)
	} else {
		al.logger.Warn("tool_failed", args...)
	}
}
