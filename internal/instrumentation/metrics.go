package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrStatus    = "status"
	attrOperation = "operation"
	attrOutcome   = "outcome"
	attrResult    = "result"
	attrTool      = "tool"
	attrModel     = "model"
)

// Metrics provides methods for recording observability metrics.
// A zero Metrics, or a nil *Metrics, records nothing.
type Metrics struct {
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	completionRequestsTotal metric.Int64Counter
	completionDuration      metric.Float64Histogram

	agentTurnsTotal metric.Int64Counter
	activeSessions  metric.Int64UpDownCounter

	storeOperationsTotal   metric.Int64Counter
	storeOperationDuration metric.Float64Histogram

	ingestDocumentsTotal metric.Int64Counter
}

var durationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0}

// NewMetrics creates a new Metrics instance with all instruments registered on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.toolInvocationsTotal, err = meter.Int64Counter(
		"tool_invocations_total",
		metric.WithDescription("Total number of agent tool invocations"),
		metric.WithUnit("{invocation}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create tool_invocations_total counter: %w", err)
	}

	if m.toolDuration, err = meter.Float64Histogram(
		"tool_duration_seconds",
		metric.WithDescription("Agent tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create tool_duration_seconds histogram: %w", err)
	}

	if m.completionRequestsTotal, err = meter.Int64Counter(
		"completion_requests_total",
		metric.WithDescription("Total number of completion provider requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create completion_requests_total counter: %w", err)
	}

	if m.completionDuration, err = meter.Float64Histogram(
		"completion_duration_seconds",
		metric.WithDescription("Completion provider request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create completion_duration_seconds histogram: %w", err)
	}

	if m.agentTurnsTotal, err = meter.Int64Counter(
		"agent_turns_total",
		metric.WithDescription("Total number of completed agent turns by outcome"),
		metric.WithUnit("{turn}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create agent_turns_total counter: %w", err)
	}

	if m.activeSessions, err = meter.Int64UpDownCounter(
		"active_sessions",
		metric.WithDescription("Number of open conversation sessions"),
		metric.WithUnit("{session}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create active_sessions gauge: %w", err)
	}

	if m.storeOperationsTotal, err = meter.Int64Counter(
		"store_operations_total",
		metric.WithDescription("Total number of email store operations"),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create store_operations_total counter: %w", err)
	}

	if m.storeOperationDuration, err = meter.Float64Histogram(
		"store_operation_duration_seconds",
		metric.WithDescription("Email store operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0),
	); err != nil {
		return nil, fmt.Errorf("failed to create store_operation_duration_seconds histogram: %w", err)
	}

	if m.ingestDocumentsTotal, err = meter.Int64Counter(
		"ingest_documents_total",
		metric.WithDescription("Total number of messages processed by ingestion"),
		metric.WithUnit("{document}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create ingest_documents_total counter: %w", err)
	}

	return m, nil
}

// RecordToolInvocation records a tool invocation with tool name, status, and duration.
// Callers bound the tool label with BoundedLabel, since the name comes from the model.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	)
	m.toolInvocationsTotal.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordCompletion records one completion provider round trip.
//
// Parameters:
//   - model: configured model name
//   - outcome: one of CompletionText, CompletionToolCall, CompletionTimeout, CompletionError
//   - duration: time until the provider answered or the wait was abandoned
func (m *Metrics) RecordCompletion(ctx context.Context, model, outcome string, duration time.Duration) {
	if m == nil || m.completionRequestsTotal == nil || m.completionDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrModel, model),
		attribute.String(attrOutcome, outcome),
	)
	m.completionRequestsTotal.Add(ctx, 1, attrs)
	m.completionDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordAgentTurn records how a user turn ended.
func (m *Metrics) RecordAgentTurn(ctx context.Context, outcome string) {
	if m == nil || m.agentTurnsTotal == nil {
		return
	}
	m.agentTurnsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOutcome, outcome)))
}

// IncrementActiveSessions increments the active sessions counter.
func (m *Metrics) IncrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, 1)
}

// DecrementActiveSessions decrements the active sessions counter.
func (m *Metrics) DecrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, -1)
}

// RecordStoreOperation records an email store operation.
func (m *Metrics) RecordStoreOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.storeOperationsTotal == nil || m.storeOperationDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.storeOperationsTotal.Add(ctx, 1, attrs)
	m.storeOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordIngestDocument records the fate of one message during ingestion.
func (m *Metrics) RecordIngestDocument(ctx context.Context, result string) {
	if m == nil || m.ingestDocumentsTotal == nil {
		return
	}
	m.ingestDocumentsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}
