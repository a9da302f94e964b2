// Package instrumentation provides OpenTelemetry metrics, tracing and the
// tool invocation audit log for emailagent.
//
// # Metrics
//
// Agent:
//   - agent_turns_total: turns by outcome (responded, exhausted, degraded, cancelled)
//   - active_sessions: open conversation sessions
//
// Tools and completion:
//   - tool_invocations_total / tool_duration_seconds: by tool and status
//   - completion_requests_total / completion_duration_seconds: by model and outcome
//
// Store and ingestion:
//   - store_operations_total / store_operation_duration_seconds: by operation and status
//   - ingest_documents_total: by result (indexed, failed, skipped)
//
// # Tracing
//
// Spans are created for agent turns (agent.turn), completion requests
// (completion.request), tool invocations (tool.<name>), store operations
// (store.<operation>) and ingestion (ingest.message).
//
// # Configuration
//
// Configuration is read from the environment:
//   - INSTRUMENTATION_ENABLED: enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: sampling rate (0.0 to 1.0, default: 0.1)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PARAMS: audit log behaviour
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordAgentTurn(ctx, instrumentation.OutcomeResponded)
package instrumentation
