package instrumentation

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	ServiceName    string `env:"OTEL_SERVICE_NAME" envDefault:"emailagent"`
	ServiceVersion string

	// ServiceInstanceID defaults to the hostname when empty.
	ServiceInstanceID string `env:"OTEL_SERVICE_INSTANCE_ID"`

	// Enabled turns metrics and tracing on or off as a whole.
	Enabled bool `env:"INSTRUMENTATION_ENABLED" envDefault:"true"`

	// MetricsExporter is one of prometheus, otlp or stdout.
	MetricsExporter string `env:"METRICS_EXPORTER" envDefault:"prometheus"`

	// TracingExporter is one of otlp, stdout or none.
	TracingExporter string `env:"TRACING_EXPORTER" envDefault:"none"`

	// OTLPEndpoint is the collector address without scheme, e.g. localhost:4318.
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// OTLPInsecure disables TLS towards the collector. Development only.
	OTLPInsecure bool `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"false"`

	TraceSamplingRate float64 `env:"OTEL_TRACES_SAMPLER_ARG" envDefault:"0.1"`

	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig holds configuration for the tool invocation audit log.
type AuditLoggingConfig struct {
	Enabled bool `env:"AUDIT_LOGGING_ENABLED" envDefault:"true"`

	// IncludeParams logs tool parameter values instead of parameter names only.
	// Parameter values routinely contain correspondent addresses.
	IncludeParams bool `env:"AUDIT_LOGGING_INCLUDE_PARAMS" envDefault:"false"`
}

// DefaultConfig returns a Config populated from the environment.
func DefaultConfig() Config {
	var config Config
	if err := env.Parse(&config); err != nil {
		// Malformed values fall back to the documented defaults.
		config = Config{
			ServiceName:       "emailagent",
			Enabled:           true,
			MetricsExporter:   ExporterPrometheus,
			TracingExporter:   ExporterNone,
			TraceSamplingRate: 0.1,
			AuditLogging:      AuditLoggingConfig{Enabled: true},
		}
	}
	config.ServiceVersion = "unknown"
	return config
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	validMetricsExporters := map[string]bool{ExporterPrometheus: true, ExporterOTLP: true, ExporterStdout: true}
	if c.MetricsExporter != "" && !validMetricsExporters[c.MetricsExporter] {
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}

	validTracingExporters := map[string]bool{ExporterOTLP: true, ExporterStdout: true, ExporterNone: true}
	if c.TracingExporter != "" && !validTracingExporters[c.TracingExporter] {
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	if c.OTLPEndpoint == "" && (c.TracingExporter == ExporterOTLP || c.MetricsExporter == ExporterOTLP) {
		return fmt.Errorf("OTLP endpoint is required when using an OTLP exporter")
	}

	return nil
}

// Constants for metric label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	// Agent turn outcomes
	OutcomeResponded = "responded"
	OutcomeExhausted = "exhausted"
	OutcomeDegraded  = "degraded"
	OutcomeCancelled = "cancelled"

	// Completion request outcomes
	CompletionText     = "text"
	CompletionToolCall = "tool_call"
	CompletionTimeout  = "timeout"
	CompletionError    = "error"

	// Ingestion results per message
	IngestIndexed = "indexed"
	IngestFailed  = "failed"
	IngestSkipped = "skipped"

	// Store operations
	OperationIndex    = "index"
	OperationSearch   = "search"
	OperationThread   = "thread"
	OperationUpdate   = "update_metadata"
	OperationGet      = "get"
	OperationCount    = "count"
	OperationPing     = "ping"
	OperationValidate = "validate"

	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"

	DefaultMetricInterval = 10 * time.Second
)
