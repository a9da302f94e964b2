package instrumentation

import (
	"context"
	"testing"
	"time"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Enabled:        false,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if provider.Enabled() {
		t.Error("expected provider to be disabled")
	}
	if provider.Metrics() == nil {
		t.Error("expected metrics to be non-nil even when disabled")
	}
	if provider.Tracer("test") == nil {
		t.Error("expected no-op tracer")
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("expected no error on shutdown, got %v", err)
	}
}

func TestNewProvider_Exporters(t *testing.T) {
	tests := []struct {
		name           string
		metrics        string
		tracing        string
		endpoint       string
		wantErr        bool
		wantPrometheus bool
	}{
		{name: "prometheus without tracing", metrics: ExporterPrometheus, tracing: ExporterNone, wantPrometheus: true},
		{name: "stdout both", metrics: ExporterStdout, tracing: ExporterStdout},
		{name: "invalid metrics exporter", metrics: "invalid", tracing: ExporterNone, wantErr: true},
		{name: "invalid tracing exporter", metrics: ExporterPrometheus, tracing: "invalid", wantErr: true},
		{name: "otlp tracing without endpoint", metrics: ExporterPrometheus, tracing: ExporterOTLP, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			provider, err := NewProvider(ctx, Config{
				ServiceName:       "test-service",
				ServiceVersion:    "1.0.0",
				Enabled:           true,
				MetricsExporter:   tt.metrics,
				TracingExporter:   tt.tracing,
				OTLPEndpoint:      tt.endpoint,
				TraceSamplingRate: 1,
			})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			defer func() { _ = provider.Shutdown(ctx) }()

			if !provider.Enabled() {
				t.Error("expected provider to be enabled")
			}
			if provider.HasPrometheusExporter() != tt.wantPrometheus {
				t.Errorf("HasPrometheusExporter() = %v, want %v", provider.HasPrometheusExporter(), tt.wantPrometheus)
			}
		})
	}
}
