// Package server hosts the HTTP side of emailagent: the MCP streamable-http
// endpoint, Kubernetes style health probes and the dedicated Prometheus
// metrics listener.
//
// # Key Components
//
// ServerContext owns the process lifetime and the email store the probes
// check.
//
// HTTPServer serves the tool registry over MCP streamable-http at /mcp,
// next to /healthz and /readyz.
//
// MetricsServer exposes /metrics on a separate port so operational metrics
// stay off the MCP listener.
package server
