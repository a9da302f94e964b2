package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

// MCPEndpoint is the path of the streamable-http MCP endpoint.
const MCPEndpoint = "/mcp"

// HTTPServerConfig configures an HTTPServer.
type HTTPServerConfig struct {
	Addr string

	// Stateless disables MCP session tracking.
	Stateless bool

	Logger *slog.Logger
}

// HTTPServer serves an MCP server over streamable-http together with the
// health endpoints.
type HTTPServer struct {
	httpServer *http.Server
	health     *HealthChecker
	addr       string
	logger     *slog.Logger
}

// NewHTTPServer creates the HTTP front end for mcpSrv.
func NewHTTPServer(mcpSrv *mcpserver.MCPServer, sc *ServerContext, config HTTPServerConfig) *HTTPServer {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	opts := []mcpserver.StreamableHTTPOption{mcpserver.WithEndpointPath(MCPEndpoint)}
	if config.Stateless {
		opts = append(opts, mcpserver.WithStateLess(true))
	}
	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv, opts...)

	health := NewHealthChecker(sc)
	mux := http.NewServeMux()
	mux.Handle(MCPEndpoint, streamable)
	health.RegisterHealthEndpoints(mux)

	return &HTTPServer{
		addr:   config.Addr,
		health: health,
		logger: config.Logger,
		httpServer: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
			BaseContext: func(net.Listener) context.Context {
				if sc != nil {
					return sc.Context()
				}
				return context.Background()
			},
		},
	}
}

// Handler returns the request router.
func (s *HTTPServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// Health returns the health checker behind /healthz and /readyz.
func (s *HTTPServer) Health() *HealthChecker {
	return s.health
}

// Start listens on the configured address and serves until Shutdown.
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.addr = ln.Addr().String()
	s.logger.Info("starting MCP HTTP server", "addr", s.addr, "endpoint", MCPEndpoint)
	return s.httpServer.Serve(ln)
}

// Shutdown marks the server not ready and drains connections.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	return s.httpServer.Shutdown(ctx)
}
