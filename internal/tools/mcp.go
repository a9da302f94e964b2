package tools

import (
	"context"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// RegisterMCP exposes every tool of r on an MCP server. Tool failures are
// returned as error results so the client sees the message.
func RegisterMCP(s *mcpserver.MCPServer, r *Registry) {
	for _, def := range r.Catalogue() {
		name := def.Name
		s.AddTool(def, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			out, err := r.Execute(ctx, Call{
				ID:     uuid.NewString(),
				Name:   name,
				Params: request.GetArguments(),
			})
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(out), nil
		})
	}
}
