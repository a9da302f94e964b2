package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/amodeus4/emailagent/internal/email"
	"github.com/amodeus4/emailagent/internal/store"
)

// Resource URIs.
const (
	StatusURI          = "email://index/status"
	MessageURIPrefix   = "email://messages/"
	messageURITemplate = MessageURIPrefix + "{id}"
)

// Store is the part of the email store the resources read.
type Store interface {
	Count(ctx context.Context) (int, error)
	Get(ctx context.Context, id string) (*email.Document, error)
}

// StatusData is the content of the index status resource.
type StatusData struct {
	Status    string `json:"status"`
	Documents int    `json:"documents"`
	Error     string `json:"error,omitempty"`
}

// RegisterIndexResources registers the index status resource and the
// per-message resource template.
func RegisterIndexResources(s *mcpserver.MCPServer, st Store) {
	status := mcp.NewResource(
		StatusURI,
		"Email Index Status",
		mcp.WithResourceDescription("Number of indexed emails and whether the index is reachable"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(status, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleStatus(ctx, request, st)
	})

	message := mcp.NewResourceTemplate(
		messageURITemplate,
		"Indexed Email",
		mcp.WithTemplateDescription("An indexed email with its extracted attachment text"),
		mcp.WithTemplateMIMEType("text/plain"),
	)
	s.AddResourceTemplate(message, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleMessage(ctx, request, st)
	})
}

// handleStatus reports an unreachable index in the content rather than as
// an error, so clients can show it.
func handleStatus(ctx context.Context, request mcp.ReadResourceRequest, st Store) ([]mcp.ResourceContents, error) {
	data := StatusData{Status: "ok"}
	n, err := st.Count(ctx)
	if err != nil {
		data.Status = "unavailable"
		data.Error = err.Error()
	}
	data.Documents = n

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

func handleMessage(ctx context.Context, request mcp.ReadResourceRequest, st Store) ([]mcp.ResourceContents, error) {
	id := strings.TrimPrefix(request.Params.URI, MessageURIPrefix)
	if id == "" || id == request.Params.URI {
		return nil, fmt.Errorf("invalid message URI: %s", request.Params.URI)
	}

	doc, err := st.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("no indexed email with id %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read email %s: %w", id, err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "text/plain",
			Text:     doc.Context(true),
		},
	}, nil
}
