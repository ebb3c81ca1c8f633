// Package mcpserver exposes the live telemetry view to agents over
// MCP. Read tools consume published snapshots; write tools post
// commands through the service queue like any other producer, so an
// agent can drop markers into the same view a human is watching.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/buzzcola3/teleview/internal/otlpingest"
	"github.com/buzzcola3/teleview/internal/service"
)

// Server wraps the MCP server around the telemetry service.
type Server struct {
	mcpServer *mcp.Server
	svc       *service.Service
	ingest    *otlpingest.Server // optional, for endpoint discovery
	verbose   bool
}

// ServerOptions configures the MCP server.
type ServerOptions struct {
	// Ingest, when set, is reported by the get_ingest_endpoint tool so
	// agents can point OTLP exporters at it.
	Ingest *otlpingest.Server
	// Verbose enables verbose logging.
	Verbose bool
}

// NewServer creates an MCP server exposing snapshot reads and queued
// writes over the given telemetry service.
func NewServer(svc *service.Service, opts ...ServerOptions) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("telemetry service cannot be nil")
	}

	s := &Server{svc: svc}
	if len(opts) > 0 {
		s.ingest = opts[0].Ingest
		s.verbose = opts[0].Verbose
	}

	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    "teleview",
		Title:   "Live Telemetry View for Agents",
		Version: "0.2.0",
	}, &mcp.ServerOptions{
		Instructions: `Live in-process telemetry view. Producers publish scalars, rolling graphs, and structure trees into tiles and tabs; this server reads the latest published snapshot.

Workflow: get_status -> list_tiles -> get_tab/get_graph/get_structure. Use publish_value to drop markers (e.g. "test-started") into the view, sync to wait until writes are visible.

Resources: teleview://status, teleview://tiles, teleview://tiles/{tile}.`,
		SubscribeHandler:   func(_ context.Context, _ *mcp.SubscribeRequest) error { return nil },
		UnsubscribeHandler: func(_ context.Context, _ *mcp.UnsubscribeRequest) error { return nil },
	})

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	s.registerResources()

	return s, nil
}

// Run starts the MCP server on stdio transport. This method blocks
// until the context is cancelled or EOF is received on stdin.
func (s *Server) Run(ctx context.Context) error {
	transport := &mcp.StdioTransport{}
	return s.mcpServer.Run(ctx, transport)
}

// MCPServer returns the underlying mcp.Server for use with alternative
// transports such as StreamableHTTPHandler.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}
