package mcpserver

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/buzzcola3/teleview/internal/viz"
)

// registerResources registers all MCP resources and resource templates.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "teleview://status",
		Name:        "status",
		Description: "Service state, snapshot generation, and tile count.",
		MIMEType:    "text/plain",
	}, s.handleStatusResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "teleview://tiles",
		Name:        "tiles",
		Description: "All tiles with their tabs and content counts.",
		MIMEType:    "text/plain",
	}, s.handleTilesResource)

	s.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "teleview://tiles/{tile}",
		Name:        "tile-detail",
		Description: "Full rendered content of one tile: every tab with its scalars, graphs, and structure trees.",
		MIMEType:    "text/plain",
	}, s.handleTileDetailResource)
}

// ─── Static resource handlers ───────────────────────────────────────────

func (s *Server) handleStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	var b strings.Builder
	b.WriteString("Telemetry Service\n")
	b.WriteString("═════════════════\n")
	fmt.Fprintf(&b, "  State:       %s\n", s.svc.State())
	fmt.Fprintf(&b, "  Generation:  %d\n", s.svc.Generation())
	if snap := s.svc.Snapshot(); snap != nil {
		fmt.Fprintf(&b, "  Tiles:       %d\n", len(snap.Tiles))
		fmt.Fprintf(&b, "  Taken at:    %s\n", snap.TakenAt.Format("15:04:05.000"))
	} else {
		b.WriteString("  No snapshot published yet\n")
	}
	return textResult(req.Params.URI, b.String()), nil
}

func (s *Server) handleTilesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	snap, err := s.currentSnapshot()
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("Tiles\n")
	b.WriteString("═════\n")
	if summary := viz.TileSummary(snap.Tiles); summary != "" {
		b.WriteString(summary)
		b.WriteString("\n")
	}
	for _, tile := range snap.Tiles {
		fmt.Fprintf(&b, "  %s (%q)\n", tile.ID, tile.Store.WindowTitle)
		for _, tab := range tile.Store.Tabs {
			fmt.Fprintf(&b, "    • %s: %d values, %d graphs, %d structures\n",
				tab.ID, len(tab.Scalars), len(tab.Graphs), len(tab.Structures))
		}
	}
	return textResult(req.Params.URI, b.String()), nil
}

// ─── Template resource handlers ─────────────────────────────────────────

func (s *Server) handleTileDetailResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	tileID, err := templateParam(req.Params.URI, "teleview://tiles/")
	if err != nil {
		return nil, err
	}

	snap, err := s.currentSnapshot()
	if err != nil {
		return nil, err
	}
	store, ok := snap.Tile(tileID)
	if !ok {
		return nil, fmt.Errorf("tile %q not found", tileID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tile %s (%q)\n", tileID, store.WindowTitle)
	b.WriteString("═══════════════════════\n")
	for _, tab := range store.Tabs {
		fmt.Fprintf(&b, "\n[%s]\n", tab.Title)
		for _, entry := range tab.Scalars {
			fmt.Fprintf(&b, "  %-24s %s\n", entry.Key, entry.Value.String())
		}
		for _, g := range tab.Graphs {
			fmt.Fprintf(&b, "  %s\n", viz.GraphLine(g, 40))
		}
		for _, st := range tab.Structures {
			fmt.Fprintf(&b, "  %s:\n", st.Key)
			b.WriteString(viz.StructureTree(st.Root.Children, "    "))
		}
	}
	return textResult(req.Params.URI, b.String()), nil
}

// templateParam extracts and unescapes the trailing template parameter
// from a resource URI.
func templateParam(uri, prefix string) (string, error) {
	param := strings.TrimPrefix(uri, prefix)
	if param == uri || param == "" {
		return "", fmt.Errorf("invalid resource URI %q", uri)
	}
	decoded, err := url.PathUnescape(param)
	if err != nil {
		return "", fmt.Errorf("invalid resource URI %q: %w", uri, err)
	}
	return decoded, nil
}

func textResult(uri, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:  uri,
			Text: text,
		}},
	}
}
