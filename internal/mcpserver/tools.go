package mcpserver

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/buzzcola3/teleview/internal/service"
	"github.com/buzzcola3/teleview/internal/telemetry"
)

// ═══════════════════════════════════════════════════════════════════════════
// SNAPSHOT-FIRST MCP TOOLS
//
// Read tools never touch the live store; they decode the latest
// published snapshot. Write tools go through the service queue and are
// applied on the owner goroutine like any other producer's commands.
//
// 1. get_status           - service lifecycle, generation, tile count
// 2. list_tiles           - tiles with their tabs
// 3. get_tab              - everything on one tab
// 4. get_graph            - one rolling graph with summary stats
// 5. get_structure        - one structure tree
// 6. publish_value        - write a scalar marker into the view
// 7. publish_graph_sample - append a graph sample
// 8. clear_tab            - wipe one tab's content
// 9. sync                 - barrier: wait until prior writes applied
// 10. get_ingest_endpoint - OTLP endpoint for external exporters
// ═══════════════════════════════════════════════════════════════════════════

// Tool 1: get_status

type GetStatusInput struct{}

type GetStatusOutput struct {
	State      string `json:"state" jsonschema:"Service lifecycle state (stopped, starting, running, stopping)"`
	Generation uint64 `json:"generation" jsonschema:"Snapshot publish counter, one per update cycle"`
	Tiles      int    `json:"tiles" jsonschema:"Number of top-level tiles"`
	TakenAt    string `json:"taken_at,omitempty" jsonschema:"Timestamp of the latest snapshot (RFC3339)"`
}

func (s *Server) handleGetStatus(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetStatusInput,
) (*mcp.CallToolResult, GetStatusOutput, error) {
	out := GetStatusOutput{
		State:      s.svc.State().String(),
		Generation: s.svc.Generation(),
	}
	if snap := s.svc.Snapshot(); snap != nil {
		out.Tiles = len(snap.Tiles)
		out.TakenAt = snap.TakenAt.Format(time.RFC3339Nano)
	}
	return &mcp.CallToolResult{}, out, nil
}

// Tool 2: list_tiles

type ListTilesInput struct{}

type TileInfo struct {
	ID      string   `json:"id" jsonschema:"Tile id used to address it in other tools"`
	Title   string   `json:"title" jsonschema:"Display title"`
	Visible bool     `json:"visible" jsonschema:"Whether the tile is currently shown"`
	Tabs    []string `json:"tabs" jsonschema:"Tab ids on this tile"`
}

type ListTilesOutput struct {
	Tiles []TileInfo `json:"tiles" jsonschema:"All top-level tiles in creation order"`
}

func (s *Server) handleListTiles(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ListTilesInput,
) (*mcp.CallToolResult, ListTilesOutput, error) {
	snap, err := s.currentSnapshot()
	if err != nil {
		return nil, ListTilesOutput{}, err
	}
	out := ListTilesOutput{Tiles: []TileInfo{}}
	for _, tile := range snap.Tiles {
		info := TileInfo{
			ID:      tile.ID,
			Title:   tile.Store.WindowTitle,
			Visible: tile.Store.Visible,
			Tabs:    []string{},
		}
		for _, tab := range tile.Store.Tabs {
			info.Tabs = append(info.Tabs, tab.ID)
		}
		out.Tiles = append(out.Tiles, info)
	}
	return &mcp.CallToolResult{}, out, nil
}

// Tool 3: get_tab

type GetTabInput struct {
	Tile string `json:"tile,omitempty" jsonschema:"Tile id (empty = default tile)"`
	Tab  string `json:"tab,omitempty" jsonschema:"Tab id (empty = default tab)"`
}

type ScalarEntry struct {
	Key   string `json:"key" jsonschema:"Scalar key"`
	Type  string `json:"type" jsonschema:"Value type: int, float, bool, or text"`
	Value string `json:"value" jsonschema:"Rendered value"`
}

type GraphEntry struct {
	Key     string  `json:"key" jsonschema:"Graph key"`
	Samples int     `json:"samples" jsonschema:"Number of retained samples"`
	Latest  float64 `json:"latest" jsonschema:"Most recent sample"`
	MaxSize int     `json:"max_size" jsonschema:"Retention capacity"`
}

type GetTabOutput struct {
	Tile       string        `json:"tile" jsonschema:"Resolved tile id"`
	Tab        string        `json:"tab" jsonschema:"Resolved tab id"`
	Title      string        `json:"title" jsonschema:"Tab display title"`
	Scalars    []ScalarEntry `json:"scalars" jsonschema:"All scalar values on the tab"`
	Graphs     []GraphEntry  `json:"graphs" jsonschema:"All rolling graphs on the tab"`
	Structures []string      `json:"structures" jsonschema:"Keys of structure trees with content"`
}

func (s *Server) handleGetTab(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetTabInput,
) (*mcp.CallToolResult, GetTabOutput, error) {
	tileID, tab, err := s.findTab(input.Tile, input.Tab)
	if err != nil {
		return nil, GetTabOutput{}, err
	}
	out := GetTabOutput{
		Tile:       tileID,
		Tab:        tab.ID,
		Title:      tab.Title,
		Scalars:    []ScalarEntry{},
		Graphs:     []GraphEntry{},
		Structures: []string{},
	}
	for _, entry := range tab.Scalars {
		out.Scalars = append(out.Scalars, ScalarEntry{
			Key:   entry.Key,
			Type:  entry.Value.Kind().String(),
			Value: entry.Value.String(),
		})
	}
	for _, g := range tab.Graphs {
		out.Graphs = append(out.Graphs, GraphEntry{
			Key:     g.Key,
			Samples: len(g.Samples),
			Latest:  g.Latest,
			MaxSize: g.Config.MaxSamples,
		})
	}
	for _, st := range tab.Structures {
		out.Structures = append(out.Structures, st.Key)
	}
	return &mcp.CallToolResult{}, out, nil
}

// Tool 4: get_graph

type GetGraphInput struct {
	Tile string `json:"tile,omitempty" jsonschema:"Tile id (empty = default tile)"`
	Tab  string `json:"tab,omitempty" jsonschema:"Tab id (empty = default tab)"`
	Key  string `json:"key" jsonschema:"Graph key"`
}

type GetGraphOutput struct {
	Key     string                `json:"key" jsonschema:"Graph key"`
	Config  telemetry.GraphConfig `json:"config" jsonschema:"Retention and scaling config"`
	Samples []float64             `json:"samples" jsonschema:"Retained samples, oldest first"`
	Latest  float64               `json:"latest" jsonschema:"Most recent sample"`
	Min     float64               `json:"min" jsonschema:"Minimum retained sample"`
	Max     float64               `json:"max" jsonschema:"Maximum retained sample"`
	Mean    float64               `json:"mean" jsonschema:"Mean of retained samples"`
}

func (s *Server) handleGetGraph(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetGraphInput,
) (*mcp.CallToolResult, GetGraphOutput, error) {
	_, tab, err := s.findTab(input.Tile, input.Tab)
	if err != nil {
		return nil, GetGraphOutput{}, err
	}
	g, ok := tab.Graph(input.Key)
	if !ok {
		return nil, GetGraphOutput{}, fmt.Errorf("graph %q not found on tab %q", input.Key, tab.ID)
	}
	out := GetGraphOutput{
		Key:     g.Key,
		Config:  g.Config,
		Samples: g.Samples,
		Latest:  g.Latest,
	}
	if len(g.Samples) > 0 {
		out.Min, out.Max = g.Samples[0], g.Samples[0]
		sum := 0.0
		for _, v := range g.Samples {
			if v < out.Min {
				out.Min = v
			}
			if v > out.Max {
				out.Max = v
			}
			sum += v
		}
		out.Mean = sum / float64(len(g.Samples))
	}
	return &mcp.CallToolResult{}, out, nil
}

// Tool 5: get_structure

type GetStructureInput struct {
	Tile string `json:"tile,omitempty" jsonschema:"Tile id (empty = default tile)"`
	Tab  string `json:"tab,omitempty" jsonschema:"Tab id (empty = default tab)"`
	Key  string `json:"key" jsonschema:"Structure key"`
}

type GetStructureOutput struct {
	Key  string                  `json:"key" jsonschema:"Structure key"`
	Root telemetry.StructureNode `json:"root" jsonschema:"Tree root; children carry labels and optional values"`
}

func (s *Server) handleGetStructure(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetStructureInput,
) (*mcp.CallToolResult, GetStructureOutput, error) {
	_, tab, err := s.findTab(input.Tile, input.Tab)
	if err != nil {
		return nil, GetStructureOutput{}, err
	}
	root, ok := tab.Structure(input.Key)
	if !ok {
		return nil, GetStructureOutput{}, fmt.Errorf("structure %q not found on tab %q", input.Key, tab.ID)
	}
	return &mcp.CallToolResult{}, GetStructureOutput{Key: input.Key, Root: root}, nil
}

// Tool 6: publish_value

type PublishValueInput struct {
	Tab   string `json:"tab,omitempty" jsonschema:"Tab id (empty = default tab)"`
	Key   string `json:"key" jsonschema:"Scalar key"`
	Type  string `json:"type" jsonschema:"Value type: int, float, bool, or text"`
	Value string `json:"value" jsonschema:"Value, parsed according to type"`
}

type PublishValueOutput struct {
	Message string `json:"message" jsonschema:"Confirmation"`
}

func (s *Server) handlePublishValue(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input PublishValueInput,
) (*mcp.CallToolResult, PublishValueOutput, error) {
	if input.Key == "" {
		return nil, PublishValueOutput{}, fmt.Errorf("key cannot be empty")
	}
	value, err := parseScalar(input.Type, input.Value)
	if err != nil {
		return nil, PublishValueOutput{}, err
	}
	s.svc.PostValue(input.Tab, input.Key, value)
	return &mcp.CallToolResult{}, PublishValueOutput{
		Message: fmt.Sprintf("queued %s = %s", input.Key, value.String()),
	}, nil
}

// Tool 7: publish_graph_sample

type PublishGraphSampleInput struct {
	Tab    string  `json:"tab,omitempty" jsonschema:"Tab id (empty = default tab)"`
	Key    string  `json:"key" jsonschema:"Graph key"`
	Sample float64 `json:"sample" jsonschema:"Sample value to append"`
}

type PublishGraphSampleOutput struct {
	Message string `json:"message" jsonschema:"Confirmation"`
}

func (s *Server) handlePublishGraphSample(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input PublishGraphSampleInput,
) (*mcp.CallToolResult, PublishGraphSampleOutput, error) {
	if input.Key == "" {
		return nil, PublishGraphSampleOutput{}, fmt.Errorf("key cannot be empty")
	}
	s.svc.PostGraphSample(input.Tab, input.Key, input.Sample)
	return &mcp.CallToolResult{}, PublishGraphSampleOutput{
		Message: fmt.Sprintf("queued sample %g onto %s", input.Sample, input.Key),
	}, nil
}

// Tool 8: clear_tab

type ClearTabInput struct {
	Tab string `json:"tab,omitempty" jsonschema:"Tab id to clear (empty = default tab)"`
}

type ClearTabOutput struct {
	Message string `json:"message" jsonschema:"Confirmation"`
}

func (s *Server) handleClearTab(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ClearTabInput,
) (*mcp.CallToolResult, ClearTabOutput, error) {
	s.svc.PostClearTab(input.Tab)
	return &mcp.CallToolResult{}, ClearTabOutput{Message: "queued tab clear"}, nil
}

// Tool 9: sync

type SyncInput struct{}

type SyncOutput struct {
	Generation uint64 `json:"generation" jsonschema:"Publish generation after the barrier"`
}

func (s *Server) handleSync(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SyncInput,
) (*mcp.CallToolResult, SyncOutput, error) {
	if err := s.svc.Sync(ctx); err != nil {
		return nil, SyncOutput{}, fmt.Errorf("sync failed: %w", err)
	}
	return &mcp.CallToolResult{}, SyncOutput{Generation: s.svc.Generation()}, nil
}

// Tool 10: get_ingest_endpoint

type GetIngestEndpointInput struct{}

type GetIngestEndpointOutput struct {
	Endpoint        string            `json:"endpoint,omitempty" jsonschema:"OTLP gRPC metrics endpoint address"`
	Protocol        string            `json:"protocol" jsonschema:"Protocol type (grpc)"`
	EnvironmentVars map[string]string `json:"environment_vars,omitempty" jsonschema:"Suggested environment variables for exporters"`
	Message         string            `json:"message,omitempty" jsonschema:"Set when no ingest endpoint is running"`
}

func (s *Server) handleGetIngestEndpoint(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetIngestEndpointInput,
) (*mcp.CallToolResult, GetIngestEndpointOutput, error) {
	if s.ingest == nil {
		return &mcp.CallToolResult{}, GetIngestEndpointOutput{
			Protocol: "grpc",
			Message:  "no OTLP ingest endpoint is running",
		}, nil
	}
	endpoint := s.ingest.Endpoint()
	return &mcp.CallToolResult{}, GetIngestEndpointOutput{
		Endpoint: endpoint,
		Protocol: "grpc",
		EnvironmentVars: map[string]string{
			"OTEL_EXPORTER_OTLP_ENDPOINT": endpoint,
			"OTEL_EXPORTER_OTLP_PROTOCOL": "grpc",
		},
	}, nil
}

// ─── Registration and helpers ───────────────────────────────────────────

func (s *Server) registerTools() error {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_status",
		Description: "🚀 START HERE: Check the telemetry service state and snapshot generation. The generation counter advances once per update cycle, so two reads with the same generation saw identical data. Call before reading to confirm the view is live.",
	}, s.handleGetStatus)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_tiles",
		Description: "Discover the shape of the telemetry view: every top-level tile with its title, visibility, and tab ids. Use the returned ids to address get_tab, get_graph, and get_structure.",
	}, s.handleListTiles)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_tab",
		Description: "Read everything on one tab: scalar values with their types, rolling graphs with latest sample and retention, and structure tree keys. The go-to tool for 'what is the program reporting right now?'.",
	}, s.handleGetTab)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_graph",
		Description: "Read one rolling graph in full: retained samples oldest-first plus min/max/mean summary stats. Use for trend questions like 'is frame time degrading?' or 'did memory spike during the test?'.",
	}, s.handleGetGraph)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_structure",
		Description: "Read one structure tree: nested labeled nodes with optional values, mirroring the program's object state (scene graphs, entity lists, config dumps). Rebuilt wholesale by the producer each time it publishes.",
	}, s.handleGetStructure)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "publish_value",
		Description: "Write a scalar into the view through the same queue producers use. Handy for dropping markers the human watching the UI can see: publish_value(key='phase', type='text', value='load-test-started'). The write lands on the next update cycle.",
	}, s.handlePublishValue)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "publish_graph_sample",
		Description: "Append one sample to a rolling graph, creating the graph if needed. Useful for charting values the agent computes itself alongside the program's own telemetry.",
	}, s.handlePublishGraphSample)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "clear_tab",
		Description: "Wipe all scalars, graphs, and structures from one tab while keeping the tab itself. Use between test runs so stale values cannot be mistaken for fresh ones. For surgical cleanup prefer overwriting individual keys.",
	}, s.handleClearTab)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "sync",
		Description: "Barrier: block until every previously queued write has been applied and report the resulting generation. Call after publish_value/publish_graph_sample when the next read must observe your writes.",
	}, s.handleSync)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_ingest_endpoint",
		Description: "Get the OTLP gRPC metrics endpoint address, if one is running. Point external programs at it via OTEL_EXPORTER_OTLP_ENDPOINT and their gauges/sums appear as rolling graphs in the view.",
	}, s.handleGetIngestEndpoint)

	return nil
}

// currentSnapshot fails cleanly while the service has not published yet.
func (s *Server) currentSnapshot() (*service.SessionSnapshot, error) {
	snap := s.svc.Snapshot()
	if snap == nil {
		return nil, fmt.Errorf("no snapshot published yet; is the service running?")
	}
	return snap, nil
}

// findTab resolves tile and tab ids against the latest snapshot. Empty
// ids fall back to the defaults the service was started with, the same
// resolution producers get when they post with an empty tab id.
func (s *Server) findTab(tileID, tabID string) (string, telemetry.TabSnapshot, error) {
	snap, err := s.currentSnapshot()
	if err != nil {
		return "", telemetry.TabSnapshot{}, err
	}
	if tileID == "" {
		tileID = snap.DefaultTile
	}
	store, ok := snap.Tile(tileID)
	if !ok {
		return "", telemetry.TabSnapshot{}, fmt.Errorf("tile %q not found", tileID)
	}
	if tabID == "" {
		tabID = snap.DefaultTab
	}
	tab, ok := store.Tab(tabID)
	if !ok {
		return "", telemetry.TabSnapshot{}, fmt.Errorf("tab %q not found on tile %q", tabID, tileID)
	}
	return tileID, tab, nil
}

func parseScalar(kind, raw string) (telemetry.Scalar, error) {
	switch kind {
	case "int":
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return telemetry.Scalar{}, fmt.Errorf("invalid int value %q: %w", raw, err)
		}
		return telemetry.Int(n), nil
	case "float":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return telemetry.Scalar{}, fmt.Errorf("invalid float value %q: %w", raw, err)
		}
		return telemetry.Float(f), nil
	case "bool":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return telemetry.Scalar{}, fmt.Errorf("invalid bool value %q: %w", raw, err)
		}
		return telemetry.Bool(b), nil
	case "text", "":
		return telemetry.Text(raw), nil
	default:
		return telemetry.Scalar{}, fmt.Errorf("unknown value type %q (want int, float, bool, or text)", kind)
	}
}
