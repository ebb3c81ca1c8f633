package mcpserver

import (
	"context"
	"testing"
	"time"

	"github.com/buzzcola3/teleview/internal/service"
	"github.com/buzzcola3/teleview/internal/telemetry"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	svc := service.New()
	svc.Start(service.Options{TickInterval: time.Millisecond})
	t.Cleanup(svc.Shutdown)

	svc.PostValue("", "fps", telemetry.Int(60))
	svc.PostValue("", "paused", telemetry.Bool(false))
	svc.PostGraphSample("", "frame_ms", 16.2)
	svc.PostGraphSample("", "frame_ms", 17.1)
	svc.PostStructure("", "scene", func(b telemetry.Builder) {
		b.Field("entities", telemetry.Int(4))
		cam := b.Nested("camera")
		cam.Field("fov", telemetry.Float(72))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := svc.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	target := svc.Generation() + 1
	deadline := time.Now().Add(5 * time.Second)
	for svc.Generation() < target {
		if time.Now().After(deadline) {
			t.Fatal("no snapshot published")
		}
		time.Sleep(time.Millisecond)
	}

	server, err := NewServer(svc)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return server
}

func TestServerCreation(t *testing.T) {
	server := newTestServer(t)
	if server.mcpServer == nil {
		t.Fatal("mcp server is nil")
	}
}

func TestServerCreationNilService(t *testing.T) {
	_, err := NewServer(nil)
	if err == nil {
		t.Fatal("expected error for nil service, got nil")
	}
}

func TestGetStatusTool(t *testing.T) {
	server := newTestServer(t)

	_, out, err := server.handleGetStatus(context.Background(), nil, GetStatusInput{})
	if err != nil {
		t.Fatalf("get_status: %v", err)
	}
	if out.State != "running" {
		t.Errorf("state = %q, want running", out.State)
	}
	if out.Generation == 0 {
		t.Error("generation should have advanced")
	}
	if out.Tiles != 1 {
		t.Errorf("tiles = %d, want 1", out.Tiles)
	}
}

func TestListTilesTool(t *testing.T) {
	server := newTestServer(t)

	_, out, err := server.handleListTiles(context.Background(), nil, ListTilesInput{})
	if err != nil {
		t.Fatalf("list_tiles: %v", err)
	}
	if len(out.Tiles) != 1 {
		t.Fatalf("tiles = %+v, want one", out.Tiles)
	}
	tile := out.Tiles[0]
	if tile.ID != "Main" || len(tile.Tabs) != 1 || tile.Tabs[0] != "Telemetry" {
		t.Errorf("tile = %+v", tile)
	}
}

func TestGetTabTool(t *testing.T) {
	server := newTestServer(t)

	// Empty ids resolve to the default tile and tab.
	_, out, err := server.handleGetTab(context.Background(), nil, GetTabInput{})
	if err != nil {
		t.Fatalf("get_tab: %v", err)
	}
	if out.Tile != "Main" || out.Tab != "Telemetry" {
		t.Errorf("resolved to %s/%s", out.Tile, out.Tab)
	}
	if len(out.Scalars) != 2 {
		t.Errorf("scalars = %+v", out.Scalars)
	}
	if len(out.Graphs) != 1 || out.Graphs[0].Samples != 2 {
		t.Errorf("graphs = %+v", out.Graphs)
	}
	if len(out.Structures) != 1 || out.Structures[0] != "scene" {
		t.Errorf("structures = %+v", out.Structures)
	}

	_, _, err = server.handleGetTab(context.Background(), nil, GetTabInput{Tab: "nope"})
	if err == nil {
		t.Error("expected error for unknown tab")
	}
}

func TestGetGraphTool(t *testing.T) {
	server := newTestServer(t)

	_, out, err := server.handleGetGraph(context.Background(), nil, GetGraphInput{Key: "frame_ms"})
	if err != nil {
		t.Fatalf("get_graph: %v", err)
	}
	if len(out.Samples) != 2 {
		t.Fatalf("samples = %v", out.Samples)
	}
	if out.Min != 16.2 || out.Max != 17.1 {
		t.Errorf("min/max = %g/%g", out.Min, out.Max)
	}
	if out.Latest != 17.1 {
		t.Errorf("latest = %g", out.Latest)
	}

	_, _, err = server.handleGetGraph(context.Background(), nil, GetGraphInput{Key: "missing"})
	if err == nil {
		t.Error("expected error for unknown graph")
	}
}

func TestGetStructureTool(t *testing.T) {
	server := newTestServer(t)

	_, out, err := server.handleGetStructure(context.Background(), nil, GetStructureInput{Key: "scene"})
	if err != nil {
		t.Fatalf("get_structure: %v", err)
	}
	if len(out.Root.Children) != 2 {
		t.Fatalf("root children = %+v", out.Root.Children)
	}
	if out.Root.Children[1].Label != "camera" {
		t.Errorf("nested group = %+v", out.Root.Children[1])
	}
}

func TestPublishValueTool(t *testing.T) {
	server := newTestServer(t)

	_, _, err := server.handlePublishValue(context.Background(), nil, PublishValueInput{
		Key: "phase", Type: "text", Value: "load-test",
	})
	if err != nil {
		t.Fatalf("publish_value: %v", err)
	}
	if _, _, err := server.handleSync(context.Background(), nil, SyncInput{}); err != nil {
		t.Fatalf("sync: %v", err)
	}

	// The write is applied, but may not be published yet; read the tab
	// until it shows up.
	deadline := time.Now().Add(5 * time.Second)
	for {
		_, out, err := server.handleGetTab(context.Background(), nil, GetTabInput{})
		if err == nil {
			found := false
			for _, entry := range out.Scalars {
				if entry.Key == "phase" && entry.Value == "load-test" {
					found = true
				}
			}
			if found {
				return
			}
		}
		if time.Now().After(deadline) {
			t.Fatal("published value never appeared in a snapshot")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPublishValueParsing(t *testing.T) {
	server := newTestServer(t)

	cases := []struct {
		name    string
		input   PublishValueInput
		wantErr bool
	}{
		{"int", PublishValueInput{Key: "k", Type: "int", Value: "42"}, false},
		{"float", PublishValueInput{Key: "k", Type: "float", Value: "0.5"}, false},
		{"bool", PublishValueInput{Key: "k", Type: "bool", Value: "true"}, false},
		{"untyped defaults to text", PublishValueInput{Key: "k", Value: "hello"}, false},
		{"bad int", PublishValueInput{Key: "k", Type: "int", Value: "abc"}, true},
		{"unknown type", PublishValueInput{Key: "k", Type: "blob", Value: "x"}, true},
		{"empty key", PublishValueInput{Type: "int", Value: "1"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := server.handlePublishValue(context.Background(), nil, tc.input)
			if (err != nil) != tc.wantErr {
				t.Errorf("err = %v, wantErr = %v", err, tc.wantErr)
			}
		})
	}
}

func TestGetIngestEndpointWithoutIngest(t *testing.T) {
	server := newTestServer(t)

	_, out, err := server.handleGetIngestEndpoint(context.Background(), nil, GetIngestEndpointInput{})
	if err != nil {
		t.Fatalf("get_ingest_endpoint: %v", err)
	}
	if out.Endpoint != "" || out.Message == "" {
		t.Errorf("output = %+v, want empty endpoint with message", out)
	}
}
