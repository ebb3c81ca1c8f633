package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func readResource(t *testing.T, uri string,
	handler func(context.Context, *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error)) string {
	t.Helper()
	req := &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: uri},
	}
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("read %s: %v", uri, err)
	}
	if len(result.Contents) != 1 {
		t.Fatalf("contents = %d, want 1", len(result.Contents))
	}
	if result.Contents[0].URI != uri {
		t.Errorf("content uri = %q, want %q", result.Contents[0].URI, uri)
	}
	return result.Contents[0].Text
}

func TestStatusResource(t *testing.T) {
	server := newTestServer(t)

	text := readResource(t, "teleview://status", server.handleStatusResource)
	if !strings.Contains(text, "running") {
		t.Errorf("status missing state:\n%s", text)
	}
	if !strings.Contains(text, "Generation") {
		t.Errorf("status missing generation:\n%s", text)
	}
}

func TestTilesResource(t *testing.T) {
	server := newTestServer(t)

	text := readResource(t, "teleview://tiles", server.handleTilesResource)
	if !strings.Contains(text, "Main") {
		t.Errorf("tiles missing default tile:\n%s", text)
	}
	if !strings.Contains(text, "2 values, 1 graphs, 1 structures") {
		t.Errorf("tiles missing content counts:\n%s", text)
	}
}

func TestTileDetailResource(t *testing.T) {
	server := newTestServer(t)

	text := readResource(t, "teleview://tiles/Main", server.handleTileDetailResource)
	for _, want := range []string{"fps", "frame_ms", "scene", "camera", "fov: 72.000"} {
		if !strings.Contains(text, want) {
			t.Errorf("detail missing %q:\n%s", want, text)
		}
	}
}

func TestTileDetailResourceUnknownTile(t *testing.T) {
	server := newTestServer(t)

	req := &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: "teleview://tiles/ghost"},
	}
	if _, err := server.handleTileDetailResource(context.Background(), req); err == nil {
		t.Fatal("expected error for unknown tile")
	}
}

func TestTemplateParam(t *testing.T) {
	got, err := templateParam("teleview://tiles/ai%20brain", "teleview://tiles/")
	if err != nil {
		t.Fatal(err)
	}
	if got != "ai brain" {
		t.Errorf("param = %q", got)
	}

	if _, err := templateParam("teleview://tiles/", "teleview://tiles/"); err == nil {
		t.Error("expected error for empty param")
	}
}
