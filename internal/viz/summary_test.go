package viz

import (
	"strings"
	"testing"

	"github.com/buzzcola3/teleview/internal/telemetry"
)

func sampleTiles() []telemetry.TileSnapshot {
	return []telemetry.TileSnapshot{
		{
			ID: "Main",
			Store: telemetry.StoreSnapshot{
				Tabs: []telemetry.TabSnapshot{
					{
						ID: "Telemetry",
						Scalars: []telemetry.ScalarSnapshot{
							{Key: "fps", Value: telemetry.Int(60)},
							{Key: "paused", Value: telemetry.Bool(false)},
						},
						Graphs: []telemetry.GraphSnapshot{
							{Key: "frame_ms", Samples: []float64{16.2}},
						},
					},
				},
			},
		},
		{
			ID: "ai",
			Store: telemetry.StoreSnapshot{
				Tabs: []telemetry.TabSnapshot{
					{ID: "brain", Scalars: []telemetry.ScalarSnapshot{{Key: "state", Value: telemetry.Text("idle")}}},
				},
			},
		},
	}
}

func TestTileSummary(t *testing.T) {
	out := TileSummary(sampleTiles())

	if !strings.Contains(out, "Tiles (2 active, 4 entries)") {
		t.Errorf("expected header with totals, got:\n%s", out)
	}
	if !strings.Contains(out, "Main") || !strings.Contains(out, "ai") {
		t.Errorf("expected both tile names, got:\n%s", out)
	}
	// The heavier tile gets the full bar budget.
	if !strings.Contains(out, "####################") {
		t.Errorf("expected a full bar for the dominant tile, got:\n%s", out)
	}
	if !strings.Contains(out, "3 entries, 1 tabs") {
		t.Errorf("expected per-tile counts, got:\n%s", out)
	}
}

func TestTileSummaryEmpty(t *testing.T) {
	if out := TileSummary(nil); out != "" {
		t.Errorf("expected empty output for no tiles, got %q", out)
	}
}

func TestTileSummaryCountsNestedTiles(t *testing.T) {
	tiles := []telemetry.TileSnapshot{
		{
			ID: "outer",
			Store: telemetry.StoreSnapshot{
				Tiles: []telemetry.TileSnapshot{
					{
						ID: "inner",
						Store: telemetry.StoreSnapshot{
							Tabs: []telemetry.TabSnapshot{
								{ID: "t", Scalars: []telemetry.ScalarSnapshot{{Key: "k", Value: telemetry.Int(1)}}},
							},
						},
					},
				},
			},
		},
	}

	out := TileSummary(tiles)
	if !strings.Contains(out, "1 entries") {
		t.Errorf("nested tile content should count toward the parent, got:\n%s", out)
	}
}

func TestGraphFill(t *testing.T) {
	line := GraphFill("fps", 120, 240)

	if !strings.Contains(line, "fps") {
		t.Errorf("expected label, got %q", line)
	}
	if !strings.Contains(line, "##########..........") {
		t.Errorf("expected half-full bar, got %q", line)
	}
	if !strings.Contains(line, "120 / 240") {
		t.Errorf("expected counts, got %q", line)
	}
}

func TestFormatCount(t *testing.T) {
	cases := map[int]string{
		0:         "0",
		999:       "999",
		1000:      "1,000",
		10500:     "10,500",
		2_000_001: "2,000,001",
	}
	for n, want := range cases {
		if got := formatCount(n); got != want {
			t.Errorf("formatCount(%d) = %q, want %q", n, got, want)
		}
	}
}
