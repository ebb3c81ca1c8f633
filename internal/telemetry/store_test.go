package telemetry

import "testing"

// TestStoreDefaultTab verifies the default tab exists from construction.
func TestStoreDefaultTab(t *testing.T) {
	s := NewStore()

	ids := s.TabIDs()
	if len(ids) != 1 || ids[0] != DefaultTabID {
		t.Fatalf("expected only the default tab, got %v", ids)
	}
	if s.DefaultTab() != s.FindTab(DefaultTabID) {
		t.Fatal("DefaultTab must resolve to the stored default tab")
	}
}

// TestStoreEnsureTabStability verifies get-or-create returns the same
// underlying tab and that a later non-empty title renames in place.
func TestStoreEnsureTabStability(t *testing.T) {
	s := NewStore()

	first := s.EnsureTab("ai", "")
	second := s.EnsureTab("ai", "")
	if first != second {
		t.Fatal("two calls with the same id must return the same tab")
	}

	first.UpdateValue("seen", Bool(true))
	if _, ok := second.Scalar("seen"); !ok {
		t.Fatal("mutation through one handle must be visible through the other")
	}

	s.EnsureTab("ai", "AI Debug")
	if first.Title() != "AI Debug" {
		t.Fatalf("expected rename without duplication, got title %q", first.Title())
	}
	if len(s.TabIDs()) != 2 {
		t.Fatalf("expected 2 tabs, got %v", s.TabIDs())
	}
}

// TestStoreRemoveTab verifies the default tab is irremovable and other
// tabs are removed precisely.
func TestStoreRemoveTab(t *testing.T) {
	s := NewStore()
	s.EnsureTab("a", "")
	s.EnsureTab("b", "")

	if s.RemoveTab(DefaultTabID) {
		t.Fatal("removing the default tab must fail")
	}
	if len(s.TabIDs()) != 3 {
		t.Fatalf("tab set must be unchanged after refused removal, got %v", s.TabIDs())
	}

	if !s.RemoveTab("a") {
		t.Fatal("expected removal of tab a")
	}
	ids := s.TabIDs()
	if len(ids) != 2 || ids[0] != DefaultTabID || ids[1] != "b" {
		t.Fatalf("expected [overview b], got %v", ids)
	}

	if s.RemoveTab("a") {
		t.Fatal("removing an absent tab must report false")
	}
}

// TestStoreWindowTiles verifies the recursive tile lifecycle.
func TestStoreWindowTiles(t *testing.T) {
	s := NewStore()

	tile := s.WindowTile("ai")
	if tile == nil {
		t.Fatal("expected a tile")
	}
	if got := s.WindowTileIDs(); len(got) != 1 || got[0] != "ai" {
		t.Fatalf("expected [ai], got %v", got)
	}

	// A tile is a full store: own default tab, own title and visibility.
	if tile.FindTab(DefaultTabID) == nil {
		t.Fatal("tile must own its own default tab")
	}
	if tile.WindowTitle() != "ai" {
		t.Fatalf("tile title should default to its id, got %q", tile.WindowTitle())
	}

	// Get-or-create with rename.
	same := s.WindowTile("ai", "AI Inspector")
	if same != tile {
		t.Fatal("same id must return the same tile store")
	}
	if tile.WindowTitle() != "AI Inspector" {
		t.Fatalf("expected renamed tile, got %q", tile.WindowTitle())
	}

	// Tiles nest recursively.
	inner := tile.WindowTile("pathfinding")
	inner.UpdateValue("nodes", Int(12))
	if v, ok := tile.FindWindowTile("pathfinding").GetScalar("nodes"); !ok {
		t.Fatal("nested tile must hold published data")
	} else if n, _ := v.IntValue(); n != 12 {
		t.Fatalf("expected 12, got %v", v)
	}

	if !s.RemoveWindowTile("ai") {
		t.Fatal("expected tile removal to succeed")
	}
	if got := s.WindowTileIDs(); len(got) != 0 {
		t.Fatalf("expected no tiles after removal, got %v", got)
	}
	if s.RemoveWindowTile("ai") {
		t.Fatal("removing an absent tile must report false")
	}
}

// TestStoreConvenienceTargetsDefaultTab verifies the store-level ops
// always write to the default tab.
func TestStoreConvenienceTargetsDefaultTab(t *testing.T) {
	s := NewStore()

	s.UpdateValue("score", Int(42))
	s.PushGraphSample("fps", 60)
	s.UpdateStructure("state", func(b Builder) { b.Field("ok", Bool(true)) })

	tab := s.DefaultTab()
	if _, ok := tab.Scalar("score"); !ok {
		t.Error("UpdateValue must target the default tab")
	}
	if tab.GraphSamples("fps") == nil {
		t.Error("PushGraphSample must target the default tab")
	}
	if _, ok := tab.Structure("state"); !ok {
		t.Error("UpdateStructure must target the default tab")
	}

	if v, ok := s.GetScalar("score"); !ok {
		t.Error("GetScalar must read the default tab")
	} else if n, _ := v.IntValue(); n != 42 {
		t.Errorf("expected 42, got %v", v)
	}
}

// TestStoreClearKeepsIdentity verifies the deep clear semantics.
func TestStoreClearKeepsIdentity(t *testing.T) {
	s := NewStore()
	s.EnsureTab("extra", "").UpdateValue("x", Int(1))
	tile := s.WindowTile("child")
	tile.UpdateValue("y", Int(2))

	s.Clear()

	if len(s.TabIDs()) != 2 {
		t.Fatalf("tabs must survive Clear, got %v", s.TabIDs())
	}
	if len(s.WindowTileIDs()) != 1 {
		t.Fatalf("tiles must survive Clear, got %v", s.WindowTileIDs())
	}
	if _, ok := s.FindTab("extra").Scalar("x"); ok {
		t.Error("tab content must be wiped")
	}
	if _, ok := tile.GetScalar("y"); ok {
		t.Error("tile content must be wiped recursively")
	}
}
