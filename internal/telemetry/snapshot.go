package telemetry

// Snapshot types are deep, immutable copies of the live tree, built on
// the owner goroutine once per cycle and handed to readers (web UI, MCP
// tools) that run on arbitrary goroutines. Readers never touch the live
// store; they only ever see these copies.

// GraphSnapshot is a point-in-time copy of one graph.
type GraphSnapshot struct {
	Key     string      `json:"key"`
	Config  GraphConfig `json:"config"`
	Samples []float64   `json:"samples,omitempty"`
	Latest  float64     `json:"latest"`
}

// ScalarSnapshot is one key/value pair from a tab's scalar map.
type ScalarSnapshot struct {
	Key   string `json:"key"`
	Value Scalar `json:"value"`
}

// StructureSnapshot is a point-in-time copy of one structure tree.
type StructureSnapshot struct {
	Key  string        `json:"key"`
	Root StructureNode `json:"root"`
}

// TabSnapshot is a point-in-time copy of one tab. Entries are ordered
// by key so renders are deterministic frame to frame.
type TabSnapshot struct {
	ID         string              `json:"id"`
	Title      string              `json:"title"`
	Scalars    []ScalarSnapshot    `json:"scalars,omitempty"`
	Graphs     []GraphSnapshot     `json:"graphs,omitempty"`
	Structures []StructureSnapshot `json:"structures,omitempty"`
}

// TileSnapshot pairs a nested store snapshot with its tile id.
type TileSnapshot struct {
	ID    string        `json:"id"`
	Store StoreSnapshot `json:"store"`
}

// StoreSnapshot is a point-in-time copy of a whole store, tiles
// included. Tabs and tiles appear in creation order.
type StoreSnapshot struct {
	WindowTitle string        `json:"window_title"`
	Visible     bool          `json:"visible"`
	Tabs        []TabSnapshot `json:"tabs,omitempty"`
	Tiles       []TileSnapshot `json:"tiles,omitempty"`
}

// Snapshot deep-copies the store and every nested tile. The result
// shares no memory with the live tree.
func (s *Store) Snapshot() StoreSnapshot {
	snap := StoreSnapshot{
		WindowTitle: s.windowTitle,
		Visible:     s.visible,
	}
	for _, tab := range s.tabs {
		snap.Tabs = append(snap.Tabs, tab.snapshot())
	}
	for _, tile := range s.tiles {
		snap.Tiles = append(snap.Tiles, TileSnapshot{
			ID:    tile.id,
			Store: tile.store.Snapshot(),
		})
	}
	return snap
}

func (t *Tab) snapshot() TabSnapshot {
	snap := TabSnapshot{ID: t.id, Title: t.title}
	for _, key := range t.ScalarKeys() {
		snap.Scalars = append(snap.Scalars, ScalarSnapshot{Key: key, Value: t.scalars[key]})
	}
	for _, key := range t.GraphKeys() {
		g := t.graphs[key]
		snap.Graphs = append(snap.Graphs, GraphSnapshot{
			Key:     key,
			Config:  g.Config(),
			Samples: g.Samples(),
			Latest:  g.Latest(),
		})
	}
	for _, key := range t.StructureKeys() {
		snap.Structures = append(snap.Structures, StructureSnapshot{
			Key:  key,
			Root: t.structures[key].root.clone(),
		})
	}
	return snap
}

// Tab returns the snapshot of the tab with the given id, if present.
func (s StoreSnapshot) Tab(id string) (TabSnapshot, bool) {
	for _, tab := range s.Tabs {
		if tab.ID == id {
			return tab, true
		}
	}
	return TabSnapshot{}, false
}

// Scalar returns the named scalar from the tab snapshot, if present.
func (t TabSnapshot) Scalar(key string) (Scalar, bool) {
	for _, entry := range t.Scalars {
		if entry.Key == key {
			return entry.Value, true
		}
	}
	return Scalar{}, false
}

// Graph returns the named graph from the tab snapshot, if present.
func (t TabSnapshot) Graph(key string) (GraphSnapshot, bool) {
	for _, entry := range t.Graphs {
		if entry.Key == key {
			return entry, true
		}
	}
	return GraphSnapshot{}, false
}

// Structure returns the named structure tree, if present.
func (t TabSnapshot) Structure(key string) (StructureNode, bool) {
	for _, entry := range t.Structures {
		if entry.Key == key {
			return entry.Root, true
		}
	}
	return StructureNode{}, false
}
