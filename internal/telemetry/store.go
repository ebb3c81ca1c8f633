package telemetry

// DefaultTabID is the id of the tab every store owns from construction.
// That tab is the target of the store-level convenience operations and
// can never be removed.
const DefaultTabID = "overview"

// windowTile pairs a nested store with its addressing id. The id is
// separate from the store's window title: the title is display state
// the tile owner may rename freely.
type windowTile struct {
	id    string
	store *Store
}

// Store owns an ordered collection of tabs, unique by id, plus a
// collection of recursively nested child stores ("window tiles"). Each
// tile is a fully independent Store with its own default tab, title,
// and visibility. Recursive composition, not nested data.
//
// Store is owner-goroutine-only; cross-goroutine publication goes
// through internal/service's command queue.
type Store struct {
	windowTitle string
	visible     bool
	tabs        []*Tab
	tiles       []windowTile
}

// NewStore creates a store with its default tab already present.
func NewStore() *Store {
	s := &Store{
		windowTitle: "Telemetry Window",
		visible:     true,
	}
	s.EnsureTab(DefaultTabID, "")
	return s
}

// SetWindowTitle sets the display title of the store's window.
func (s *Store) SetWindowTitle(title string) { s.windowTitle = title }

// WindowTitle returns the display title.
func (s *Store) WindowTitle() string { return s.windowTitle }

// SetVisible sets whether a renderer should draw this store.
func (s *Store) SetVisible(visible bool) { s.visible = visible }

// Visible reports whether a renderer should draw this store.
func (s *Store) Visible() bool { return s.visible }

// EnsureTab returns the tab with the given id, creating and appending
// it if absent. When the tab already exists, a non-empty title renames
// it; an empty title leaves the current title alone. Two calls with the
// same id always return the same *Tab.
func (s *Store) EnsureTab(id, title string) *Tab {
	if existing := s.FindTab(id); existing != nil {
		existing.SetTitle(title)
		return existing
	}
	tab := NewTab(id, title)
	s.tabs = append(s.tabs, tab)
	return tab
}

// FindTab returns the tab with the given id, or nil.
func (s *Store) FindTab(id string) *Tab {
	for _, tab := range s.tabs {
		if tab.ID() == id {
			return tab
		}
	}
	return nil
}

// RemoveTab removes the tab with the given id and reports whether a
// tab was removed. The default tab is immutable identity: attempting to
// remove it fails and leaves the tab set unchanged.
func (s *Store) RemoveTab(id string) bool {
	if id == DefaultTabID {
		return false
	}
	for i, tab := range s.tabs {
		if tab.ID() == id {
			s.tabs = append(s.tabs[:i], s.tabs[i+1:]...)
			return true
		}
	}
	return false
}

// TabIDs returns tab ids in creation order.
func (s *Store) TabIDs() []string {
	ids := make([]string, len(s.tabs))
	for i, tab := range s.tabs {
		ids[i] = tab.ID()
	}
	return ids
}

// DefaultTab returns the store's default tab.
func (s *Store) DefaultTab() *Tab {
	return s.EnsureTab(DefaultTabID, "")
}

// WindowTile returns the child store with the given id, creating a
// fully initialized Store (own default tab, own visibility) if absent.
// When the tile exists, a non-empty title that differs from its current
// window title renames it.
func (s *Store) WindowTile(id string, title ...string) *Store {
	name := ""
	if len(title) > 0 {
		name = title[0]
	}
	if existing := s.FindWindowTile(id); existing != nil {
		if name != "" && existing.WindowTitle() != name {
			existing.SetWindowTitle(name)
		}
		return existing
	}
	if name == "" {
		name = id
	}
	tile := NewStore()
	tile.SetWindowTitle(name)
	s.tiles = append(s.tiles, windowTile{id: id, store: tile})
	return tile
}

// FindWindowTile returns the child store with the given id, or nil.
func (s *Store) FindWindowTile(id string) *Store {
	for _, tile := range s.tiles {
		if tile.id == id {
			return tile.store
		}
	}
	return nil
}

// RemoveWindowTile removes the child store with the given id and
// reports whether one was removed. Unlike tabs, any tile may go.
func (s *Store) RemoveWindowTile(id string) bool {
	for i, tile := range s.tiles {
		if tile.id == id {
			s.tiles = append(s.tiles[:i], s.tiles[i+1:]...)
			return true
		}
	}
	return false
}

// WindowTileIDs returns tile ids in creation order.
func (s *Store) WindowTileIDs() []string {
	ids := make([]string, len(s.tiles))
	for i, tile := range s.tiles {
		ids[i] = tile.id
	}
	return ids
}

// Clear wipes all scalar, graph, and structure content from every tab
// and, recursively, every tile. Tab and tile identities survive.
func (s *Store) Clear() {
	for _, tab := range s.tabs {
		tab.Clear()
	}
	for _, tile := range s.tiles {
		tile.store.Clear()
	}
}

// Convenience operations delegating to the default tab.

// UpdateValue upserts a scalar on the default tab.
func (s *Store) UpdateValue(key string, value Scalar) {
	s.DefaultTab().UpdateValue(key, value)
}

// PushGraphSample pushes one sample on the default tab.
func (s *Store) PushGraphSample(key string, sample float64, config ...GraphConfig) {
	s.DefaultTab().PushGraphSample(key, sample, config...)
}

// AddGraphSamples pushes samples in order on the default tab.
func (s *Store) AddGraphSamples(key string, samples []float64, config ...GraphConfig) {
	s.DefaultTab().AddGraphSamples(key, samples, config...)
}

// UpdateStructure rebuilds a structure tree on the default tab.
func (s *Store) UpdateStructure(key string, build func(Builder)) {
	s.DefaultTab().UpdateStructure(key, build)
}

// GetScalar reads a scalar from the default tab.
func (s *Store) GetScalar(key string) (Scalar, bool) {
	return s.DefaultTab().Scalar(key)
}

// GetGraphSamples reads graph samples from the default tab.
func (s *Store) GetGraphSamples(key string) []float64 {
	return s.DefaultTab().GraphSamples(key)
}

// GetStructure reads a structure tree from the default tab.
func (s *Store) GetStructure(key string) (StructureNode, bool) {
	return s.DefaultTab().Structure(key)
}
