package telemetry

import "sort"

// structureEntry distinguishes "never populated" from "populated but
// empty": the entry object exists as soon as the key is written, but
// hasContent only flips true when a rebuild produced children.
type structureEntry struct {
	root       StructureNode
	hasContent bool
}

// Tab is the namespace for one logical data source: three independent
// keyed collections of scalars, graphs, and structures, plus identity.
// The id is the uniqueness key and never changes after creation; the
// title is display-only and defaults to the id.
type Tab struct {
	id         string
	title      string
	scalars    map[string]Scalar
	graphs     map[string]*Graph
	structures map[string]*structureEntry
}

// NewTab creates a tab. An empty title falls back to the id.
func NewTab(id, title string) *Tab {
	if title == "" {
		title = id
	}
	return &Tab{
		id:         id,
		title:      title,
		scalars:    make(map[string]Scalar),
		graphs:     make(map[string]*Graph),
		structures: make(map[string]*structureEntry),
	}
}

// ID returns the immutable tab identifier.
func (t *Tab) ID() string { return t.id }

// Title returns the display title.
func (t *Tab) Title() string { return t.title }

// SetTitle renames the tab. Empty titles are ignored so a rename can
// never blank out the display name.
func (t *Tab) SetTitle(title string) {
	if title != "" {
		t.title = title
	}
}

// UpdateValue upserts a scalar. Last write wins; no history is kept.
func (t *Tab) UpdateValue(key string, value Scalar) *Tab {
	t.scalars[key] = value
	return t
}

// Graph returns the graph for key, creating it with the default config
// if absent. Unlike EnsureGraph it never reconfigures an existing graph.
func (t *Tab) Graph(key string) *Graph {
	g, ok := t.graphs[key]
	if !ok {
		g = NewGraph(DefaultGraphConfig())
		t.graphs[key] = g
	}
	return g
}

// EnsureGraph returns the graph for key, creating it with config if
// absent. If the graph exists and the requested config differs from the
// stored one in any field, the existing graph is reconfigured in
// place: samples are retained and re-trimmed, never discarded by
// replacement.
// Config comparison is exact, floats included.
func (t *Tab) EnsureGraph(key string, config GraphConfig) *Graph {
	g, ok := t.graphs[key]
	if !ok {
		g = NewGraph(config)
		t.graphs[key] = g
		return g
	}
	if g.Config() != config {
		g.Configure(config)
	}
	return g
}

// PushGraphSample pushes one sample onto the graph for key, creating or
// reconfiguring it first (see EnsureGraph). Omitting config uses the
// default.
func (t *Tab) PushGraphSample(key string, sample float64, config ...GraphConfig) *Tab {
	t.EnsureGraph(key, pickConfig(config)).Push(sample)
	return t
}

// AddGraphSamples pushes each sample in order onto the graph for key.
func (t *Tab) AddGraphSamples(key string, samples []float64, config ...GraphConfig) *Tab {
	t.EnsureGraph(key, pickConfig(config)).AddSamples(samples)
	return t
}

func pickConfig(config []GraphConfig) GraphConfig {
	if len(config) > 0 {
		return config[0]
	}
	return DefaultGraphConfig()
}

// UpdateStructure rebuilds the structure tree for key wholesale: the
// previous value and children are dropped, build is invoked with a
// fresh builder over the new child list, and the entry records whether
// any children were produced. A nil build callback leaves the tree
// empty rather than panicking. Only the key's identity survives the
// rebuild; there is no incremental diffing.
func (t *Tab) UpdateStructure(key string, build func(Builder)) *Tab {
	entry, ok := t.structures[key]
	if !ok {
		entry = &structureEntry{}
		t.structures[key] = entry
	}
	entry.root = StructureNode{Label: key}
	if build != nil {
		build(NewBuilder(&entry.root.Children))
	}
	entry.hasContent = len(entry.root.Children) > 0
	return t
}

// Scalar returns the stored scalar for key, if present.
func (t *Tab) Scalar(key string) (Scalar, bool) {
	v, ok := t.scalars[key]
	return v, ok
}

// GraphSamples returns a copy of the samples for key, or nil when the
// graph does not exist.
func (t *Tab) GraphSamples(key string) []float64 {
	g, ok := t.graphs[key]
	if !ok {
		return nil
	}
	return g.Samples()
}

// Structure returns a deep copy of the tree for key. A structure whose
// last rebuild produced no children reports absent even though an entry
// still exists internally.
func (t *Tab) Structure(key string) (StructureNode, bool) {
	entry, ok := t.structures[key]
	if !ok || !entry.hasContent {
		return StructureNode{}, false
	}
	return entry.root.clone(), true
}

// ScalarKeys returns the scalar keys in sorted order.
func (t *Tab) ScalarKeys() []string { return sortedKeys(t.scalars) }

// GraphKeys returns the graph keys in sorted order.
func (t *Tab) GraphKeys() []string { return sortedKeys(t.graphs) }

// StructureKeys returns the keys of structures with content, sorted.
func (t *Tab) StructureKeys() []string {
	keys := make([]string, 0, len(t.structures))
	for key, entry := range t.structures {
		if entry.hasContent {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Clear empties all three collections. Tab identity is untouched.
func (t *Tab) Clear() {
	clear(t.scalars)
	clear(t.graphs)
	clear(t.structures)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
