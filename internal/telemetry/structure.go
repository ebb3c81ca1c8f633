package telemetry

// StructureNode is one node of a labeled tree snapshotting nested
// object state. A node with children is a group (renderers treat it as
// expandable, and it may still carry its own value); a childless node
// with a value is a leaf.
type StructureNode struct {
	Label    string          `json:"label"`
	Value    *Scalar         `json:"value,omitempty"`
	Children []StructureNode `json:"children,omitempty"`
}

// Builder appends fields and nested groups into a node list. It is a
// write-only, single-forward-pass DSL: no lookup, no removal. Nested
// returns a builder over the new group's own child list, so arbitrary
// depth falls out of recursion and cycles are impossible.
//
// The zero Builder is detached: every operation is a no-op. Detached
// builders are handed out when there is no store to write into, so
// callers never need a nil check.
type Builder struct {
	nodes *[]StructureNode
}

// NewBuilder returns a builder appending into the given node list.
func NewBuilder(nodes *[]StructureNode) Builder {
	return Builder{nodes: nodes}
}

// Field appends a leaf node carrying the given scalar.
func (b Builder) Field(label string, value Scalar) Builder {
	if b.nodes == nil {
		return b
	}
	v := value
	*b.nodes = append(*b.nodes, StructureNode{Label: label, Value: &v})
	return b
}

// Nested appends a valueless group node and returns a builder that
// writes into that node's children.
func (b Builder) Nested(label string) Builder {
	if b.nodes == nil {
		return Builder{}
	}
	*b.nodes = append(*b.nodes, StructureNode{Label: label})
	return Builder{nodes: &(*b.nodes)[len(*b.nodes)-1].Children}
}

// equalNodes reports deep equality of two node lists.
func equalNodes(a, b []StructureNode) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].equal(b[i]) {
			return false
		}
	}
	return true
}

func (n StructureNode) equal(o StructureNode) bool {
	if n.Label != o.Label {
		return false
	}
	if (n.Value == nil) != (o.Value == nil) {
		return false
	}
	if n.Value != nil && !n.Value.Equal(*o.Value) {
		return false
	}
	return equalNodes(n.Children, o.Children)
}

// Equal reports whether two trees compare deeply equal: same labels,
// values, and child order throughout.
func (n StructureNode) Equal(o StructureNode) bool { return n.equal(o) }

// clone returns a deep copy of the node.
func (n StructureNode) clone() StructureNode {
	out := StructureNode{Label: n.Label}
	if n.Value != nil {
		v := *n.Value
		out.Value = &v
	}
	if len(n.Children) > 0 {
		out.Children = make([]StructureNode, len(n.Children))
		for i, child := range n.Children {
			out.Children[i] = child.clone()
		}
	}
	return out
}
