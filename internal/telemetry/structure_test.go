package telemetry

import "testing"

// TestBuilderFieldsAndNesting verifies the single-pass builder shape:
// two leaves plus one nested group of three fields yields exactly three
// direct children.
func TestBuilderFieldsAndNesting(t *testing.T) {
	var nodes []StructureNode
	b := NewBuilder(&nodes)

	b.Field("name", Text("player1"))
	b.Field("health", Int(100))
	pos := b.Nested("position")
	pos.Field("x", Float(1.5))
	pos.Field("y", Float(2.5))
	pos.Field("z", Float(0.0))

	if len(nodes) != 3 {
		t.Fatalf("expected 3 direct children, got %d", len(nodes))
	}

	if nodes[0].Label != "name" || nodes[0].Value == nil {
		t.Errorf("unexpected first leaf: %+v", nodes[0])
	}
	if v, ok := nodes[1].Value.IntValue(); !ok || v != 100 {
		t.Errorf("expected health=100, got %+v", nodes[1].Value)
	}

	group := nodes[2]
	if group.Label != "position" || group.Value != nil {
		t.Errorf("expected valueless group node, got %+v", group)
	}
	if len(group.Children) != 3 {
		t.Fatalf("expected 3 nested fields, got %d", len(group.Children))
	}
	if v, ok := group.Children[1].Value.FloatValue(); !ok || v != 2.5 {
		t.Errorf("expected y=2.5, got %+v", group.Children[1].Value)
	}
}

// TestBuilderDeepNesting verifies nesting recurses without limit.
func TestBuilderDeepNesting(t *testing.T) {
	var nodes []StructureNode
	b := NewBuilder(&nodes)

	inner := b.Nested("a").Nested("b").Nested("c")
	inner.Field("leaf", Bool(true))

	if len(nodes) != 1 {
		t.Fatalf("expected 1 root child, got %d", len(nodes))
	}
	c := nodes[0].Children[0].Children[0]
	if c.Label != "c" || len(c.Children) != 1 || c.Children[0].Label != "leaf" {
		t.Fatalf("unexpected deep tree: %+v", nodes[0])
	}
}

// TestDetachedBuilderNoOps verifies that a zero-value builder accepts
// every operation silently.
func TestDetachedBuilderNoOps(t *testing.T) {
	var b Builder

	b.Field("x", Int(1))
	nested := b.Nested("group")
	nested.Field("y", Int(2))
	// Nothing to assert beyond "did not panic"; a detached builder has
	// no backing list to inspect.
}

// TestStructureNodeEqual verifies deep tree equality.
func TestStructureNodeEqual(t *testing.T) {
	build := func() StructureNode {
		root := StructureNode{Label: "root"}
		b := NewBuilder(&root.Children)
		b.Field("a", Int(1))
		b.Nested("g").Field("b", Text("x"))
		return root
	}

	first, second := build(), build()
	if !first.Equal(second) {
		t.Fatal("identically built trees must compare equal")
	}

	second.Children[0].Value = &[]Scalar{Int(2)}[0]
	if first.Equal(second) {
		t.Fatal("trees with different leaf values must not compare equal")
	}
}

// TestStructureNodeCloneIsDeep verifies clone shares no memory.
func TestStructureNodeCloneIsDeep(t *testing.T) {
	root := StructureNode{Label: "root"}
	b := NewBuilder(&root.Children)
	b.Nested("g").Field("leaf", Int(1))

	copied := root.clone()
	copied.Children[0].Children[0].Label = "changed"

	if root.Children[0].Children[0].Label != "leaf" {
		t.Fatal("clone must not alias the original tree")
	}
}
