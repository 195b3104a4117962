package pathway

import (
	"reflect"
	"testing"
)

func testInputs() []NodeInput {
	return []NodeInput{
		{ID: "R-HSA-1", Name: "Signal Transduction", GeneSetSize: 2500},
		{ID: "R-HSA-2", Name: "RTK Signaling", ParentIDs: []string{"R-HSA-1"}, GeneSetSize: 500},
		{ID: "R-HSA-3", Name: "EGFR Signaling", ParentIDs: []string{"R-HSA-2"}, GeneSetSize: 100},
		{ID: "R-HSA-4", Name: "EGFR Downregulation", ParentIDs: []string{"R-HSA-3", "R-HSA-1"}, GeneSetSize: 40},
	}
}

func TestBuildSnapshotDepths(t *testing.T) {
	snapshot, err := BuildSnapshot("91", testInputs())
	if err != nil {
		t.Fatalf("BuildSnapshot failed: %v", err)
	}

	if snapshot.Release() != "91" {
		t.Fatalf("expected release 91, got %s", snapshot.Release())
	}
	if snapshot.Len() != 4 {
		t.Fatalf("expected 4 pathways, got %d", snapshot.Len())
	}

	expected := map[string]int{"R-HSA-1": 1, "R-HSA-2": 2, "R-HSA-3": 3, "R-HSA-4": 2}
	for id, depth := range expected {
		if got := snapshot.Depth(id); got != depth {
			t.Fatalf("expected depth %d for %s, got %d", depth, id, got)
		}
	}
}

func TestBuildSnapshotAncestors(t *testing.T) {
	snapshot, err := BuildSnapshot("91", testInputs())
	if err != nil {
		t.Fatalf("BuildSnapshot failed: %v", err)
	}

	ancestors := snapshot.AncestorsOf("R-HSA-4")
	expected := []string{"R-HSA-1", "R-HSA-2", "R-HSA-3"}
	if !reflect.DeepEqual(ancestors, expected) {
		t.Fatalf("expected ancestors %v, got %v", expected, ancestors)
	}
	if got := snapshot.AncestorsOf("R-HSA-1"); len(got) != 0 {
		t.Fatalf("expected no ancestors for root, got %v", got)
	}
}

func TestBuildSnapshotChildren(t *testing.T) {
	snapshot, err := BuildSnapshot("91", testInputs())
	if err != nil {
		t.Fatalf("BuildSnapshot failed: %v", err)
	}

	children := snapshot.ChildrenOf("R-HSA-1")
	expected := []string{"R-HSA-2", "R-HSA-4"}
	if !reflect.DeepEqual(children, expected) {
		t.Fatalf("expected children %v, got %v", expected, children)
	}
}

func TestBuildSnapshotBreaksCycle(t *testing.T) {
	inputs := []NodeInput{
		{ID: "R-HSA-1", GeneSetSize: 100},
		{ID: "R-HSA-2", ParentIDs: []string{"R-HSA-1", "R-HSA-3"}, GeneSetSize: 50},
		{ID: "R-HSA-3", ParentIDs: []string{"R-HSA-2"}, GeneSetSize: 20},
	}
	snapshot, err := BuildSnapshot("91", inputs)
	if err != nil {
		t.Fatalf("BuildSnapshot failed: %v", err)
	}

	if got := snapshot.Depth("R-HSA-3"); got != 3 {
		t.Fatalf("expected depth 3 for R-HSA-3, got %d", got)
	}
	ancestors := snapshot.AncestorsOf("R-HSA-2")
	expected := []string{"R-HSA-1", "R-HSA-3"}
	if !reflect.DeepEqual(ancestors, expected) {
		t.Fatalf("expected ancestors %v, got %v", expected, ancestors)
	}
}

func TestBuildSnapshotRejectsRootlessGraph(t *testing.T) {
	inputs := []NodeInput{
		{ID: "R-HSA-1", ParentIDs: []string{"R-HSA-2"}},
		{ID: "R-HSA-2", ParentIDs: []string{"R-HSA-1"}},
	}
	if _, err := BuildSnapshot("91", inputs); err == nil {
		t.Fatalf("expected error for rootless hierarchy")
	}
}

func TestBuildSnapshotSkipsUnknownParents(t *testing.T) {
	inputs := []NodeInput{
		{ID: "R-HSA-1", GeneSetSize: 10},
		{ID: "R-HSA-2", ParentIDs: []string{"R-HSA-1", "R-HSA-999"}, GeneSetSize: 5},
	}
	snapshot, err := BuildSnapshot("91", inputs)
	if err != nil {
		t.Fatalf("BuildSnapshot failed: %v", err)
	}
	if !reflect.DeepEqual(snapshot.AncestorsOf("R-HSA-2"), []string{"R-HSA-1"}) {
		t.Fatalf("expected unknown parent to be dropped, got %v", snapshot.AncestorsOf("R-HSA-2"))
	}
}

func TestIndexPublish(t *testing.T) {
	var index Index
	if index.Current() != nil {
		t.Fatalf("expected nil snapshot before publish")
	}

	first, err := BuildSnapshot("90", testInputs())
	if err != nil {
		t.Fatalf("BuildSnapshot failed: %v", err)
	}
	index.Publish(first)
	if index.Current() != first {
		t.Fatalf("expected first snapshot after publish")
	}

	second, err := BuildSnapshot("91", testInputs())
	if err != nil {
		t.Fatalf("BuildSnapshot failed: %v", err)
	}
	index.Publish(second)
	if index.Current() != second {
		t.Fatalf("expected second snapshot after publish")
	}
	if first.Release() != "90" {
		t.Fatalf("expected replaced snapshot to stay readable")
	}
}
