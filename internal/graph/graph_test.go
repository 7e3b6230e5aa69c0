package graph

import (
	"slices"
	"testing"

	"github.com/antigravity-dev/ticketdep/internal/store"
	"github.com/antigravity-dev/ticketdep/internal/ticketref"
)

func ticket(id int64, status, deps string) store.Ticket {
	return store.Ticket{
		ID:     id,
		Status: status,
		Custom: map[string]string{ticketref.FieldName: deps},
	}
}

func nodeIDs(nodes []Node) []int64 {
	out := make([]int64, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestBuildDepGraph_BuildsNodesAndEdges(t *testing.T) {
	graph := BuildDepGraph([]store.Ticket{
		ticket(1, "new", ""),
		ticket(2, "new", "1, 1 404 x"),
		ticket(3, "new", "1"),
		ticket(4, "new", "3 2 2"),
	})

	if graph.Len() != 4 {
		t.Fatalf("expected 4 nodes, got %d", graph.Len())
	}
	if deps := graph.DependsOnIDs(2); !slices.Equal(deps, []int64{1, 404}) {
		t.Fatalf("unexpected dependencies for 2: %v", deps)
	}
	if deps := graph.DependsOnIDs(4); !slices.Equal(deps, []int64{2, 3}) {
		t.Fatalf("unexpected dependencies for 4: %v", deps)
	}
	if blocks := graph.BlocksIDs(1); !slices.Equal(blocks, []int64{2, 3}) {
		t.Fatalf("unexpected supertickets for 1: %v", blocks)
	}
	if blocks := graph.BlocksIDs(404); !slices.Equal(blocks, []int64{2}) {
		t.Fatalf("expected missing dependency to be blocked by 2, got %v", blocks)
	}
	if got := graph.DependsOnIDs(99); len(got) != 0 {
		t.Fatalf("expected unknown ID to return no dependencies, got %v", got)
	}
}

func TestBuildDepGraph_DropsSelfReference(t *testing.T) {
	graph := BuildDepGraph([]store.Ticket{ticket(7, "new", "7 8"), ticket(8, "new", "")})
	if deps := graph.DependsOnIDs(7); !slices.Equal(deps, []int64{8}) {
		t.Fatalf("unexpected dependencies for 7: %v", deps)
	}
	if cycle := graph.FindCycle(); cycle != nil {
		t.Fatalf("self reference reported as cycle: %v", cycle)
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	graph := BuildDepGraph([]store.Ticket{ticket(1, "new", ""), ticket(2, "new", "1")})

	deps := graph.DependsOnIDs(2)
	deps[0] = 99
	if got := graph.DependsOnIDs(2); got[0] != 1 {
		t.Fatalf("internal forward map was mutated: %v", got)
	}

	node, ok := graph.Node(2)
	if !ok {
		t.Fatal("expected node 2")
	}
	node.DependsOn[0] = 99
	node.Status = "closed"
	again, _ := graph.Node(2)
	if again.DependsOn[0] != 1 || again.Status != "new" {
		t.Fatalf("node was not isolated: %+v", again)
	}

	if _, ok := graph.Node(5); ok {
		t.Fatal("unexpected node 5")
	}
}

func TestReadyAndBlocked(t *testing.T) {
	graph := BuildDepGraph([]store.Ticket{
		ticket(1, "closed", ""),
		ticket(2, "new", "1"),
		ticket(3, "assigned", "2"),
		ticket(4, "new", ""),
		ticket(5, "new", "404"),
		ticket(6, "closed", "2"),
	})

	if got := nodeIDs(graph.Ready()); !slices.Equal(got, []int64{2, 4}) {
		t.Fatalf("ready = %v, want [2 4]", got)
	}
	if got := nodeIDs(graph.Blocked()); !slices.Equal(got, []int64{3, 5}) {
		t.Fatalf("blocked = %v, want [3 5]", got)
	}
}

func TestFindCycle(t *testing.T) {
	acyclic := BuildDepGraph([]store.Ticket{
		ticket(1, "new", ""),
		ticket(2, "new", "1"),
		ticket(3, "new", "1 2"),
	})
	if cycle := acyclic.FindCycle(); cycle != nil {
		t.Fatalf("unexpected cycle %v", cycle)
	}

	cyclic := BuildDepGraph([]store.Ticket{
		ticket(1, "new", "2"),
		ticket(2, "new", "3"),
		ticket(3, "new", "1"),
		ticket(4, "new", "1"),
	})
	if cycle := cyclic.FindCycle(); !slices.Equal(cycle, []int64{1, 2, 3, 1}) {
		t.Fatalf("cycle = %v, want [1 2 3 1]", cycle)
	}
}

func TestNilGraph(t *testing.T) {
	var graph *DepGraph
	if graph.Len() != 0 || graph.Ready() != nil || graph.Blocked() != nil || graph.FindCycle() != nil {
		t.Fatal("nil graph should be empty")
	}
	if graph.DependsOnIDs(1) != nil || graph.BlocksIDs(1) != nil {
		t.Fatal("nil graph should have no edges")
	}
}
