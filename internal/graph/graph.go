// Package graph builds the dependency graph spanned by the ticketref field of
// all tickets and answers which tickets are ready to work on.
package graph

import (
	"slices"

	"github.com/antigravity-dev/ticketdep/internal/store"
	"github.com/antigravity-dev/ticketdep/internal/ticketref"
)

const statusClosed = "closed"

// Node is a ticket in the dependency graph.
type Node struct {
	ID        int64
	Summary   string
	Status    string
	DependsOn []int64
}

// NodeFromTicket reads the dependency field of t. Invalid tokens are ignored.
func NodeFromTicket(t store.Ticket) Node {
	return Node{
		ID:        t.ID,
		Summary:   t.Summary,
		Status:    t.Status,
		DependsOn: ticketref.IDs(t.Field(ticketref.FieldName)),
	}
}

// DepGraph is a directed dependency graph for tickets.
type DepGraph struct {
	nodes   map[int64]*Node
	forward map[int64][]int64 // ticket -> depends on
	reverse map[int64][]int64 // ticket -> supertickets
}

// BuildDepGraph initializes an in-memory dependency graph from tickets.
// Self references are dropped.
func BuildDepGraph(tickets []store.Ticket) *DepGraph {
	g := &DepGraph{
		nodes:   make(map[int64]*Node, len(tickets)),
		forward: make(map[int64][]int64, len(tickets)),
		reverse: make(map[int64][]int64, len(tickets)),
	}

	for _, t := range tickets {
		node := NodeFromTicket(t)
		g.nodes[node.ID] = &node
		if _, ok := g.forward[node.ID]; !ok {
			g.forward[node.ID] = make([]int64, 0)
		}
		if _, ok := g.reverse[node.ID]; !ok {
			g.reverse[node.ID] = make([]int64, 0)
		}

		for _, depID := range node.DependsOn {
			if depID == node.ID {
				continue
			}
			g.forward[node.ID] = append(g.forward[node.ID], depID)
			g.reverse[depID] = append(g.reverse[depID], node.ID)
		}
	}

	for id := range g.reverse {
		slices.Sort(g.reverse[id])
	}
	return g
}

// Node returns a copy of the node with the given id.
func (g *DepGraph) Node(id int64) (Node, bool) {
	if g == nil {
		return Node{}, false
	}
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	cp := *n
	cp.DependsOn = slices.Clone(n.DependsOn)
	return cp, true
}

// Len returns the number of tickets in the graph.
func (g *DepGraph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.nodes)
}

// DependsOnIDs returns all ticket IDs the ticket depends on, ascending.
func (g *DepGraph) DependsOnIDs(id int64) []int64 {
	if g == nil || g.forward == nil {
		return nil
	}
	return slices.Clone(g.forward[id])
}

// BlocksIDs returns the tickets directly depending on id, ascending.
func (g *DepGraph) BlocksIDs(id int64) []int64 {
	if g == nil || g.reverse == nil {
		return nil
	}
	return slices.Clone(g.reverse[id])
}

// Ready returns the open tickets whose dependencies are all closed, ordered
// by id. A dependency on a ticket missing from the graph blocks.
func (g *DepGraph) Ready() []Node {
	if g == nil {
		return nil
	}
	var out []Node
	for _, id := range g.sortedIDs() {
		n := g.nodes[id]
		if isClosed(n.Status) || !g.allDepsClosed(id) {
			continue
		}
		node, _ := g.Node(id)
		out = append(out, node)
	}
	return out
}

// Blocked returns the open tickets waiting on at least one open or missing
// dependency, ordered by id.
func (g *DepGraph) Blocked() []Node {
	if g == nil {
		return nil
	}
	var out []Node
	for _, id := range g.sortedIDs() {
		n := g.nodes[id]
		if isClosed(n.Status) || g.allDepsClosed(id) {
			continue
		}
		node, _ := g.Node(id)
		out = append(out, node)
	}
	return out
}

// FindCycle returns one dependency cycle as a path that starts and ends with
// the same ticket, or nil when the graph is acyclic. Tickets are visited in
// ascending order so the result is deterministic.
func (g *DepGraph) FindCycle() []int64 {
	if g == nil {
		return nil
	}
	const (
		unvisited = iota
		inProgress
		done
	)
	state := make(map[int64]int, len(g.nodes))
	var stack []int64

	var visit func(id int64) []int64
	visit = func(id int64) []int64 {
		state[id] = inProgress
		stack = append(stack, id)
		for _, dep := range g.forward[id] {
			switch state[dep] {
			case inProgress:
				start := slices.Index(stack, dep)
				return append(slices.Clone(stack[start:]), dep)
			case unvisited:
				if _, ok := g.nodes[dep]; !ok {
					continue
				}
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		return nil
	}

	for _, id := range g.sortedIDs() {
		if state[id] != unvisited {
			continue
		}
		if cycle := visit(id); cycle != nil {
			return cycle
		}
	}
	return nil
}

func (g *DepGraph) allDepsClosed(id int64) bool {
	for _, depID := range g.forward[id] {
		dep, ok := g.nodes[depID]
		if !ok || !isClosed(dep.Status) {
			return false
		}
	}
	return true
}

func (g *DepGraph) sortedIDs() []int64 {
	ids := make([]int64, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func isClosed(status string) bool {
	return status == statusClosed
}
