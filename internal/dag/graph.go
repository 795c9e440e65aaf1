// Package dag implements directed acyclic causal graphs: construction,
// DOT round-tripping, path enumeration and d-separation queries.
package dag

import (
	"fmt"
	"sort"
)

// Graph is a directed graph over named nodes. Edges are unlabelled; a node
// with no edges is still a member of the graph. Use Validate to confirm
// acyclicity before handing a Graph to identification code.
type Graph struct {
	nodes    []string
	nodeSet  map[string]bool
	children map[string][]string
	parents  map[string][]string
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodeSet:  make(map[string]bool),
		children: make(map[string][]string),
		parents:  make(map[string][]string),
	}
}

// AddNode adds a node if not already present.
func (g *Graph) AddNode(name string) error {
	if name == "" {
		return fmt.Errorf("node name must be non-empty")
	}
	if g.nodeSet[name] {
		return nil
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
	return nil
}

// AddEdge adds a directed edge from -> to, creating either endpoint as
// needed. Self-loops and duplicate edges are rejected.
func (g *Graph) AddEdge(from, to string) error {
	if from == to {
		return fmt.Errorf("self-loop on %q not allowed", from)
	}
	if err := g.AddNode(from); err != nil {
		return err
	}
	if err := g.AddNode(to); err != nil {
		return err
	}
	for _, c := range g.children[from] {
		if c == to {
			return fmt.Errorf("duplicate edge %s -> %s", from, to)
		}
	}
	g.children[from] = append(g.children[from], to)
	g.parents[to] = append(g.parents[to], from)
	return nil
}

// RemoveEdge removes the directed edge from -> to if present.
func (g *Graph) RemoveEdge(from, to string) {
	g.children[from] = remove(g.children[from], to)
	g.parents[to] = remove(g.parents[to], from)
}

func remove(s []string, v string) []string {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// HasNode reports whether name is a node of the graph.
func (g *Graph) HasNode(name string) bool { return g.nodeSet[name] }

// HasEdge reports whether the directed edge from -> to exists.
func (g *Graph) HasEdge(from, to string) bool {
	for _, c := range g.children[from] {
		if c == to {
			return true
		}
	}
	return false
}

// Nodes returns all node names in sorted order.
func (g *Graph) Nodes() []string {
	out := append([]string(nil), g.nodes...)
	sort.Strings(out)
	return out
}

// Edge is a directed edge of the graph.
type Edge struct {
	From, To string
}

// Edges returns all edges sorted by (From, To).
func (g *Graph) Edges() []Edge {
	var out []Edge
	for from, tos := range g.children {
		for _, to := range tos {
			out = append(out, Edge{From: from, To: to})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Parents returns the direct causes of name, sorted.
func (g *Graph) Parents(name string) []string {
	out := append([]string(nil), g.parents[name]...)
	sort.Strings(out)
	return out
}

// Children returns the direct effects of name, sorted.
func (g *Graph) Children(name string) []string {
	out := append([]string(nil), g.children[name]...)
	sort.Strings(out)
	return out
}

// Ancestors returns every node with a directed path to name, sorted.
func (g *Graph) Ancestors(name string) []string {
	return g.reach(name, g.parents)
}

// Descendants returns every node reachable from name by directed edges,
// sorted. The node itself is not included.
func (g *Graph) Descendants(name string) []string {
	return g.reach(name, g.children)
}

func (g *Graph) reach(start string, next map[string][]string) []string {
	seen := map[string]bool{start: true}
	stack := []string{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, m := range next[n] {
			if !seen[m] {
				seen[m] = true
				stack = append(stack, m)
			}
		}
	}
	delete(seen, start)
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Validate returns an error if the graph contains a directed cycle.
func (g *Graph) Validate() error {
	_, err := g.TopologicalOrder()
	return err
}

// TopologicalOrder returns the nodes in an order where every edge points
// forward. Ties break alphabetically so the order is deterministic.
func (g *Graph) TopologicalOrder() ([]string, error) {
	indeg := make(map[string]int, len(g.nodes))
	for _, n := range g.nodes {
		indeg[n] = len(g.parents[n])
	}
	var ready []string
	for _, n := range g.nodes {
		if indeg[n] == 0 {
			ready = append(ready, n)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		released := false
		for _, c := range g.children[n] {
			indeg[c]--
			if indeg[c] == 0 {
				ready = append(ready, c)
				released = true
			}
		}
		if released {
			sort.Strings(ready)
		}
	}
	if len(order) != len(g.nodes) {
		var cyclic []string
		for n, d := range indeg {
			if d > 0 {
				cyclic = append(cyclic, n)
			}
		}
		sort.Strings(cyclic)
		return nil, fmt.Errorf("graph contains a cycle involving %v", cyclic)
	}
	return order, nil
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	c := NewGraph()
	for _, n := range g.nodes {
		_ = c.AddNode(n)
	}
	for from, tos := range g.children {
		for _, to := range tos {
			_ = c.AddEdge(from, to)
		}
	}
	return c
}
