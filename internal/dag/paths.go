package dag

import (
	"fmt"
	"strings"
)

// Path is a simple undirected path through the graph. Nodes holds the
// visited nodes in order; Forward[i] is true when the edge between
// Nodes[i] and Nodes[i+1] points along the walk (Nodes[i] -> Nodes[i+1]).
type Path struct {
	Nodes   []string
	Forward []bool
}

// String renders the path with arrows showing true edge directions,
// e.g. "x <- z -> y".
func (p Path) String() string {
	var b strings.Builder
	for i, n := range p.Nodes {
		if i > 0 {
			if p.Forward[i-1] {
				b.WriteString(" -> ")
			} else {
				b.WriteString(" <- ")
			}
		}
		b.WriteString(n)
	}
	return b.String()
}

// Colliders returns the interior nodes of the path where both adjacent
// edges point in (… -> c <- …), in path order.
func (p Path) Colliders() []string {
	var out []string
	for i := 1; i < len(p.Nodes)-1; i++ {
		if p.Forward[i-1] && !p.Forward[i] {
			out = append(out, p.Nodes[i])
		}
	}
	return out
}

// Blocked reports whether the path is blocked given a conditioning set.
// A chain or fork is blocked when its middle node is conditioned on; a
// collider blocks unless the collider or one of its descendants is
// conditioned on.
func (p Path) Blocked(g *Graph, given map[string]bool) bool {
	for i := 1; i < len(p.Nodes)-1; i++ {
		n := p.Nodes[i]
		collider := p.Forward[i-1] && !p.Forward[i]
		if collider {
			opened := given[n]
			if !opened {
				for _, d := range g.Descendants(n) {
					if given[d] {
						opened = true
						break
					}
				}
			}
			if !opened {
				return true
			}
		} else if given[n] {
			return true
		}
	}
	return false
}

// AllPaths enumerates every simple undirected path from x to y, in a
// deterministic order. Both endpoints must exist.
func (g *Graph) AllPaths(x, y string) ([]Path, error) {
	if !g.HasNode(x) {
		return nil, fmt.Errorf("unknown node %q", x)
	}
	if !g.HasNode(y) {
		return nil, fmt.Errorf("unknown node %q", y)
	}

	type step struct {
		node    string
		forward bool
	}
	var paths []Path
	onPath := map[string]bool{x: true}
	var walk []step

	var visit func(n string)
	visit = func(n string) {
		if n == y {
			p := Path{Nodes: make([]string, 0, len(walk)+1), Forward: make([]bool, 0, len(walk))}
			p.Nodes = append(p.Nodes, x)
			for _, s := range walk {
				p.Nodes = append(p.Nodes, s.node)
				p.Forward = append(p.Forward, s.forward)
			}
			paths = append(paths, p)
			return
		}
		// Neighbours over the undirected skeleton, children first,
		// each group alphabetical.
		for _, c := range g.Children(n) {
			if !onPath[c] {
				onPath[c] = true
				walk = append(walk, step{c, true})
				visit(c)
				walk = walk[:len(walk)-1]
				onPath[c] = false
			}
		}
		for _, p := range g.Parents(n) {
			if !onPath[p] {
				onPath[p] = true
				walk = append(walk, step{p, false})
				visit(p)
				walk = walk[:len(walk)-1]
				onPath[p] = false
			}
		}
	}
	visit(x)
	return paths, nil
}

// DirectedPaths returns the simple directed paths from x to y.
func (g *Graph) DirectedPaths(x, y string) ([]Path, error) {
	all, err := g.AllPaths(x, y)
	if err != nil {
		return nil, err
	}
	var out []Path
	for _, p := range all {
		directed := true
		for _, f := range p.Forward {
			if !f {
				directed = false
				break
			}
		}
		if directed {
			out = append(out, p)
		}
	}
	return out, nil
}

// BackdoorPaths returns the undirected paths from treatment to outcome
// that start with an edge into the treatment (treatment <- …).
func (g *Graph) BackdoorPaths(treatment, outcome string) ([]Path, error) {
	all, err := g.AllPaths(treatment, outcome)
	if err != nil {
		return nil, err
	}
	var out []Path
	for _, p := range all {
		if len(p.Forward) > 0 && !p.Forward[0] {
			out = append(out, p)
		}
	}
	return out, nil
}

// DSeparated reports whether x and y are d-separated given the
// conditioning set: every undirected path between them is blocked.
func (g *Graph) DSeparated(x, y string, given []string) (bool, error) {
	paths, err := g.AllPaths(x, y)
	if err != nil {
		return false, err
	}
	set := toSet(given)
	for _, p := range paths {
		if !p.Blocked(g, set) {
			return false, nil
		}
	}
	return true, nil
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
