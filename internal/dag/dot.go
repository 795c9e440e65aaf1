package dag

import (
	"fmt"
	"os"
	"strings"
)

// MarshalDOT renders the graph in the DOT subset this package reads back:
// one edge or node statement per line, no attributes.
func (g *Graph) MarshalDOT() string {
	var b strings.Builder
	b.WriteString("digraph {\n")
	edged := make(map[string]bool)
	for _, e := range g.Edges() {
		fmt.Fprintf(&b, "\t%s -> %s;\n", e.From, e.To)
		edged[e.From] = true
		edged[e.To] = true
	}
	for _, n := range g.Nodes() {
		if !edged[n] {
			fmt.Fprintf(&b, "\t%s;\n", n)
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// ParseDOT parses the DOT subset produced by MarshalDOT plus common
// hand-written variants: an optional graph name, chained edges
// ("a -> b -> c"), several statements on one line separated by
// semicolons, and // or # comments. Attribute lists are rejected.
func ParseDOT(src string) (*Graph, error) {
	body := strings.TrimSpace(src)
	open := strings.Index(body, "{")
	closeIdx := strings.LastIndex(body, "}")
	if open < 0 || closeIdx < 0 || closeIdx < open {
		return nil, fmt.Errorf("not a digraph: missing braces")
	}
	header := strings.TrimSpace(body[:open])
	if !strings.HasPrefix(header, "digraph") {
		return nil, fmt.Errorf("not a digraph: header %q", header)
	}
	body = body[open+1 : closeIdx]

	g := NewGraph()
	for lineNo, line := range strings.Split(body, "\n") {
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		for _, stmt := range strings.Split(line, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if strings.ContainsAny(stmt, "[]={}") {
				return nil, fmt.Errorf("line %d: attributes and subgraphs are not supported: %q", lineNo+1, stmt)
			}
			parts := strings.Split(stmt, "->")
			for i := range parts {
				parts[i] = strings.Trim(strings.TrimSpace(parts[i]), `"`)
				if parts[i] == "" || strings.ContainsAny(parts[i], " \t") {
					return nil, fmt.Errorf("line %d: malformed statement %q", lineNo+1, stmt)
				}
			}
			if len(parts) == 1 {
				if err := g.AddNode(parts[0]); err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
				}
				continue
			}
			for i := 0; i+1 < len(parts); i++ {
				if g.HasEdge(parts[i], parts[i+1]) {
					// Repeated edge statements are tolerated on input.
					continue
				}
				if err := g.AddEdge(parts[i], parts[i+1]); err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
				}
			}
		}
	}
	return g, nil
}

// SaveDOT writes the graph description to path.
func (g *Graph) SaveDOT(path string) error {
	if err := os.WriteFile(path, []byte(g.MarshalDOT()), 0644); err != nil {
		return fmt.Errorf("failed to write graph file: %w", err)
	}
	return nil
}

// LoadDOT reads and parses a graph description file.
func LoadDOT(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}
	g, err := ParseDOT(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}
