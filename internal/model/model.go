// Package model binds a causal graph to a treatment/outcome pair and
// identifies estimands: backdoor adjustment sets, frontdoor mediator
// sets, and instrumental variables.
package model

import (
	"fmt"

	"github.com/banshee-data/estimand.report/internal/dag"
	"github.com/banshee-data/estimand.report/internal/dataset"
)

// Model is a causal model: an acyclic graph plus the treatment and
// outcome under study. Data is optional; identification is purely
// graphical, only estimation needs it.
type Model struct {
	Graph     *dag.Graph
	Treatment string
	Outcome   string
	Data      *dataset.Frame

	latent map[string]bool
}

// New validates the graph and endpoints and returns a model.
func New(g *dag.Graph, treatment, outcome string) (*Model, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid causal graph: %w", err)
	}
	if !g.HasNode(treatment) {
		return nil, fmt.Errorf("treatment %q is not a node of the graph", treatment)
	}
	if !g.HasNode(outcome) {
		return nil, fmt.Errorf("outcome %q is not a node of the graph", outcome)
	}
	if treatment == outcome {
		return nil, fmt.Errorf("treatment and outcome must differ")
	}
	return &Model{Graph: g, Treatment: treatment, Outcome: outcome, latent: map[string]bool{}}, nil
}

// SetLatent marks nodes as unobserved. Latent nodes cannot be adjusted
// for, used as mediators or instruments, or required in the dataset. The
// treatment and outcome must stay observed.
func (m *Model) SetLatent(names ...string) error {
	for _, n := range names {
		if !m.Graph.HasNode(n) {
			return fmt.Errorf("latent node %q is not in the graph", n)
		}
		if n == m.Treatment || n == m.Outcome {
			return fmt.Errorf("%q cannot be latent", n)
		}
		m.latent[n] = true
	}
	return nil
}

// Latent returns the sorted latent node names.
func (m *Model) Latent() []string {
	return sortedKeys(m.latent)
}

// Observed reports whether a node is observed.
func (m *Model) Observed(name string) bool { return !m.latent[name] }

// BindData attaches a dataset; every observed graph node must have a
// column.
func (m *Model) BindData(f *dataset.Frame) error {
	for _, n := range m.Graph.Nodes() {
		if m.latent[n] {
			continue
		}
		if !f.HasColumn(n) {
			return fmt.Errorf("dataset has no column for graph node %q", n)
		}
	}
	m.Data = f
	return nil
}
