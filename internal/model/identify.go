package model

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNotIdentified is returned when no identification strategy applies
// to the model's graph.
var ErrNotIdentified = errors.New("causal effect is not identified")

// BackdoorSets returns the inclusion-minimal adjustment sets satisfying
// the backdoor criterion: no member is a descendant of the treatment, and
// conditioning on the set blocks every backdoor path from treatment to
// outcome. Sets are returned smallest first, members sorted.
func (m *Model) BackdoorSets() ([][]string, error) {
	backdoor, err := m.Graph.BackdoorPaths(m.Treatment, m.Outcome)
	if err != nil {
		return nil, err
	}

	excluded := map[string]bool{m.Treatment: true, m.Outcome: true}
	for _, d := range m.Graph.Descendants(m.Treatment) {
		excluded[d] = true
	}
	var candidates []string
	for _, n := range m.Graph.Nodes() {
		if !excluded[n] && !m.latent[n] {
			candidates = append(candidates, n)
		}
	}

	valid := func(set []string) bool {
		given := toSet(set)
		for _, p := range backdoor {
			if !p.Blocked(m.Graph, given) {
				return false
			}
		}
		return true
	}
	return minimalSets(candidates, valid), nil
}

// FrontdoorSets returns the inclusion-minimal mediator sets satisfying
// the frontdoor criterion.
func (m *Model) FrontdoorSets() ([][]string, error) {
	directed, err := m.Graph.DirectedPaths(m.Treatment, m.Outcome)
	if err != nil {
		return nil, err
	}
	if len(directed) == 0 {
		return nil, nil
	}

	// Mediator candidates are the observed interior nodes of directed
	// paths.
	candSet := map[string]bool{}
	for _, p := range directed {
		for _, n := range p.Nodes[1 : len(p.Nodes)-1] {
			if !m.latent[n] {
				candSet[n] = true
			}
		}
	}
	candidates := sortedKeys(candSet)

	valid := func(set []string) bool {
		if len(set) == 0 {
			return false
		}
		members := toSet(set)

		// (1) Every directed treatment -> outcome path is intercepted.
		for _, p := range directed {
			hit := false
			for _, n := range p.Nodes[1 : len(p.Nodes)-1] {
				if members[n] {
					hit = true
					break
				}
			}
			if !hit {
				return false
			}
		}

		// (2) No unblocked backdoor path from treatment to any mediator.
		for _, med := range set {
			paths, err := m.Graph.BackdoorPaths(m.Treatment, med)
			if err != nil {
				return false
			}
			for _, p := range paths {
				if !p.Blocked(m.Graph, nil) {
					return false
				}
			}
		}

		// (3) Backdoor paths from each mediator to the outcome are
		// blocked by the treatment (plus the other mediators).
		for _, med := range set {
			given := map[string]bool{m.Treatment: true}
			for _, other := range set {
				if other != med {
					given[other] = true
				}
			}
			paths, err := m.Graph.BackdoorPaths(med, m.Outcome)
			if err != nil {
				return false
			}
			for _, p := range paths {
				if !p.Blocked(m.Graph, given) {
					return false
				}
			}
		}
		return true
	}
	return minimalSets(candidates, valid), nil
}

// Instruments returns the instrumental variables of the model, sorted: a
// node with a directed path into the treatment that is d-separated from
// the outcome once the treatment's outgoing influence is removed.
func (m *Model) Instruments() ([]string, error) {
	// Mutilated graph: treatment's effect on everything removed, so any
	// remaining z–outcome dependence is a criterion violation.
	cut := m.Graph.Clone()
	for _, c := range m.Graph.Children(m.Treatment) {
		cut.RemoveEdge(m.Treatment, c)
	}

	var out []string
	for _, z := range m.Graph.Nodes() {
		if z == m.Treatment || z == m.Outcome || m.latent[z] {
			continue
		}
		relevant, err := m.Graph.DirectedPaths(z, m.Treatment)
		if err != nil {
			return nil, err
		}
		if len(relevant) == 0 {
			continue
		}
		sep, err := cut.DSeparated(z, m.Outcome, nil)
		if err != nil {
			return nil, err
		}
		if sep {
			out = append(out, z)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Identify runs every identification strategy and returns the resulting
// estimands in a stable order (backdoor, frontdoor, iv). It fails with
// ErrNotIdentified when none applies.
func (m *Model) Identify() ([]Estimand, error) {
	var out []Estimand

	backdoor, err := m.BackdoorSets()
	if err != nil {
		return nil, err
	}
	if len(backdoor) > 0 {
		out = append(out, Estimand{
			Kind:       Backdoor,
			Treatment:  m.Treatment,
			Outcome:    m.Outcome,
			Adjustment: backdoor[0],
		})
	}

	frontdoor, err := m.FrontdoorSets()
	if err != nil {
		return nil, err
	}
	if len(frontdoor) > 0 {
		out = append(out, Estimand{
			Kind:      Frontdoor,
			Treatment: m.Treatment,
			Outcome:   m.Outcome,
			Mediators: frontdoor[0],
		})
	}

	instruments, err := m.Instruments()
	if err != nil {
		return nil, err
	}
	if len(instruments) > 0 {
		out = append(out, Estimand{
			Kind:        IV,
			Treatment:   m.Treatment,
			Outcome:     m.Outcome,
			Instruments: instruments,
		})
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no valid backdoor set, frontdoor set or instrument for %s -> %s",
			ErrNotIdentified, m.Treatment, m.Outcome)
	}
	return out, nil
}

// minimalSets enumerates subsets of candidates smallest-first and keeps
// the valid ones that contain no smaller valid set.
func minimalSets(candidates []string, valid func([]string) bool) [][]string {
	var found [][]string
	isSuperset := func(set map[string]bool) bool {
		for _, f := range found {
			all := true
			for _, n := range f {
				if !set[n] {
					all = false
					break
				}
			}
			if all {
				return true
			}
		}
		return false
	}

	var combine func(start int, cur []string)
	sizeWant := 0
	combine = func(start int, cur []string) {
		if len(cur) == sizeWant {
			if isSuperset(toSet(cur)) {
				return
			}
			if valid(cur) {
				found = append(found, append([]string(nil), cur...))
			}
			return
		}
		for i := start; i < len(candidates); i++ {
			combine(i+1, append(cur, candidates[i]))
		}
	}
	for sizeWant = 0; sizeWant <= len(candidates); sizeWant++ {
		combine(0, nil)
	}
	return found
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
