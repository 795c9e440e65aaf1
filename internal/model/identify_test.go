package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/banshee-data/estimand.report/internal/dag"
	"github.com/banshee-data/estimand.report/internal/dataset"
	"github.com/google/go-cmp/cmp"
)

func build(t *testing.T, edges ...[2]string) *dag.Graph {
	t.Helper()
	g := dag.NewGraph()
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatalf("AddEdge(%s, %s): %v", e[0], e[1], err)
		}
	}
	return g
}

func newModel(t *testing.T, g *dag.Graph, treatment, outcome string, latent ...string) *Model {
	t.Helper()
	m, err := New(g, treatment, outcome)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.SetLatent(latent...); err != nil {
		t.Fatalf("SetLatent: %v", err)
	}
	return m
}

func TestNewValidation(t *testing.T) {
	g := build(t, [2]string{"x", "y"})
	if _, err := New(g, "x", "x"); err == nil {
		t.Error("expected error for treatment == outcome")
	}
	if _, err := New(g, "missing", "y"); err == nil {
		t.Error("expected error for unknown treatment")
	}
	cyclic := build(t, [2]string{"a", "b"}, [2]string{"b", "a"})
	if _, err := New(cyclic, "a", "b"); err == nil {
		t.Error("expected error for cyclic graph")
	}
}

func TestSetLatentValidation(t *testing.T) {
	g := build(t, [2]string{"z", "x"}, [2]string{"x", "y"})
	m := newModel(t, g, "x", "y")
	if err := m.SetLatent("x"); err == nil {
		t.Error("expected error marking treatment latent")
	}
	if err := m.SetLatent("ghost"); err == nil {
		t.Error("expected error marking unknown node latent")
	}
	if err := m.SetLatent("z"); err != nil {
		t.Errorf("SetLatent(z): %v", err)
	}
	if diff := cmp.Diff([]string{"z"}, m.Latent()); diff != "" {
		t.Errorf("Latent() mismatch (-want +got):\n%s", diff)
	}
}

func TestBackdoorSets(t *testing.T) {
	tests := []struct {
		name      string
		edges     [][2]string
		latent    []string
		treatment string
		outcome   string
		want      [][]string
	}{
		{
			name:      "no confounding needs empty set",
			edges:     [][2]string{{"x", "y"}},
			treatment: "x", outcome: "y",
			want: [][]string{nil},
		},
		{
			name: "single confounder",
			edges: [][2]string{
				{"z", "x"}, {"z", "y"}, {"x", "y"},
			},
			treatment: "x", outcome: "y",
			want: [][]string{{"z"}},
		},
		{
			name: "two independent confounders",
			edges: [][2]string{
				{"a", "x"}, {"a", "y"},
				{"b", "x"}, {"b", "y"},
				{"x", "y"},
			},
			treatment: "x", outcome: "y",
			want: [][]string{{"a", "b"}},
		},
		{
			name: "two minimal sets via chain",
			edges: [][2]string{
				{"u", "w"}, {"w", "x"}, {"u", "y"}, {"x", "y"},
			},
			treatment: "x", outcome: "y",
			want: [][]string{{"u"}, {"w"}},
		},
		{
			name: "latent confounder blocks identification",
			edges: [][2]string{
				{"u", "x"}, {"u", "y"}, {"x", "y"},
			},
			latent:    []string{"u"},
			treatment: "x", outcome: "y",
			want: nil,
		},
		{
			name: "descendant of treatment excluded",
			edges: [][2]string{
				{"z", "x"}, {"z", "y"}, {"x", "m"}, {"m", "y"},
			},
			treatment: "x", outcome: "y",
			want: [][]string{{"z"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newModel(t, build(t, tt.edges...), tt.treatment, tt.outcome, tt.latent...)
			got, err := m.BackdoorSets()
			if err != nil {
				t.Fatalf("BackdoorSets: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("BackdoorSets mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFrontdoorSets(t *testing.T) {
	// The classic frontdoor graph: smoking -> tar -> cancer with a
	// latent confounder of smoking and cancer.
	g := build(t,
		[2]string{"u", "smoking"},
		[2]string{"u", "cancer"},
		[2]string{"smoking", "tar"},
		[2]string{"tar", "cancer"},
	)
	m := newModel(t, g, "smoking", "cancer", "u")

	sets, err := m.FrontdoorSets()
	if err != nil {
		t.Fatalf("FrontdoorSets: %v", err)
	}
	if diff := cmp.Diff([][]string{{"tar"}}, sets); diff != "" {
		t.Errorf("FrontdoorSets mismatch (-want +got):\n%s", diff)
	}
}

func TestFrontdoorRejectsConfoundedMediator(t *testing.T) {
	// w confounds the mediator and the outcome, so the frontdoor
	// criterion fails.
	g := build(t,
		[2]string{"u", "x"},
		[2]string{"u", "y"},
		[2]string{"x", "m"},
		[2]string{"m", "y"},
		[2]string{"w", "m"},
		[2]string{"w", "y"},
	)
	m := newModel(t, g, "x", "y", "u", "w")

	sets, err := m.FrontdoorSets()
	if err != nil {
		t.Fatalf("FrontdoorSets: %v", err)
	}
	if len(sets) != 0 {
		t.Errorf("FrontdoorSets = %v, want none", sets)
	}
}

func TestInstruments(t *testing.T) {
	// z instruments x; u is a latent confounder of x and y.
	g := build(t,
		[2]string{"z", "x"},
		[2]string{"u", "x"},
		[2]string{"u", "y"},
		[2]string{"x", "y"},
	)
	m := newModel(t, g, "x", "y", "u")

	got, err := m.Instruments()
	if err != nil {
		t.Fatalf("Instruments: %v", err)
	}
	if diff := cmp.Diff([]string{"z"}, got); diff != "" {
		t.Errorf("Instruments mismatch (-want +got):\n%s", diff)
	}
}

func TestInstrumentRejectsDirectEffect(t *testing.T) {
	// z -> y directly, violating the exclusion restriction.
	g := build(t,
		[2]string{"z", "x"},
		[2]string{"z", "y"},
		[2]string{"u", "x"},
		[2]string{"u", "y"},
		[2]string{"x", "y"},
	)
	m := newModel(t, g, "x", "y", "u")

	got, err := m.Instruments()
	if err != nil {
		t.Fatalf("Instruments: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Instruments = %v, want none", got)
	}
}

func TestInstrumentRejectsConfoundedInstrument(t *testing.T) {
	// A latent common cause of z and y breaks the instrument.
	g := build(t,
		[2]string{"z", "x"},
		[2]string{"v", "z"},
		[2]string{"v", "y"},
		[2]string{"u", "x"},
		[2]string{"u", "y"},
		[2]string{"x", "y"},
	)
	m := newModel(t, g, "x", "y", "u", "v")

	got, err := m.Instruments()
	if err != nil {
		t.Fatalf("Instruments: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Instruments = %v, want none", got)
	}
}

func TestIdentify(t *testing.T) {
	t.Run("backdoor and iv", func(t *testing.T) {
		g := build(t,
			[2]string{"z", "x"},
			[2]string{"w", "x"},
			[2]string{"w", "y"},
			[2]string{"x", "y"},
		)
		m := newModel(t, g, "x", "y")
		estimands, err := m.Identify()
		if err != nil {
			t.Fatalf("Identify: %v", err)
		}
		kinds := make([]Kind, len(estimands))
		for i, e := range estimands {
			kinds[i] = e.Kind
		}
		// z is also a valid instrument for x here.
		if diff := cmp.Diff([]Kind{Backdoor, IV}, kinds); diff != "" {
			t.Errorf("kinds mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"w"}, estimands[0].Adjustment); diff != "" {
			t.Errorf("adjustment mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"z"}, estimands[1].Instruments); diff != "" {
			t.Errorf("instruments mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("frontdoor and iv under latent confounding", func(t *testing.T) {
		g := build(t,
			[2]string{"z", "x"},
			[2]string{"u", "x"},
			[2]string{"u", "y"},
			[2]string{"x", "m"},
			[2]string{"m", "y"},
		)
		m := newModel(t, g, "x", "y", "u")
		estimands, err := m.Identify()
		if err != nil {
			t.Fatalf("Identify: %v", err)
		}
		kinds := make([]Kind, len(estimands))
		for i, e := range estimands {
			kinds[i] = e.Kind
		}
		if diff := cmp.Diff([]Kind{Frontdoor, IV}, kinds); diff != "" {
			t.Errorf("kinds mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unidentified bow", func(t *testing.T) {
		g := build(t,
			[2]string{"u", "x"},
			[2]string{"u", "y"},
			[2]string{"x", "y"},
		)
		m := newModel(t, g, "x", "y", "u")
		_, err := m.Identify()
		if !errors.Is(err, ErrNotIdentified) {
			t.Fatalf("Identify error = %v, want ErrNotIdentified", err)
		}
	})
}

func TestEstimandSummary(t *testing.T) {
	tests := []struct {
		name     string
		estimand Estimand
		contains []string
	}{
		{
			name: "backdoor",
			estimand: Estimand{
				Kind: Backdoor, Treatment: "x", Outcome: "y", Adjustment: []string{"z"},
			},
			contains: []string{"backdoor", "do(x)", "{z}"},
		},
		{
			name: "frontdoor",
			estimand: Estimand{
				Kind: Frontdoor, Treatment: "x", Outcome: "y", Mediators: []string{"m"},
			},
			contains: []string{"frontdoor", "{m}", "directed paths"},
		},
		{
			name: "iv",
			estimand: Estimand{
				Kind: IV, Treatment: "x", Outcome: "y", Instruments: []string{"z"},
			},
			contains: []string{"iv", "cov(z, y)", "cov(z, x)"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.estimand.Summary()
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("Summary missing %q:\n%s", want, got)
				}
			}
		})
	}
}

func TestBindData(t *testing.T) {
	g := build(t, [2]string{"u", "x"}, [2]string{"u", "y"}, [2]string{"x", "y"})
	m := newModel(t, g, "x", "y", "u")

	f := dataset.NewFrame()
	_ = f.AddColumn("x", []float64{0, 1})
	_ = f.AddColumn("y", []float64{1, 2})

	// Latent u needs no column.
	if err := m.BindData(f); err != nil {
		t.Fatalf("BindData: %v", err)
	}

	m2 := newModel(t, g, "x", "y")
	if err := m2.BindData(f); err == nil {
		t.Error("expected error: observed node u has no column")
	}
}
