package estimator

import (
	"math"
	"strings"
	"testing"

	"github.com/banshee-data/estimand.report/internal/dag"
	"github.com/banshee-data/estimand.report/internal/dataset"
	"github.com/banshee-data/estimand.report/internal/model"
)

func boundModel(t *testing.T, edges [][2]string, treatment, outcome string, latent []string, cfg dataset.SynthConfig) *model.Model {
	t.Helper()
	g := dag.NewGraph()
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}
	m, err := model.New(g, treatment, outcome)
	if err != nil {
		t.Fatalf("model.New: %v", err)
	}
	if err := m.SetLatent(latent...); err != nil {
		t.Fatalf("SetLatent: %v", err)
	}
	f, err := dataset.Synthesize(g, cfg)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if err := m.BindData(f); err != nil {
		t.Fatalf("BindData: %v", err)
	}
	return m
}

func TestDefaultMethod(t *testing.T) {
	tests := []struct {
		kind model.Kind
		want Method
	}{
		{model.Backdoor, LinearRegression},
		{model.Frontdoor, FrontdoorLinear},
		{model.IV, TwoStageLS},
	}
	for _, tt := range tests {
		if got := DefaultMethod(tt.kind); got != tt.want {
			t.Errorf("DefaultMethod(%s) = %s, want %s", tt.kind, got, tt.want)
		}
	}
}

func TestBackdoorLinearRegressionEndToEnd(t *testing.T) {
	// z confounds x and y; true effect of x on y is 2.
	m := boundModel(t,
		[][2]string{{"z", "x"}, {"z", "y"}, {"x", "y"}},
		"x", "y", nil,
		dataset.SynthConfig{
			Rows: 3000,
			Seed: 31,
			Coeffs: map[string]float64{
				dataset.EdgeKey("x", "y"): 2.0,
				dataset.EdgeKey("z", "y"): 1.5,
			},
		},
	)
	estimands, err := m.Identify()
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}

	est, err := ForEstimand(m, estimands[0], "", PSMConfig{})
	if err != nil {
		t.Fatalf("ForEstimand: %v", err)
	}
	if est.Method != LinearRegression {
		t.Errorf("Method = %s, want %s", est.Method, LinearRegression)
	}
	if math.Abs(est.Value-2.0) > 0.15 {
		t.Errorf("Value = %v, want ~2.0", est.Value)
	}
	if est.StdError <= 0 {
		t.Errorf("StdError = %v, want positive", est.StdError)
	}
	if !strings.Contains(est.Summary(), "Estimated effect of x on y") {
		t.Errorf("Summary missing headline:\n%s", est.Summary())
	}
}

func TestBackdoorPropensityMatchingEndToEnd(t *testing.T) {
	// Binary treatment assigned from z; effect of x on y is 1.
	m := boundModel(t,
		[][2]string{{"z", "x"}, {"z", "y"}, {"x", "y"}},
		"x", "y", nil,
		dataset.SynthConfig{
			Rows:   3000,
			Seed:   32,
			Binary: []string{"x"},
			Coeffs: map[string]float64{
				dataset.EdgeKey("x", "y"): 1.0,
				dataset.EdgeKey("z", "y"): 2.0,
			},
		},
	)
	estimands, err := m.Identify()
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}

	est, err := ForEstimand(m, estimands[0], PropensityMatching, PSMConfig{})
	if err != nil {
		t.Fatalf("ForEstimand: %v", err)
	}
	if math.Abs(est.Value-1.0) > 0.35 {
		t.Errorf("Value = %v, want ~1.0", est.Value)
	}
	if len(est.Scores) != 3000 {
		t.Errorf("got %d scores, want 3000", len(est.Scores))
	}
}

func TestFrontdoorEndToEnd(t *testing.T) {
	// Latent confounding with a clean mediator chain; the total linear
	// effect x -> m -> y is 1.5 * 1.0 = 1.5.
	m := boundModel(t,
		[][2]string{{"u", "x"}, {"u", "y"}, {"x", "m"}, {"m", "y"}},
		"x", "y", []string{"u"},
		dataset.SynthConfig{
			Rows: 4000,
			Seed: 33,
			Coeffs: map[string]float64{
				dataset.EdgeKey("x", "m"): 1.5,
				dataset.EdgeKey("m", "y"): 1.0,
				dataset.EdgeKey("u", "x"): 1.0,
				dataset.EdgeKey("u", "y"): 2.0,
			},
		},
	)
	estimands, err := m.Identify()
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	var fd *model.Estimand
	for i := range estimands {
		if estimands[i].Kind == model.Frontdoor {
			fd = &estimands[i]
		}
	}
	if fd == nil {
		t.Fatalf("no frontdoor estimand in %v", estimands)
	}

	est, err := ForEstimand(m, *fd, "", PSMConfig{})
	if err != nil {
		t.Fatalf("ForEstimand: %v", err)
	}
	if math.Abs(est.Value-1.5) > 0.2 {
		t.Errorf("Value = %v, want ~1.5", est.Value)
	}
}

func TestIVEndToEnd(t *testing.T) {
	// z instruments x under latent confounding; true effect 2.
	m := boundModel(t,
		[][2]string{{"z", "x"}, {"u", "x"}, {"u", "y"}, {"x", "y"}},
		"x", "y", []string{"u"},
		dataset.SynthConfig{
			Rows: 5000,
			Seed: 34,
			Coeffs: map[string]float64{
				dataset.EdgeKey("x", "y"): 2.0,
				dataset.EdgeKey("u", "y"): 2.0,
			},
		},
	)
	estimands, err := m.Identify()
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	var iv *model.Estimand
	for i := range estimands {
		if estimands[i].Kind == model.IV {
			iv = &estimands[i]
		}
	}
	if iv == nil {
		t.Fatalf("no iv estimand in %v", estimands)
	}

	est, err := ForEstimand(m, *iv, "", PSMConfig{})
	if err != nil {
		t.Fatalf("ForEstimand: %v", err)
	}
	if math.Abs(est.Value-2.0) > 0.25 {
		t.Errorf("Value = %v, want ~2.0", est.Value)
	}
}

func TestForEstimandMismatches(t *testing.T) {
	m := boundModel(t,
		[][2]string{{"z", "x"}, {"z", "y"}, {"x", "y"}},
		"x", "y", nil,
		dataset.SynthConfig{Rows: 100, Seed: 35},
	)
	backdoor := model.Estimand{Kind: model.Backdoor, Treatment: "x", Outcome: "y", Adjustment: []string{"z"}}

	if _, err := ForEstimand(m, backdoor, TwoStageLS, PSMConfig{}); err == nil {
		t.Error("expected error: 2SLS on a backdoor estimand")
	}
	if _, err := ForEstimand(m, backdoor, "bogus", PSMConfig{}); err == nil {
		t.Error("expected error: unknown method")
	}

	unbound, err := model.New(m.Graph, "x", "y")
	if err != nil {
		t.Fatalf("model.New: %v", err)
	}
	if _, err := ForEstimand(unbound, backdoor, "", PSMConfig{}); err == nil {
		t.Error("expected error: no bound dataset")
	}
}
