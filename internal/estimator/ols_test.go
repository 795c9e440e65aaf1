package estimator

import (
	"math"
	"math/rand"
	"testing"
)

func TestOLSExactFit(t *testing.T) {
	// y = 3 + 2a - b with no noise: coefficients recover exactly.
	a := []float64{0, 1, 2, 3, 4, 5}
	b := []float64{1, 0, 2, 1, 3, 2}
	y := make([]float64, len(a))
	for i := range y {
		y[i] = 3 + 2*a[i] - b[i]
	}

	fit, err := OLS(y, []string{"a", "b"}, [][]float64{a, b})
	if err != nil {
		t.Fatalf("OLS: %v", err)
	}

	for _, tc := range []struct {
		term string
		want float64
	}{
		{"(intercept)", 3},
		{"a", 2},
		{"b", -1},
	} {
		got, err := fit.Coefficient(tc.term)
		if err != nil {
			t.Fatalf("Coefficient(%s): %v", tc.term, err)
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("coefficient %s = %v, want %v", tc.term, got, tc.want)
		}
	}
	if fit.RSquared < 0.999999 {
		t.Errorf("RSquared = %v, want ~1", fit.RSquared)
	}
	for i, r := range fit.Residuals {
		if math.Abs(r) > 1e-9 {
			t.Errorf("residual[%d] = %v, want ~0", i, r)
		}
	}
}

func TestOLSNoisyRecovery(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	n := 2000
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = rng.NormFloat64()
		y[i] = 1.5*x[i] + 0.5 + rng.NormFloat64()*0.5
	}

	fit, err := OLS(y, []string{"x"}, [][]float64{x})
	if err != nil {
		t.Fatalf("OLS: %v", err)
	}
	coef, _ := fit.Coefficient("x")
	if math.Abs(coef-1.5) > 0.1 {
		t.Errorf("coefficient x = %v, want ~1.5", coef)
	}
	se, _ := fit.StdError("x")
	if se <= 0 || se > 0.1 {
		t.Errorf("StdError(x) = %v, want small positive", se)
	}
	ts, err := fit.TStat("x")
	if err != nil {
		t.Fatalf("TStat: %v", err)
	}
	if ts < 10 {
		t.Errorf("TStat(x) = %v, want strongly significant", ts)
	}
}

func TestOLSErrors(t *testing.T) {
	tests := []struct {
		name       string
		y          []float64
		names      []string
		regressors [][]float64
	}{
		{"empty response", nil, nil, nil},
		{"name count mismatch", []float64{1, 2}, []string{"a"}, nil},
		{"row count mismatch", []float64{1, 2, 3}, []string{"a"}, [][]float64{{1, 2}}},
		{"more terms than rows", []float64{1}, []string{"a"}, [][]float64{{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := OLS(tt.y, tt.names, tt.regressors); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestOLSUnknownTerm(t *testing.T) {
	fit, err := OLS([]float64{1, 2, 3}, []string{"a"}, [][]float64{{1, 2, 4}})
	if err != nil {
		t.Fatalf("OLS: %v", err)
	}
	if _, err := fit.Coefficient("nope"); err == nil {
		t.Error("expected error for unknown term")
	}
	if _, err := fit.StdError("nope"); err == nil {
		t.Error("expected error for unknown term")
	}
}
