// Package estimator computes causal-effect estimates from identified
// estimands: linear regression for backdoor adjustment, propensity score
// matching, and two-stage least squares for instruments.
package estimator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// OLSResult holds a fitted least-squares regression. Terms[0] is always
// the intercept.
type OLSResult struct {
	Terms        []string
	Coefficients []float64
	StdErrors    []float64
	Residuals    []float64
	Fitted       []float64
	RSquared     float64
	N            int
}

// Coefficient returns the coefficient for a named term.
func (r *OLSResult) Coefficient(term string) (float64, error) {
	for i, t := range r.Terms {
		if t == term {
			return r.Coefficients[i], nil
		}
	}
	return 0, fmt.Errorf("no term %q in regression", term)
}

// StdError returns the standard error for a named term.
func (r *OLSResult) StdError(term string) (float64, error) {
	for i, t := range r.Terms {
		if t == term {
			return r.StdErrors[i], nil
		}
	}
	return 0, fmt.Errorf("no term %q in regression", term)
}

// TStat returns coefficient / standard error for a named term.
func (r *OLSResult) TStat(term string) (float64, error) {
	c, err := r.Coefficient(term)
	if err != nil {
		return 0, err
	}
	se, err := r.StdError(term)
	if err != nil {
		return 0, err
	}
	if se == 0 {
		return 0, fmt.Errorf("zero standard error for term %q", term)
	}
	return c / se, nil
}

// OLS fits y on the named regressors by least squares with an intercept.
// Regressor columns must all have the same length as y.
func OLS(y []float64, names []string, regressors [][]float64) (*OLSResult, error) {
	n := len(y)
	k := len(regressors) + 1
	if n == 0 {
		return nil, fmt.Errorf("empty response")
	}
	if len(names) != len(regressors) {
		return nil, fmt.Errorf("got %d names for %d regressors", len(names), len(regressors))
	}
	if n < k {
		return nil, fmt.Errorf("need at least %d rows to fit %d terms, got %d", k, k, n)
	}
	for i, col := range regressors {
		if len(col) != n {
			return nil, fmt.Errorf("regressor %q has %d rows, response has %d", names[i], len(col), n)
		}
	}

	X := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, 1)
		for j, col := range regressors {
			X.Set(i, j+1, col[i])
		}
	}
	Y := mat.NewVecDense(n, append([]float64(nil), y...))

	var beta mat.VecDense
	if err := beta.SolveVec(X, Y); err != nil {
		return nil, fmt.Errorf("singular design matrix: %w", err)
	}

	res := &OLSResult{
		Terms:        append([]string{"(intercept)"}, names...),
		Coefficients: make([]float64, k),
		StdErrors:    make([]float64, k),
		Residuals:    make([]float64, n),
		Fitted:       make([]float64, n),
		N:            n,
	}
	for j := 0; j < k; j++ {
		res.Coefficients[j] = beta.AtVec(j)
	}

	var fitted mat.VecDense
	fitted.MulVec(X, &beta)
	rss := 0.0
	mean := 0.0
	for i := 0; i < n; i++ {
		mean += y[i]
	}
	mean /= float64(n)
	tss := 0.0
	for i := 0; i < n; i++ {
		res.Fitted[i] = fitted.AtVec(i)
		res.Residuals[i] = y[i] - res.Fitted[i]
		rss += res.Residuals[i] * res.Residuals[i]
		tss += (y[i] - mean) * (y[i] - mean)
	}
	if tss > 0 {
		res.RSquared = 1 - rss/tss
	}

	// sigma^2 (X'X)^-1 for standard errors.
	sigma2 := rss / float64(n-k)
	var xtx mat.Dense
	xtx.Mul(X.T(), X)
	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		return nil, fmt.Errorf("failed to invert X'X: %w", err)
	}
	for j := 0; j < k; j++ {
		res.StdErrors[j] = math.Sqrt(sigma2 * inv.At(j, j))
	}
	return res, nil
}
