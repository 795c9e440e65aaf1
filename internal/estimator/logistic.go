package estimator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/estimand.report/internal/monitoring"
)

const (
	logisticMaxIter = 50
	logisticTol     = 1e-8
	// Weights are floored so the IRLS system stays well conditioned when
	// fitted probabilities saturate.
	logisticMinWeight = 1e-6
)

// LogisticResult holds a fitted logistic regression.
type LogisticResult struct {
	Terms        []string
	Coefficients []float64
	Probs        []float64
	Iterations   int
}

// Logistic fits P(y=1 | x) by iteratively reweighted least squares with
// an intercept. The response must be 0/1.
func Logistic(y []float64, names []string, regressors [][]float64) (*LogisticResult, error) {
	n := len(y)
	k := len(regressors) + 1
	if n == 0 {
		return nil, fmt.Errorf("empty response")
	}
	if len(names) != len(regressors) {
		return nil, fmt.Errorf("got %d names for %d regressors", len(names), len(regressors))
	}
	for _, v := range y {
		if v != 0 && v != 1 {
			return nil, fmt.Errorf("logistic response must be 0/1, got %v", v)
		}
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

	beta := make([]float64, k)
	probs := make([]float64, n)
	iter := 0
	converged := false
	for ; iter < logisticMaxIter; iter++ {
		// Working response z = Xb + (y - p)/w with w = p(1-p).
		wx := mat.NewDense(n, k, nil)
		wz := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			eta := 0.0
			for j := 0; j < k; j++ {
				eta += X.At(i, j) * beta[j]
			}
			p := 1.0 / (1.0 + math.Exp(-eta))
			probs[i] = p
			w := p * (1 - p)
			if w < logisticMinWeight {
				w = logisticMinWeight
			}
			sw := math.Sqrt(w)
			for j := 0; j < k; j++ {
				wx.Set(i, j, sw*X.At(i, j))
			}
			wz.SetVec(i, sw*(eta+(y[i]-p)/w))
		}

		var next mat.VecDense
		if err := next.SolveVec(wx, wz); err != nil {
			return nil, fmt.Errorf("IRLS step failed: %w", err)
		}

		delta := 0.0
		for j := 0; j < k; j++ {
			delta += math.Abs(next.AtVec(j) - beta[j])
			beta[j] = next.AtVec(j)
		}
		if delta < logisticTol {
			converged = true
			iter++
			break
		}
	}

	if !converged {
		monitoring.Logf("logistic fit did not converge after %d iterations", iter)
	}

	// Final probabilities at the converged coefficients.
	for i := 0; i < n; i++ {
		eta := 0.0
		for j := 0; j < k; j++ {
			eta += X.At(i, j) * beta[j]
		}
		probs[i] = 1.0 / (1.0 + math.Exp(-eta))
	}

	return &LogisticResult{
		Terms:        append([]string{"(intercept)"}, names...),
		Coefficients: beta,
		Probs:        probs,
		Iterations:   iter,
	}, nil
}
