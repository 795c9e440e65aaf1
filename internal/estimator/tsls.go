package estimator

import (
	"fmt"
)

// TSLSResult holds a two-stage least squares estimate.
type TSLSResult struct {
	Effect      float64
	FirstStage  *OLSResult
	SecondStage *OLSResult
}

// TSLS estimates the effect of treatment on outcome using instruments:
// stage one regresses the treatment on the instruments (plus any
// exogenous covariates), stage two regresses the outcome on the fitted
// treatment (plus the same covariates).
func TSLS(treatment, outcome []float64, instNames []string, instruments [][]float64, exogNames []string, exogenous [][]float64) (*TSLSResult, error) {
	if len(instruments) == 0 {
		return nil, fmt.Errorf("two-stage least squares needs at least one instrument")
	}
	if len(treatment) != len(outcome) {
		return nil, fmt.Errorf("treatment has %d rows, outcome has %d", len(treatment), len(outcome))
	}

	stage1Names := append(append([]string(nil), instNames...), exogNames...)
	stage1Cols := append(append([][]float64(nil), instruments...), exogenous...)
	first, err := OLS(treatment, stage1Names, stage1Cols)
	if err != nil {
		return nil, fmt.Errorf("first stage: %w", err)
	}

	stage2Names := append([]string{"fitted_treatment"}, exogNames...)
	stage2Cols := append([][]float64{first.Fitted}, exogenous...)
	second, err := OLS(outcome, stage2Names, stage2Cols)
	if err != nil {
		return nil, fmt.Errorf("second stage: %w", err)
	}

	effect, err := second.Coefficient("fitted_treatment")
	if err != nil {
		return nil, err
	}
	return &TSLSResult{Effect: effect, FirstStage: first, SecondStage: second}, nil
}
