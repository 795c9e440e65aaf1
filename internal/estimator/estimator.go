package estimator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/banshee-data/estimand.report/internal/dataset"
	"github.com/banshee-data/estimand.report/internal/model"
)

// Method names an estimation method.
type Method string

const (
	LinearRegression   Method = "linear_regression"
	PropensityMatching Method = "propensity_matching"
	TwoStageLS         Method = "two_stage_least_squares"
	FrontdoorLinear    Method = "frontdoor_linear"
)

// DefaultMethod returns the usual estimator for an estimand kind.
func DefaultMethod(kind model.Kind) Method {
	switch kind {
	case model.Frontdoor:
		return FrontdoorLinear
	case model.IV:
		return TwoStageLS
	default:
		return LinearRegression
	}
}

// Estimate is a computed causal effect with the estimand it realises.
type Estimate struct {
	Method   Method
	Estimand model.Estimand
	Value    float64
	StdError float64 // zero when the method does not produce one

	// Scores holds propensity scores when Method is PropensityMatching.
	Scores []float64
	// Details holds method-specific diagnostics.
	Details map[string]float64
}

// Summary renders the estimate as the block printed by the CLI and API.
func (e *Estimate) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Method: %s\n", e.Method)
	fmt.Fprintf(&b, "Estimated effect of %s on %s: %.6g\n", e.Estimand.Treatment, e.Estimand.Outcome, e.Value)
	if e.StdError > 0 {
		fmt.Fprintf(&b, "Std error: %.6g\n", e.StdError)
	}
	for _, k := range sortedDetailKeys(e.Details) {
		fmt.Fprintf(&b, "%s: %.6g\n", k, e.Details[k])
	}
	return b.String()
}

func sortedDetailKeys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ForEstimand estimates the effect described by the estimand from the
// model's bound dataset. Passing an empty method selects DefaultMethod.
func ForEstimand(m *model.Model, e model.Estimand, method Method, psm PSMConfig) (*Estimate, error) {
	if m.Data == nil {
		return nil, fmt.Errorf("model has no bound dataset")
	}
	if method == "" {
		method = DefaultMethod(e.Kind)
	}

	switch method {
	case LinearRegression:
		if e.Kind != model.Backdoor {
			return nil, fmt.Errorf("method %s requires a backdoor estimand, got %s", method, e.Kind)
		}
		return backdoorOLS(m.Data, e)
	case PropensityMatching:
		if e.Kind != model.Backdoor {
			return nil, fmt.Errorf("method %s requires a backdoor estimand, got %s", method, e.Kind)
		}
		return backdoorPSM(m.Data, e, psm)
	case FrontdoorLinear:
		if e.Kind != model.Frontdoor {
			return nil, fmt.Errorf("method %s requires a frontdoor estimand, got %s", method, e.Kind)
		}
		return frontdoorChain(m.Data, e)
	case TwoStageLS:
		if e.Kind != model.IV {
			return nil, fmt.Errorf("method %s requires an iv estimand, got %s", method, e.Kind)
		}
		return ivTSLS(m.Data, e)
	default:
		return nil, fmt.Errorf("unknown estimation method %q", method)
	}
}

func columns(f *dataset.Frame, names []string) ([][]float64, error) {
	out := make([][]float64, 0, len(names))
	for _, n := range names {
		col, err := f.Column(n)
		if err != nil {
			return nil, err
		}
		out = append(out, col)
	}
	return out, nil
}

func backdoorOLS(f *dataset.Frame, e model.Estimand) (*Estimate, error) {
	y, err := f.Column(e.Outcome)
	if err != nil {
		return nil, err
	}
	names := append([]string{e.Treatment}, e.Adjustment...)
	cols, err := columns(f, names)
	if err != nil {
		return nil, err
	}
	fit, err := OLS(y, names, cols)
	if err != nil {
		return nil, err
	}
	value, err := fit.Coefficient(e.Treatment)
	if err != nil {
		return nil, err
	}
	se, _ := fit.StdError(e.Treatment)
	return &Estimate{
		Method:   LinearRegression,
		Estimand: e,
		Value:    value,
		StdError: se,
		Details:  map[string]float64{"r_squared": fit.RSquared, "n": float64(fit.N)},
	}, nil
}

func backdoorPSM(f *dataset.Frame, e model.Estimand, cfg PSMConfig) (*Estimate, error) {
	treatment, err := f.Column(e.Treatment)
	if err != nil {
		return nil, err
	}
	outcome, err := f.Column(e.Outcome)
	if err != nil {
		return nil, err
	}
	cols, err := columns(f, e.Adjustment)
	if err != nil {
		return nil, err
	}
	res, err := PropensityMatch(treatment, outcome, e.Adjustment, cols, cfg)
	if err != nil {
		return nil, err
	}
	return &Estimate{
		Method:   PropensityMatching,
		Estimand: e,
		Value:    res.ATE,
		Scores:   res.Scores,
		Details: map[string]float64{
			"treated":   float64(res.Treated),
			"controls":  float64(res.Controls),
			"matched":   float64(res.Matched),
			"unmatched": float64(res.Unmatched),
		},
	}, nil
}

// frontdoorChain multiplies the treatment -> mediator and mediator ->
// outcome regressions, summing over mediators. In a linear model this
// equals the frontdoor adjustment formula.
func frontdoorChain(f *dataset.Frame, e model.Estimand) (*Estimate, error) {
	treatment, err := f.Column(e.Treatment)
	if err != nil {
		return nil, err
	}
	outcome, err := f.Column(e.Outcome)
	if err != nil {
		return nil, err
	}

	// Outcome on mediators plus treatment (treatment blocks the
	// mediator -> outcome backdoor through itself).
	medNames := append([]string(nil), e.Mediators...)
	medCols, err := columns(f, medNames)
	if err != nil {
		return nil, err
	}
	outcomeFit, err := OLS(outcome, append(medNames, e.Treatment), append(append([][]float64(nil), medCols...), treatment))
	if err != nil {
		return nil, fmt.Errorf("mediator -> outcome stage: %w", err)
	}

	total := 0.0
	for i, med := range e.Mediators {
		medFit, err := OLS(medCols[i], []string{e.Treatment}, [][]float64{treatment})
		if err != nil {
			return nil, fmt.Errorf("treatment -> %s stage: %w", med, err)
		}
		a, err := medFit.Coefficient(e.Treatment)
		if err != nil {
			return nil, err
		}
		b, err := outcomeFit.Coefficient(med)
		if err != nil {
			return nil, err
		}
		total += a * b
	}

	return &Estimate{
		Method:   FrontdoorLinear,
		Estimand: e,
		Value:    total,
		Details:  map[string]float64{"n": float64(len(outcome)), "mediators": float64(len(e.Mediators))},
	}, nil
}

func ivTSLS(f *dataset.Frame, e model.Estimand) (*Estimate, error) {
	treatment, err := f.Column(e.Treatment)
	if err != nil {
		return nil, err
	}
	outcome, err := f.Column(e.Outcome)
	if err != nil {
		return nil, err
	}
	insts, err := columns(f, e.Instruments)
	if err != nil {
		return nil, err
	}
	res, err := TSLS(treatment, outcome, e.Instruments, insts, nil, nil)
	if err != nil {
		return nil, err
	}
	se, _ := res.SecondStage.StdError("fitted_treatment")
	firstF, _ := res.FirstStage.TStat(e.Instruments[0])
	return &Estimate{
		Method:   TwoStageLS,
		Estimand: e,
		Value:    res.Effect,
		StdError: se,
		Details: map[string]float64{
			"n":                 float64(res.FirstStage.N),
			"first_stage_tstat": firstF,
		},
	}, nil
}
