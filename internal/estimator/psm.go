package estimator

import (
	"fmt"
	"math"
)

// PSMConfig tunes propensity score matching. The zero value means 1:1
// nearest-neighbour matching with no caliper.
type PSMConfig struct {
	// Caliper is the maximum allowed propensity distance for a match.
	// Zero disables the caliper.
	Caliper float64
}

// PSMResult holds a propensity score matching estimate.
type PSMResult struct {
	ATE       float64
	Scores    []float64
	Treated   int
	Controls  int
	Matched   int // matched units across both directions
	Unmatched int // units dropped by the caliper
}

// PropensityMatch estimates the average treatment effect by matching on
// propensity scores. Treatment must be 0/1; scores are fitted by
// logistic regression of treatment on the covariates, then every unit is
// matched to its nearest neighbour in the opposite group.
func PropensityMatch(treatment, outcome []float64, covNames []string, covariates [][]float64, cfg PSMConfig) (*PSMResult, error) {
	if len(treatment) != len(outcome) {
		return nil, fmt.Errorf("treatment has %d rows, outcome has %d", len(treatment), len(outcome))
	}
	if len(covariates) == 0 {
		return nil, fmt.Errorf("propensity matching needs at least one covariate")
	}

	logit, err := Logistic(treatment, covNames, covariates)
	if err != nil {
		return nil, fmt.Errorf("propensity model: %w", err)
	}
	scores := logit.Probs

	var treated, controls []int
	for i, t := range treatment {
		if t == 1 {
			treated = append(treated, i)
		} else {
			controls = append(controls, i)
		}
	}
	if len(treated) == 0 || len(controls) == 0 {
		return nil, fmt.Errorf("need both treated and control units (%d treated, %d controls)", len(treated), len(controls))
	}

	nearest := func(i int, pool []int) (int, float64) {
		best, bestDist := -1, math.Inf(1)
		for _, j := range pool {
			d := math.Abs(scores[i] - scores[j])
			if d < bestDist {
				best, bestDist = j, d
			}
		}
		return best, bestDist
	}

	// ATE averages the matched contrast over every unit: for treated
	// units y_i - y_match, for controls y_match - y_i.
	sum := 0.0
	matched, unmatched := 0, 0
	for _, i := range treated {
		j, d := nearest(i, controls)
		if cfg.Caliper > 0 && d > cfg.Caliper {
			unmatched++
			continue
		}
		sum += outcome[i] - outcome[j]
		matched++
	}
	for _, i := range controls {
		j, d := nearest(i, treated)
		if cfg.Caliper > 0 && d > cfg.Caliper {
			unmatched++
			continue
		}
		sum += outcome[j] - outcome[i]
		matched++
	}
	if matched == 0 {
		return nil, fmt.Errorf("caliper %g left no matched units", cfg.Caliper)
	}

	return &PSMResult{
		ATE:       sum / float64(matched),
		Scores:    scores,
		Treated:   len(treated),
		Controls:  len(controls),
		Matched:   matched,
		Unmatched: unmatched,
	}, nil
}
