package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical analysis defaults file.
const DefaultConfigPath = "config/analysis.defaults.json"

// AnalysisConfig holds tunable estimation and reporting parameters. The
// schema matches the /api/params endpoint so the same JSON serves both
// startup configuration and runtime updates. All fields are pointers so
// partial configs only override what they mention.
type AnalysisConfig struct {
	// Estimation params
	Seed          *int64   `json:"seed,omitempty"`
	MatchCaliper  *float64 `json:"match_caliper,omitempty"`
	SynthRows     *int     `json:"synth_rows,omitempty"`
	SynthNoise    *float64 `json:"synth_noise,omitempty"`
	MinRowsPerFit *int     `json:"min_rows_per_fit,omitempty"`

	// Report params
	PlotWidthInches  *float64 `json:"plot_width_inches,omitempty"`
	PlotHeightInches *float64 `json:"plot_height_inches,omitempty"`
	ScoreBins        *int     `json:"score_bins,omitempty"`
}

// Empty returns an AnalysisConfig with all fields unset.
func Empty() *AnalysisConfig {
	return &AnalysisConfig{}
}

// Load reads an AnalysisConfig from a JSON file. Fields omitted from the
// file fall back through the Get* accessors, so partial configs are safe.
func Load(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no estimator or plotter could use.
func (c *AnalysisConfig) Validate() error {
	if c.MatchCaliper != nil && *c.MatchCaliper < 0 {
		return fmt.Errorf("match_caliper must be >= 0, got %g", *c.MatchCaliper)
	}
	if c.SynthRows != nil && *c.SynthRows <= 0 {
		return fmt.Errorf("synth_rows must be positive, got %d", *c.SynthRows)
	}
	if c.SynthNoise != nil && *c.SynthNoise <= 0 {
		return fmt.Errorf("synth_noise must be positive, got %g", *c.SynthNoise)
	}
	if c.MinRowsPerFit != nil && *c.MinRowsPerFit < 2 {
		return fmt.Errorf("min_rows_per_fit must be >= 2, got %d", *c.MinRowsPerFit)
	}
	if c.PlotWidthInches != nil && *c.PlotWidthInches <= 0 {
		return fmt.Errorf("plot_width_inches must be positive, got %g", *c.PlotWidthInches)
	}
	if c.PlotHeightInches != nil && *c.PlotHeightInches <= 0 {
		return fmt.Errorf("plot_height_inches must be positive, got %g", *c.PlotHeightInches)
	}
	if c.ScoreBins != nil && *c.ScoreBins < 2 {
		return fmt.Errorf("score_bins must be >= 2, got %d", *c.ScoreBins)
	}
	return nil
}

// GetSeed returns the RNG seed, defaulting to 1.
func (c *AnalysisConfig) GetSeed() int64 {
	if c.Seed != nil {
		return *c.Seed
	}
	return 1
}

// GetMatchCaliper returns the propensity caliper; zero disables it.
func (c *AnalysisConfig) GetMatchCaliper() float64 {
	if c.MatchCaliper != nil {
		return *c.MatchCaliper
	}
	return 0
}

// GetSynthRows returns the synthetic sample size, defaulting to 1000.
func (c *AnalysisConfig) GetSynthRows() int {
	if c.SynthRows != nil {
		return *c.SynthRows
	}
	return 1000
}

// GetSynthNoise returns the synthetic noise stddev, defaulting to 1.0.
func (c *AnalysisConfig) GetSynthNoise() float64 {
	if c.SynthNoise != nil {
		return *c.SynthNoise
	}
	return 1.0
}

// GetMinRowsPerFit returns the minimum rows an estimator accepts,
// defaulting to 30.
func (c *AnalysisConfig) GetMinRowsPerFit() int {
	if c.MinRowsPerFit != nil {
		return *c.MinRowsPerFit
	}
	return 30
}

// GetPlotWidthInches returns the report plot width, defaulting to 10.
func (c *AnalysisConfig) GetPlotWidthInches() float64 {
	if c.PlotWidthInches != nil {
		return *c.PlotWidthInches
	}
	return 10
}

// GetPlotHeightInches returns the report plot height, defaulting to 6.
func (c *AnalysisConfig) GetPlotHeightInches() float64 {
	if c.PlotHeightInches != nil {
		return *c.PlotHeightInches
	}
	return 6
}

// GetScoreBins returns the number of bins for score overlap plots,
// defaulting to 20.
func (c *AnalysisConfig) GetScoreBins() int {
	if c.ScoreBins != nil {
		return *c.ScoreBins
	}
	return 20
}
