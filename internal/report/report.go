// Package report renders analysis output: PNG diagnostic plots via
// gonum/plot and interactive HTML charts via go-echarts.
package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/estimand.report/internal/config"
)

// Reporter writes diagnostic plots for an analysis run.
type Reporter struct {
	cfg *config.AnalysisConfig
}

// NewReporter returns a reporter using the given analysis config for
// plot dimensions and binning. A nil config uses the defaults.
func NewReporter(cfg *config.AnalysisConfig) *Reporter {
	if cfg == nil {
		cfg = config.Empty()
	}
	return &Reporter{cfg: cfg}
}

var (
	treatedColor = color.RGBA{R: 255, G: 82, B: 82, A: 255}
	controlColor = color.RGBA{R: 158, G: 158, B: 158, A: 255}
	fitLineColor = color.RGBA{R: 31, G: 158, B: 137, A: 255}
)

// ScoreOverlapPNG plots propensity score histograms for treated and
// control units on one axis. Overlap between the two distributions is
// the visual check that matching has common support.
func (rp *Reporter) ScoreOverlapPNG(path string, scores, treatment []float64) error {
	if len(scores) != len(treatment) {
		return fmt.Errorf("scores and treatment must have equal length, got %d and %d", len(scores), len(treatment))
	}
	if len(scores) == 0 {
		return fmt.Errorf("no scores to plot")
	}

	var treated, control plotter.Values
	for i, s := range scores {
		if treatment[i] == 1 {
			treated = append(treated, s)
		} else {
			control = append(control, s)
		}
	}

	p := plot.New()
	p.Title.Text = "Propensity Score Overlap"
	p.X.Label.Text = "Propensity score"
	p.Y.Label.Text = "Count"

	bins := rp.cfg.GetScoreBins()
	if len(control) > 0 {
		h, err := plotter.NewHist(control, bins)
		if err != nil {
			return fmt.Errorf("control histogram: %w", err)
		}
		h.FillColor = controlColor
		h.LineStyle.Width = 0
		p.Add(h)
		p.Legend.Add("control", h)
	}
	if len(treated) > 0 {
		h, err := plotter.NewHist(treated, bins)
		if err != nil {
			return fmt.Errorf("treated histogram: %w", err)
		}
		h.FillColor = treatedColor
		h.LineStyle.Width = 0
		p.Add(h)
		p.Legend.Add("treated", h)
	}

	p.Legend.Top = true
	p.Legend.Left = true

	return rp.save(p, path)
}

// FitScatterPNG plots observed outcome values against fitted values
// with a reference identity line.
func (rp *Reporter) FitScatterPNG(path string, observed, fitted []float64) error {
	if len(observed) != len(fitted) {
		return fmt.Errorf("observed and fitted must have equal length, got %d and %d", len(observed), len(fitted))
	}
	if len(observed) == 0 {
		return fmt.Errorf("no points to plot")
	}

	pts := make(plotter.XYs, len(observed))
	lo, hi := observed[0], observed[0]
	for i := range observed {
		pts[i] = plotter.XY{X: fitted[i], Y: observed[i]}
		for _, v := range []float64{observed[i], fitted[i]} {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}

	p := plot.New()
	p.Title.Text = "Observed vs Fitted"
	p.X.Label.Text = "Fitted"
	p.Y.Label.Text = "Observed"

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("scatter: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(1.5)
	scatter.GlyphStyle.Color = controlColor
	p.Add(scatter)

	ident, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return fmt.Errorf("identity line: %w", err)
	}
	ident.Color = fitLineColor
	ident.Width = vg.Points(1)
	p.Add(ident)
	p.Legend.Add("y = x", ident)
	p.Legend.Top = true
	p.Legend.Left = true

	return rp.save(p, path)
}

// ResidualsPNG plots regression residuals against fitted values. A
// structureless band around zero is the linearity check.
func (rp *Reporter) ResidualsPNG(path string, fitted, residuals []float64) error {
	if len(fitted) != len(residuals) {
		return fmt.Errorf("fitted and residuals must have equal length, got %d and %d", len(fitted), len(residuals))
	}
	if len(fitted) == 0 {
		return fmt.Errorf("no points to plot")
	}

	pts := make(plotter.XYs, len(fitted))
	lo, hi := fitted[0], fitted[0]
	for i := range fitted {
		pts[i] = plotter.XY{X: fitted[i], Y: residuals[i]}
		if fitted[i] < lo {
			lo = fitted[i]
		}
		if fitted[i] > hi {
			hi = fitted[i]
		}
	}

	p := plot.New()
	p.Title.Text = "Residuals vs Fitted"
	p.X.Label.Text = "Fitted"
	p.Y.Label.Text = "Residual"

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("scatter: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(1.5)
	scatter.GlyphStyle.Color = controlColor
	p.Add(scatter)

	zero, err := plotter.NewLine(plotter.XYs{{X: lo, Y: 0}, {X: hi, Y: 0}})
	if err != nil {
		return fmt.Errorf("zero line: %w", err)
	}
	zero.Color = fitLineColor
	zero.Width = vg.Points(1)
	p.Add(zero)

	return rp.save(p, path)
}

func (rp *Reporter) save(p *plot.Plot, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create plot dir: %w", err)
		}
	}
	w := vg.Length(rp.cfg.GetPlotWidthInches()) * vg.Inch
	h := vg.Length(rp.cfg.GetPlotHeightInches()) * vg.Inch
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", filepath.Base(path), err)
	}
	return nil
}
