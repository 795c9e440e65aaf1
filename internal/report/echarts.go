package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/estimand.report/internal/dag"
	"github.com/banshee-data/estimand.report/internal/estimator"
)

// Node colors for the DAG chart. Latent nodes render hollow grey so
// unobserved confounding is visible at a glance.
const (
	treatmentNodeColor = "#ff5252"
	outcomeNodeColor   = "#1f9e89"
	latentNodeColor    = "#9e9e9e"
	plainNodeColor     = "#31688e"
)

// RenderDAGChart writes an interactive force-layout chart of the causal
// graph as a standalone HTML document.
func RenderDAGChart(w io.Writer, g *dag.Graph, treatment, outcome string, latent []string) error {
	latentSet := make(map[string]bool, len(latent))
	for _, n := range latent {
		latentSet[n] = true
	}

	nodes := make([]opts.GraphNode, 0, len(g.Nodes()))
	for _, name := range g.Nodes() {
		color := plainNodeColor
		switch {
		case name == treatment:
			color = treatmentNodeColor
		case name == outcome:
			color = outcomeNodeColor
		case latentSet[name]:
			color = latentNodeColor
		}
		nodes = append(nodes, opts.GraphNode{
			Name:       name,
			SymbolSize: 30,
			ItemStyle:  &opts.ItemStyle{Color: color},
		})
	}

	edges := g.Edges()
	links := make([]opts.GraphLink, 0, len(edges))
	for _, e := range edges {
		links = append(links, opts.GraphLink{Source: e.From, Target: e.To})
	}

	chart := charts.NewGraph()
	chart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Causal Graph", Theme: "dark", Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Causal Graph",
			Subtitle: fmt.Sprintf("treatment=%s outcome=%s nodes=%d edges=%d", treatment, outcome, len(nodes), len(links)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	chart.AddSeries("dag", nodes, links,
		charts.WithGraphChartOpts(opts.GraphChart{
			Layout:     "force",
			Force:      &opts.GraphForce{Repulsion: 400, EdgeLength: 120},
			Roam:       opts.Bool(true),
			EdgeSymbol: []string{"none", "arrow"},
		}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)

	if err := chart.Render(w); err != nil {
		return fmt.Errorf("failed to render graph chart: %w", err)
	}
	return nil
}

// RenderEstimateChart writes a bar chart comparing the effect estimates
// from each estimand/method pair as a standalone HTML document.
func RenderEstimateChart(w io.Writer, estimates []*estimator.Estimate) error {
	if len(estimates) == 0 {
		return fmt.Errorf("no estimates to chart")
	}

	labels := make([]string, 0, len(estimates))
	bars := make([]opts.BarData, 0, len(estimates))
	for _, est := range estimates {
		labels = append(labels, fmt.Sprintf("%s/%s", est.Estimand.Kind, est.Method))
		bars = append(bars, opts.BarData{Value: est.Value})
	}

	first := estimates[0].Estimand
	chart := charts.NewBar()
	chart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Effect Estimates", Theme: "dark", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Effect Estimates",
			Subtitle: fmt.Sprintf("effect of %s on %s across %d estimator(s)", first.Treatment, first.Outcome, len(estimates)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	chart.SetXAxis(labels)
	chart.AddSeries("effect", bars,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)

	if err := chart.Render(w); err != nil {
		return fmt.Errorf("failed to render estimate chart: %w", err)
	}
	return nil
}
