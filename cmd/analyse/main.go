// Command analyse runs the identification-and-estimation pipeline on a
// graph file and a CSV dataset, printing estimand and estimate summaries
// to stdout. It can optionally write report files, store the run in a
// results database, or post the analysis to a running server.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/estimand.report/internal/api"
	"github.com/banshee-data/estimand.report/internal/config"
	"github.com/banshee-data/estimand.report/internal/dag"
	"github.com/banshee-data/estimand.report/internal/dataset"
	"github.com/banshee-data/estimand.report/internal/db"
	"github.com/banshee-data/estimand.report/internal/estimator"
	"github.com/banshee-data/estimand.report/internal/fsutil"
	"github.com/banshee-data/estimand.report/internal/model"
	"github.com/banshee-data/estimand.report/internal/report"
)

type options struct {
	graphFile  string
	dataFile   string
	treatment  string
	outcome    string
	latent     []string
	configFile string
	reportDir  string
	dbFile     string
	migrations string
	serverURL  string
}

func main() {
	var opts options
	var latent string
	flag.StringVar(&opts.graphFile, "graph", "", "Path to a DOT graph file (required)")
	flag.StringVar(&opts.dataFile, "data", "", "Path to a CSV dataset (required)")
	flag.StringVar(&opts.treatment, "treatment", "", "Treatment variable (required)")
	flag.StringVar(&opts.outcome, "outcome", "", "Outcome variable (required)")
	flag.StringVar(&latent, "latent", "", "Comma-separated latent (unobserved) variables")
	flag.StringVar(&opts.configFile, "config", "", "Path to an analysis config JSON file")
	flag.StringVar(&opts.reportDir, "report", "", "Directory for PNG/HTML report output")
	flag.StringVar(&opts.dbFile, "db", "", "Results database to record the run in")
	flag.StringVar(&opts.migrations, "migrations", "db/migrations", "Path to the migrations directory")
	flag.StringVar(&opts.serverURL, "server", "", "Post the analysis to a running server instead of running locally")
	flag.Parse()

	opts.latent = splitList(latent)
	if opts.graphFile == "" || opts.dataFile == "" || opts.treatment == "" || opts.outcome == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(opts, os.Stdout, fsutil.OSFileSystem{}); err != nil {
		log.Fatal(err)
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func run(opts options, out io.Writer, fs fsutil.FileSystem) error {
	cfg := config.Empty()
	if opts.configFile != "" {
		var err error
		cfg, err = config.Load(opts.configFile)
		if err != nil {
			return err
		}
	}

	if opts.serverURL != "" {
		return runRemote(opts, out, fs)
	}

	g, err := dag.LoadDOT(opts.graphFile)
	if err != nil {
		return err
	}
	frame, err := dataset.LoadCSV(opts.dataFile)
	if err != nil {
		return err
	}
	if frame.Rows() < cfg.GetMinRowsPerFit() {
		return fmt.Errorf("dataset has %d rows, need at least %d", frame.Rows(), cfg.GetMinRowsPerFit())
	}

	m, err := model.New(g, opts.treatment, opts.outcome)
	if err != nil {
		return err
	}
	if len(opts.latent) > 0 {
		if err := m.SetLatent(opts.latent...); err != nil {
			return err
		}
	}
	if err := m.BindData(frame); err != nil {
		return err
	}

	estimands, err := m.Identify()
	if err != nil {
		return err
	}
	for _, e := range estimands {
		fmt.Fprintln(out, e.Summary())
	}

	psm := estimator.PSMConfig{Caliper: cfg.GetMatchCaliper()}
	var estimates []*estimator.Estimate
	for _, e := range estimands {
		est, err := estimator.ForEstimand(m, e, "", psm)
		if err != nil {
			return fmt.Errorf("estimation failed for %s: %w", e.Kind, err)
		}
		estimates = append(estimates, est)
		if e.Kind == model.Backdoor {
			if matched, err := estimator.ForEstimand(m, e, estimator.PropensityMatching, psm); err == nil {
				estimates = append(estimates, matched)
			}
		}
	}
	for _, est := range estimates {
		fmt.Fprintln(out, est.Summary())
	}

	if opts.reportDir != "" {
		if err := writeReports(fs, opts.reportDir, cfg, g, opts, frame, estimands, estimates); err != nil {
			return fmt.Errorf("failed to write reports: %w", err)
		}
	}

	if opts.dbFile != "" {
		if err := recordRun(opts, g, estimands, estimates); err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}
	}
	return nil
}

// runRemote uploads the graph and dataset and lets the server estimate.
func runRemote(opts options, out io.Writer, fs fsutil.FileSystem) error {
	dot, err := fs.ReadFile(opts.graphFile)
	if err != nil {
		return fmt.Errorf("failed to read graph file: %w", err)
	}
	csv, err := fs.ReadFile(opts.dataFile)
	if err != nil {
		return fmt.Errorf("failed to read dataset: %w", err)
	}

	client := api.NewClient(opts.serverURL, nil)
	gr, err := client.CreateGraph(string(dot))
	if err != nil {
		return err
	}
	res, err := client.CreateAnalysis(api.AnalysisRequest{
		GraphID:   gr.ID,
		Treatment: opts.treatment,
		Outcome:   opts.outcome,
		Latent:    opts.latent,
		CSV:       string(csv),
	})
	if err != nil {
		return err
	}

	for _, e := range res.Estimands {
		fmt.Fprintln(out, e.Summary)
	}
	for _, e := range res.Estimates {
		fmt.Fprintln(out, e.Summary)
	}
	if res.RunID != "" {
		fmt.Fprintf(out, "Recorded run %s\n", res.RunID)
	}
	return nil
}

func writeReports(fs fsutil.FileSystem, dir string, cfg *config.AnalysisConfig, g *dag.Graph, opts options, frame *dataset.Frame, estimands []model.Estimand, estimates []*estimator.Estimate) error {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var dagHTML strings.Builder
	if err := report.RenderDAGChart(&dagHTML, g, opts.treatment, opts.outcome, opts.latent); err != nil {
		return err
	}
	if err := fs.WriteFile(filepath.Join(dir, "dag.html"), []byte(dagHTML.String()), 0644); err != nil {
		return err
	}

	var barHTML strings.Builder
	if err := report.RenderEstimateChart(&barHTML, estimates); err != nil {
		return err
	}
	if err := fs.WriteFile(filepath.Join(dir, "estimates.html"), []byte(barHTML.String()), 0644); err != nil {
		return err
	}

	rp := report.NewReporter(cfg)
	for _, est := range estimates {
		if est.Method == estimator.PropensityMatching && len(est.Scores) > 0 {
			treatment := frame.MustColumn(est.Estimand.Treatment)
			if err := rp.ScoreOverlapPNG(filepath.Join(dir, "score_overlap.png"), est.Scores, treatment); err != nil {
				return err
			}
		}
	}

	// Regression diagnostics for the first backdoor estimand.
	for _, e := range estimands {
		if e.Kind != model.Backdoor {
			continue
		}
		y := frame.MustColumn(e.Outcome)
		names := append([]string{e.Treatment}, e.Adjustment...)
		cols := make([][]float64, 0, len(names))
		for _, n := range names {
			cols = append(cols, frame.MustColumn(n))
		}
		fit, err := estimator.OLS(y, names, cols)
		if err != nil {
			return err
		}
		if err := rp.FitScatterPNG(filepath.Join(dir, "fit_scatter.png"), y, fit.Fitted); err != nil {
			return err
		}
		if err := rp.ResidualsPNG(filepath.Join(dir, "residuals.png"), fit.Fitted, fit.Residuals); err != nil {
			return err
		}
		break
	}
	return nil
}

func recordRun(opts options, g *dag.Graph, estimands []model.Estimand, estimates []*estimator.Estimate) error {
	database, err := db.NewDB(opts.dbFile)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.MigrateUp(opts.migrations); err != nil {
		return err
	}

	run := db.AnalysisRun{
		GraphDOT:  g.MarshalDOT(),
		Treatment: opts.treatment,
		Outcome:   opts.outcome,
		Latent:    opts.latent,
	}
	var estimandRows []db.EstimandRow
	for _, e := range estimands {
		vars := e.Adjustment
		switch e.Kind {
		case model.Frontdoor:
			vars = e.Mediators
		case model.IV:
			vars = e.Instruments
		}
		estimandRows = append(estimandRows, db.EstimandRow{
			Kind:      string(e.Kind),
			Variables: vars,
			Summary:   e.Summary(),
		})
	}
	var estimateRows []db.EstimateRow
	for _, est := range estimates {
		estimateRows = append(estimateRows, db.EstimateRow{
			Kind:     string(est.Estimand.Kind),
			Method:   string(est.Method),
			Value:    est.Value,
			StdError: est.StdError,
			Summary:  est.Summary(),
		})
	}
	id, err := database.RecordAnalysis(run, estimandRows, estimateRows)
	if err != nil {
		return err
	}
	log.Printf("recorded run %s", id)
	return nil
}
