package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/estimand.report/internal/api"
	"github.com/banshee-data/estimand.report/internal/dag"
	"github.com/banshee-data/estimand.report/internal/dataset"
	"github.com/banshee-data/estimand.report/internal/fsutil"
	"github.com/banshee-data/estimand.report/internal/testutil"
)

func writeFixtures(t *testing.T) (graphFile, dataFile string) {
	t.Helper()
	dir := t.TempDir()

	g := dag.NewGraph()
	for _, e := range [][2]string{{"w", "x"}, {"w", "y"}, {"x", "y"}} {
		testutil.AssertNoError(t, g.AddEdge(e[0], e[1]))
	}
	graphFile = filepath.Join(dir, "graph.dot")
	testutil.AssertNoError(t, g.SaveDOT(graphFile))

	f, err := dataset.Synthesize(g, dataset.SynthConfig{
		Rows:   600,
		Seed:   3,
		Coeffs: map[string]float64{dataset.EdgeKey("x", "y"): 2.0},
		Binary: []string{"x"},
	})
	testutil.AssertNoError(t, err)
	dataFile = filepath.Join(dir, "data.csv")
	testutil.AssertNoError(t, f.SaveCSV(dataFile))
	return graphFile, dataFile
}

func TestRunLocal(t *testing.T) {
	graphFile, dataFile := writeFixtures(t)

	var out bytes.Buffer
	err := run(options{
		graphFile: graphFile,
		dataFile:  dataFile,
		treatment: "x",
		outcome:   "y",
	}, &out, fsutil.OSFileSystem{})
	testutil.AssertNoError(t, err)

	text := out.String()
	for _, want := range []string{"backdoor", "linear_regression", "propensity_matching", "Estimated effect of x on y"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestRunWritesReports(t *testing.T) {
	graphFile, dataFile := writeFixtures(t)
	reportDir := filepath.Join(t.TempDir(), "reports")

	var out bytes.Buffer
	err := run(options{
		graphFile: graphFile,
		dataFile:  dataFile,
		treatment: "x",
		outcome:   "y",
		reportDir: reportDir,
	}, &out, fsutil.OSFileSystem{})
	testutil.AssertNoError(t, err)

	for _, name := range []string{"dag.html", "estimates.html", "score_overlap.png", "fit_scatter.png", "residuals.png"} {
		if _, err := os.Stat(filepath.Join(reportDir, name)); err != nil {
			t.Errorf("missing report file %s: %v", name, err)
		}
	}
}

func TestRunRecordsToDB(t *testing.T) {
	graphFile, dataFile := writeFixtures(t)
	dbFile := filepath.Join(t.TempDir(), "results.db")

	var out bytes.Buffer
	err := run(options{
		graphFile:  graphFile,
		dataFile:   dataFile,
		treatment:  "x",
		outcome:    "y",
		dbFile:     dbFile,
		migrations: "../../db/migrations",
	}, &out, fsutil.OSFileSystem{})
	testutil.AssertNoError(t, err)

	if _, err := os.Stat(dbFile); err != nil {
		t.Errorf("results database not created: %v", err)
	}
}

func TestRunRemote(t *testing.T) {
	graphFile, dataFile := writeFixtures(t)

	s := api.NewServer(nil, nil)
	ts := httptest.NewServer(s.ServeMux())
	defer ts.Close()

	var out bytes.Buffer
	err := run(options{
		graphFile: graphFile,
		dataFile:  dataFile,
		treatment: "x",
		outcome:   "y",
		serverURL: ts.URL,
	}, &out, fsutil.OSFileSystem{})
	testutil.AssertNoError(t, err)

	if !strings.Contains(out.String(), "Estimated effect of x on y") {
		t.Errorf("remote output missing estimate summary:\n%s", out.String())
	}
}

func TestRunErrors(t *testing.T) {
	graphFile, dataFile := writeFixtures(t)

	tests := []struct {
		name string
		opts options
	}{
		{"missing graph", options{graphFile: "nope.dot", dataFile: dataFile, treatment: "x", outcome: "y"}},
		{"missing data", options{graphFile: graphFile, dataFile: "nope.csv", treatment: "x", outcome: "y"}},
		{"unknown treatment", options{graphFile: graphFile, dataFile: dataFile, treatment: "q", outcome: "y"}},
		{"latent treatment", options{graphFile: graphFile, dataFile: dataFile, treatment: "x", outcome: "y", latent: []string{"x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			testutil.AssertError(t, run(tt.opts, &out, fsutil.OSFileSystem{}))
		})
	}
}
