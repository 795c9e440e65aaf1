package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/banshee-data/estimand.report/internal/httputil"
	"github.com/banshee-data/estimand.report/internal/testutil"
)

func TestClientAgainstServer(t *testing.T) {
	s := NewServer(nil, nil)
	ts := httptest.NewServer(s.ServeMux())
	defer ts.Close()

	c := NewClient(ts.URL, nil)

	gr, err := c.CreateGraph(confoundedDOT)
	testutil.AssertNoError(t, err)
	if gr.ID == "" || len(gr.Nodes) != 3 {
		t.Errorf("graph record = %+v", gr)
	}

	res, err := c.CreateAnalysis(AnalysisRequest{
		GraphID:   gr.ID,
		Treatment: "x",
		Outcome:   "y",
		CSV:       confoundedCSV(t),
	})
	testutil.AssertNoError(t, err)
	if len(res.Estimates) == 0 {
		t.Error("no estimates returned")
	}

	params, err := c.Params()
	testutil.AssertNoError(t, err)
	if _, ok := params["seed"]; !ok {
		t.Errorf("params = %v, want a seed entry", params)
	}
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(404, `{"error":"no graph with id nope"}`)

	c := NewClient("http://example.invalid", mock)
	_, err := c.CreateAnalysis(AnalysisRequest{GraphID: "nope", Treatment: "x", Outcome: "y"})
	testutil.AssertError(t, err)
	if !strings.Contains(err.Error(), "no graph with id nope") {
		t.Errorf("err = %v, want the server message", err)
	}
	if mock.RequestCount() != 1 {
		t.Errorf("requests = %d, want 1", mock.RequestCount())
	}
}

func TestClientRequestShape(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(201, `{"id":"abc","nodes":["a","b"],"edges":[["a","b"]],"dot":"digraph { a -> b; }"}`)

	c := NewClient("http://example.invalid/", mock)
	gr, err := c.CreateGraph("digraph { a -> b; }")
	testutil.AssertNoError(t, err)
	if gr.ID != "abc" {
		t.Errorf("id = %q, want abc", gr.ID)
	}

	req := mock.GetRequest(0)
	if req == nil {
		t.Fatal("no request recorded")
	}
	if req.URL.String() != "http://example.invalid/api/graphs" {
		t.Errorf("url = %s", req.URL)
	}
	var body graphRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.DOT != "digraph { a -> b; }" {
		t.Errorf("body dot = %q", body.DOT)
	}
}
