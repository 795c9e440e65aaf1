package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/banshee-data/estimand.report/internal/httputil"
)

// Client talks to a running analysis server. The HTTP transport is
// injectable so batch tools can be tested without a live server.
type Client struct {
	base string
	http httputil.HTTPClient
}

// NewClient returns a client for the server at base (e.g.
// "http://localhost:8080"). A nil HTTP client uses http.DefaultClient.
func NewClient(base string, hc httputil.HTTPClient) *Client {
	if hc == nil {
		hc = httputil.NewStandardClient(nil)
	}
	return &Client{base: strings.TrimRight(base, "/"), http: hc}
}

func (c *Client) postJSON(path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	resp, err := c.http.Post(c.base+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()
	return c.decode(path, resp, out)
}

func (c *Client) getJSON(path string, out any) error {
	resp, err := c.http.Get(c.base + path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	return c.decode(path, resp, out)
}

func (c *Client) decode(path string, resp *http.Response, out any) error {
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		body, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s (status %d)", path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// CreateGraph uploads a DOT graph and returns its server-side record.
func (c *Client) CreateGraph(dot string) (*GraphRecord, error) {
	var out GraphRecord
	if err := c.postJSON("/api/graphs", graphRequest{DOT: dot}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GraphRecord is the server's view of an uploaded graph.
type GraphRecord = graphResponse

// AnalysisRequest describes an analysis to run on the server.
type AnalysisRequest = analysisRequest

// AnalysisResult is the server's response to a completed analysis.
type AnalysisResult = analysisResponse

// CreateAnalysis runs identification and estimation on the server.
func (c *Client) CreateAnalysis(req AnalysisRequest) (*AnalysisResult, error) {
	var out AnalysisResult
	if err := c.postJSON("/api/analyses", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportDataset uploads a named CSV dataset to the server's store.
func (c *Client) ImportDataset(name, csv string) error {
	return c.postJSON("/api/datasets", datasetRequest{Name: name, CSV: csv}, nil)
}

// Params fetches the server's effective analysis parameters.
func (c *Client) Params() (map[string]any, error) {
	var out map[string]any
	if err := c.getJSON("/api/params", &out); err != nil {
		return nil, err
	}
	return out, nil
}
