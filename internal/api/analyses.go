package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/banshee-data/estimand.report/internal/dataset"
	"github.com/banshee-data/estimand.report/internal/db"
	"github.com/banshee-data/estimand.report/internal/estimator"
	"github.com/banshee-data/estimand.report/internal/model"
)

const maxAnalysisBytes = 4 * 1024 * 1024

type analysisRequest struct {
	GraphID   string   `json:"graph_id"`
	Treatment string   `json:"treatment"`
	Outcome   string   `json:"outcome"`
	Latent    []string `json:"latent,omitempty"`

	// Dataset names a stored dataset; CSV supplies one inline. Exactly
	// one must be set.
	Dataset string `json:"dataset,omitempty"`
	CSV     string `json:"csv,omitempty"`
}

type estimateInfo struct {
	Kind     string  `json:"kind"`
	Method   string  `json:"method"`
	Value    float64 `json:"value"`
	StdError float64 `json:"std_error,omitempty"`
	Summary  string  `json:"summary"`
}

type analysisResponse struct {
	RunID     string         `json:"run_id,omitempty"`
	Estimands []estimandInfo `json:"estimands"`
	Estimates []estimateInfo `json:"estimates"`
}

func (s *Server) createAnalysis(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAnalysisBytes)).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	sg, ok := s.graph(req.GraphID)
	if !ok {
		s.writeJSONError(w, http.StatusNotFound, "no graph with id "+req.GraphID)
		return
	}

	m, err := model.New(sg.Graph, req.Treatment, req.Outcome)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Latent) > 0 {
		if err := m.SetLatent(req.Latent...); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	frame, datasetID, err := s.resolveDataset(req)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if frame.Rows() < s.cfg.GetMinRowsPerFit() {
		s.writeJSONError(w, http.StatusBadRequest,
			fmt.Sprintf("dataset has %d rows, need at least %d", frame.Rows(), s.cfg.GetMinRowsPerFit()))
		return
	}
	if err := m.BindData(frame); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	estimands, err := m.Identify()
	if err != nil {
		s.writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	psm := estimator.PSMConfig{Caliper: s.cfg.GetMatchCaliper()}
	var estimates []*estimator.Estimate
	for _, e := range estimands {
		est, err := estimator.ForEstimand(m, e, "", psm)
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError,
				fmt.Sprintf("estimation failed for %s: %v", e.Kind, err))
			return
		}
		estimates = append(estimates, est)

		// Matching is the standard robustness companion to the
		// regression estimate of a backdoor estimand.
		if e.Kind == model.Backdoor {
			matched, err := estimator.ForEstimand(m, e, estimator.PropensityMatching, psm)
			if err == nil {
				estimates = append(estimates, matched)
			}
		}
	}

	resp := analysisResponse{}
	for _, e := range estimands {
		resp.Estimands = append(resp.Estimands, estimandToInfo(e))
	}
	for _, est := range estimates {
		resp.Estimates = append(resp.Estimates, estimateInfo{
			Kind:     string(est.Estimand.Kind),
			Method:   string(est.Method),
			Value:    est.Value,
			StdError: est.StdError,
			Summary:  est.Summary(),
		})
	}

	if s.db != nil {
		runID, err := s.recordRun(sg, req, datasetID, estimands, estimates)
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store analysis: %v", err))
			return
		}
		resp.RunID = runID
	}

	s.writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) resolveDataset(req analysisRequest) (*dataset.Frame, string, error) {
	switch {
	case req.Dataset != "" && req.CSV != "":
		return nil, "", fmt.Errorf("dataset and csv are mutually exclusive")
	case req.Dataset != "":
		if s.db == nil {
			return nil, "", fmt.Errorf("no results DB configured, inline csv required")
		}
		f, err := s.db.Dataset(req.Dataset)
		if err != nil {
			return nil, "", err
		}
		infos, err := s.db.Datasets()
		if err != nil {
			return nil, "", err
		}
		for _, info := range infos {
			if info.Name == req.Dataset {
				return f, info.ID, nil
			}
		}
		return f, "", nil
	case req.CSV != "":
		f, err := dataset.ReadCSV(strings.NewReader(req.CSV))
		if err != nil {
			return nil, "", err
		}
		return f, "", nil
	default:
		return nil, "", fmt.Errorf("one of dataset or csv is required")
	}
}

func estimandVariables(e model.Estimand) []string {
	switch e.Kind {
	case model.Frontdoor:
		return e.Mediators
	case model.IV:
		return e.Instruments
	default:
		return e.Adjustment
	}
}

func (s *Server) recordRun(sg *storedGraph, req analysisRequest, datasetID string, estimands []model.Estimand, estimates []*estimator.Estimate) (string, error) {
	run := db.AnalysisRun{
		GraphDOT:  sg.DOT,
		Treatment: req.Treatment,
		Outcome:   req.Outcome,
		Latent:    req.Latent,
		DatasetID: datasetID,
	}
	var estimandRows []db.EstimandRow
	for _, e := range estimands {
		estimandRows = append(estimandRows, db.EstimandRow{
			Kind:      string(e.Kind),
			Variables: estimandVariables(e),
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
	return s.db.RecordAnalysis(run, estimandRows, estimateRows)
}

func (s *Server) listAnalyses(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "no results DB configured")
		return
	}
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}
	runs, err := s.db.Runs(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list runs: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) showAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "no results DB configured")
		return
	}
	id := r.PathValue("id")
	run, err := s.db.Run(id)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	estimands, err := s.db.Estimands(id)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	estimates, err := s.db.Estimates(id)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run":       run,
		"estimands": estimands,
		"estimates": estimates,
	})
}

type datasetRequest struct {
	Name string `json:"name"`
	CSV  string `json:"csv"`
}

func (s *Server) importDataset(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "no results DB configured")
		return
	}
	var req datasetRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAnalysisBytes)).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	f, err := dataset.ReadCSV(strings.NewReader(req.CSV))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid csv: %v", err))
		return
	}
	id, err := s.db.ImportDataset(req.Name, f)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"id": id, "name": req.Name, "rows": f.Rows()})
}

func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "no results DB configured")
		return
	}
	infos, err := s.db.Datasets()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list datasets: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"datasets": infos})
}
