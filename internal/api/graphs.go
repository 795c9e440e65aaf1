package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/estimand.report/internal/dag"
	"github.com/banshee-data/estimand.report/internal/model"
)

const maxGraphBytes = 256 * 1024

type graphRequest struct {
	DOT string `json:"dot"`
}

type graphResponse struct {
	ID    string      `json:"id"`
	Nodes []string    `json:"nodes"`
	Edges [][2]string `json:"edges"`
	DOT   string      `json:"dot"`
}

func graphToResponse(sg *storedGraph) graphResponse {
	edges := sg.Graph.Edges()
	out := graphResponse{ID: sg.ID, Nodes: sg.Graph.Nodes(), DOT: sg.DOT}
	for _, e := range edges {
		out.Edges = append(out.Edges, [2]string{e.From, e.To})
	}
	return out
}

func (s *Server) createGraph(w http.ResponseWriter, r *http.Request) {
	var req graphRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxGraphBytes)).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	g, err := dag.ParseDOT(req.DOT)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid graph: %v", err))
		return
	}
	if err := g.Validate(); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid graph: %v", err))
		return
	}

	sg := &storedGraph{
		ID:      uuid.NewString(),
		DOT:     req.DOT,
		Graph:   g,
		Created: time.Now(),
	}
	s.mu.Lock()
	s.graphs[sg.ID] = sg
	s.mu.Unlock()

	s.writeJSON(w, http.StatusCreated, graphToResponse(sg))
}

func (s *Server) listGraphs(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.graphs))
	for id := range s.graphs {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	s.writeJSON(w, http.StatusOK, map[string]any{"graphs": ids})
}

func (s *Server) showGraph(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sg, ok := s.graph(id)
	if !ok {
		s.writeJSONError(w, http.StatusNotFound, "no graph with id "+id)
		return
	}
	s.writeJSON(w, http.StatusOK, graphToResponse(sg))
}

type pathInfo struct {
	Path      string   `json:"path"`
	Colliders []string `json:"colliders,omitempty"`
	Blocked   bool     `json:"blocked"`
}

func splitParam(s string) []string {
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

// showPaths enumerates the undirected paths between two nodes, with
// blocking evaluated against an optional conditioning set.
// Query params: from, to, given (comma separated), backdoor=1 to
// restrict to backdoor paths.
func (s *Server) showPaths(w http.ResponseWriter, r *http.Request) {
	sg, ok := s.graph(r.PathValue("id"))
	if !ok {
		s.writeJSONError(w, http.StatusNotFound, "no graph with id "+r.PathValue("id"))
		return
	}

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		s.writeJSONError(w, http.StatusBadRequest, "from and to query params are required")
		return
	}
	given := splitParam(r.URL.Query().Get("given"))

	var paths []dag.Path
	var err error
	if r.URL.Query().Get("backdoor") == "1" {
		paths, err = sg.Graph.BackdoorPaths(from, to)
	} else {
		paths, err = sg.Graph.AllPaths(from, to)
	}
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	givenSet := make(map[string]bool, len(given))
	for _, n := range given {
		if !sg.Graph.HasNode(n) {
			s.writeJSONError(w, http.StatusBadRequest, "unknown conditioning node "+n)
			return
		}
		givenSet[n] = true
	}

	out := make([]pathInfo, 0, len(paths))
	for _, p := range paths {
		out = append(out, pathInfo{
			Path:      p.String(),
			Colliders: p.Colliders(),
			Blocked:   p.Blocked(sg.Graph, givenSet),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"paths": out})
}

type estimandInfo struct {
	Kind        string   `json:"kind"`
	Adjustment  []string `json:"adjustment,omitempty"`
	Mediators   []string `json:"mediators,omitempty"`
	Instruments []string `json:"instruments,omitempty"`
	Summary     string   `json:"summary"`
}

func estimandToInfo(e model.Estimand) estimandInfo {
	return estimandInfo{
		Kind:        string(e.Kind),
		Adjustment:  e.Adjustment,
		Mediators:   e.Mediators,
		Instruments: e.Instruments,
		Summary:     e.Summary(),
	}
}

// identify runs estimand identification on a stored graph.
// Query params: treatment, outcome, latent (comma separated).
func (s *Server) identify(w http.ResponseWriter, r *http.Request) {
	sg, ok := s.graph(r.PathValue("id"))
	if !ok {
		s.writeJSONError(w, http.StatusNotFound, "no graph with id "+r.PathValue("id"))
		return
	}

	treatment := r.URL.Query().Get("treatment")
	outcome := r.URL.Query().Get("outcome")
	if treatment == "" || outcome == "" {
		s.writeJSONError(w, http.StatusBadRequest, "treatment and outcome query params are required")
		return
	}

	m, err := model.New(sg.Graph, treatment, outcome)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if latent := splitParam(r.URL.Query().Get("latent")); len(latent) > 0 {
		if err := m.SetLatent(latent...); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	estimands, err := m.Identify()
	if err != nil {
		s.writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	out := make([]estimandInfo, 0, len(estimands))
	for _, e := range estimands {
		out = append(out, estimandToInfo(e))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"estimands": out})
}
