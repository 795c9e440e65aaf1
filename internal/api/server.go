// Package api exposes the analysis pipeline over HTTP: graph upload and
// queries, identification, estimation runs, and rendered reports.
package api

import (
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/banshee-data/estimand.report/internal/config"
	"github.com/banshee-data/estimand.report/internal/dag"
	"github.com/banshee-data/estimand.report/internal/db"
	"github.com/banshee-data/estimand.report/internal/httputil"
	"github.com/banshee-data/estimand.report/internal/report"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server handles the /api routes. Graphs live in an in-memory registry
// keyed by UUID; analysis runs and datasets persist in the results DB.
type Server struct {
	db  *db.DB
	cfg *config.AnalysisConfig

	mu     sync.RWMutex
	graphs map[string]*storedGraph
}

type storedGraph struct {
	ID      string
	DOT     string
	Graph   *dag.Graph
	Created time.Time
}

// NewServer returns a server over the given results DB and config. A nil
// config uses the defaults.
func NewServer(database *db.DB, cfg *config.AnalysisConfig) *Server {
	if cfg == nil {
		cfg = config.Empty()
	}
	return &Server{
		db:     database,
		cfg:    cfg,
		graphs: make(map[string]*storedGraph),
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/graphs", s.createGraph)
	mux.HandleFunc("GET /api/graphs", s.listGraphs)
	mux.HandleFunc("GET /api/graphs/{id}", s.showGraph)
	mux.HandleFunc("GET /api/graphs/{id}/paths", s.showPaths)
	mux.HandleFunc("GET /api/graphs/{id}/identify", s.identify)
	mux.HandleFunc("POST /api/analyses", s.createAnalysis)
	mux.HandleFunc("GET /api/analyses", s.listAnalyses)
	mux.HandleFunc("GET /api/analyses/{id}", s.showAnalysis)
	mux.HandleFunc("POST /api/datasets", s.importDataset)
	mux.HandleFunc("GET /api/datasets", s.listDatasets)
	mux.HandleFunc("GET /api/reports/dag", s.dagReport)
	mux.HandleFunc("GET /api/params", s.showParams)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	httputil.WriteJSONError(w, status, msg)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	httputil.WriteJSON(w, status, v)
}

func (s *Server) graph(id string) (*storedGraph, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphs[id]
	return g, ok
}

func (s *Server) showParams(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"seed":             s.cfg.GetSeed(),
		"match_caliper":    s.cfg.GetMatchCaliper(),
		"synth_rows":       s.cfg.GetSynthRows(),
		"synth_noise":      s.cfg.GetSynthNoise(),
		"min_rows_per_fit": s.cfg.GetMinRowsPerFit(),
		"score_bins":       s.cfg.GetScoreBins(),
	})
}

func (s *Server) dagReport(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("graph")
	sg, ok := s.graph(id)
	if !ok {
		s.writeJSONError(w, http.StatusNotFound, "no graph with id "+id)
		return
	}
	treatment := r.URL.Query().Get("treatment")
	outcome := r.URL.Query().Get("outcome")
	latent := splitParam(r.URL.Query().Get("latent"))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.RenderDAGChart(w, sg.Graph, treatment, outcome, latent); err != nil {
		log.Printf("failed to render dag chart: %v", err)
	}
}
